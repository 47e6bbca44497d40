package tetraxr

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Tween animates a property of a Node over time. Tweens are advanced by Node.Update.
type Tween struct {
	tween    *gween.Tween
	apply    func(t float32)
	done     bool
	OnFinish func()
}

func newTween(duration float32, easing ease.TweenFunc, apply func(t float32)) *Tween {
	if easing == nil {
		easing = ease.Linear
	}
	return &Tween{
		tween: gween.New(0, 1, duration, easing),
		apply: apply,
	}
}

// Done returns whether the tween has reached its end.
func (tween *Tween) Done() bool {
	return tween.done
}

// Stop ends the tween where it is; the node's property keeps its current value.
func (tween *Tween) Stop() {
	tween.done = true
}

func (tween *Tween) update(dt float32) {

	if tween.done {
		return
	}

	t, finished := tween.tween.Update(dt)
	tween.apply(t)

	if finished {
		tween.done = true
		if tween.OnFinish != nil {
			tween.OnFinish()
		}
	}

}

// TweenTranslation moves the node from its current translation to target over duration
// seconds. A nil easing function is linear.
func (node *Node) TweenTranslation(target mgl32.Vec3, duration float32, easing ease.TweenFunc) *Tween {
	start := node.Translation()
	return node.addTween(newTween(duration, easing, func(t float32) {
		node.SetTranslation(start.Add(target.Sub(start).Mul(t)))
	}))
}

// TweenScale scales the node from its current scale to target over duration seconds.
func (node *Node) TweenScale(target mgl32.Vec3, duration float32, easing ease.TweenFunc) *Tween {
	start := node.Scale()
	return node.addTween(newTween(duration, easing, func(t float32) {
		node.SetScale(start.Add(target.Sub(start).Mul(t)))
	}))
}

// TweenRotation turns the node from its current rotation to target over duration seconds,
// interpolating spherically.
func (node *Node) TweenRotation(target mgl32.Quat, duration float32, easing ease.TweenFunc) *Tween {
	start := node.Rotation()
	return node.addTween(newTween(duration, easing, func(t float32) {
		node.SetRotation(mgl32.QuatSlerp(start, target, t))
	}))
}

func (node *Node) addTween(tween *Tween) *Tween {
	node.tweens = append(node.tweens, tween)
	return tween
}

// StopTweens stops every tween running on the node.
func (node *Node) StopTweens() {
	for _, tween := range node.tweens {
		tween.Stop()
	}
	node.tweens = nil
}

func (node *Node) updateTweens(dt float32) {

	if len(node.tweens) == 0 {
		return
	}

	// OnFinish may start new tweens on the node.
	current := node.tweens
	node.tweens = nil

	running := make([]*Tween, 0, len(current))
	for _, tween := range current {
		tween.update(dt)
		if !tween.done {
			running = append(running, tween)
		}
	}

	node.tweens = append(running, node.tweens...)

}
