package tetraxr

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/tetraxr/gl/glfake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/gween/ease"
)

func newTestScene(t *testing.T) (*Scene, *glfake.Context) {
	ctx := glfake.New()
	scene := NewScene("test")
	scene.SetRenderer(newTestRenderer(t, ctx))
	return scene, ctx
}

func newSelectableBox(t *testing.T, scene *Scene, x float32) *Node {
	options := DefaultBoxOptions()
	options.Selectable = true
	options.Material = NewUnlitMaterial(1, 1, 1, 1)
	box, err := NewBoxNode(scene.Renderer(), options)
	require.NoError(t, err)
	box.SetLocalPosition(x, 0, 0)
	scene.AddNode(box)
	return box
}

func rayAt(x float32) mgl32.Mat4 {
	return mgl32.Translate3D(x, 0, 5)
}

func TestSceneStartFrame(t *testing.T) {

	scene := NewScene("frames")

	starts := 0
	scene.Callbacks.OnStartFrame = func(s *Scene, timestamp, dt float64) { starts++ }

	updated := 0.0
	node := NewNode("child")
	node.Callbacks.OnUpdate = func(n *Node, timestamp, dt float64) { updated += dt }
	scene.AddNode(node)

	assert.Equal(t, 0.0, scene.StartFrame(10))
	assert.InDelta(t, 0.5, scene.StartFrame(10.5), 1e-9)
	assert.InDelta(t, 0.25, scene.StartFrame(10.75), 1e-9)

	assert.Equal(t, 3, starts)
	assert.InDelta(t, 0.75, updated, 1e-9)

}

func TestSceneDrawWithoutRenderer(t *testing.T) {
	scene := NewScene("empty")
	assert.ErrorIs(t, scene.Draw(mgl32.Ident4(), mgl32.Ident4(), EyeNone), ErrNoRenderer)
}

func TestSceneDraw(t *testing.T) {

	scene, ctx := newTestScene(t)
	newSelectableBox(t, scene, 0)

	drawn := 0
	scene.Callbacks.OnDrawFrame = func(s *Scene, views []*RenderView) { drawn += len(views) }

	require.NoError(t, scene.Draw(mgl32.Perspective(1, 1, 0.1, 10), mgl32.Ident4(), EyeNone))
	assert.Equal(t, 1, ctx.Count("DrawElements"))
	assert.Equal(t, 1, drawn)

	scene.EndFrame()

}

func TestSceneUpdatePointersHover(t *testing.T) {

	scene, _ := newTestScene(t)
	left := newSelectableBox(t, scene, -2)
	right := newSelectableBox(t, scene, 2)

	events := []string{}
	for _, box := range []*Node{left, right} {
		box.Callbacks.OnHoverStart = func(n *Node) { events = append(events, "start "+n.Name()) }
		box.Callbacks.OnHoverEnd = func(n *Node) { events = append(events, "end "+n.Name()) }
	}
	left.SetName("left")
	right.SetName("right")

	// Two pointers on the same node start its hover once.
	hits := scene.UpdatePointers([]mgl32.Mat4{rayAt(-2), rayAt(-2.1)})
	require.Len(t, hits, 2)
	assert.Same(t, left, hits[0].Node)
	assert.Same(t, left, hits[1].Node)
	assert.Equal(t, []string{"start left"}, events)
	assert.True(t, left.Hovered())

	// Staying on it doesn't restart it.
	scene.UpdatePointers([]mgl32.Mat4{rayAt(-2)})
	assert.Equal(t, []string{"start left"}, events)

	// Moving over ends one hover and starts the other.
	hits = scene.UpdatePointers([]mgl32.Mat4{rayAt(2), rayAt(0)})
	assert.Same(t, right, hits[0].Node)
	assert.Nil(t, hits[1])
	assert.Equal(t, []string{"start left", "start right", "end left"}, events)
	assert.False(t, left.Hovered())
	assert.Equal(t, []*Node{right}, scene.HoveredNodes())

	scene.UpdatePointers(nil)
	assert.Equal(t, "end right", events[len(events)-1])
	assert.Empty(t, scene.HoveredNodes())

}

func TestSceneHandleSelect(t *testing.T) {

	scene, _ := newTestScene(t)
	box := newSelectableBox(t, scene, 0)

	var selected mgl32.Vec3
	calls := 0
	box.OnSelect(func(n *Node, point mgl32.Vec3) {
		calls++
		selected = point
	})

	hit := scene.HandleSelect(rayAt(0))
	require.NotNil(t, hit)
	assert.Equal(t, 1, calls)
	assert.InDelta(t, 0.5+RayIntersectionOffset, selected.Z(), 1e-5)
	assert.InDelta(t, 5-0.5-RayIntersectionOffset, hit.Distance, 1e-5)

	assert.Nil(t, scene.HandleSelect(rayAt(3)))
	assert.Equal(t, 1, calls)

	// Invisible nodes can't be picked.
	box.SetVisible(false)
	assert.Nil(t, scene.HandleSelect(rayAt(0)))

}

func TestSceneHitTestPicksClosest(t *testing.T) {

	scene, _ := newTestScene(t)
	far := newSelectableBox(t, scene, 0)
	near := newSelectableBox(t, scene, 0)
	near.SetLocalPosition(0, 0, 2)
	far.SetLocalPosition(0, 0, -2)

	hit := scene.Root.HitTest(rayAt(0))
	require.NotNil(t, hit)
	assert.Same(t, near, hit.Node)

	// A scaled node is hit on its scaled bounds.
	far.SetScale(mgl32.Vec3{4, 4, 4})
	near.SetVisible(false)
	hit = scene.Root.HitTest(rayAt(1.5))
	require.NotNil(t, hit)
	assert.Same(t, far, hit.Node)
	assert.InDelta(t, 0, hit.Intersection.Z(), 0.1)

}

func TestNodeTweens(t *testing.T) {

	node := NewNode("tweened")

	finished := false
	tween := node.TweenTranslation(mgl32.Vec3{10, 0, 0}, 1, nil)
	tween.OnFinish = func() {
		finished = true
		node.TweenScale(mgl32.Vec3{2, 2, 2}, 1, ease.Linear)
	}

	node.Update(0, 0.5)
	assert.InDelta(t, 5, node.Translation().X(), 1e-4)
	assert.False(t, tween.Done())

	node.Update(0.5, 0.5)
	assert.InDelta(t, 10, node.Translation().X(), 1e-4)
	assert.True(t, tween.Done())
	assert.True(t, finished)

	// The tween started from OnFinish keeps running.
	node.Update(1, 0.5)
	assert.InDelta(t, 1.5, node.Scale().X(), 1e-4)

	node.StopTweens()
	node.Update(1.5, 0.5)
	assert.InDelta(t, 1.5, node.Scale().X(), 1e-4)

}

func TestNodeTweenRotation(t *testing.T) {

	node := NewNode("spinner")
	target := mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 1, 0})
	node.TweenRotation(target, 2, nil)

	node.Update(0, 1)
	half := mgl32.QuatRotate(mgl32.DegToRad(45), mgl32.Vec3{0, 1, 0})
	assert.True(t, node.Rotation().OrientationEqualThreshold(half, 1e-4))

	node.Update(1, 1)
	assert.True(t, node.Rotation().OrientationEqualThreshold(target, 1e-4))

}

func TestCameraProjection(t *testing.T) {

	camera := NewCamera(200, 100)
	assert.Equal(t, float32(2), camera.AspectRatio())

	p := camera.Projection()
	assert.Equal(t, mgl32.Perspective(mgl32.DegToRad(60), 2, 0.1, 1000), p)

	camera.SetFieldOfView(90)
	assert.NotEqual(t, p, camera.Projection())

	camera.SetPerspective(false)
	camera.SetOrthoScale(10)
	assert.Equal(t, mgl32.Ortho(-5, 5, -2.5, 2.5, 0.1, 1000), camera.Projection())

	view := camera.RenderView()
	require.NotNil(t, view.Viewport)
	assert.Equal(t, 200, view.Viewport.Width)
	assert.Equal(t, EyeNone, view.Eye)

}

func TestCameraScreenRoundTrip(t *testing.T) {

	camera := NewCamera(640, 480)
	camera.SetLocalPosition(0, 0, 10)

	center := camera.WorldToScreen(mgl32.Vec3{0, 0, 0})
	assert.InDelta(t, 320, center.X(), 1e-3)
	assert.InDelta(t, 240, center.Y(), 1e-3)
	assert.InDelta(t, 10, center.Z(), 1e-3)

	point := mgl32.Vec3{1, 2, 0}
	screen := camera.WorldToScreen(point)
	assert.Less(t, screen.Y(), float32(240))

	nearPoint := camera.ScreenToWorld(screen.X(), screen.Y(), 0)
	farPoint := camera.ScreenToWorld(screen.X(), screen.Y(), 1)
	ray := NewRayFromPoints(nearPoint, farPoint)
	toPoint := point.Sub(nearPoint).Normalize()
	assert.InDelta(t, 1, ray.Direction().Dot(toPoint), 1e-4)

}

func TestCameraPickRayHitsBox(t *testing.T) {

	scene, _ := newTestScene(t)
	box := newSelectableBox(t, scene, 0)

	camera := NewCamera(640, 480)
	camera.SetLocalPosition(0, 0, 10)

	hit := scene.Root.HitTest(camera.PickRay(320, 240))
	require.NotNil(t, hit)
	assert.Same(t, box, hit.Node)

	assert.Nil(t, scene.Root.HitTest(camera.PickRay(0, 0)))

}

func TestSceneHitTestSelectableGroup(t *testing.T) {

	scene, _ := newTestScene(t)

	group := NewNode("group")
	group.SetSelectable(true)
	group.SetLocalPosition(1, 0, 0)
	scene.AddNode(group)

	options := DefaultBoxOptions()
	options.Material = NewUnlitMaterial(1, 1, 1, 1)
	box, err := NewBoxNode(scene.Renderer(), options)
	require.NoError(t, err)
	box.SetLocalPosition(1, 0, 0)
	group.AddNode(box)

	// Nested selectables are claimed by the outermost one.
	inner, err := NewBoxNode(scene.Renderer(), options)
	require.NoError(t, err)
	inner.SetSelectable(true)
	inner.SetLocalPosition(-1, 0, 1)
	group.AddNode(inner)

	hit := scene.Root.HitTest(rayAt(2))
	require.NotNil(t, hit)
	assert.Same(t, group, hit.Node)
	assert.InDelta(t, 0.5+RayIntersectionOffset, hit.Intersection.Z(), 1e-5)

	// The closest descendant wins: the inner box sits in front of the group's origin.
	hit = scene.Root.HitTest(rayAt(0))
	require.NotNil(t, hit)
	assert.Same(t, group, hit.Node)
	assert.InDelta(t, 1.5+RayIntersectionOffset, hit.Intersection.Z(), 1e-5)

	assert.Nil(t, scene.Root.HitTest(rayAt(-2)))

	// Hidden descendants don't count.
	box.SetVisible(false)
	assert.Nil(t, scene.Root.HitTest(rayAt(2)))

}
