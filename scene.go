package tetraxr

import "github.com/go-gl/mathgl/mgl32"

// Scene is the top of a node tree, together with the renderer that draws it, frame
// timing and pointer state.
type Scene struct {
	Name      string
	Root      *Node
	Callbacks SceneCallbacks

	renderer *Renderer

	lastTimestamp float64
	started       bool

	pointerFrameID int
	hovered        []*Node
}

// NewScene returns a new, empty Scene.
func NewScene(name string) *Scene {
	return &Scene{
		Name: name,
		Root: NewNode("Root"),
	}
}

// SetRenderer attaches the scene's tree to renderer. Nodes create their primitives in
// their OnRendererChanged callbacks.
func (scene *Scene) SetRenderer(renderer *Renderer) {
	scene.renderer = renderer
	scene.Root.setRenderer(renderer)
}

// Renderer returns the scene's renderer, if any.
func (scene *Scene) Renderer() *Renderer {
	return scene.renderer
}

// AddNode adds node under the scene's root.
func (scene *Scene) AddNode(node *Node) {
	scene.Root.AddNode(node)
}

// RemoveNode removes node from under the scene's root.
func (scene *Scene) RemoveNode(node *Node) {
	scene.Root.RemoveNode(node)
}

// StartFrame begins a frame at timestamp (in seconds), updating every node, and returns
// the time elapsed since the previous frame (0 for the first one).
func (scene *Scene) StartFrame(timestamp float64) float64 {

	dt := 0.0
	if scene.started {
		dt = timestamp - scene.lastTimestamp
	}
	scene.lastTimestamp = timestamp
	scene.started = true

	if scene.Callbacks.OnStartFrame != nil {
		scene.Callbacks.OnStartFrame(scene, timestamp, dt)
	}

	scene.Root.Update(timestamp, dt)

	return dt

}

// EndFrame finishes the frame, running any completions that arrived while it was drawn.
func (scene *Scene) EndFrame() {
	if scene.renderer != nil {
		scene.renderer.Poll()
	}
}

// Draw draws the scene for a single view.
func (scene *Scene) Draw(projection, view mgl32.Mat4, eye Eye) error {
	return scene.DrawViews([]*RenderView{NewRenderView(projection, view, nil, eye)})
}

// DrawViews draws the scene once for each view. It returns ErrNoRenderer if the scene
// has no renderer.
func (scene *Scene) DrawViews(views []*RenderView) error {

	if scene.renderer == nil {
		return ErrNoRenderer
	}

	scene.renderer.DrawViews(views, scene.Root)

	if scene.Callbacks.OnDrawFrame != nil {
		scene.Callbacks.OnDrawFrame(scene, views)
	}

	return nil

}

// UpdatePointers hit tests the scene with one ray per pointer and updates which nodes
// are hovered, calling OnHoverStart and OnHoverEnd as nodes gain and lose their last
// pointer. It returns the hit of each ray, nil for rays that hit nothing.
func (scene *Scene) UpdatePointers(rayMatrices []mgl32.Mat4) []*HitResult {

	scene.pointerFrameID++
	frameID := scene.pointerFrameID

	results := make([]*HitResult, len(rayMatrices))
	var hovered []*Node

	for i, ray := range rayMatrices {

		hit := scene.Root.HitTest(ray)
		results[i] = hit
		if hit == nil {
			continue
		}

		node := hit.Node
		if node.hoverFrameID == frameID {
			continue
		}
		node.hoverFrameID = frameID
		hovered = append(hovered, node)

		if !node.hovered {
			node.hovered = true
			if node.Callbacks.OnHoverStart != nil {
				node.Callbacks.OnHoverStart(node)
			}
		}

	}

	for _, node := range scene.hovered {
		if node.hoverFrameID != frameID {
			node.hovered = false
			if node.Callbacks.OnHoverEnd != nil {
				node.Callbacks.OnHoverEnd(node)
			}
		}
	}

	scene.hovered = hovered

	return results

}

// HandleSelect hit tests the scene with rayMatrix and calls the select handler of the
// node that was hit. It returns the hit, or nil.
func (scene *Scene) HandleSelect(rayMatrix mgl32.Mat4) *HitResult {
	hit := scene.Root.HitTest(rayMatrix)
	if hit != nil {
		hit.Node.HandleSelect(hit.Intersection)
	}
	return hit
}

// HoveredNodes returns the nodes hovered by a pointer as of the last UpdatePointers call.
func (scene *Scene) HoveredNodes() []*Node {
	return append([]*Node(nil), scene.hovered...)
}
