package tetraxr

// NodeCallbacks represents a set of callbacks to be called when a Node is reparented, cloned, updated, etc.
type NodeCallbacks struct {
	OnReparent        func(node, oldParent, newParent *Node)       // A callback to be called whenever a Node is reparented.
	OnClone           func(newNode *Node)                          // A callback to be called whenever a Node is cloned.
	OnRendererChanged func(node *Node, renderer *Renderer)         // A callback to be called when the Node's tree is attached to a Renderer; create render primitives here.
	OnUpdate          func(node *Node, timestamp, dt float64)      // A callback to be called once per frame by Scene.StartFrame.
	OnHoverStart      func(node *Node)                             // A callback to be called when a pointer ray starts hovering over the Node.
	OnHoverEnd        func(node *Node)                             // A callback to be called when no pointer ray hovers over the Node anymore.
}

// SceneCallbacks represents a set of callbacks to be called at points of a Scene's frame.
type SceneCallbacks struct {
	OnStartFrame func(scene *Scene, timestamp, dt float64) // Called at the start of every frame, before nodes are updated.
	OnDrawFrame  func(scene *Scene, views []*RenderView)   // Called after the scene's views are drawn.
}
