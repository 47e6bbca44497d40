package tetraxr

import (
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Node is an element of the scene graph. A Node has a local transform, expressed either
// as an explicit matrix or as translation, rotation and scale (whichever was written
// last), and a lazily computed world matrix. Nodes draw by instancing RenderPrimitives.
type Node struct {
	name     string
	parent   *Node
	children []*Node

	visible    bool
	selectable bool
	data       interface{}

	matrix      mgl32.Mat4
	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3
	trsValid    bool // The TRS fields describe the local transform
	dirtyTRS    bool // The local matrix needs to be rebuilt from the TRS fields

	worldMatrix      mgl32.Mat4
	dirtyWorldMatrix bool

	renderer         *Renderer
	renderPrimitives []*RenderPrimitive
	activeFrameID    int
	hoverFrameID     int
	hovered          bool

	selectHandler func(node *Node, point mgl32.Vec3)
	tweens        []*Tween
	pendingClone  func() bool // Finishes a clone with no dispatcher; true once done

	Callbacks NodeCallbacks
}

// NewNode returns a new, visible Node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		name:             name,
		visible:          true,
		matrix:           mgl32.Ident4(),
		rotation:         mgl32.QuatIdent(),
		scale:            mgl32.Vec3{1, 1, 1},
		trsValid:         true,
		worldMatrix:      mgl32.Ident4(),
		dirtyWorldMatrix: true,
	}
}

// Name returns the node's name.
func (node *Node) Name() string {
	return node.name
}

// SetName sets the node's name.
func (node *Node) SetName(name string) {
	node.name = name
}

// SetData sets user-customizeable data that could be usefully stored on this node.
func (node *Node) SetData(data interface{}) {
	node.data = data
}

// Data returns a pointer to user-customizeable data that could be usefully stored on this node.
func (node *Node) Data() interface{} {
	return node.data
}

// Visible returns whether the node (and so its subtree) is drawn.
func (node *Node) Visible() bool {
	return node.visible
}

// SetVisible sets whether the node and its subtree are drawn and hit tested.
func (node *Node) SetVisible(visible bool) {
	node.visible = visible
}

// Selectable returns whether the node takes part in hit testing. A selectable node
// claims the hits of its whole subtree.
func (node *Node) Selectable() bool {
	return node.selectable
}

// SetSelectable sets whether the node takes part in hit testing.
func (node *Node) SetSelectable(selectable bool) {
	node.selectable = selectable
}

// Renderer returns the renderer the node's tree is attached to, if any.
func (node *Node) Renderer() *Renderer {
	return node.renderer
}

// setRenderer attaches the node and its subtree to renderer. Switching renderers drops
// the node's primitives, which belong to the old renderer.
func (node *Node) setRenderer(renderer *Renderer) {

	if node.renderer == renderer {
		return
	}

	if node.renderer != nil {
		node.ClearRenderPrimitives()
	}

	node.renderer = renderer

	if renderer != nil {

		if node.Callbacks.OnRendererChanged != nil {
			node.Callbacks.OnRendererChanged(node, renderer)
		}

		for _, child := range node.children {
			child.setRenderer(renderer)
		}

	}

}

// Parent returns the node's parent, or nil.
func (node *Node) Parent() *Node {
	return node.parent
}

// Children returns a copy of the node's children.
func (node *Node) Children() []*Node {
	return append(make([]*Node, 0, len(node.children)), node.children...)
}

// ChildrenRecursive returns the node's children, grandchildren and so on.
func (node *Node) ChildrenRecursive() []*Node {
	out := node.Children()
	for _, child := range node.children {
		out = append(out, child.ChildrenRecursive()...)
	}
	return out
}

// AddNode makes child a child of node, removing it from its previous parent. It does
// nothing if child is already a child of node.
func (node *Node) AddNode(child *Node) {

	if child == nil || child.parent == node {
		return
	}

	oldParent := child.parent
	if oldParent != nil {
		oldParent.detach(child)
	}

	node.children = append(node.children, child)
	child.parent = node
	child.SetMatrixDirty()

	if node.renderer != nil {
		child.setRenderer(node.renderer)
	}

	if child.Callbacks.OnReparent != nil {
		child.Callbacks.OnReparent(child, oldParent, node)
	}

}

// RemoveNode detaches child from node. It does nothing if child isn't a child of node.
func (node *Node) RemoveNode(child *Node) {
	if node.detach(child) && child.Callbacks.OnReparent != nil {
		child.Callbacks.OnReparent(child, node, nil)
	}
}

func (node *Node) detach(child *Node) bool {
	for i, c := range node.children {
		if c == child {
			node.children[i] = nil
			node.children = append(node.children[:i], node.children[i+1:]...)
			child.parent = nil
			child.SetMatrixDirty()
			return true
		}
	}
	return false
}

// ClearNodes detaches every child of node.
func (node *Node) ClearNodes() {
	for len(node.children) > 0 {
		node.RemoveNode(node.children[len(node.children)-1])
	}
}

// Unparent detaches the node from its parent.
func (node *Node) Unparent() {
	if node.parent != nil {
		node.parent.RemoveNode(node)
	}
}

// ReindexChild moves the child in the calling Node's children slice to the specified newPosition.
// The function returns the old index where the child Node was, or -1 if it wasn't a child of the calling Node.
// The newPosition is clamped to the size of the node's children slice.
func (node *Node) ReindexChild(child *Node, newPosition int) int {

	if oldIndex := child.Index(); oldIndex >= 0 && child.parent == node {

		if newPosition < 0 {
			newPosition = 0
		} else if newPosition > len(node.children)-1 {
			newPosition = len(node.children) - 1
		}

		node.children = append(node.children[:oldIndex], node.children[oldIndex+1:]...)

		node.children = append(node.children, nil)
		copy(node.children[newPosition+1:], node.children[newPosition:])
		node.children[newPosition] = child

		return oldIndex
	}

	return -1

}

// Index returns the index of the Node in its parent's children list.
// If the node doesn't have a parent, its index will be -1.
func (node *Node) Index() int {
	if node.parent != nil {
		for i, c := range node.parent.children {
			if c == node {
				return i
			}
		}
	}
	return -1
}

// Root returns the topmost ancestor of the node (the node itself if it has no parent).
func (node *Node) Root() *Node {
	if node.parent == nil {
		return node
	}
	return node.parent.Root()
}

// Matrix returns the node's local transform, rebuilding it from translation, rotation
// and scale if those were written since the last call.
func (node *Node) Matrix() mgl32.Mat4 {

	if node.dirtyTRS {
		node.dirtyTRS = false
		node.matrix = mgl32.Translate3D(node.translation[0], node.translation[1], node.translation[2]).
			Mul4(node.rotation.Normalize().Mat4()).
			Mul4(mgl32.Scale3D(node.scale[0], node.scale[1], node.scale[2]))
	}

	return node.matrix

}

// SetMatrix sets the node's local transform directly. Translation, rotation and scale
// are recovered from the matrix the next time they're read.
func (node *Node) SetMatrix(matrix mgl32.Mat4) {
	node.matrix = matrix
	node.dirtyTRS = false
	node.trsValid = false
	node.SetMatrixDirty()
}

// decompose fills the TRS fields from the local matrix, if they don't already describe it.
func (node *Node) decompose() {

	if node.trsValid {
		return
	}

	m := node.matrix
	node.translation = m.Col(3).Vec3()

	sx := m.Col(0).Vec3().Len()
	sy := m.Col(1).Vec3().Len()
	sz := m.Col(2).Vec3().Len()
	if m.Det() < 0 {
		sx = -sx
	}
	node.scale = mgl32.Vec3{sx, sy, sz}

	rot := mgl32.Ident3()
	if sx != 0 && sy != 0 && sz != 0 {
		rot = mgl32.Mat3FromCols(
			m.Col(0).Vec3().Mul(1/sx),
			m.Col(1).Vec3().Mul(1/sy),
			m.Col(2).Vec3().Mul(1/sz),
		)
	}
	node.rotation = mgl32.Mat4ToQuat(rot.Mat4()).Normalize()

	node.trsValid = true

}

func (node *Node) trsChanged() {
	node.dirtyTRS = true
	node.SetMatrixDirty()
}

// Translation returns the node's local translation.
func (node *Node) Translation() mgl32.Vec3 {
	node.decompose()
	return node.translation
}

// SetTranslation sets the node's local translation.
func (node *Node) SetTranslation(translation mgl32.Vec3) {
	node.decompose()
	node.translation = translation
	node.trsChanged()
}

// Rotation returns the node's local rotation.
func (node *Node) Rotation() mgl32.Quat {
	node.decompose()
	return node.rotation
}

// SetRotation sets the node's local rotation.
func (node *Node) SetRotation(rotation mgl32.Quat) {
	node.decompose()
	node.rotation = rotation
	node.trsChanged()
}

// Scale returns the node's local scale.
func (node *Node) Scale() mgl32.Vec3 {
	node.decompose()
	return node.scale
}

// SetScale sets the node's local scale.
func (node *Node) SetScale(scale mgl32.Vec3) {
	node.decompose()
	node.scale = scale
	node.trsChanged()
}

// SetLocalPosition sets the object's local position (position relative to its parent).
func (node *Node) SetLocalPosition(x, y, z float32) {
	node.SetTranslation(mgl32.Vec3{x, y, z})
}

// Move moves a Node in local space by the x, y, and z values provided.
func (node *Node) Move(x, y, z float32) {
	if x == 0 && y == 0 && z == 0 {
		return
	}
	node.SetTranslation(node.Translation().Add(mgl32.Vec3{x, y, z}))
}

// Rotate rotates a Node on its local orientation on a vector composed of the given x, y, and z values, by the angle provided in radians.
func (node *Node) Rotate(x, y, z, angle float32) {
	if x == 0 && y == 0 && z == 0 {
		return
	}
	axis := mgl32.Vec3{x, y, z}.Normalize()
	node.SetRotation(node.Rotation().Mul(mgl32.QuatRotate(angle, axis)).Normalize())
}

// Grow scales the object additively using the x, y, and z arguments provided (i.e. calling
// Node.Grow(1, 0, 0) will scale it +1 on the X-axis).
func (node *Node) Grow(x, y, z float32) {
	if x == 0 && y == 0 && z == 0 {
		return
	}
	node.SetScale(node.Scale().Add(mgl32.Vec3{x, y, z}))
}

// SetMatrixDirty marks the node's world matrix, and those of all of its descendants,
// as needing to be recomputed.
func (node *Node) SetMatrixDirty() {
	if !node.dirtyWorldMatrix {
		node.dirtyWorldMatrix = true
		for _, child := range node.children {
			child.SetMatrixDirty()
		}
	}
}

// WorldMatrix returns the node's transform in world space: its parent's world matrix
// times its local matrix. The result is cached until the node or an ancestor changes.
func (node *Node) WorldMatrix() mgl32.Mat4 {

	if node.dirtyWorldMatrix || node.dirtyTRS {
		if node.parent != nil {
			node.worldMatrix = node.parent.WorldMatrix().Mul4(node.Matrix())
		} else {
			node.worldMatrix = node.Matrix()
		}
		node.dirtyWorldMatrix = false
	}

	return node.worldMatrix

}

// WorldPosition returns the node's position in world space.
func (node *Node) WorldPosition() mgl32.Vec3 {
	return node.WorldMatrix().Col(3).Vec3()
}

// AddRenderPrimitive makes the node an instance of rp.
func (node *Node) AddRenderPrimitive(rp *RenderPrimitive) {
	node.renderPrimitives = append(node.renderPrimitives, rp)
	rp.addInstance(node)
}

// RemoveRenderPrimitive stops the node instancing rp.
func (node *Node) RemoveRenderPrimitive(rp *RenderPrimitive) {
	for i, p := range node.renderPrimitives {
		if p == rp {
			node.renderPrimitives = append(node.renderPrimitives[:i], node.renderPrimitives[i+1:]...)
			rp.removeInstance(node)
			return
		}
	}
}

// ClearRenderPrimitives stops the node instancing any primitive.
func (node *Node) ClearRenderPrimitives() {
	for _, rp := range node.renderPrimitives {
		rp.removeInstance(node)
	}
	node.renderPrimitives = nil
}

// RenderPrimitives returns the primitives the node instances.
func (node *Node) RenderPrimitives() []*RenderPrimitive {
	return node.renderPrimitives
}

// MarkActive stamps every visible node in the subtree that carries primitives, and
// those primitives, with frameID. Invisible subtrees are skipped entirely.
func (node *Node) MarkActive(frameID int) {

	if !node.visible {
		return
	}

	if len(node.renderPrimitives) > 0 {
		node.activeFrameID = frameID
		for _, rp := range node.renderPrimitives {
			rp.markActive(frameID)
		}
	}

	for _, child := range node.children {
		child.MarkActive(frameID)
	}

}

// HitResult is the result of a successful hit test.
type HitResult struct {
	Node         *Node      // Node is the selectable node that was hit.
	Intersection mgl32.Vec3 // Intersection is the hit point in world space.
	Distance     float32    // Distance is how far the hit point is from the ray's origin.
}

// HitTest casts a ray, placed in world space by rayMatrix, at the subtree and returns
// the closest hit on a selectable, visible node, or nil. A selectable node claims the
// geometry of its whole subtree: a hit on any visible descendant is reported as a hit
// on the selectable node.
func (node *Node) HitTest(rayMatrix mgl32.Mat4) *HitResult {
	origin := mgl32.TransformCoordinate(mgl32.Vec3{}, rayMatrix)
	return node.hitTest(rayMatrix, origin)
}

func (node *Node) hitTest(rayMatrix mgl32.Mat4, origin mgl32.Vec3) *HitResult {

	if !node.visible {
		return nil
	}

	if node.selectable {
		return node.hitTestSubtree(node, rayMatrix, origin)
	}

	var result *HitResult
	for _, child := range node.children {
		result = closerHit(result, child.hitTest(rayMatrix, origin))
	}
	return result

}

// hitTestSubtree tests the bounds of the primitives of node and its visible
// descendants, each in its own local space, crediting every hit to owner.
func (node *Node) hitTestSubtree(owner *Node, rayMatrix mgl32.Mat4, origin mgl32.Vec3) *HitResult {

	if !node.visible {
		return nil
	}

	var result *HitResult
	var localRay *Ray
	world := node.WorldMatrix()

	for _, rp := range node.renderPrimitives {

		min, max, ok := rp.Bounds()
		if !ok {
			continue
		}

		if localRay == nil {
			localRay = NewRay(world.Inv().Mul4(rayMatrix))
		}

		hit, ok := localRay.IntersectsAABB(min, max)
		if !ok {
			continue
		}

		point := mgl32.TransformCoordinate(hit, world)
		result = closerHit(result, &HitResult{Node: owner, Intersection: point, Distance: point.Sub(origin).Len()})

	}

	for _, child := range node.children {
		result = closerHit(result, child.hitTestSubtree(owner, rayMatrix, origin))
	}

	return result

}

func closerHit(a, b *HitResult) *HitResult {
	if a == nil || (b != nil && b.Distance < a.Distance) {
		return b
	}
	return a
}

// OnSelect sets the function called when the node is selected through HandleSelect.
func (node *Node) OnSelect(handler func(node *Node, point mgl32.Vec3)) {
	node.selectHandler = handler
}

// HandleSelect calls the node's select handler, if it has one, with the selected point.
func (node *Node) HandleSelect(point mgl32.Vec3) {
	if node.selectHandler != nil {
		node.selectHandler(node, point)
	}
}

// Hovered returns whether a pointer ray was over the node on the last pointer update.
func (node *Node) Hovered() bool {
	return node.hovered
}

// WaitForComplete returns a Future that resolves to the node once every primitive in
// its subtree is complete, or fails with the first primitive that fails.
func (node *Node) WaitForComplete() *Future[*Node] {

	waits := []Awaiter{}

	for _, child := range node.children {
		waits = append(waits, child.WaitForComplete())
	}

	for _, rp := range node.renderPrimitives {
		waits = append(waits, rp.WaitForComplete())
	}

	return Join(node, waits...)

}

// dispatcher returns the render thread dispatcher of the node's renderer, or failing
// that of the first renderer found among the subtree's primitives.
func (node *Node) dispatcher() *Dispatcher {

	if node.renderer != nil {
		return node.renderer.dispatcher
	}

	for _, rp := range node.renderPrimitives {
		if rp.renderer != nil {
			return rp.renderer.dispatcher
		}
	}

	for _, child := range node.children {
		if d := child.dispatcher(); d != nil {
			return d
		}
	}

	return nil

}

// Clone returns a copy of the node. Its name, flags, transform and handlers are copied
// straight away; its primitives are attached and its children cloned once the node's
// subtree is complete (immediately, if it already is). A deferred clone is finished on
// the render thread when the renderer's dispatcher is drained, or by the clone's own
// Update if no renderer can be found. If part of the subtree fails to load, the clone
// is left without primitives or children.
func (node *Node) Clone() *Node {

	clone := NewNode(node.name)
	clone.visible = node.visible
	clone.selectable = node.selectable
	clone.data = node.data
	clone.renderer = node.renderer
	clone.selectHandler = node.selectHandler
	clone.Callbacks = node.Callbacks

	clone.matrix = node.matrix
	clone.translation = node.translation
	clone.rotation = node.rotation
	clone.scale = node.scale
	clone.trsValid = node.trsValid
	clone.dirtyTRS = node.dirtyTRS

	finish := func(_ *Node, err error) {
		if err != nil {
			return
		}
		for _, rp := range node.renderPrimitives {
			clone.AddRenderPrimitive(rp)
		}
		for _, child := range node.children {
			clone.AddNode(child.Clone())
		}
	}

	complete := node.WaitForComplete()
	if _, err, ok := complete.Result(); ok {
		finish(node, err)
	} else if dispatcher := node.dispatcher(); dispatcher != nil {
		complete.Then(dispatcher, finish)
	} else {
		clone.pendingClone = func() bool {
			_, err, ok := complete.Result()
			if ok {
				finish(node, err)
			}
			return ok
		}
	}

	if node.Callbacks.OnClone != nil {
		node.Callbacks.OnClone(clone)
	}

	return clone

}

// Update runs the per-frame update of the subtree: tweens are advanced and OnUpdate
// callbacks are called, parents before children.
func (node *Node) Update(timestamp, dt float64) {

	if node.pendingClone != nil && node.pendingClone() {
		node.pendingClone = nil
	}

	node.updateTweens(float32(dt))

	if node.Callbacks.OnUpdate != nil {
		node.Callbacks.OnUpdate(node, timestamp, dt)
	}

	for _, child := range node.Children() {
		child.Update(timestamp, dt)
	}

}

// HierarchyAsString returns a string displaying the hierarchy of this Node, and all recursive children.
// This is a useful function to debug the layout of a node tree, for example.
// Nodes carrying primitives are marked MESH; the world position of each node is shown, truncated to two decimals.
func (node *Node) HierarchyAsString() string {

	var printNode func(node *Node, level int) string

	printNode = func(node *Node, level int) string {

		prefix := "NODE"
		if level == 0 {
			prefix = "ROOT"
		} else if len(node.renderPrimitives) > 0 {
			prefix = "MESH"
		}

		str := ""

		if node.Parent() != nil {
			for i := 0; i < level; i++ {
				str += "    |"
			}
			str += "\n"
		}

		for i := 0; i < level; i++ {
			str += "    |"
		}

		wp := node.WorldPosition()
		floatTruncation := 2
		wpStr := "[" + strconv.FormatFloat(float64(wp[0]), 'f', floatTruncation, 32) + ", " + strconv.FormatFloat(float64(wp[1]), 'f', floatTruncation, 32) + ", " + strconv.FormatFloat(float64(wp[2]), 'f', floatTruncation, 32) + "]"

		if level > 0 {
			str += "-"
		}
		str += " [" + prefix + "] " + node.Name() + " : " + wpStr + "\n"

		for _, child := range node.children {
			str += printNode(child, level+1)
		}

		return str
	}

	return printNode(node, 0)
}

// Get searches a node's hierarchy using a string to find a specified node. The path is in the format of names of nodes, separated by forward
// slashes ('/'), and is relative to the node you use to call Get. As an example of Get, if you had a cup parented to a desk, which was
// parented to a room, that was finally parented to the root of the scene, it would be found at "Room/Desk/Cup". Note also that you can use "../" to
// "go up one" in the hierarchy (so cup.Get("../") would return the Desk node).
func (node *Node) Get(path string) *Node {

	var search func(node *Node) *Node

	split := []string{}

	for _, s := range strings.Split(path, `/`) {
		if len(strings.TrimSpace(s)) > 0 {
			split = append(split, s)
		}
	}

	search = func(node *Node) *Node {

		if node == nil {
			return nil
		} else if len(split) == 0 {
			return node
		}

		if split[0] == ".." {
			split = split[1:]
			return search(node.Parent())
		}

		for _, child := range node.children {

			if child.Name() == split[0] {

				if len(split) <= 1 {
					return child
				}
				split = split[1:]
				return search(child)

			}

		}

		return nil

	}

	return search(node)

}

// Path returns a string indicating the hierarchical path to get this Node from the root. The path returned will be absolute, such that
// passing it to Get() called on the root node will return this node. The path returned will not contain the root node's name.
func (node *Node) Path() string {

	root := node.Root()
	if root == node {
		return ""
	}

	parent := node.Parent()
	path := node.Name()

	for parent != nil && parent != root {
		path = parent.Name() + "/" + path
		parent = parent.Parent()
	}

	return path

}
