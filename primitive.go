package tetraxr

import (
	"context"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/tetraxr/gl"
	"go.uber.org/zap"
)

// RenderBuffer is a GPU buffer. A buffer created from pending data is incomplete until
// the data arrives and is uploaded on the render thread.
type RenderBuffer struct {
	target gl.Enum
	usage  gl.Enum
	buffer gl.Buffer
	length int

	pendingUpdates []bufferUpdate
	completion     *Future[*RenderBuffer]
}

type bufferUpdate struct {
	data   []byte
	offset int
}

// Target returns the buffer's binding target (ARRAY_BUFFER or ELEMENT_ARRAY_BUFFER).
func (b *RenderBuffer) Target() gl.Enum { return b.target }

// Len returns the size of the buffer's contents in bytes; 0 while incomplete.
func (b *RenderBuffer) Len() int { return b.length }

// Complete returns true once the buffer's data has been uploaded.
func (b *RenderBuffer) Complete() bool {
	_, err, ok := b.completion.Result()
	return ok && err == nil
}

// WaitForComplete returns a Future that resolves once the buffer's data is uploaded.
func (b *RenderBuffer) WaitForComplete() *Future[*RenderBuffer] { return b.completion }

// PrimitiveAttribute describes one vertex attribute of a Primitive: where its data lives
// in a buffer and how to read it.
type PrimitiveAttribute struct {
	Name           string // Name is the attribute semantic, e.g. "POSITION" or "TEXCOORD_0".
	Buffer         *RenderBuffer
	ComponentCount int
	ComponentType  gl.Enum
	Stride         int
	ByteOffset     int
	Normalized     bool
}

// NewPrimitiveAttribute returns a float attribute with the given number of components.
func NewPrimitiveAttribute(name string, buffer *RenderBuffer, componentCount int, stride, byteOffset int) *PrimitiveAttribute {
	return &PrimitiveAttribute{
		Name:           name,
		Buffer:         buffer,
		ComponentCount: componentCount,
		ComponentType:  gl.FLOAT,
		Stride:         stride,
		ByteOffset:     byteOffset,
	}
}

// Primitive describes drawable geometry: its vertex attributes, optional indices, draw
// mode and bounds. A Primitive is turned into a RenderPrimitive by the Renderer.
type Primitive struct {
	Attributes   []*PrimitiveAttribute
	ElementCount int
	Mode         gl.Enum

	IndexBuffer     *RenderBuffer
	IndexByteOffset int
	IndexType       gl.Enum

	Min, Max  mgl32.Vec3
	HasBounds bool
}

// NewPrimitive returns a Primitive drawing elementCount vertices (or indices) with mode.
func NewPrimitive(attributes []*PrimitiveAttribute, elementCount int, mode gl.Enum) *Primitive {
	return &Primitive{
		Attributes:   attributes,
		ElementCount: elementCount,
		Mode:         mode,
	}
}

// SetIndexBuffer makes the primitive indexed.
func (p *Primitive) SetIndexBuffer(buffer *RenderBuffer, byteOffset int, indexType gl.Enum) {
	p.IndexBuffer = buffer
	p.IndexByteOffset = byteOffset
	p.IndexType = indexType
}

// SetBounds sets the primitive's local space bounding box, used for hit testing.
func (p *Primitive) SetBounds(min, max mgl32.Vec3) {
	p.Min = min
	p.Max = max
	p.HasBounds = true
}

type renderAttribute struct {
	location       int
	componentCount int
	componentType  gl.Enum
	stride         int
	byteOffset     int
	normalized     bool
}

type renderAttributeBuffer struct {
	buffer     *RenderBuffer
	attributes []renderAttribute
}

// RenderPrimitive is a Primitive bound to a RenderMaterial and ready to be drawn. Nodes
// instance it through Node.AddRenderPrimitive.
type RenderPrimitive struct {
	renderer *Renderer

	activeFrameID int
	instances     []*Node
	material      *RenderMaterial

	mode         gl.Enum
	elementCount int

	attributeBuffers []*renderAttributeBuffer
	attributeMask    uint32

	indexBuffer     *RenderBuffer
	indexByteOffset int
	indexType       gl.Enum

	min, max  mgl32.Vec3
	hasBounds bool

	vao gl.VertexArray

	complete   bool
	generation int
	completion *Future[*RenderPrimitive]
}

func newRenderPrimitive(renderer *Renderer, primitive *Primitive) *RenderPrimitive {
	rp := &RenderPrimitive{renderer: renderer}
	rp.SetPrimitive(primitive)
	return rp
}

// SetPrimitive replaces the geometry drawn by the RenderPrimitive. The primitive becomes
// incomplete until all of the new geometry's buffers are uploaded.
func (rp *RenderPrimitive) SetPrimitive(primitive *Primitive) {

	if primitive == nil {
		panic("Error: RenderPrimitive.SetPrimitive() called with a nil primitive")
	}

	rp.mode = primitive.Mode
	rp.elementCount = primitive.ElementCount
	rp.attributeBuffers = rp.attributeBuffers[:0]
	rp.attributeMask = 0

	for _, attribute := range primitive.Attributes {

		info, ok := attribByName(attribute.Name)
		if !ok {
			rp.renderer.logger.Warn("Ignoring unknown vertex attribute", zap.String("attribute", attribute.Name))
			continue
		}

		rp.attributeMask |= info.mask

		ra := renderAttribute{
			location:       info.location,
			componentCount: attribute.ComponentCount,
			componentType:  attribute.ComponentType,
			stride:         attribute.Stride,
			byteOffset:     attribute.ByteOffset,
			normalized:     attribute.Normalized,
		}

		found := false
		for _, ab := range rp.attributeBuffers {
			if ab.buffer == attribute.Buffer {
				ab.attributes = append(ab.attributes, ra)
				found = true
				break
			}
		}

		if !found {
			rp.attributeBuffers = append(rp.attributeBuffers, &renderAttributeBuffer{
				buffer:     attribute.Buffer,
				attributes: []renderAttribute{ra},
			})
		}

	}

	rp.indexBuffer = nil
	rp.indexByteOffset = 0
	rp.indexType = 0

	if primitive.IndexBuffer != nil {
		rp.indexBuffer = primitive.IndexBuffer
		rp.indexByteOffset = primitive.IndexByteOffset
		rp.indexType = primitive.IndexType
	}

	rp.hasBounds = primitive.HasBounds
	rp.min = primitive.Min
	rp.max = primitive.Max

	if rp.vao != nil {
		if vaoCtx := rp.renderer.vaoCtx; vaoCtx != nil {
			vaoCtx.DeleteVertexArray(rp.vao)
		}
		rp.vao = nil
	}

	rp.checkComplete()

}

// SetRenderMaterial replaces the material the primitive is drawn with. The primitive
// stays in the render order bucket it was created in.
func (rp *RenderPrimitive) SetRenderMaterial(material *RenderMaterial) {
	rp.material = material
	rp.checkComplete()
}

// RenderMaterial returns the primitive's material.
func (rp *RenderPrimitive) RenderMaterial() *RenderMaterial { return rp.material }

// AttributeMask returns the mask of vertex attribute semantics the primitive provides.
func (rp *RenderPrimitive) AttributeMask() uint32 { return rp.attributeMask }

// HasAttribute returns true if the primitive provides every attribute in mask.
func (rp *RenderPrimitive) HasAttribute(mask uint32) bool { return rp.attributeMask&mask == mask }

// Bounds returns the primitive's local space bounding box. ok is false if the primitive
// has no bounds.
func (rp *RenderPrimitive) Bounds() (min, max mgl32.Vec3, ok bool) {
	return rp.min, rp.max, rp.hasBounds
}

// Instances returns the nodes the primitive is attached to.
func (rp *RenderPrimitive) Instances() []*Node { return rp.instances }

// Complete returns true once every buffer is uploaded and a material is set.
func (rp *RenderPrimitive) Complete() bool { return rp.complete }

// WaitForComplete returns a Future that resolves once the primitive is complete, or fails
// if one of its buffers failed to load.
func (rp *RenderPrimitive) WaitForComplete() *Future[*RenderPrimitive] { return rp.completion }

func (rp *RenderPrimitive) buffers() []Awaiter {
	waits := []Awaiter{}
	for _, ab := range rp.attributeBuffers {
		waits = append(waits, ab.buffer.completion)
	}
	if rp.indexBuffer != nil {
		waits = append(waits, rp.indexBuffer.completion)
	}
	return waits
}

func (rp *RenderPrimitive) checkComplete() {

	rp.generation++
	generation := rp.generation
	rp.complete = false

	if rp.completion == nil || rp.completion.Ready() {
		rp.completion = NewFuture[*RenderPrimitive]()
	}

	waits := rp.buffers()

	if AllReady(waits...) {
		rp.finishComplete(generation, All(context.Background(), waits...))
		return
	}

	Join(rp, waits...).Then(rp.renderer.dispatcher, func(_ *RenderPrimitive, err error) {
		rp.finishComplete(generation, err)
	})

}

func (rp *RenderPrimitive) finishComplete(generation int, err error) {

	if generation != rp.generation {
		return
	}

	if err != nil {
		rp.completion.Reject(err)
		return
	}

	if rp.material != nil {
		rp.complete = true
		rp.completion.Resolve(rp)
	}

}

func (rp *RenderPrimitive) markActive(frameID int) {
	if rp.complete && rp.material.markActive(frameID) {
		rp.activeFrameID = frameID
	}
}

func (rp *RenderPrimitive) addInstance(node *Node) {
	rp.instances = append(rp.instances, node)
}

func (rp *RenderPrimitive) removeInstance(node *Node) {
	for i, n := range rp.instances {
		if n == node {
			rp.instances = append(rp.instances[:i], rp.instances[i+1:]...)
			return
		}
	}
}
