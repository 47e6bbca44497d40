package tetraxr

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/tetraxr/gl"
	"go.uber.org/zap"
)

// RendererOptions configures a Renderer.
type RendererOptions struct {
	// Logger receives shader diagnostics and asset warnings. Defaults to a no-op logger.
	Logger *zap.Logger
	// Multiview requests single-pass stereo programs. It isn't supported; NewRenderer
	// returns ErrMultiviewUnsupported when it's set.
	Multiview bool
	// DisableVertexArrays makes the renderer rebind vertex attributes for every primitive
	// even if the context supports vertex array objects.
	DisableVertexArrays bool
	// LightDirection and LightColor are the global directional light handed to every
	// program through the LIGHT_DIRECTION and LIGHT_COLOR uniforms.
	LightDirection mgl32.Vec3
	LightColor     mgl32.Vec3
}

// DefaultRendererOptions returns the default options for a Renderer.
func DefaultRendererOptions() RendererOptions {
	return RendererOptions{
		Logger:         zap.NewNop(),
		LightDirection: mgl32.Vec3{-0.1, -1.0, -0.2},
		LightColor:     mgl32.Vec3{3.0, 3.0, 3.0},
	}
}

// Stats counts the work done by the last DrawViews call.
type Stats struct {
	FrameID         int
	DrawCalls       int
	ProgramSwitches int
	MaterialBinds   int
	StateChanges    int
	PrimitivesDrawn int
}

// Renderer owns the GPU resource caches and draws node trees.
type Renderer struct {
	ctx     gl.Context
	vaoCtx  gl.VertexArrayContext
	logger  *zap.Logger
	options RendererOptions

	frameID    int
	dispatcher *Dispatcher

	programCache map[string]*Program
	textureCache map[string]*RenderTexture
	buffers      []*RenderBuffer

	renderPrimitives [renderOrderCount][]*RenderPrimitive
	cameraPositions  []mgl32.Vec3

	defaultFragPrecision string
	depthMaskNeedsReset  bool
	colorMaskNeedsReset  bool

	lightDirection mgl32.Vec3
	lightColor     mgl32.Vec3

	stats Stats
}

// NewRenderer returns a Renderer drawing through ctx. Vertex array objects are used if
// ctx implements gl.VertexArrayContext.
func NewRenderer(ctx gl.Context, options RendererOptions) (*Renderer, error) {

	if options.Multiview {
		return nil, ErrMultiviewUnsupported
	}

	if options.Logger == nil {
		options.Logger = zap.NewNop()
	}

	r := &Renderer{
		ctx:                  ctx,
		logger:               options.Logger,
		options:              options,
		dispatcher:           NewDispatcher(),
		programCache:         map[string]*Program{},
		textureCache:         map[string]*RenderTexture{},
		defaultFragPrecision: "mediump",
		lightDirection:       options.LightDirection.Normalize(),
		lightColor:           options.LightColor,
	}

	if options.LightDirection == (mgl32.Vec3{}) {
		r.lightDirection = DefaultRendererOptions().LightDirection.Normalize()
	}

	if ctx.HighPrecisionFragments() {
		r.defaultFragPrecision = "highp"
	}

	if vaoCtx, ok := ctx.(gl.VertexArrayContext); ok && !options.DisableVertexArrays {
		r.vaoCtx = vaoCtx
	}

	return r, nil

}

// Context returns the GL context the renderer draws through.
func (r *Renderer) Context() gl.Context { return r.ctx }

// Logger returns the renderer's logger.
func (r *Renderer) Logger() *zap.Logger { return r.logger }

// Dispatcher returns the queue of callbacks run on the render thread at the start of
// every DrawViews call.
func (r *Renderer) Dispatcher() *Dispatcher { return r.dispatcher }

// FrameID returns the id of the last drawn frame.
func (r *Renderer) FrameID() int { return r.frameID }

// Stats returns counters for the last drawn frame.
func (r *Renderer) Stats() Stats { return r.stats }

// Poll runs pending render thread callbacks (finished texture decodes, buffer uploads
// and so on) without drawing. It returns how many callbacks were run.
func (r *Renderer) Poll() int { return r.dispatcher.Drain() }

// SetLightDirection sets the global light direction. It's normalized.
func (r *Renderer) SetLightDirection(dir mgl32.Vec3) { r.lightDirection = dir.Normalize() }

// LightDirection returns the normalized global light direction.
func (r *Renderer) LightDirection() mgl32.Vec3 { return r.lightDirection }

// SetLightColor sets the global light color.
func (r *Renderer) SetLightColor(color mgl32.Vec3) { r.lightColor = color }

// LightColor returns the global light color.
func (r *Renderer) LightColor() mgl32.Vec3 { return r.lightColor }

// CreateRenderBuffer creates a GPU buffer holding data.
func (r *Renderer) CreateRenderBuffer(target gl.Enum, data []byte, usage gl.Enum) *RenderBuffer {

	b := &RenderBuffer{
		target:     target,
		usage:      usage,
		buffer:     r.ctx.CreateBuffer(),
		completion: NewFuture[*RenderBuffer](),
	}
	r.buffers = append(r.buffers, b)

	r.uploadBuffer(b, data)
	return b

}

// CreateRenderBufferAsync creates a GPU buffer that is filled once data resolves. The
// buffer is returned straight away, incomplete; if data fails, so does the buffer's
// WaitForComplete.
func (r *Renderer) CreateRenderBufferAsync(target gl.Enum, data *Future[[]byte], usage gl.Enum) *RenderBuffer {

	b := &RenderBuffer{
		target:     target,
		usage:      usage,
		buffer:     r.ctx.CreateBuffer(),
		completion: NewFuture[*RenderBuffer](),
	}
	r.buffers = append(r.buffers, b)

	data.Then(r.dispatcher, func(bytes []byte, err error) {
		if err != nil {
			r.logger.Warn("Failed to load buffer data", zap.Error(err))
			b.completion.Reject(err)
			return
		}
		r.uploadBuffer(b, bytes)
	})

	return b

}

func (r *Renderer) uploadBuffer(b *RenderBuffer, data []byte) {

	r.ctx.BindBuffer(b.target, b.buffer)
	r.ctx.BufferData(b.target, data, b.usage)
	b.length = len(data)

	updates := b.pendingUpdates
	b.pendingUpdates = nil
	b.completion.Resolve(b)

	for _, update := range updates {
		r.UpdateRenderBuffer(b, update.data, update.offset)
	}

}

// UpdateRenderBuffer writes data into buffer at offset. Replacing the whole buffer
// reallocates it; anything else is a sub-range update. Updates to a buffer that hasn't
// received its initial data yet are applied right after it does.
func (r *Renderer) UpdateRenderBuffer(buffer *RenderBuffer, data []byte, offset int) {

	if !buffer.completion.Ready() {
		buffer.pendingUpdates = append(buffer.pendingUpdates, bufferUpdate{data: data, offset: offset})
		return
	}

	r.ctx.BindBuffer(buffer.target, buffer.buffer)

	if offset == 0 && len(data) >= buffer.length {
		r.ctx.BufferData(buffer.target, data, buffer.usage)
		buffer.length = len(data)
	} else {
		r.ctx.BufferSubData(buffer.target, offset, data)
	}

}

// CreateRenderPrimitive binds primitive to material, compiling (or reusing) the program
// for the material's name and the defines it picks for this primitive, and registers
// the result for drawing in the material's render order bucket.
func (r *Renderer) CreateRenderPrimitive(primitive *Primitive, material MaterialDescriptor) (*RenderPrimitive, error) {

	rp := newRenderPrimitive(r, primitive)

	program, err := r.materialProgram(material, rp)
	if err != nil {
		return nil, err
	}

	rm := newRenderMaterial(r, material.MaterialBase(), program)
	rp.SetRenderMaterial(rm)

	r.renderPrimitives[rm.renderOrder] = append(r.renderPrimitives[rm.renderOrder], rp)

	return rp, nil

}

// CreateMesh returns a new Node instancing a RenderPrimitive made from primitive and
// material.
func (r *Renderer) CreateMesh(primitive *Primitive, material MaterialDescriptor) (*Node, error) {
	rp, err := r.CreateRenderPrimitive(primitive, material)
	if err != nil {
		return nil, err
	}
	node := NewNode("mesh")
	node.AddRenderPrimitive(rp)
	return node, nil
}

// RenderPrimitives returns the primitives registered in the given bucket, in draw order.
func (r *Renderer) RenderPrimitives(order RenderOrder) []*RenderPrimitive {
	if order < 0 || int(order) >= renderOrderCount {
		return nil
	}
	return r.renderPrimitives[order]
}

// RemoveRenderPrimitive unregisters rp and detaches it from every node instancing it.
func (r *Renderer) RemoveRenderPrimitive(rp *RenderPrimitive) {

	for _, node := range append([]*Node(nil), rp.instances...) {
		node.RemoveRenderPrimitive(rp)
	}

	if rp.material == nil {
		return
	}

	bucket := r.renderPrimitives[rp.material.renderOrder]
	for i, p := range bucket {
		if p == rp {
			r.renderPrimitives[rp.material.renderOrder] = append(bucket[:i], bucket[i+1:]...)
			break
		}
	}

	if rp.vao != nil && r.vaoCtx != nil {
		r.vaoCtx.DeleteVertexArray(rp.vao)
		rp.vao = nil
	}

}

// ProgramCount returns the number of cached programs.
func (r *Renderer) ProgramCount() int { return len(r.programCache) }

// Release deletes every GPU object the renderer created.
func (r *Renderer) Release() {

	for _, bucket := range r.renderPrimitives {
		for _, rp := range bucket {
			if rp.vao != nil && r.vaoCtx != nil {
				r.vaoCtx.DeleteVertexArray(rp.vao)
				rp.vao = nil
			}
		}
	}

	for _, p := range r.programCache {
		p.release()
	}

	for _, t := range r.textureCache {
		r.ctx.DeleteTexture(t.texture)
	}

	for _, b := range r.buffers {
		r.ctx.DeleteBuffer(b.buffer)
	}

	r.renderPrimitives = [renderOrderCount][]*RenderPrimitive{}
	r.programCache = map[string]*Program{}
	r.textureCache = map[string]*RenderTexture{}
	r.buffers = nil

}

const vertexEntry = `
void main() {
  gl_Position = vertex_main(PROJECTION_MATRIX, VIEW_MATRIX, MODEL_MATRIX);
}
`

const fragmentEntry = `
void main() {
  gl_FragColor = fragment_main();
}
`

func (r *Renderer) materialProgram(material MaterialDescriptor, rp *RenderPrimitive) (*Program, error) {

	name := material.MaterialName()
	if name == "" {
		return nil, ErrMaterialNoName
	}

	vertexSource := material.VertexSource()
	if vertexSource == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMaterialNoVertexSource)
	}

	fragmentSource := material.FragmentSource()
	if fragmentSource == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrMaterialNoFragmentSource)
	}

	defines := material.ProgramDefines(rp)
	key := programKey(name, defines)

	if program, ok := r.programCache[key]; ok {
		return program, nil
	}

	fullVertexSource := "uniform mat4 PROJECTION_MATRIX, VIEW_MATRIX, MODEL_MATRIX;\n" + vertexSource + vertexEntry

	fullFragmentSource := fragmentSource + fragmentEntry
	if !gl.HasPrecision(fullFragmentSource) {
		fullFragmentSource = "precision " + r.defaultFragPrecision + " float;\n" + fullFragmentSource
	}

	program := newProgram(r.ctx, r.logger, key, fullVertexSource, fullFragmentSource, defines)
	r.programCache[key] = program

	program.OnNextUse(func(p *Program) {
		for name, unit := range p.samplerUnits {
			p.setUniformInt(name, unit)
		}
	})

	return program, nil

}

// DrawViews draws the tree under root once for each view. Callbacks waiting on the
// render thread are run first. Only visible nodes are drawn, and only primitives that
// are complete.
func (r *Renderer) DrawViews(views []*RenderView, root *Node) {

	r.dispatcher.Drain()

	if root == nil {
		return
	}

	r.frameID++
	r.stats = Stats{FrameID: r.frameID}

	root.MarkActive(r.frameID)

	if len(views) == 1 && views[0].Viewport != nil {
		vp := views[0].Viewport
		r.ctx.Viewport(vp.X, vp.Y, vp.Width, vp.Height)
	}

	r.cameraPositions = r.cameraPositions[:0]
	for _, view := range views {
		inverse := view.ViewMatrix.Inv()
		r.cameraPositions = append(r.cameraPositions, inverse.Col(3).Vec3())
	}

	for _, bucket := range r.renderPrimitives {
		if len(bucket) > 0 {
			r.drawRenderPrimitiveSet(views, bucket)
		}
	}

	if r.vaoCtx != nil {
		r.vaoCtx.BindVertexArray(nil)
	}

	if r.depthMaskNeedsReset {
		r.ctx.DepthMask(true)
		r.depthMaskNeedsReset = false
	}

	if r.colorMaskNeedsReset {
		r.ctx.ColorMask(true, true, true, true)
		r.colorMaskNeedsReset = false
	}

}

func (r *Renderer) setViewUniforms(program *Program, view *RenderView, index int) {
	program.setUniformMatrix("PROJECTION_MATRIX", view.ProjectionMatrix[:])
	program.setUniformMatrix("VIEW_MATRIX", view.ViewMatrix[:])
	program.setUniform3("CAMERA_POSITION", r.cameraPositions[index][:])
	program.setUniformInt("EYE_INDEX", view.EyeIndex())
}

func (r *Renderer) drawRenderPrimitiveSet(views []*RenderView, renderPrimitives []*RenderPrimitive) {

	var program *Program
	var material *RenderMaterial
	var applied glState
	attribMask := uint32(0)
	attribsKnown := false

	for _, rp := range renderPrimitives {

		if rp.activeFrameID != r.frameID {
			continue
		}

		if rp.material.program != program {

			if !rp.material.program.Use() {
				continue
			}

			program = rp.material.program
			r.stats.ProgramSwitches++

			program.setUniform3("LIGHT_DIRECTION", r.lightDirection[:])
			program.setUniform3("LIGHT_COLOR", r.lightColor[:])

			if len(views) == 1 {
				r.setViewUniforms(program, views[0], 0)
			}

		}

		if rp.material != material {
			if material == nil {
				applied = glState{word: ^rp.material.state}
			}
			applied = r.bindMaterialState(rp.material.state, applied)
			rp.material.bind(r.ctx)
			material = rp.material
			r.stats.MaterialBinds++
		}

		if r.vaoCtx != nil {
			if rp.vao != nil {
				r.vaoCtx.BindVertexArray(rp.vao)
			} else {
				rp.vao = r.vaoCtx.CreateVertexArray()
				r.vaoCtx.BindVertexArray(rp.vao)
				r.bindPrimitive(rp, ^rp.attributeMask)
			}
		} else {
			if !attribsKnown {
				attribMask = ^rp.attributeMask
				attribsKnown = true
			}
			r.bindPrimitive(rp, attribMask)
			attribMask = rp.attributeMask
		}

		r.stats.PrimitivesDrawn++

		for i, view := range views {

			if len(views) > 1 {
				if view.Viewport != nil {
					vp := view.Viewport
					r.ctx.Viewport(vp.X, vp.Y, vp.Width, vp.Height)
				}
				r.setViewUniforms(program, view, i)
			}

			for _, instance := range rp.instances {

				if instance.activeFrameID != r.frameID {
					continue
				}

				world := instance.WorldMatrix()
				program.setUniformMatrix("MODEL_MATRIX", world[:])

				if rp.indexBuffer != nil {
					r.ctx.DrawElements(rp.mode, rp.elementCount, rp.indexType, rp.indexByteOffset)
				} else {
					r.ctx.DrawArrays(rp.mode, 0, rp.elementCount)
				}

				r.stats.DrawCalls++

			}

		}

	}

}

func (r *Renderer) bindPrimitive(rp *RenderPrimitive, attribMask uint32) {

	if attribMask != rp.attributeMask {
		for _, a := range attribs {
			if rp.attributeMask&a.mask != 0 {
				r.ctx.EnableVertexAttribArray(a.location)
			} else {
				r.ctx.DisableVertexAttribArray(a.location)
			}
		}
	}

	for _, ab := range rp.attributeBuffers {
		r.ctx.BindBuffer(gl.ARRAY_BUFFER, ab.buffer.buffer)
		for _, a := range ab.attributes {
			r.ctx.VertexAttribPointer(a.location, a.componentCount, a.componentType, a.normalized, a.stride, a.byteOffset)
		}
	}

	if rp.indexBuffer != nil {
		r.ctx.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, rp.indexBuffer.buffer)
	} else {
		r.ctx.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, nil)
	}

}

// glState is the fixed-function state last applied to the context. The blend function
// bits are only meaningful once blendKnown is set, the depth function bits once
// depthFuncKnown is.
type glState struct {
	word           MaterialState
	blendKnown     bool
	depthFuncKnown bool
}

func (r *Renderer) setCap(cap gl.Enum, bit, prev, state MaterialState) {
	change := (state & bit) != (prev & bit)
	if !change {
		return
	}
	if state&bit != 0 {
		r.ctx.Enable(cap)
	} else {
		r.ctx.Disable(cap)
	}
	r.stats.StateChanges++
}

// bindMaterialState applies state to the context given the previously applied state,
// issuing calls only for what differs, and returns the new applied state. The blend
// function is only touched while blending is enabled and the depth function while the
// depth test is.
func (r *Renderer) bindMaterialState(state MaterialState, prev glState) glState {

	next := prev

	if state.capsDiff(prev.word) {

		r.setCap(gl.CULL_FACE, StateCullFace, prev.word, state)
		r.setCap(gl.BLEND, StateBlend, prev.word, state)
		r.setCap(gl.DEPTH_TEST, StateDepthTest, prev.word, state)
		r.setCap(gl.STENCIL_TEST, StateStencilTest, prev.word, state)

		if state.ColorMask() != prev.word.ColorMask() {
			mask := state.ColorMask()
			r.colorMaskNeedsReset = !mask
			r.ctx.ColorMask(mask, mask, mask, mask)
			r.stats.StateChanges++
		}

		if state.DepthMask() != prev.word.DepthMask() {
			mask := state.DepthMask()
			r.depthMaskNeedsReset = !mask
			r.ctx.DepthMask(mask)
			r.stats.StateChanges++
		}

		if state.StencilMask() != prev.word.StencilMask() {
			if state.StencilMask() {
				r.ctx.StencilMask(0xFFFFFFFF)
			} else {
				r.ctx.StencilMask(0)
			}
			r.stats.StateChanges++
		}

		next.word = (next.word &^ StateCapsRange) | (state & StateCapsRange)

	}

	if state.Blend() && (!prev.blendKnown || state.blendDiff(prev.word)) {
		r.ctx.BlendFunc(state.BlendFuncSrc(), state.BlendFuncDst())
		r.stats.StateChanges++
		next.word = (next.word &^ StateBlendFuncRange) | (state & StateBlendFuncRange)
		next.blendKnown = true
	}

	if state.DepthTest() && (!prev.depthFuncKnown || state.depthFuncDiff(prev.word)) {
		r.ctx.DepthFunc(state.DepthFunc())
		r.stats.StateChanges++
		next.word = (next.word &^ StateDepthFuncRange) | (state & StateDepthFuncRange)
		next.depthFuncKnown = true
	}

	return next

}

// Float32Bytes returns the little endian bytes of values, ready for a vertex buffer.
func Float32Bytes(values []float32) []byte {
	out := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// Uint16Bytes returns the little endian bytes of values, ready for an index buffer.
func Uint16Bytes(values []uint16) []byte {
	out := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[i*2:], v)
	}
	return out
}
