// Package ebitengl is a gl.Context that draws through ebitengine.
//
// There's no GLSL compiler behind it. Programs are "linked" by scanning their sources
// for declarations, and draws run a fixed vertex stage on the CPU: positions are
// transformed by PROJECTION_MATRIX * VIEW_MATRIX * MODEL_MATRIX, triangles are clipped,
// culled and sorted back to front, then handed to Image.DrawTriangles tinted by the
// material's color uniform and, for lit programs, a single directional light. It's
// meant for previewing scenes on the desktop, not for fidelity.
package ebitengl

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/solarlune/tetraxr/gl"
)

// Target is what triangles are drawn onto; *ebiten.Image implements it.
type Target interface {
	Bounds() image.Rectangle
	DrawTriangles(vertices []ebiten.Vertex, indices []uint16, img *ebiten.Image, options *ebiten.DrawTrianglesOptions)
}

// Stats counts what the last frame's draw calls did.
type Stats struct {
	DrawCalls   int // DrawCalls is the number of DrawElements and DrawArrays calls.
	Batches     int // Batches is the number of Target.DrawTriangles calls.
	Triangles   int
	Culled      int
	Clipped     int
	Unsupported int // Unsupported counts draw calls with point or line modes, which aren't drawn.
}

type buffer struct {
	data []byte
}

type shader struct {
	shaderType gl.Enum
	source     string
	compiled   bool
}

type program struct {
	shaders  []*shader
	attribs  map[string]int
	declared map[string]bool
	samplers []string
	floats   map[string][]float32
	ints     map[string]int
	linked   bool
	log      string
}

type uniform struct {
	program *program
	name    string
}

type attribPointer struct {
	enabled       bool
	buffer        *buffer
	size          int
	componentType gl.Enum
	normalized    bool
	stride        int
	offset        int
}

type texture struct {
	width, height int
	pixels        *image.RGBA
	image         *ebiten.Image
	filter        gl.Enum
	wrap          gl.Enum
}

const maxAttribs = 16
const maxTextureUnits = 8

// Context implements gl.Context on top of an ebiten Target.
type Context struct {
	target Target

	// NewImage turns uploaded texture pixels into an ebiten image. It defaults to
	// ebiten.NewImageFromImage.
	NewImage func(img image.Image) *ebiten.Image

	stats Stats

	caps        map[gl.Enum]bool
	blendSrc    gl.Enum
	blendDst    gl.Enum
	depthMask   bool
	colorMask   bool
	viewport    image.Rectangle
	hasViewport bool

	arrayBuffer   *buffer
	elementBuffer *buffer
	current       *program
	attribs       [maxAttribs]attribPointer

	activeUnit int
	units      [maxTextureUnits]*texture

	white *ebiten.Image

	vertices []ebiten.Vertex
	indices  []uint16
	tris     []triangle
}

// New returns a Context drawing onto target. target may be nil and set later with
// SetTarget, typically once per frame with the screen image.
func New(target Target) *Context {
	return &Context{
		target:    target,
		NewImage:  func(img image.Image) *ebiten.Image { return ebiten.NewImageFromImage(img) },
		caps:      map[gl.Enum]bool{},
		blendSrc:  gl.ONE,
		blendDst:  gl.ZERO,
		depthMask: true,
		colorMask: true,
	}
}

// SetTarget sets the image draws go to.
func (c *Context) SetTarget(target Target) {
	c.target = target
}

// Stats returns the counters accumulated since the last ResetStats call.
func (c *Context) Stats() Stats { return c.stats }

// ResetStats zeroes the counters.
func (c *Context) ResetStats() { c.stats = Stats{} }

func (c *Context) Enable(cap gl.Enum)  { c.caps[cap] = true }
func (c *Context) Disable(cap gl.Enum) { c.caps[cap] = false }

func (c *Context) BlendFunc(src, dst gl.Enum) {
	c.blendSrc = src
	c.blendDst = dst
}

// DepthFunc is accepted but ignored; depth is resolved by sorting.
func (c *Context) DepthFunc(fn gl.Enum) {}

func (c *Context) DepthMask(flag bool) { c.depthMask = flag }

func (c *Context) ColorMask(r, g, b, a bool) { c.colorMask = r || g || b || a }

func (c *Context) StencilMask(mask uint32) {}

func (c *Context) Viewport(x, y, width, height int) {
	c.viewport = image.Rect(x, y, x+width, y+height)
	c.hasViewport = true
}

func (c *Context) CreateBuffer() gl.Buffer { return &buffer{} }

func (c *Context) BindBuffer(target gl.Enum, b gl.Buffer) {
	buf, _ := b.(*buffer)
	if target == gl.ELEMENT_ARRAY_BUFFER {
		c.elementBuffer = buf
	} else {
		c.arrayBuffer = buf
	}
}

func (c *Context) boundBuffer(target gl.Enum) *buffer {
	if target == gl.ELEMENT_ARRAY_BUFFER {
		return c.elementBuffer
	}
	return c.arrayBuffer
}

func (c *Context) BufferData(target gl.Enum, data []byte, usage gl.Enum) {
	if b := c.boundBuffer(target); b != nil {
		b.data = append(b.data[:0], data...)
	}
}

func (c *Context) BufferSubData(target gl.Enum, offset int, data []byte) {
	b := c.boundBuffer(target)
	if b == nil || offset < 0 || offset+len(data) > len(b.data) {
		return
	}
	copy(b.data[offset:], data)
}

func (c *Context) DeleteBuffer(b gl.Buffer) {
	if buf, ok := b.(*buffer); ok {
		buf.data = nil
	}
}

func (c *Context) CreateShader(shaderType gl.Enum) gl.Shader {
	return &shader{shaderType: shaderType}
}

func (c *Context) ShaderSource(s gl.Shader, source string) {
	if sh, ok := s.(*shader); ok {
		sh.source = source
	}
}

func (c *Context) CompileShader(s gl.Shader) {
	if sh, ok := s.(*shader); ok {
		sh.compiled = sh.source != ""
	}
}

func (c *Context) ShaderCompileStatus(s gl.Shader) bool {
	sh, ok := s.(*shader)
	return ok && sh.compiled
}

func (c *Context) ShaderInfoLog(s gl.Shader) string {
	if c.ShaderCompileStatus(s) {
		return ""
	}
	return "empty shader source"
}

func (c *Context) DeleteShader(s gl.Shader) {}

func (c *Context) CreateProgram() gl.Program {
	return &program{
		attribs:  map[string]int{},
		declared: map[string]bool{},
		floats:   map[string][]float32{},
		ints:     map[string]int{},
	}
}

func (c *Context) AttachShader(p gl.Program, s gl.Shader) {
	prog, ok := p.(*program)
	sh, ok2 := s.(*shader)
	if ok && ok2 {
		prog.shaders = append(prog.shaders, sh)
	}
}

func (c *Context) BindAttribLocation(p gl.Program, index int, name string) {
	if prog, ok := p.(*program); ok {
		prog.attribs[name] = index
	}
}

func (c *Context) LinkProgram(p gl.Program) {

	prog, ok := p.(*program)
	if !ok {
		return
	}

	sources := []string{}
	prog.linked = len(prog.shaders) == 2
	for _, sh := range prog.shaders {
		prog.linked = prog.linked && sh.compiled
		sources = append(sources, sh.source)
	}

	if !prog.linked {
		prog.log = "program needs a compiled vertex and fragment shader"
		return
	}

	for _, name := range gl.ParseUniforms(sources...) {
		prog.declared[name] = true
	}
	prog.samplers = gl.ParseSamplers(sources...)

	next := 0
	for _, name := range gl.ParseAttributes(sources...) {
		if _, bound := prog.attribs[name]; bound {
			continue
		}
		for taken(prog.attribs, next) {
			next++
		}
		prog.attribs[name] = next
	}

}

func taken(attribs map[string]int, index int) bool {
	for _, i := range attribs {
		if i == index {
			return true
		}
	}
	return false
}

func (c *Context) ProgramLinkStatus(p gl.Program) bool {
	prog, ok := p.(*program)
	return ok && prog.linked
}

func (c *Context) ProgramInfoLog(p gl.Program) string {
	if prog, ok := p.(*program); ok {
		return prog.log
	}
	return ""
}

func (c *Context) UseProgram(p gl.Program) {
	c.current, _ = p.(*program)
}

func (c *Context) DeleteProgram(p gl.Program) {
	if c.current == p {
		c.current = nil
	}
}

func (c *Context) GetAttribLocation(p gl.Program, name string) int {
	if prog, ok := p.(*program); ok {
		if index, ok := prog.attribs[name]; ok {
			return index
		}
	}
	return -1
}

func (c *Context) GetUniformLocation(p gl.Program, name string) gl.Uniform {
	prog, ok := p.(*program)
	if !ok || !prog.declared[name] {
		return nil
	}
	return &uniform{program: prog, name: name}
}

func (c *Context) setFloats(location gl.Uniform, v []float32) {
	if u, ok := location.(*uniform); ok {
		u.program.floats[u.name] = append(u.program.floats[u.name][:0], v...)
	}
}

func (c *Context) Uniform1i(location gl.Uniform, v int) {
	if u, ok := location.(*uniform); ok {
		u.program.ints[u.name] = v
	}
}

func (c *Context) Uniform1fv(location gl.Uniform, v []float32)       { c.setFloats(location, v) }
func (c *Context) Uniform2fv(location gl.Uniform, v []float32)       { c.setFloats(location, v) }
func (c *Context) Uniform3fv(location gl.Uniform, v []float32)       { c.setFloats(location, v) }
func (c *Context) Uniform4fv(location gl.Uniform, v []float32)       { c.setFloats(location, v) }
func (c *Context) UniformMatrix4fv(location gl.Uniform, v []float32) { c.setFloats(location, v) }

func (c *Context) EnableVertexAttribArray(index int) {
	if index >= 0 && index < maxAttribs {
		c.attribs[index].enabled = true
	}
}

func (c *Context) DisableVertexAttribArray(index int) {
	if index >= 0 && index < maxAttribs {
		c.attribs[index].enabled = false
	}
}

func (c *Context) VertexAttribPointer(index, size int, componentType gl.Enum, normalized bool, stride, offset int) {
	if index < 0 || index >= maxAttribs {
		return
	}
	a := &c.attribs[index]
	a.buffer = c.arrayBuffer
	a.size = size
	a.componentType = componentType
	a.normalized = normalized
	a.stride = stride
	a.offset = offset
}

func (c *Context) CreateTexture() gl.Texture {
	return &texture{filter: gl.LINEAR, wrap: gl.REPEAT}
}

func (c *Context) ActiveTexture(unit gl.Enum) {
	c.activeUnit = int(unit - gl.TEXTURE0)
}

func (c *Context) BindTexture(target gl.Enum, t gl.Texture) {
	if c.activeUnit < 0 || c.activeUnit >= maxTextureUnits {
		return
	}
	c.units[c.activeUnit], _ = t.(*texture)
}

func (c *Context) boundTexture() *texture {
	if c.activeUnit < 0 || c.activeUnit >= maxTextureUnits {
		return nil
	}
	return c.units[c.activeUnit]
}

func (c *Context) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, componentType gl.Enum, pixels []byte) {

	t := c.boundTexture()
	if t == nil || level != 0 {
		return
	}

	t.width, t.height = width, height
	t.pixels = toRGBA(width, height, format, componentType, pixels)
	t.image = nil

}

func (c *Context) TexParameteri(target, param gl.Enum, value int) {
	t := c.boundTexture()
	if t == nil {
		return
	}
	switch param {
	case gl.TEXTURE_MAG_FILTER:
		t.filter = gl.Enum(value)
	case gl.TEXTURE_WRAP_S:
		t.wrap = gl.Enum(value)
	}
}

// GenerateMipmap is a no-op; ebiten filters at draw time.
func (c *Context) GenerateMipmap(target gl.Enum) {}

func (c *Context) DeleteTexture(t gl.Texture) {
	tex, ok := t.(*texture)
	if !ok {
		return
	}
	for i, bound := range c.units {
		if bound == tex {
			c.units[i] = nil
		}
	}
	if tex.image != nil {
		tex.image.Deallocate()
	}
	tex.image = nil
	tex.pixels = nil
}

func (c *Context) HighPrecisionFragments() bool { return true }

// toRGBA expands an uploaded texture into RGBA. Unsupported formats and short pixel
// data produce nil.
func toRGBA(width, height int, format, componentType gl.Enum, pixels []byte) *image.RGBA {

	if componentType != gl.UNSIGNED_BYTE || width <= 0 || height <= 0 {
		return nil
	}

	channels := 0
	switch format {
	case gl.RGBA:
		channels = 4
	case gl.RGB:
		channels = 3
	case gl.LUMINANCE, gl.ALPHA:
		channels = 1
	default:
		return nil
	}

	if len(pixels) < width*height*channels {
		return nil
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for i := 0; i < width*height; i++ {
		src := pixels[i*channels : i*channels+channels]
		dst := img.Pix[i*4 : i*4+4]
		switch format {
		case gl.RGBA:
			copy(dst, src)
		case gl.RGB:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], 255
		case gl.LUMINANCE:
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], 255
		case gl.ALPHA:
			// image.RGBA is premultiplied.
			dst[0], dst[1], dst[2], dst[3] = src[0], src[0], src[0], src[0]
		}
	}

	return img

}
