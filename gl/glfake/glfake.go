// Package glfake provides a recording gl.Context for tests and headless runs.
//
// Every call is appended to the Calls log. Object handles are small integers.
// Uniform and attribute lookups are answered from the declarations found in the
// sources attached to a program, so unknown names resolve to nil / -1 the same way
// a real driver would report them.
package glfake

import (
	"fmt"
	"strings"

	"github.com/solarlune/tetraxr/gl"
)

// Call is a single recorded GL call.
type Call struct {
	Name string
	Args []interface{}
}

func (c Call) String() string {
	args := make([]string, 0, len(c.Args))
	for _, a := range c.Args {
		args = append(args, fmt.Sprint(a))
	}
	return c.Name + "(" + strings.Join(args, ", ") + ")"
}

// Object is the handle type handed out by Context.
type Object int

// UniformLocation is the uniform handle type handed out by Context.
type UniformLocation struct {
	Program Object
	Name    string
}

type shader struct {
	shaderType gl.Enum
	source     string
	compiled   bool
}

type program struct {
	shaders  []Object
	attribs  map[string]int
	uniforms map[string]bool
	linked   bool
}

// Context is a recording implementation of gl.Context and gl.VertexArrayContext.
type Context struct {
	Calls []Call

	// FailCompile makes CompileShader fail for any source containing this string.
	FailCompile string
	// FailLink makes LinkProgram fail for every program.
	FailLink bool
	// LowPrecision makes HighPrecisionFragments report false.
	LowPrecision bool

	// Buffers holds the last data uploaded into each buffer.
	Buffers map[Object][]byte
	// Textures holds the last level 0 image uploaded into each texture.
	Textures map[Object]TextureImage
	// Uniforms holds the last value written to each uniform location.
	Uniforms map[UniformLocation][]float32

	nextObject  Object
	shaders     map[Object]*shader
	programs    map[Object]*program
	boundBuffer map[gl.Enum]Object
	boundTex    Object
	current     Object
}

// TextureImage is a recorded texture upload.
type TextureImage struct {
	Width, Height int
	Format        gl.Enum
	Pixels        []byte
}

// New returns a new recording Context.
func New() *Context {
	return &Context{
		Buffers:     map[Object][]byte{},
		Textures:    map[Object]TextureImage{},
		Uniforms:    map[UniformLocation][]float32{},
		shaders:     map[Object]*shader{},
		programs:    map[Object]*program{},
		boundBuffer: map[gl.Enum]Object{},
	}
}

// Reset clears the call log, leaving object state intact.
func (c *Context) Reset() {
	c.Calls = c.Calls[:0]
}

// Count returns how many times the named call was recorded.
func (c *Context) Count(name string) int {
	n := 0
	for _, call := range c.Calls {
		if call.Name == name {
			n++
		}
	}
	return n
}

// Names returns the recorded call names in order.
func (c *Context) Names() []string {
	names := make([]string, 0, len(c.Calls))
	for _, call := range c.Calls {
		names = append(names, call.Name)
	}
	return names
}

// Filter returns the recorded calls with the given names, in order.
func (c *Context) Filter(names ...string) []Call {
	out := []Call{}
	for _, call := range c.Calls {
		for _, n := range names {
			if call.Name == n {
				out = append(out, call)
				break
			}
		}
	}
	return out
}

func (c *Context) record(name string, args ...interface{}) {
	c.Calls = append(c.Calls, Call{Name: name, Args: args})
}

func (c *Context) newObject() Object {
	c.nextObject++
	return c.nextObject
}

func object(v interface{}) Object {
	if o, ok := v.(Object); ok {
		return o
	}
	return 0
}

func (c *Context) Enable(cap gl.Enum)         { c.record("Enable", cap) }
func (c *Context) Disable(cap gl.Enum)        { c.record("Disable", cap) }
func (c *Context) BlendFunc(src, dst gl.Enum) { c.record("BlendFunc", src, dst) }
func (c *Context) DepthFunc(fn gl.Enum)       { c.record("DepthFunc", fn) }
func (c *Context) DepthMask(flag bool)        { c.record("DepthMask", flag) }
func (c *Context) ColorMask(r, g, b, a bool)  { c.record("ColorMask", r, g, b, a) }
func (c *Context) StencilMask(mask uint32)    { c.record("StencilMask", mask) }

func (c *Context) Viewport(x, y, width, height int) {
	c.record("Viewport", x, y, width, height)
}

func (c *Context) CreateBuffer() gl.Buffer {
	o := c.newObject()
	c.record("CreateBuffer", o)
	return o
}

func (c *Context) BindBuffer(target gl.Enum, buffer gl.Buffer) {
	c.boundBuffer[target] = object(buffer)
	c.record("BindBuffer", target, buffer)
}

func (c *Context) BufferData(target gl.Enum, data []byte, usage gl.Enum) {
	c.Buffers[c.boundBuffer[target]] = append([]byte(nil), data...)
	c.record("BufferData", target, len(data), usage)
}

func (c *Context) BufferSubData(target gl.Enum, offset int, data []byte) {
	buf := c.Buffers[c.boundBuffer[target]]
	if end := offset + len(data); end > len(buf) {
		buf = append(buf, make([]byte, end-len(buf))...)
	}
	copy(buf[offset:], data)
	c.Buffers[c.boundBuffer[target]] = buf
	c.record("BufferSubData", target, offset, len(data))
}

func (c *Context) DeleteBuffer(buffer gl.Buffer) {
	delete(c.Buffers, object(buffer))
	c.record("DeleteBuffer", buffer)
}

func (c *Context) CreateShader(shaderType gl.Enum) gl.Shader {
	o := c.newObject()
	c.shaders[o] = &shader{shaderType: shaderType}
	c.record("CreateShader", shaderType)
	return o
}

func (c *Context) ShaderSource(s gl.Shader, source string) {
	if sh := c.shaders[object(s)]; sh != nil {
		sh.source = source
	}
	c.record("ShaderSource", s)
}

func (c *Context) CompileShader(s gl.Shader) {
	if sh := c.shaders[object(s)]; sh != nil {
		sh.compiled = c.FailCompile == "" || !strings.Contains(sh.source, c.FailCompile)
	}
	c.record("CompileShader", s)
}

func (c *Context) ShaderCompileStatus(s gl.Shader) bool {
	sh := c.shaders[object(s)]
	return sh != nil && sh.compiled
}

func (c *Context) ShaderInfoLog(s gl.Shader) string {
	if c.ShaderCompileStatus(s) {
		return ""
	}
	return "ERROR: 0:1: syntax error"
}

// ShaderSourceOf returns the source last attached to a shader.
func (c *Context) ShaderSourceOf(s gl.Shader) string {
	if sh := c.shaders[object(s)]; sh != nil {
		return sh.source
	}
	return ""
}

// ProgramSources returns the sources of every shader attached to a program.
func (c *Context) ProgramSources(p gl.Program) []string {
	prog := c.programs[object(p)]
	if prog == nil {
		return nil
	}
	out := []string{}
	for _, s := range prog.shaders {
		out = append(out, c.shaders[s].source)
	}
	return out
}

func (c *Context) DeleteShader(s gl.Shader) {
	delete(c.shaders, object(s))
	c.record("DeleteShader", s)
}

func (c *Context) CreateProgram() gl.Program {
	o := c.newObject()
	c.programs[o] = &program{attribs: map[string]int{}, uniforms: map[string]bool{}}
	c.record("CreateProgram", o)
	return o
}

func (c *Context) AttachShader(p gl.Program, s gl.Shader) {
	if prog := c.programs[object(p)]; prog != nil {
		prog.shaders = append(prog.shaders, object(s))
	}
	c.record("AttachShader", p, s)
}

func (c *Context) BindAttribLocation(p gl.Program, index int, name string) {
	if prog := c.programs[object(p)]; prog != nil {
		prog.attribs[name] = index
	}
	c.record("BindAttribLocation", p, index, name)
}

func (c *Context) LinkProgram(p gl.Program) {
	c.record("LinkProgram", p)
	prog := c.programs[object(p)]
	if prog == nil {
		return
	}
	sources := []string{}
	prog.linked = !c.FailLink
	for _, s := range prog.shaders {
		sh := c.shaders[s]
		if sh == nil || !sh.compiled {
			prog.linked = false
			continue
		}
		sources = append(sources, sh.source)
	}
	for _, name := range gl.ParseUniforms(sources...) {
		prog.uniforms[name] = true
	}
	next := 0
	for _, name := range gl.ParseAttributes(sources...) {
		if _, ok := prog.attribs[name]; !ok {
			prog.attribs[name] = next
			next++
		}
	}
}

func (c *Context) ProgramLinkStatus(p gl.Program) bool {
	prog := c.programs[object(p)]
	return prog != nil && prog.linked
}

func (c *Context) ProgramInfoLog(p gl.Program) string {
	if c.ProgramLinkStatus(p) {
		return ""
	}
	return "ERROR: program failed to link"
}

func (c *Context) UseProgram(p gl.Program) {
	c.current = object(p)
	c.record("UseProgram", p)
}

func (c *Context) DeleteProgram(p gl.Program) {
	delete(c.programs, object(p))
	c.record("DeleteProgram", p)
}

func (c *Context) GetAttribLocation(p gl.Program, name string) int {
	if prog := c.programs[object(p)]; prog != nil {
		if index, ok := prog.attribs[name]; ok {
			return index
		}
	}
	return -1
}

func (c *Context) GetUniformLocation(p gl.Program, name string) gl.Uniform {
	if prog := c.programs[object(p)]; prog != nil && prog.uniforms[name] {
		return UniformLocation{Program: object(p), Name: name}
	}
	return nil
}

func (c *Context) setUniform(name string, location gl.Uniform, v []float32) {
	if loc, ok := location.(UniformLocation); ok {
		c.Uniforms[loc] = append([]float32(nil), v...)
	}
	c.record(name, location, append([]float32(nil), v...))
}

func (c *Context) Uniform1i(location gl.Uniform, v int) {
	if loc, ok := location.(UniformLocation); ok {
		c.Uniforms[loc] = []float32{float32(v)}
	}
	c.record("Uniform1i", location, v)
}

func (c *Context) Uniform1fv(location gl.Uniform, v []float32) { c.setUniform("Uniform1fv", location, v) }
func (c *Context) Uniform2fv(location gl.Uniform, v []float32) { c.setUniform("Uniform2fv", location, v) }
func (c *Context) Uniform3fv(location gl.Uniform, v []float32) { c.setUniform("Uniform3fv", location, v) }
func (c *Context) Uniform4fv(location gl.Uniform, v []float32) { c.setUniform("Uniform4fv", location, v) }

func (c *Context) UniformMatrix4fv(location gl.Uniform, v []float32) {
	c.setUniform("UniformMatrix4fv", location, v)
}

func (c *Context) EnableVertexAttribArray(index int)  { c.record("EnableVertexAttribArray", index) }
func (c *Context) DisableVertexAttribArray(index int) { c.record("DisableVertexAttribArray", index) }

func (c *Context) VertexAttribPointer(index, size int, componentType gl.Enum, normalized bool, stride, offset int) {
	c.record("VertexAttribPointer", index, size, componentType, normalized, stride, offset)
}

func (c *Context) CreateTexture() gl.Texture {
	o := c.newObject()
	c.record("CreateTexture", o)
	return o
}

func (c *Context) ActiveTexture(unit gl.Enum) { c.record("ActiveTexture", unit) }

func (c *Context) BindTexture(target gl.Enum, texture gl.Texture) {
	c.boundTex = object(texture)
	c.record("BindTexture", target, texture)
}

func (c *Context) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, componentType gl.Enum, pixels []byte) {
	if level == 0 {
		c.Textures[c.boundTex] = TextureImage{Width: width, Height: height, Format: format, Pixels: append([]byte(nil), pixels...)}
	}
	c.record("TexImage2D", target, level, width, height)
}

func (c *Context) TexParameteri(target, param gl.Enum, value int) {
	c.record("TexParameteri", target, param, value)
}

func (c *Context) GenerateMipmap(target gl.Enum) { c.record("GenerateMipmap", target) }

func (c *Context) DeleteTexture(texture gl.Texture) {
	delete(c.Textures, object(texture))
	c.record("DeleteTexture", texture)
}

func (c *Context) DrawElements(mode gl.Enum, count int, indexType gl.Enum, offset int) {
	c.record("DrawElements", mode, count, indexType, offset)
}

func (c *Context) DrawArrays(mode gl.Enum, first, count int) {
	c.record("DrawArrays", mode, first, count)
}

func (c *Context) HighPrecisionFragments() bool { return !c.LowPrecision }

func (c *Context) CreateVertexArray() gl.VertexArray {
	o := c.newObject()
	c.record("CreateVertexArray", o)
	return o
}

func (c *Context) BindVertexArray(vao gl.VertexArray) { c.record("BindVertexArray", vao) }

func (c *Context) DeleteVertexArray(vao gl.VertexArray) { c.record("DeleteVertexArray", vao) }

// NoVertexArrays wraps a Context so it no longer advertises vertex array support.
type NoVertexArrays struct {
	gl.Context
}

var (
	_ gl.Context            = (*Context)(nil)
	_ gl.VertexArrayContext = (*Context)(nil)
)
