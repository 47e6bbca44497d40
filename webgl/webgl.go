//go:build js && wasm

// Package webgl implements gl.Context on a browser WebGL context.
package webgl

import (
	"encoding/binary"
	"errors"
	"math"
	"syscall/js"

	"github.com/solarlune/tetraxr/gl"
)

// ErrNoContext is returned by New when the canvas can't create a WebGL context.
var ErrNoContext = errors.New("canvas has no WebGL context")

const (
	highFloat       = 0x8DF2
	compileStatus   = 0x8B81
	linkStatus      = 0x8B82
	unpackAlignment = 0x0CF5
)

// Context forwards gl.Context calls to a WebGL rendering context. Vertex array objects
// come from WebGL 2 or the OES_vertex_array_object extension when either is available.
type Context struct {
	gl  js.Value
	vao js.Value // Extension object, or the context itself for WebGL 2.

	vaoPrefix    string
	highp        bool
	float32Array js.Value
	uint8Array   js.Value
}

// New returns a Context for the canvas, preferring WebGL 2. attributes is passed to
// getContext as-is and may be nil.
func New(canvas js.Value, attributes map[string]interface{}) (*Context, error) {

	var options interface{} = js.Undefined()
	if attributes != nil {
		options = attributes
	}

	ctx := canvas.Call("getContext", "webgl2", options)
	if !truthy(ctx) {
		ctx = canvas.Call("getContext", "webgl", options)
	}
	if !truthy(ctx) {
		return nil, ErrNoContext
	}

	return Wrap(ctx), nil

}

// Wrap returns a Context for an existing WebGL or WebGL 2 rendering context.
func Wrap(ctx js.Value) *Context {

	c := &Context{
		gl:           ctx,
		float32Array: js.Global().Get("Float32Array"),
		uint8Array:   js.Global().Get("Uint8Array"),
	}

	if js.Global().Get("WebGL2RenderingContext").Truthy() && ctx.InstanceOf(js.Global().Get("WebGL2RenderingContext")) {
		c.vao = ctx
	} else if ext := ctx.Call("getExtension", "OES_vertex_array_object"); truthy(ext) {
		c.vao = ext
		c.vaoPrefix = "OES"
	}

	format := ctx.Call("getShaderPrecisionFormat", int(gl.FRAGMENT_SHADER), highFloat)
	c.highp = truthy(format) && format.Get("precision").Int() > 0

	ctx.Call("pixelStorei", unpackAlignment, 1)

	return c

}

// SupportsVertexArrays reports whether VAOs are available.
func (c *Context) SupportsVertexArrays() bool { return truthy(c.vao) }

// GL returns the context to hand to the renderer. Without VAO support it hides the
// vertex array methods, so attributes are bound per primitive instead.
func (c *Context) GL() gl.Context {
	if c.SupportsVertexArrays() {
		return c
	}
	return struct{ gl.Context }{c}
}

// Raw returns the wrapped rendering context.
func (c *Context) Raw() js.Value { return c.gl }

func truthy(v js.Value) bool {
	return !v.IsUndefined() && !v.IsNull() && v.Truthy()
}

func value(handle interface{}) js.Value {
	if v, ok := handle.(js.Value); ok {
		return v
	}
	return js.Null()
}

func handle(v js.Value) interface{} {
	if v.IsNull() || v.IsUndefined() {
		return nil
	}
	return v
}

func (c *Context) bytes(data []byte) js.Value {
	array := c.uint8Array.New(len(data))
	js.CopyBytesToJS(array, data)
	return array
}

func (c *Context) floats(v []float32) js.Value {
	data := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return c.float32Array.New(c.bytes(data).Get("buffer"), 0, len(v))
}

func (c *Context) Enable(cap gl.Enum)  { c.gl.Call("enable", int(cap)) }
func (c *Context) Disable(cap gl.Enum) { c.gl.Call("disable", int(cap)) }

func (c *Context) BlendFunc(src, dst gl.Enum) { c.gl.Call("blendFunc", int(src), int(dst)) }
func (c *Context) DepthFunc(fn gl.Enum)       { c.gl.Call("depthFunc", int(fn)) }
func (c *Context) DepthMask(flag bool)        { c.gl.Call("depthMask", flag) }
func (c *Context) StencilMask(mask uint32)    { c.gl.Call("stencilMask", mask) }

func (c *Context) ColorMask(r, g, b, a bool) { c.gl.Call("colorMask", r, g, b, a) }

func (c *Context) Viewport(x, y, width, height int) {
	c.gl.Call("viewport", x, y, width, height)
}

func (c *Context) CreateBuffer() gl.Buffer { return handle(c.gl.Call("createBuffer")) }

func (c *Context) BindBuffer(target gl.Enum, buffer gl.Buffer) {
	c.gl.Call("bindBuffer", int(target), value(buffer))
}

func (c *Context) BufferData(target gl.Enum, data []byte, usage gl.Enum) {
	c.gl.Call("bufferData", int(target), c.bytes(data), int(usage))
}

func (c *Context) BufferSubData(target gl.Enum, offset int, data []byte) {
	c.gl.Call("bufferSubData", int(target), offset, c.bytes(data))
}

func (c *Context) DeleteBuffer(buffer gl.Buffer) { c.gl.Call("deleteBuffer", value(buffer)) }

func (c *Context) CreateShader(shaderType gl.Enum) gl.Shader {
	return handle(c.gl.Call("createShader", int(shaderType)))
}

func (c *Context) ShaderSource(shader gl.Shader, source string) {
	c.gl.Call("shaderSource", value(shader), source)
}

func (c *Context) CompileShader(shader gl.Shader) { c.gl.Call("compileShader", value(shader)) }

func (c *Context) ShaderCompileStatus(shader gl.Shader) bool {
	return c.gl.Call("getShaderParameter", value(shader), compileStatus).Truthy()
}

func (c *Context) ShaderInfoLog(shader gl.Shader) string {
	return c.gl.Call("getShaderInfoLog", value(shader)).String()
}

func (c *Context) DeleteShader(shader gl.Shader) { c.gl.Call("deleteShader", value(shader)) }

func (c *Context) CreateProgram() gl.Program { return handle(c.gl.Call("createProgram")) }

func (c *Context) AttachShader(program gl.Program, shader gl.Shader) {
	c.gl.Call("attachShader", value(program), value(shader))
}

func (c *Context) BindAttribLocation(program gl.Program, index int, name string) {
	c.gl.Call("bindAttribLocation", value(program), index, name)
}

func (c *Context) LinkProgram(program gl.Program) { c.gl.Call("linkProgram", value(program)) }

func (c *Context) ProgramLinkStatus(program gl.Program) bool {
	return c.gl.Call("getProgramParameter", value(program), linkStatus).Truthy()
}

func (c *Context) ProgramInfoLog(program gl.Program) string {
	return c.gl.Call("getProgramInfoLog", value(program)).String()
}

func (c *Context) UseProgram(program gl.Program)    { c.gl.Call("useProgram", value(program)) }
func (c *Context) DeleteProgram(program gl.Program) { c.gl.Call("deleteProgram", value(program)) }

func (c *Context) GetAttribLocation(program gl.Program, name string) int {
	return c.gl.Call("getAttribLocation", value(program), name).Int()
}

func (c *Context) GetUniformLocation(program gl.Program, name string) gl.Uniform {
	return handle(c.gl.Call("getUniformLocation", value(program), name))
}

func (c *Context) Uniform1i(location gl.Uniform, v int) {
	c.gl.Call("uniform1i", value(location), v)
}

func (c *Context) Uniform1fv(location gl.Uniform, v []float32) {
	c.gl.Call("uniform1fv", value(location), c.floats(v))
}

func (c *Context) Uniform2fv(location gl.Uniform, v []float32) {
	c.gl.Call("uniform2fv", value(location), c.floats(v))
}

func (c *Context) Uniform3fv(location gl.Uniform, v []float32) {
	c.gl.Call("uniform3fv", value(location), c.floats(v))
}

func (c *Context) Uniform4fv(location gl.Uniform, v []float32) {
	c.gl.Call("uniform4fv", value(location), c.floats(v))
}

func (c *Context) UniformMatrix4fv(location gl.Uniform, v []float32) {
	c.gl.Call("uniformMatrix4fv", value(location), false, c.floats(v))
}

func (c *Context) EnableVertexAttribArray(index int) {
	c.gl.Call("enableVertexAttribArray", index)
}

func (c *Context) DisableVertexAttribArray(index int) {
	c.gl.Call("disableVertexAttribArray", index)
}

func (c *Context) VertexAttribPointer(index, size int, componentType gl.Enum, normalized bool, stride, offset int) {
	c.gl.Call("vertexAttribPointer", index, size, int(componentType), normalized, stride, offset)
}

func (c *Context) CreateTexture() gl.Texture { return handle(c.gl.Call("createTexture")) }

func (c *Context) ActiveTexture(unit gl.Enum) { c.gl.Call("activeTexture", int(unit)) }

func (c *Context) BindTexture(target gl.Enum, texture gl.Texture) {
	c.gl.Call("bindTexture", int(target), value(texture))
}

func (c *Context) TexImage2D(target gl.Enum, level int, internalFormat gl.Enum, width, height int, format, componentType gl.Enum, pixels []byte) {
	var data interface{} = js.Null()
	if pixels != nil {
		data = c.bytes(pixels)
	}
	c.gl.Call("texImage2D", int(target), level, int(internalFormat), width, height, 0, int(format), int(componentType), data)
}

func (c *Context) TexParameteri(target, param gl.Enum, v int) {
	c.gl.Call("texParameteri", int(target), int(param), v)
}

func (c *Context) GenerateMipmap(target gl.Enum) { c.gl.Call("generateMipmap", int(target)) }

func (c *Context) DeleteTexture(texture gl.Texture) { c.gl.Call("deleteTexture", value(texture)) }

func (c *Context) DrawElements(mode gl.Enum, count int, indexType gl.Enum, offset int) {
	c.gl.Call("drawElements", int(mode), count, int(indexType), offset)
}

func (c *Context) DrawArrays(mode gl.Enum, first, count int) {
	c.gl.Call("drawArrays", int(mode), first, count)
}

func (c *Context) HighPrecisionFragments() bool { return c.highp }

func (c *Context) vaoCall(method string, args ...interface{}) js.Value {
	if c.vaoPrefix != "" {
		method += c.vaoPrefix
	}
	return c.vao.Call(method, args...)
}

func (c *Context) CreateVertexArray() gl.VertexArray {
	if !c.SupportsVertexArrays() {
		return nil
	}
	return handle(c.vaoCall("createVertexArray"))
}

func (c *Context) BindVertexArray(vao gl.VertexArray) {
	if c.SupportsVertexArrays() {
		c.vaoCall("bindVertexArray", value(vao))
	}
}

func (c *Context) DeleteVertexArray(vao gl.VertexArray) {
	if c.SupportsVertexArrays() {
		c.vaoCall("deleteVertexArray", value(vao))
	}
}
