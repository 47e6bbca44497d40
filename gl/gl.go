// Package gl describes the immediate-mode GPU context the renderer draws through.
//
// The surface mirrors WebGL 1 closely enough that a browser binding is a thin
// forwarding layer, while staying small enough to be implemented in software
// (see the ebitengl package) or recorded for tests (see glfake).
package gl

// Enum is a GL enumerant.
type Enum uint32

// Opaque GPU object handles. Each Context implementation decides what concrete value
// backs a handle; a nil handle means "no object" (binding nil unbinds).
type (
	Buffer      interface{}
	Shader      interface{}
	Program     interface{}
	Texture     interface{}
	Uniform     interface{}
	VertexArray interface{}
)

// Context is the set of GPU calls used by the renderer. All calls are made from the
// render thread.
type Context interface {
	Enable(cap Enum)
	Disable(cap Enum)
	BlendFunc(src, dst Enum)
	DepthFunc(fn Enum)
	DepthMask(flag bool)
	ColorMask(r, g, b, a bool)
	StencilMask(mask uint32)
	Viewport(x, y, width, height int)

	CreateBuffer() Buffer
	BindBuffer(target Enum, buffer Buffer)
	BufferData(target Enum, data []byte, usage Enum)
	BufferSubData(target Enum, offset int, data []byte)
	DeleteBuffer(buffer Buffer)

	CreateShader(shaderType Enum) Shader
	ShaderSource(shader Shader, source string)
	CompileShader(shader Shader)
	ShaderCompileStatus(shader Shader) bool
	ShaderInfoLog(shader Shader) string
	DeleteShader(shader Shader)

	CreateProgram() Program
	AttachShader(program Program, shader Shader)
	BindAttribLocation(program Program, index int, name string)
	LinkProgram(program Program)
	ProgramLinkStatus(program Program) bool
	ProgramInfoLog(program Program) string
	UseProgram(program Program)
	DeleteProgram(program Program)

	GetAttribLocation(program Program, name string) int
	GetUniformLocation(program Program, name string) Uniform
	Uniform1i(location Uniform, v int)
	Uniform1fv(location Uniform, v []float32)
	Uniform2fv(location Uniform, v []float32)
	Uniform3fv(location Uniform, v []float32)
	Uniform4fv(location Uniform, v []float32)
	UniformMatrix4fv(location Uniform, v []float32)

	EnableVertexAttribArray(index int)
	DisableVertexAttribArray(index int)
	VertexAttribPointer(index, size int, componentType Enum, normalized bool, stride, offset int)

	CreateTexture() Texture
	ActiveTexture(unit Enum)
	BindTexture(target Enum, texture Texture)
	TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, componentType Enum, pixels []byte)
	TexParameteri(target, param Enum, value int)
	GenerateMipmap(target Enum)
	DeleteTexture(texture Texture)

	DrawElements(mode Enum, count int, indexType Enum, offset int)
	DrawArrays(mode Enum, first, count int)

	// HighPrecisionFragments reports whether fragment shaders support highp floats.
	HighPrecisionFragments() bool
}

// VertexArrayContext is implemented by contexts that support vertex array objects
// (WebGL 2, or WebGL 1 with OES_vertex_array_object).
type VertexArrayContext interface {
	CreateVertexArray() VertexArray
	BindVertexArray(vao VertexArray)
	DeleteVertexArray(vao VertexArray)
}

const (
	DEPTH_BUFFER_BIT Enum = 0x0100
	COLOR_BUFFER_BIT Enum = 0x4000

	POINTS         Enum = 0x0000
	LINES          Enum = 0x0001
	LINE_LOOP      Enum = 0x0002
	LINE_STRIP     Enum = 0x0003
	TRIANGLES      Enum = 0x0004
	TRIANGLE_STRIP Enum = 0x0005
	TRIANGLE_FAN   Enum = 0x0006

	ZERO                Enum = 0
	ONE                 Enum = 1
	SRC_COLOR           Enum = 0x0300
	ONE_MINUS_SRC_COLOR Enum = 0x0301
	SRC_ALPHA           Enum = 0x0302
	ONE_MINUS_SRC_ALPHA Enum = 0x0303
	DST_ALPHA           Enum = 0x0304
	ONE_MINUS_DST_ALPHA Enum = 0x0305
	DST_COLOR           Enum = 0x0306
	ONE_MINUS_DST_COLOR Enum = 0x0307
	SRC_ALPHA_SATURATE  Enum = 0x0308

	CULL_FACE    Enum = 0x0B44
	DEPTH_TEST   Enum = 0x0B71
	STENCIL_TEST Enum = 0x0B90
	BLEND        Enum = 0x0BE2

	NEVER    Enum = 0x0200
	LESS     Enum = 0x0201
	EQUAL    Enum = 0x0202
	LEQUAL   Enum = 0x0203
	GREATER  Enum = 0x0204
	NOTEQUAL Enum = 0x0205
	GEQUAL   Enum = 0x0206
	ALWAYS   Enum = 0x0207

	ARRAY_BUFFER         Enum = 0x8892
	ELEMENT_ARRAY_BUFFER Enum = 0x8893
	STREAM_DRAW          Enum = 0x88E0
	STATIC_DRAW          Enum = 0x88E4
	DYNAMIC_DRAW         Enum = 0x88E8

	BYTE           Enum = 0x1400
	UNSIGNED_BYTE  Enum = 0x1401
	SHORT          Enum = 0x1402
	UNSIGNED_SHORT Enum = 0x1403
	INT            Enum = 0x1404
	UNSIGNED_INT   Enum = 0x1405
	FLOAT          Enum = 0x1406

	FRAGMENT_SHADER Enum = 0x8B30
	VERTEX_SHADER   Enum = 0x8B31

	TEXTURE_2D Enum = 0x0DE1
	TEXTURE0   Enum = 0x84C0

	ALPHA     Enum = 0x1906
	RGB       Enum = 0x1907
	RGBA      Enum = 0x1908
	LUMINANCE Enum = 0x1909

	TEXTURE_MAG_FILTER Enum = 0x2800
	TEXTURE_MIN_FILTER Enum = 0x2801
	TEXTURE_WRAP_S     Enum = 0x2802
	TEXTURE_WRAP_T     Enum = 0x2803

	NEAREST                Enum = 0x2600
	LINEAR                 Enum = 0x2601
	NEAREST_MIPMAP_NEAREST Enum = 0x2700
	LINEAR_MIPMAP_NEAREST  Enum = 0x2701
	NEAREST_MIPMAP_LINEAR  Enum = 0x2702
	LINEAR_MIPMAP_LINEAR   Enum = 0x2703

	REPEAT          Enum = 0x2901
	CLAMP_TO_EDGE   Enum = 0x812F
	MIRRORED_REPEAT Enum = 0x8370
)

// TypeSize returns the size in bytes of a single component of the given type, or 0
// if the type isn't a vertex or index component type.
func TypeSize(componentType Enum) int {
	switch componentType {
	case BYTE, UNSIGNED_BYTE:
		return 1
	case SHORT, UNSIGNED_SHORT:
		return 2
	case INT, UNSIGNED_INT, FLOAT:
		return 4
	}
	return 0
}
