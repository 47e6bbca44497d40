package ebitengl

import (
	"image"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/solarlune/tetraxr"
	"github.com/solarlune/tetraxr/gl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type batch struct {
	vertices []ebiten.Vertex
	indices  []uint16
	options  ebiten.DrawTrianglesOptions
}

type recordingTarget struct {
	width, height int
	batches       []batch
}

func (t *recordingTarget) Bounds() image.Rectangle { return image.Rect(0, 0, t.width, t.height) }

func (t *recordingTarget) DrawTriangles(vertices []ebiten.Vertex, indices []uint16, img *ebiten.Image, options *ebiten.DrawTrianglesOptions) {
	t.batches = append(t.batches, batch{
		vertices: append([]ebiten.Vertex(nil), vertices...),
		indices:  append([]uint16(nil), indices...),
		options:  *options,
	})
}

func newTestContext(width, height int) (*Context, *recordingTarget) {
	target := &recordingTarget{width: width, height: height}
	ctx := New(target)
	ctx.NewImage = func(image.Image) *ebiten.Image { return nil }
	return ctx, target
}

func TestAssemble(t *testing.T) {

	assert.Equal(t, [][3]int{{0, 1, 2}, {3, 4, 5}}, assemble(gl.TRIANGLES, 7))
	assert.Equal(t, [][3]int{{0, 1, 2}, {2, 1, 3}, {2, 3, 4}}, assemble(gl.TRIANGLE_STRIP, 5))
	assert.Equal(t, [][3]int{{0, 1, 2}, {0, 2, 3}}, assemble(gl.TRIANGLE_FAN, 4))
	assert.Empty(t, assemble(gl.TRIANGLES, 2))
	assert.Nil(t, assemble(gl.LINES, 4))

}

func TestReadIndexAndComponents(t *testing.T) {

	shorts := tetraxr.Uint16Bytes([]uint16{7, 300, 65535})
	assert.Equal(t, 300, readIndex(shorts, 0, 1, gl.UNSIGNED_SHORT))
	assert.Equal(t, 65535, readIndex(shorts, 2, 1, gl.UNSIGNED_SHORT))
	assert.Equal(t, -1, readIndex(shorts, 0, 3, gl.UNSIGNED_SHORT))
	assert.Equal(t, -1, readIndex(shorts, 0, 0, gl.FLOAT+100))

	assert.Equal(t, float32(1), readComponent([]byte{255}, gl.UNSIGNED_BYTE, true))
	assert.Equal(t, float32(255), readComponent([]byte{255}, gl.UNSIGNED_BYTE, false))
	assert.Equal(t, float32(-1), readComponent([]byte{0x80}, gl.BYTE, true))
	assert.Equal(t, float32(-1), readComponent([]byte{0x01, 0x80}, gl.SHORT, true))
	assert.Equal(t, float32(2.5), readComponent(tetraxr.Float32Bytes([]float32{2.5}), gl.FLOAT, false))

}

func TestReadAttrib(t *testing.T) {

	// Interleaved position (3 floats) and a normalized ubyte color (4 bytes).
	data := append(tetraxr.Float32Bytes([]float32{1, 2, 3}), 255, 0, 0, 255)
	data = append(data, append(tetraxr.Float32Bytes([]float32{4, 5, 6}), 0, 255, 0, 255)...)
	buf := &buffer{data: data}

	position := &attribPointer{enabled: true, buffer: buf, size: 3, componentType: gl.FLOAT, stride: 16}
	color := &attribPointer{enabled: true, buffer: buf, size: 4, componentType: gl.UNSIGNED_BYTE, normalized: true, stride: 16, offset: 12}

	dst := make([]float32, 3)
	assert.Equal(t, 3, readAttrib(position, 1, dst))
	assert.Equal(t, []float32{4, 5, 6}, dst)

	rgba := []float32{9, 9, 9, 9}
	assert.Equal(t, 4, readAttrib(color, 1, rgba))
	assert.Equal(t, []float32{0, 1, 0, 1}, rgba)

	// Out of range vertices and disabled attributes read nothing.
	assert.Zero(t, readAttrib(position, 2, dst))
	position.enabled = false
	assert.Zero(t, readAttrib(position, 0, dst))

}

func TestClippingAndCulling(t *testing.T) {

	inside := [3]mgl32.Vec4{{0, 0, 0, 1}, {0.5, 0, 0, 1}, {0, 0.5, 0, 1}}
	assert.False(t, clipped(inside))

	behind := inside
	behind[1] = mgl32.Vec4{0, 0, 0, -1}
	assert.True(t, clipped(behind))

	offscreen := [3]mgl32.Vec4{{2, 0, 0, 1}, {3, 0, 0, 1}, {2, 1, 0, 1}}
	assert.True(t, clipped(offscreen))

	// Partially visible triangles are kept.
	straddling := [3]mgl32.Vec4{{-2, 0, 0, 1}, {3, 0, 0, 1}, {0, 1, 0, 1}}
	assert.False(t, clipped(straddling))

	ccw := [3]mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	assert.True(t, frontFacing(ccw))
	assert.False(t, frontFacing([3]mgl32.Vec3{ccw[0], ccw[2], ccw[1]}))

}

func TestToScreen(t *testing.T) {

	viewport := image.Rect(100, 0, 200, 100)

	x, y := toScreen(mgl32.Vec3{-1, -1, 0}, viewport, 100)
	assert.Equal(t, float32(100), x)
	assert.Equal(t, float32(100), y)

	x, y = toScreen(mgl32.Vec3{1, 1, 0}, viewport, 100)
	assert.Equal(t, float32(200), x)
	assert.Equal(t, float32(0), y)

}

func TestBlendFor(t *testing.T) {

	assert.Equal(t, ebiten.BlendCopy, blendFor(false, gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA))
	assert.Equal(t, ebiten.BlendSourceOver, blendFor(true, gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA))
	assert.Equal(t, ebiten.BlendLighter, blendFor(true, gl.ONE, gl.ONE))
	assert.Equal(t, ebiten.BlendLighter, blendFor(true, gl.SRC_ALPHA, gl.ONE))

	custom := blendFor(true, gl.DST_COLOR, gl.ZERO)
	assert.Equal(t, ebiten.BlendFactorDestinationColor, custom.BlendFactorSourceRGB)
	assert.Equal(t, ebiten.BlendFactorZero, custom.BlendFactorDestinationRGB)

}

func TestToRGBA(t *testing.T) {

	img := toRGBA(2, 1, gl.RGB, gl.UNSIGNED_BYTE, []byte{1, 2, 3, 4, 5, 6})
	require.NotNil(t, img)
	assert.Equal(t, []byte{1, 2, 3, 255, 4, 5, 6, 255}, img.Pix)

	lum := toRGBA(1, 1, gl.LUMINANCE, gl.UNSIGNED_BYTE, []byte{9})
	assert.Equal(t, []byte{9, 9, 9, 255}, lum.Pix)

	assert.Nil(t, toRGBA(2, 2, gl.RGBA, gl.UNSIGNED_BYTE, []byte{1, 2, 3}))
	assert.Nil(t, toRGBA(1, 1, gl.RGBA, gl.FLOAT, make([]byte, 16)))

}

func TestLinkProgram(t *testing.T) {

	ctx, _ := newTestContext(10, 10)

	vs := ctx.CreateShader(gl.VERTEX_SHADER)
	ctx.ShaderSource(vs, "uniform mat4 MODEL_MATRIX;\nattribute vec3 POSITION;\nattribute vec3 EXTRA;")
	ctx.CompileShader(vs)
	fs := ctx.CreateShader(gl.FRAGMENT_SHADER)
	ctx.ShaderSource(fs, "uniform sampler2D colorTex;\nuniform vec4 color;")
	ctx.CompileShader(fs)

	p := ctx.CreateProgram()
	ctx.AttachShader(p, vs)
	ctx.AttachShader(p, fs)
	ctx.BindAttribLocation(p, 0, "POSITION")
	ctx.LinkProgram(p)

	require.True(t, ctx.ProgramLinkStatus(p))
	assert.Equal(t, 0, ctx.GetAttribLocation(p, "POSITION"))
	assert.Equal(t, 1, ctx.GetAttribLocation(p, "EXTRA"))
	assert.Equal(t, -1, ctx.GetAttribLocation(p, "NORMAL"))
	assert.NotNil(t, ctx.GetUniformLocation(p, "color"))
	assert.Nil(t, ctx.GetUniformLocation(p, "missing"))

	empty := ctx.CreateShader(gl.FRAGMENT_SHADER)
	ctx.CompileShader(empty)
	assert.False(t, ctx.ShaderCompileStatus(empty))
	assert.NotEmpty(t, ctx.ShaderInfoLog(empty))

	broken := ctx.CreateProgram()
	ctx.AttachShader(broken, vs)
	ctx.AttachShader(broken, empty)
	ctx.LinkProgram(broken)
	assert.False(t, ctx.ProgramLinkStatus(broken))
	assert.NotEmpty(t, ctx.ProgramInfoLog(broken))

}

func newPreviewScene(t *testing.T, ctx *Context) (*tetraxr.Renderer, *tetraxr.Node) {

	r, err := tetraxr.NewRenderer(ctx, tetraxr.DefaultRendererOptions())
	require.NoError(t, err)

	options := tetraxr.DefaultBoxOptions()
	options.Material = tetraxr.NewUnlitMaterial(1, 0, 0, 1)
	box, err := tetraxr.NewBoxNode(r, options)
	require.NoError(t, err)

	root := tetraxr.NewNode("root")
	root.AddNode(box)
	return r, root

}

func TestRendererDrawsThroughEbiten(t *testing.T) {

	ctx, target := newTestContext(200, 100)
	r, root := newPreviewScene(t, ctx)

	view := tetraxr.NewRenderView(mgl32.Perspective(mgl32.DegToRad(60), 2, 0.1, 100), mgl32.Translate3D(0, 0, -5), nil, tetraxr.EyeNone)
	r.DrawViews([]*tetraxr.RenderView{view}, root)

	stats := ctx.Stats()
	assert.Equal(t, 1, stats.DrawCalls)
	// Only the face towards the camera survives culling.
	assert.Equal(t, 2, stats.Triangles)
	assert.Equal(t, 10, stats.Culled)

	require.Len(t, target.batches, 1)
	b := target.batches[0]
	assert.Len(t, b.vertices, 6)
	assert.Equal(t, []uint16{0, 1, 2, 3, 4, 5}, b.indices)
	assert.Equal(t, ebiten.BlendCopy, b.options.Blend)

	for _, v := range b.vertices {
		assert.Equal(t, float32(1), v.ColorR)
		assert.Equal(t, float32(0), v.ColorG)
		// The face is centered on screen.
		assert.InDelta(t, 100, v.DstX, 20)
		assert.InDelta(t, 50, v.DstY, 20)
	}

}

func TestRendererDrawsEachViewIntoItsViewport(t *testing.T) {

	ctx, target := newTestContext(200, 100)
	r, root := newPreviewScene(t, ctx)

	projection := mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100)
	views := []*tetraxr.RenderView{
		tetraxr.NewRenderView(projection, mgl32.Translate3D(0, 0, -5), &tetraxr.Viewport{X: 0, Y: 0, Width: 100, Height: 100}, tetraxr.EyeLeft),
		tetraxr.NewRenderView(projection, mgl32.Translate3D(0, 0, -5), &tetraxr.Viewport{X: 100, Y: 0, Width: 100, Height: 100}, tetraxr.EyeRight),
	}
	r.DrawViews(views, root)

	require.Len(t, target.batches, 2)
	for _, v := range target.batches[0].vertices {
		assert.InDelta(t, 50, v.DstX, 20)
	}
	for _, v := range target.batches[1].vertices {
		assert.InDelta(t, 150, v.DstX, 20)
	}

}

func TestColorMaskSkipsDrawing(t *testing.T) {

	ctx, target := newTestContext(10, 10)
	ctx.ColorMask(false, false, false, false)
	ctx.DrawArrays(gl.TRIANGLES, 0, 3)

	assert.Equal(t, 1, ctx.Stats().DrawCalls)
	assert.Empty(t, target.batches)

	ctx.ResetStats()
	assert.Zero(t, ctx.Stats().DrawCalls)

}
