package tetraxr

import (
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/tetraxr/gl"
	"github.com/solarlune/tetraxr/gl/glfake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type testMaterial struct {
	Material
	name     string
	vertex   string
	fragment string
	defines  map[string]string
}

func newTestMaterial(name string) *testMaterial {
	m := &testMaterial{
		Material: NewMaterial(),
		name:     name,
		vertex: `
attribute vec3 POSITION;
vec4 vertex_main(mat4 proj, mat4 view, mat4 model) {
  return proj * view * model * vec4(POSITION, 1.0);
}`,
		fragment: `
uniform vec4 tint;
uniform sampler2D tex;
vec4 fragment_main() {
  return tint;
}`,
	}
	m.DefineSampler("tex")
	m.DefineUniform("tint", 1, 1, 1, 1)
	return m
}

func (m *testMaterial) MaterialName() string   { return m.name }
func (m *testMaterial) VertexSource() string   { return m.vertex }
func (m *testMaterial) FragmentSource() string { return m.fragment }

func (m *testMaterial) ProgramDefines(rp *RenderPrimitive) map[string]string {
	return m.defines
}

func newTestRenderer(t testing.TB, ctx gl.Context) *Renderer {
	r, err := NewRenderer(ctx, DefaultRendererOptions())
	require.NoError(t, err)
	return r
}

func testBoxPrimitive(r *Renderer) *Primitive {
	b := NewBoxBuilder(nil)
	b.PushBox(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	return b.FinishPrimitive(r)
}

func testView() []*RenderView {
	return []*RenderView{NewRenderView(mgl32.Perspective(mgl32.DegToRad(60), 1, 0.1, 100), mgl32.Ident4(), nil, EyeNone)}
}

func TestRendererMultiviewUnsupported(t *testing.T) {
	options := DefaultRendererOptions()
	options.Multiview = true
	_, err := NewRenderer(glfake.New(), options)
	assert.ErrorIs(t, err, ErrMultiviewUnsupported)
}

func TestRendererMaterialErrors(t *testing.T) {

	r := newTestRenderer(t, glfake.New())
	prim := testBoxPrimitive(r)

	_, err := r.CreateRenderPrimitive(prim, newTestMaterial(""))
	assert.ErrorIs(t, err, ErrMaterialNoName)

	noVertex := newTestMaterial("NO_VERTEX")
	noVertex.vertex = ""
	_, err = r.CreateRenderPrimitive(prim, noVertex)
	assert.ErrorIs(t, err, ErrMaterialNoVertexSource)

	noFragment := newTestMaterial("NO_FRAGMENT")
	noFragment.fragment = ""
	_, err = r.CreateRenderPrimitive(prim, noFragment)
	assert.ErrorIs(t, err, ErrMaterialNoFragmentSource)

	assert.Equal(t, 0, r.ProgramCount())

}

func TestRendererDrawsVisibleInstances(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	rp, err := r.CreateRenderPrimitive(testBoxPrimitive(r), newTestMaterial("TEST"))
	require.NoError(t, err)
	require.True(t, rp.Complete())

	root := NewNode("root")
	a := NewNode("a")
	b := NewNode("b")
	a.AddRenderPrimitive(rp)
	b.AddRenderPrimitive(rp)
	root.AddNode(a)
	root.AddNode(b)

	ctx.Reset()
	r.DrawViews(testView(), root)
	assert.Equal(t, 2, ctx.Count("DrawElements"))
	assert.Equal(t, 2, r.Stats().DrawCalls)
	assert.Equal(t, 1, r.Stats().PrimitivesDrawn)

	b.SetVisible(false)
	ctx.Reset()
	r.DrawViews(testView(), root)
	assert.Equal(t, 1, ctx.Count("DrawElements"))

	// An invisible parent hides its whole subtree.
	root.SetVisible(false)
	ctx.Reset()
	r.DrawViews(testView(), root)
	assert.Equal(t, 0, ctx.Count("DrawElements"))

}

func TestRendererDrawsOncePerView(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	node, err := r.CreateMesh(testBoxPrimitive(r), newTestMaterial("TEST"))
	require.NoError(t, err)

	proj := mgl32.Perspective(mgl32.DegToRad(90), 1, 0.1, 100)
	views := []*RenderView{
		NewRenderView(proj, mgl32.Translate3D(0.03, 0, 0), &Viewport{0, 0, 100, 100}, EyeLeft),
		NewRenderView(proj, mgl32.Translate3D(-0.03, 0, 0), &Viewport{100, 0, 100, 100}, EyeRight),
	}

	ctx.Reset()
	r.DrawViews(views, node)

	assert.Equal(t, 2, ctx.Count("DrawElements"))

	viewports := ctx.Filter("Viewport")
	require.Len(t, viewports, 2)
	assert.Equal(t, []interface{}{100, 0, 100, 100}, viewports[1].Args)

	// The right eye's view matrix was the last one written.
	program := node.RenderPrimitives()[0].RenderMaterial().Program()
	loc, ok := program.Uniform("VIEW_MATRIX")
	require.True(t, ok)
	right := mgl32.Translate3D(-0.03, 0, 0)
	assert.Equal(t, right[:], ctx.Uniforms[loc.(glfake.UniformLocation)])

}

func TestRendererProgramCache(t *testing.T) {

	r := newTestRenderer(t, glfake.New())
	prim := testBoxPrimitive(r)

	a, err := r.CreateRenderPrimitive(prim, NewUnlitMaterial(1, 0, 0, 1))
	require.NoError(t, err)
	b, err := r.CreateRenderPrimitive(prim, NewUnlitMaterial(0, 1, 0, 1))
	require.NoError(t, err)

	assert.Same(t, a.RenderMaterial().Program(), b.RenderMaterial().Program())
	assert.Equal(t, 1, r.ProgramCount())

	textured := NewUnlitMaterial(1, 1, 1, 1)
	textured.Texture.Texture = NewColorTexture(1, 0, 0, 1)
	c, err := r.CreateRenderPrimitive(prim, textured)
	require.NoError(t, err)

	assert.NotSame(t, a.RenderMaterial().Program(), c.RenderMaterial().Program())
	assert.Equal(t, "UNLIT:USE_COLOR_MAP=1,", c.RenderMaterial().Program().Key())
	assert.Equal(t, 2, r.ProgramCount())

}

func TestProgramKeyIgnoresDefineOrder(t *testing.T) {
	a := programKey("PBR", map[string]string{"B": "1", "A": "2"})
	b := programKey("PBR", map[string]string{"A": "2", "B": "1"})
	assert.Equal(t, a, b)
	assert.Equal(t, "PBR:A=2,B=1,", a)
	assert.Equal(t, "PBR:", programKey("PBR", nil))
}

func TestRendererProgramSources(t *testing.T) {

	ctx := glfake.New()
	ctx.LowPrecision = true
	r := newTestRenderer(t, ctx)

	m := newTestMaterial("TEST")
	m.defines = map[string]string{"USE_FOG": "1"}
	rp, err := r.CreateRenderPrimitive(testBoxPrimitive(r), m)
	require.NoError(t, err)

	sources := ctx.ProgramSources(rp.RenderMaterial().Program().program)
	require.Len(t, sources, 2)

	assert.True(t, strings.HasPrefix(sources[0], "#define USE_FOG 1\n"))
	assert.Contains(t, sources[0], "uniform mat4 PROJECTION_MATRIX, VIEW_MATRIX, MODEL_MATRIX;")
	assert.Contains(t, sources[0], "gl_Position = vertex_main(PROJECTION_MATRIX, VIEW_MATRIX, MODEL_MATRIX);")

	assert.True(t, strings.HasPrefix(sources[1], "#define USE_FOG 1\n"))
	assert.Contains(t, sources[1], "precision mediump float;")
	assert.Contains(t, sources[1], "gl_FragColor = fragment_main();")

	// A source with its own precision is left alone.
	withPrecision := newTestMaterial("PRECISE")
	withPrecision.fragment = "precision highp float;\n" + withPrecision.fragment
	rp, err = r.CreateRenderPrimitive(testBoxPrimitive(r), withPrecision)
	require.NoError(t, err)

	sources = ctx.ProgramSources(rp.RenderMaterial().Program().program)
	assert.NotContains(t, sources[1], "mediump")

}

func TestRendererSamplerUnitsSetOnFirstUse(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	node, err := r.CreateMesh(testBoxPrimitive(r), newTestMaterial("TEST"))
	require.NoError(t, err)

	r.DrawViews(testView(), node)
	assert.Equal(t, 1, ctx.Count("Uniform1i"))

	ctx.Reset()
	r.DrawViews(testView(), node)
	assert.Equal(t, 0, ctx.Count("Uniform1i"))

}

func TestRendererSamplerUnitsFollowNames(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	red, blue := NewColorTexture(1, 0, 0, 1), NewColorTexture(0, 0, 1, 1)

	// Two materials sharing a program, declaring the same samplers in opposite orders.
	newMaterial := func(names ...string) *testMaterial {
		m := newTestMaterial("TWO_TEXTURES")
		m.fragment = "uniform sampler2D mask;\nuniform sampler2D albedo;\n" + m.fragment
		for _, name := range names {
			sampler := m.DefineSampler(name)
			if name == "albedo" {
				sampler.Texture = red
			} else {
				sampler.Texture = blue
			}
		}
		return m
	}

	root := NewNode("root")
	for _, m := range []*testMaterial{newMaterial("albedo", "mask"), newMaterial("mask", "albedo")} {
		node, err := r.CreateMesh(testBoxPrimitive(r), m)
		require.NoError(t, err)
		root.AddNode(node)
	}

	first := root.Children()[0].RenderPrimitives()[0].RenderMaterial()
	second := root.Children()[1].RenderPrimitives()[0].RenderMaterial()
	require.Same(t, first.Program(), second.Program())

	r.DrawViews(testView(), root)

	program := first.Program()
	albedoUnit, ok := program.SamplerUnit("albedo")
	require.True(t, ok)
	maskUnit, ok := program.SamplerUnit("mask")
	require.True(t, ok)
	assert.NotEqual(t, albedoUnit, maskUnit)

	assert.Equal(t, []float32{float32(albedoUnit)}, ctx.Uniforms[glfake.UniformLocation{Program: program.program.(glfake.Object), Name: "albedo"}])
	assert.Equal(t, []float32{float32(maskUnit)}, ctx.Uniforms[glfake.UniformLocation{Program: program.program.(glfake.Object), Name: "mask"}])

	// Every bind of a texture goes to the unit its sampler reads from.
	redTexture := r.renderTexture(red).texture
	blueTexture := r.renderTexture(blue).texture
	var active gl.Enum
	binds := 0
	for _, call := range ctx.Filter("ActiveTexture", "BindTexture") {
		if call.Name == "ActiveTexture" {
			active = call.Args[0].(gl.Enum)
			continue
		}
		switch call.Args[1] {
		case redTexture:
			assert.Equal(t, gl.TEXTURE0+gl.Enum(albedoUnit), active)
			binds++
		case blueTexture:
			assert.Equal(t, gl.TEXTURE0+gl.Enum(maskUnit), active)
			binds++
		}
	}
	assert.Equal(t, 4, binds)

}

func TestRendererStateDiffing(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)
	prim := testBoxPrimitive(r)

	root := NewNode("root")

	first, err := r.CreateMesh(prim, newTestMaterial("TEST"))
	require.NoError(t, err)
	root.AddNode(first)

	ctx.Reset()
	r.DrawViews(testView(), root)

	// Cull face, blend, depth test, stencil test, color mask, depth mask, stencil mask
	// and the depth function.
	assert.Equal(t, 8, r.Stats().StateChanges)
	assert.Equal(t, 0, ctx.Count("BlendFunc"))
	assert.Equal(t, 1, ctx.Count("DepthFunc"))

	// A second material with identical state adds no state calls.
	second, err := r.CreateMesh(prim, newTestMaterial("TEST"))
	require.NoError(t, err)
	root.AddNode(second)

	ctx.Reset()
	r.DrawViews(testView(), root)
	assert.Equal(t, 8, r.Stats().StateChanges)
	assert.Equal(t, 2, r.Stats().MaterialBinds)
	assert.Equal(t, 1, r.Stats().ProgramSwitches)
	assert.Equal(t, 1, ctx.Count("DepthFunc"))

	// A blending material in the same bucket only switches blending on.
	blended := newTestMaterial("TEST")
	blended.RenderOrder = RenderOrderOpaque
	blended.State.SetBlend(true)
	third, err := r.CreateMesh(prim, blended)
	require.NoError(t, err)
	root.AddNode(third)

	ctx.Reset()
	r.DrawViews(testView(), root)
	assert.Equal(t, 10, r.Stats().StateChanges)
	assert.Equal(t, 1, ctx.Count("BlendFunc"))
	assert.Equal(t, 1, ctx.Count("DepthFunc"))

	blendCalls := 0
	for _, call := range ctx.Filter("Enable") {
		if call.Args[0] == gl.BLEND {
			blendCalls++
		}
	}
	assert.Equal(t, 1, blendCalls)

}

func TestRendererBucketOrder(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	root := NewNode("root")

	sky, err := NewSkyboxNode(r, NewColorTexture(0, 0, 1, 1), SkyboxMono)
	require.NoError(t, err)
	root.AddNode(sky)

	box, err := NewBoxNode(r, DefaultBoxOptions())
	require.NoError(t, err)
	root.AddNode(box)

	ctx.Reset()
	r.DrawViews(testView(), root)

	draws := ctx.Filter("DrawElements")
	require.Len(t, draws, 2)
	assert.Equal(t, 36, draws[0].Args[1])
	assert.Equal(t, skyboxLatSegments*skyboxLongSegments*6, draws[1].Args[1])

	// The sky turns depth writes off; they're back on once the frame is drawn.
	masks := ctx.Filter("DepthMask")
	require.NotEmpty(t, masks)
	assert.Equal(t, []interface{}{true}, masks[len(masks)-1].Args)

}

func TestRendererFailedProgramIsSkipped(t *testing.T) {

	ctx := glfake.New()
	ctx.FailCompile = "fragment_main()"

	core, logs := observer.New(zap.ErrorLevel)
	options := DefaultRendererOptions()
	options.Logger = zap.New(core)

	r, err := NewRenderer(ctx, options)
	require.NoError(t, err)

	node, err := r.CreateMesh(testBoxPrimitive(r), newTestMaterial("BROKEN"))
	require.NoError(t, err)

	r.DrawViews(testView(), node)
	r.DrawViews(testView(), node)

	assert.Equal(t, 0, ctx.Count("DrawElements"))
	assert.Equal(t, 1, ctx.Count("DeleteProgram"))
	assert.True(t, node.RenderPrimitives()[0].RenderMaterial().Program().Failed())
	assert.Equal(t, 1, logs.FilterMessage("Fragment shader compile error").Len())

}

func TestRendererLinkFailure(t *testing.T) {

	ctx := glfake.New()
	ctx.FailLink = true

	core, logs := observer.New(zap.ErrorLevel)
	options := DefaultRendererOptions()
	options.Logger = zap.New(core)

	r, err := NewRenderer(ctx, options)
	require.NoError(t, err)

	node, err := r.CreateMesh(testBoxPrimitive(r), newTestMaterial("UNLINKED"))
	require.NoError(t, err)

	r.DrawViews(testView(), node)
	assert.Equal(t, 0, ctx.Count("DrawElements"))
	assert.Equal(t, 1, logs.FilterMessage("Program link error").Len())

}

func TestRendererAsyncBuffers(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	data := NewFuture[[]byte]()
	vertices := r.CreateRenderBufferAsync(gl.ARRAY_BUFFER, data, gl.STATIC_DRAW)
	assert.False(t, vertices.Complete())

	// Updates made before the data arrives are applied after it.
	r.UpdateRenderBuffer(vertices, Float32Bytes([]float32{9}), 4)

	prim := NewPrimitive([]*PrimitiveAttribute{
		NewPrimitiveAttribute("POSITION", vertices, 3, 0, 0),
	}, 3, gl.TRIANGLES)

	node, err := r.CreateMesh(prim, newTestMaterial("TEST"))
	require.NoError(t, err)
	rp := node.RenderPrimitives()[0]
	assert.False(t, rp.Complete())

	r.DrawViews(testView(), node)
	assert.Equal(t, 0, ctx.Count("DrawArrays"))

	data.Resolve(Float32Bytes([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0}))

	require.Eventually(t, func() bool {
		r.Poll()
		return rp.Complete()
	}, time.Second, time.Millisecond)

	assert.True(t, vertices.Complete())
	assert.Equal(t, 1, ctx.Count("BufferSubData"))

	ctx.Reset()
	r.DrawViews(testView(), node)
	assert.Equal(t, 1, ctx.Count("DrawArrays"))

}

func TestRendererAsyncBufferFailure(t *testing.T) {

	r := newTestRenderer(t, glfake.New())

	data := NewFuture[[]byte]()
	buffer := r.CreateRenderBufferAsync(gl.ARRAY_BUFFER, data, gl.STATIC_DRAW)

	prim := NewPrimitive([]*PrimitiveAttribute{
		NewPrimitiveAttribute("POSITION", buffer, 3, 0, 0),
	}, 3, gl.TRIANGLES)
	rp, err := r.CreateRenderPrimitive(prim, newTestMaterial("TEST"))
	require.NoError(t, err)

	loadErr := errors.New("network down")
	data.Reject(loadErr)

	require.Eventually(t, func() bool {
		r.Poll()
		return rp.WaitForComplete().Ready()
	}, time.Second, time.Millisecond)

	_, err, _ = rp.WaitForComplete().Result()
	assert.ErrorIs(t, err, loadErr)
	assert.False(t, rp.Complete())

}

func TestRendererUpdateRenderBuffer(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	b := r.CreateRenderBuffer(gl.ARRAY_BUFFER, []byte{1, 2, 3, 4}, gl.DYNAMIC_DRAW)
	assert.Equal(t, 4, b.Len())

	ctx.Reset()
	r.UpdateRenderBuffer(b, []byte{9}, 2)
	assert.Equal(t, 1, ctx.Count("BufferSubData"))

	r.UpdateRenderBuffer(b, []byte{5, 6, 7, 8, 9, 10}, 0)
	assert.Equal(t, 1, ctx.Count("BufferData"))
	assert.Equal(t, 6, b.Len())

}

func TestRendererTextureCache(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	a := r.renderTexture(NewColorTexture(1, 0, 0, 1))
	b := r.renderTexture(NewColorTexture(1, 0, 0, 1))
	c := r.renderTexture(NewColorTexture(0, 1, 0, 1))

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, ctx.Count("CreateTexture"))
	assert.True(t, a.Complete())

	w, h := a.Size()
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	assert.Panics(t, func() { r.renderTexture(NewVideoTexture("", nil)) })

}

func TestRendererImageTextureUploadsOnRenderThread(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	texture := NewImageTextureFromImage(img)

	rt := r.renderTexture(texture)
	assert.False(t, rt.Complete())

	assert.Equal(t, 1, r.Poll())
	assert.True(t, rt.Complete())

	uploaded := false
	for _, tex := range ctx.Textures {
		if tex.Width == 3 && tex.Height == 2 {
			uploaded = true
			assert.Equal(t, []byte{255, 0, 0, 255}, tex.Pixels[:4])
		}
	}
	assert.True(t, uploaded)

	// Non power of two textures are clamped and not mipmapped.
	assert.Equal(t, 0, ctx.Count("GenerateMipmap"))

}

type testFrameSource struct {
	frames int
}

func (s *testFrameSource) Frame() (*image.RGBA, bool) {
	s.frames++
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), true
}

func TestRendererVideoTextureRefreshesOncePerFrame(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	source := &testFrameSource{}
	m := newTestMaterial("VIDEO")
	m.Sampler("tex").Texture = NewVideoTexture("video.mp4", source)

	root := NewNode("root")
	for i := 0; i < 2; i++ {
		node, err := r.CreateMesh(testBoxPrimitive(r), m)
		require.NoError(t, err)
		root.AddNode(node)
	}

	r.DrawViews(testView(), root)
	assert.Equal(t, 1, source.frames)

	r.DrawViews(testView(), root)
	assert.Equal(t, 2, source.frames)

}

func TestRendererVertexArrays(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	node, err := r.CreateMesh(testBoxPrimitive(r), newTestMaterial("TEST"))
	require.NoError(t, err)

	ctx.Reset()
	r.DrawViews(testView(), node)
	assert.Equal(t, 1, ctx.Count("CreateVertexArray"))
	assert.Equal(t, 3, ctx.Count("VertexAttribPointer"))

	// The second frame reuses the recorded vertex state.
	ctx.Reset()
	r.DrawViews(testView(), node)
	assert.Equal(t, 0, ctx.Count("CreateVertexArray"))
	assert.Equal(t, 0, ctx.Count("VertexAttribPointer"))
	assert.Equal(t, 2, ctx.Count("BindVertexArray"))

}

func TestRendererWithoutVertexArrays(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, glfake.NoVertexArrays{Context: ctx})

	root := NewNode("root")
	for i := 0; i < 2; i++ {
		node, err := r.CreateMesh(testBoxPrimitive(r), newTestMaterial("TEST"))
		require.NoError(t, err)
		root.AddNode(node)
	}

	ctx.Reset()
	r.DrawViews(testView(), root)

	assert.Equal(t, 0, ctx.Count("CreateVertexArray"))
	assert.Equal(t, 6, ctx.Count("VertexAttribPointer"))

	// Enabled arrays are only toggled when the attribute set changes, and both
	// primitives have the same attributes.
	assert.Equal(t, len(attribs), ctx.Count("EnableVertexAttribArray")+ctx.Count("DisableVertexAttribArray"))

}

func TestRendererRemoveRenderPrimitive(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	node, err := r.CreateMesh(testBoxPrimitive(r), newTestMaterial("TEST"))
	require.NoError(t, err)
	rp := node.RenderPrimitives()[0]

	r.DrawViews(testView(), node)
	r.RemoveRenderPrimitive(rp)

	assert.Empty(t, node.RenderPrimitives())
	assert.Empty(t, r.RenderPrimitives(RenderOrderOpaque))
	assert.Equal(t, 1, ctx.Count("DeleteVertexArray"))

	ctx.Reset()
	r.DrawViews(testView(), node)
	assert.Equal(t, 0, ctx.Count("DrawElements"))

}

func TestRendererRelease(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	node, err := NewBoxNode(r, BoxOptions{
		Min:      mgl32.Vec3{-1, -1, -1},
		Max:      mgl32.Vec3{1, 1, 1},
		Material: NewUnlitMaterial(1, 1, 1, 1),
	})
	require.NoError(t, err)
	r.DrawViews(testView(), node)

	ctx.Reset()
	r.Release()

	assert.Equal(t, 1, ctx.Count("DeleteProgram"))
	assert.Equal(t, 2, ctx.Count("DeleteBuffer"))
	assert.Equal(t, 0, r.ProgramCount())
	assert.Empty(t, ctx.Buffers)

}

func TestRenderOrderDefaultResolution(t *testing.T) {

	r := newTestRenderer(t, glfake.New())
	prim := testBoxPrimitive(r)

	opaque, err := r.CreateRenderPrimitive(prim, newTestMaterial("TEST"))
	require.NoError(t, err)
	assert.Equal(t, RenderOrderOpaque, opaque.RenderMaterial().RenderOrder())

	m := newTestMaterial("TEST")
	m.State.SetBlend(true)
	transparent, err := r.CreateRenderPrimitive(prim, m)
	require.NoError(t, err)
	assert.Equal(t, RenderOrderTransparent, transparent.RenderMaterial().RenderOrder())

	cursor, err := r.CreateRenderPrimitive(prim, NewCursorMaterial())
	require.NoError(t, err)
	assert.Equal(t, RenderOrderAdditive, cursor.RenderMaterial().RenderOrder())

	assert.Len(t, r.RenderPrimitives(RenderOrderOpaque), 1)
	assert.Len(t, r.RenderPrimitives(RenderOrderTransparent), 1)
	assert.Nil(t, r.RenderPrimitives(RenderOrderDefault))

}

func TestRenderMaterialUniformOverrides(t *testing.T) {

	ctx := glfake.New()
	r := newTestRenderer(t, ctx)

	m := newTestMaterial("TEST")
	node, err := r.CreateMesh(testBoxPrimitive(r), m)
	require.NoError(t, err)
	rm := node.RenderPrimitives()[0].RenderMaterial()

	// The RenderMaterial holds its own copy of the authoring values.
	m.Uniform("tint").Set(0, 0, 0, 0)
	assert.Equal(t, []float32{1, 1, 1, 1}, rm.UniformValue("tint"))

	assert.True(t, rm.SetUniform("tint", 0.5, 0.5, 0.5, 1))
	assert.False(t, rm.SetUniform("missing", 1))
	assert.Panics(t, func() { rm.SetUniform("tint", 1) })

	r.DrawViews(testView(), node)

	loc, ok := rm.Program().Uniform("tint")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 1}, ctx.Uniforms[loc.(glfake.UniformLocation)])

	assert.True(t, rm.SetTexture("tex", NewColorTexture(1, 1, 1, 1)))
	assert.False(t, rm.SetTexture("nope", nil))

}
