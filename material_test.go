package tetraxr

import (
	"testing"

	"github.com/solarlune/tetraxr/gl"
	"github.com/stretchr/testify/assert"
)

func TestMaterialStateRangesDontOverlap(t *testing.T) {
	ranges := []MaterialState{StateCapsRange, StateBlendSrcRange, StateBlendDstRange, StateDepthFuncRange}
	for i, a := range ranges {
		for _, b := range ranges[i+1:] {
			assert.Zero(t, a&b, "0x%06X overlaps 0x%06X", uint32(a), uint32(b))
		}
	}
	assert.Equal(t, StateBlendSrcRange|StateBlendDstRange, StateBlendFuncRange)
}

func TestMaterialStateDefaults(t *testing.T) {

	s := DefaultMaterialState

	assert.True(t, s.CullFace())
	assert.False(t, s.Blend())
	assert.True(t, s.DepthTest())
	assert.False(t, s.StencilTest())
	assert.True(t, s.ColorMask())
	assert.True(t, s.DepthMask())
	assert.False(t, s.StencilMask())

	assert.Equal(t, gl.Enum(gl.SRC_ALPHA), s.BlendFuncSrc())
	assert.Equal(t, gl.Enum(gl.ONE_MINUS_SRC_ALPHA), s.BlendFuncDst())
	assert.Equal(t, gl.Enum(gl.LESS), s.DepthFunc())

}

func TestMaterialStateBlendFuncs(t *testing.T) {

	funcs := []gl.Enum{
		gl.ZERO, gl.ONE,
		gl.SRC_COLOR, gl.ONE_MINUS_SRC_COLOR,
		gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA,
		gl.DST_ALPHA, gl.ONE_MINUS_DST_ALPHA,
		gl.DST_COLOR, gl.ONE_MINUS_DST_COLOR,
		gl.SRC_ALPHA_SATURATE,
	}

	for _, src := range funcs {
		for _, dst := range funcs {
			s := DefaultMaterialState
			s.SetBlendFuncSrc(src)
			s.SetBlendFuncDst(dst)
			assert.Equal(t, src, s.BlendFuncSrc())
			assert.Equal(t, dst, s.BlendFuncDst())
			// Nothing outside the blend ranges moves.
			assert.Equal(t, DefaultMaterialState&^StateBlendFuncRange, s&^StateBlendFuncRange)
		}
	}

	s := DefaultMaterialState
	assert.Panics(t, func() { s.SetBlendFuncSrc(gl.LESS) })

}

func TestMaterialStateDepthFuncs(t *testing.T) {

	for fn := gl.Enum(gl.NEVER); fn <= gl.ALWAYS; fn++ {
		s := DefaultMaterialState
		s.SetDepthFunc(fn)
		assert.Equal(t, fn, s.DepthFunc())
		assert.Equal(t, DefaultMaterialState&^StateDepthFuncRange, s&^StateDepthFuncRange)
	}

	s := DefaultMaterialState
	assert.Panics(t, func() { s.SetDepthFunc(gl.ONE) })

}

func TestMaterialStateCaps(t *testing.T) {

	var s MaterialState
	s.SetBlend(true)
	s.SetStencilTest(true)
	assert.Equal(t, StateBlend|StateStencilTest, s)

	s.SetBlend(false)
	assert.Equal(t, StateStencilTest, s)

	assert.True(t, s.capsDiff(DefaultMaterialState))
	assert.False(t, DefaultMaterialState.capsDiff(DefaultMaterialState|MaterialState(7<<StateDepthFuncShift)))

}

func TestMaterialSlots(t *testing.T) {

	m := NewMaterial()
	assert.Equal(t, RenderOrderDefault, m.RenderOrder)

	sampler := m.DefineSampler("albedo")
	uniform := m.DefineUniform("tint", 1, 0.5, 0.25)

	assert.Same(t, sampler, m.Sampler("albedo"))
	assert.Same(t, uniform, m.Uniform("tint"))
	assert.Nil(t, m.Sampler("tint"))
	assert.Nil(t, m.Uniform("albedo"))

	uniform.Set(0, 0, 1)
	assert.Equal(t, []float32{0, 0, 1}, m.Uniform("tint").Value)

	assert.Panics(t, func() { uniform.Set(1) })
	assert.Panics(t, func() { m.DefineUniform("empty") })
	assert.Panics(t, func() { m.DefineUniform("big", 1, 2, 3, 4, 5) })

}

func TestRenderOrderString(t *testing.T) {
	assert.Equal(t, "Sky", RenderOrderSky.String())
	assert.Equal(t, "RenderOrder(9)", RenderOrder(9).String())
}

func TestBuiltinMaterials(t *testing.T) {

	sky := NewSkyboxMaterial()
	assert.Equal(t, RenderOrderSky, sky.RenderOrder)
	assert.False(t, sky.State.DepthMask())
	assert.Equal(t, gl.Enum(gl.LEQUAL), sky.State.DepthFunc())

	sky.SetStereoMode(SkyboxOverUnder)
	assert.Equal(t, []float32{1, 0.5, 0, 0.5}, sky.TexCoordScaleOffset[1].Value)
	sky.SetStereoMode(SkyboxSideBySide)
	assert.Equal(t, []float32{0.5, 1, 0.5, 0}, sky.TexCoordScaleOffset[1].Value)

	cursor := NewCursorMaterial()
	assert.Equal(t, RenderOrderAdditive, cursor.RenderOrder)
	assert.True(t, cursor.State.Blend())
	assert.False(t, cursor.State.CullFace())
	assert.Equal(t, gl.Enum(gl.ONE), cursor.State.BlendFuncDst())

}
