package tetraxr

import (
	"fmt"

	"github.com/solarlune/tetraxr/gl"
)

// RenderOrder determines which bucket a material's primitives are drawn in. Buckets are
// drawn in increasing order; within a bucket primitives are drawn in creation order.
type RenderOrder int

const (
	RenderOrderOpaque      RenderOrder = iota // RenderOrderOpaque is drawn first.
	RenderOrderSky                            // RenderOrderSky is drawn after opaque geometry, so covered sky pixels are rejected by the depth test.
	RenderOrderTransparent                    // RenderOrderTransparent is drawn after everything opaque. It is not depth sorted.
	RenderOrderAdditive                       // RenderOrderAdditive is drawn last.
	RenderOrderDefault                        // RenderOrderDefault resolves to RenderOrderTransparent if the material blends, and RenderOrderOpaque otherwise.
)

const renderOrderCount = int(RenderOrderAdditive) + 1

func (o RenderOrder) String() string {
	switch o {
	case RenderOrderOpaque:
		return "Opaque"
	case RenderOrderSky:
		return "Sky"
	case RenderOrderTransparent:
		return "Transparent"
	case RenderOrderAdditive:
		return "Additive"
	case RenderOrderDefault:
		return "Default"
	}
	return fmt.Sprintf("RenderOrder(%d)", int(o))
}

// MaterialState is a packed description of the fixed-function GPU state a material
// needs. Boolean capabilities occupy the low byte; blend source, blend destination and
// depth function each occupy a four bit range above it.
type MaterialState uint32

const (
	StateCullFace    MaterialState = 0x001
	StateBlend       MaterialState = 0x002
	StateDepthTest   MaterialState = 0x004
	StateStencilTest MaterialState = 0x008
	StateColorMask   MaterialState = 0x010
	StateDepthMask   MaterialState = 0x020
	StateStencilMask MaterialState = 0x040

	StateCapsRange      MaterialState = 0x0000FF
	StateBlendSrcShift                = 8
	StateBlendSrcRange  MaterialState = 0x000F00
	StateBlendDstShift                = 12
	StateBlendDstRange  MaterialState = 0x00F000
	StateBlendFuncRange MaterialState = 0x00FF00
	StateDepthFuncShift               = 16
	StateDepthFuncRange MaterialState = 0x0F0000
)

// DefaultMaterialState culls back faces, depth tests with LESS, writes color and depth,
// and blends with SRC_ALPHA / ONE_MINUS_SRC_ALPHA once blending is switched on.
const DefaultMaterialState = StateCullFace | StateDepthTest | StateColorMask | StateDepthMask |
	MaterialState(4<<StateBlendSrcShift) | MaterialState(5<<StateBlendDstShift) | MaterialState(1<<StateDepthFuncShift)

func stateToBlendFunc(state MaterialState, mask MaterialState, shift uint) gl.Enum {
	value := uint32(state&mask) >> shift
	switch value {
	case 0:
		return gl.ZERO
	case 1:
		return gl.ONE
	}
	return gl.Enum(value-2) + gl.SRC_COLOR
}

func blendFuncToState(fn gl.Enum) MaterialState {
	switch fn {
	case gl.ZERO:
		return 0
	case gl.ONE:
		return 1
	}
	if fn < gl.SRC_COLOR || fn > gl.SRC_ALPHA_SATURATE {
		panic(fmt.Sprintf("Error: invalid blend function 0x%04X", uint32(fn)))
	}
	return MaterialState(fn-gl.SRC_COLOR) + 2
}

func (s *MaterialState) setBit(bit MaterialState, on bool) {
	if on {
		*s |= bit
	} else {
		*s &^= bit
	}
}

func (s MaterialState) CullFace() bool    { return s&StateCullFace != 0 }
func (s MaterialState) Blend() bool       { return s&StateBlend != 0 }
func (s MaterialState) DepthTest() bool   { return s&StateDepthTest != 0 }
func (s MaterialState) StencilTest() bool { return s&StateStencilTest != 0 }
func (s MaterialState) ColorMask() bool   { return s&StateColorMask != 0 }
func (s MaterialState) DepthMask() bool   { return s&StateDepthMask != 0 }
func (s MaterialState) StencilMask() bool { return s&StateStencilMask != 0 }

func (s *MaterialState) SetCullFace(v bool)    { s.setBit(StateCullFace, v) }
func (s *MaterialState) SetBlend(v bool)       { s.setBit(StateBlend, v) }
func (s *MaterialState) SetDepthTest(v bool)   { s.setBit(StateDepthTest, v) }
func (s *MaterialState) SetStencilTest(v bool) { s.setBit(StateStencilTest, v) }
func (s *MaterialState) SetColorMask(v bool)   { s.setBit(StateColorMask, v) }
func (s *MaterialState) SetDepthMask(v bool)   { s.setBit(StateDepthMask, v) }
func (s *MaterialState) SetStencilMask(v bool) { s.setBit(StateStencilMask, v) }

// BlendFuncSrc returns the source blend factor.
func (s MaterialState) BlendFuncSrc() gl.Enum {
	return stateToBlendFunc(s, StateBlendSrcRange, StateBlendSrcShift)
}

// SetBlendFuncSrc sets the source blend factor. It panics on anything that isn't a blend factor.
func (s *MaterialState) SetBlendFuncSrc(fn gl.Enum) {
	*s = (*s &^ StateBlendSrcRange) | (blendFuncToState(fn) << StateBlendSrcShift)
}

// BlendFuncDst returns the destination blend factor.
func (s MaterialState) BlendFuncDst() gl.Enum {
	return stateToBlendFunc(s, StateBlendDstRange, StateBlendDstShift)
}

// SetBlendFuncDst sets the destination blend factor. It panics on anything that isn't a blend factor.
func (s *MaterialState) SetBlendFuncDst(fn gl.Enum) {
	*s = (*s &^ StateBlendDstRange) | (blendFuncToState(fn) << StateBlendDstShift)
}

// DepthFunc returns the depth comparison function.
func (s MaterialState) DepthFunc() gl.Enum {
	return gl.Enum(uint32(s&StateDepthFuncRange)>>StateDepthFuncShift) + gl.NEVER
}

// SetDepthFunc sets the depth comparison function. It panics on anything that isn't a depth function.
func (s *MaterialState) SetDepthFunc(fn gl.Enum) {
	if fn < gl.NEVER || fn > gl.ALWAYS {
		panic(fmt.Sprintf("Error: invalid depth function 0x%04X", uint32(fn)))
	}
	*s = (*s &^ StateDepthFuncRange) | (MaterialState(fn-gl.NEVER) << StateDepthFuncShift)
}

func (s MaterialState) capsDiff(other MaterialState) bool {
	return s&StateCapsRange != other&StateCapsRange
}

func (s MaterialState) blendDiff(other MaterialState) bool {
	return s&StateBlendFuncRange != other&StateBlendFuncRange
}

func (s MaterialState) depthFuncDiff(other MaterialState) bool {
	return s&StateDepthFuncRange != other&StateDepthFuncRange
}

// MaterialSampler is a named texture slot on a Material.
type MaterialSampler struct {
	Name    string
	Texture Texture
}

// MaterialUniform is a named float vector (of one to four components) on a Material.
type MaterialUniform struct {
	Name  string
	Value []float32
}

// Set sets the uniform's value. It panics if the number of values doesn't match the
// uniform's length.
func (u *MaterialUniform) Set(values ...float32) {
	if len(values) != len(u.Value) {
		panic(fmt.Sprintf("Error: uniform %s has %d components, got %d", u.Name, len(u.Value), len(values)))
	}
	copy(u.Value, values)
}

// Material is the shared authoring state of a material: its fixed-function state, its
// render order and its sampler and uniform slots. Concrete materials embed Material and
// add the MaterialDescriptor methods.
type Material struct {
	State       MaterialState
	RenderOrder RenderOrder

	samplers []*MaterialSampler
	uniforms []*MaterialUniform
}

// NewMaterial returns a Material with the default state and render order.
func NewMaterial() Material {
	return Material{
		State:       DefaultMaterialState,
		RenderOrder: RenderOrderDefault,
	}
}

// MaterialBase returns the Material itself, so that any type embedding Material
// provides it to the renderer.
func (m *Material) MaterialBase() *Material {
	return m
}

// DefineSampler adds a texture slot named after the sampler uniform that reads it.
func (m *Material) DefineSampler(uniformName string) *MaterialSampler {
	sampler := &MaterialSampler{Name: uniformName}
	m.samplers = append(m.samplers, sampler)
	return sampler
}

// DefineUniform adds a float uniform slot with the given default value, which also
// determines the uniform's length. It panics if the length isn't between 1 and 4.
func (m *Material) DefineUniform(uniformName string, defaultValue ...float32) *MaterialUniform {
	if len(defaultValue) < 1 || len(defaultValue) > 4 {
		panic(fmt.Sprintf("Error: uniform %s must have between 1 and 4 components, got %d", uniformName, len(defaultValue)))
	}
	uniform := &MaterialUniform{Name: uniformName, Value: append([]float32(nil), defaultValue...)}
	m.uniforms = append(m.uniforms, uniform)
	return uniform
}

// Samplers returns the material's sampler slots in definition order.
func (m *Material) Samplers() []*MaterialSampler {
	return m.samplers
}

// Uniforms returns the material's uniform slots in definition order.
func (m *Material) Uniforms() []*MaterialUniform {
	return m.uniforms
}

// Sampler returns the sampler slot with the given name, or nil.
func (m *Material) Sampler(name string) *MaterialSampler {
	for _, s := range m.samplers {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Uniform returns the uniform slot with the given name, or nil.
func (m *Material) Uniform(name string) *MaterialUniform {
	for _, u := range m.uniforms {
		if u.Name == name {
			return u
		}
	}
	return nil
}

// ProgramDefines returns no defines; materials with optional features override it.
func (m *Material) ProgramDefines(rp *RenderPrimitive) map[string]string {
	return nil
}

// MaterialDescriptor is what the renderer needs from a material. The vertex source must
// define `vec4 vertex_main(mat4 proj, mat4 view, mat4 model)` and the fragment source
// `vec4 fragment_main()`; the renderer adds the entry points.
type MaterialDescriptor interface {
	MaterialName() string
	VertexSource() string
	FragmentSource() string
	// ProgramDefines returns the preprocessor defines to compile the material with when
	// drawing the given primitive. Programs are cached per name and defines.
	ProgramDefines(rp *RenderPrimitive) map[string]string
	MaterialBase() *Material
}
