package tetraxr

import (
	"fmt"

	"github.com/solarlune/tetraxr/gl"
)

type renderMaterialSampler struct {
	name     string
	unit     int
	texture  *RenderTexture
	location gl.Uniform
}

type renderMaterialUniform struct {
	name     string
	value    []float32
	location gl.Uniform
}

// RenderMaterial is the GPU side of a material as used by one RenderPrimitive: its
// program, a copy of its state, and its samplers and uniforms resolved against the
// program.
type RenderMaterial struct {
	renderer    *Renderer
	program     *Program
	state       MaterialState
	renderOrder RenderOrder

	samplers []*renderMaterialSampler
	uniforms []*renderMaterialUniform

	activeFrameID int
	firstBind     bool
}

func newRenderMaterial(renderer *Renderer, material *Material, program *Program) *RenderMaterial {

	rm := &RenderMaterial{
		renderer:    renderer,
		program:     program,
		state:       material.State,
		renderOrder: material.RenderOrder,
		firstBind:   true,
	}

	if rm.renderOrder == RenderOrderDefault {
		if rm.state.Blend() {
			rm.renderOrder = RenderOrderTransparent
		} else {
			rm.renderOrder = RenderOrderOpaque
		}
	}

	for _, s := range material.Samplers() {
		sampler := &renderMaterialSampler{name: s.Name}
		if s.Texture != nil {
			sampler.texture = renderer.renderTexture(s.Texture)
		}
		rm.samplers = append(rm.samplers, sampler)
	}

	for _, u := range material.Uniforms() {
		rm.uniforms = append(rm.uniforms, &renderMaterialUniform{
			name:  u.Name,
			value: append([]float32(nil), u.Value...),
		})
	}

	return rm

}

// Program returns the material's program.
func (rm *RenderMaterial) Program() *Program { return rm.program }

// State returns the material's packed GPU state.
func (rm *RenderMaterial) State() MaterialState { return rm.state }

// RenderOrder returns the bucket the material is drawn in. It is never RenderOrderDefault.
func (rm *RenderMaterial) RenderOrder() RenderOrder { return rm.renderOrder }

// SetTexture replaces the texture bound to the named sampler. It returns false if the
// material has no such sampler.
func (rm *RenderMaterial) SetTexture(name string, texture Texture) bool {
	for _, s := range rm.samplers {
		if s.name == name {
			s.texture = nil
			if texture != nil {
				s.texture = rm.renderer.renderTexture(texture)
			}
			return true
		}
	}
	return false
}

// SetUniform sets the value of the named uniform. It returns false if the material has
// no such uniform, and panics if the number of values doesn't match its length.
func (rm *RenderMaterial) SetUniform(name string, values ...float32) bool {
	for _, u := range rm.uniforms {
		if u.name == name {
			if len(values) != len(u.value) {
				panic(fmt.Sprintf("Error: uniform %s has %d components, got %d", name, len(u.value), len(values)))
			}
			copy(u.value, values)
			return true
		}
	}
	return false
}

// UniformValue returns the current value of the named uniform, or nil.
func (rm *RenderMaterial) UniformValue(name string) []float32 {
	for _, u := range rm.uniforms {
		if u.name == name {
			return u.value
		}
	}
	return nil
}

// markActive stamps the material's textures with the frame id, giving video textures a
// chance to refresh. Incomplete textures don't hold the material back; they're bound as
// "no texture" until they finish loading.
func (rm *RenderMaterial) markActive(frameID int) bool {
	if rm.activeFrameID != frameID {
		rm.activeFrameID = frameID
		for _, s := range rm.samplers {
			if s.texture != nil {
				s.texture.markActive(frameID)
			}
		}
	}
	return true
}

// bind binds the material's textures and uploads its uniforms to the current program.
func (rm *RenderMaterial) bind(ctx gl.Context) {

	if rm.firstBind {

		rm.firstBind = false

		samplers := rm.samplers[:0]
		for _, s := range rm.samplers {
			loc, ok := rm.program.Uniform(s.name)
			unit, hasUnit := rm.program.SamplerUnit(s.name)
			if ok && hasUnit {
				s.location = loc
				s.unit = unit
				samplers = append(samplers, s)
			}
		}
		rm.samplers = samplers

		uniforms := rm.uniforms[:0]
		for _, u := range rm.uniforms {
			if loc, ok := rm.program.Uniform(u.name); ok {
				u.location = loc
				uniforms = append(uniforms, u)
			}
		}
		rm.uniforms = uniforms

	}

	for _, s := range rm.samplers {
		ctx.ActiveTexture(gl.TEXTURE0 + gl.Enum(s.unit))
		if s.texture != nil && s.texture.complete {
			ctx.BindTexture(gl.TEXTURE_2D, s.texture.texture)
		} else {
			ctx.BindTexture(gl.TEXTURE_2D, nil)
		}
	}

	for _, u := range rm.uniforms {
		switch len(u.value) {
		case 1:
			ctx.Uniform1fv(u.location, u.value)
		case 2:
			ctx.Uniform2fv(u.location, u.value)
		case 3:
			ctx.Uniform3fv(u.location, u.value)
		case 4:
			ctx.Uniform4fv(u.location, u.value)
		}
	}

}
