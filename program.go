package tetraxr

import (
	"sort"
	"strings"

	"github.com/solarlune/tetraxr/gl"
	"go.uber.org/zap"
)

// Program is a compiled and linked shader program shared by every material with the
// same name and defines. Link status is checked the first time the program is used; a
// program that failed to compile or link is logged once and never used again.
type Program struct {
	ctx    gl.Context
	logger *zap.Logger

	key     string
	program gl.Program
	vert    gl.Shader
	frag    gl.Shader
	sources [2]string

	attrib  map[string]int
	uniform map[string]gl.Uniform

	samplerUnits map[string]int // Texture unit per sampler name, in name order

	firstUse  bool
	failed    bool
	onNextUse []func(*Program)
}

// programKey returns the cache key for a material name and set of defines.
func programKey(name string, defines map[string]string) string {

	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb := strings.Builder{}
	sb.WriteString(name)
	sb.WriteString(":")
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString("=")
		sb.WriteString(defines[k])
		sb.WriteString(",")
	}
	return sb.String()

}

func definesHeader(defines map[string]string) string {

	keys := make([]string, 0, len(defines))
	for k := range defines {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sb := strings.Builder{}
	for _, k := range keys {
		sb.WriteString("#define ")
		sb.WriteString(k)
		sb.WriteString(" ")
		sb.WriteString(defines[k])
		sb.WriteString("\n")
	}
	return sb.String()

}

func newProgram(ctx gl.Context, logger *zap.Logger, key, vertexSource, fragmentSource string, defines map[string]string) *Program {

	header := definesHeader(defines)

	p := &Program{
		ctx:      ctx,
		logger:   logger,
		key:      key,
		attrib:   map[string]int{},
		uniform:  map[string]gl.Uniform{},
		firstUse: true,
		sources:  [2]string{header + vertexSource, header + fragmentSource},

		samplerUnits: map[string]int{},
	}

	for unit, name := range gl.ParseSamplers(p.sources[0], p.sources[1]) {
		p.samplerUnits[name] = unit
	}

	p.program = ctx.CreateProgram()

	p.vert = ctx.CreateShader(gl.VERTEX_SHADER)
	ctx.AttachShader(p.program, p.vert)
	ctx.ShaderSource(p.vert, p.sources[0])
	ctx.CompileShader(p.vert)

	p.frag = ctx.CreateShader(gl.FRAGMENT_SHADER)
	ctx.AttachShader(p.program, p.frag)
	ctx.ShaderSource(p.frag, p.sources[1])
	ctx.CompileShader(p.frag)

	for _, a := range attribs {
		ctx.BindAttribLocation(p.program, a.location, a.name)
	}

	ctx.LinkProgram(p.program)

	return p

}

// Key returns the program's cache key.
func (p *Program) Key() string { return p.key }

// Failed returns true if the program failed to compile or link.
func (p *Program) Failed() bool { return p.failed }

// Uniform returns the location of the named uniform. ok is false if the program doesn't
// use the uniform (or hasn't been used yet).
func (p *Program) Uniform(name string) (gl.Uniform, bool) {
	u, ok := p.uniform[name]
	return u, ok
}

// SamplerUnit returns the texture unit the named sampler reads from. Units are
// assigned by sampler name, so every material sharing the program agrees on them
// whatever order it declares its samplers in.
func (p *Program) SamplerUnit(name string) (int, bool) {
	unit, ok := p.samplerUnits[name]
	return unit, ok
}

// Attrib returns the location of the named vertex attribute, or -1.
func (p *Program) Attrib(name string) int {
	if a, ok := p.attrib[name]; ok {
		return a
	}
	return -1
}

// OnNextUse registers fn to run the next time the program is made current.
func (p *Program) OnNextUse(fn func(*Program)) {
	p.onNextUse = append(p.onNextUse, fn)
}

// Use makes the program current. It returns false if the program is unusable.
func (p *Program) Use() bool {

	if p.failed {
		return false
	}

	if p.firstUse {

		p.firstUse = false

		if !p.ctx.ProgramLinkStatus(p.program) {
			p.fail()
			return false
		}

		for _, name := range gl.ParseAttributes(p.sources[0]) {
			if loc := p.ctx.GetAttribLocation(p.program, name); loc >= 0 {
				p.attrib[name] = loc
			}
		}

		for _, name := range gl.ParseUniforms(p.sources[0], p.sources[1]) {
			if loc := p.ctx.GetUniformLocation(p.program, name); loc != nil {
				p.uniform[name] = loc
			}
		}

	}

	p.ctx.UseProgram(p.program)

	if len(p.onNextUse) > 0 {
		callbacks := p.onNextUse
		p.onNextUse = nil
		for _, cb := range callbacks {
			cb(p)
		}
	}

	return true

}

func (p *Program) fail() {

	p.failed = true

	if !p.ctx.ShaderCompileStatus(p.vert) {
		p.logger.Error("Vertex shader compile error",
			zap.String("program", p.key),
			zap.String("log", p.ctx.ShaderInfoLog(p.vert)),
			zap.String("source", p.sources[0]))
	} else if !p.ctx.ShaderCompileStatus(p.frag) {
		p.logger.Error("Fragment shader compile error",
			zap.String("program", p.key),
			zap.String("log", p.ctx.ShaderInfoLog(p.frag)),
			zap.String("source", p.sources[1]))
	} else {
		p.logger.Error("Program link error",
			zap.String("program", p.key),
			zap.String("log", p.ctx.ProgramInfoLog(p.program)))
	}

	p.release()

}

func (p *Program) release() {
	if p.program != nil {
		p.ctx.DeleteShader(p.vert)
		p.ctx.DeleteShader(p.frag)
		p.ctx.DeleteProgram(p.program)
		p.program = nil
	}
}

func (p *Program) setUniformMatrix(name string, m []float32) {
	if loc, ok := p.uniform[name]; ok {
		p.ctx.UniformMatrix4fv(loc, m)
	}
}

func (p *Program) setUniform3(name string, v []float32) {
	if loc, ok := p.uniform[name]; ok {
		p.ctx.Uniform3fv(loc, v)
	}
}

func (p *Program) setUniformInt(name string, v int) {
	if loc, ok := p.uniform[name]; ok {
		p.ctx.Uniform1i(loc, v)
	}
}
