package ebitengl

import (
	"encoding/binary"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/solarlune/tetraxr/gl"
)

// maxBatchVertices keeps every batch addressable with uint16 indices.
const maxBatchVertices = math.MaxUint16 - 2

const ambientLight = 0.25

// colorUniforms are checked in order for the color a program tints its triangles with.
var colorUniforms = []string{"baseColorFactor", "color", "cursorColor", "tint"}

// colorSamplers are preferred over other samplers when picking the texture to draw with.
var colorSamplers = []string{"baseColorTex", "colorTex", "diffuse"}

type triangle struct {
	vertices [3]ebiten.Vertex
	depth    float32
}

// DrawArrays draws count vertices starting at first.
func (c *Context) DrawArrays(mode gl.Enum, first, count int) {
	c.draw(mode, count, func(i int) int { return first + i })
}

// DrawElements draws count indices read from the bound element array buffer.
func (c *Context) DrawElements(mode gl.Enum, count int, indexType gl.Enum, offset int) {
	indices := c.elementBuffer
	c.draw(mode, count, func(i int) int {
		if indices == nil {
			return -1
		}
		return readIndex(indices.data, offset, i, indexType)
	})
}

func readIndex(data []byte, offset, i int, indexType gl.Enum) int {
	size := gl.TypeSize(indexType)
	at := offset + i*size
	if size == 0 || at < 0 || at+size > len(data) {
		return -1
	}
	switch indexType {
	case gl.UNSIGNED_BYTE:
		return int(data[at])
	case gl.UNSIGNED_SHORT:
		return int(binary.LittleEndian.Uint16(data[at:]))
	case gl.UNSIGNED_INT:
		return int(binary.LittleEndian.Uint32(data[at:]))
	}
	return -1
}

// assemble returns the element positions making up each triangle drawn by mode, or
// nil if mode doesn't draw triangles.
func assemble(mode gl.Enum, count int) [][3]int {

	tris := [][3]int{}

	switch mode {

	case gl.TRIANGLES:
		for i := 0; i+2 < count; i += 3 {
			tris = append(tris, [3]int{i, i + 1, i + 2})
		}

	case gl.TRIANGLE_STRIP:
		for i := 0; i+2 < count; i++ {
			if i%2 == 0 {
				tris = append(tris, [3]int{i, i + 1, i + 2})
			} else {
				tris = append(tris, [3]int{i + 1, i, i + 2})
			}
		}

	case gl.TRIANGLE_FAN:
		for i := 1; i+1 < count; i++ {
			tris = append(tris, [3]int{0, i, i + 1})
		}

	default:
		return nil

	}

	return tris

}

// readAttrib reads vertex's components of the attribute into dst, returning how many it
// read. Components the attribute doesn't have keep dst's values.
func readAttrib(a *attribPointer, vertex int, dst []float32) int {

	if a == nil || !a.enabled || a.buffer == nil {
		return 0
	}

	size := gl.TypeSize(a.componentType)
	if size == 0 {
		return 0
	}

	stride := a.stride
	if stride == 0 {
		stride = size * a.size
	}

	start := a.offset + vertex*stride
	n := a.size
	if n > len(dst) {
		n = len(dst)
	}

	if vertex < 0 || start < 0 || start+size*n > len(a.buffer.data) {
		return 0
	}

	for i := 0; i < n; i++ {
		dst[i] = readComponent(a.buffer.data[start+i*size:], a.componentType, a.normalized)
	}

	return n

}

func readComponent(data []byte, componentType gl.Enum, normalized bool) float32 {

	switch componentType {

	case gl.FLOAT:
		return math.Float32frombits(binary.LittleEndian.Uint32(data))

	case gl.UNSIGNED_BYTE:
		if normalized {
			return float32(data[0]) / math.MaxUint8
		}
		return float32(data[0])

	case gl.BYTE:
		v := float32(int8(data[0]))
		if normalized {
			return float32(math.Max(float64(v)/math.MaxInt8, -1))
		}
		return v

	case gl.UNSIGNED_SHORT:
		v := float32(binary.LittleEndian.Uint16(data))
		if normalized {
			return v / math.MaxUint16
		}
		return v

	case gl.SHORT:
		v := float32(int16(binary.LittleEndian.Uint16(data)))
		if normalized {
			return float32(math.Max(float64(v)/math.MaxInt16, -1))
		}
		return v

	case gl.UNSIGNED_INT:
		return float32(binary.LittleEndian.Uint32(data))

	case gl.INT:
		return float32(int32(binary.LittleEndian.Uint32(data)))

	}

	return 0

}

func (p *program) matrix(name string) mgl32.Mat4 {
	m := mgl32.Ident4()
	if v := p.floats[name]; len(v) == 16 {
		copy(m[:], v)
	}
	return m
}

func (p *program) vec(name string, dst []float32) bool {
	v := p.floats[name]
	if len(v) == 0 {
		return false
	}
	copy(dst, v)
	return true
}

func (c *Context) attrib(p *program, name string) *attribPointer {
	index, ok := p.attribs[name]
	if !ok || index < 0 || index >= maxAttribs || !c.attribs[index].enabled {
		return nil
	}
	return &c.attribs[index]
}

// samplerTexture returns the texture bound to the unit of the program's color sampler,
// falling back to any sampler with a texture bound.
func (c *Context) samplerTexture(p *program) *texture {

	lookup := func(name string) *texture {
		unit, ok := p.ints[name]
		if !ok || unit < 0 || unit >= maxTextureUnits {
			return nil
		}
		if t := c.units[unit]; t != nil && t.pixels != nil {
			return t
		}
		return nil
	}

	for _, name := range colorSamplers {
		if t := lookup(name); t != nil {
			return t
		}
	}

	for _, name := range p.samplers {
		if t := lookup(name); t != nil {
			return t
		}
	}

	return nil

}

func (c *Context) whiteImage() *ebiten.Image {
	if c.white == nil {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.White)
		c.white = c.NewImage(img)
	}
	return c.white
}

func (c *Context) textureImage(t *texture) *ebiten.Image {
	if t.image == nil {
		t.image = c.NewImage(t.pixels)
	}
	return t.image
}

func (c *Context) draw(mode gl.Enum, count int, element func(i int) int) {

	c.stats.DrawCalls++

	prog := c.current
	if prog == nil || !prog.linked || !c.colorMask || c.target == nil || count <= 0 {
		return
	}

	tris := assemble(mode, count)
	if tris == nil {
		c.stats.Unsupported++
		return
	}

	position := c.attrib(prog, "POSITION")
	if position == nil {
		return
	}

	normal := c.attrib(prog, "NORMAL")
	texCoord := c.attrib(prog, "TEXCOORD_0")
	vertexColor := c.attrib(prog, "COLOR_0")

	model := prog.matrix("MODEL_MATRIX")
	mvp := prog.matrix("PROJECTION_MATRIX").Mul4(prog.matrix("VIEW_MATRIX")).Mul4(model)

	base := [4]float32{1, 1, 1, 1}
	for _, name := range colorUniforms {
		if prog.vec(name, base[:]) {
			break
		}
	}

	lit := prog.declared["LIGHT_DIRECTION"] && normal != nil
	lightDir := mgl32.Vec3{0, -1, 0}
	lightColor := mgl32.Vec3{1, 1, 1}
	prog.vec("LIGHT_DIRECTION", lightDir[:])
	prog.vec("LIGHT_COLOR", lightColor[:])
	toLight := lightDir.Mul(-1)
	if toLight.Len() > 0 {
		toLight = toLight.Normalize()
	}

	tex := c.samplerTexture(prog)
	var img *ebiten.Image
	if tex != nil {
		img = c.textureImage(tex)
	} else {
		img = c.whiteImage()
	}

	bounds := c.target.Bounds()
	viewport := bounds
	if c.hasViewport {
		viewport = c.viewport
	}

	c.tris = c.tris[:0]

	for _, corners := range tris {

		tri := triangle{}
		var clip [3]mgl32.Vec4
		valid := true

		for k, corner := range corners {

			index := element(corner)
			if index < 0 {
				valid = false
				break
			}

			pos := [3]float32{}
			if readAttrib(position, index, pos[:]) == 0 {
				valid = false
				break
			}

			clip[k] = mvp.Mul4x1(mgl32.Vec4{pos[0], pos[1], pos[2], 1})

			rgba := base
			if lit {
				n := [3]float32{0, 1, 0}
				readAttrib(normal, index, n[:])
				world := model.Mul4x1(mgl32.Vec4{n[0], n[1], n[2], 0}).Vec3()
				diffuse := float32(0)
				if world.Len() > 0 {
					diffuse = mgl32.Clamp(world.Normalize().Dot(toLight), 0, 1)
				}
				for ch := 0; ch < 3; ch++ {
					rgba[ch] *= mgl32.Clamp(ambientLight+(1-ambientLight)*diffuse*lightColor[ch], 0, 1)
				}
			}

			if vertexColor != nil {
				vc := [4]float32{1, 1, 1, 1}
				readAttrib(vertexColor, index, vc[:])
				for ch := range rgba {
					rgba[ch] *= vc[ch]
				}
			}

			v := &tri.vertices[k]
			v.ColorR, v.ColorG, v.ColorB, v.ColorA = rgba[0], rgba[1], rgba[2], rgba[3]

			if tex != nil && texCoord != nil {
				uv := [2]float32{}
				readAttrib(texCoord, index, uv[:])
				v.SrcX = uv[0] * float32(tex.width)
				v.SrcY = uv[1] * float32(tex.height)
			} else {
				v.SrcX, v.SrcY = 0.5, 0.5
			}

		}

		if !valid {
			continue
		}

		if clipped(clip) {
			c.stats.Clipped++
			continue
		}

		var ndc [3]mgl32.Vec3
		for k := range clip {
			ndc[k] = clip[k].Vec3().Mul(1 / clip[k].W())
		}

		if c.caps[gl.CULL_FACE] && !frontFacing(ndc) {
			c.stats.Culled++
			continue
		}

		for k := range ndc {
			x, y := toScreen(ndc[k], viewport, bounds.Dy())
			tri.vertices[k].DstX, tri.vertices[k].DstY = x, y
		}

		tri.depth = (ndc[0].Z() + ndc[1].Z() + ndc[2].Z()) / 3
		c.tris = append(c.tris, tri)

	}

	if c.caps[gl.DEPTH_TEST] {
		sortBackToFront(c.tris)
	}

	options := &ebiten.DrawTrianglesOptions{
		Blend:   blendFor(c.caps[gl.BLEND], c.blendSrc, c.blendDst),
		Filter:  ebiten.FilterLinear,
		Address: ebiten.AddressUnsafe,
	}

	if tex != nil {
		options.Filter = filterFor(tex.filter)
		options.Address = addressFor(tex.wrap)
	}

	c.vertices = c.vertices[:0]
	c.indices = c.indices[:0]

	flush := func() {
		if len(c.vertices) == 0 {
			return
		}
		c.target.DrawTriangles(c.vertices, c.indices, img, options)
		c.stats.Batches++
		c.vertices = c.vertices[:0]
		c.indices = c.indices[:0]
	}

	for _, tri := range c.tris {
		if len(c.vertices)+3 > maxBatchVertices {
			flush()
		}
		start := uint16(len(c.vertices))
		c.vertices = append(c.vertices, tri.vertices[:]...)
		c.indices = append(c.indices, start, start+1, start+2)
		c.stats.Triangles++
	}

	flush()

}

// clipped returns true if the triangle crosses the camera plane or lies entirely
// outside one side of the view volume.
func clipped(clip [3]mgl32.Vec4) bool {

	for _, v := range clip {
		if v.W() <= 1e-6 {
			return true
		}
	}

	for axis := 0; axis < 3; axis++ {
		below, above := 0, 0
		for _, v := range clip {
			if v[axis] < -v.W() {
				below++
			}
			if v[axis] > v.W() {
				above++
			}
		}
		if below == 3 || above == 3 {
			return true
		}
	}

	return false

}

// frontFacing reports whether the triangle winds counter-clockwise in normalized
// device coordinates.
func frontFacing(ndc [3]mgl32.Vec3) bool {
	ab := ndc[1].Sub(ndc[0])
	ac := ndc[2].Sub(ndc[0])
	return ab.X()*ac.Y()-ab.Y()*ac.X() > 0
}

// toScreen maps a point in normalized device coordinates into a viewport given with a
// bottom-left origin, returning top-left origin pixel coordinates.
func toScreen(ndc mgl32.Vec3, viewport image.Rectangle, targetHeight int) (float32, float32) {
	x := float32(viewport.Min.X) + (ndc.X()+1)/2*float32(viewport.Dx())
	y := float32(viewport.Min.Y) + (ndc.Y()+1)/2*float32(viewport.Dy())
	return x, float32(targetHeight) - y
}

func sortBackToFront(tris []triangle) {
	sort.SliceStable(tris, func(i, j int) bool { return tris[i].depth > tris[j].depth })
}

func blendFor(enabled bool, src, dst gl.Enum) ebiten.Blend {

	if !enabled {
		return ebiten.BlendCopy
	}

	switch {
	case src == gl.SRC_ALPHA && dst == gl.ONE_MINUS_SRC_ALPHA, src == gl.ONE && dst == gl.ONE_MINUS_SRC_ALPHA:
		return ebiten.BlendSourceOver
	case dst == gl.ONE && (src == gl.ONE || src == gl.SRC_ALPHA):
		return ebiten.BlendLighter
	}

	return ebiten.Blend{
		BlendFactorSourceRGB:        blendFactor(src),
		BlendFactorSourceAlpha:      blendFactor(src),
		BlendFactorDestinationRGB:   blendFactor(dst),
		BlendFactorDestinationAlpha: blendFactor(dst),
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}

}

// blendFactor maps a GL blend factor onto ebiten's. ebiten works with premultiplied
// colors, so a source already scaled by its alpha takes SRC_ALPHA as ONE.
func blendFactor(fn gl.Enum) ebiten.BlendFactor {
	switch fn {
	case gl.ZERO:
		return ebiten.BlendFactorZero
	case gl.SRC_COLOR:
		return ebiten.BlendFactorSourceColor
	case gl.ONE_MINUS_SRC_COLOR:
		return ebiten.BlendFactorOneMinusSourceColor
	case gl.ONE_MINUS_SRC_ALPHA:
		return ebiten.BlendFactorOneMinusSourceAlpha
	case gl.DST_ALPHA:
		return ebiten.BlendFactorDestinationAlpha
	case gl.ONE_MINUS_DST_ALPHA:
		return ebiten.BlendFactorOneMinusDestinationAlpha
	case gl.DST_COLOR:
		return ebiten.BlendFactorDestinationColor
	case gl.ONE_MINUS_DST_COLOR:
		return ebiten.BlendFactorOneMinusDestinationColor
	}
	return ebiten.BlendFactorOne
}

func filterFor(filter gl.Enum) ebiten.Filter {
	if filter == gl.NEAREST {
		return ebiten.FilterNearest
	}
	return ebiten.FilterLinear
}

func addressFor(wrap gl.Enum) ebiten.Address {
	if wrap == gl.REPEAT || wrap == gl.MIRRORED_REPEAT {
		return ebiten.AddressRepeat
	}
	return ebiten.AddressClampToZero
}
