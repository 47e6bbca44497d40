package tetraxr

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// BoxBuilder pushes axis aligned boxes into a PrimitiveStream.
type BoxBuilder struct {
	Stream *PrimitiveStream
}

// NewBoxBuilder returns a BoxBuilder writing into stream, or into a new stream if it's nil.
func NewBoxBuilder(stream *PrimitiveStream) *BoxBuilder {
	if stream == nil {
		stream = NewPrimitiveStream()
	}
	return &BoxBuilder{Stream: stream}
}

// PushBox adds a box spanning min to max, with four vertices per face so that every
// face has its own normal and full 0 - 1 texture coordinates.
func (b *BoxBuilder) PushBox(min, max mgl32.Vec3) {

	s := b.Stream
	s.StartGeometry()

	face := func(nx, ny, nz float32, corners [4]mgl32.Vec3) {
		idx := s.NextVertexIndex()
		uvs := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
		for i, c := range corners {
			s.PushVertex(c[0], c[1], c[2], uvs[i][0], uvs[i][1], nx, ny, nz)
		}
		s.PushTriangle(idx, idx+1, idx+2)
		s.PushTriangle(idx+2, idx+3, idx)
	}

	// Front
	face(0, 0, 1, [4]mgl32.Vec3{
		{min[0], min[1], max[2]},
		{max[0], min[1], max[2]},
		{max[0], max[1], max[2]},
		{min[0], max[1], max[2]},
	})

	// Back
	face(0, 0, -1, [4]mgl32.Vec3{
		{max[0], min[1], min[2]},
		{min[0], min[1], min[2]},
		{min[0], max[1], min[2]},
		{max[0], max[1], min[2]},
	})

	// Right
	face(1, 0, 0, [4]mgl32.Vec3{
		{max[0], min[1], max[2]},
		{max[0], min[1], min[2]},
		{max[0], max[1], min[2]},
		{max[0], max[1], max[2]},
	})

	// Left
	face(-1, 0, 0, [4]mgl32.Vec3{
		{min[0], min[1], min[2]},
		{min[0], min[1], max[2]},
		{min[0], max[1], max[2]},
		{min[0], max[1], min[2]},
	})

	// Top
	face(0, 1, 0, [4]mgl32.Vec3{
		{min[0], max[1], max[2]},
		{max[0], max[1], max[2]},
		{max[0], max[1], min[2]},
		{min[0], max[1], min[2]},
	})

	// Bottom
	face(0, -1, 0, [4]mgl32.Vec3{
		{min[0], min[1], min[2]},
		{max[0], min[1], min[2]},
		{max[0], min[1], max[2]},
		{min[0], min[1], max[2]},
	})

	s.EndGeometry()

}

// PushCube adds a cube of the given size centered on center.
func (b *BoxBuilder) PushCube(center mgl32.Vec3, size float32) {
	half := mgl32.Vec3{size / 2, size / 2, size / 2}
	b.PushBox(center.Sub(half), center.Add(half))
}

// FinishPrimitive uploads the boxes pushed so far; see PrimitiveStream.FinishPrimitive.
func (b *BoxBuilder) FinishPrimitive(renderer *Renderer) *Primitive {
	return b.Stream.FinishPrimitive(renderer)
}

// BoxOptions describes the box created by NewBoxNode.
type BoxOptions struct {
	Min, Max mgl32.Vec3
	// InsideOut makes the box visible from the inside, for rooms and the like.
	InsideOut bool
	// Material defaults to a white PBRMaterial.
	Material MaterialDescriptor
	// Selectable makes the box take part in hit testing.
	Selectable bool
}

// DefaultBoxOptions returns options for a unit cube centered on the origin.
func DefaultBoxOptions() BoxOptions {
	return BoxOptions{
		Min: mgl32.Vec3{-0.5, -0.5, -0.5},
		Max: mgl32.Vec3{0.5, 0.5, 0.5},
	}
}

// NewBoxNode returns a Node drawing a single box through renderer.
func NewBoxNode(renderer *Renderer, options BoxOptions) (*Node, error) {

	builder := NewBoxBuilder(nil)
	if options.InsideOut {
		builder.Stream.SetFlipWinding(true)
		builder.Stream.SetInvertNormals(true)
	}
	builder.PushBox(options.Min, options.Max)

	material := options.Material
	if material == nil {
		material = NewPBRMaterial()
	}

	node, err := renderer.CreateMesh(builder.FinishPrimitive(renderer), material)
	if err != nil {
		return nil, err
	}

	node.SetName("Box")
	node.SetSelectable(options.Selectable)
	return node, nil

}

const (
	skyboxLatSegments  = 40
	skyboxLongSegments = 40
	skyboxRadius       = 1
)

// NewSkyboxNode returns a Node drawing texture on the inside of a sphere around the
// viewer. The sphere's translation is ignored when drawn, so it never gets closer.
func NewSkyboxNode(renderer *Renderer, texture Texture, stereo SkyboxStereoMode) (*Node, error) {

	s := NewPrimitiveStream()
	s.StartGeometry()

	for i := 0; i <= skyboxLatSegments; i++ {

		theta := float64(i) * math.Pi / skyboxLatSegments
		sinTheta, cosTheta := math.Sincos(theta)

		for j := 0; j <= skyboxLongSegments; j++ {

			phi := float64(j) * 2 * math.Pi / skyboxLongSegments
			sinPhi, cosPhi := math.Sincos(phi)

			x := float32(cosPhi * sinTheta)
			y := float32(cosTheta)
			z := float32(sinPhi * sinTheta)
			u := 1 - float32(j)/skyboxLongSegments
			v := float32(i) / skyboxLatSegments

			// Normals point at the viewer in the middle.
			s.PushVertex(x*skyboxRadius, y*skyboxRadius, z*skyboxRadius, u, v, -x, -y, -z)

		}

	}

	// These triangles wind counter-clockwise when seen from the inside.
	for i := 0; i < skyboxLatSegments; i++ {
		for j := 0; j < skyboxLongSegments; j++ {
			first := i*(skyboxLongSegments+1) + j
			second := first + skyboxLongSegments + 1
			s.PushTriangle(first, second, first+1)
			s.PushTriangle(second, second+1, first+1)
		}
	}

	s.EndGeometry()

	material := NewSkyboxMaterial()
	material.Image.Texture = texture
	material.SetStereoMode(stereo)

	node, err := renderer.CreateMesh(s.FinishPrimitive(renderer), material)
	if err != nil {
		return nil, err
	}

	node.SetName("Skybox")
	return node, nil

}
