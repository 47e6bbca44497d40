package tetraxr

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/solarlune/tetraxr/gl"
)

const streamVertexSize = 8 // position (3), texcoord (2), normal (3)

// PrimitiveStream builds an interleaved, indexed triangle list one vertex and triangle
// at a time. Vertices are pushed between StartGeometry and EndGeometry; the indices
// given to PushTriangle are relative to the last StartGeometry call.
type PrimitiveStream struct {
	vertices []float32
	indices  []uint16

	geometryStarted bool
	geometryOffset  int

	flipWinding   bool
	invertNormals bool
	transform     *mgl32.Mat4
	normalMatrix  mgl32.Mat3

	min, max mgl32.Vec3
}

// NewPrimitiveStream returns an empty PrimitiveStream.
func NewPrimitiveStream() *PrimitiveStream {
	return &PrimitiveStream{}
}

// SetFlipWinding sets whether triangles pushed from now on have their winding reversed.
func (s *PrimitiveStream) SetFlipWinding(flip bool) {
	s.checkGeometryClosed("SetFlipWinding")
	s.flipWinding = flip
}

// FlipWinding returns whether triangle winding is being reversed.
func (s *PrimitiveStream) FlipWinding() bool { return s.flipWinding }

// SetInvertNormals sets whether normals pushed from now on are negated.
func (s *PrimitiveStream) SetInvertNormals(invert bool) {
	s.checkGeometryClosed("SetInvertNormals")
	s.invertNormals = invert
}

// InvertNormals returns whether normals are being negated.
func (s *PrimitiveStream) InvertNormals() bool { return s.invertNormals }

// SetTransform sets a matrix applied to positions (and, through its normal matrix, to
// normals) pushed from now on. A nil transform pushes vertices unchanged.
func (s *PrimitiveStream) SetTransform(transform *mgl32.Mat4) {
	s.checkGeometryClosed("SetTransform")
	if transform == nil {
		s.transform = nil
		return
	}
	t := *transform
	s.transform = &t
	s.normalMatrix = t.Mat3().Inv().Transpose()
}

func (s *PrimitiveStream) checkGeometryClosed(op string) {
	if s.geometryStarted {
		panic(fmt.Sprintf("Error: PrimitiveStream.%s() can't be called between StartGeometry() and EndGeometry()", op))
	}
}

// StartGeometry opens a run of vertices and triangles.
func (s *PrimitiveStream) StartGeometry() {
	if s.geometryStarted {
		panic("Error: PrimitiveStream.StartGeometry() called twice without EndGeometry()")
	}
	s.geometryStarted = true
	s.geometryOffset = s.VertexCount()
}

// EndGeometry closes the run opened by StartGeometry.
func (s *PrimitiveStream) EndGeometry() {
	if !s.geometryStarted {
		panic("Error: PrimitiveStream.EndGeometry() called without StartGeometry()")
	}
	s.geometryStarted = false
}

// VertexCount returns the number of vertices in the stream.
func (s *PrimitiveStream) VertexCount() int {
	return len(s.vertices) / streamVertexSize
}

// NextVertexIndex returns the index the next pushed vertex will get, relative to the
// current geometry.
func (s *PrimitiveStream) NextVertexIndex() int {
	return s.VertexCount() - s.geometryOffset
}

// PushVertex adds a vertex and returns its index relative to the current geometry.
func (s *PrimitiveStream) PushVertex(x, y, z, u, v, nx, ny, nz float32) int {

	if !s.geometryStarted {
		panic("Error: PrimitiveStream.PushVertex() called outside of StartGeometry() and EndGeometry()")
	}

	if s.VertexCount() > math.MaxUint16 {
		panic("Error: PrimitiveStream can't index more than 65536 vertices")
	}

	pos := mgl32.Vec3{x, y, z}
	normal := mgl32.Vec3{nx, ny, nz}

	if s.transform != nil {
		pos = mgl32.TransformCoordinate(pos, *s.transform)
		normal = s.normalMatrix.Mul3x1(normal)
		if l := normal.Len(); l > 0 {
			normal = normal.Mul(1 / l)
		}
	}

	if s.invertNormals {
		normal = normal.Mul(-1)
	}

	if s.VertexCount() == 0 {
		s.min, s.max = pos, pos
	} else {
		for i := 0; i < 3; i++ {
			s.min[i] = float32(math.Min(float64(s.min[i]), float64(pos[i])))
			s.max[i] = float32(math.Max(float64(s.max[i]), float64(pos[i])))
		}
	}

	index := s.NextVertexIndex()
	s.vertices = append(s.vertices, pos[0], pos[1], pos[2], u, v, normal[0], normal[1], normal[2])
	return index

}

// PushTriangle adds a triangle from three vertex indices of the current geometry.
func (s *PrimitiveStream) PushTriangle(a, b, c int) {

	if !s.geometryStarted {
		panic("Error: PrimitiveStream.PushTriangle() called outside of StartGeometry() and EndGeometry()")
	}

	count := s.NextVertexIndex()
	for _, i := range [3]int{a, b, c} {
		if i < 0 || i >= count {
			panic(fmt.Sprintf("Error: PrimitiveStream.PushTriangle() index %d is out of range; only %d vertices were pushed in this geometry", i, count))
		}
	}

	if s.flipWinding {
		b, c = c, b
	}

	offset := s.geometryOffset
	s.indices = append(s.indices, uint16(offset+a), uint16(offset+b), uint16(offset+c))

}

// Clear empties the stream. Winding, normal and transform settings are kept.
func (s *PrimitiveStream) Clear() {
	s.checkGeometryClosed("Clear")
	s.vertices = s.vertices[:0]
	s.indices = s.indices[:0]
	s.geometryOffset = 0
	s.min, s.max = mgl32.Vec3{}, mgl32.Vec3{}
}

// FinishPrimitive uploads the stream to renderer as one interleaved vertex buffer and
// one index buffer, and returns the Primitive describing them. It returns nil if the
// stream holds no triangles.
func (s *PrimitiveStream) FinishPrimitive(renderer *Renderer) *Primitive {

	s.checkGeometryClosed("FinishPrimitive")

	if len(s.indices) == 0 {
		return nil
	}

	vertexBuffer := renderer.CreateRenderBuffer(gl.ARRAY_BUFFER, Float32Bytes(s.vertices), gl.STATIC_DRAW)
	indexBuffer := renderer.CreateRenderBuffer(gl.ELEMENT_ARRAY_BUFFER, Uint16Bytes(s.indices), gl.STATIC_DRAW)

	stride := streamVertexSize * 4

	primitive := NewPrimitive([]*PrimitiveAttribute{
		NewPrimitiveAttribute("POSITION", vertexBuffer, 3, stride, 0),
		NewPrimitiveAttribute("TEXCOORD_0", vertexBuffer, 2, stride, 12),
		NewPrimitiveAttribute("NORMAL", vertexBuffer, 3, stride, 20),
	}, len(s.indices), gl.TRIANGLES)

	primitive.SetIndexBuffer(indexBuffer, 0, gl.UNSIGNED_SHORT)
	primitive.SetBounds(s.min, s.max)

	return primitive

}
