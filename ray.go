package tetraxr

import "github.com/go-gl/mathgl/mgl32"

// Ray is a half-line used for picking. Its inverse direction and direction signs are
// computed whenever the direction is set, so intersection tests don't redo the work.
type Ray struct {
	Origin mgl32.Vec3

	dir    mgl32.Vec3
	invDir mgl32.Vec3
	sign   [3]int
}

// NewRay returns the ray starting at (0, 0, 0) and pointing down -Z, transformed by matrix.
func NewRay(matrix mgl32.Mat4) *Ray {
	r := &Ray{
		Origin: mgl32.TransformCoordinate(mgl32.Vec3{}, matrix),
	}
	r.SetDirection(matrix.Mat3().Mul3x1(mgl32.Vec3{0, 0, -1}))
	return r
}

// NewRayFromPoints returns a ray starting at origin and heading through target.
func NewRayFromPoints(origin, target mgl32.Vec3) *Ray {
	r := &Ray{Origin: origin}
	r.SetDirection(target.Sub(origin))
	return r
}

// Direction returns the ray's normalized direction.
func (r *Ray) Direction() mgl32.Vec3 {
	return r.dir
}

// SetDirection sets the ray's direction, normalizing it.
func (r *Ray) SetDirection(dir mgl32.Vec3) {
	r.dir = dir.Normalize()
	for i := 0; i < 3; i++ {
		r.invDir[i] = 1 / r.dir[i]
		r.sign[i] = 0
		if r.invDir[i] < 0 {
			r.sign[i] = 1
		}
	}
}

// IntersectsAABB tests the ray against the axis aligned box from min to max. It returns
// the first intersection point in front of the origin (the exit point if the origin is
// inside the box), pulled back towards the origin by RayIntersectionOffset.
func (r *Ray) IntersectsAABB(min, max mgl32.Vec3) (mgl32.Vec3, bool) {

	bounds := [2]mgl32.Vec3{min, max}

	tmin := (bounds[r.sign[0]][0] - r.Origin[0]) * r.invDir[0]
	tmax := (bounds[1-r.sign[0]][0] - r.Origin[0]) * r.invDir[0]
	tymin := (bounds[r.sign[1]][1] - r.Origin[1]) * r.invDir[1]
	tymax := (bounds[1-r.sign[1]][1] - r.Origin[1]) * r.invDir[1]

	if tmin > tymax || tymin > tmax {
		return mgl32.Vec3{}, false
	}
	if tymin > tmin {
		tmin = tymin
	}
	if tymax < tmax {
		tmax = tymax
	}

	tzmin := (bounds[r.sign[2]][2] - r.Origin[2]) * r.invDir[2]
	tzmax := (bounds[1-r.sign[2]][2] - r.Origin[2]) * r.invDir[2]

	if tmin > tzmax || tzmin > tmax {
		return mgl32.Vec3{}, false
	}
	if tzmin > tmin {
		tmin = tzmin
	}
	if tzmax < tmax {
		tmax = tzmax
	}

	var t float32
	switch {
	case tmin > 0 && tmax > 0:
		t = tmin
		if tmax < t {
			t = tmax
		}
	case tmin > 0:
		t = tmin
	case tmax > 0:
		t = tmax
	default:
		return mgl32.Vec3{}, false
	}

	t -= RayIntersectionOffset

	return r.Origin.Add(r.dir.Mul(t)), true

}
