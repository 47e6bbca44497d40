package tetraxr

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Camera is a Node that produces a RenderView: its world transform places the viewer and
// its projection settings describe the lens. Cameras look down their local -Z axis.
type Camera struct {
	*Node

	width, height int

	perspective bool
	fieldOfView float32 // Vertical field of view, in degrees
	orthoScale  float32 // Horizontal width of an orthographic view, in world units
	near, far   float32

	updateProjectionMatrix bool
	cachedProjectionMatrix mgl32.Mat4
}

// NewCamera creates a new perspective Camera with a 60 degree vertical field of view,
// rendering to a target of the given size.
func NewCamera(w, h int) *Camera {

	camera := &Camera{
		Node:                   NewNode("Camera"),
		perspective:            true,
		fieldOfView:            60,
		orthoScale:             20,
		near:                   0.1,
		far:                    1000,
		updateProjectionMatrix: true,
	}

	camera.Resize(w, h)

	return camera
}

// Resize sets the size of the camera's render target. If the size is unchanged, the
// function does nothing.
func (camera *Camera) Resize(w, h int) {
	if w == camera.width && h == camera.height {
		return
	}
	camera.width = w
	camera.height = h
	camera.updateProjectionMatrix = true
}

// Size returns the width and height of the camera's render target.
func (camera *Camera) Size() (w, h int) {
	return camera.width, camera.height
}

// AspectRatio returns the camera's width divided by its height.
func (camera *Camera) AspectRatio() float32 {
	if camera.height == 0 {
		return 1
	}
	return float32(camera.width) / float32(camera.height)
}

// ViewMatrix returns the Camera's view matrix: the inverse of its world transform.
func (camera *Camera) ViewMatrix() mgl32.Mat4 {
	return camera.WorldMatrix().Inv()
}

// Projection returns the Camera's projection matrix.
func (camera *Camera) Projection() mgl32.Mat4 {

	if !camera.updateProjectionMatrix {
		return camera.cachedProjectionMatrix
	}

	camera.updateProjectionMatrix = false

	if camera.perspective {
		camera.cachedProjectionMatrix = mgl32.Perspective(mgl32.DegToRad(camera.fieldOfView), camera.AspectRatio(), camera.near, camera.far)
	} else {
		halfW := camera.orthoScale / 2
		halfH := halfW / camera.AspectRatio()
		camera.cachedProjectionMatrix = mgl32.Ortho(-halfW, halfW, -halfH, halfH, camera.near, camera.far)
	}

	return camera.cachedProjectionMatrix

}

// SetPerspective sets the Camera's projection to be a perspective (true) or orthographic (false) projection.
func (camera *Camera) SetPerspective(perspective bool) {
	if camera.perspective == perspective {
		return
	}
	camera.perspective = perspective
	camera.updateProjectionMatrix = true
}

// Perspective returns whether the Camera is perspective or not (orthographic).
func (camera *Camera) Perspective() bool {
	return camera.perspective
}

// SetFieldOfView sets the vertical field of the view of the camera in degrees.
func (camera *Camera) SetFieldOfView(fovY float32) {
	if camera.fieldOfView == fovY {
		return
	}
	camera.fieldOfView = fovY
	camera.updateProjectionMatrix = true
}

// FieldOfView returns the vertical field of view in degrees.
func (camera *Camera) FieldOfView() float32 {
	return camera.fieldOfView
}

// SetOrthoScale sets the scale of an orthographic camera in world units across (horizontally).
func (camera *Camera) SetOrthoScale(scale float32) {
	if camera.orthoScale == scale {
		return
	}
	camera.orthoScale = scale
	camera.updateProjectionMatrix = true
}

// OrthoScale returns the scale of an orthographic camera in world units across (horizontally).
func (camera *Camera) OrthoScale() float32 {
	return camera.orthoScale
}

// Near returns the near plane of a camera.
func (camera *Camera) Near() float32 {
	return camera.near
}

// SetNear sets the near plane of a camera.
func (camera *Camera) SetNear(near float32) {
	if camera.near == near {
		return
	}
	camera.near = near
	camera.updateProjectionMatrix = true
}

// Far returns the far plane of a camera.
func (camera *Camera) Far() float32 {
	return camera.far
}

// SetFar sets the far plane of the camera.
func (camera *Camera) SetFar(far float32) {
	if camera.far == far {
		return
	}
	camera.far = far
	camera.updateProjectionMatrix = true
}

// RenderView returns a mono RenderView covering the camera's whole render target.
func (camera *Camera) RenderView() *RenderView {
	return NewRenderView(camera.Projection(), camera.ViewMatrix(), &Viewport{Width: camera.width, Height: camera.height}, EyeNone)
}

// WorldToScreen transforms a 3D position in the world to a pixel position on the camera's
// render target, with (0, 0) at the top left. The Z coordinate is the clip space W, the
// distance in front of the camera; it's negative for points behind it.
func (camera *Camera) WorldToScreen(point mgl32.Vec3) mgl32.Vec3 {

	clip := camera.Projection().Mul4(camera.ViewMatrix()).Mul4x1(point.Vec4(1))

	w := clip.W()
	if w == 0 {
		w = 1e-6
	}

	return mgl32.Vec3{
		(clip.X()/w + 1) / 2 * float32(camera.width),
		(1 - clip.Y()/w) / 2 * float32(camera.height),
		clip.W(),
	}

}

// ScreenToWorld converts a pixel position on the camera's render target to the world
// position at the given depth (0 on the near plane, 1 on the far plane).
func (camera *Camera) ScreenToWorld(x, y, depth float32) mgl32.Vec3 {

	ndc := mgl32.Vec4{
		x/float32(camera.width)*2 - 1,
		1 - y/float32(camera.height)*2,
		depth*2 - 1,
		1,
	}

	out := camera.Projection().Mul4(camera.ViewMatrix()).Inv().Mul4x1(ndc)
	if out.W() == 0 {
		return out.Vec3()
	}
	return out.Vec3().Mul(1 / out.W())

}

// PickRay returns a ray matrix for the pixel at x, y, fit for Node.HitTest and
// Scene.UpdatePointers: it's placed on the near plane under the pixel, with its -Z axis
// heading away from the camera through the pixel.
func (camera *Camera) PickRay(x, y float32) mgl32.Mat4 {

	origin := camera.ScreenToWorld(x, y, 0)
	target := camera.ScreenToWorld(x, y, 1)

	up := camera.WorldMatrix().Col(1).Vec3()
	if up.Len() == 0 {
		up = mgl32.Vec3{0, 1, 0}
	}

	return mgl32.LookAtV(origin, target, up.Normalize()).Inv()

}
