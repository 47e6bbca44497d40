package tetraxr

import "github.com/go-gl/mathgl/mgl32"

// Eye identifies which eye a RenderView is drawn for.
type Eye int

const (
	EyeNone  Eye = iota // EyeNone is a mono view.
	EyeLeft             // EyeLeft is the left eye of a stereo pair.
	EyeRight            // EyeRight is the right eye of a stereo pair.
)

func (e Eye) String() string {
	switch e {
	case EyeLeft:
		return "left"
	case EyeRight:
		return "right"
	}
	return "none"
}

// Viewport is a rectangle of the render target, in pixels.
type Viewport struct {
	X, Y          int
	Width, Height int
}

// RenderView is one view to draw the scene from: a projection, a view matrix, and
// optionally the part of the render target it covers.
type RenderView struct {
	ProjectionMatrix mgl32.Mat4
	ViewMatrix       mgl32.Mat4
	Viewport         *Viewport
	Eye              Eye
}

// NewRenderView returns a RenderView from a projection and view matrix. viewport may
// be nil, in which case the viewport is left alone.
func NewRenderView(projection, view mgl32.Mat4, viewport *Viewport, eye Eye) *RenderView {
	return &RenderView{
		ProjectionMatrix: projection,
		ViewMatrix:       view,
		Viewport:         viewport,
		Eye:              eye,
	}
}

// NewRenderViewFromTransform returns a RenderView for a viewer placed by the rigid
// transform viewTransform (the view matrix is its inverse).
func NewRenderViewFromTransform(projection, viewTransform mgl32.Mat4, viewport *Viewport, eye Eye) *RenderView {
	return NewRenderView(projection, viewTransform.Inv(), viewport, eye)
}

// EyeIndex returns 0 for the left eye and 1 otherwise. It's handed to programs through
// the EYE_INDEX uniform.
func (v *RenderView) EyeIndex() int {
	if v.Eye == EyeLeft {
		return 0
	}
	return 1
}

// CameraPosition returns the world position the view is seen from.
func (v *RenderView) CameraPosition() mgl32.Vec3 {
	return v.ViewMatrix.Inv().Col(3).Vec3()
}
