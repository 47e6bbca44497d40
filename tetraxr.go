// Package tetraxr is a retained-mode scene graph and renderer for stereo (XR) and
// desktop sample applications.
//
// Nodes form a tree with lazily computed world matrices and instance shared GPU
// primitives. Once per frame the Renderer marks the visible subtree active, walks its
// render order buckets, and issues the minimum set of program, material state and
// vertex state changes needed to draw every active instance once per view.
//
// All GPU work goes through a gl.Context; see the gl, ebitengl and webgl packages.
package tetraxr

import "errors"

// Attribute semantics understood by the renderer. The values are the vertex attribute
// locations each semantic is bound to in every program.
const (
	AttribPosition  = 1
	AttribNormal    = 2
	AttribTangent   = 3
	AttribTexCoord0 = 4
	AttribTexCoord1 = 5
	AttribColor0    = 6
)

// Attribute masks, one bit per semantic.
const (
	AttribMaskPosition  uint32 = 0x0001
	AttribMaskNormal    uint32 = 0x0002
	AttribMaskTangent   uint32 = 0x0004
	AttribMaskTexCoord0 uint32 = 0x0008
	AttribMaskTexCoord1 uint32 = 0x0010
	AttribMaskColor0    uint32 = 0x0020
)

type attribInfo struct {
	name     string
	location int
	mask     uint32
}

// attribs is ordered by location.
var attribs = []attribInfo{
	{"POSITION", AttribPosition, AttribMaskPosition},
	{"NORMAL", AttribNormal, AttribMaskNormal},
	{"TANGENT", AttribTangent, AttribMaskTangent},
	{"TEXCOORD_0", AttribTexCoord0, AttribMaskTexCoord0},
	{"TEXCOORD_1", AttribTexCoord1, AttribMaskTexCoord1},
	{"COLOR_0", AttribColor0, AttribMaskColor0},
}

func attribByName(name string) (attribInfo, bool) {
	for _, a := range attribs {
		if a.name == name {
			return a, true
		}
	}
	return attribInfo{}, false
}

// RayIntersectionOffset is how far an intersection point is pulled back towards the ray
// origin, so that something drawn at the hit point doesn't fight with the hit surface.
const RayIntersectionOffset = 0.02

var (
	ErrMultiviewUnsupported     = errors.New("multiview rendering is not supported")
	ErrMaterialNoName           = errors.New("material does not have a name")
	ErrMaterialNoVertexSource   = errors.New("material does not have a vertex source")
	ErrMaterialNoFragmentSource = errors.New("material does not have a fragment source")
	ErrNoRenderer               = errors.New("node is not attached to a renderer")
	ErrUnsupportedImage         = errors.New("image format is not supported")
	ErrGLTFInvalidIndex         = errors.New("index out of range")
	ErrGLTFNodeCycle            = errors.New("node is its own ancestor")
	ErrGLTFNoPositions          = errors.New("primitive has no POSITION attribute")
	ErrGLTFSparseAccessor       = errors.New("accessors without a buffer view are not supported")
)
