package tetraxr

import "github.com/solarlune/tetraxr/gl"

const skyboxVertexSource = `
uniform int EYE_INDEX;
uniform vec4 texCoordScaleOffset0;
uniform vec4 texCoordScaleOffset1;
attribute vec3 POSITION;
attribute vec2 TEXCOORD_0;
varying vec2 vTexCoord;

vec4 vertex_main(mat4 proj, mat4 view, mat4 model) {
  vec4 scaleOffset = texCoordScaleOffset0;
  if (EYE_INDEX == 1) {
    scaleOffset = texCoordScaleOffset1;
  }
  vTexCoord = (TEXCOORD_0 * scaleOffset.xy) + scaleOffset.zw;
  // Drop the translation portion of the view matrix
  view[3].xyz = vec3(0.0, 0.0, 0.0);
  vec4 out_vec = proj * view * model * vec4(POSITION, 1.0);

  // Returning the W component for both Z and W forces the geometry depth to
  // the far plane. When combined with a depth func of LEQUAL this makes the
  // sky write to any depth fragment that has not been written to yet.
  return out_vec.xyww;
}`

const skyboxFragmentSource = `
uniform sampler2D diffuse;
varying vec2 vTexCoord;

vec4 fragment_main() {
  return texture2D(diffuse, vTexCoord);
}`

// SkyboxMaterial draws an equirectangular (or stereo over/under) image on geometry
// centered on the viewer, behind everything else.
type SkyboxMaterial struct {
	Material
	Image *MaterialSampler
	// TexCoordScaleOffset holds, for each eye, the scale (xy) and offset (zw) applied to
	// texture coordinates.
	TexCoordScaleOffset [2]*MaterialUniform
}

// NewSkyboxMaterial returns a SkyboxMaterial drawn in the sky bucket, after opaque
// geometry, without writing depth.
func NewSkyboxMaterial() *SkyboxMaterial {
	m := &SkyboxMaterial{Material: NewMaterial()}
	m.RenderOrder = RenderOrderSky
	m.State.SetDepthFunc(gl.LEQUAL)
	m.State.SetDepthMask(false)
	m.Image = m.DefineSampler("diffuse")
	m.TexCoordScaleOffset[0] = m.DefineUniform("texCoordScaleOffset0", 1, 1, 0, 0)
	m.TexCoordScaleOffset[1] = m.DefineUniform("texCoordScaleOffset1", 1, 1, 0, 0)
	return m
}

// SkyboxStereoMode is the layout of the two eyes' images in a skybox texture.
type SkyboxStereoMode int

const (
	SkyboxMono       SkyboxStereoMode = iota // Both eyes see the whole image.
	SkyboxOverUnder                          // The left eye's image is on top.
	SkyboxSideBySide                         // The left eye's image is on the left.
)

// SetStereoMode sets the texture coordinate scale and offset of each eye for mode.
func (m *SkyboxMaterial) SetStereoMode(mode SkyboxStereoMode) {
	switch mode {
	case SkyboxOverUnder:
		m.TexCoordScaleOffset[0].Set(1, 0.5, 0, 0)
		m.TexCoordScaleOffset[1].Set(1, 0.5, 0, 0.5)
	case SkyboxSideBySide:
		m.TexCoordScaleOffset[0].Set(0.5, 1, 0, 0)
		m.TexCoordScaleOffset[1].Set(0.5, 1, 0.5, 0)
	default:
		m.TexCoordScaleOffset[0].Set(1, 1, 0, 0)
		m.TexCoordScaleOffset[1].Set(1, 1, 0, 0)
	}
}

func (m *SkyboxMaterial) MaterialName() string   { return "SKYBOX" }
func (m *SkyboxMaterial) VertexSource() string   { return skyboxVertexSource }
func (m *SkyboxMaterial) FragmentSource() string { return skyboxFragmentSource }

const cursorVertexSource = `
attribute vec4 POSITION;

varying float vLuminance;
varying float vOpacity;

vec4 vertex_main(mat4 proj, mat4 view, mat4 model) {
  vLuminance = POSITION.w;
  vOpacity = 1.0 - POSITION.w;

  // Billboard the cursor so it always faces the viewer.
  vec3 right = vec3(view[0].x, view[1].x, view[2].x);
  vec3 up = vec3(view[0].y, view[1].y, view[2].y);
  vec3 center = vec3(model[3].xyz);
  float scale = length(vec3(model[0].xyz));
  vec3 pos = center + (right * POSITION.x + up * POSITION.y) * scale;

  return proj * view * vec4(pos, 1.0);
}`

const cursorFragmentSource = `
uniform vec4 cursorColor;
varying float vLuminance;
varying float vOpacity;

vec4 fragment_main() {
  vec3 color = mix(cursorColor.rgb, vec3(1.0, 1.0, 1.0), vLuminance);
  return vec4(color, vOpacity * cursorColor.a);
}`

// CursorMaterial draws the billboarded pointer cursor, added over the scene without
// writing depth.
type CursorMaterial struct {
	Material
	Color *MaterialUniform
}

// NewCursorMaterial returns a CursorMaterial drawn in the additive bucket.
func NewCursorMaterial() *CursorMaterial {
	m := &CursorMaterial{Material: NewMaterial()}
	m.RenderOrder = RenderOrderAdditive
	m.State.SetCullFace(false)
	m.State.SetBlend(true)
	m.State.SetBlendFuncSrc(gl.SRC_ALPHA)
	m.State.SetBlendFuncDst(gl.ONE)
	m.State.SetDepthMask(false)
	m.Color = m.DefineUniform("cursorColor", 0.38, 0.7, 1.0, 1.0)
	return m
}

func (m *CursorMaterial) MaterialName() string   { return "CURSOR" }
func (m *CursorMaterial) VertexSource() string   { return cursorVertexSource }
func (m *CursorMaterial) FragmentSource() string { return cursorFragmentSource }

const unlitVertexSource = `
attribute vec3 POSITION;
attribute vec2 TEXCOORD_0;
varying vec2 vTexCoord;

#ifdef USE_VERTEX_COLOR
attribute vec4 COLOR_0;
varying vec4 vColor;
#endif

vec4 vertex_main(mat4 proj, mat4 view, mat4 model) {
  vTexCoord = TEXCOORD_0;
#ifdef USE_VERTEX_COLOR
  vColor = COLOR_0;
#endif
  return proj * view * model * vec4(POSITION, 1.0);
}`

const unlitFragmentSource = `
uniform vec4 color;
varying vec2 vTexCoord;

#ifdef USE_COLOR_MAP
uniform sampler2D colorTex;
#endif

#ifdef USE_VERTEX_COLOR
varying vec4 vColor;
#endif

vec4 fragment_main() {
  vec4 c = color;
#ifdef USE_COLOR_MAP
  c *= texture2D(colorTex, vTexCoord);
#endif
#ifdef USE_VERTEX_COLOR
  c *= vColor;
#endif
  return c;
}`

// UnlitMaterial draws a flat color, optionally multiplied by a texture and vertex colors.
type UnlitMaterial struct {
	Material
	Texture *MaterialSampler
	Color   *MaterialUniform
}

// NewUnlitMaterial returns an opaque UnlitMaterial of the given color.
func NewUnlitMaterial(r, g, b, a float32) *UnlitMaterial {
	m := &UnlitMaterial{Material: NewMaterial()}
	m.Texture = m.DefineSampler("colorTex")
	m.Color = m.DefineUniform("color", r, g, b, a)
	return m
}

func (m *UnlitMaterial) MaterialName() string   { return "UNLIT" }
func (m *UnlitMaterial) VertexSource() string   { return unlitVertexSource }
func (m *UnlitMaterial) FragmentSource() string { return unlitFragmentSource }

func (m *UnlitMaterial) ProgramDefines(rp *RenderPrimitive) map[string]string {
	defines := map[string]string{}
	if m.Texture.Texture != nil && rp.HasAttribute(AttribMaskTexCoord0) {
		defines["USE_COLOR_MAP"] = "1"
	}
	if rp.HasAttribute(AttribMaskColor0) {
		defines["USE_VERTEX_COLOR"] = "1"
	}
	return defines
}
