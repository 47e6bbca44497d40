package tetraxr

import (
	"image"

	"github.com/solarlune/tetraxr/gl"
	"go.uber.org/zap"
)

// RenderTexture is the GPU texture shared by every Texture with the same key.
type RenderTexture struct {
	texture       gl.Texture
	complete      bool
	width, height int

	activeFrameID  int
	activeCallback func(*RenderTexture)
}

// Complete returns true once the texture's image has been uploaded.
func (rt *RenderTexture) Complete() bool { return rt.complete }

// Size returns the uploaded image's dimensions.
func (rt *RenderTexture) Size() (int, int) { return rt.width, rt.height }

func (rt *RenderTexture) markActive(frameID int) {
	if rt.activeFrameID != frameID {
		rt.activeFrameID = frameID
		if rt.activeCallback != nil {
			rt.activeCallback(rt)
		}
	}
}

// renderTexture returns the RenderTexture for texture's key, creating and uploading it
// if this is the first time the key is seen.
func (r *Renderer) renderTexture(texture Texture) *RenderTexture {

	key := texture.TextureKey()
	if key == "" {
		panic("Error: texture does not have a valid key")
	}

	if rt, ok := r.textureCache[key]; ok {
		return rt
	}

	rt := &RenderTexture{texture: r.ctx.CreateTexture()}
	r.textureCache[key] = rt

	switch t := texture.(type) {

	case *DataTexture:
		r.uploadTexture(rt, t, t.Width, t.Height, t.Format, t.ComponentType, t.Data)

	case *ColorTexture:
		r.uploadTexture(rt, t, 1, 1, gl.RGBA, gl.UNSIGNED_BYTE, t.pixels())

	case *ImageTexture:
		t.image.Then(r.dispatcher, func(img *image.RGBA, err error) {
			if err != nil {
				r.logger.Warn("Failed to load texture image", zap.String("texture", key), zap.Error(err))
				return
			}
			r.uploadImage(rt, t, img)
		})

	case *VideoTexture:
		source := t.Source
		rt.activeCallback = func(rt *RenderTexture) {
			if frame, ok := source.Frame(); ok && frame != nil {
				r.uploadImage(rt, t, frame)
			}
		}

	default:
		r.logger.Warn("Unknown texture type", zap.String("texture", key))

	}

	return rt

}

func (r *Renderer) uploadImage(rt *RenderTexture, texture Texture, img *image.RGBA) {
	img = toRGBA(img)
	bounds := img.Bounds()
	r.uploadTexture(rt, texture, bounds.Dx(), bounds.Dy(), gl.RGBA, gl.UNSIGNED_BYTE, img.Pix)
}

func (r *Renderer) uploadTexture(rt *RenderTexture, texture Texture, width, height int, format, componentType gl.Enum, pixels []byte) {

	r.ctx.BindTexture(gl.TEXTURE_2D, rt.texture)
	r.ctx.TexImage2D(gl.TEXTURE_2D, 0, format, width, height, format, componentType, pixels)

	sampler := texture.Sampler()
	powerOfTwo := isPowerOfTwo(width) && isPowerOfTwo(height)
	mipmap := powerOfTwo && texture.Mipmap()

	if mipmap {
		r.ctx.GenerateMipmap(gl.TEXTURE_2D)
	}

	minFilter := sampler.MinFilter
	if minFilter == 0 {
		minFilter = gl.LINEAR
		if mipmap {
			minFilter = gl.LINEAR_MIPMAP_LINEAR
		}
	}

	magFilter := sampler.MagFilter
	if magFilter == 0 {
		magFilter = gl.LINEAR
	}

	defaultWrap := gl.Enum(gl.CLAMP_TO_EDGE)
	if powerOfTwo {
		defaultWrap = gl.REPEAT
	}

	wrapS := sampler.WrapS
	if wrapS == 0 {
		wrapS = defaultWrap
	}

	wrapT := sampler.WrapT
	if wrapT == 0 {
		wrapT = defaultWrap
	}

	r.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, int(magFilter))
	r.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, int(minFilter))
	r.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, int(wrapS))
	r.ctx.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, int(wrapT))

	r.ctx.BindTexture(gl.TEXTURE_2D, nil)

	rt.width = width
	rt.height = height
	rt.complete = true

}
