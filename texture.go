package tetraxr

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"sync/atomic"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/google/uuid"
	"github.com/solarlune/tetraxr/gl"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// TextureSampler holds the filtering and wrapping a texture is sampled with. A zero field
// means "pick a default for this texture": LINEAR magnification, LINEAR (or
// LINEAR_MIPMAP_LINEAR when mipmapped) minification, and REPEAT wrapping for power of
// two textures, CLAMP_TO_EDGE otherwise.
type TextureSampler struct {
	MinFilter gl.Enum
	MagFilter gl.Enum
	WrapS     gl.Enum
	WrapT     gl.Enum
}

// Texture is an image source that can be bound to a MaterialSampler. Textures with the
// same key share a single GPU texture. The implementations are ImageTexture,
// DataTexture, ColorTexture and VideoTexture.
type Texture interface {
	// TextureKey identifies the texture's contents. It must not be empty.
	TextureKey() string
	// Sampler returns the sampling parameters to upload the texture with.
	Sampler() *TextureSampler
	// Mipmap returns whether mipmaps should be generated for the texture (when its
	// dimensions allow it).
	Mipmap() bool
	textureBase() *texture
}

type texture struct {
	sampler TextureSampler
	mipmap  bool
}

func (t *texture) Sampler() *TextureSampler { return &t.sampler }
func (t *texture) Mipmap() bool             { return t.mipmap }
func (t *texture) textureBase() *texture    { return t }

// SetMipmap sets whether mipmaps are generated for the texture.
func (t *texture) SetMipmap(mipmap bool) { t.mipmap = mipmap }

// ImageTexture is a texture decoded from an encoded image (PNG, JPEG, GIF, BMP or WebP).
// Decoding happens on a background goroutine; the texture is skipped until it's done.
type ImageTexture struct {
	texture
	key   string
	image *Future[*image.RGBA]
}

// LoadImageTexture decodes the image file at path in the background. The path is the
// texture's key, so loading the same path twice shares one GPU texture.
func LoadImageTexture(path string) *ImageTexture {
	return &ImageTexture{
		texture: texture{mipmap: true},
		key:     path,
		image: Go(func() (*image.RGBA, error) {
			file, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			defer file.Close()
			return decodeImage(file)
		}),
	}
}

// NewImageTextureFromBytes decodes an encoded image held in memory in the background.
// Each call gets a unique key.
func NewImageTextureFromBytes(data []byte) *ImageTexture {
	return NewImageTextureFromReader(bytes.NewReader(data))
}

// NewImageTextureFromReader decodes an encoded image from r in the background. Each
// call gets a unique key.
func NewImageTextureFromReader(r io.Reader) *ImageTexture {
	return &ImageTexture{
		texture: texture{mipmap: true},
		key:     "BLOB_" + uuid.NewString(),
		image: Go(func() (*image.RGBA, error) {
			return decodeImage(r)
		}),
	}
}

// NewImageTextureFromImage wraps an already decoded image. Each call gets a unique key.
func NewImageTextureFromImage(img image.Image) *ImageTexture {
	return &ImageTexture{
		texture: texture{mipmap: true},
		key:     "BLOB_" + uuid.NewString(),
		image:   Resolved(toRGBA(img)),
	}
}

// TextureKey returns the image's path, or a unique BLOB_ key for in-memory images.
func (t *ImageTexture) TextureKey() string { return t.key }

// WaitForComplete returns a Future that resolves to the decoded image.
func (t *ImageTexture) WaitForComplete() *Future[*image.RGBA] { return t.image }

func decodeImage(r io.Reader) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		return nil, err
	}
	return toRGBA(img), nil
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) && rgba.Stride == rgba.Bounds().Dx()*4 {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

var dataTextureID atomic.Uint64

// DataTexture is a texture uploaded from raw pixel data.
type DataTexture struct {
	texture
	key           string
	Data          []byte
	Width, Height int
	Format        gl.Enum
	ComponentType gl.Enum
}

// NewDataTexture returns a texture for raw pixels. format is the GL pixel format (RGBA,
// RGB, LUMINANCE...) and componentType the GL type of each component.
func NewDataTexture(data []byte, width, height int, format, componentType gl.Enum) *DataTexture {
	return &DataTexture{
		key:           fmt.Sprintf("DATA_%d", dataTextureID.Add(1)),
		Data:          data,
		Width:         width,
		Height:        height,
		Format:        format,
		ComponentType: componentType,
	}
}

// TextureKey returns a unique DATA_ key.
func (t *DataTexture) TextureKey() string { return t.key }

// ColorTexture is a 1x1 texture of a single color. Color textures with the same color
// share a GPU texture.
type ColorTexture struct {
	texture
	Color color.RGBA
}

// NewColorTexture returns a 1x1 texture with the given color. Components are 0 to 1.
func NewColorTexture(r, g, b, a float32) *ColorTexture {
	return &ColorTexture{
		Color: color.RGBA{unitToByte(r), unitToByte(g), unitToByte(b), unitToByte(a)},
	}
}

func unitToByte(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v * 255)
}

// TextureKey returns a COLOR_r_g_b_a key built from the byte components.
func (t *ColorTexture) TextureKey() string {
	return fmt.Sprintf("COLOR_%d_%d_%d_%d", t.Color.R, t.Color.G, t.Color.B, t.Color.A)
}

func (t *ColorTexture) pixels() []byte {
	return []byte{t.Color.R, t.Color.G, t.Color.B, t.Color.A}
}

// FrameSource provides the frames of a VideoTexture.
type FrameSource interface {
	// Frame returns the current frame, or false if no frame is available yet.
	Frame() (*image.RGBA, bool)
}

// VideoTexture is a texture that is refreshed from its FrameSource once per frame it's
// drawn in.
type VideoTexture struct {
	texture
	key    string
	Source FrameSource
}

// NewVideoTexture returns a texture fed by source. key identifies the video (for example
// its URL).
func NewVideoTexture(key string, source FrameSource) *VideoTexture {
	return &VideoTexture{key: key, Source: source}
}

// TextureKey returns the video's key.
func (t *VideoTexture) TextureKey() string { return t.key }

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
