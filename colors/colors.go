// Package colors contains named linear RGBA colors as mgl32.Vec4s, ready to pass to
// material constructors and color uniforms (i.e. "White()", "Blue()", "SkyBlue()", etc).
package colors

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

func Transparent() mgl32.Vec4 { return mgl32.Vec4{0, 0, 0, 0} }
func White() mgl32.Vec4       { return mgl32.Vec4{1, 1, 1, 1} }
func Black() mgl32.Vec4       { return mgl32.Vec4{0, 0, 0, 1} }
func Gray() mgl32.Vec4        { return mgl32.Vec4{0.5, 0.5, 0.5, 1} }
func LightGray() mgl32.Vec4   { return mgl32.Vec4{0.8, 0.8, 0.8, 1} }
func DarkGray() mgl32.Vec4    { return mgl32.Vec4{0.2, 0.2, 0.2, 1} }
func Red() mgl32.Vec4         { return mgl32.Vec4{1, 0, 0, 1} }
func PaleRed() mgl32.Vec4     { return mgl32.Vec4{0.678, 0.172, 0.384, 1} }
func Orange() mgl32.Vec4      { return mgl32.Vec4{1, 0.5, 0, 1} }
func Yellow() mgl32.Vec4      { return mgl32.Vec4{1, 1, 0, 1} }
func Green() mgl32.Vec4       { return mgl32.Vec4{0, 1, 0, 1} }
func SkyBlue() mgl32.Vec4     { return mgl32.Vec4{0, 0.5, 1, 1} }
func Turquoise() mgl32.Vec4   { return mgl32.Vec4{0, 1, 1, 1} }
func Blue() mgl32.Vec4        { return mgl32.Vec4{0, 0, 1, 1} }
func Pink() mgl32.Vec4        { return mgl32.Vec4{1, 0, 1, 1} }
func Purple() mgl32.Vec4      { return mgl32.Vec4{0.5, 0, 1, 1} }

// WithAlpha returns color with its alpha replaced.
func WithAlpha(color mgl32.Vec4, alpha float32) mgl32.Vec4 {
	color[3] = alpha
	return color
}

// FromHex parses "#RRGGBB" or "#RRGGBBAA" (the # is optional) as an sRGB color and
// returns it in linear space. Alpha is never converted.
func FromHex(hex string) (mgl32.Vec4, error) {

	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return mgl32.Vec4{}, fmt.Errorf("color %q: expected 6 or 8 hex digits", hex)
	}

	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return mgl32.Vec4{}, fmt.Errorf("color %q: %w", hex, err)
	}

	if len(hex) == 6 {
		value = value<<8 | 0xFF
	}

	color := mgl32.Vec4{
		float32(value>>24&0xFF) / 255,
		float32(value>>16&0xFF) / 255,
		float32(value>>8&0xFF) / 255,
		float32(value&0xFF) / 255,
	}

	return ToLinear(color), nil

}

// ToSRGB converts a linear color's RGB channels to sRGB.
func ToSRGB(color mgl32.Vec4) mgl32.Vec4 {
	for i := 0; i < 3; i++ {
		if color[i] <= 0.0031308 {
			color[i] *= 12.92
		} else {
			color[i] = float32(1.055*math.Pow(float64(color[i]), 1/2.4) - 0.055)
		}
	}
	return color
}

// ToLinear converts an sRGB color's RGB channels to linear space.
func ToLinear(color mgl32.Vec4) mgl32.Vec4 {
	for i := 0; i < 3; i++ {
		if color[i] <= 0.04045 {
			color[i] /= 12.92
		} else {
			color[i] = float32(math.Pow((float64(color[i])+0.055)/1.055, 2.4))
		}
	}
	return color
}
