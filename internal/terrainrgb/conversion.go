package terrainrgb

import (
	"image/color"
	"math"
)

/*
	The Mapbox Terrain-RGB Tiles use the following equation to decode
	height values from rgb.

	height = -10000 + ((R * 256 * 256 + G * 256 + B) * 0.1)

	Solved for x = (R * 256 * 256 + G * 256 + B) that is
	x = 10 * height + 100000

	R, G and B are the digits of x written as a base 256 number.
*/

// maxX is the largest value three bytes hold
const maxX = 1<<24 - 1

// HeightToRgb encodes a height in meters. Heights outside the encodable
// range of -10000 m to 1667721.5 m are clamped.
func HeightToRgb(height float64) color.RGBA {
	x := int64(math.Round(10*height + 100000))
	if x < 0 {
		x = 0
	}
	if x > maxX {
		x = maxX
	}

	return color.RGBA{
		R: uint8(x >> 16),
		G: uint8(x >> 8),
		B: uint8(x),
		A: 255,
	}
}

// RgbToHeight decodes a height in meters
func RgbToHeight(c color.RGBA) float64 {
	x := int64(c.R)<<16 | int64(c.G)<<8 | int64(c.B)

	return -10000 + float64(x)*0.1
}
