package utils

import (
	"image"
	"math"
)

const tileSizeInPx = 256

// CalcMaxLodFromImage calculates the maximum LOD from the longer side of img,
// so that the most detailed tiles are not upscaled.
func CalcMaxLodFromImage(img image.Image) uint8 {
	w := float64(img.Bounds().Dx())
	if h := float64(img.Bounds().Dy()); h > w {
		w = h
	}

	tilesPerRowCol := math.Ceil(w / tileSizeInPx)
	if tilesPerRowCol <= 1 {
		return 0
	}

	return uint8(math.Ceil(math.Log2(tilesPerRowCol)))
}
