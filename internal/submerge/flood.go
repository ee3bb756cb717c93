package submerge

import "image/color"

// FloodLevels are the sea level rises in meters the flood overlay shows.
var FloodLevels = []float64{10, 20, 50, 100}

type tint struct {
	below   float64
	r, g, b uint8
}

// tints are checked in order, the first band the elevation is below wins.
var tints = []tint{
	{below: 10, b: 30},
	{below: 20, r: 30, g: 30},
	{below: 50, r: 30, g: 15},
	{below: 100, r: 30},
}

// Tint shades a base color by the flood band of the elevation. A channel
// only takes its tint if the sum stays below 255, otherwise it is kept.
// Elevations of 100 m and more are left untouched.
func Tint(c color.RGBA, elevation float64) color.RGBA {
	for _, t := range tints {
		if elevation < t.below {
			return color.RGBA{
				R: addBelow255(c.R, t.r),
				G: addBelow255(c.G, t.g),
				B: addBelow255(c.B, t.b),
				A: c.A,
			}
		}
	}
	return c
}

func addBelow255(v, add uint8) uint8 {
	if int(v)+int(add) < 255 {
		return v + add
	}
	return v
}
