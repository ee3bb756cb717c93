package submerge

import (
	"fmt"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Stop is a ramp color pinned to an elevation in meters.
type Stop struct {
	Color     color.RGBA
	Elevation float64
}

// Ramp maps elevations to colors. Stops are ordered by strictly increasing
// elevation.
type Ramp []Stop

// DefaultRamp runs from deep blue below sea level over green lowlands to
// pale highlands.
func DefaultRamp() Ramp {
	return Ramp{
		{color.RGBA{46, 154, 188, 255}, -1},
		{color.RGBA{110, 220, 110, 255}, 0.25},
		{color.RGBA{230, 250, 150, 255}, 20},
		{color.RGBA{200, 220, 160, 255}, 75},
		{color.RGBA{170, 190, 220, 255}, 100},
		{color.RGBA{140, 180, 250, 255}, 200},
	}
}

// Validate makes sure the ramp has stops in strictly increasing order.
func (r Ramp) Validate() error {
	if len(r) == 0 {
		return fmt.Errorf("color ramp has no stops")
	}
	for i := 1; i < len(r); i++ {
		if r[i].Elevation <= r[i-1].Elevation {
			return fmt.Errorf("color ramp stop %d at %v m is not above %v m", i, r[i].Elevation, r[i-1].Elevation)
		}
	}
	return nil
}

// Color returns the ramp color of an elevation. Elevations outside the ramp
// get the first or last color. In between, the two bracketing colors are
// blended channel wise, with t measured from the upper stop.
func (r Ramp) Color(elevation float64) color.RGBA {
	first, last := r[0], r[len(r)-1]
	if elevation < first.Elevation {
		return first.Color
	}
	if elevation > last.Elevation {
		return last.Color
	}

	for k := 0; k < len(r)-1; k++ {
		lower, upper := r[k], r[k+1]
		if elevation > upper.Elevation {
			continue
		}

		t := (upper.Elevation - elevation) / (upper.Elevation - lower.Elevation)
		c := colorfulOf(upper.Color).BlendRgb(colorfulOf(lower.Color), t)
		return color.RGBA{truncate255(c.R), truncate255(c.G), truncate255(c.B), 255}
	}

	return last.Color
}

// truncate255 scales a [0, 1] channel to 8 bit, dropping the fraction. The
// epsilon keeps exact integers from falling one short.
func truncate255(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, v*255+1e-9)))
}

func colorfulOf(c color.RGBA) colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}
