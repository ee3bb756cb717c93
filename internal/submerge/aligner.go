package submerge

import (
	"fmt"
	"math"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/paulmach/orb"
)

// DefaultMinElevation is sampled wherever the elevation model has no data
// for a base pixel.
const DefaultMinElevation = -10

// Aligner maps base image pixels onto the elevation model.
type Aligner struct {
	base, dem *layer.Layer

	quad         georef.Quad
	demBL, demTR orb.Point

	minElevation float64
}

// NewAligner prepares the alignment of base and dem. Both layers must be
// decoded and georeferenced and their spatial references must satisfy the
// strategy.
func NewAligner(base, dem *layer.Layer, strategy Strategy, minElevation float64) (*Aligner, error) {
	if base == nil || dem == nil {
		return nil, fmt.Errorf("%w: base image and elevation model are both required", ErrMissingInput)
	}

	for _, l := range []*layer.Layer{base, dem} {
		if l.Buffer == nil {
			return nil, fmt.Errorf("%w: %s is not decoded", ErrMissingInput, l.ID)
		}
		if !l.HasTransform {
			return nil, fmt.Errorf("%w: %s is not georeferenced", ErrMissingInput, l.ID)
		}
	}

	if err := strategy.check(base, dem); err != nil {
		return nil, err
	}

	return &Aligner{
		base: base,
		dem:  dem,
		quad: base.Transform.Corners(base.Width, base.Height),
		// the elevation model is taken as orthorectified
		demBL:        dem.Transform.Apply(0, float64(dem.Height)),
		demTR:        dem.Transform.Apply(float64(dem.Width), 0),
		minElevation: minElevation,
	}, nil
}

// World returns the world coordinate of base pixel (x, y), interpolated
// inside the base footprint.
func (a *Aligner) World(x, y int) orb.Point {
	return a.quad.Interpolate(float64(x)/float64(a.base.Width), float64(y)/float64(a.base.Height))
}

// DEMPixel maps a world coordinate linearly onto the elevation model grid.
func (a *Aligner) DEMPixel(p orb.Point) (col, row float64) {
	ratioX := 1 - (a.demTR[0]-p[0])/(a.demTR[0]-a.demBL[0])
	ratioY := (a.demTR[1] - p[1]) / (a.demTR[1] - a.demBL[1])

	return ratioX * float64(a.dem.Width), ratioY * float64(a.dem.Height)
}

// Elevation samples the elevation model under base pixel (x, y) as a 16-bit
// signed value. Pixels outside the model get the minimum elevation.
func (a *Aligner) Elevation(x, y int) float64 {
	col, row := a.DEMPixel(a.World(x, y))
	if col < 0 || row < 0 || col >= float64(a.dem.Width) || row >= float64(a.dem.Height) {
		return a.minElevation
	}

	v, ok := a.dem.Elevation(int(col), int(row))
	if !ok || math.IsNaN(v) {
		return a.minElevation
	}

	return math.Trunc(math.Max(math.MinInt16, math.Min(math.MaxInt16, v)))
}
