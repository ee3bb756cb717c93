package layer

import (
	"math"

	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the valid samples of a band.
type Stats struct {
	Min, Max     float64
	Mean, StdDev float64
	// Embedded is true if min and max come from the source instead of a scan.
	Embedded bool
	// Valid is the number of samples that are neither NODATA nor NaN.
	Valid int
}

// computeStats scans a band and skips NODATA and NaN samples.
func computeStats(b raster.Band) (Stats, error) {
	w, h := b.Size()
	nodata, hasNoData := b.NoData()

	values := make([]float64, 0, w*h)
	row := make([]float64, w)
	for y := 0; y < h; y++ {
		if err := b.ReadRow(y, row); err != nil {
			return Stats{}, err
		}
		for _, v := range row {
			if math.IsNaN(v) || (hasNoData && v == nodata) {
				continue
			}
			values = append(values, v)
		}
	}

	if len(values) == 0 {
		return Stats{}, nil
	}

	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}

	return Stats{
		Min:    floats.Min(values),
		Max:    floats.Max(values),
		Mean:   mean,
		StdDev: std,
		Valid:  len(values),
	}, nil
}
