// Package peaks finds the summits of an elevation layer and tells which
// flood levels they stay dry at.
package peaks

import (
	"fmt"
	"math"
	"sort"

	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Peak is a cell higher than all eight neighbours.
type Peak struct {
	Col, Row  int
	Point     orb.Point
	Elevation float64
}

// Find returns the peaks above sea level of a decoded elevation layer,
// lowest first. Edge cells and NODATA cells are never peaks.
func Find(dem *layer.Layer) []Peak {
	nodata, hasNoData := math.NaN(), false
	if len(dem.Bands) > 0 {
		nodata, hasNoData = dem.Bands[0].NoData, dem.Bands[0].HasNoData
	}

	var peaks []Peak

	// for all cells (except edges)
	for row := 1; row < dem.Height-1; row++ {
		for col := 1; col < dem.Width-1; col++ {
			elevation, _ := dem.Elevation(col, row)

			// only summits above the water level
			if elevation <= 0 || (hasNoData && elevation == nodata) {
				continue
			}

			if !isPeak(dem, col, row, elevation) {
				continue
			}

			peaks = append(peaks, Peak{
				Col:       col,
				Row:       row,
				Point:     dem.Transform.Apply(float64(col)+0.5, float64(row)+0.5),
				Elevation: elevation,
			})
		}
	}

	sort.SliceStable(peaks, func(i, j int) bool { return peaks[i].Elevation < peaks[j].Elevation })

	return peaks
}

// isPeak reports whether all direct neighbours are lower. Neighbours of the
// same elevation disqualify the cell, so plateaus produce no peaks.
func isPeak(dem *layer.Layer, col, row int, elevation float64) bool {
	for r := row - 1; r <= row+1; r++ {
		for c := col - 1; c <= col+1; c++ {
			if r == row && c == col {
				continue
			}

			neighbour, _ := dem.Elevation(c, r)
			if neighbour >= elevation {
				return false
			}
		}
	}
	return true
}

// Survives returns the highest of the flood levels the elevation stays
// above. ok is false if every level floods it.
func Survives(elevation float64, levels []float64) (level float64, ok bool) {
	for _, l := range levels {
		if elevation >= l && (!ok || l > level) {
			level, ok = l, true
		}
	}
	return level, ok
}

// Collection converts peaks into GeoJSON points with elevation, text and
// survives properties. survives is null for peaks below every level.
func Collection(peaks []Peak, levels []float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, p := range peaks {
		feature := geojson.NewFeature(p.Point)
		feature.Properties["elevation"] = p.Elevation
		feature.Properties["text"] = fmt.Sprintf("%.0f", math.Round(p.Elevation))

		if level, ok := Survives(p.Elevation, levels); ok {
			feature.Properties["survives"] = level
		} else {
			feature.Properties["survives"] = nil
		}

		fc.Append(feature)
	}

	return fc
}
