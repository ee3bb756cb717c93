// Package shorelines traces the lines where an elevation model crosses a
// water level, using marching squares over the sample grid.
package shorelines

import (
	"sync"

	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Trace returns the shorelines of level in world coordinates. Samples are
// taken at pixel centers. Cells touching a NODATA sample produce no lines.
func Trace(dem *layer.Layer, level float64) []orb.LineString {
	var lines []orb.LineString

	for row := 0; row < dem.Height-1; row++ {
		for col := 0; col < dem.Width-1; col++ {
			for _, segment := range cellSegments(dem, col, row, level) {
				lines = merge(lines, segment)
			}
		}
	}

	for _, line := range lines {
		for i, p := range line {
			line[i] = dem.Transform.Apply(p[0]+0.5, p[1]+0.5)
		}
	}

	return lines
}

// Collection traces every level concurrently. Each line becomes a feature
// with a level property, ordered like levels.
func Collection(dem *layer.Layer, levels []float64) *geojson.FeatureCollection {
	traced := make([][]orb.LineString, len(levels))

	var wg sync.WaitGroup
	for i, level := range levels {
		wg.Add(1)
		go func(i int, level float64) {
			defer wg.Done()
			traced[i] = Trace(dem, level)
		}(i, level)
	}
	wg.Wait()

	fc := geojson.NewFeatureCollection()
	for i, lines := range traced {
		for _, line := range lines {
			f := geojson.NewFeature(line)
			f.Properties["level"] = levels[i]
			fc.Append(f)
		}
	}
	return fc
}

// cellSegments returns the segments of the cell whose top left sample is
// (col, row), in grid coordinates.
func cellSegments(dem *layer.Layer, col, row int, level float64) []orb.LineString {
	tl, ok1 := sample(dem, col, row)
	tr, ok2 := sample(dem, col+1, row)
	br, ok3 := sample(dem, col+1, row+1)
	bl, ok4 := sample(dem, col, row+1)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return nil
	}

	left, right := float64(col), float64(col+1)
	top, bottom := float64(row), float64(row+1)

	index := 0
	if tl > level {
		index |= 8
	}
	if tr > level {
		index |= 4
	}
	if br > level {
		index |= 2
	}
	if bl > level {
		index |= 1
	}

	topEdge := func() orb.Point { return orb.Point{interpolate(left, tl, right, tr, level), top} }
	leftEdge := func() orb.Point { return orb.Point{left, interpolate(bottom, bl, top, tl, level)} }
	bottomEdge := func() orb.Point { return orb.Point{interpolate(left, bl, right, br, level), bottom} }
	rightEdge := func() orb.Point { return orb.Point{right, interpolate(bottom, br, top, tr, level)} }

	switch index {
	case 1, 14:
		return []orb.LineString{{bottomEdge(), leftEdge()}}
	case 2, 13:
		return []orb.LineString{{rightEdge(), bottomEdge()}}
	case 3, 12:
		return []orb.LineString{{rightEdge(), leftEdge()}}
	case 4, 11:
		return []orb.LineString{{topEdge(), rightEdge()}}
	case 5:
		// saddle
		return []orb.LineString{{leftEdge(), topEdge()}, {bottomEdge(), rightEdge()}}
	case 6, 9:
		return []orb.LineString{{topEdge(), bottomEdge()}}
	case 7, 8:
		return []orb.LineString{{leftEdge(), topEdge()}}
	case 10:
		// saddle
		return []orb.LineString{{leftEdge(), bottomEdge()}, {topEdge(), rightEdge()}}
	}

	// 0 and 15: the cell is entirely dry or entirely flooded
	return nil
}

func sample(dem *layer.Layer, col, row int) (float64, bool) {
	v, ok := dem.Elevation(col, row)
	if !ok {
		return 0, false
	}
	if len(dem.Bands) > 0 && dem.Bands[0].HasNoData && v == dem.Bands[0].NoData {
		return 0, false
	}
	return v, true
}

func interpolate(c0, h0, c1, h1, level float64) float64 {
	return (c0*(h1-level) + c1*(level-h0)) / (h1 - h0)
}

// merge adds segment to lines, joining it with up to two lines that share an
// end point.
func merge(lines []orb.LineString, segment orb.LineString) []orb.LineString {
	joined := segment
	first := -1

	for i := 0; i < len(lines); i++ {
		combined, ok := join(joined, lines[i])
		if !ok {
			continue
		}
		joined = combined

		if first < 0 {
			first = i
			continue
		}

		// segment bridged two lines, drop the second one
		lines[first] = joined
		lines[i] = lines[len(lines)-1]
		lines[len(lines)-1] = nil
		return lines[:len(lines)-1]
	}

	if first < 0 {
		return append(lines, segment)
	}
	lines[first] = joined
	return lines
}

// join concatenates a and b if an end point of one is an end point of the
// other.
func join(a, b orb.LineString) (orb.LineString, bool) {
	aFirst, aLast := a[0], a[len(a)-1]
	bFirst, bLast := b[0], b[len(b)-1]

	switch {
	case aLast == bFirst:
		return stitch(a, b), true
	case bLast == aFirst:
		return stitch(b, a), true
	case aLast == bLast:
		return stitch(a, reversed(b)), true
	case aFirst == bFirst:
		return stitch(reversed(a), b), true
	}
	return nil, false
}

// stitch appends all points of l2 but the first to a copy of l1.
func stitch(l1, l2 orb.LineString) orb.LineString {
	line := make(orb.LineString, 0, len(l1)+len(l2)-1)
	line = append(line, l1...)
	return append(line, l2[1:]...)
}

func reversed(l orb.LineString) orb.LineString {
	r := make(orb.LineString, len(l))
	for i, p := range l {
		r[len(l)-1-i] = p
	}
	return r
}
