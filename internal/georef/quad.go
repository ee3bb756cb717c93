package georef

import (
	"github.com/paulmach/orb"
)

// Quad holds the world coordinates of the four outer corners of a raster.
type Quad struct {
	TL, TR, BL, BR orb.Point
}

// Interpolate maps the relative raster position (rx, ry), both in [0, 1],
// into the quadrilateral. Both edges get interpolated by ry first, then
// the two edge points by rx.
func (q Quad) Interpolate(rx, ry float64) orb.Point {
	left := lerp(q.TL, q.BL, ry)
	right := lerp(q.TR, q.BR, ry)

	return lerp(left, right, rx)
}

// Bound is the axis aligned bounding box of all corners.
func (q Quad) Bound() orb.Bound {
	return orb.MultiPoint{q.TL, q.TR, q.BR, q.BL}.Bound()
}

// Polygon returns the closed footprint ring in clockwise pixel order.
func (q Quad) Polygon() orb.Polygon {
	return orb.Polygon{orb.Ring{q.TL, q.TR, q.BR, q.BL, q.TL}}
}

func lerp(p1, p2 orb.Point, t float64) orb.Point {
	return orb.Point{
		(1-t)*p1[0] + t*p2[0],
		(1-t)*p1[1] + t*p2[1],
	}
}
