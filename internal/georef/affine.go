package georef

import (
	"github.com/paulmach/orb"
	"golang.org/x/image/math/f64"
)

// Affine maps a pixel position (col, row) to a world coordinate:
//
//	x = a[0]*col + a[1]*row + a[2]
//	y = a[3]*col + a[4]*row + a[5]
//
// The pixel position refers to the pixel corner, so (0, 0) is the
// outer top left corner of the raster.
type Affine f64.Aff3

// FromGeoTransform converts the six GDAL geotransform coefficients
// (origin x, pixel width, row rotation, origin y, column rotation, pixel height)
// into an Affine.
func FromGeoTransform(gt [6]float64) Affine {
	return Affine{gt[1], gt[2], gt[0], gt[4], gt[5], gt[3]}
}

// NorthUp builds the transform of a grid without rotation.
func NorthUp(originX, originY, pixelWidth, pixelHeight float64) Affine {
	return Affine{pixelWidth, 0, originX, 0, pixelHeight, originY}
}

// GeoTransform returns the GDAL ordering of the coefficients.
func (a Affine) GeoTransform() [6]float64 {
	return [6]float64{a[2], a[0], a[1], a[5], a[3], a[4]}
}

// Apply maps a (fractional) pixel position to world coordinates.
func (a Affine) Apply(col, row float64) orb.Point {
	return orb.Point{
		a[0]*col + a[1]*row + a[2],
		a[3]*col + a[4]*row + a[5],
	}
}

// Origin is the world coordinate of the top left pixel corner.
func (a Affine) Origin() orb.Point {
	return orb.Point{a[2], a[5]}
}

// PixelSize returns pixel width and pixel height. Pixel height is
// negative for the usual north up rasters.
func (a Affine) PixelSize() orb.Point {
	return orb.Point{a[0], a[4]}
}

// IsNorthUp reports whether both shear terms are zero.
func (a Affine) IsNorthUp() bool {
	return a[1] == 0 && a[3] == 0
}

// Invert returns the world to pixel transform. ok is false for a
// degenerate transform.
func (a Affine) Invert() (inv Affine, ok bool) {
	det := a[0]*a[4] - a[1]*a[3]
	if det == 0 {
		return Affine{}, false
	}

	return Affine{
		a[4] / det,
		-a[1] / det,
		(a[1]*a[5] - a[4]*a[2]) / det,
		-a[3] / det,
		a[0] / det,
		(a[3]*a[2] - a[0]*a[5]) / det,
	}, true
}

// Scale returns the transform of the same extent resampled by the
// given factors, e.g. fx = 0.5 for an image with half the width.
func (a Affine) Scale(fx, fy float64) Affine {
	return Affine{a[0] / fx, a[1] / fy, a[2], a[3] / fx, a[4] / fy, a[5]}
}

// Corners computes the world quadrilateral spanned by a w x h raster.
func (a Affine) Corners(w, h int) Quad {
	fw, fh := float64(w), float64(h)

	return Quad{
		TL: a.Apply(0, 0),
		TR: a.Apply(fw, 0),
		BL: a.Apply(0, fh),
		BR: a.Apply(fw, fh),
	}
}
