//go:build gdal

// Package gdal opens any raster format known to the system GDAL library.
// It is only built with the gdal build tag, as it needs cgo and libgdal.
package gdal

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
)

// DriverName is the short name reported by datasets of this package.
const DriverName = "GDAL"

var register sync.Once

// Dataset wraps a GDAL dataset handle.
type Dataset struct {
	ds     *godal.Dataset
	width  int
	height int
}

// Open opens path with GDAL.
func Open(path string) (*Dataset, error) {
	register.Do(godal.RegisterAll)

	ds, err := godal.Open(path)
	if err != nil {
		return nil, err
	}

	structure := ds.Structure()
	return &Dataset{ds: ds, width: structure.SizeX, height: structure.SizeY}, nil
}

func (d *Dataset) Driver() string { return DriverName }

func (d *Dataset) Size() (int, int) { return d.width, d.height }

func (d *Dataset) Bands() []raster.Band {
	gdalBands := d.ds.Bands()
	bands := make([]raster.Band, len(gdalBands))
	for i, b := range gdalBands {
		bands[i] = band{b}
	}
	return bands
}

func (d *Dataset) GeoTransform() (georef.Affine, bool) {
	gt, err := d.ds.GeoTransform()
	if err != nil {
		return georef.Affine{}, false
	}
	return georef.FromGeoTransform(gt), true
}

func (d *Dataset) SpatialRef() string { return d.ds.Projection() }

func (d *Dataset) Close() error { return d.ds.Close() }

type band struct {
	b godal.Band
}

func (b band) Size() (int, int) {
	s := b.b.Structure()
	return s.SizeX, s.SizeY
}

func (b band) BlockSize() (int, int) {
	s := b.b.Structure()
	return s.BlockSizeX, s.BlockSizeY
}

var sampleTypes = map[godal.DataType]raster.SampleType{
	godal.Byte:     raster.Byte,
	godal.UInt16:   raster.UInt16,
	godal.Int16:    raster.Int16,
	godal.UInt32:   raster.UInt32,
	godal.Int32:    raster.Int32,
	godal.Float32:  raster.Float32,
	godal.Float64:  raster.Float64,
	godal.CInt16:   raster.CInt16,
	godal.CInt32:   raster.CInt32,
	godal.CFloat32: raster.CFloat32,
	godal.CFloat64: raster.CFloat64,
}

func (b band) SampleType() raster.SampleType {
	if t, ok := sampleTypes[b.b.Structure().DataType]; ok {
		return t
	}
	return raster.Unknown
}

var colorRoles = map[godal.ColorInterp]raster.ColorRole{
	godal.CIGray:       raster.RoleGray,
	godal.CIPalette:    raster.RolePalette,
	godal.CIRed:        raster.RoleRed,
	godal.CIGreen:      raster.RoleGreen,
	godal.CIBlue:       raster.RoleBlue,
	godal.CIAlpha:      raster.RoleAlpha,
	godal.CIHue:        raster.RoleHue,
	godal.CISaturation: raster.RoleSaturation,
	godal.CILightness:  raster.RoleLightness,
	godal.CICyan:       raster.RoleCyan,
	godal.CIMagenta:    raster.RoleMagenta,
	godal.CIYellow:     raster.RoleYellow,
	godal.CIBlack:      raster.RoleBlack,
	godal.CIY:          raster.RoleY,
	godal.CICb:         raster.RoleCb,
	godal.CICr:         raster.RoleCr,
}

func (b band) ColorRole() raster.ColorRole {
	return colorRoles[b.b.ColorInterp()]
}

var paletteInterps = map[godal.PaletteInterp]raster.PaletteInterp{
	godal.GrayscalePalette: raster.PaletteGray,
	godal.RGBPalette:       raster.PaletteRGB,
	godal.CMYKPalette:      raster.PaletteCMYK,
	godal.HLSPalette:       raster.PaletteHLS,
}

func (b band) Palette() *raster.Palette {
	ct := b.b.ColorTable()
	if len(ct.Entries) == 0 {
		return nil
	}
	return &raster.Palette{Interp: paletteInterps[ct.PaletteInterp], Entries: ct.Entries}
}

// Statistics returns the min and max GDAL has stored for the band. It never
// scans the band.
func (b band) Statistics() (float64, float64, bool) {
	stats, ok, err := b.b.GetStatistics()
	if err != nil || !ok {
		return 0, 0, false
	}
	return stats.Min, stats.Max, true
}

func (b band) NoData() (float64, bool) { return b.b.NoData() }

func (b band) ReadRow(y int, dst []float64) error {
	w, h := b.Size()
	if y < 0 || y >= h {
		return fmt.Errorf("%w: row %d of %d", raster.ErrOutOfBounds, y, h)
	}
	return b.b.Read(0, y, dst[:w], w, 1)
}
