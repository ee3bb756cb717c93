package layer

import (
	"errors"
	"io"
	"log"
	"math"
	"path/filepath"
	"testing"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio/geotiff"
	"github.com/paulmach/orb"
)

func init() {
	SetLogger(log.New(io.Discard, "", 0))
	raster.SetLogger(log.New(io.Discard, "", 0))
}

func demDataset() *raster.MemDataset {
	ds := raster.NewMemDataset(3, 2)
	b := ds.AddBand(raster.Int16, raster.RoleGray, []float64{-20, 5, 15, 40, 120, -9999})
	b.NoDataValue, b.HasNoData = -9999, true
	ds.SetGeoTransform(georef.NorthUp(10, 20, 1, -1))
	ds.SRS = georef.WGS84
	return ds
}

func TestFromDatasetDecodesElevation(t *testing.T) {
	l, err := FromDataset("dem", demDataset())
	if err != nil {
		t.Fatal(err)
	}

	if l.State() != Decoded {
		t.Errorf("State() = %s", l.State())
	}
	if l.Format != (raster.PixelFormat{Depth: raster.Depth16S, Channels: 1}) {
		t.Errorf("Format = %s", l.Format)
	}

	if v, ok := l.Elevation(0, 0); !ok || v != -20 {
		t.Errorf("Elevation(0, 0) = %v, %v", v, ok)
	}
	if v, ok := l.Elevation(1, 1); !ok || v != 120 {
		t.Errorf("Elevation(1, 1) = %v, %v", v, ok)
	}
	if _, ok := l.Elevation(3, 0); ok {
		t.Errorf("Elevation outside the buffer succeeded")
	}

	stats := l.Bands[0].Stats
	if stats.Min != -20 || stats.Max != 120 || stats.Valid != 5 || stats.Embedded {
		t.Errorf("Stats = %+v", stats)
	}
	if math.Abs(stats.Mean-32) > 1e-9 {
		t.Errorf("Mean = %v", stats.Mean)
	}

	if origin, ok := l.Origin(); !ok || origin != (orb.Point{10, 20}) {
		t.Errorf("Origin() = %v, %v", origin, ok)
	}
	if size, ok := l.PixelSize(); !ok || size != (orb.Point{1, -1}) {
		t.Errorf("PixelSize() = %v, %v", size, ok)
	}
	if quad, ok := l.Footprint(); !ok || quad.BR != (orb.Point{13, 18}) {
		t.Errorf("Footprint() = %v, %v", quad, ok)
	}

	if l.Display == nil || l.Display.Layout != raster.LayoutGray {
		t.Fatalf("expected a gray display image")
	}
}

func TestEmbeddedStatistics(t *testing.T) {
	ds := raster.NewMemDataset(1, 1)
	b := ds.AddBand(raster.Byte, raster.RoleGray, []float64{9})
	b.Min, b.Max, b.HasStats = 0, 200, true

	l, err := FromDataset("stats", ds)
	if err != nil {
		t.Fatal(err)
	}

	if s := l.Bands[0].Stats; !s.Embedded || s.Max != 200 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestDecodeRGBAndPalette(t *testing.T) {
	rgb := raster.NewMemDataset(2, 1)
	rgb.AddBand(raster.Byte, raster.RoleRed, []float64{1, 2})
	rgb.AddBand(raster.Byte, raster.RoleGreen, []float64{3, 4})
	rgb.AddBand(raster.Byte, raster.RoleBlue, []float64{5, 6})

	l, err := FromDataset("rgb", rgb)
	if err != nil {
		t.Fatal(err)
	}
	if got := l.Buffer.At(0, 1, 2); got != 6 {
		t.Errorf("blue of pixel 1 = %v", got)
	}
	if l.Display.Layout != raster.LayoutRGB {
		t.Errorf("Layout = %s", l.Display.Layout)
	}

	paletted := raster.NewMemDataset(1, 1)
	b := paletted.AddBand(raster.Byte, raster.RolePalette, []float64{0})
	b.ColorTable = &raster.Palette{Interp: raster.PaletteRGB, Entries: [][4]int16{{10, 20, 30, 255}}}

	l, err = FromDataset("palette", paletted)
	if err != nil {
		t.Fatal(err)
	}
	for ch, want := range []float64{10, 20, 30} {
		if got := l.Buffer.At(0, 0, ch); got != want {
			t.Errorf("channel %d = %v, want %v", ch, got, want)
		}
	}
}

func TestDecodeFloatDisplay(t *testing.T) {
	ds := raster.NewMemDataset(2, 1)
	ds.AddBand(raster.Float32, raster.RoleGray, []float64{-5, 15})

	l, err := FromDataset("float", ds)
	if err != nil {
		t.Fatal(err)
	}
	if l.Display.Pix[0] != 0 || l.Display.Pix[1] != 255 {
		t.Errorf("stretched display = %v", l.Display.Pix)
	}
}

func TestDecodeFailures(t *testing.T) {
	tests := map[string]struct {
		build func() *raster.MemDataset
		want  error
	}{
		"no bands": {
			build: func() *raster.MemDataset { return raster.NewMemDataset(1, 1) },
			want:  raster.ErrSourceOpen,
		},
		"cmyk palette": {
			build: func() *raster.MemDataset {
				ds := raster.NewMemDataset(1, 1)
				b := ds.AddBand(raster.Byte, raster.RolePalette, nil)
				b.ColorTable = &raster.Palette{Interp: raster.PaletteCMYK, Entries: [][4]int16{{}}}
				return ds
			},
			want: raster.ErrUnsupportedPixelFormat,
		},
		"complex samples": {
			build: func() *raster.MemDataset {
				ds := raster.NewMemDataset(1, 1)
				ds.AddBand(raster.CFloat32, raster.RoleGray, nil)
				return ds
			},
			want: raster.ErrUnsupportedPixelFormat,
		},
		"hue band": {
			build: func() *raster.MemDataset {
				ds := raster.NewMemDataset(1, 1)
				ds.AddBand(raster.Byte, raster.RoleHue, nil)
				return ds
			},
			want: raster.ErrUnsupportedColorRole,
		},
		"band size": {
			build: func() *raster.MemDataset {
				ds := raster.NewMemDataset(2, 1)
				b := ds.AddBand(raster.Byte, raster.RoleGray, nil)
				b.Width = 1
				return ds
			},
			want: raster.ErrDimensionMismatch,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			ds := tt.build()
			_, err := FromDataset(name, ds)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if err := ds.Close(); err == nil {
				t.Errorf("dataset was not released on failure")
			}
		})
	}
}

func TestStepsOutOfOrder(t *testing.T) {
	l := New("unused")
	if err := l.Decode(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Decode() before ReadHeader = %v", err)
	}

	l, err := FromDataset("dem", demDataset())
	if err != nil {
		t.Fatal(err)
	}
	if err := l.ReadHeader(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("ReadHeader() after decode = %v", err)
	}

	if err := l.Close(); err != nil {
		t.Fatal(err)
	}
	if l.State() != Closed {
		t.Errorf("State() = %s", l.State())
	}
	if err := l.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}
	if v, ok := l.Elevation(0, 0); !ok || v != -20 {
		t.Errorf("buffer not readable after Close")
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dem.tif")
	if err := geotiff.WriteFile(path, demDataset()); err != nil {
		t.Fatal(err)
	}

	l, err := Open(path, WithID("dem"))
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	if l.ID != "dem" || l.Driver != geotiff.DriverName {
		t.Errorf("ID = %q, Driver = %q", l.ID, l.Driver)
	}
	if l.SRS != georef.WGS84 || !l.HasTransform {
		t.Errorf("georeferencing lost")
	}
	if v, _ := l.Elevation(2, 1); v != -9999 {
		t.Errorf("Elevation(2, 1) = %v", v)
	}

	missing := New(filepath.Join(t.TempDir(), "missing.tif"))
	if err := missing.Load(); !errors.Is(err, raster.ErrSourceOpen) {
		t.Errorf("error = %v", err)
	}
	if missing.State() != Unopened {
		t.Errorf("State() = %s", missing.State())
	}
}

func TestGeographicBound(t *testing.T) {
	l, err := FromDataset("dem", demDataset())
	if err != nil {
		t.Fatal(err)
	}
	bound, ok := l.GeographicBound()
	if !ok || bound != (orb.Bound{Min: orb.Point{10, 18}, Max: orb.Point{13, 20}}) {
		t.Errorf("GeographicBound() = %v, %v", bound, ok)
	}

	projected := demDataset()
	projected.SRS = "EPSG:32633"
	l, err = FromDataset("utm", projected)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := l.GeographicBound(); ok {
		t.Errorf("GeographicBound() of a projected layer succeeded")
	}
}
