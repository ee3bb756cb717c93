package rasterio

import (
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio/geotiff"
	"github.com/paulmach/orb"
)

func TestOpenPicksDriver(t *testing.T) {
	dir := t.TempDir()

	mem := raster.NewMemDataset(2, 2)
	mem.AddBand(raster.Int16, raster.RoleGray, []float64{1, 2, 3, 4})
	// the extension lies, the header wins
	tiffPath := filepath.Join(dir, "dem.dat")
	if err := geotiff.WriteFile(tiffPath, mem); err != nil {
		t.Fatal(err)
	}

	gridPath := filepath.Join(dir, "dem.asc")
	grid := "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 1\n7\n"
	if err := os.WriteFile(gridPath, []byte(grid), 0644); err != nil {
		t.Fatal(err)
	}

	pngPath := filepath.Join(dir, "map.png")
	if err := Save(pngPath, image.NewGray(image.Rect(0, 0, 1, 1)), georef.Affine{}, "", SaveOptions{}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		path   string
		driver string
	}{
		{tiffPath, geotiff.DriverName},
		{gridPath, "AAIGrid"},
		{pngPath, "PNG"},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			ds, err := Open(tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer ds.Close()

			if ds.Driver() != tt.driver {
				t.Errorf("Driver() = %q, want %q", ds.Driver(), tt.driver)
			}
		})
	}
}

func TestOpenFailures(t *testing.T) {
	dir := t.TempDir()

	unknown := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(unknown, []byte("hello"), 0644); err != nil {
		t.Fatal(err)
	}

	broken := filepath.Join(dir, "broken.tif")
	if err := os.WriteFile(broken, []byte("II*\x00\xff\xff\xff\xff"), 0644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.tif"), unknown, broken} {
		t.Run(filepath.Base(path), func(t *testing.T) {
			if _, err := Open(path); !errors.Is(err, raster.ErrSourceOpen) {
				t.Errorf("error = %v, want ErrSourceOpen", err)
			}
		})
	}
}

func testImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetRGBA(x, y, color.RGBA{uint8(40 * x), uint8(100 * y), 7, 255})
		}
	}
	return img
}

func TestSaveGeoreferenced(t *testing.T) {
	transform := georef.NorthUp(500, 1000, 2, -2)

	for _, name := range []string{"out.png", "out.tif", "out.jpg"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			if err := Save(path, testImage(), transform, georef.WGS84, SaveOptions{Quality: 95}); err != nil {
				t.Fatal(err)
			}

			ds, err := Open(path)
			if err != nil {
				t.Fatal(err)
			}
			defer ds.Close()

			if w, h := ds.Size(); w != 3 || h != 2 {
				t.Errorf("Size() = %d, %d", w, h)
			}
			if len(ds.Bands()) != 3 {
				t.Errorf("expected 3 bands, got %d", len(ds.Bands()))
			}

			got, ok := ds.GeoTransform()
			if !ok || got.Origin() != (orb.Point{500, 1000}) || got.PixelSize() != (orb.Point{2, -2}) {
				t.Errorf("GeoTransform() = %v, %v", got, ok)
			}
			if ds.SpatialRef() != georef.WGS84 {
				t.Errorf("SpatialRef() = %q", ds.SpatialRef())
			}
		})
	}
}

func TestSaveWithoutSidecars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.png")

	err := Save(path, testImage(), georef.NorthUp(0, 0, 1, -1), georef.WGS84, SaveOptions{SkipSidecars: true})
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := georef.FindWorldFile(path); ok {
		t.Errorf("world file written")
	}
	if _, err := os.Stat(georef.PrjPath(path)); !os.IsNotExist(err) {
		t.Errorf("prj written")
	}
}

func TestSaveUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xyz")
	if err := Save(path, testImage(), georef.Affine{}, "", SaveOptions{}); err == nil {
		t.Errorf("expected an error")
	}
}
