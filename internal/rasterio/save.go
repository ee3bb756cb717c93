package rasterio

import (
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio/geotiff"
)

// SaveOptions tune Save.
type SaveOptions struct {
	// Quality is the JPEG quality, jpeg.DefaultQuality if zero.
	Quality int
	// SkipSidecars disables the world file and .prj next to JPEG and PNG output.
	SkipSidecars bool
}

// Save writes img to path in the format given by the extension: JPEG and
// PNG with world file and .prj sidecars, or GeoTIFF with embedded geotags.
// A zero transform writes no georeferencing.
func Save(path string, img image.Image, transform georef.Affine, srs string, opts SaveOptions) error {
	georeferenced := transform != georef.Affine{}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".tif", ".tiff":
		ds := raster.FromImage(img)
		if georeferenced {
			ds.SetGeoTransform(transform)
			ds.SRS = srs
		}
		return geotiff.WriteFile(path, ds)

	case ".jpg", ".jpeg", ".png":
		if err := encode(path, ext, img, opts.Quality); err != nil {
			return err
		}

	default:
		return fmt.Errorf("cannot save %s: unsupported extension %q", path, ext)
	}

	if !georeferenced || opts.SkipSidecars {
		return nil
	}

	worldFile := strings.TrimSuffix(path, filepath.Ext(path)) + georef.WorldFileExt(path)
	if err := georef.WriteWorldFile(worldFile, transform); err != nil {
		return err
	}

	return georef.WritePrj(path, srs)
}

func encode(path, ext string, img image.Image, quality int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	if ext == ".png" {
		err = png.Encode(file, img)
	} else {
		if quality == 0 {
			quality = jpeg.DefaultQuality
		}
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: quality})
	}
	if err != nil {
		file.Close()
		return err
	}

	return file.Close()
}
