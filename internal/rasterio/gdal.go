//go:build gdal

package rasterio

import (
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio/gdal"
)

func init() {
	drivers = append(drivers, Driver{
		Name: gdal.DriverName,
		Open: func(path string) (raster.Dataset, error) { return gdal.Open(path) },
	})
}
