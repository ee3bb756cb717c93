// Package rasterio opens raster files through the first driver that
// recognizes them and saves rendered images with their georeferencing.
package rasterio

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio/esri"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio/geotiff"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio/imagefile"
)

// Driver is a raster format the package can open.
type Driver struct {
	Name string
	// Extensions are lower case file name suffixes including the dot.
	Extensions []string
	// Sniff reports whether a file header belongs to the format. May be nil.
	Sniff func(header []byte) bool
	Open  func(path string) (raster.Dataset, error)
}

// catchAll reports whether the driver accepts any file nobody else claimed.
func (d Driver) catchAll() bool {
	return d.Sniff == nil && len(d.Extensions) == 0
}

var drivers = []Driver{
	{
		Name:       geotiff.DriverName,
		Extensions: []string{".tif", ".tiff"},
		Sniff:      geotiff.Sniff,
		Open:       func(path string) (raster.Dataset, error) { return geotiff.Open(path) },
	},
	{
		Name:       esri.DriverName,
		Extensions: []string{".asc", ".asc.gz", ".grd"},
		Sniff:      esri.Sniff,
		Open:       func(path string) (raster.Dataset, error) { return esri.Open(path) },
	},
	{
		Name:       "Image",
		Extensions: []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"},
		Sniff:      imagefile.Sniff,
		Open:       func(path string) (raster.Dataset, error) { return imagefile.Open(path) },
	},
}

// Drivers lists the registered drivers in the order they are tried.
func Drivers() []Driver {
	return append([]Driver(nil), drivers...)
}

const sniffLen = 64

// Open opens path with the driver whose magic bytes match its header,
// falling back to the file extension and then to a catch-all driver.
// All failures wrap raster.ErrSourceOpen.
func Open(path string) (raster.Dataset, error) {
	header, err := readHeader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", raster.ErrSourceOpen, err)
	}

	driver, ok := pick(path, header)
	if !ok {
		return nil, fmt.Errorf("%w: %s: no driver for this format", raster.ErrSourceOpen, path)
	}

	ds, err := driver.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s driver: %v", raster.ErrSourceOpen, driver.Name, err)
	}

	return ds, nil
}

// DriverFor returns the driver Open would use for path without opening it
// through the driver.
func DriverFor(path string) (Driver, bool) {
	header, err := readHeader(path)
	if err != nil {
		return Driver{}, false
	}
	return pick(path, header)
}

func readHeader(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(file, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}

	return header[:n], nil
}

func pick(path string, header []byte) (Driver, bool) {
	for _, d := range drivers {
		if d.Sniff != nil && d.Sniff(header) {
			return d, true
		}
	}

	lower := strings.ToLower(path)
	for _, d := range drivers {
		for _, ext := range d.Extensions {
			if strings.HasSuffix(lower, ext) {
				return d, true
			}
		}
	}

	for _, d := range drivers {
		if d.catchAll() {
			return d, true
		}
	}

	return Driver{}, false
}
