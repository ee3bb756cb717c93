// Package imagefile opens plain image files (PNG, JPEG, GIF, BMP, WebP) as
// raster datasets. Georeferencing comes from a world file and a .prj
// sidecar next to the image.
package imagefile

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Dataset is a decoded image with its sidecar georeferencing.
type Dataset struct {
	*raster.MemDataset
	format string
}

// Open decodes the image at path and reads its world file and .prj sidecar
// if present.
func Open(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, format, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	ds := &Dataset{MemDataset: raster.FromImage(img), format: format}

	if worldFile, ok := georef.FindWorldFile(path); ok {
		transform, err := georef.ReadWorldFile(worldFile)
		if err != nil {
			return nil, err
		}
		ds.SetGeoTransform(transform)
	}

	srs, _, err := georef.ReadPrj(path)
	if err != nil {
		return nil, err
	}
	ds.SRS = srs

	return ds, nil
}

// Driver returns the upper case image format name, e.g. "PNG".
func (d *Dataset) Driver() string { return strings.ToUpper(d.format) }

var magics = [][]byte{
	[]byte("\x89PNG\r\n\x1a\n"),
	[]byte("\xff\xd8\xff"),
	[]byte("GIF87a"),
	[]byte("GIF89a"),
	[]byte("BM"),
}

// Sniff reports whether header starts with the signature of a supported
// image format.
func Sniff(header []byte) bool {
	for _, magic := range magics {
		if bytes.HasPrefix(header, magic) {
			return true
		}
	}

	return len(header) >= 12 && string(header[:4]) == "RIFF" && string(header[8:12]) == "WEBP"
}
