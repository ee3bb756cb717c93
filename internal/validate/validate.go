package validate

import (
	"fmt"

	"github.com/gruppe-adler/meh-submerge/internal/rasterio"
	"github.com/gruppe-adler/meh-submerge/internal/utils"
)

// RasterFile validates that given path is a file one of the raster drivers
// claims by header or extension
func RasterFile(filePath string) error {
	if !utils.IsFile(filePath) {
		return fmt.Errorf("%s does not exists or is no file", filePath)
	}

	if _, ok := rasterio.DriverFor(filePath); !ok {
		return fmt.Errorf("%s is in no supported raster format", filePath)
	}

	return nil
}

// OutputDirectory validates that given path is a directory or creates it
func OutputDirectory(dirPath string) error {
	if utils.IsFile(dirPath) {
		return fmt.Errorf("%s is a file, expected a directory", dirPath)
	}

	if err := utils.EnsureDirectory(dirPath); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", dirPath, err)
	}

	return nil
}
