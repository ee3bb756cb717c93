package raster

import (
	"errors"
	"log"
	"os"
)

var (
	// ErrSourceOpen means the source could not be opened or has no usable driver.
	ErrSourceOpen = errors.New("cannot open raster source")
	// ErrUnsupportedPixelFormat means the sample type or palette interpretation is not supported.
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	// ErrDimensionMismatch means a band is not the size of its dataset.
	ErrDimensionMismatch = errors.New("band dimension mismatch")
	// ErrUnsupportedColorRole means a band has a color role that maps to no buffer channel.
	ErrUnsupportedColorRole = errors.New("unsupported color role")
	// ErrFormatMismatch means a source channel count cannot be written into the destination buffer.
	ErrFormatMismatch = errors.New("pixel format mismatch")
	// ErrOutOfBounds means a pixel position lies outside the buffer.
	ErrOutOfBounds = errors.New("pixel out of bounds")
)

var logger = log.New(os.Stderr, "raster: ", log.LstdFlags)

// SetLogger replaces the logger used for non fatal diagnostics.
func SetLogger(l *log.Logger) {
	logger = l
}
