package submerge

import (
	"errors"
	"log"
	"os"
)

var (
	// ErrUnsupportedCoordinateSystem means the inputs are not in the coordinate
	// system class the strategy works in.
	ErrUnsupportedCoordinateSystem = errors.New("unsupported coordinate system")
	// ErrCRSParse means a spatial reference of an input could not be parsed.
	ErrCRSParse = errors.New("cannot parse spatial reference")
	// ErrNotImplemented means the strategy is known but has no implementation.
	ErrNotImplemented = errors.New("alignment strategy not implemented")
	// ErrMissingInput means a layer is missing, not decoded or not georeferenced.
	ErrMissingInput = errors.New("missing input")
)

var logger = log.New(os.Stderr, "submerge: ", log.LstdFlags)

// SetLogger replaces the logger used for non fatal diagnostics.
func SetLogger(l *log.Logger) {
	logger = l
}
