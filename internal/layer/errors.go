package layer

import (
	"errors"
	"log"
	"os"
)

var (
	// ErrDuplicateLayer means a layer with the same id is already registered.
	ErrDuplicateLayer = errors.New("layer already registered")
	// ErrLayerNotFound means no layer is registered under the id.
	ErrLayerNotFound = errors.New("layer not found")
	// ErrRegistryFull means the registry is at its maximum size and rejects additions.
	ErrRegistryFull = errors.New("layer registry full")
	// ErrInvalidState means a decode step was called out of order.
	ErrInvalidState = errors.New("invalid layer state")
)

var logger = log.New(os.Stderr, "layer: ", log.LstdFlags)

// SetLogger replaces the logger used for non fatal diagnostics.
func SetLogger(l *log.Logger) {
	logger = l
}
