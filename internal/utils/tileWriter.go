package utils

import (
	"fmt"
	"os"
	"path"
)

// TileWriter stores encoded tiles
type TileWriter interface {
	WriteTile(lod uint8, col, row int, data []byte) error
}

// DirectoryWriter writes tiles to <Dir>/<lod>/<col>/<row>.<Ext>
type DirectoryWriter struct {
	Dir string
	Ext string
}

// WriteTile writes one tile, creating its column directory if needed
func (w DirectoryWriter) WriteTile(lod uint8, col, row int, data []byte) error {
	colPath := path.Join(w.Dir, fmt.Sprintf("%d", lod), fmt.Sprintf("%d", col))
	if err := EnsureDirectory(colPath); err != nil {
		return err
	}

	return os.WriteFile(path.Join(colPath, fmt.Sprintf("%d.%s", row, w.Ext)), data, 0644)
}
