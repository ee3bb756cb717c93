package mbtiles

import (
	"bytes"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func TestWriteAndReadTiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flood.mbtiles")

	mbt, err := Open(path, "Flood", "png")
	if err != nil {
		t.Fatal(err)
	}
	defer mbt.Close()

	if err := mbt.WriteTile(1, 0, 0, []byte("top left")); err != nil {
		t.Fatal(err)
	}
	if err := mbt.WriteTile(1, 1, 1, []byte("bottom right")); err != nil {
		t.Fatal(err)
	}
	// replaces the first tile
	if err := mbt.WriteTile(1, 0, 0, []byte("top left again")); err != nil {
		t.Fatal(err)
	}

	data, err := mbt.Tile(1, 0, 0)
	if err != nil || !bytes.Equal(data, []byte("top left again")) {
		t.Errorf("Tile(1, 0, 0) = %q, %v", data, err)
	}

	// XYZ row 1 is TMS row 0
	var tms []byte
	if err := mbt.db.QueryRow("SELECT tile_data FROM tiles WHERE zoom_level = 1 AND tile_column = 1 AND tile_row = 0").Scan(&tms); err != nil {
		t.Fatal(err)
	}
	if string(tms) != "bottom right" {
		t.Errorf("TMS tile = %q", tms)
	}

	if _, err := mbt.Tile(1, 1, 0); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("missing tile error = %v", err)
	}
}

func TestMetadata(t *testing.T) {
	mbt, err := Open(filepath.Join(t.TempDir(), "peaks.mbtiles"), "Peaks", "pbf")
	if err != nil {
		t.Fatal(err)
	}
	defer mbt.Close()

	for name, want := range map[string]string{"name": "Peaks", "format": "pbf", "json": `{ "vector_layers": [] }`} {
		if got, err := mbt.Meta(name); err != nil || got != want {
			t.Errorf("Meta(%s) = %q, %v", name, got, err)
		}
	}

	if err := mbt.InsertMeta([][2]string{{"name", "Summits"}, {"minzoom", "0"}}); err != nil {
		t.Fatal(err)
	}
	if got, _ := mbt.Meta("name"); got != "Summits" {
		t.Errorf("name after update = %q", got)
	}
}
