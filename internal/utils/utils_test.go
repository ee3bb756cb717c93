package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestCalcMaxLodFromImage(t *testing.T) {
	tests := []struct {
		w, h int
		want uint8
	}{
		{100, 100, 0},
		{256, 256, 0},
		{257, 10, 1},
		{1024, 1024, 2},
		{100, 600, 2},
		{4096, 2048, 4},
	}

	for _, tt := range tests {
		img := image.NewGray(image.Rect(0, 0, tt.w, tt.h))
		if got := CalcMaxLodFromImage(img); got != tt.want {
			t.Errorf("CalcMaxLodFromImage(%dx%d) = %d, want %d", tt.w, tt.h, got, tt.want)
		}
	}
}

func TestBuildTileSet(t *testing.T) {
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 301, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 301; x++ {
			img.Set(x, y, color.NRGBA{uint8(x), uint8(y), 0, 255})
		}
	}

	if err := BuildTileSet(1, img, DirectoryWriter{Dir: dir, Ext: "png"}); err != nil {
		t.Fatal(err)
	}

	for col := 0; col < 2; col++ {
		for row := 0; row < 2; row++ {
			tilePath := filepath.Join(dir, "1", fmt.Sprint(col), fmt.Sprintf("%d.png", row))

			f, err := os.Open(tilePath)
			if err != nil {
				t.Fatal(err)
			}
			tile, err := png.Decode(f)
			f.Close()
			if err != nil {
				t.Fatalf("%s: %v", tilePath, err)
			}

			if tile.Bounds().Dx() != 256 || tile.Bounds().Dy() != 256 {
				t.Errorf("%s is %v", tilePath, tile.Bounds())
			}
		}
	}

	if IsDirectory(filepath.Join(dir, "1", "2")) {
		t.Errorf("unexpected third column")
	}
}

func TestDirHelpers(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0644); err != nil {
		t.Fatal(err)
	}

	if !IsDirectory(dir) || IsFile(dir) {
		t.Errorf("%s not detected as directory", dir)
	}
	if !IsFile(file) || IsDirectory(file) {
		t.Errorf("%s not detected as file", file)
	}
	if IsFile(filepath.Join(dir, "missing")) || IsDirectory(filepath.Join(dir, "missing")) {
		t.Errorf("missing path detected")
	}

	nested := filepath.Join(dir, "a", "b")
	if err := EnsureDirectory(nested); err != nil {
		t.Fatal(err)
	}
	if !IsDirectory(nested) {
		t.Errorf("EnsureDirectory did not create %s", nested)
	}
	if err := EnsureDirectory(nested); err != nil {
		t.Errorf("EnsureDirectory on existing directory: %v", err)
	}
}

type memoryWriter struct {
	mu    sync.Mutex
	tiles map[string]int
}

func (w *memoryWriter) WriteTile(lod uint8, col, row int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.tiles[fmt.Sprintf("%d/%d/%d", lod, col, row)] = len(data)
	return nil
}

func TestBuildTileSetWithCustomWriter(t *testing.T) {
	w := &memoryWriter{tiles: map[string]int{}}

	for lod := uint8(0); lod <= 2; lod++ {
		if err := BuildTileSet(lod, image.NewGray(image.Rect(0, 0, 10, 7)), w); err != nil {
			t.Fatal(err)
		}
	}

	if len(w.tiles) != 1+4+16 {
		t.Errorf("%d tiles written", len(w.tiles))
	}
	if w.tiles["2/3/3"] == 0 {
		t.Errorf("tile 2/3/3 missing or empty")
	}
}

type failingWriter struct{}

func (failingWriter) WriteTile(uint8, int, int, []byte) error { return errors.New("disk full") }

func TestBuildTileSetPropagatesWriteErrors(t *testing.T) {
	if err := BuildTileSet(1, image.NewGray(image.Rect(0, 0, 4, 4)), failingWriter{}); err == nil {
		t.Errorf("BuildTileSet() succeeded with a failing writer")
	}
}
