package utils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"
	"runtime"

	"github.com/nfnt/resize"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

type subImager interface {
	image.Image
	SubImage(r image.Rectangle) image.Image
}

// BuildTileSet cuts img into 2^lod x 2^lod PNG tiles of 256x256 px and hands
// them to w
func BuildTileSet(lod uint8, img image.Image, w TileWriter) error {
	tilesPerRowCol := int(math.Pow(2, float64(lod)))

	src := asSubImager(img)
	bounds := src.Bounds()

	width := bounds.Dx()
	height := bounds.Dy()

	tileWidth := width / tilesPerRowCol
	tileHeight := height / tilesPerRowCol

	// remaining pixels
	widthRemainder := width % tilesPerRowCol
	heightRemainder := height % tilesPerRowCol

	g, ctx := errgroup.WithContext(context.Background())

	for col := 0; col < tilesPerRowCol; col++ {
		for row := 0; row < tilesPerRowCol; row++ {
			col, row := col, row

			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}

			g.Go(func() error {
				defer sem.Release(1)

				// remaining pixels go to the first rows / cols
				x := bounds.Min.X + tileWidth*col + minInt(col, widthRemainder)
				y := bounds.Min.Y + tileHeight*row + minInt(row, heightRemainder)
				tw := tileWidth
				th := tileHeight
				if col < widthRemainder {
					tw++
				}
				if row < heightRemainder {
					th++
				}

				data, err := createTile(src, image.Rect(x, y, x+tw, y+th))
				if err != nil {
					return fmt.Errorf("tile %d/%d/%d: %w", lod, col, row, err)
				}

				return w.WriteTile(lod, col, row, data)
			})
		}
	}

	return g.Wait()
}

var sem = semaphore.NewWeighted(int64(runtime.NumCPU()))

func createTile(src subImager, rect image.Rectangle) ([]byte, error) {
	img := resize.Resize(tileSizeInPx, tileSizeInPx, src.SubImage(rect), resize.MitchellNetravali)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func asSubImager(img image.Image) subImager {
	if s, ok := img.(subImager); ok {
		return s
	}

	rgba := image.NewRGBA(img.Bounds())
	draw.Draw(rgba, rgba.Bounds(), img, img.Bounds().Min, draw.Src)
	return rgba
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
