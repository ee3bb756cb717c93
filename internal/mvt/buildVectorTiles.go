// Package mvt cuts GeoJSON layers into Mapbox vector tiles aligned with the
// raster tiles of the image they were derived from.
package mvt

import (
	"context"
	"fmt"
	"runtime"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/utils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/simplify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const tileSize = mvt.DefaultExtent

// tileBuffer is the margin in tile pixels kept around every tile
const tileBuffer = 64

var clipBound = orb.Bound{
	Min: orb.Point{-tileBuffer, -tileBuffer},
	Max: orb.Point{tileSize + tileBuffer, tileSize + tileBuffer},
}

// Grid places world coordinates on the pixel grid of a raster. Like the
// raster tiles, every LOD stretches the raster over all of its tiles.
type Grid struct {
	Width, Height int

	toPixel georef.Affine
}

// NewGrid builds the grid of a width x height raster with given transform
func NewGrid(transform georef.Affine, width, height int) (Grid, error) {
	inv, ok := transform.Invert()
	if !ok || width <= 0 || height <= 0 {
		return Grid{}, fmt.Errorf("cannot build a tile grid for a %dx%d raster with transform %v", width, height, transform)
	}

	return Grid{Width: width, Height: height, toPixel: inv}, nil
}

// Projection maps world coordinates to pixels of the whole LOD, which is
// 2^lod tiles of 4096 px wide and high
func (g Grid) Projection(lod uint8) orb.Projection {
	pixels := float64(uint64(tileSize) << lod)

	return func(p orb.Point) orb.Point {
		px := g.toPixel.Apply(p[0], p[1])
		return orb.Point{
			px[0] / float64(g.Width) * pixels,
			px[1] / float64(g.Height) * pixels,
		}
	}
}

// BuildVectorTiles writes gzipped vector tiles of all collections for the
// LODs 0 to maxLod. Each collection becomes one layer named by its key.
func BuildVectorTiles(collections map[string]*geojson.FeatureCollection, maxLod uint8, grid Grid, w utils.TileWriter) error {
	for lod := uint8(0); lod <= maxLod; lod++ {
		if err := buildLODVectorTiles(lod, collections, grid, w); err != nil {
			return err
		}
	}
	return nil
}

var sem = semaphore.NewWeighted(int64(runtime.NumCPU()))

func buildLODVectorTiles(lod uint8, collections map[string]*geojson.FeatureCollection, grid Grid, w utils.TileWriter) error {
	// how many tiles one row / col has
	tilesPerRowCol := 1 << lod

	layers := newLayers(collections)

	// project features to pixels
	projectLayersInPlace(layers, grid.Projection(lod))

	// set layer version to v2
	for _, l := range layers {
		l.Version = 2
	}

	layers.Simplify(simplify.DouglasPeucker(1.0))
	layers.RemoveEmpty(10.0, 20.0)

	g, ctx := errgroup.WithContext(context.Background())

	for col := 0; col < tilesPerRowCol; col++ {
		for row := 0; row < tilesPerRowCol; row++ {
			col, row := col, row

			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}

			g.Go(func() error {
				defer sem.Release(1)

				data, err := createTile(col, row, layers)
				if err != nil {
					return fmt.Errorf("vector tile %d/%d/%d: %w", lod, col, row, err)
				}

				return w.WriteTile(lod, col, row, data)
			})
		}
	}

	return g.Wait()
}

func createTile(x, y int, layers mvt.Layers) ([]byte, error) {
	tile := cloneLayers(layers)

	xOffset := float64(x * tileSize)
	yOffset := float64(y * tileSize)
	projectLayersInPlace(tile, func(p orb.Point) orb.Point {
		return orb.Point{
			p[0] - xOffset,
			p[1] - yOffset,
		}
	})

	tile.Clip(clipBound)
	// clipping leaves features without geometry behind
	tile.RemoveEmpty(0, 0)

	return mvt.MarshalGzipped(tile)
}

// projectLayersInPlace projects all features of a layer
func projectLayersInPlace(layers mvt.Layers, projection orb.Projection) {
	for _, layer := range layers {
		for _, feature := range layer.Features {
			feature.Geometry = project.Geometry(feature.Geometry, projection)
		}
	}
}
