package submerge

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/mbtiles"
	"github.com/gruppe-adler/meh-submerge/internal/metajson"
	"github.com/gruppe-adler/meh-submerge/internal/mvt"
	"github.com/gruppe-adler/meh-submerge/internal/tilejson"
	"github.com/gruppe-adler/meh-submerge/internal/utils"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// pyramid is the destination of one tile set: a <lod>/<col>/<row> tree
// with a tile.json, or an .mbtiles file.
type pyramid struct {
	utils.TileWriter

	// path relative to the output directory
	path   string
	format string

	dir string
	mbt *mbtiles.MBTiles
}

func openPyramid(outDir, tilesDir, name, title, format string, useMBTiles bool) (*pyramid, error) {
	if err := utils.EnsureDirectory(filepath.Join(outDir, tilesDir)); err != nil {
		return nil, err
	}

	p := &pyramid{path: filepath.Join(tilesDir, name), format: format}

	if useMBTiles {
		p.path += ".mbtiles"
		mbt, err := mbtiles.Open(filepath.Join(outDir, p.path), title, format)
		if err != nil {
			return nil, err
		}
		p.mbt, p.TileWriter = mbt, mbt
		return p, nil
	}

	p.dir = filepath.Join(outDir, p.path)
	p.TileWriter = utils.DirectoryWriter{Dir: p.dir, Ext: format}
	return p, nil
}

// finish writes the tile.json or the mbtiles metadata and releases the
// destination.
func (p *pyramid) finish(tj tilejson.TileJSON) error {
	tj.Tiles = []string{tilejson.Template(p.format)}

	if p.mbt == nil {
		return tilejson.Write(p.dir, tj)
	}

	metas := [][2]string{
		{"description", tj.Description},
		{"minzoom", fmt.Sprint(tj.Minzoom)},
		{"maxzoom", fmt.Sprint(tj.Maxzoom)},
	}
	if len(tj.Bounds) == 4 {
		bounds := make([]string, 4)
		for i, v := range tj.Bounds {
			bounds[i] = fmt.Sprint(v)
		}
		metas = append(metas, [2]string{"bounds", strings.Join(bounds, ",")})
	}
	if len(tj.VectorLayers) > 0 {
		layers, err := json.Marshal(struct {
			VectorLayers []tilejson.VectorLayer `json:"vector_layers"`
		}{tj.VectorLayers})
		if err != nil {
			return err
		}
		metas = append(metas, [2]string{"json", string(layers)})
	}

	if err := p.mbt.InsertMeta(metas); err != nil {
		p.mbt.Close()
		return err
	}
	return p.mbt.Close()
}

func (p *pyramid) meta(maxLod uint8) *metajson.Tiles {
	return &metajson.Tiles{Path: p.path, Format: p.format, MaxLod: maxLod}
}

// buildRasterTiles cuts the display image of an output layer into a tile
// pyramid.
func buildRasterTiles(l *layer.Layer, p *pyramid, title string, bounds *orb.Bound) (uint8, error) {
	maxLod := utils.CalcMaxLodFromImage(l.Display)
	fmt.Println("    ℹ️  Calculated max lod:", maxLod)

	for lod := uint8(0); lod <= maxLod; lod++ {
		timer := time.Now()
		if err := utils.BuildTileSet(lod, l.Display, p); err != nil {
			return 0, err
		}
		fmt.Println("    ✔️  Finished tiles for LOD", lod, "in", time.Now().Sub(timer).String())
	}

	tj := tilejson.New(maxLod, fmt.Sprintf("%s Tiles", title), fmt.Sprintf("%s tiles of %s", title, filepath.Base(l.ID)), bounds)
	return maxLod, p.finish(tj)
}

// buildVectorTiles cuts the GeoJSON collections into vector tiles aligned
// with the raster tiles of base.
func buildVectorTiles(base *layer.Layer, collections map[string]*geojson.FeatureCollection, p *pyramid, bounds *orb.Bound) (uint8, error) {
	grid, err := mvt.NewGrid(base.Transform, base.Width, base.Height)
	if err != nil {
		return 0, err
	}

	maxLod := utils.CalcMaxLodFromImage(base.Display)
	if err := mvt.BuildVectorTiles(collections, maxLod, grid, p); err != nil {
		return 0, err
	}

	tj := tilejson.New(maxLod, "Submerge Vector Tiles", fmt.Sprintf("Peaks, shorelines and layer footprints of %s", filepath.Base(base.ID)), bounds)
	for name, fc := range collections {
		tj.VectorLayers = append(tj.VectorLayers, tilejson.VectorLayer{ID: name, Fields: fieldTypes(fc)})
	}
	sort.Slice(tj.VectorLayers, func(i, j int) bool { return tj.VectorLayers[i].ID < tj.VectorLayers[j].ID })

	return maxLod, p.finish(tj)
}

// fieldTypes lists the property types of a collection the way tile.json
// vector layers describe them.
func fieldTypes(fc *geojson.FeatureCollection) map[string]string {
	fields := map[string]string{}
	for _, f := range fc.Features {
		for key, value := range f.Properties {
			switch value.(type) {
			case float64, float32, int, int64, uint8:
				fields[key] = "Number"
			case bool:
				fields[key] = "Boolean"
			case string:
				fields[key] = "String"
			}
		}
	}
	return fields
}
