package metajson

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/layer"
)

// Band represents the metadata of one source band
type Band struct {
	Index       int      `json:"index"`
	SampleType  string   `json:"sampleType"`
	ColorRole   string   `json:"colorRole"`
	BlockWidth  int      `json:"blockWidth"`
	BlockHeight int      `json:"blockHeight"`
	NoData      *float64 `json:"noData,omitempty"`
	Min         float64  `json:"min"`
	Max         float64  `json:"max"`
	Mean        float64  `json:"mean"`
	StdDev      float64  `json:"stdDev"`
	// EmbeddedStats is set if min and max were read from the source.
	EmbeddedStats bool `json:"embeddedStats"`
}

// LayerMeta represents the header metadata of a raster layer
type LayerMeta struct {
	ID      string `json:"id"`
	Driver  string `json:"driver"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"`
	Palette string `json:"palette,omitempty"`
	Bands   []Band `json:"bands"`

	GeoTransform *[6]float64 `json:"geoTransform,omitempty"`
	// Bounds is minX, minY, maxX, maxY of the footprint.
	Bounds     *[4]float64 `json:"bounds,omitempty"`
	SpatialRef string      `json:"spatialRef,omitempty"`
	CRSKind    string      `json:"crsKind"`
	EPSG       int         `json:"epsg,omitempty"`
}

// Tiles represents a tile pyramid, either a directory or an .mbtiles file
type Tiles struct {
	Path   string `json:"path"`
	Format string `json:"format"`
	MaxLod uint8  `json:"maxLod"`
}

// MetaJSON represents the meta.json written next to the submerge outputs
type MetaJSON struct {
	Strategy       string     `json:"strategy"`
	MinElevation   float64    `json:"minElevation"`
	ElevationRange [2]float64 `json:"elevationRange"`
	FloodLevels    []float64  `json:"floodLevels"`

	Base LayerMeta `json:"base"`
	DEM  LayerMeta `json:"dem"`

	HeatMap    string `json:"heatMap"`
	Flood      string `json:"flood"`
	Legend     string `json:"legend,omitempty"`
	Peaks      string `json:"peaks,omitempty"`
	Shorelines string `json:"shorelines,omitempty"`

	HeatMapTiles *Tiles `json:"heatMapTiles,omitempty"`
	FloodTiles   *Tiles `json:"floodTiles,omitempty"`
	VectorTiles  *Tiles `json:"vectorTiles,omitempty"`
}

// FromLayer collects the metadata of l
func FromLayer(l *layer.Layer) LayerMeta {
	meta := LayerMeta{
		ID:      l.ID,
		Driver:  l.Driver,
		Width:   l.Width,
		Height:  l.Height,
		Format:  l.Format.String(),
		Bands:   make([]Band, len(l.Bands)),
		CRSKind: georef.KindUnknown.String(),
	}

	if l.Palette != nil {
		meta.Palette = fmt.Sprintf("%s, %d entries", l.Palette.Interp, len(l.Palette.Entries))
	}

	for i, b := range l.Bands {
		band := Band{
			Index:         i + 1,
			SampleType:    b.SampleType.String(),
			ColorRole:     b.Role.String(),
			BlockWidth:    b.BlockWidth,
			BlockHeight:   b.BlockHeight,
			Min:           b.Stats.Min,
			Max:           b.Stats.Max,
			Mean:          b.Stats.Mean,
			StdDev:        b.Stats.StdDev,
			EmbeddedStats: b.Stats.Embedded,
		}
		if b.HasNoData {
			noData := b.NoData
			band.NoData = &noData
		}
		meta.Bands[i] = band
	}

	if quad, ok := l.Footprint(); ok {
		gt := l.Transform.GeoTransform()
		bound := quad.Bound()
		meta.GeoTransform = &gt
		meta.Bounds = &[4]float64{bound.Min[0], bound.Min[1], bound.Max[0], bound.Max[1]}
	}

	if l.SRS != "" {
		meta.SpatialRef = l.SRS
		if sr, err := georef.ParseSpatialRef(l.SRS); err == nil {
			meta.CRSKind = sr.Kind().String()
		}
		if code, ok := georef.EPSGCode(l.SRS); ok {
			meta.EPSG = code
		}
	}

	return meta
}

// Write marshals v as indented JSON to path
func Write(path string, v interface{}) error {
	bytes, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, append(bytes, '\n'), 0644)
}

// Read meta.json from given path
func Read(metaJSONPath string) (MetaJSON, error) {
	var val MetaJSON

	bytes, err := os.ReadFile(metaJSONPath)
	if err != nil {
		return val, err
	}

	if err := json.Unmarshal(bytes, &val); err != nil {
		return val, fmt.Errorf("parsing %s: %w", metaJSONPath, err)
	}

	return val, nil
}
