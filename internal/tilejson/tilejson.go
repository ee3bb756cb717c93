package tilejson

import (
	"encoding/json"
	"os"
	"path"

	"github.com/paulmach/orb"
)

// VectorLayer represents a vector layer of a tile.json
type VectorLayer struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

// TileJSON represents a tile.json
type TileJSON struct {
	TileJSON     string        `json:"tilejson"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	Scheme       string        `json:"scheme"`
	Tiles        []string      `json:"tiles"`
	Minzoom      uint8         `json:"minzoom"`
	Maxzoom      uint8         `json:"maxzoom"`
	Bounds       []float64     `json:"bounds,omitempty"`
	Encoding     string        `json:"encoding,omitempty"`
	VectorLayers []VectorLayer `json:"vector_layers,omitempty"`
}

// TileTemplate is the tile path relative to the tile.json, as written by
// utils.DirectoryWriter
const TileTemplate = "{z}/{x}/{y}.png"

// Template is the tile path for tiles with given file extension
func Template(ext string) string {
	return "{z}/{x}/{y}." + ext
}

// New describes a raster tile pyramid of the given depth. bounds are in
// longitude/latitude and are left out if nil.
func New(maxLod uint8, name, description string, bounds *orb.Bound) TileJSON {
	obj := TileJSON{
		TileJSON:    "2.2.0",
		Name:        name,
		Description: description,
		Scheme:      "xyz",
		Tiles:       []string{Template("png")},
		Minzoom:     0,
		Maxzoom:     maxLod,
	}

	if bounds != nil {
		obj.Bounds = []float64{bounds.Min.X(), bounds.Min.Y(), bounds.Max.X(), bounds.Max.Y()}
	}

	return obj
}

// Write a tile.json into outputDirectory
func Write(outputDirectory string, obj TileJSON) error {
	bytes, err := json.MarshalIndent(obj, "", "    ")
	if err != nil {
		return err
	}

	return os.WriteFile(path.Join(outputDirectory, "tile.json"), bytes, 0644)
}

// Read a tile.json from outputDirectory
func Read(outputDirectory string) (TileJSON, error) {
	var obj TileJSON

	bytes, err := os.ReadFile(path.Join(outputDirectory, "tile.json"))
	if err != nil {
		return obj, err
	}

	err = json.Unmarshal(bytes, &obj)
	return obj, err
}
