// Package config holds the settings of the submerge command, read from an
// optional YAML file on top of built-in defaults.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Config is the submerge configuration file.
type Config struct {
	Output    Output    `yaml:"output"`
	Alignment Alignment `yaml:"alignment"`
	Registry  Registry  `yaml:"registry"`
	Tiles     Tiles     `yaml:"tiles"`
}

// Output names the files written by a run, relative to Dir.
type Output struct {
	Dir       string `yaml:"dir"`
	HeatMap   string `yaml:"heatmap"`
	Flood     string `yaml:"flood"`
	Format    string `yaml:"format"`
	Quality   int    `yaml:"quality"`
	WorldFile bool   `yaml:"worldfile"`
	Legend    string `yaml:"legend"`
	Peaks     string `yaml:"peaks"`
	Meta      string `yaml:"meta"`
}

type Alignment struct {
	Strategy     string  `yaml:"strategy"`
	MinElevation float64 `yaml:"minElevation"`
}

type Registry struct {
	MaxSize int    `yaml:"maxSize"`
	Policy  string `yaml:"policy"`
}

// Tiles configures the tile pyramids built from the outputs.
type Tiles struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	// MBTiles stores each pyramid in one .mbtiles file instead of a
	// <lod>/<col>/<row> directory tree.
	MBTiles bool `yaml:"mbtiles"`
	// Vector also cuts peaks and layer footprints into vector tiles.
	Vector bool `yaml:"vector"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Output: Output{
			Dir:       "Data",
			HeatMap:   "heat-map.jpg",
			Flood:     "flooded.jpg",
			Quality:   90,
			WorldFile: true,
			Meta:      "meta.json",
		},
		Alignment: Alignment{
			Strategy:     "geographic",
			MinElevation: -10,
		},
		Registry: Registry{
			MaxSize: 3,
			Policy:  "evict-oldest",
		},
		Tiles: Tiles{
			Dir: "tiles",
		},
	}
}

// Load reads the YAML file at path over the defaults. Keys missing from
// the file keep their default value.
func Load(path string) (Config, error) {
	cfg := Default()

	bytes, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.UnmarshalStrict(bytes, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, cfg.Validate()
}

var strategies = []string{"geographic", "projected", "sift", "surf"}

var formats = []string{"", "jpg", "jpeg", "png", "tif", "tiff"}

// Validate rejects settings no run could work with.
func (c Config) Validate() error {
	if !contains(strategies, strings.ToLower(c.Alignment.Strategy)) {
		return fmt.Errorf("unknown alignment strategy %q", c.Alignment.Strategy)
	}

	switch c.Registry.Policy {
	case "evict-oldest", "reject":
	default:
		return fmt.Errorf("unknown registry policy %q", c.Registry.Policy)
	}

	if c.Output.Quality < 1 || c.Output.Quality > 100 {
		return fmt.Errorf("output quality %d is outside 1..100", c.Output.Quality)
	}

	if !contains(formats, strings.ToLower(c.Output.Format)) {
		return fmt.Errorf("unknown output format %q", c.Output.Format)
	}

	if c.Output.HeatMap == "" || c.Output.Flood == "" {
		return fmt.Errorf("output file names must not be empty")
	}

	if c.Tiles.Enabled && c.Tiles.Dir == "" {
		return fmt.Errorf("tiles are enabled without a tile directory")
	}

	return nil
}

// HeatMapName is the heat map file name with Format applied.
func (o Output) HeatMapName() string { return o.withFormat(o.HeatMap) }

// FloodName is the flood file name with Format applied.
func (o Output) FloodName() string { return o.withFormat(o.Flood) }

func (o Output) withFormat(name string) string {
	if o.Format == "" {
		return name
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name + "." + strings.ToLower(o.Format)
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
