package submerge

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gruppe-adler/meh-submerge/internal/config"
	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/metajson"
	"github.com/gruppe-adler/meh-submerge/internal/peaks"
	"github.com/gruppe-adler/meh-submerge/internal/shorelines"
	"github.com/gruppe-adler/meh-submerge/internal/validate"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Run is the program's entrypoint
func Run(flagSet *flag.FlagSet) {

	var timer time.Time
	start := time.Now()

	imagePtr := flagSet.String("image", "", "Path to georeferenced base image")
	demPtr := flagSet.String("dem", "", "Path to elevation model")
	outputPtr := flagSet.String("out", "", "Path to output directory (default from config: Data)")
	configPtr := flagSet.String("config", "", "Path to YAML config file")
	strategyPtr := flagSet.String("strategy", "", "Alignment strategy: geographic, projected, sift or surf")
	tilesPtr := flagSet.Bool("tiles", false, "Build tile pyramids of both outputs")
	legendPtr := flagSet.String("legend", "", "File name of the color ramp legend PNG")
	peaksPtr := flagSet.String("peaks", "", "File name of the peaks GeoJSON")
	footprintsPtr := flagSet.String("footprints", "", "File name of the layer footprints GeoJSON")
	shorelinesPtr := flagSet.String("shorelines", "", "File name of the flood level shorelines GeoJSON")

	flagSet.Parse(os.Args[2:])

	// make sure both inputs are present
	if *imagePtr == "" || *demPtr == "" {
		flagSet.PrintDefaults()
		os.Exit(1)
	}

	// load config
	cfg := config.Default()
	if *configPtr != "" {
		var err error
		cfg, err = config.Load(*configPtr)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Println("✔️  Loaded config", *configPtr)
	}

	// explicitly set flags win over the config file
	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "out":
			cfg.Output.Dir = *outputPtr
		case "strategy":
			cfg.Alignment.Strategy = *strategyPtr
		case "tiles":
			cfg.Tiles.Enabled = *tilesPtr
		case "legend":
			cfg.Output.Legend = *legendPtr
		case "peaks":
			cfg.Output.Peaks = *peaksPtr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	strategy, err := ParseStrategy(cfg.Alignment.Strategy)
	if err != nil {
		log.Fatal(err)
	}
	policy, err := layer.ParsePolicy(cfg.Registry.Policy)
	if err != nil {
		log.Fatal(err)
	}

	// validate inputs and output directory
	for _, p := range []string{*imagePtr, *demPtr} {
		if err := validate.RasterFile(p); err != nil {
			log.Fatal(err)
		}
	}
	if err := validate.OutputDirectory(cfg.Output.Dir); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✔️  Validated inputs and output directory")

	registry := layer.NewRegistry(cfg.Registry.MaxSize, policy)
	registry.Subscribe(func(e layer.Event) {
		if e.Kind == layer.Evicted {
			fmt.Println("ℹ️  Evicted layer", e.ID)
		}
	})

	// load base image
	timer = time.Now()
	fmt.Println("▶️  Loading base image")
	base := openLayer(registry, *imagePtr)
	fmt.Printf("✔️  Loaded %s base image (%dx%d, %s) in %s\n", base.Driver, base.Width, base.Height, base.Format, time.Now().Sub(timer).String())

	// load DEM
	timer = time.Now()
	fmt.Println("▶️  Loading DEM")
	dem := openLayer(registry, *demPtr)
	fmt.Printf("✔️  Loaded %s DEM (%dx%d, %s) in %s\n", dem.Driver, dem.Width, dem.Height, dem.Format, time.Now().Sub(timer).String())

	if err := registry.SetCurrent(base.ID); err != nil {
		log.Fatal(err)
	}

	// align and composite
	timer = time.Now()
	fmt.Printf("▶️  Simulating flood (%s alignment)\n", strategy)

	out := &Output{
		Dir:        cfg.Output.Dir,
		HeatMap:    cfg.Output.HeatMapName(),
		Flood:      cfg.Output.FloodName(),
		Quality:    cfg.Output.Quality,
		WorldFiles: cfg.Output.WorldFile,
	}
	result, err := Simulate(base, dem,
		WithStrategy(strategy),
		WithMinElevation(cfg.Alignment.MinElevation),
		WithProgress(rowProgress(base.Height), func() {
			fmt.Println("    ✔️  Wrote", out.HeatMap, "and", out.Flood)
		}),
		WithOutput(out),
	)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("✔️  Simulated flood in", time.Now().Sub(timer).String())
	fmt.Printf("ℹ️  Sampled elevations from %g m to %g m\n", result.MinElevation, result.MaxElevation)

	meta := metajson.MetaJSON{
		Strategy:       strategy.String(),
		MinElevation:   cfg.Alignment.MinElevation,
		ElevationRange: [2]float64{result.MinElevation, result.MaxElevation},
		FloodLevels:    FloodLevels,
		Base:           metajson.FromLayer(base),
		DEM:            metajson.FromLayer(dem),
		HeatMap:        out.HeatMap,
		Flood:          out.Flood,
	}

	// re-ingest outputs
	timer = time.Now()
	fmt.Println("▶️  Registering outputs")
	outputs := registerOutputs(registry, base, result.HeatMapPath, result.FloodPath)
	heatMap, flood := outputs[0], outputs[1]
	fmt.Printf("✔️  Registered outputs in %s, %d layers registered\n", time.Now().Sub(timer).String(), registry.Len())

	// legend
	if cfg.Output.Legend != "" {
		timer = time.Now()
		fmt.Println("▶️  Drawing legend")
		if err := SaveLegend(filepath.Join(cfg.Output.Dir, cfg.Output.Legend), DefaultRamp()); err != nil {
			log.Fatal(err)
		}
		meta.Legend = cfg.Output.Legend
		fmt.Println("✔️  Drew legend in", time.Now().Sub(timer).String())
	}

	// peaks
	var peaksCollection *geojson.FeatureCollection
	if cfg.Output.Peaks != "" || (cfg.Tiles.Enabled && cfg.Tiles.Vector) {
		timer = time.Now()
		fmt.Println("▶️  Finding peaks")
		found := peaks.Find(dem)
		peaksCollection = peaks.Collection(found, FloodLevels)
		if cfg.Output.Peaks != "" {
			if err := writeGeoJSON(filepath.Join(cfg.Output.Dir, cfg.Output.Peaks), peaksCollection); err != nil {
				log.Fatal(err)
			}
			meta.Peaks = cfg.Output.Peaks
		}
		fmt.Printf("✔️  Found %d peaks in %s\n", len(found), time.Now().Sub(timer).String())
	}

	// shorelines
	var shorelinesCollection *geojson.FeatureCollection
	if *shorelinesPtr != "" || (cfg.Tiles.Enabled && cfg.Tiles.Vector) {
		timer = time.Now()
		fmt.Println("▶️  Tracing shorelines")
		shorelinesCollection = shorelines.Collection(dem, FloodLevels)
		if *shorelinesPtr != "" {
			if err := writeGeoJSON(filepath.Join(cfg.Output.Dir, *shorelinesPtr), shorelinesCollection); err != nil {
				log.Fatal(err)
			}
			meta.Shorelines = *shorelinesPtr
		}
		fmt.Printf("✔️  Traced %d shorelines in %s\n", len(shorelinesCollection.Features), time.Now().Sub(timer).String())
	}

	// tiles
	if cfg.Tiles.Enabled {
		bounds := lonLatBounds(base)
		for _, target := range []struct {
			title string
			layer *layer.Layer
			meta  **metajson.Tiles
		}{
			{"Heat map", heatMap, &meta.HeatMapTiles},
			{"Flood", flood, &meta.FloodTiles},
		} {
			if target.layer == nil || target.layer.Display == nil {
				continue
			}

			timer = time.Now()
			fmt.Printf("▶️  Building %s tiles\n", strings.ToLower(target.title))
			stem := strings.TrimSuffix(filepath.Base(target.layer.ID), filepath.Ext(target.layer.ID))
			p, err := openPyramid(cfg.Output.Dir, cfg.Tiles.Dir, stem, target.title, "png", cfg.Tiles.MBTiles)
			if err != nil {
				log.Fatal(err)
			}
			maxLod, err := buildRasterTiles(target.layer, p, target.title, bounds)
			if err != nil {
				log.Fatal(err)
			}
			*target.meta = p.meta(maxLod)
			fmt.Printf("✔️  Built %s tiles in %s\n", strings.ToLower(target.title), time.Now().Sub(timer).String())
		}

		if cfg.Tiles.Vector && base.Display != nil {
			timer = time.Now()
			fmt.Println("▶️  Building vector tiles")
			collections := map[string]*geojson.FeatureCollection{
				"footprints": registry.FootprintCollection(),
				"peaks":      peaksCollection,
				"shorelines": shorelinesCollection,
			}
			p, err := openPyramid(cfg.Output.Dir, cfg.Tiles.Dir, "vector", "Vector", "pbf", cfg.Tiles.MBTiles)
			if err != nil {
				log.Fatal(err)
			}
			maxLod, err := buildVectorTiles(base, collections, p, bounds)
			if err != nil {
				log.Fatal(err)
			}
			meta.VectorTiles = p.meta(maxLod)
			fmt.Println("✔️  Built vector tiles in", time.Now().Sub(timer).String())
		}
	}

	// footprints
	if *footprintsPtr != "" {
		if err := writeGeoJSON(filepath.Join(cfg.Output.Dir, *footprintsPtr), registry.FootprintCollection()); err != nil {
			log.Fatal(err)
		}
		fmt.Println("✔️  Wrote layer footprints")
	}

	// meta.json
	if err := metajson.Write(filepath.Join(cfg.Output.Dir, cfg.Output.Meta), meta); err != nil {
		log.Fatal(err)
	}
	fmt.Println("✔️  Wrote", cfg.Output.Meta)

	fmt.Printf("\n    🎉  Finished in %s\n", time.Now().Sub(start).String())
}

func openLayer(registry *layer.Registry, path string) *layer.Layer {
	l, err := layer.Open(path)
	if err != nil {
		log.Fatal(err)
	}
	if err := registry.Add(l); err != nil {
		log.Fatal(err)
	}
	return l
}

// ingest registers a written output. The outputs are already on disk, so
// failing to register them is not fatal.
func ingest(registry *layer.Registry, path string) *layer.Layer {
	l, err := layer.Open(path)
	if err != nil {
		fmt.Println("ℹ️  Could not re-open", path+":", err)
		return nil
	}
	if err := registry.Add(l); err != nil {
		fmt.Println("ℹ️  Not registering", path+":", err)
	}
	return l
}

// registerOutputs ingests the written outputs while keeping base selected,
// so eviction never drops the base image.
func registerOutputs(registry *layer.Registry, base *layer.Layer, paths ...string) []*layer.Layer {
	outputs := make([]*layer.Layer, len(paths))
	for i, path := range paths {
		outputs[i] = ingest(registry, path)
		if err := registry.SetCurrent(base.ID); err != nil {
			fmt.Println("ℹ️  Could not reselect", base.ID+":", err)
		}
	}
	return outputs
}

// rowProgress prints every 10 % of the rows.
func rowProgress(height int) func(row int) {
	next := 10
	return func(row int) {
		percent := (row + 1) * 100 / height
		for percent >= next {
			fmt.Printf("    %3d %%\n", next)
			next += 10
		}
	}
}

// lonLatBounds is nil unless the layer is in a geographic coordinate system.
func lonLatBounds(l *layer.Layer) *orb.Bound {
	if bound, ok := l.GeographicBound(); ok {
		return &bound
	}
	return nil
}

func writeGeoJSON(path string, fc *geojson.FeatureCollection) error {
	bytes, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, bytes, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
