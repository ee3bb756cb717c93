package submerge

import (
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio"
)

// Output tells Simulate where to write its images.
type Output struct {
	Dir     string
	HeatMap string
	Flood   string
	// Quality is the JPEG quality.
	Quality int
	// WorldFiles writes world file and .prj sidecars next to JPEG and PNG images.
	WorldFiles bool
}

// DefaultOutput writes Data/heat-map.jpg and Data/flooded.jpg.
func DefaultOutput() *Output {
	return &Output{
		Dir:        "Data",
		HeatMap:    "heat-map.jpg",
		Flood:      "flooded.jpg",
		Quality:    90,
		WorldFiles: true,
	}
}

// Options configure Simulate.
type Options struct {
	Strategy     Strategy
	MinElevation float64
	Ramp         Ramp
	// OnRow is called after each finished output row.
	OnRow func(row int)
	// OnDone is called once after both images are written.
	OnDone func()
	// Output is where the images go. Nothing is written if nil.
	Output *Output
}

// Result holds the rendered images and their georeferencing.
type Result struct {
	HeatMap *image.RGBA
	Flood   *image.RGBA

	Transform georef.Affine
	SRS       string

	// MinElevation and MaxElevation span the sampled elevations.
	MinElevation float64
	MaxElevation float64

	HeatMapPath string
	FloodPath   string
}

// Simulate samples the elevation model under every pixel of the base image,
// row by row, and renders the elevation heat map and the flood overlay.
// Output files are only written after the full pass. If writing fails the
// pair is to be considered invalid.
func Simulate(base, dem *layer.Layer, opts ...func(*Options)) (*Result, error) {
	options := Options{
		Strategy:     Geographic,
		MinElevation: DefaultMinElevation,
		Ramp:         DefaultRamp(),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if err := options.Ramp.Validate(); err != nil {
		return nil, err
	}

	aligner, err := NewAligner(base, dem, options.Strategy, options.MinElevation)
	if err != nil {
		return nil, err
	}

	if base.Display == nil {
		return nil, fmt.Errorf("%w: %s has no display image", ErrMissingInput, base.ID)
	}

	compositor := NewCompositor(base.Display, options.Ramp)
	result := &Result{
		Transform:    base.Transform,
		SRS:          base.SRS,
		MinElevation: math.Inf(1),
		MaxElevation: math.Inf(-1),
	}

	for y := 0; y < base.Height; y++ {
		for x := 0; x < base.Width; x++ {
			elevation := aligner.Elevation(x, y)
			compositor.Put(x, y, elevation)

			result.MinElevation = math.Min(result.MinElevation, elevation)
			result.MaxElevation = math.Max(result.MaxElevation, elevation)
		}

		if options.OnRow != nil {
			options.OnRow(y)
		}
	}

	result.HeatMap = compositor.HeatMap
	result.Flood = compositor.Flood

	if options.Output != nil {
		if err := result.write(options.Output); err != nil {
			return nil, err
		}
	}

	if options.OnDone != nil {
		options.OnDone()
	}

	return result, nil
}

func (r *Result) write(out *Output) error {
	if err := os.MkdirAll(out.Dir, 0755); err != nil {
		return err
	}

	r.HeatMapPath = filepath.Join(out.Dir, out.HeatMap)
	r.FloodPath = filepath.Join(out.Dir, out.Flood)

	save := rasterio.SaveOptions{Quality: out.Quality, SkipSidecars: !out.WorldFiles}

	if err := rasterio.Save(r.HeatMapPath, r.HeatMap, r.Transform, r.SRS, save); err != nil {
		return fmt.Errorf("writing heat map: %w", err)
	}
	if err := rasterio.Save(r.FloodPath, r.Flood, r.Transform, r.SRS, save); err != nil {
		return fmt.Errorf("writing flood overlay: %w", err)
	}
	return nil
}

// WithStrategy selects the alignment strategy.
func WithStrategy(s Strategy) func(*Options) {
	return func(o *Options) { o.Strategy = s }
}

// WithMinElevation sets the elevation sampled outside the elevation model.
func WithMinElevation(v float64) func(*Options) {
	return func(o *Options) { o.MinElevation = v }
}

// WithRamp replaces the heat map color ramp.
func WithRamp(r Ramp) func(*Options) {
	return func(o *Options) { o.Ramp = r }
}

// WithProgress registers the per row and completion callbacks.
func WithProgress(onRow func(row int), onDone func()) func(*Options) {
	return func(o *Options) {
		o.OnRow = onRow
		o.OnDone = onDone
	}
}

// WithOutput writes both images as described by out.
func WithOutput(out *Output) func(*Options) {
	return func(o *Options) { o.Output = out }
}
