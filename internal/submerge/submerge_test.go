package submerge

import (
	"errors"
	"image"
	"image/color"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/paulmach/orb"
)

func init() {
	SetLogger(log.New(io.Discard, "", 0))
	layer.SetLogger(log.New(io.Discard, "", 0))
}

const utm33 = "+proj=utm +zone=33 +datum=WGS84 +units=m +no_defs"

func fill(n int, v float64) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = v
	}
	return data
}

// testLayers returns a gray 4x4 base image and a 4x4 elevation model on the
// same grid. The model is 150 m everywhere except -20 m at column 1, row 2.
func testLayers(t *testing.T, srs string) (base, dem *layer.Layer) {
	t.Helper()

	b := raster.NewMemDataset(4, 4)
	b.AddBand(raster.Byte, raster.RoleGray, fill(16, 100))
	b.SetGeoTransform(georef.NorthUp(0, 0, 1, -1))
	b.SRS = srs

	elevations := fill(16, 150)
	elevations[2*4+1] = -20
	d := raster.NewMemDataset(4, 4)
	d.AddBand(raster.Int16, raster.RoleGray, elevations)
	d.SetGeoTransform(georef.NorthUp(0, 0, 1, -1))
	d.SRS = srs

	var err error
	if base, err = layer.FromDataset("base", b); err != nil {
		t.Fatal(err)
	}
	if dem, err = layer.FromDataset("dem", d); err != nil {
		t.Fatal(err)
	}
	return base, dem
}

func TestAlignerIdenticalGrids(t *testing.T) {
	base, dem := testLayers(t, georef.WGS84)

	a, err := NewAligner(base, dem, Geographic, DefaultMinElevation)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		x, y     int
		world    orb.Point
		col, row float64
	}{
		{0, 0, orb.Point{0, 0}, 0, 0},
		{3, 3, orb.Point{3, -3}, 3, 3},
		{1, 2, orb.Point{1, -2}, 1, 2},
	}

	for _, tt := range tests {
		world := a.World(tt.x, tt.y)
		if world != tt.world {
			t.Errorf("World(%d, %d) = %v, want %v", tt.x, tt.y, world, tt.world)
		}
		col, row := a.DEMPixel(world)
		if col != tt.col || row != tt.row {
			t.Errorf("DEMPixel(%v) = %v, %v, want %v, %v", world, col, row, tt.col, tt.row)
		}
	}

	if e := a.Elevation(1, 2); e != -20 {
		t.Errorf("Elevation(1, 2) = %v", e)
	}
	if e := a.Elevation(0, 0); e != 150 {
		t.Errorf("Elevation(0, 0) = %v", e)
	}
}

func TestAlignerOutsideModel(t *testing.T) {
	base, _ := testLayers(t, georef.WGS84)

	d := raster.NewMemDataset(2, 2)
	d.AddBand(raster.Float32, raster.RoleGray, []float64{1.9, -1.9, 70000, 5})
	d.SetGeoTransform(georef.NorthUp(0, 0, 1, -1))
	d.SRS = georef.WGS84
	dem, err := layer.FromDataset("small", d)
	if err != nil {
		t.Fatal(err)
	}

	a, err := NewAligner(base, dem, Geographic, -10)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		x, y int
		want float64
	}{
		{0, 0, 1},
		{1, 0, -1},
		{0, 1, 32767},
		{3, 3, -10},
		{2, 0, -10},
	}
	for _, tt := range tests {
		if e := a.Elevation(tt.x, tt.y); e != tt.want {
			t.Errorf("Elevation(%d, %d) = %v, want %v", tt.x, tt.y, e, tt.want)
		}
	}
}

func TestAlignerRejects(t *testing.T) {
	base, dem := testLayers(t, georef.WGS84)
	utmBase, utmDEM := testLayers(t, utm33)
	noSRS, _ := testLayers(t, "")

	flat := raster.NewMemDataset(4, 4)
	flat.AddBand(raster.Byte, raster.RoleGray, nil)
	flat.SRS = georef.WGS84
	notGeoreferenced, err := layer.FromDataset("flat", flat)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		base, dem *layer.Layer
		strategy  Strategy
		want      error
	}{
		{"no base", nil, dem, Geographic, ErrMissingInput},
		{"not georeferenced", notGeoreferenced, dem, Geographic, ErrMissingInput},
		{"empty spatial reference", noSRS, dem, Geographic, ErrCRSParse},
		{"geographic on projected inputs", utmBase, utmDEM, Geographic, ErrUnsupportedCoordinateSystem},
		{"projected on geographic inputs", base, dem, Projected, ErrUnsupportedCoordinateSystem},
		{"projected", utmBase, utmDEM, Projected, ErrNotImplemented},
		{"sift", base, dem, SIFT, ErrNotImplemented},
		{"surf", utmBase, dem, SURF, ErrNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAligner(tt.base, tt.dem, tt.strategy, DefaultMinElevation)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewAligner() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{Geographic, Projected, SIFT, SURF} {
		got, err := ParseStrategy(" " + s.String() + " ")
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) = %v, %v", s.String(), got, err)
		}
	}
	if _, err := ParseStrategy("orb"); err == nil {
		t.Errorf("ParseStrategy(orb) succeeded")
	}
}

func TestRampColor(t *testing.T) {
	ramp := DefaultRamp()

	tests := []struct {
		name      string
		elevation float64
		want      color.RGBA
	}{
		{"below lowest stop", -50, ramp[0].Color},
		{"at lowest stop", -1, ramp[0].Color},
		{"above highest stop", 8848, ramp[len(ramp)-1].Color},
		{"at highest stop", 200, ramp[len(ramp)-1].Color},
		{"at interior stop", 20, ramp[2].Color},
		{"halfway", 87.5, color.RGBA{185, 205, 190, 255}},
		{"fractions truncated", 76, color.RGBA{198, 218, 162, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ramp.Color(tt.elevation); got != tt.want {
				t.Errorf("Color(%v) = %v, want %v", tt.elevation, got, tt.want)
			}
		})
	}
}

func TestRampValidate(t *testing.T) {
	if err := DefaultRamp().Validate(); err != nil {
		t.Errorf("DefaultRamp().Validate() = %v", err)
	}
	if err := (Ramp{}).Validate(); err == nil {
		t.Errorf("empty ramp is valid")
	}
	unordered := Ramp{{color.RGBA{A: 255}, 10}, {color.RGBA{A: 255}, 10}}
	if err := unordered.Validate(); err == nil {
		t.Errorf("unordered ramp is valid")
	}
}

func TestTint(t *testing.T) {
	base := color.RGBA{100, 100, 100, 255}

	tests := []struct {
		elevation float64
		base      color.RGBA
		want      color.RGBA
	}{
		{-20, base, color.RGBA{100, 100, 130, 255}},
		{9.9, base, color.RGBA{100, 100, 130, 255}},
		{10, base, color.RGBA{130, 130, 100, 255}},
		{30, base, color.RGBA{130, 115, 100, 255}},
		{99, base, color.RGBA{130, 100, 100, 255}},
		{100, base, base},
		{-20, color.RGBA{10, 20, 230, 255}, color.RGBA{10, 20, 230, 255}},
		{-20, color.RGBA{10, 20, 224, 255}, color.RGBA{10, 20, 254, 255}},
		{15, color.RGBA{240, 200, 0, 255}, color.RGBA{240, 230, 0, 255}},
	}

	for _, tt := range tests {
		if got := Tint(tt.base, tt.elevation); got != tt.want {
			t.Errorf("Tint(%v, %v) = %v, want %v", tt.base, tt.elevation, got, tt.want)
		}
	}
}

func TestSimulate(t *testing.T) {
	base, dem := testLayers(t, georef.WGS84)
	dir := filepath.Join(t.TempDir(), "Data")

	var rows []int
	done := 0
	result, err := Simulate(base, dem,
		WithProgress(func(row int) { rows = append(rows, row) }, func() { done++ }),
		WithOutput(&Output{Dir: dir, HeatMap: "heat-map.png", Flood: "flooded.png", Quality: 90, WorldFiles: true}),
	)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 4 {
		t.Fatalf("OnRow called %d times", len(rows))
	}
	for i, row := range rows {
		if row != i {
			t.Errorf("row %d reported as %d", i, row)
		}
	}
	if done != 1 {
		t.Errorf("OnDone called %d times", done)
	}

	if got := result.Flood.RGBAAt(1, 2); got != (color.RGBA{100, 100, 130, 255}) {
		t.Errorf("flood pixel at -20 m = %v", got)
	}
	if got := result.Flood.RGBAAt(0, 0); got != (color.RGBA{100, 100, 100, 255}) {
		t.Errorf("flood pixel at 150 m = %v", got)
	}
	if got, want := result.HeatMap.RGBAAt(1, 2), DefaultRamp()[0].Color; got != want {
		t.Errorf("heat map pixel at -20 m = %v, want %v", got, want)
	}
	if result.MinElevation != -20 || result.MaxElevation != 150 {
		t.Errorf("elevation range = %v..%v", result.MinElevation, result.MaxElevation)
	}

	for _, path := range []string{
		result.HeatMapPath,
		result.FloodPath,
		filepath.Join(dir, "heat-map.pgw"),
		filepath.Join(dir, "flooded.prj"),
	} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing output: %v", err)
		}
	}
}

func TestSimulateFailureSkipsCallbacks(t *testing.T) {
	base, dem := testLayers(t, georef.WGS84)

	called := false
	_, err := Simulate(base, dem,
		WithStrategy(SURF),
		WithProgress(func(int) { called = true }, func() { called = true }),
	)
	if !errors.Is(err, ErrNotImplemented) {
		t.Errorf("Simulate() error = %v", err)
	}
	if called {
		t.Errorf("progress reported for a failed run")
	}

	_, err = Simulate(base, dem, WithRamp(Ramp{}))
	if err == nil {
		t.Errorf("Simulate() with an empty ramp succeeded")
	}
}

func TestRenderLegend(t *testing.T) {
	img := RenderLegend(DefaultRamp(), 160, 320)
	if img.Bounds() != image.Rect(0, 0, 160, 320) {
		t.Errorf("Bounds() = %v", img.Bounds())
	}

	path := filepath.Join(t.TempDir(), "legend.png")
	if err := SaveLegend(path, DefaultRamp()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error(err)
	}
}

func TestRegisterOutputsKeepsBase(t *testing.T) {
	base, dem := testLayers(t, georef.WGS84)

	registry := layer.NewRegistry(layer.DefaultMaxSize, layer.PolicyEvictOldest)
	for _, l := range []*layer.Layer{base, dem} {
		if err := registry.Add(l); err != nil {
			t.Fatal(err)
		}
	}
	if err := registry.SetCurrent(base.ID); err != nil {
		t.Fatal(err)
	}

	result, err := Simulate(base, dem,
		WithOutput(&Output{Dir: t.TempDir(), HeatMap: "heat-map.png", Flood: "flooded.png", WorldFiles: true}),
	)
	if err != nil {
		t.Fatal(err)
	}

	outputs := registerOutputs(registry, base, result.HeatMapPath, result.FloodPath)
	for i, l := range outputs {
		if l == nil {
			t.Fatalf("output %d not opened", i)
		}
	}

	if current, ok := registry.Current(); !ok || current.ID != base.ID {
		t.Errorf("current = %v, want %s", current, base.ID)
	}
	if _, ok := registry.Get(base.ID); !ok {
		t.Errorf("base was evicted, registered: %v", registry.IDs())
	}
	if _, ok := registry.Get(dem.ID); ok {
		t.Errorf("dem still registered: %v", registry.IDs())
	}
	for _, path := range []string{result.HeatMapPath, result.FloodPath} {
		if _, ok := registry.Get(path); !ok {
			t.Errorf("%s not registered: %v", path, registry.IDs())
		}
	}
}

func TestCompositorTranslucentBase(t *testing.T) {
	base := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	base.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 128})
	base.SetNRGBA(1, 0, color.NRGBA{10, 20, 30, 0})

	c := NewCompositor(base, DefaultRamp())
	c.Put(0, 0, 150)
	c.Put(1, 0, -20)

	if got, want := c.Flood.RGBAAt(0, 0), (color.RGBA{200, 100, 50, 255}); got != want {
		t.Errorf("flood pixel over translucent base = %v, want %v", got, want)
	}
	if got, want := c.Flood.RGBAAt(1, 0), (color.RGBA{10, 20, 60, 255}); got != want {
		t.Errorf("flood pixel over transparent base = %v, want %v", got, want)
	}
}
