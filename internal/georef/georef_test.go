package georef

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
)

func almostEqual(a, b orb.Point) bool {
	return math.Abs(a[0]-b[0]) < 1e-9 && math.Abs(a[1]-b[1]) < 1e-9
}

func TestAffineFromGeoTransform(t *testing.T) {
	gt := [6]float64{10, 0.5, 0, 20, 0, -0.25}
	a := FromGeoTransform(gt)

	if got := a.GeoTransform(); got != gt {
		t.Fatalf("GeoTransform() = %v, want %v", got, gt)
	}
	if got := a.Origin(); got != (orb.Point{10, 20}) {
		t.Errorf("Origin() = %v", got)
	}
	if got := a.PixelSize(); got != (orb.Point{0.5, -0.25}) {
		t.Errorf("PixelSize() = %v", got)
	}
	if !a.IsNorthUp() {
		t.Errorf("expected north up transform")
	}
	if got := a.Apply(2, 4); got != (orb.Point{11, 19}) {
		t.Errorf("Apply(2, 4) = %v", got)
	}
}

func TestAffineInvert(t *testing.T) {
	a := FromGeoTransform([6]float64{100, 2, 0.5, 50, 0.25, -2})

	inv, ok := a.Invert()
	if !ok {
		t.Fatal("expected invertible transform")
	}

	for _, p := range []orb.Point{{0, 0}, {3, 7}, {12.5, 0.25}} {
		world := a.Apply(p[0], p[1])
		back := inv.Apply(world[0], world[1])
		if !almostEqual(back, p) {
			t.Errorf("round trip of %v gave %v", p, back)
		}
	}

	if _, ok := (Affine{}).Invert(); ok {
		t.Errorf("zero transform must not be invertible")
	}
}

func TestCornersWithShear(t *testing.T) {
	a := FromGeoTransform([6]float64{0, 1, 0.5, 0, 0.25, -1})
	q := a.Corners(4, 2)

	want := Quad{
		TL: orb.Point{0, 0},
		TR: orb.Point{4, 1},
		BL: orb.Point{1, -2},
		BR: orb.Point{5, -1},
	}
	if q != want {
		t.Fatalf("Corners() = %+v, want %+v", q, want)
	}

	b := q.Bound()
	if b.Min != (orb.Point{0, -2}) || b.Max != (orb.Point{5, 1}) {
		t.Errorf("Bound() = %v", b)
	}

	ring := q.Polygon()[0]
	if len(ring) != 5 || ring[0] != ring[4] {
		t.Errorf("footprint ring is not closed: %v", ring)
	}
}

func TestQuadInterpolate(t *testing.T) {
	q := NorthUp(0, 0, 1, -1).Corners(4, 4)

	tests := []struct {
		rx, ry float64
		want   orb.Point
	}{
		{0, 0, orb.Point{0, 0}},
		{0.75, 0.75, orb.Point{3, -3}},
		{1, 1, orb.Point{4, -4}},
		{0.5, 0.25, orb.Point{2, -1}},
	}

	for _, tt := range tests {
		if got := q.Interpolate(tt.rx, tt.ry); !almostEqual(got, tt.want) {
			t.Errorf("Interpolate(%v, %v) = %v, want %v", tt.rx, tt.ry, got, tt.want)
		}
	}
}

func TestAffineScale(t *testing.T) {
	a := NorthUp(10, 10, 1, -1)
	half := a.Scale(0.5, 0.5)

	if got := half.Corners(2, 2).BR; got != a.Corners(4, 4).BR {
		t.Errorf("scaled transform covers %v, want %v", got, a.Corners(4, 4).BR)
	}
}

func TestWorldFileExt(t *testing.T) {
	tests := map[string]string{
		"a/heat-map.png": ".pgw",
		"flooded.jpg":    ".jgw",
		"flooded.JPEG":   ".jgw",
		"dem.tif":        ".tfw",
		"noext":          ".wld",
	}

	for in, want := range tests {
		if got := WorldFileExt(in); got != want {
			t.Errorf("WorldFileExt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWorldFileUsesPixelCenters(t *testing.T) {
	dir := t.TempDir()
	imagePath := filepath.Join(dir, "sat.png")
	worldPath := filepath.Join(dir, "sat"+WorldFileExt(imagePath))

	a := FromGeoTransform([6]float64{30, 0.5, 0, 60, 0, -0.5})
	if err := WriteWorldFile(worldPath, a); err != nil {
		t.Fatal(err)
	}

	found, ok := FindWorldFile(imagePath)
	if !ok || found != worldPath {
		t.Fatalf("FindWorldFile() = %q, %v", found, ok)
	}

	got, err := ReadWorldFile(found)
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Errorf("ReadWorldFile() = %v, want %v", got, a)
	}
}

func TestPrjSidecar(t *testing.T) {
	imagePath := filepath.Join(t.TempDir(), "dem.asc")

	if _, ok, err := ReadPrj(imagePath); ok || err != nil {
		t.Fatalf("missing sidecar: ok=%v err=%v", ok, err)
	}

	if err := WritePrj(imagePath, WGS84); err != nil {
		t.Fatal(err)
	}

	def, ok, err := ReadPrj(imagePath)
	if err != nil || !ok || def != WGS84 {
		t.Errorf("ReadPrj() = %q, %v, %v", def, ok, err)
	}
}

func TestParseSpatialRef(t *testing.T) {
	tests := []struct {
		def  string
		kind Kind
	}{
		{WGS84, Geographic},
		{"EPSG:4326", Geographic},
		{"+proj=utm +zone=33 +datum=WGS84 +units=m +no_defs", Projected},
		{"EPSG:32633", Projected},
	}

	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			sr, err := ParseSpatialRef(tt.def)
			if err != nil {
				t.Fatal(err)
			}
			if sr.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", sr.Kind(), tt.kind)
			}
		})
	}

	if _, err := ParseSpatialRef("  "); !errors.Is(err, ErrEmptySpatialRef) {
		t.Errorf("expected ErrEmptySpatialRef, got %v", err)
	}
	if _, err := ParseSpatialRef("EPSG:999999"); err == nil {
		t.Errorf("expected unknown EPSG code to fail")
	}
}

func TestEPSGCode(t *testing.T) {
	tests := []struct {
		def  string
		code int
		ok   bool
	}{
		{"EPSG:3857", 3857, true},
		{WGS84, 4326, true},
		{WebMercator, 3857, true},
		{"+proj=utm +zone=32 +datum=WGS84 +units=m +no_defs", 32632, true},
		{"+proj=utm +zone=19 +south +datum=WGS84 +units=m +no_defs", 32719, true},
		{"+proj=longlat +datum=NAD27 +no_defs", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		code, ok := EPSGCode(tt.def)
		if code != tt.code || ok != tt.ok {
			t.Errorf("EPSGCode(%q) = %d, %v, want %d, %v", tt.def, code, ok, tt.code, tt.ok)
		}
	}
}
