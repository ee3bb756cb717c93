package info

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gruppe-adler/meh-submerge/internal/metajson"
)

func TestPrint(t *testing.T) {
	noData := -9999.0
	meta := metajson.LayerMeta{
		ID:           "dem.asc",
		Driver:       "AAIGrid",
		Width:        3,
		Height:       2,
		Format:       "16SC1",
		GeoTransform: &[6]float64{10, 1, 0, 20, 0, -1},
		Bounds:       &[4]float64{10, 18, 13, 20},
		CRSKind:      "geographic",
		EPSG:         4326,
		Bands: []metajson.Band{
			{Index: 1, SampleType: "Int16", ColorRole: "Gray", BlockWidth: 3, BlockHeight: 1, Min: -20, Max: 120, NoData: &noData},
		},
	}

	var buf bytes.Buffer
	Print(&buf, meta)
	out := buf.String()

	for _, want := range []string{
		"Driver:     AAIGrid",
		"Size:       3 x 2",
		"Origin:     (10, 20)",
		"Pixel size: (1, -1)",
		"Bounds:     (10, 18) - (13, 20)",
		"CRS:        geographic, EPSG:4326",
		"Band 1:     Int16 Gray, block 3x1, min -20 max 120 (computed), nodata -9999",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output misses %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Shear") || strings.Contains(out, "Palette") {
		t.Errorf("unexpected shear or palette:\n%s", out)
	}
}

func TestPrintNotGeoreferenced(t *testing.T) {
	var buf bytes.Buffer
	Print(&buf, metajson.LayerMeta{ID: "photo.png", CRSKind: "unknown", Palette: "RGB, 4 entries"})

	out := buf.String()
	if !strings.Contains(out, "Not georeferenced") || !strings.Contains(out, "Palette:    RGB, 4 entries") {
		t.Errorf("unexpected output:\n%s", out)
	}
}
