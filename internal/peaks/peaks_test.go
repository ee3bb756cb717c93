package peaks

import (
	"testing"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/layer"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/paulmach/orb"
)

func demLayer(t *testing.T, width, height int, data []float64) *layer.Layer {
	t.Helper()
	ds := raster.NewMemDataset(width, height)
	b := ds.AddBand(raster.Int16, raster.RoleGray, data)
	b.NoDataValue, b.HasNoData = -9999, true
	ds.SetGeoTransform(georef.NorthUp(100, 200, 10, -10))

	l, err := layer.FromDataset("dem", ds)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestFind(t *testing.T) {
	l := demLayer(t, 5, 4, []float64{
		0, 0, 0, 0, 0,
		0, 60, 1, 15, 0,
		0, 5, 3, 15, 0,
		0, 0, 0, 0, 0,
	})

	peaks := Find(l)
	if len(peaks) != 1 {
		t.Fatalf("found %d peaks, want 1: %+v", len(peaks), peaks)
	}

	p := peaks[0]
	if p.Col != 1 || p.Row != 1 || p.Elevation != 60 {
		t.Errorf("peak = %+v", p)
	}
	if p.Point != (orb.Point{115, 185}) {
		t.Errorf("Point = %v", p.Point)
	}
}

func TestFindSortsAndSkipsWater(t *testing.T) {
	l := demLayer(t, 5, 3, []float64{
		-50, -50, -50, -50, -50,
		-50, -5, -50, 30, -50,
		-50, -50, -50, -50, -50,
	})

	peaks := Find(l)
	if len(peaks) != 1 || peaks[0].Elevation != 30 {
		t.Errorf("peaks = %+v", peaks)
	}

	l = demLayer(t, 5, 3, []float64{
		0, 0, 0, 0, 0,
		0, 80, 0, 20, 0,
		0, 0, 0, 0, 0,
	})

	peaks = Find(l)
	if len(peaks) != 2 || peaks[0].Elevation != 20 || peaks[1].Elevation != 80 {
		t.Errorf("peaks = %+v", peaks)
	}
}

func TestSurvives(t *testing.T) {
	levels := []float64{10, 20, 50, 100}

	tests := []struct {
		elevation float64
		level     float64
		ok        bool
	}{
		{5, 0, false},
		{10, 10, true},
		{49, 20, true},
		{250, 100, true},
	}

	for _, tt := range tests {
		level, ok := Survives(tt.elevation, levels)
		if level != tt.level || ok != tt.ok {
			t.Errorf("Survives(%v) = %v, %v, want %v, %v", tt.elevation, level, ok, tt.level, tt.ok)
		}
	}
}

func TestCollection(t *testing.T) {
	fc := Collection([]Peak{
		{Point: orb.Point{1, 2}, Elevation: 7.4},
		{Point: orb.Point{3, 4}, Elevation: 64.6},
	}, []float64{10, 50})

	if len(fc.Features) != 2 {
		t.Fatalf("features = %d", len(fc.Features))
	}

	if fc.Features[0].Properties["survives"] != nil || fc.Features[0].Properties["text"] != "7" {
		t.Errorf("properties = %v", fc.Features[0].Properties)
	}
	if fc.Features[1].Properties["survives"] != 50.0 || fc.Features[1].Properties["text"] != "65" {
		t.Errorf("properties = %v", fc.Features[1].Properties)
	}
}
