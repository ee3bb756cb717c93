package esri

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
)

// DriverName is the short name reported by datasets of this package.
const DriverName = "AAIGrid"

// Dataset is a parsed grid exposed as a single band raster.
type Dataset struct {
	Grid *Grid
	srs  string

	sampleType raster.SampleType
}

// Open reads a grid from path, transparently decompressing *.gz files.
// A .prj sidecar next to the grid provides the spatial reference.
func Open(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var reader io.Reader = file
	base := path
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(file)
		if err != nil {
			return nil, err
		}
		defer gz.Close()

		reader = gz
		base = path[:len(path)-len(".gz")]
	}

	grid, err := Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	srs, _, err := georef.ReadPrj(base)
	if err != nil {
		return nil, err
	}

	return NewDataset(grid, srs), nil
}

// NewDataset wraps an already parsed grid.
func NewDataset(grid *Grid, srs string) *Dataset {
	return &Dataset{Grid: grid, srs: srs, sampleType: grid.SampleType()}
}

// Sniff reports whether the first bytes look like a grid header.
func Sniff(header []byte) bool {
	upper := strings.ToUpper(strings.TrimSpace(string(header)))
	return strings.HasPrefix(upper, "NCOLS") || strings.HasPrefix(upper, "NROWS")
}

func (d *Dataset) Driver() string { return DriverName }

func (d *Dataset) Size() (int, int) { return d.Grid.Dims() }

func (d *Dataset) Bands() []raster.Band { return []raster.Band{band{d}} }

func (d *Dataset) GeoTransform() (georef.Affine, bool) { return d.Grid.Transform(), true }

func (d *Dataset) SpatialRef() string { return d.srs }

func (d *Dataset) Close() error { return nil }

type band struct {
	ds *Dataset
}

func (b band) Size() (int, int) { return b.ds.Grid.Dims() }

func (b band) BlockSize() (int, int) { return b.ds.Grid.Ncols, 1 }

func (b band) SampleType() raster.SampleType { return b.ds.sampleType }

func (b band) ColorRole() raster.ColorRole { return raster.RoleGray }

func (b band) Palette() *raster.Palette { return nil }

func (b band) Statistics() (float64, float64, bool) { return 0, 0, false }

func (b band) NoData() (float64, bool) {
	if b.ds.Grid.NoData == nil {
		return 0, false
	}
	return *b.ds.Grid.NoData, true
}

func (b band) ReadRow(y int, dst []float64) error {
	if y < 0 || y >= b.ds.Grid.Nrows {
		return fmt.Errorf("%w: row %d of %d", raster.ErrOutOfBounds, y, b.ds.Grid.Nrows)
	}
	copy(dst, b.ds.Grid.Data[y])
	return nil
}
