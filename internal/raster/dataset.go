package raster

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
)

// Dataset is an opened raster source as handed out by a raster I/O driver.
type Dataset interface {
	// Driver is the short name of the driver that opened the source.
	Driver() string
	Size() (width, height int)
	Bands() []Band
	// GeoTransform returns the pixel to world transform. ok is false if the
	// source is not georeferenced.
	GeoTransform() (transform georef.Affine, ok bool)
	// SpatialRef is the WKT or PROJ.4 definition of the coordinate system,
	// empty if unknown.
	SpatialRef() string
	Close() error
}

// Band is a single channel of a Dataset.
type Band interface {
	Size() (width, height int)
	BlockSize() (width, height int)
	SampleType() SampleType
	ColorRole() ColorRole
	// Palette returns the color table, nil if the band has none.
	Palette() *Palette
	// Statistics returns min and max if the source embeds them.
	Statistics() (min, max float64, ok bool)
	NoData() (value float64, ok bool)
	// ReadRow decodes scanline y into dst, which holds at least width values.
	ReadRow(y int, dst []float64) error
}

// MemDataset is a Dataset held in memory.
type MemDataset struct {
	Width, Height int
	Transform     georef.Affine
	HasTransform  bool
	SRS           string
	MemBands      []*MemBand

	closed bool
}

// MemBand is a band of a MemDataset.
type MemBand struct {
	Width, Height int
	Type          SampleType
	Role          ColorRole
	ColorTable    *Palette
	Data          []float64

	Min, Max    float64
	HasStats    bool
	NoDataValue float64
	HasNoData   bool
}

// NewMemDataset creates an empty, not georeferenced dataset.
func NewMemDataset(width, height int) *MemDataset {
	return &MemDataset{Width: width, Height: height}
}

// AddBand appends a band of the dataset size. data is row major and may be
// nil for a zero filled band.
func (d *MemDataset) AddBand(t SampleType, role ColorRole, data []float64) *MemBand {
	if data == nil {
		data = make([]float64, d.Width*d.Height)
	}
	band := &MemBand{Width: d.Width, Height: d.Height, Type: t, Role: role, Data: data}
	d.MemBands = append(d.MemBands, band)
	return band
}

// SetGeoTransform georeferences the dataset.
func (d *MemDataset) SetGeoTransform(a georef.Affine) {
	d.Transform = a
	d.HasTransform = true
}

func (d *MemDataset) Driver() string { return "MEM" }

func (d *MemDataset) Size() (int, int) { return d.Width, d.Height }

func (d *MemDataset) Bands() []Band {
	bands := make([]Band, len(d.MemBands))
	for i, b := range d.MemBands {
		bands[i] = b
	}
	return bands
}

func (d *MemDataset) GeoTransform() (georef.Affine, bool) { return d.Transform, d.HasTransform }

func (d *MemDataset) SpatialRef() string { return d.SRS }

func (d *MemDataset) Close() error {
	if d.closed {
		return fmt.Errorf("dataset already closed")
	}
	d.closed = true
	return nil
}

func (b *MemBand) Size() (int, int) { return b.Width, b.Height }

func (b *MemBand) BlockSize() (int, int) { return b.Width, 1 }

func (b *MemBand) SampleType() SampleType { return b.Type }

func (b *MemBand) ColorRole() ColorRole { return b.Role }

func (b *MemBand) Palette() *Palette { return b.ColorTable }

func (b *MemBand) Statistics() (float64, float64, bool) { return b.Min, b.Max, b.HasStats }

func (b *MemBand) NoData() (float64, bool) { return b.NoDataValue, b.HasNoData }

func (b *MemBand) ReadRow(y int, dst []float64) error {
	if y < 0 || y >= b.Height {
		return fmt.Errorf("%w: row %d of %d", ErrOutOfBounds, y, b.Height)
	}
	if len(dst) < b.Width {
		return fmt.Errorf("row buffer holds %d values, need %d", len(dst), b.Width)
	}
	copy(dst, b.Data[y*b.Width:(y+1)*b.Width])
	return nil
}

// FromImage wraps a decoded image as a dataset. Paletted images keep their
// color table, gray images become one gray band and everything else becomes
// RGB bands, plus an alpha band if the image is not opaque.
func FromImage(img image.Image) *MemDataset {
	bounds := img.Bounds()
	ds := NewMemDataset(bounds.Dx(), bounds.Dy())

	switch src := img.(type) {
	case *image.Paletted:
		band := ds.AddBand(Byte, RolePalette, nil)
		band.ColorTable = paletteFrom(src.Palette)
		forEachPixel(bounds, func(i, x, y int) {
			band.Data[i] = float64(src.ColorIndexAt(x, y))
		})

	case *image.Gray:
		band := ds.AddBand(Byte, RoleGray, nil)
		forEachPixel(bounds, func(i, x, y int) {
			band.Data[i] = float64(src.GrayAt(x, y).Y)
		})

	case *image.Gray16:
		band := ds.AddBand(UInt16, RoleGray, nil)
		forEachPixel(bounds, func(i, x, y int) {
			band.Data[i] = float64(src.Gray16At(x, y).Y)
		})

	default:
		roles := []ColorRole{RoleRed, RoleGreen, RoleBlue}
		if o, ok := img.(interface{ Opaque() bool }); !ok || !o.Opaque() {
			roles = append(roles, RoleAlpha)
		}

		bands := make([]*MemBand, len(roles))
		for i, role := range roles {
			bands[i] = ds.AddBand(Byte, role, nil)
		}

		forEachPixel(bounds, func(i, x, y int) {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			components := [4]uint8{c.R, c.G, c.B, c.A}
			for b := range bands {
				bands[b].Data[i] = float64(components[b])
			}
		})
	}

	return ds
}

func paletteFrom(p color.Palette) *Palette {
	entries := make([][4]int16, len(p))
	for i, c := range p {
		n := color.NRGBAModel.Convert(c).(color.NRGBA)
		entries[i] = [4]int16{int16(n.R), int16(n.G), int16(n.B), int16(n.A)}
	}
	return &Palette{Interp: PaletteRGB, Entries: entries}
}

func forEachPixel(bounds image.Rectangle, fn func(i, x, y int)) {
	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			fn(i, x, y)
			i++
		}
	}
}
