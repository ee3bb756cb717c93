// Package layer decodes raster sources into in-memory pixel buffers and keeps
// the opened layers in a bounded registry.
package layer

import (
	"fmt"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
	"github.com/gruppe-adler/meh-submerge/internal/rasterio"
	"github.com/paulmach/orb"
)

// State is the position of a layer in its decode pipeline.
type State int

const (
	Unopened State = iota
	HeaderRead
	MetadataIndexed
	BufferAllocated
	Decoded
	Closed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case HeaderRead:
		return "header read"
	case MetadataIndexed:
		return "metadata indexed"
	case BufferAllocated:
		return "buffer allocated"
	case Decoded:
		return "decoded"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// BandInfo is the metadata of one source band.
type BandInfo struct {
	BlockWidth, BlockHeight int
	SampleType              raster.SampleType
	Role                    raster.ColorRole
	NoData                  float64
	HasNoData               bool
	Stats                   Stats
}

// Layer is a raster source decoded into a pixel buffer.
type Layer struct {
	ID     string
	Driver string

	Width, Height int
	Bands         []BandInfo

	// Transform is only meaningful if HasTransform is set.
	Transform    georef.Affine
	HasTransform bool
	SRS          string

	// Palette is the color table of the first band, nil if it has none.
	Palette *raster.Palette
	Format  raster.PixelFormat

	Buffer  *raster.Buffer
	Display *raster.Display

	state State
	open  func() (raster.Dataset, error)
	ds    raster.Dataset
}

// Option customizes Open.
type Option func(*Layer)

// WithID registers the layer under id instead of its path.
func WithID(id string) Option {
	return func(l *Layer) {
		l.ID = id
	}
}

// New prepares a layer for path without touching the file.
func New(path string, opts ...Option) *Layer {
	l := &Layer{
		ID:   path,
		open: func() (raster.Dataset, error) { return rasterio.Open(path) },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open reads, decodes and renders the raster at path.
func Open(path string, opts ...Option) (*Layer, error) {
	l := New(path, opts...)
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// FromDataset decodes an already opened dataset. The layer takes ownership
// of ds and closes it on failure or Close.
func FromDataset(id string, ds raster.Dataset) (*Layer, error) {
	l := &Layer{
		ID:   id,
		open: func() (raster.Dataset, error) { return ds, nil },
	}
	if err := l.Load(); err != nil {
		return nil, err
	}
	return l, nil
}

// Load runs every remaining step of the pipeline.
func (l *Layer) Load() error {
	steps := []struct {
		from State
		run  func() error
	}{
		{Unopened, l.ReadHeader},
		{HeaderRead, l.IndexMetadata},
		{MetadataIndexed, l.AllocateBuffer},
		{BufferAllocated, l.Decode},
	}

	for _, step := range steps {
		if l.state == step.from {
			if err := step.run(); err != nil {
				return err
			}
		}
	}

	if l.Display == nil {
		return l.BuildDisplay()
	}
	return nil
}

// State returns the current pipeline state.
func (l *Layer) State() State { return l.state }

func (l *Layer) expect(s State) error {
	if l.state != s {
		return fmt.Errorf("%w: %s is %s, expected %s", ErrInvalidState, l.ID, l.state, s)
	}
	return nil
}

// fail releases the dataset and makes the layer unusable.
func (l *Layer) fail(err error) error {
	l.Close()
	return fmt.Errorf("%s: %w", l.ID, err)
}

// ReadHeader opens the source and resolves the buffer format from its
// geometry, sample type and palette.
func (l *Layer) ReadHeader() error {
	if err := l.expect(Unopened); err != nil {
		return err
	}

	ds, err := l.open()
	if err != nil {
		return fmt.Errorf("%s: %w", l.ID, err)
	}
	l.ds = ds

	bands := ds.Bands()
	if len(bands) == 0 {
		return l.fail(fmt.Errorf("%w: source has no bands", raster.ErrSourceOpen))
	}

	first := bands[0]
	l.Palette = first.Palette()

	format, err := raster.ResolveFormat(first.SampleType(), len(bands), l.Palette)
	if err != nil {
		return l.fail(err)
	}
	l.Format = format

	l.Driver = ds.Driver()
	l.Width, l.Height = ds.Size()
	l.Transform, l.HasTransform = ds.GeoTransform()
	l.SRS = ds.SpatialRef()

	l.state = HeaderRead
	return nil
}

// IndexMetadata records block size, sample type, color role, NODATA and
// min/max of every band. Statistics are computed if the source has none.
func (l *Layer) IndexMetadata() error {
	if err := l.expect(HeaderRead); err != nil {
		return err
	}

	bands := l.ds.Bands()
	l.Bands = make([]BandInfo, len(bands))

	for i, b := range bands {
		info := BandInfo{SampleType: b.SampleType(), Role: b.ColorRole()}
		info.BlockWidth, info.BlockHeight = b.BlockSize()
		info.NoData, info.HasNoData = b.NoData()

		if min, max, ok := b.Statistics(); ok {
			info.Stats = Stats{Min: min, Max: max, Embedded: true}
		} else {
			stats, err := computeStats(b)
			if err != nil {
				return l.fail(err)
			}
			info.Stats = stats
		}

		l.Bands[i] = info
	}

	l.state = MetadataIndexed
	return nil
}

// AllocateBuffer creates the zero filled pixel buffer.
func (l *Layer) AllocateBuffer() error {
	if err := l.expect(MetadataIndexed); err != nil {
		return err
	}

	buffer, err := raster.NewBuffer(l.Width, l.Height, l.Format)
	if err != nil {
		return l.fail(err)
	}
	l.Buffer = buffer

	l.state = BufferAllocated
	return nil
}

// Decode reads every band scanline by scanline into the pixel buffer.
func (l *Layer) Decode() error {
	if err := l.expect(BufferAllocated); err != nil {
		return err
	}

	bands := l.ds.Bands()
	for i, b := range bands {
		if err := l.decodeBand(i, b, len(bands)); err != nil {
			return l.fail(fmt.Errorf("band %d: %w", i+1, err))
		}
	}

	l.state = Decoded
	return nil
}

func (l *Layer) decodeBand(index int, b raster.Band, channels int) error {
	ch, err := b.ColorRole().Channel()
	if err != nil {
		return err
	}

	if w, h := b.Size(); w != l.Width || h != l.Height {
		return fmt.Errorf("%w: band is %dx%d, layer is %dx%d", raster.ErrDimensionMismatch, w, h, l.Width, l.Height)
	}

	st := b.SampleType()
	row := make([]float64, l.Width)

	for y := 0; y < l.Height; y++ {
		if err := b.ReadRow(y, row); err != nil {
			return err
		}

		for x, v := range row {
			if l.Palette != nil {
				err = raster.WritePaletteIndexedPixel(v, st, l.Palette, l.Buffer, y, x, ch)
			} else {
				err = raster.WritePixel(v, st, channels, l.Buffer, y, x, ch)
			}
			if err != nil {
				return err
			}
		}
	}

	return nil
}

// BuildDisplay derives the 8-bit display image. Buffers deeper than 16 bit
// are stretched over the min/max of the first band.
func (l *Layer) BuildDisplay() error {
	if err := l.expect(Decoded); err != nil {
		return err
	}

	buffer := l.Buffer
	switch buffer.Format.Depth {
	case raster.Depth8U, raster.Depth16U, raster.Depth16S:
	default:
		stats := l.Bands[0].Stats
		normalized, err := raster.Normalize(buffer, stats.Min, stats.Max)
		if err != nil {
			return err
		}
		buffer = normalized
	}

	display, err := raster.NewDisplay(buffer)
	if err != nil {
		logger.Printf("%s: no display image: %v", l.ID, err)
		return nil
	}
	l.Display = display

	return nil
}

// Close releases the source dataset. The decoded buffer stays readable.
func (l *Layer) Close() error {
	if l.state == Closed {
		return nil
	}
	l.state = Closed

	if l.ds == nil {
		return nil
	}
	ds := l.ds
	l.ds = nil
	return ds.Close()
}

// Elevation returns channel 0 of the pixel buffer at its native depth.
func (l *Layer) Elevation(col, row int) (float64, bool) {
	if l.Buffer == nil || col < 0 || row < 0 || col >= l.Buffer.Width || row >= l.Buffer.Height {
		return 0, false
	}
	return l.Buffer.At(row, col, 0), true
}

// Origin is the world coordinate of the top left corner.
func (l *Layer) Origin() (orb.Point, bool) {
	return l.Transform.Origin(), l.HasTransform
}

// PixelSize is the pixel width and (usually negative) pixel height.
func (l *Layer) PixelSize() (orb.Point, bool) {
	return l.Transform.PixelSize(), l.HasTransform
}

// Footprint is the world quadrilateral covered by the layer.
func (l *Layer) Footprint() (georef.Quad, bool) {
	if !l.HasTransform {
		return georef.Quad{}, false
	}
	return l.Transform.Corners(l.Width, l.Height), true
}

// GeographicBound is the footprint bound in longitude/latitude. It is only
// available for layers in a geographic coordinate system.
func (l *Layer) GeographicBound() (orb.Bound, bool) {
	quad, ok := l.Footprint()
	if !ok {
		return orb.Bound{}, false
	}

	sr, err := georef.ParseSpatialRef(l.SRS)
	if err != nil || !sr.IsGeographic() {
		return orb.Bound{}, false
	}

	return quad.Bound(), true
}
