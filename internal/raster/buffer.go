package raster

import (
	"fmt"
	"math"
)

// Buffer is a zero initialized height x width x channels pixel buffer of
// a single depth, stored row major with interleaved channels.
type Buffer struct {
	Width  int
	Height int
	Format PixelFormat

	store store
}

type store interface {
	get(i int) float64
	set(i int, v float64)
}

// NewBuffer allocates a zero filled buffer.
func NewBuffer(width, height int, format PixelFormat) (*Buffer, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("invalid buffer size %dx%d", width, height)
	}
	if format.Channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedPixelFormat, format.Channels)
	}

	n := width * height * format.Channels

	var s store
	switch format.Depth {
	case Depth8U:
		s = make(u8Store, n)
	case Depth16U:
		s = make(u16Store, n)
	case Depth16S:
		s = make(i16Store, n)
	case Depth32S:
		s = make(i32Store, n)
	case Depth32F:
		s = make(f32Store, n)
	case Depth64F:
		s = make(f64Store, n)
	default:
		return nil, fmt.Errorf("%w: depth %s", ErrUnsupportedPixelFormat, format.Depth)
	}

	return &Buffer{Width: width, Height: height, Format: format, store: s}, nil
}

func (b *Buffer) index(row, col, ch int) (int, error) {
	if row < 0 || row >= b.Height || col < 0 || col >= b.Width || ch < 0 || ch >= b.Format.Channels {
		return 0, fmt.Errorf("%w: row %d col %d channel %d in %dx%dx%d", ErrOutOfBounds, row, col, ch, b.Height, b.Width, b.Format.Channels)
	}
	return (row*b.Width+col)*b.Format.Channels + ch, nil
}

// At returns the sample at the given position, 0 if it is out of bounds.
func (b *Buffer) At(row, col, ch int) float64 {
	i, err := b.index(row, col, ch)
	if err != nil {
		return 0
	}
	return b.store.get(i)
}

// Set stores a sample. Values are truncated toward zero and saturated
// to the range of the buffer depth.
func (b *Buffer) Set(row, col, ch int, v float64) error {
	i, err := b.index(row, col, ch)
	if err != nil {
		return err
	}
	b.store.set(i, v)
	return nil
}

// Add adds v to the stored sample, with the same truncation as Set.
func (b *Buffer) Add(row, col, ch int, v float64) error {
	i, err := b.index(row, col, ch)
	if err != nil {
		return err
	}
	b.store.set(i, b.store.get(i)+v)
	return nil
}

// Bytes exposes the backing slice of an 8U buffer.
func (b *Buffer) Bytes() ([]uint8, bool) {
	s, ok := b.store.(u8Store)
	return s, ok
}

// Max returns the largest sample over all channels.
func (b *Buffer) Max() float64 {
	max := math.Inf(-1)
	n := b.Width * b.Height * b.Format.Channels
	for i := 0; i < n; i++ {
		if v := b.store.get(i); v > max {
			max = v
		}
	}
	return max
}

func clampTrunc(v, min, max float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	v = math.Trunc(v)
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

type u8Store []uint8

func (s u8Store) get(i int) float64    { return float64(s[i]) }
func (s u8Store) set(i int, v float64) { s[i] = uint8(clampTrunc(v, 0, math.MaxUint8)) }

type u16Store []uint16

func (s u16Store) get(i int) float64    { return float64(s[i]) }
func (s u16Store) set(i int, v float64) { s[i] = uint16(clampTrunc(v, 0, math.MaxUint16)) }

type i16Store []int16

func (s i16Store) get(i int) float64    { return float64(s[i]) }
func (s i16Store) set(i int, v float64) { s[i] = int16(clampTrunc(v, math.MinInt16, math.MaxInt16)) }

type i32Store []int32

func (s i32Store) get(i int) float64    { return float64(s[i]) }
func (s i32Store) set(i int, v float64) { s[i] = int32(clampTrunc(v, math.MinInt32, math.MaxInt32)) }

type f32Store []float32

func (s f32Store) get(i int) float64    { return float64(s[i]) }
func (s f32Store) set(i int, v float64) { s[i] = float32(v) }

type f64Store []float64

func (s f64Store) get(i int) float64    { return s[i] }
func (s f64Store) set(i int, v float64) { s[i] = v }
