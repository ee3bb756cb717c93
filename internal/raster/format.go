package raster

import (
	"fmt"
	"math"
	"sync"
)

// Depth is the sample type of an in-memory pixel buffer.
type Depth int

const (
	Depth8U Depth = iota
	Depth16U
	Depth16S
	Depth32S
	Depth32F
	Depth64F
)

func (d Depth) String() string {
	switch d {
	case Depth8U:
		return "8U"
	case Depth16U:
		return "16U"
	case Depth16S:
		return "16S"
	case Depth32S:
		return "32S"
	case Depth32F:
		return "32F"
	case Depth64F:
		return "64F"
	default:
		return fmt.Sprintf("Depth(%d)", int(d))
	}
}

// Bits is the storage width of one buffer sample.
func (d Depth) Bits() int {
	switch d {
	case Depth8U:
		return 8
	case Depth16U, Depth16S:
		return 16
	case Depth32S, Depth32F:
		return 32
	default:
		return 64
	}
}

// PixelFormat is depth x channel count of a pixel buffer.
type PixelFormat struct {
	Depth    Depth
	Channels int
}

func (f PixelFormat) String() string {
	return fmt.Sprintf("%sC%d", f.Depth, f.Channels)
}

// DepthFor maps a source sample type to the buffer depth of matching width.
func DepthFor(t SampleType) (Depth, error) {
	switch t {
	case Byte:
		return Depth8U, nil
	case UInt16:
		return Depth16U, nil
	case Int16:
		return Depth16S, nil
	case UInt32, Int32:
		return Depth32S, nil
	case Float32:
		return Depth32F, nil
	case Float64:
		return Depth64F, nil
	default:
		return 0, fmt.Errorf("%w: sample type %s", ErrUnsupportedPixelFormat, t)
	}
}

// ResolveFormat picks the buffer format for a source. With a palette, the
// palette interpretation decides the channel count: gray palettes decode into
// one channel and RGB palettes into three. Other interpretations fail.
func ResolveFormat(t SampleType, channels int, palette *Palette) (PixelFormat, error) {
	depth, err := DepthFor(t)
	if err != nil {
		logger.Printf("unknown sample type %s", t)
		return PixelFormat{}, err
	}

	if palette != nil {
		switch palette.Interp {
		case PaletteGray:
			return PixelFormat{Depth: depth, Channels: 1}, nil
		case PaletteRGB:
			return PixelFormat{Depth: depth, Channels: 3}, nil
		default:
			return PixelFormat{}, fmt.Errorf("%w: %s palette", ErrUnsupportedPixelFormat, palette.Interp)
		}
	}

	if channels < 1 {
		return PixelFormat{}, fmt.Errorf("%w: %d channels", ErrUnsupportedPixelFormat, channels)
	}

	return PixelFormat{Depth: depth, Channels: channels}, nil
}

type rescaleKey struct {
	src SampleType
	dst Depth
}

var warned sync.Map

// Rescale converts a sample value between bit depths. Only the documented
// conversions change the value; every other combination is passed through
// unchanged and logged once.
func Rescale(src SampleType, dst Depth, v float64) float64 {
	switch src {
	case Byte:
		switch dst {
		case Depth8U:
			return v
		case Depth16U, Depth16S:
			return v * 256
		case Depth32S, Depth32F:
			return v * 16777216
		}
	case UInt16, Int16:
		switch dst {
		case Depth8U:
			return math.Floor(v / 256)
		case Depth16U, Depth16S:
			return v
		}
	case Float32:
		if dst == Depth32F {
			return v
		}
	case Float64:
		if dst == Depth64F {
			return v
		}
	}

	if _, seen := warned.LoadOrStore(rescaleKey{src, dst}, true); !seen {
		logger.Printf("no rescale from %s to %s, passing values through", src, dst)
	}

	return v
}
