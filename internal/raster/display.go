package raster

import (
	"fmt"
	"image"
	"image/color"
)

// Layout is the channel layout of a display image.
type Layout int

const (
	LayoutGray Layout = 1
	LayoutRGB  Layout = 3
	LayoutRGBA Layout = 4
)

func (l Layout) String() string {
	switch l {
	case LayoutGray:
		return "Gray"
	case LayoutRGB:
		return "RGB"
	case LayoutRGBA:
		return "RGBA"
	default:
		return fmt.Sprintf("Layout(%d)", int(l))
	}
}

// Display is a packed, row major 8-bit image ready to be rendered.
type Display struct {
	Pix    []uint8
	Stride int
	Rect   image.Rectangle
	Layout Layout
}

// NewDisplay builds the display image of a buffer. 8-bit buffers with one,
// three or four channels are shared, not copied. 16-bit buffers go through
// Rescale16To8 first.
func NewDisplay(b *Buffer) (*Display, error) {
	switch b.Format.Channels {
	case 1, 3, 4:
	default:
		return nil, fmt.Errorf("%w: cannot display %s", ErrUnsupportedPixelFormat, b.Format)
	}

	if b.Format.Depth == Depth16U || b.Format.Depth == Depth16S {
		rescaled, err := Rescale16To8(b)
		if err != nil {
			return nil, err
		}
		b = rescaled
	}

	pix, ok := b.Bytes()
	if !ok {
		return nil, fmt.Errorf("%w: cannot display %s", ErrUnsupportedPixelFormat, b.Format)
	}

	return &Display{
		Pix:    pix,
		Stride: b.Width * b.Format.Channels,
		Rect:   image.Rect(0, 0, b.Width, b.Height),
		Layout: Layout(b.Format.Channels),
	}, nil
}

// Rescale16To8 maps a 16-bit buffer onto 8 bits as v / max * 255.
func Rescale16To8(b *Buffer) (*Buffer, error) {
	if b.Format.Depth != Depth16U && b.Format.Depth != Depth16S {
		return nil, fmt.Errorf("%w: expected a 16-bit buffer, got %s", ErrUnsupportedPixelFormat, b.Format)
	}

	return Normalize(b, 0, b.Max())
}

// Normalize linearly stretches [min, max] of any buffer onto an 8-bit
// buffer with the same channel count.
func Normalize(b *Buffer, min, max float64) (*Buffer, error) {
	out, err := NewBuffer(b.Width, b.Height, PixelFormat{Depth: Depth8U, Channels: b.Format.Channels})
	if err != nil {
		return nil, err
	}
	if max <= min {
		return out, nil
	}

	span := max - min
	for row := 0; row < b.Height; row++ {
		for col := 0; col < b.Width; col++ {
			for ch := 0; ch < b.Format.Channels; ch++ {
				out.Set(row, col, ch, (b.At(row, col, ch)-min)*255/span)
			}
		}
	}

	return out, nil
}

func (d *Display) ColorModel() color.Model {
	if d.Layout == LayoutGray {
		return color.GrayModel
	}
	return color.NRGBAModel
}

func (d *Display) Bounds() image.Rectangle { return d.Rect }

// PixOffset returns the index of the first element of Pix for pixel (x, y).
func (d *Display) PixOffset(x, y int) int {
	return (y-d.Rect.Min.Y)*d.Stride + (x-d.Rect.Min.X)*int(d.Layout)
}

func (d *Display) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(d.Rect)) {
		if d.Layout == LayoutGray {
			return color.Gray{}
		}
		return color.NRGBA{}
	}

	i := d.PixOffset(x, y)
	switch d.Layout {
	case LayoutGray:
		return color.Gray{Y: d.Pix[i]}
	case LayoutRGB:
		return color.NRGBA{R: d.Pix[i], G: d.Pix[i+1], B: d.Pix[i+2], A: 0xff}
	default:
		return color.NRGBA{R: d.Pix[i], G: d.Pix[i+1], B: d.Pix[i+2], A: d.Pix[i+3]}
	}
}

// RGBA copies the display image into an *image.RGBA.
func (d *Display) RGBA() *image.RGBA {
	img := image.NewRGBA(d.Rect)
	for y := d.Rect.Min.Y; y < d.Rect.Max.Y; y++ {
		for x := d.Rect.Min.X; x < d.Rect.Max.X; x++ {
			img.Set(x, y, d.At(x, y))
		}
	}
	return img
}
