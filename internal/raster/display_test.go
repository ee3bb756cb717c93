package raster

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestDisplaySharesEightBitBuffers(t *testing.T) {
	b := mustBuffer(t, 2, 2, PixelFormat{Depth8U, 3})
	b.Set(1, 0, 0, 200)
	b.Set(1, 0, 2, 50)

	d, err := NewDisplay(b)
	if err != nil {
		t.Fatal(err)
	}

	if d.Layout != LayoutRGB || d.Stride != 6 || d.Rect != image.Rect(0, 0, 2, 2) {
		t.Fatalf("unexpected display %v stride %d rect %v", d.Layout, d.Stride, d.Rect)
	}
	if got := d.At(0, 1); got != (color.NRGBA{R: 200, B: 50, A: 255}) {
		t.Errorf("At(0, 1) = %v", got)
	}

	b.Set(0, 0, 1, 9)
	if d.Pix[1] != 9 {
		t.Errorf("display does not share the buffer")
	}
}

func TestDisplayRescalesSixteenBit(t *testing.T) {
	b := mustBuffer(t, 3, 1, PixelFormat{Depth16U, 1})
	b.Set(0, 1, 0, 1000)
	b.Set(0, 2, 0, 2000)

	d, err := NewDisplay(b)
	if err != nil {
		t.Fatal(err)
	}

	want := []uint8{0, 127, 255}
	for i, w := range want {
		if d.Pix[i] != w {
			t.Errorf("pixel %d = %d, want %d", i, d.Pix[i], w)
		}
	}
	if d.ColorModel() != color.GrayModel {
		t.Errorf("expected gray model")
	}
}

func TestDisplayRejectsOtherFormats(t *testing.T) {
	for _, f := range []PixelFormat{{Depth8U, 2}, {Depth32F, 1}, {Depth8U, 5}} {
		b := mustBuffer(t, 1, 1, f)
		if _, err := NewDisplay(b); !errors.Is(err, ErrUnsupportedPixelFormat) {
			t.Errorf("%s: error = %v", f, err)
		}
	}

	if _, err := Rescale16To8(mustBuffer(t, 1, 1, PixelFormat{Depth8U, 1})); err == nil {
		t.Errorf("Rescale16To8 accepted an 8-bit buffer")
	}
}

func TestFromImage(t *testing.T) {
	t.Run("paletted", func(t *testing.T) {
		img := image.NewPaletted(image.Rect(0, 0, 2, 1), color.Palette{
			color.RGBA{0, 0, 0, 255},
			color.RGBA{10, 20, 30, 255},
		})
		img.SetColorIndex(1, 0, 1)

		ds := FromImage(img)
		if len(ds.MemBands) != 1 || ds.MemBands[0].Role != RolePalette {
			t.Fatalf("unexpected bands %+v", ds.MemBands)
		}
		p := ds.MemBands[0].Palette()
		if p == nil || p.Entry(1) != [4]int16{10, 20, 30, 255} {
			t.Errorf("palette = %+v", p)
		}
		if ds.MemBands[0].Data[1] != 1 {
			t.Errorf("index data = %v", ds.MemBands[0].Data)
		}
	})

	t.Run("gray", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 1, 1))
		img.SetGray(0, 0, color.Gray{Y: 77})

		ds := FromImage(img)
		if len(ds.MemBands) != 1 || ds.MemBands[0].Role != RoleGray || ds.MemBands[0].Data[0] != 77 {
			t.Errorf("unexpected bands %+v", ds.MemBands[0])
		}
	})

	t.Run("opaque rgba", func(t *testing.T) {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.RGBA{1, 2, 3, 255})

		ds := FromImage(img)
		if len(ds.MemBands) != 3 {
			t.Fatalf("got %d bands", len(ds.MemBands))
		}
		row := make([]float64, 1)
		ds.MemBands[2].ReadRow(0, row)
		if row[0] != 3 {
			t.Errorf("blue = %v", row[0])
		}
	})

	t.Run("translucent", func(t *testing.T) {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		img.SetNRGBA(0, 0, color.NRGBA{1, 2, 3, 4})

		ds := FromImage(img)
		if len(ds.MemBands) != 4 || ds.MemBands[3].Role != RoleAlpha || ds.MemBands[3].Data[0] != 4 {
			t.Errorf("unexpected bands %+v", ds.MemBands)
		}
	})
}
