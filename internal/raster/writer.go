package raster

import "fmt"

// WritePixel rescales one decoded source sample to the buffer depth and
// stores it according to the source and destination channel counts:
//
//	1 -> 1   write channel 0
//	1 -> 3   broadcast to all three channels
//	3 -> 1   accumulate value/3 into channel 0, once per source channel
//	4 -> 1   overwrite channel 0
//	3 -> 3   write channel ch
//	4 -> 3   write channel ch, drop the fourth (alpha) channel
//	4 -> 4   write channel ch
//	N -> N   write channel ch, for N > 4
//
// Any other combination fails with ErrFormatMismatch.
func WritePixel(v float64, src SampleType, srcChannels int, dst *Buffer, row, col, ch int) error {
	v = Rescale(src, dst.Format.Depth, v)
	dstChannels := dst.Format.Channels

	switch {
	case srcChannels == 1 && dstChannels == 1:
		return dst.Set(row, col, 0, v)

	case srcChannels == 1 && dstChannels == 3:
		for c := 0; c < 3; c++ {
			if err := dst.Set(row, col, c, v); err != nil {
				return err
			}
		}
		return nil

	case srcChannels == 3 && dstChannels == 1:
		return dst.Add(row, col, 0, v/3)

	case srcChannels == 4 && dstChannels == 1:
		return dst.Set(row, col, 0, v)

	case srcChannels == 4 && dstChannels == 3:
		if ch >= 3 {
			return nil
		}
		return dst.Set(row, col, ch, v)

	case srcChannels == dstChannels && (srcChannels == 3 || srcChannels >= 4):
		return dst.Set(row, col, ch, v)
	}

	return fmt.Errorf("%w: %d source channels into %s", ErrFormatMismatch, srcChannels, dst.Format)
}

// WritePaletteIndexedPixel writes a sample of a palette indexed band. RGB
// palettes are expanded into their components, each written as a four
// channel source sample; the alpha component only lands in buffers with a
// fourth channel. Without a palette, or with a gray palette, the sample is
// written as a plain single channel value.
func WritePaletteIndexedPixel(index float64, src SampleType, palette *Palette, dst *Buffer, row, col, ch int) error {
	if palette == nil || palette.Interp == PaletteGray {
		return WritePixel(index, src, 1, dst, row, col, ch)
	}

	if palette.Interp != PaletteRGB {
		return fmt.Errorf("%w: %s palette", ErrUnsupportedPixelFormat, palette.Interp)
	}

	entry := palette.Entry(index)
	channels := 3
	if dst.Format.Channels >= 4 {
		channels = 4
	}

	for c := 0; c < channels; c++ {
		if err := WritePixel(float64(entry[c]), src, 4, dst, row, col, c); err != nil {
			return err
		}
	}

	return nil
}
