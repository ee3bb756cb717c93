package submerge

import (
	"image"
	"image/color"
)

// Compositor renders the heat map and the flood overlay pixel by pixel.
type Compositor struct {
	Ramp    Ramp
	HeatMap *image.RGBA
	Flood   *image.RGBA

	base image.Image
}

// NewCompositor creates empty outputs the size of the base image.
func NewCompositor(base image.Image, ramp Ramp) *Compositor {
	bounds := image.Rect(0, 0, base.Bounds().Dx(), base.Bounds().Dy())
	return &Compositor{
		Ramp:    ramp,
		HeatMap: image.NewRGBA(bounds),
		Flood:   image.NewRGBA(bounds),
		base:    base,
	}
}

// Put colors output pixel (x, y) for the given elevation.
func (c *Compositor) Put(x, y int, elevation float64) {
	c.HeatMap.SetRGBA(x, y, c.Ramp.Color(elevation))

	min := c.base.Bounds().Min
	// unpremultiplied, so translucent base pixels keep their color
	src := color.NRGBAModel.Convert(c.base.At(min.X+x, min.Y+y)).(color.NRGBA)
	base := color.RGBA{src.R, src.G, src.B, 255}
	c.Flood.SetRGBA(x, y, Tint(base, elevation))
}
