package submerge

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"
)

const legendBarWidth = 24

// RenderLegend draws the ramp as a vertical bar, highest elevation on top,
// with one label per stop. Stops are spaced evenly, not by elevation.
func RenderLegend(ramp Ramp, width, height int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	const margin = 8
	top, bottom := float64(margin), float64(height-margin)
	segments := len(ramp) - 1

	// position of stop i on the bar
	stopY := func(i int) float64 {
		if segments == 0 {
			return bottom
		}
		return bottom - (bottom-top)*float64(i)/float64(segments)
	}

	for y := int(top); y < int(bottom); y++ {
		dc.SetColor(ramp.Color(legendElevation(ramp, float64(y)+0.5, stopY)))
		dc.DrawRectangle(margin, float64(y), legendBarWidth, 1)
		dc.Fill()
	}

	dc.SetRGB(0, 0, 0)
	dc.SetLineWidth(1)
	dc.DrawRectangle(margin, top, legendBarWidth, bottom-top)
	dc.Stroke()

	for i, stop := range ramp {
		y := stopY(i)
		dc.DrawLine(margin+legendBarWidth, y, margin+legendBarWidth+4, y)
		dc.Stroke()
		dc.DrawStringAnchored(fmt.Sprintf("%g m", stop.Elevation), margin+legendBarWidth+8, y, 0, 0.5)
	}

	return dc.Image()
}

// legendElevation inverts the even stop spacing of the bar.
func legendElevation(ramp Ramp, y float64, stopY func(int) float64) float64 {
	for i := 0; i < len(ramp)-1; i++ {
		lowY, highY := stopY(i), stopY(i+1)
		if y <= lowY && y >= highY {
			t := (lowY - y) / (lowY - highY)
			return ramp[i].Elevation + t*(ramp[i+1].Elevation-ramp[i].Elevation)
		}
	}
	return ramp[0].Elevation
}

// SaveLegend renders the legend into a PNG file.
func SaveLegend(path string, ramp Ramp) error {
	return gg.SavePNG(path, RenderLegend(ramp, 160, 320))
}
