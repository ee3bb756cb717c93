package esri

import (
	"math"

	"github.com/gruppe-adler/meh-submerge/internal/georef"
	"github.com/gruppe-adler/meh-submerge/internal/raster"
)

// Grid represents an ESRI ASCII grid
type Grid struct {
	Ncols, Nrows int

	// either the center or the corner of the lower left cell is set
	XllCenter, YllCenter *float64
	XllCorner, YllCorner *float64

	CellSize float64
	NoData   *float64

	// Data holds Nrows rows of Ncols values, northernmost row first
	Data [][]float64
}

// Dims returns the dimensions of the grid.
func (g *Grid) Dims() (cols, rows int) {
	return g.Ncols, g.Nrows
}

// Z returns the value at (col, row).
// It will panic if col or row are out of bounds for the grid.
func (g *Grid) Z(col, row int) float64 {
	return g.Data[row][col]
}

// LowerLeft returns the outer corner of the lower left cell.
func (g *Grid) LowerLeft() (x, y float64) {
	if g.XllCorner != nil {
		x = *g.XllCorner
	} else if g.XllCenter != nil {
		x = *g.XllCenter - g.CellSize/2
	}

	if g.YllCorner != nil {
		y = *g.YllCorner
	} else if g.YllCenter != nil {
		y = *g.YllCenter - g.CellSize/2
	}

	return x, y
}

// Transform returns the north up pixel to world transform of the grid.
func (g *Grid) Transform() georef.Affine {
	x, y := g.LowerLeft()
	top := y + float64(g.Nrows)*g.CellSize

	return georef.NorthUp(x, top, g.CellSize, -g.CellSize)
}

// SampleType picks the narrowest sample type that holds all values.
func (g *Grid) SampleType() raster.SampleType {
	fitsInt16 := true

	for _, row := range g.Data {
		for _, v := range row {
			if v != math.Trunc(v) || v < math.MinInt32 || v > math.MaxInt32 {
				return raster.Float32
			}
			if v < math.MinInt16 || v > math.MaxInt16 {
				fitsInt16 = false
			}
		}
	}

	if fitsInt16 {
		return raster.Int16
	}
	return raster.Int32
}
