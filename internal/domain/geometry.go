package domain

import (
	"fmt"
	"math"

	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
)

// Geometry is the regular lat/lon mesh derived from an Extent.
// Rows run south to north, columns west to east.
type Geometry struct {
	Nx, Ny int
	DX, DY float64
	Lon1D  []float64 // Cell-center longitudes, Lon1D[i] = LonW + i·DX.
	Lat1D  []float64 // Cell-center latitudes, strictly increasing.

	// Header scalars for grid.meta.
	SX, SY, SF  float64
	X0, Y0, SF0 float64
}

// CellCount returns round((hi-lo)/step)+1. Rounding, not truncation, keeps
// 0.05 over [0, 10] at 201 cells.
func CellCount(lo, hi, step float64) int {
	return int(math.Round((hi-lo)/step)) + 1
}

// NewGeometry derives the mesh of e.
func NewGeometry(e Extent) (*Geometry, error) {
	if !(e.DX > 0) || !(e.DY > 0) {
		return nil, fmt.Errorf("%w: dx and dy must be positive (dx=%g, dy=%g)", ErrInvalidRequest, e.DX, e.DY)
	}
	if !(e.LonW < e.LonE) || !(e.LatS < e.LatN) {
		return nil, fmt.Errorf("%w: empty or inverted bbox [%g, %g]x[%g, %g]", ErrInvalidRequest, e.LonW, e.LonE, e.LatS, e.LatN)
	}
	nx := CellCount(e.LonW, e.LonE, e.DX)
	ny := CellCount(e.LatS, e.LatN, e.DY)
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("%w: grid must be at least 2x2 cells, got %dx%d", ErrInvalidRequest, nx, ny)
	}

	g := &Geometry{
		Nx: nx, Ny: ny,
		DX: e.DX, DY: e.DY,
		Lon1D: make([]float64, nx),
		Lat1D: make([]float64, ny),
		SF:    1, SF0: 1,
	}
	for i := range g.Lon1D {
		g.Lon1D[i] = e.LonW + float64(i)*e.DX
	}
	for j := range g.Lat1D {
		g.Lat1D[j] = e.LatS + float64(j)*e.DY
	}
	g.SX = e.DX * g.SF
	g.SY = e.DY * g.SF
	g.X0 = e.LonW * g.SF0
	g.Y0 = e.LatS * g.SF0
	return g, nil
}

// Cells returns Nx·Ny.
func (g *Geometry) Cells() int {
	return g.Nx * g.Ny
}

// CellBounds returns the rectangle of cell (i, j), centered on its node.
func (g *Geometry) CellBounds(i, j int) r2.Rect {
	return r2.RectFromCenterSize(
		r2.Point{X: g.Lon1D[i], Y: g.Lat1D[j]},
		r2.Point{X: g.DX, Y: g.DY},
	)
}

// Bounds returns the rectangle spanned by all cells, edges included.
func (g *Geometry) Bounds() r2.Rect {
	return r2.Rect{
		X: r1.Interval{Lo: g.Lon1D[0] - g.DX/2, Hi: g.Lon1D[g.Nx-1] + g.DX/2},
		Y: r1.Interval{Lo: g.Lat1D[0] - g.DY/2, Hi: g.Lat1D[g.Ny-1] + g.DY/2},
	}
}
