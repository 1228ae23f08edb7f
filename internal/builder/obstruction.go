package builder

import (
	"math"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// BuildObstruction samples the shoreline on a k×k subgrid inside every non-land
// cell. sx is the fraction of subgrid rows holding any land, which is the
// land shadow on the east face; sy is the fraction of subgrid columns holding
// any land. Land cells stay at zero.
func BuildObstruction(a *domain.Artifact, shore *domain.Shoreline, k int) {
	if k <= 0 {
		k = domain.DefaultSubgrid
	}
	g := a.Geometry
	rowHit := make([]bool, k)
	colHit := make([]bool, k)
	xs := make([]float64, k)
	land := make([]bool, k)
	for j := 0; j < g.Ny; j++ {
		for i := 0; i < g.Nx; i++ {
			a.SX[j][i], a.SY[j][i] = 0, 0
			if a.Mask[j][i] == domain.MaskLand {
				continue
			}
			cell := g.CellBounds(i, j)
			if !shore.Touches(cell) {
				// No edge crosses the cell: it is uniformly water or, under an
				// override, uniformly land.
				if c := cell.Center(); shore.IsLand(c.X, c.Y) {
					a.SX[j][i], a.SY[j][i] = domain.ObstrScale, domain.ObstrScale
				}
				continue
			}

			clear(rowHit)
			clear(colHit)
			stepX := cell.X.Length() / float64(k)
			stepY := cell.Y.Length() / float64(k)
			for c := range xs {
				xs[c] = cell.X.Lo + (float64(c)+0.5)*stepX
			}
			for r := 0; r < k; r++ {
				shore.LandAlong(cell.Y.Lo+(float64(r)+0.5)*stepY, xs, land)
				for c, l := range land {
					if l {
						rowHit[r] = true
						colHit[c] = true
					}
				}
			}
			a.SX[j][i] = quantizeFraction(count(rowHit), k)
			a.SY[j][i] = quantizeFraction(count(colHit), k)
		}
	}
}

func count(hits []bool) int {
	n := 0
	for _, h := range hits {
		if h {
			n++
		}
	}
	return n
}

func quantizeFraction(n, k int) int16 {
	v := math.Round(float64(n) / float64(k) * domain.ObstrScale)
	return int16(max(0, min(domain.ObstrScale, v)))
}
