// Package builder computes the depth, mask and obstruction layers of a grid
// from loaded reference data.
package builder

import (
	"fmt"
	"math"

	"github.com/ctessum/sparse"

	"go.ngs.io/ww3-gridprep/internal/adapter/interp"
	"go.ngs.io/ww3-gridprep/internal/domain"
)

// DefaultMaxMissingFraction is the share of unresolved cells above which
// resampling fails.
const DefaultMaxMissingFraction = 0.5

// Bathymetry is the reference elevation resampled onto grid cell centers.
type Bathymetry struct {
	// Elevation is Ny×Nx meters, positive up. Unresolved cells are NaN.
	Elevation *sparse.DenseArray
	Filled    int // Cells recovered from their neighbours.
	Missing   int // Cells left unresolved.
}

// IsMissing reports whether cell (i, j) has no elevation.
func (b *Bathymetry) IsMissing(i, j int) bool {
	return math.IsNaN(b.Elevation.Get(j, i))
}

// Resample interpolates ref at every cell center of a.Geometry and stores the
// quantized elevation in a.Depth: round(z · DepthScale), so cells below sea
// level are negative. A NaN sample takes the mean of its non-NaN 4-neighbours;
// with none it stays unresolved, gets depth 0 and is reported in Missing.
// More than maxMissing unresolved cells, as a fraction, fails with
// domain.ErrResampleFailed.
func Resample(a *domain.Artifact, ref *interp.Grid2D, maxMissing float64) (*Bathymetry, error) {
	g := a.Geometry
	raw := sparse.ZerosDense(g.Ny, g.Nx)
	for j, lat := range g.Lat1D {
		for i, lon := range g.Lon1D {
			z := math.NaN()
			if ref.Covers(lon, lat) {
				if v, err := ref.InterpolateAt(lon, lat); err == nil {
					z = v
				}
			}
			raw.Set(z, j, i)
		}
	}

	b := &Bathymetry{Elevation: sparse.ZerosDense(g.Ny, g.Nx)}
	for j := 0; j < g.Ny; j++ {
		for i := 0; i < g.Nx; i++ {
			z := raw.Get(j, i)
			if math.IsNaN(z) {
				z = neighbourMean(raw, i, j, g.Nx, g.Ny)
				if math.IsNaN(z) {
					b.Missing++
				} else {
					b.Filled++
				}
			}
			b.Elevation.Set(z, j, i)
			if math.IsNaN(z) {
				a.Depth[j][i] = 0
				continue
			}
			a.Depth[j][i] = quantizeDepth(z)
		}
	}

	if frac := float64(b.Missing) / float64(g.Cells()); frac > maxMissing {
		return b, fmt.Errorf("%w: %d of %d cells (%.1f%%) have no reference data within the grid, limit %.1f%%",
			domain.ErrResampleFailed, b.Missing, g.Cells(), 100*frac, 100*maxMissing)
	}
	return b, nil
}

// neighbourMean averages the non-NaN east, west, north and south samples.
func neighbourMean(f *sparse.DenseArray, i, j, nx, ny int) float64 {
	sum, n := 0.0, 0
	for _, d := range [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}} {
		ii, jj := i+d[0], j+d[1]
		if ii < 0 || ii >= nx || jj < 0 || jj >= ny {
			continue
		}
		if v := f.Get(jj, ii); !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

func quantizeDepth(z float64) int32 {
	v := math.Round(z * domain.DepthScale)
	switch {
	case v > math.MaxInt32:
		return math.MaxInt32
	case v < math.MinInt32:
		return math.MinInt32
	}
	return int32(v)
}
