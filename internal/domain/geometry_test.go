package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewGeometry_SmallWaterDomain(t *testing.T) {
	g, err := NewGeometry(Extent{LonW: -140, LonE: -132, LatS: -40, LatN: -39.5, DX: 0.05, DY: 0.05})
	require.NoError(t, err)
	require.Equal(t, 161, g.Nx)
	require.Equal(t, 11, g.Ny)
	require.Len(t, g.Lon1D, 161)
	require.Len(t, g.Lat1D, 11)
	require.InDelta(t, -132, g.Lon1D[160], 1e-9)
	require.InDelta(t, -39.5, g.Lat1D[10], 1e-9)

	require.Equal(t, 0.05, g.SX)
	require.Equal(t, -140.0, g.X0)
	require.Equal(t, -40.0, g.Y0)
	require.Equal(t, 1.0, g.SF)
}

func TestNewGeometry_RoundsCellCount(t *testing.T) {
	require.Equal(t, 201, CellCount(0, 10, 0.05))
	require.Equal(t, 151, CellCount(110, 125, 0.1))

	g, err := NewGeometry(Extent{LonW: 0, LonE: 10, LatS: 0, LatN: 1, DX: 0.05, DY: 0.1})
	require.NoError(t, err)
	require.Equal(t, 201, g.Nx)
}

func TestNewGeometry_LatitudeStrictlyIncreasing(t *testing.T) {
	g, err := NewGeometry(Extent{LonW: 100, LonE: 101, LatS: -10, LatN: 10, DX: 0.25, DY: 0.3})
	require.NoError(t, err)
	for j := 1; j < g.Ny; j++ {
		require.Greater(t, g.Lat1D[j], g.Lat1D[j-1])
	}
	require.Equal(t, -10.0, g.Lat1D[0])
}

func TestNewGeometry_Rejects(t *testing.T) {
	for _, e := range []Extent{
		{LonW: 0, LonE: 1, LatS: 0, LatN: 1, DX: 0, DY: 0.1},
		{LonW: 0, LonE: 1, LatS: 0, LatN: 1, DX: 0.1, DY: -1},
		{LonW: 1, LonE: 1, LatS: 0, LatN: 1, DX: 0.1, DY: 0.1},
		{LonW: 0, LonE: 1, LatS: 2, LatN: 1, DX: 0.1, DY: 0.1},
		{LonW: 0, LonE: 0.01, LatS: 0, LatN: 1, DX: 0.1, DY: 0.1},
	} {
		_, err := NewGeometry(e)
		require.True(t, errors.Is(err, ErrInvalidRequest), "extent %+v: %v", e, err)
	}
}

func TestGeometry_CellBounds(t *testing.T) {
	g, err := NewGeometry(Extent{LonW: 110, LonE: 111, LatS: 15, LatN: 16, DX: 0.1, DY: 0.1})
	require.NoError(t, err)
	b := g.CellBounds(0, 0)
	require.InDelta(t, 109.95, b.X.Lo, 1e-12)
	require.InDelta(t, 110.05, b.X.Hi, 1e-12)
	require.InDelta(t, 14.95, b.Y.Lo, 1e-12)
	require.InDelta(t, 15.05, b.Y.Hi, 1e-12)

	all := g.Bounds()
	require.InDelta(t, 111.05, all.X.Hi, 1e-12)
	require.False(t, math.IsNaN(all.Y.Lo))
}
