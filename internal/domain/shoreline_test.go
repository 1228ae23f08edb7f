package domain

import (
	"testing"

	"github.com/ctessum/geom"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"
)

func square(x0, y0, x1, y1 float64, level int) Ring {
	return Ring{Level: level, Points: []geom.Point{
		{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}, {X: x0, Y: y0},
	}}
}

func TestShoreline_EvenOdd(t *testing.T) {
	s := NewShoreline([]Ring{
		square(0, 0, 10, 10, 1), // Island.
		square(2, 2, 8, 8, 2),   // Lake.
		square(4, 4, 6, 6, 3),   // Island in lake.
	})
	require.Equal(t, 3, s.Len())

	require.True(t, s.IsLand(1, 1))
	require.False(t, s.IsLand(3, 3))
	require.True(t, s.IsLand(5, 5))
	require.False(t, s.IsLand(-1, 5))
	require.False(t, s.IsLand(11, 11))
}

func TestShoreline_BoundaryTiesAreLand(t *testing.T) {
	s := NewShoreline([]Ring{square(0, 0, 10, 10, 1)})
	require.True(t, s.IsLand(10, 5))
	require.True(t, s.IsLand(0, 0))
	require.True(t, s.IsLand(5, 10+BoundaryTolerance/2))
	require.False(t, s.IsLand(5, 10+1e-6))
}

func TestShoreline_DropsDegenerateRings(t *testing.T) {
	s := NewShoreline([]Ring{
		{Points: []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}},
		square(0, 0, 1, 1, 1),
	})
	require.Equal(t, 1, s.Len())
	require.Len(t, s.Rings()[0].Points, 4)
}

func TestShoreline_Touches(t *testing.T) {
	s := NewShoreline([]Ring{square(0, 0, 1, 1, 1), square(5, 5, 6, 6, 1)})
	require.True(t, s.Touches(r2.RectFromPoints(r2.Point{X: 4.5, Y: 4.5}, r2.Point{X: 5.5, Y: 5.5})))
	require.False(t, s.Touches(r2.RectFromPoints(r2.Point{X: 2, Y: 2}, r2.Point{X: 3, Y: 3})))
	// Strictly inside a ring: no edge, uniformly land.
	require.False(t, s.Touches(r2.RectFromPoints(r2.Point{X: 5.2, Y: 5.2}, r2.Point{X: 5.8, Y: 5.8})))
	require.True(t, s.IsLand(5.5, 5.5))
	require.InDelta(t, 5, s.Rings()[1].Bounds().X.Lo, 1e-12)

	var empty *Shoreline
	require.Equal(t, 0, empty.Len())
	require.False(t, empty.IsLand(0, 0))
	require.False(t, empty.Touches(r2.RectFromPoints(r2.Point{X: 0, Y: 0})))
}

func TestShoreline_LandAlongMatchesIsLand(t *testing.T) {
	s := NewShoreline([]Ring{
		square(0, 0, 10, 10, 1),
		square(2, 2, 8, 8, 2),
		square(4, 4, 6, 6, 3),
		{Level: 1, Points: []geom.Point{{X: 11, Y: 1}, {X: 14, Y: 5}, {X: 11, Y: 9}, {X: 12, Y: 5}}},
	})
	xs := make([]float64, 0, 321)
	for x := -1.0; x <= 15+1e-9; x += 0.05 {
		xs = append(xs, x)
	}
	land := make([]bool, len(xs))
	for _, y := range []float64{-0.5, 0, 1, 2, 3.3, 5, 7.77, 9, 10, 11} {
		s.LandAlong(y, xs, land)
		for c, x := range xs {
			require.Equal(t, s.IsLand(x, y), land[c], "(%g, %g)", x, y)
		}
	}
	s.LandAlong(5, xs[:3], land)
	require.Equal(t, []bool{false, false, false}, land[:3])
}
