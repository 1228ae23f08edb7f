package coastline

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ctessum/geom"
	"github.com/golang/geo/r2"
	"github.com/stretchr/testify/require"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

func box(id, level int, w, s, e, n float64) Polygon {
	return Polygon{ID: id, Level: level, Points: []geom.Point{
		{X: w, Y: s}, {X: e, Y: s}, {X: e, Y: n}, {X: w, Y: n}, {X: w, Y: s},
	}}
}

func writeBinary(t *testing.T, dir, letter string, polys []Polygon) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, WriteGSHHS(&buf, polys))
	path := filepath.Join(dir, "gshhg-bin", "gshhs_"+letter+".b")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func rect(w, s, e, n float64) r2.Rect {
	return r2.RectFromPoints(r2.Point{X: w, Y: s}, r2.Point{X: e, Y: n})
}

func TestReadGSHHS_SkipsRejectedPolygons(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGSHHS(&buf, []Polygon{
		box(0, 1, 10, 10, 11, 11),
		box(1, 2, 10.2, 10.2, 10.8, 10.8),
		box(2, 1, 50, 50, 51, 51),
	}))

	var seen []int
	polys, err := ReadGSHHS(bytes.NewReader(buf.Bytes()), func(level int, w, e, s, n float64) bool {
		seen = append(seen, level)
		return w < 20
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 1}, seen)
	require.Len(t, polys, 2)
	require.Equal(t, 2, polys[1].Level)
	require.InDelta(t, 10.2, polys[1].Points[0].X, 1e-6)
}

func TestReadGSHHS_TruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGSHHS(&buf, []Polygon{box(0, 1, 10, 10, 11, 11)}))
	_, err := ReadGSHHS(bytes.NewReader(buf.Bytes()[:buf.Len()-3]), nil)
	require.Error(t, err)
}

func TestLocalStore_WindowFiltersAndClassifies(t *testing.T) {
	dir := t.TempDir()
	writeBinary(t, dir, "f", []Polygon{
		box(0, 1, 115, 20, 120, 25),
		box(1, 2, 116, 21, 117, 22), // Lake.
		box(2, 1, -10, -10, -5, -5),
		box(3, 6, 115, 20, 120, 25), // Grounding line is not loaded by default.
	})

	store, err := OpenLocal(dir, domain.BoundaryFull, "")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	shore, err := store.Window(rect(110, 15, 125, 30))
	require.NoError(t, err)
	require.Equal(t, 2, shore.Len())
	require.True(t, shore.IsLand(118, 23))
	require.False(t, shore.IsLand(116.5, 21.5))
	require.False(t, shore.IsLand(112, 23))
}

func TestLocalStore_WindowAcrossAntimeridian(t *testing.T) {
	dir := t.TempDir()
	writeBinary(t, dir, "l", []Polygon{
		box(0, 1, -178, -1, -175, 1), // Stored west of the antimeridian.
		box(1, 1, 176, -1, 178, 1),
	})

	store, err := OpenLocal(dir, domain.BoundaryLow, "")
	require.NoError(t, err)

	shore, err := store.Window(rect(170, -5, 190, 5))
	require.NoError(t, err)
	require.Equal(t, 2, shore.Len())
	require.True(t, shore.IsLand(183, 0))
	require.True(t, shore.IsLand(177, 0))
	require.False(t, shore.IsLand(180, 0))
}

func TestLocalStore_PrecisionSelectsFile(t *testing.T) {
	dir := t.TempDir()
	writeBinary(t, dir, "f", []Polygon{box(0, 1, 0, 0, 1, 1)})
	writeBinary(t, dir, "l", nil)

	full, err := OpenLocal(dir, domain.BoundaryFull, "")
	require.NoError(t, err)
	s, err := full.Window(rect(-1, -1, 2, 2))
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())

	low, err := OpenLocal(dir, domain.BoundaryLow, "")
	require.NoError(t, err)
	s, err = low.Window(rect(-1, -1, 2, 2))
	require.NoError(t, err)
	require.Equal(t, 0, s.Len())
}

func TestLocalStore_Missing(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenLocal(dir, domain.BoundaryHigh, "")
	require.True(t, errors.Is(err, domain.ErrRefDataMissing), "got %v", err)

	_, err = OpenLocal(filepath.Join(dir, "nope"), domain.BoundaryHigh, "")
	require.True(t, errors.Is(err, domain.ErrRefDataMissing), "got %v", err)
}

func TestLocalStore_AntarcticShoreline(t *testing.T) {
	dir := t.TempDir()
	writeBinary(t, dir, "i", []Polygon{
		box(0, 5, -60, -78, -40, -70), // Ice front.
		box(1, 6, -60, -78, -40, -74), // Grounding line.
		box(2, 1, -50, -60, -49, -59),
	})
	window := rect(-65, -80, -35, -55)

	store, err := OpenLocal(dir, domain.BoundaryInter, "")
	require.NoError(t, err)
	shore, err := store.Window(window)
	require.NoError(t, err)
	require.Equal(t, 2, shore.Len())
	require.True(t, shore.IsLand(-50, -72), "ice shelf is land")
	require.True(t, shore.IsLand(-50, -76))
	require.True(t, shore.IsLand(-49.5, -59.5))
	require.False(t, shore.IsLand(-50, -65))

	store, err = OpenLocal(dir, domain.BoundaryInter, domain.AntarcticGroundingLine)
	require.NoError(t, err)
	shore, err = store.Window(window)
	require.NoError(t, err)
	require.Equal(t, 2, shore.Len())
	require.False(t, shore.IsLand(-50, -72), "ice shelf is water")
	require.True(t, shore.IsLand(-50, -76))

	_, err = OpenLocal(dir, domain.BoundaryInter, "sea_ice")
	require.True(t, errors.Is(err, domain.ErrInvalidRequest), "got %v", err)
}

func TestLocalStore_WindowClipsLargeRings(t *testing.T) {
	const n, radius = 20000, 40.0
	pts := make([]geom.Point, n+1)
	for v := 0; v < n; v++ {
		th := 2 * math.Pi * float64(v) / n
		pts[v] = geom.Point{X: radius * math.Cos(th), Y: radius * math.Sin(th)}
	}
	pts[n] = pts[0]
	dir := t.TempDir()
	writeBinary(t, dir, "f", []Polygon{{ID: 0, Level: 1, Points: pts}})

	store, err := OpenLocal(dir, domain.BoundaryFull, "")
	require.NoError(t, err)
	shore, err := store.Window(rect(38, -2, 42, 2))
	require.NoError(t, err)

	vertices := 0
	for _, r := range shore.Rings() {
		vertices += len(r.Points)
		require.True(t, rect(38, -2, 42, 2).ExpandedByMargin(1e-6).Contains(r.Bounds()), "ring bounds %v", r.Bounds())
	}
	require.Positive(t, vertices)
	require.Less(t, vertices, n/20)

	require.True(t, shore.IsLand(39, 0))
	require.True(t, shore.IsLand(39.5, 1.5))
	require.False(t, shore.IsLand(40.5, 0))
	require.False(t, shore.IsLand(41, 1.9))
}
