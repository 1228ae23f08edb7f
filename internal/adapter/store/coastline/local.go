// Package coastline loads GSHHG shoreline polygons, from the native binary
// database or its shapefile distribution.
package coastline

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/golang/geo/r2"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

var frameShifts = []float64{-360, 0, 360}

// LocalStore reads GSHHG rings from files under a reference directory. Files
// are opened per Window call and closed before it returns.
type LocalStore struct {
	boundary  domain.Boundary
	antarctic int            // GSHHG level of the Antarctic shoreline.
	binary    string         // gshhs_<p>.b, if present.
	shapes    map[int]string // Level -> GSHHS_<p>_L<level>.shp.
}

// OpenLocal locates the shoreline files of the given precision under refDir.
// Failures wrap domain.ErrRefDataMissing.
func OpenLocal(refDir string, boundary domain.Boundary, antarctic domain.Antarctic) (Store, error) {
	letter := boundary.Letter()
	if letter == "" {
		return nil, fmt.Errorf("%w: unknown boundary %q", domain.ErrInvalidRequest, boundary)
	}
	if _, err := os.Stat(refDir); err != nil {
		return nil, fmt.Errorf("%w: reference directory %s: %v", domain.ErrRefDataMissing, refDir, err)
	}

	if !antarctic.Valid() {
		return nil, fmt.Errorf("%w: unknown antarctic shoreline %q", domain.ErrInvalidRequest, antarctic)
	}

	s := &LocalStore{boundary: boundary, antarctic: antarctic.Level(), shapes: make(map[int]string)}
	binaryName := fmt.Sprintf("gshhs_%s.b", letter)
	err := filepath.WalkDir(refDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if name == binaryName && s.binary == "" {
			s.binary = path
			return nil
		}
		for _, level := range s.levels() {
			if name == fmt.Sprintf("gshhs_%s_l%d.shp", letter, level) {
				if _, dup := s.shapes[level]; !dup {
					s.shapes[level] = path
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to walk %s: %v", domain.ErrRefDataMissing, refDir, err)
	}
	if s.binary == "" && s.shapes[1] == "" {
		return nil, fmt.Errorf("%w: no GSHHG %s shoreline (%s or GSHHS_%s_L1.shp) under %s",
			domain.ErrRefDataMissing, boundary, binaryName, letter, refDir)
	}
	return s, nil
}

// Window loads the rings whose bounds intersect bbox at any whole-turn
// longitude shift, translates them into bbox's frame and clips them to bbox.
// Inside bbox the clipped pieces classify points as the full rings do.
func (s *LocalStore) Window(bbox r2.Rect) (*domain.Shoreline, error) {
	if bbox.IsEmpty() {
		return nil, fmt.Errorf("%w: %v", domain.ErrBboxEmpty, bbox)
	}
	keep := func(level int, w, e, so, n float64) bool {
		if !s.loads(level) {
			return false
		}
		for _, shift := range frameShifts {
			if intersects(bbox, w+shift, e+shift, so, n) {
				return true
			}
		}
		return false
	}

	polys, err := s.load(keep)
	if err != nil {
		return nil, err
	}

	window := &geom.Bounds{
		Min: geom.Point{X: bbox.X.Lo, Y: bbox.Y.Lo},
		Max: geom.Point{X: bbox.X.Hi, Y: bbox.Y.Hi},
	}
	var rings []domain.Ring
	for _, p := range polys {
		w, e, so, n := p.bounds()
		for _, shift := range frameShifts {
			if !intersects(bbox, w+shift, e+shift, so, n) {
				continue
			}
			for _, piece := range clip(shifted(p.Points, shift), window) {
				rings = append(rings, domain.Ring{Level: p.Level, Points: piece})
			}
		}
	}
	return domain.NewShoreline(rings), nil
}

// levels returns the GSHHG levels this store loads.
func (s *LocalStore) levels() []int {
	out := make([]int, 0, MaxLevel+1)
	for level := 1; level <= MaxLevel; level++ {
		out = append(out, level)
	}
	return append(out, s.antarctic)
}

func (s *LocalStore) loads(level int) bool {
	return (level >= 1 && level <= MaxLevel) || level == s.antarctic
}

func (s *LocalStore) load(keep func(level int, w, e, so, n float64) bool) ([]Polygon, error) {
	if s.binary != "" {
		//nolint:gosec // G304: Path discovered under the configured reference directory.
		f, err := os.Open(s.binary)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRefDataMissing, err)
		}
		defer func() { _ = f.Close() }()
		polys, err := ReadGSHHS(f, keep)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrRefDataMissing, s.binary, err)
		}
		return polys, nil
	}

	levels := make([]int, 0, len(s.shapes))
	for level := range s.shapes {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	var out []Polygon
	for _, level := range levels {
		polys, err := readShapefile(s.shapes[level], level, keep)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrRefDataMissing, err)
		}
		out = append(out, polys...)
	}
	return out, nil
}

// Close is a no-op; files are scoped to Window.
func (s *LocalStore) Close() error {
	return nil
}

func intersects(b r2.Rect, w, e, s, n float64) bool {
	return w <= b.X.Hi && e >= b.X.Lo && s <= b.Y.Hi && n >= b.Y.Lo
}

// clip cuts a ring down to window. Rings inside window come back unchanged;
// the rest go through a polygon intersection whose contours, taken with the
// even-odd rule, cover the part of the ring inside window.
func clip(pts []geom.Point, window *geom.Bounds) []geom.Path {
	if n := len(pts); n > 1 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	if len(pts) < 3 {
		return nil
	}
	c := window.Intersection(geom.Polygon{pts})
	if c == nil {
		return nil
	}
	var out []geom.Path
	for _, poly := range c.Polygons() {
		out = append(out, poly...)
	}
	return out
}

func shifted(pts []geom.Point, shift float64) []geom.Point {
	if shift == 0 {
		return pts
	}
	out := make([]geom.Point, len(pts))
	for i, p := range pts {
		out[i] = geom.Point{X: p.X + shift, Y: p.Y}
	}
	return out
}
