package domain

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"
	"github.com/golang/geo/r1"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/s1"
)

// BoundaryTolerance is the distance under which a point is considered to lie
// on a shoreline. Such ties classify as land.
var BoundaryTolerance = s1.Angle(1e-9).Degrees()

// Shoreline is a set of closed coastline rings classified with the even-odd
// rule: a point is land when it is inside an odd number of rings. With all
// GSHHG levels loaded this makes lakes water and islands in lakes land.
//
// Edges, not rings, are indexed, so a query only touches the segments near
// the point or along its ray.
type Shoreline struct {
	rings  []Ring
	edges  *rtree.Rtree
	bounds r2.Rect
}

// Ring is one closed polygon ring. The closing edge is implicit.
type Ring struct {
	Points []geom.Point
	Level  int
	bounds r2.Rect
}

// NewShoreline indexes rings. Rings with fewer than three distinct vertices are dropped.
func NewShoreline(rings []Ring) *Shoreline {
	s := &Shoreline{edges: rtree.NewTree(25, 50), bounds: r2.EmptyRect()}
	for _, r := range rings {
		pts := r.Points
		if n := len(pts); n > 1 && pts[0] == pts[n-1] {
			pts = pts[:n-1]
		}
		if len(pts) < 3 {
			continue
		}
		ring := Ring{Points: pts, Level: r.Level, bounds: r2.EmptyRect()}
		for i, j := 0, len(pts)-1; i < len(pts); j, i = i, i+1 {
			ring.bounds = ring.bounds.AddPoint(r2.Point{X: pts[i].X, Y: pts[i].Y})
			s.edges.Insert(geom.LineString{pts[j], pts[i]})
		}
		s.rings = append(s.rings, ring)
		s.bounds = s.bounds.Union(ring.bounds)
	}
	return s
}

// Len returns the number of rings.
func (s *Shoreline) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rings)
}

// Rings returns the indexed rings.
func (s *Shoreline) Rings() []Ring {
	if s == nil {
		return nil
	}
	return s.rings
}

// Bounds returns the rectangle covered by ring vertices.
func (r Ring) Bounds() r2.Rect {
	return r.bounds
}

// Touches reports whether any shoreline edge comes within BoundaryTolerance of b.
// When it does not, every point of b has the classification of its center.
func (s *Shoreline) Touches(b r2.Rect) bool {
	if s.Len() == 0 {
		return false
	}
	return len(s.edgesIn(b.ExpandedByMargin(BoundaryTolerance))) > 0
}

// IsLand classifies a point. Points inside an odd number of rings, or within
// BoundaryTolerance of any edge, are land.
func (s *Shoreline) IsLand(x, y float64) bool {
	if s.Len() == 0 {
		return false
	}
	probe := r2.RectFromPoints(r2.Point{X: x, Y: y}).ExpandedByMargin(BoundaryTolerance)
	for _, e := range s.edgesIn(probe) {
		if onEdge(e, x, y) {
			return true
		}
	}
	if !s.bounds.ContainsPoint(r2.Point{X: x, Y: y}) {
		return false
	}
	return s.parity(x, y, s.bounds.X.Hi-x <= x-s.bounds.X.Lo)
}

// LandAlong classifies the points (xs[c], y) into land[c]; xs must be
// increasing. One ray is cast for the first point and the crossing parity is
// carried along the row, so the rest only test edges near the row.
func (s *Shoreline) LandAlong(y float64, xs []float64, land []bool) {
	if len(xs) == 0 {
		return
	}
	if s.Len() == 0 {
		clear(land[:len(xs)])
		return
	}
	row := r2.Rect{X: r1.Interval{Lo: xs[0], Hi: xs[len(xs)-1]}, Y: r1.Interval{Lo: y, Hi: y}}
	local := s.edgesIn(row.ExpandedByMargin(BoundaryTolerance))
	crossings := make([]float64, 0, len(local))
	for _, e := range local {
		if xc, ok := crossing(e, y); ok {
			crossings = append(crossings, xc)
		}
	}

	// inside is the parity of crossings east of the current point.
	inside := s.parity(xs[0], y, true)
	for c, x := range xs {
		if c > 0 {
			prev := xs[c-1]
			for _, xc := range crossings {
				if xc > prev && xc <= x {
					inside = !inside
				}
			}
		}
		land[c] = inside
		if !inside {
			for _, e := range local {
				if onEdge(e, x, y) {
					land[c] = true
					break
				}
			}
		}
	}
}

// parity casts a horizontal ray from (x, y) to the shoreline bounds, east or
// west, and reports whether it crosses an odd number of edges.
func (s *Shoreline) parity(x, y float64, east bool) bool {
	ray := r2.Rect{X: r1.Interval{Lo: x, Hi: math.Max(x, s.bounds.X.Hi)}, Y: r1.Interval{Lo: y, Hi: y}}
	if !east {
		ray.X = r1.Interval{Lo: math.Min(x, s.bounds.X.Lo), Hi: x}
	}
	inside := false
	for _, e := range s.edgesIn(ray) {
		xc, ok := crossing(e, y)
		if ok && ((east && xc > x) || (!east && xc < x)) {
			inside = !inside
		}
	}
	return inside
}

func (s *Shoreline) edgesIn(b r2.Rect) []geom.LineString {
	hits := s.edges.SearchIntersect(toBounds(b))
	out := make([]geom.LineString, 0, len(hits))
	for _, h := range hits {
		if e, ok := h.(geom.LineString); ok {
			out = append(out, e)
		}
	}
	return out
}

// crossing returns where edge e crosses the horizontal line at y. The
// half-open test counts a vertex on the line once.
func crossing(e geom.LineString, y float64) (float64, bool) {
	a, b := e[0], e[1]
	if (a.Y > y) == (b.Y > y) {
		return 0, false
	}
	return a.X + (y-a.Y)*(b.X-a.X)/(b.Y-a.Y), true
}

func onEdge(e geom.LineString, x, y float64) bool {
	a, b := e[0], e[1]
	if x < math.Min(a.X, b.X)-BoundaryTolerance || x > math.Max(a.X, b.X)+BoundaryTolerance ||
		y < math.Min(a.Y, b.Y)-BoundaryTolerance || y > math.Max(a.Y, b.Y)+BoundaryTolerance {
		return false
	}
	return segmentDistance(a, b, x, y) <= BoundaryTolerance
}

func segmentDistance(a, b geom.Point, x, y float64) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return math.Hypot(x-a.X, y-a.Y)
	}
	t := ((x-a.X)*dx + (y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(x-(a.X+t*dx), y-(a.Y+t*dy))
}

func toBounds(b r2.Rect) *geom.Bounds {
	return &geom.Bounds{
		Min: geom.Point{X: b.X.Lo, Y: b.Y.Lo},
		Max: geom.Point{X: b.X.Hi, Y: b.Y.Hi},
	}
}
