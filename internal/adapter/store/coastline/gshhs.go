package coastline

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ctessum/geom"
)

// GSHHS native binary layout: a big-endian header of eleven int32 followed by
// n (lon, lat) pairs in micro-degrees.
const (
	microDegrees  = 1e6
	gshhsVersion  = 12
	levelMask     = 0xff
	greenwichFlag = 1 << 16
)

type gshhsHeader struct {
	ID        int32
	N         int32
	Flag      int32
	West      int32
	East      int32
	South     int32
	North     int32
	Area      int32
	AreaFull  int32
	Container int32
	Ancestor  int32
}

// Polygon is one GSHHG shoreline ring in degrees.
type Polygon struct {
	ID     int
	Level  int
	Points []geom.Point
}

// bounds returns west, east, south, north.
func (p Polygon) bounds() (w, e, s, n float64) {
	if len(p.Points) == 0 {
		return 0, 0, 0, 0
	}
	w, e = p.Points[0].X, p.Points[0].X
	s, n = p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points[1:] {
		w = min(w, pt.X)
		e = max(e, pt.X)
		s = min(s, pt.Y)
		n = max(n, pt.Y)
	}
	return w, e, s, n
}

// ReadGSHHS scans a GSHHS binary stream. keep is called with each polygon's
// level and header bounds in degrees; points of rejected polygons are skipped
// without decoding.
func ReadGSHHS(r io.Reader, keep func(level int, w, e, s, n float64) bool) ([]Polygon, error) {
	br := bufio.NewReaderSize(r, 1<<16)
	var out []Polygon
	for {
		var h gshhsHeader
		if err := binary.Read(br, binary.BigEndian, &h); err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("failed to read GSHHS header after %d polygons: %w", len(out), err)
		}
		if h.N < 0 {
			return nil, fmt.Errorf("corrupt GSHHS header for polygon %d: n=%d", h.ID, h.N)
		}
		level := int(h.Flag & levelMask)
		w, e := float64(h.West)/microDegrees, float64(h.East)/microDegrees
		s, n := float64(h.South)/microDegrees, float64(h.North)/microDegrees
		size := int64(h.N) * 8
		if keep != nil && !keep(level, w, e, s, n) {
			if _, err := br.Discard(int(size)); err != nil {
				return nil, fmt.Errorf("failed to skip polygon %d: %w", h.ID, err)
			}
			continue
		}

		raw := make([]int32, 2*h.N)
		if err := binary.Read(br, binary.BigEndian, raw); err != nil {
			return nil, fmt.Errorf("failed to read points of polygon %d: %w", h.ID, err)
		}
		pts := make([]geom.Point, h.N)
		for i := range pts {
			pts[i] = geom.Point{X: float64(raw[2*i]) / microDegrees, Y: float64(raw[2*i+1]) / microDegrees}
		}
		out = append(out, Polygon{ID: int(h.ID), Level: level, Points: pts})
	}
}

// WriteGSHHS encodes polygons in the GSHHS binary layout.
func WriteGSHHS(w io.Writer, polys []Polygon) error {
	bw := bufio.NewWriter(w)
	for _, p := range polys {
		west, east, south, north := p.bounds()
		flag := int32(p.Level&levelMask) | gshhsVersion<<8
		if west < 0 && east > 0 {
			flag |= greenwichFlag
		}
		h := gshhsHeader{
			ID:        int32(p.ID),
			N:         int32(len(p.Points)),
			Flag:      flag,
			West:      micro(west),
			East:      micro(east),
			South:     micro(south),
			North:     micro(north),
			Container: -1,
			Ancestor:  -1,
		}
		if err := binary.Write(bw, binary.BigEndian, &h); err != nil {
			return fmt.Errorf("failed to write header of polygon %d: %w", p.ID, err)
		}
		raw := make([]int32, 2*len(p.Points))
		for i, pt := range p.Points {
			raw[2*i] = micro(pt.X)
			raw[2*i+1] = micro(pt.Y)
		}
		if err := binary.Write(bw, binary.BigEndian, raw); err != nil {
			return fmt.Errorf("failed to write points of polygon %d: %w", p.ID, err)
		}
	}
	return bw.Flush()
}

func micro(deg float64) int32 {
	v := deg * microDegrees
	if v < 0 {
		return int32(v - 0.5)
	}
	return int32(v + 0.5)
}
