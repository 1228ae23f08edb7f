package coastline

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
)

// readShapefile decodes every ring of a GSHHS_*_L<level>.shp file. Holes are
// returned as separate rings; the even-odd rule treats them correctly.
func readShapefile(path string, level int, keep func(level int, w, e, s, n float64) bool) ([]Polygon, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile %s: %w", path, err)
	}
	defer dec.Close()

	var out []Polygon
	id := 0
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		polygonal, ok := g.(geom.Polygonal)
		if !ok {
			continue
		}
		for _, poly := range polygonal.Polygons() {
			for _, ring := range poly {
				p := Polygon{ID: id, Level: level, Points: []geom.Point(ring)}
				id++
				w, e, s, n := p.bounds()
				if keep != nil && !keep(level, w, e, s, n) {
					continue
				}
				out = append(out, p)
			}
		}
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("failed to decode shapefile %s: %w", path, err)
	}
	return out, nil
}
