// Package main generates synthetic reference data for development: a
// GEBCO-layout elevation NetCDF and GSHHS shoreline binaries at the four
// precisions, describing the same set of circular islands.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"

	"github.com/ctessum/geom"

	"go.ngs.io/ww3-gridprep/internal/adapter/store/bathymetry"
	"go.ngs.io/ww3-gridprep/internal/adapter/store/coastline"
	"go.ngs.io/ww3-gridprep/internal/domain"
)

// RegionalGrid defines the geographic bounds and resolution.
type RegionalGrid struct {
	LatMin     float64
	LatMax     float64
	LonMin     float64
	LonMax     float64
	Resolution float64 // degrees
}

// Island is a circular landmass, optionally holding a lake.
type Island struct {
	Lon, Lat float64
	Radius   float64 // degrees
	Peak     float64 // meters
	Lake     float64 // lake radius as a fraction of Radius, 0 for none
}

// Shoreline vertex counts per precision.
var vertices = map[domain.Boundary]int{
	domain.BoundaryFull:  720,
	domain.BoundaryHigh:  240,
	domain.BoundaryInter: 72,
	domain.BoundaryLow:   16,
}

const oceanDepth = -4000.0 // meters

func main() {
	// Command line flags
	outDir := flag.String("out", "./data/ref", "Output directory for reference data")
	region := flag.String("region", "scs", "Region: scs, pacific, or custom")
	latMin := flag.Float64("lat-min", 15.0, "Minimum latitude (custom region)")
	latMax := flag.Float64("lat-max", 30.0, "Maximum latitude (custom region)")
	lonMin := flag.Float64("lon-min", 110.0, "Minimum longitude (custom region)")
	lonMax := flag.Float64("lon-max", 125.0, "Maximum longitude (custom region)")
	resolution := flag.Float64("resolution", 0.05, "Elevation grid resolution in degrees")

	flag.Parse()

	// Define grid based on region
	var grid RegionalGrid
	switch *region {
	case "scs":
		grid = RegionalGrid{LatMin: 0, LatMax: 40, LonMin: 100, LonMax: 140, Resolution: *resolution}
	case "pacific":
		grid = RegionalGrid{LatMin: -50, LatMax: -30, LonMin: -150, LonMax: -120, Resolution: *resolution}
	case "custom":
		grid = RegionalGrid{LatMin: *latMin, LatMax: *latMax, LonMin: *lonMin, LonMax: *lonMax, Resolution: *resolution}
	default:
		log.Fatalf("Unknown region: %s (use scs, pacific, or custom)", *region)
	}
	if !(grid.Resolution > 0) || grid.LatMin >= grid.LatMax || grid.LonMin >= grid.LonMax {
		log.Fatalf("Invalid grid: %+v", grid)
	}

	islands := layoutIslands(grid)
	log.Printf("Generating reference data for region: %s", *region)
	log.Printf("Grid: %.1f°-%.1f°N, %.1f°-%.1f°E, resolution: %.3f°",
		grid.LatMin, grid.LatMax, grid.LonMin, grid.LonMax, grid.Resolution)
	log.Printf("Islands: %d", len(islands))

	// Create output directory
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	ncPath := filepath.Join(*outDir, "gebco_synthetic.nc")
	nLat, nLon, err := writeElevation(ncPath, grid, islands)
	if err != nil {
		log.Fatalf("Failed to write elevation: %v", err)
	}
	log.Printf("✓ Generated %s (%d × %d points)", filepath.Base(ncPath), nLat, nLon)

	for _, b := range []domain.Boundary{domain.BoundaryFull, domain.BoundaryHigh, domain.BoundaryInter, domain.BoundaryLow} {
		path := filepath.Join(*outDir, "gshhg-bin", fmt.Sprintf("gshhs_%s.b", b.Letter()))
		if err := writeShoreline(path, islands, vertices[b]); err != nil {
			log.Fatalf("Failed to write %s shoreline: %v", b, err)
		}
		log.Printf("✓ Generated %s (%d vertices per ring)", filepath.Base(path), vertices[b])
	}

	// Print summary
	log.Printf("\n=== Generation Complete ===")
	log.Printf("Files created in: %s", *outDir)
	log.Printf("Use REF_DIR=%s with ref_grid \"gebco\"", *outDir)
}

// layoutIslands places a fixed pattern of islands relative to the region.
func layoutIslands(g RegionalGrid) []Island {
	w, h := g.LonMax-g.LonMin, g.LatMax-g.LatMin
	size := math.Min(w, h)
	at := func(fx, fy, fr, peak, lake float64) Island {
		return Island{Lon: g.LonMin + fx*w, Lat: g.LatMin + fy*h, Radius: fr * size, Peak: peak, Lake: lake}
	}
	return []Island{
		at(0.5, 0.5, 0.12, 1500, 0.3),
		at(0.25, 0.7, 0.06, 600, 0),
		at(0.75, 0.3, 0.05, 400, 0),
		at(0.8, 0.8, 0.02, 150, 0),
	}
}

// elevation returns meters, positive up. The 0 m contour of each island is
// the circle of its Radius; lakes sit on land at 5 m.
func elevation(islands []Island, lon, lat float64) float64 {
	z := oceanDepth
	for _, is := range islands {
		d := math.Hypot(lon-is.Lon, lat-is.Lat) / is.Radius
		var v float64
		switch {
		case is.Lake > 0 && d < is.Lake:
			v = 5
		case d <= 1:
			v = is.Peak * (1 - d*d)
		default:
			// Shelf falling to the ocean floor over one radius.
			v = oceanDepth * math.Min(1, d-1)
		}
		z = math.Max(z, v)
	}
	return z
}

func writeElevation(path string, g RegionalGrid, islands []Island) (int, int, error) {
	nLat := domain.CellCount(g.LatMin, g.LatMax, g.Resolution)
	nLon := domain.CellCount(g.LonMin, g.LonMax, g.Resolution)

	lat := make([]float64, nLat)
	for i := range lat {
		lat[i] = g.LatMin + float64(i)*g.Resolution
	}
	lon := make([]float64, nLon)
	for i := range lon {
		lon[i] = g.LonMin + float64(i)*g.Resolution
	}

	elev := make([]float32, 0, nLat*nLon)
	for _, y := range lat {
		for _, x := range lon {
			elev = append(elev, float32(elevation(islands, x, y)))
		}
	}
	return nLat, nLon, bathymetry.WriteNetCDF(path, lat, lon, elev)
}

// writeShoreline writes each island as a level-1 ring of n vertices and each
// lake as a level-2 ring.
func writeShoreline(path string, islands []Island, n int) error {
	var polys []coastline.Polygon
	for _, is := range islands {
		polys = append(polys, coastline.Polygon{ID: len(polys), Level: 1, Points: circle(is.Lon, is.Lat, is.Radius, n)})
		if is.Lake > 0 {
			polys = append(polys, coastline.Polygon{ID: len(polys), Level: 2, Points: circle(is.Lon, is.Lat, is.Radius*is.Lake, n)})
		}
	}

	var buf bytes.Buffer
	if err := coastline.WriteGSHHS(&buf, polys); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// circle returns a closed ring. Vertices lie on the circle, so coarser rings
// cut slightly inside it.
func circle(lon, lat, r float64, n int) []geom.Point {
	pts := make([]geom.Point, 0, n+1)
	for k := 0; k < n; k++ {
		a := 2 * math.Pi * float64(k) / float64(n)
		pts = append(pts, geom.Point{X: lon + r*math.Cos(a), Y: lat + r*math.Sin(a)})
	}
	return append(pts, pts[0])
}
