// Package bathymetry provides windowed reference bathymetry (GEBCO, ETOPO1,
// ETOPO2) from NetCDF files.
package bathymetry

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/golang/geo/r2"

	"go.ngs.io/ww3-gridprep/internal/adapter/interp"
	"go.ngs.io/ww3-gridprep/internal/domain"
)

// productPrefixes maps each product to the lower-case file name prefix it is found by.
var productPrefixes = map[domain.RefGrid]string{
	domain.RefGEBCO:  "gebco",
	domain.RefETOPO1: "etopo1",
	domain.RefETOPO2: "etopo2",
}

type dimOrder int

const (
	latLonOrder dimOrder = iota
	lonLatOrder
)

// LocalStore reads windows of a NetCDF bathymetry file. The file handle stays
// open until Close.
type LocalStore struct {
	path    string
	nc      netcdf.Dataset
	data    netcdf.Var
	pack    packing
	order   dimOrder
	lat     []float64 // Ascending.
	lon     []float64 // Ascending.
	latFlip bool      // File stores latitude north to south.
	mu      sync.Mutex
}

// OpenLocal finds and opens the product selected by grid under refDir.
// Failures wrap domain.ErrRefDataMissing.
func OpenLocal(refDir string, grid domain.RefGrid) (Store, error) {
	path, err := FindReference(refDir, grid)
	if err != nil {
		return nil, err
	}
	s, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// FindReference walks refDir for the first file of the selected product.
func FindReference(refDir string, grid domain.RefGrid) (string, error) {
	prefix, ok := productPrefixes[grid]
	if !ok {
		return "", fmt.Errorf("%w: unknown reference grid %q", domain.ErrInvalidRequest, grid)
	}
	if _, err := os.Stat(refDir); err != nil {
		return "", fmt.Errorf("%w: reference directory %s: %v", domain.ErrRefDataMissing, refDir, err)
	}

	var match string
	errFound := errors.New("found")
	err := filepath.WalkDir(refDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := strings.ToLower(d.Name())
		if strings.HasPrefix(name, prefix) && (strings.HasSuffix(name, ".nc") || strings.HasSuffix(name, ".grd")) {
			match = path
			return errFound
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", fmt.Errorf("%w: failed to walk %s: %v", domain.ErrRefDataMissing, refDir, err)
	}
	if match == "" {
		return "", fmt.Errorf("%w: no %s file (%s*.nc) under %s", domain.ErrRefDataMissing, grid, prefix, refDir)
	}
	return match, nil
}

// OpenFile opens a bathymetry NetCDF file and reads its coordinate axes.
func OpenFile(path string) (*LocalStore, error) {
	nc, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open NetCDF file %s: %v", domain.ErrRefDataMissing, path, err)
	}
	s := &LocalStore{path: path, nc: nc}
	if err := s.init(); err != nil {
		_ = nc.Close()
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrRefDataMissing, path, err)
	}
	return s, nil
}

func (s *LocalStore) init() error {
	latVar, _, err := findVar(s.nc, latNames)
	if err != nil {
		return fmt.Errorf("latitude %w", err)
	}
	lonVar, _, err := findVar(s.nc, lonNames)
	if err != nil {
		return fmt.Errorf("longitude %w", err)
	}
	if s.lat, err = readAxis(latVar); err != nil {
		return fmt.Errorf("failed to read latitude: %w", err)
	}
	if s.lon, err = readAxis(lonVar); err != nil {
		return fmt.Errorf("failed to read longitude: %w", err)
	}
	if len(s.lat) < 2 || len(s.lon) < 2 {
		return fmt.Errorf("axes too short (%d lat, %d lon)", len(s.lat), len(s.lon))
	}
	if s.lat[0] > s.lat[len(s.lat)-1] {
		s.latFlip = true
		reverse(s.lat)
	}
	if !strictlyIncreasing(s.lat) || !strictlyIncreasing(s.lon) {
		return fmt.Errorf("coordinate axes must be monotonic")
	}

	if s.data, _, err = findVar(s.nc, dataNames); err != nil {
		return fmt.Errorf("elevation %w", err)
	}
	dims, err := s.data.Dims()
	if err != nil {
		return fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 2 {
		return fmt.Errorf("expected 2D data, got %dD", len(dims))
	}
	dim0Len, err := dims[0].Len()
	if err != nil {
		return fmt.Errorf("failed to get dim0 length: %w", err)
	}
	dim1Len, err := dims[1].Len()
	if err != nil {
		return fmt.Errorf("failed to get dim1 length: %w", err)
	}
	nLat, nLon := uint64(len(s.lat)), uint64(len(s.lon))
	switch {
	case dim0Len == nLat && dim1Len == nLon:
		s.order = latLonOrder
	case dim0Len == nLon && dim1Len == nLat:
		s.order = lonLatOrder
	default:
		return fmt.Errorf("dimension mismatch: data is [%d, %d], expected [%d, %d] or [%d, %d]",
			dim0Len, dim1Len, nLat, nLon, nLon, nLat)
	}
	s.pack = readPacking(s.data)
	return nil
}

// Path returns the file backing the store.
func (s *LocalStore) Path() string {
	return s.path
}

// Window reads the reference cells covering bbox plus one neighbour on each
// side. Longitudes are returned in bbox's frame: the source axis is probed at
// shifts of -360, 0 and +360 degrees and the pieces are stitched.
func (s *LocalStore) Window(bbox r2.Rect) (*interp.Grid2D, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bbox.IsEmpty() {
		return nil, fmt.Errorf("%w: %v", domain.ErrBboxEmpty, bbox)
	}
	latLo, latHi, ok := indexRange(s.lat, bbox.Y.Lo, bbox.Y.Hi)
	if !ok {
		return nil, fmt.Errorf("%w: latitude [%g, %g] outside %s", domain.ErrBboxEmpty, bbox.Y.Lo, bbox.Y.Hi, s.path)
	}

	type column struct {
		lon   float64
		block int
		col   int
	}
	var blocks [][][]float64
	var columns []column
	for _, shift := range []float64{-360, 0, 360} {
		lo, hi, ok := indexRange(s.lon, bbox.X.Lo-shift, bbox.X.Hi-shift)
		if !ok {
			continue
		}
		block, err := s.readBlock(latLo, latHi-latLo+1, lo, hi-lo+1)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
		}
		blocks = append(blocks, block)
		for c := lo; c <= hi; c++ {
			columns = append(columns, column{lon: s.lon[c] + shift, block: len(blocks) - 1, col: c - lo})
		}
	}
	sort.SliceStable(columns, func(a, b int) bool { return columns[a].lon < columns[b].lon })

	// Drop duplicates such as -180 and 180 landing on the same meridian.
	const eps = 1e-9
	kept := columns[:0]
	for _, c := range columns {
		if len(kept) > 0 && c.lon-kept[len(kept)-1].lon < eps {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) < 2 {
		return nil, fmt.Errorf("%w: longitude [%g, %g] outside %s", domain.ErrBboxEmpty, bbox.X.Lo, bbox.X.Hi, s.path)
	}

	nRows := latHi - latLo + 1
	grid := &interp.Grid2D{
		X:      make([]float64, len(kept)),
		Y:      append([]float64(nil), s.lat[latLo:latHi+1]...),
		Values: make([][]float64, nRows),
	}
	for c, col := range kept {
		grid.X[c] = col.lon
	}
	for r := 0; r < nRows; r++ {
		row := make([]float64, len(kept))
		for c, col := range kept {
			row[c] = blocks[col.block][r][col.col]
		}
		grid.Values[r] = row
	}
	if err := grid.Validate(); err != nil {
		return nil, fmt.Errorf("invalid grid: %w", err)
	}
	return grid, nil
}

// readBlock reads rows [latStart, latStart+nLat) and columns
// [lonStart, lonStart+nLon) of the ascending axes, returned as [lat][lon].
func (s *LocalStore) readBlock(latStart, nLat, lonStart, nLon int) ([][]float64, error) {
	fileLat := latStart
	if s.latFlip {
		fileLat = len(s.lat) - latStart - nLat
	}

	var start, count []uint64
	//nolint:gosec // G115: Safe int to uint64 conversion for NetCDF indices.
	switch s.order {
	case latLonOrder:
		start = []uint64{uint64(fileLat), uint64(lonStart)}
		count = []uint64{uint64(nLat), uint64(nLon)}
	case lonLatOrder:
		start = []uint64{uint64(lonStart), uint64(fileLat)}
		count = []uint64{uint64(nLon), uint64(nLat)}
	}
	flat, err := readSlice(s.data, start, count, nLat*nLon)
	if err != nil {
		return nil, err
	}
	for i := range flat {
		flat[i] = s.pack.apply(flat[i])
	}

	values := make([][]float64, nLat)
	for r := 0; r < nLat; r++ {
		values[r] = make([]float64, nLon)
		for c := 0; c < nLon; c++ {
			if s.order == latLonOrder {
				values[r][c] = flat[r*nLon+c]
			} else {
				values[r][c] = flat[c*nLat+r]
			}
		}
	}
	if s.latFlip {
		for a, b := 0, nLat-1; a < b; a, b = a+1, b-1 {
			values[a], values[b] = values[b], values[a]
		}
	}
	return values, nil
}

// Close releases the NetCDF handle.
func (s *LocalStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nc.Close()
}

// indexRange returns the indices of axis covering [lo, hi] with one extra
// node on each side, or false when the interval misses the axis entirely.
func indexRange(axis []float64, lo, hi float64) (int, int, bool) {
	n := len(axis)
	if hi < axis[0] || lo > axis[n-1] {
		return 0, 0, false
	}
	first := sort.SearchFloat64s(axis, lo) - 1
	last := sort.Search(n, func(k int) bool { return axis[k] > hi })
	first = clamp(first, 0, n-1)
	last = clamp(last, 0, n-1)
	if first == last {
		if last < n-1 {
			last++
		} else {
			first--
		}
	}
	return first, last, first >= 0
}

func strictlyIncreasing(v []float64) bool {
	for i := 1; i < len(v); i++ {
		if !(v[i] > v[i-1]) || math.IsNaN(v[i]) {
			return false
		}
	}
	return true
}

func reverse(v []float64) {
	for a, b := 0, len(v)-1; a < b; a, b = a+1, b-1 {
		v[a], v[b] = v[b], v[a]
	}
}

// clamp ensures value is within [minVal, maxVal] range.
func clamp(value, minVal, maxVal int) int {
	if value < minVal {
		return minVal
	}
	if value > maxVal {
		return maxVal
	}
	return value
}
