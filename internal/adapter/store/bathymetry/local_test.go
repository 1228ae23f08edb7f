package bathymetry

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/fhs/go-netcdf/netcdf"
	"github.com/golang/geo/r2"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// Helper to create a minimal GEBCO-like NetCDF file with the given elevation data.
func createElevationTestFile(t *testing.T, path string, latVals, lonVals []float64, values [][]float32, fill *float32) {
	t.Helper()
	//nolint:gosec // G301: Standard test directory permissions.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := netcdf.CreateFile(path, netcdf.CLOBBER)
	if err != nil {
		t.Fatalf("create nc: %v", err)
	}
	defer func() { _ = f.Close() }()

	latDim, _ := f.AddDim("lat", uint64(len(latVals)))
	lonDim, _ := f.AddDim("lon", uint64(len(lonVals)))
	vlat, _ := f.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	vlon, _ := f.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	velev, _ := f.AddVar("elevation", netcdf.FLOAT, []netcdf.Dim{latDim, lonDim})
	if fill != nil {
		if err := velev.Attr("_FillValue").WriteFloat32s([]float32{*fill}); err != nil {
			t.Fatalf("write fill: %v", err)
		}
	}

	if err := f.EndDef(); err != nil {
		t.Fatalf("enddef: %v", err)
	}
	if err := vlat.WriteFloat64s(latVals); err != nil {
		t.Fatalf("write lat: %v", err)
	}
	if err := vlon.WriteFloat64s(lonVals); err != nil {
		t.Fatalf("write lon: %v", err)
	}
	flat := make([]float32, 0, len(latVals)*len(lonVals))
	for i := range values {
		flat = append(flat, values[i]...)
	}
	if err := velev.WriteFloat32s(flat); err != nil {
		t.Fatalf("write elevation: %v", err)
	}
}

func axis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestLocalStoreWindowSubsetsAroundBbox(t *testing.T) {
	latVals := axis(0, 1, 11)
	lonVals := axis(0, 1, 11)
	values := make([][]float32, len(latVals))
	for i := range values {
		values[i] = make([]float32, len(lonVals))
		for j := range values[i] {
			values[i][j] = float32(-100*i - j) // Negative depths (below sea level)
		}
	}
	dir := t.TempDir()
	createElevationTestFile(t, filepath.Join(dir, "GEBCO_2024.nc"), latVals, lonVals, values, nil)

	store, err := OpenLocal(dir, domain.RefGEBCO)
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	defer func() { _ = store.Close() }()

	grid, err := store.Window(r2.RectFromPoints(r2.Point{X: 3.5, Y: 4.2}, r2.Point{X: 5.5, Y: 6}))
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if grid.X[0] != 3 || grid.X[len(grid.X)-1] != 6 {
		t.Fatalf("unexpected lon range %v", grid.X)
	}
	if grid.Y[0] != 4 || grid.Y[len(grid.Y)-1] != 7 {
		t.Fatalf("unexpected lat range %v", grid.Y)
	}
	v, err := grid.InterpolateAt(5, 6)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if v != -605 {
		t.Fatalf("expected -605 at (5, 6), got %v", v)
	}
}

func TestLocalStoreStitchesAntimeridian(t *testing.T) {
	latVals := []float64{-1, 0, 1}
	lonVals := axis(-180, 10, 37) // -180..180 inclusive.
	values := make([][]float32, len(latVals))
	for i := range values {
		values[i] = make([]float32, len(lonVals))
		for j := range values[i] {
			values[i][j] = float32(-lonVals[j] - 1000)
		}
	}
	dir := t.TempDir()
	createElevationTestFile(t, filepath.Join(dir, "gebco.nc"), latVals, lonVals, values, nil)

	store, err := OpenLocal(dir, domain.RefGEBCO)
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	defer func() { _ = store.Close() }()

	grid, err := store.Window(r2.RectFromPoints(r2.Point{X: 165, Y: -0.5}, r2.Point{X: 195, Y: 0.5}))
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	want := []float64{160, 170, 180, 190, 200}
	if len(grid.X) != len(want) {
		t.Fatalf("expected lon axis %v, got %v", want, grid.X)
	}
	for i := range want {
		if math.Abs(grid.X[i]-want[i]) > 1e-9 {
			t.Fatalf("expected lon axis %v, got %v", want, grid.X)
		}
	}
	// 190 in the request frame is -170 in the file.
	v, err := grid.InterpolateAt(190, 0)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if v != -830 {
		t.Fatalf("expected -830 at 190E, got %v", v)
	}
}

func TestLocalStoreHandles360Axis(t *testing.T) {
	latVals := []float64{30, 31, 32}
	lonVals := []float64{230, 231, 232, 233}
	values := [][]float32{
		{-100, -101, -102, -103},
		{-110, -111, -112, -113},
		{-120, -121, -122, -123},
	}
	dir := t.TempDir()
	createElevationTestFile(t, filepath.Join(dir, "etopo2_wrap.nc"), latVals, lonVals, values, nil)

	store, err := OpenLocal(dir, domain.RefETOPO2)
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	defer func() { _ = store.Close() }()

	grid, err := store.Window(r2.RectFromPoints(r2.Point{X: -129, Y: 30.5}, r2.Point{X: -128, Y: 31.5}))
	if err != nil {
		t.Fatalf("Window wrapped lon: %v", err)
	}
	v, err := grid.InterpolateAt(-129, 31)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	if v != -111 {
		t.Fatalf("expected -111, got %v", v)
	}
}

func TestLocalStoreFlipsDescendingLatitude(t *testing.T) {
	latVals := []float64{2, 1, 0}
	lonVals := []float64{10, 11}
	values := [][]float32{
		{-2, -2},
		{-1, -1},
		{0, 0},
	}
	dir := t.TempDir()
	createElevationTestFile(t, filepath.Join(dir, "ETOPO1_Bed.nc"), latVals, lonVals, values, nil)

	store, err := OpenLocal(dir, domain.RefETOPO1)
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	defer func() { _ = store.Close() }()

	grid, err := store.Window(r2.RectFromPoints(r2.Point{X: 10, Y: 0}, r2.Point{X: 11, Y: 2}))
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if grid.Y[0] != 0 || grid.Values[0][0] != 0 || grid.Values[2][0] != -2 {
		t.Fatalf("latitude not flipped: Y=%v values=%v", grid.Y, grid.Values)
	}
}

func TestLocalStoreFillValueBecomesNaN(t *testing.T) {
	fill := float32(-32767)
	dir := t.TempDir()
	createElevationTestFile(t, filepath.Join(dir, "gebco.nc"), []float64{0, 1}, []float64{0, 1},
		[][]float32{{-10, fill}, {-10, -10}}, &fill)

	store, err := OpenLocal(dir, domain.RefGEBCO)
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	defer func() { _ = store.Close() }()

	grid, err := store.Window(r2.RectFromPoints(r2.Point{X: 0, Y: 0}, r2.Point{X: 1, Y: 1}))
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	if !math.IsNaN(grid.Values[0][1]) {
		t.Fatalf("expected NaN for fill value, got %v", grid.Values[0][1])
	}
}

func TestLocalStoreMissingProduct(t *testing.T) {
	dir := t.TempDir()
	_, err := OpenLocal(dir, domain.RefETOPO1)
	if !errors.Is(err, domain.ErrRefDataMissing) {
		t.Fatalf("expected ErrRefDataMissing, got %v", err)
	}

	_, err = OpenLocal(filepath.Join(dir, "absent"), domain.RefGEBCO)
	if !errors.Is(err, domain.ErrRefDataMissing) {
		t.Fatalf("expected ErrRefDataMissing for absent dir, got %v", err)
	}

	// A file with the right name but no NetCDF content is unreadable.
	if err := os.WriteFile(filepath.Join(dir, "gebco_broken.nc"), []byte("not netcdf"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err = OpenLocal(dir, domain.RefGEBCO)
	if !errors.Is(err, domain.ErrRefDataMissing) {
		t.Fatalf("expected ErrRefDataMissing for broken file, got %v", err)
	}
}

func TestLocalStoreWindowOutsideCoverage(t *testing.T) {
	dir := t.TempDir()
	createElevationTestFile(t, filepath.Join(dir, "gebco.nc"), []float64{0, 1}, []float64{0, 1},
		[][]float32{{-1, -1}, {-1, -1}}, nil)

	store, err := OpenLocal(dir, domain.RefGEBCO)
	if err != nil {
		t.Fatalf("OpenLocal: %v", err)
	}
	defer func() { _ = store.Close() }()

	_, err = store.Window(r2.RectFromPoints(r2.Point{X: 50, Y: 50}, r2.Point{X: 51, Y: 51}))
	if !errors.Is(err, domain.ErrBboxEmpty) {
		t.Fatalf("expected ErrBboxEmpty, got %v", err)
	}
}

func TestWriteNetCDFRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gebco_synthetic.nc")
	lat := axis(10, 0.5, 5)
	lon := axis(20, 0.5, 4)
	elev := make([]float32, len(lat)*len(lon))
	for k := range elev {
		elev[k] = float32(-10 * k)
	}
	if err := WriteNetCDF(path, lat, lon, elev); err != nil {
		t.Fatalf("WriteNetCDF: %v", err)
	}

	store, err := OpenFile(path)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer func() { _ = store.Close() }()

	grid, err := store.Window(r2.RectFromPoints(r2.Point{X: 20, Y: 10}, r2.Point{X: 21.5, Y: 12}))
	if err != nil {
		t.Fatalf("Window: %v", err)
	}
	v, err := grid.InterpolateAt(21, 11)
	if err != nil {
		t.Fatalf("InterpolateAt: %v", err)
	}
	// Row 2, column 2.
	if v != -100 {
		t.Errorf("elevation at (21, 11) = %v, want -100", v)
	}

	if err := WriteNetCDF(path, lat, lon, elev[:3]); err == nil {
		t.Error("expected shape error")
	}
}
