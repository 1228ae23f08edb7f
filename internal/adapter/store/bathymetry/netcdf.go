package bathymetry

import (
	"fmt"
	"math"

	"github.com/fhs/go-netcdf/netcdf"
)

// Variable name candidates, tried in order. GEBCO uses lat/lon/elevation,
// the ETOPO GMT grids use x/y/z.
var (
	latNames  = []string{"lat", "latitude", "y"}
	lonNames  = []string{"lon", "longitude", "x"}
	dataNames = []string{"elevation", "z", "Band1", "data"}
)

// packing describes how stored values map to meters.
type packing struct {
	scale, offset float64
	fill          []float64
}

func (p packing) apply(raw float64) float64 {
	if math.IsNaN(raw) {
		return raw
	}
	for _, f := range p.fill {
		if raw == f {
			return math.NaN()
		}
	}
	return raw*p.scale + p.offset
}

func readPacking(v netcdf.Var) packing {
	p := packing{scale: 1}
	if s, ok := readScalarAttr(v, "scale_factor"); ok && s != 0 {
		p.scale = s
	}
	if o, ok := readScalarAttr(v, "add_offset"); ok {
		p.offset = o
	}
	for _, name := range []string{"_FillValue", "missing_value"} {
		if f, ok := readScalarAttr(v, name); ok {
			p.fill = append(p.fill, f)
		}
	}
	return p
}

// readScalarAttr returns a numeric attribute as float64 if present.
func readScalarAttr(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	if a == (netcdf.Attr{}) {
		return 0, false
	}
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	// Try float64
	buf64 := make([]float64, n)
	if err := a.ReadFloat64s(buf64); err == nil {
		return buf64[0], true
	}
	// Try float32
	buf32 := make([]float32, n)
	if err := a.ReadFloat32s(buf32); err == nil {
		return float64(buf32[0]), true
	}
	// Try int32
	bufi := make([]int32, n)
	if err := a.ReadInt32s(bufi); err == nil {
		return float64(bufi[0]), true
	}
	// Try int16
	bufs := make([]int16, n)
	if err := a.ReadInt16s(bufs); err == nil {
		return float64(bufs[0]), true
	}
	return 0, false
}

// findVar returns the first variable found among names.
func findVar(nc netcdf.Dataset, names []string) (netcdf.Var, string, error) {
	for _, name := range names {
		if v, err := nc.Var(name); err == nil {
			return v, name, nil
		}
	}
	return netcdf.Var{}, "", fmt.Errorf("variable not found (tried: %v)", names)
}

// readAxis reads a 1D coordinate variable as float64.
func readAxis(v netcdf.Var) ([]float64, error) {
	dims, err := v.Dims()
	if err != nil {
		return nil, fmt.Errorf("failed to get dimensions: %w", err)
	}
	if len(dims) != 1 {
		return nil, fmt.Errorf("expected 1D variable, got %dD", len(dims))
	}
	length, err := dims[0].Len()
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G115: NetCDF axis lengths fit in int.
	out, err := readSlice(v, []uint64{0}, []uint64{length}, int(length))
	if err != nil {
		return nil, err
	}
	p := readPacking(v)
	p.fill = nil
	for i := range out {
		out[i] = p.apply(out[i])
	}
	return out, nil
}

// readSlice reads a hyperslab of any supported numeric type as float64.
func readSlice(v netcdf.Var, start, count []uint64, total int) ([]float64, error) {
	varType, err := v.Type()
	if err != nil {
		return nil, fmt.Errorf("failed to get variable type: %w", err)
	}

	out := make([]float64, total)
	switch varType {
	case netcdf.DOUBLE:
		if err := v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float64 subset: %w", err)
		}
	case netcdf.FLOAT:
		buf := make([]float32, total)
		if err := v.ReadFloat32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read float32 subset: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.INT:
		buf := make([]int32, total)
		if err := v.ReadInt32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int32 subset: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.SHORT:
		buf := make([]int16, total)
		if err := v.ReadInt16Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("failed to read int16 subset: %w", err)
		}
		for i, val := range buf {
			out[i] = float64(val)
		}
	case netcdf.BYTE, netcdf.UBYTE, netcdf.CHAR, netcdf.USHORT, netcdf.UINT, netcdf.INT64, netcdf.UINT64, netcdf.STRING:
		return nil, fmt.Errorf("unsupported data type: %v (expected DOUBLE, FLOAT, INT, or SHORT)", varType)
	default:
		return nil, fmt.Errorf("unsupported data type: %v", varType)
	}
	return out, nil
}
