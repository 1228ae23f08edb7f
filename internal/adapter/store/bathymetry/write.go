package bathymetry

import (
	"fmt"

	"github.com/fhs/go-netcdf/netcdf"
)

// WriteNetCDF writes a GEBCO-layout elevation file: lat and lon coordinate
// variables and an elevation(lat, lon) variable in meters, positive up.
// elevation is row-major with latitude as the slow axis.
func WriteNetCDF(path string, lat, lon []float64, elevation []float32) error {
	if len(elevation) != len(lat)*len(lon) {
		return fmt.Errorf("elevation has %d values, expected %d", len(elevation), len(lat)*len(lon))
	}

	ds, err := netcdf.CreateFile(path, netcdf.CLOBBER|netcdf.NETCDF4)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = ds.Close() }()

	latDim, err := ds.AddDim("lat", uint64(len(lat)))
	if err != nil {
		return err
	}
	lonDim, err := ds.AddDim("lon", uint64(len(lon)))
	if err != nil {
		return err
	}

	latVar, err := ds.AddVar("lat", netcdf.DOUBLE, []netcdf.Dim{latDim})
	if err != nil {
		return err
	}
	lonVar, err := ds.AddVar("lon", netcdf.DOUBLE, []netcdf.Dim{lonDim})
	if err != nil {
		return err
	}
	elevVar, err := ds.AddVar("elevation", netcdf.FLOAT, []netcdf.Dim{latDim, lonDim})
	if err != nil {
		return err
	}
	units := []struct {
		v    netcdf.Var
		unit string
	}{{latVar, "degrees_north"}, {lonVar, "degrees_east"}, {elevVar, "m"}}
	for _, u := range units {
		if err := u.v.Attr("units").WriteBytes([]byte(u.unit)); err != nil {
			return fmt.Errorf("failed to write units: %w", err)
		}
	}

	if err := ds.EndDef(); err != nil {
		return fmt.Errorf("failed to leave define mode: %w", err)
	}
	if err := latVar.WriteFloat64s(lat); err != nil {
		return fmt.Errorf("failed to write lat: %w", err)
	}
	if err := lonVar.WriteFloat64s(lon); err != nil {
		return fmt.Errorf("failed to write lon: %w", err)
	}
	if err := elevVar.WriteFloat32s(elevation); err != nil {
		return fmt.Errorf("failed to write elevation: %w", err)
	}
	return nil
}
