package builder

import "go.ngs.io/ww3-gridprep/internal/domain"

// BuildMask classifies each cell. A cell is water when its center is outside
// the shoreline (even-odd over all loaded rings) and its depth is below sea
// level; everything else, unresolved cells included, is land. Non-negative
// override entries then replace the computed value.
func BuildMask(a *domain.Artifact, shore *domain.Shoreline, bathy *Bathymetry, override [][]int8) {
	g := a.Geometry
	for j, lat := range g.Lat1D {
		for i, lon := range g.Lon1D {
			m := domain.MaskLand
			if a.Depth[j][i] < 0 && !bathy.IsMissing(i, j) && !shore.IsLand(lon, lat) {
				m = domain.MaskWater
			}
			a.Mask[j][i] = m
		}
	}
	for j, row := range override {
		for i, v := range row {
			if v >= 0 {
				a.Mask[j][i] = uint8(v)
			}
		}
	}
}

// Overridden reports the cells an override mask sets explicitly.
func Overridden(override [][]int8) func(i, j int) bool {
	return func(i, j int) bool {
		return j < len(override) && i < len(override[j]) && override[j][i] >= 0
	}
}
