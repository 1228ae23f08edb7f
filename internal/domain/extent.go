package domain

import "fmt"

// Extent is a rectilinear grid description: bbox plus cell size, in degrees.
type Extent struct {
	LonW float64 `json:"lon_w"`
	LonE float64 `json:"lon_e"`
	LatS float64 `json:"lat_s"`
	LatN float64 `json:"lat_n"`
	DX   float64 `json:"dx"`
	DY   float64 `json:"dy"`
}

// Center returns the bbox center.
func (e Extent) Center() (lon, lat float64) {
	return (e.LonW + e.LonE) / 2, (e.LatS + e.LatN) / 2
}

// ScaleToInner returns the central sub-rectangle of outer whose half-extents
// and cell sizes are divided by n. The center is preserved.
func ScaleToInner(outer Extent, n float64) (Extent, error) {
	if err := checkScale(outer, n); err != nil {
		return Extent{}, err
	}
	return rescale(outer, func(v float64) float64 { return v / n }), nil
}

// ScaleToOuter is the inverse of ScaleToInner: half-extents and cell sizes
// are multiplied by n around the same center.
func ScaleToOuter(inner Extent, n float64) (Extent, error) {
	if err := checkScale(inner, n); err != nil {
		return Extent{}, err
	}
	return rescale(inner, func(v float64) float64 { return v * n }), nil
}

// rescale applies scale to the half-extents and cell sizes of e.
func rescale(e Extent, scale func(float64) float64) Extent {
	lonC := (e.LonW + e.LonE) / 2
	latC := (e.LatS + e.LatN) / 2
	halfW := scale((e.LonE - e.LonW) / 2)
	halfH := scale((e.LatN - e.LatS) / 2)
	return Extent{
		LonW: lonC - halfW,
		LonE: lonC + halfW,
		LatS: latC - halfH,
		LatN: latC + halfH,
		DX:   scale(e.DX),
		DY:   scale(e.DY),
	}
}

func checkScale(e Extent, n float64) error {
	if !(n > 1) {
		return fmt.Errorf("%w: nesting scale must be > 1, got %g", ErrInvalidRequest, n)
	}
	if !(e.DX > 0) || !(e.DY > 0) || !(e.LonW < e.LonE) || !(e.LatS < e.LatN) {
		return fmt.Errorf("%w: invalid extent %+v", ErrInvalidRequest, e)
	}
	return nil
}
