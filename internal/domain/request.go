// Package domain contains the grid-preparation model: requests, geometry,
// nesting, artifacts and shoreline classification.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

// Fixed quantization factors of the WW3 artifacts.
const (
	DepthScale = 1000 // Depths are written as meters × DepthScale.
	ObstrScale = 100  // Obstruction fractions are written as fraction × ObstrScale.

	// DefaultSubgrid is the K of the K×K obstruction subsampling.
	DefaultSubgrid = 20

	// canonicalDigits is the number of fractional digits used for floats in cache keys.
	canonicalDigits = 10
)

// RefGrid selects the reference bathymetry product.
type RefGrid string

// Supported reference bathymetry products.
const (
	RefGEBCO  RefGrid = "gebco"
	RefETOPO1 RefGrid = "etopo1"
	RefETOPO2 RefGrid = "etopo2"
)

// Valid reports whether g names a supported product.
func (g RefGrid) Valid() bool {
	switch g {
	case RefGEBCO, RefETOPO1, RefETOPO2:
		return true
	}
	return false
}

// Boundary selects the GSHHG coastline precision.
type Boundary string

// GSHHG precisions, finest first.
const (
	BoundaryFull  Boundary = "full"
	BoundaryHigh  Boundary = "high"
	BoundaryInter Boundary = "inter"
	BoundaryLow   Boundary = "low"
)

// Valid reports whether b names a GSHHG precision.
func (b Boundary) Valid() bool {
	switch b {
	case BoundaryFull, BoundaryHigh, BoundaryInter, BoundaryLow:
		return true
	}
	return false
}

// Letter returns the single-letter code GSHHG uses in file names (f, h, i, l).
func (b Boundary) Letter() string {
	if !b.Valid() {
		return ""
	}
	return string(b[0])
}

// Antarctic selects which GSHHG Antarctic shoreline closes the continent:
// the ice front (level 5) or the grounding line (level 6). The two are
// alternatives and are never loaded together.
type Antarctic string

// Antarctic shorelines.
const (
	AntarcticIceFront      Antarctic = "ice_front"
	AntarcticGroundingLine Antarctic = "grounding_line"
)

// Valid reports whether a names an Antarctic shoreline. Empty means AntarcticIceFront.
func (a Antarctic) Valid() bool {
	switch a {
	case "", AntarcticIceFront, AntarcticGroundingLine:
		return true
	}
	return false
}

// Level returns the GSHHG level holding the shoreline.
func (a Antarctic) Level() int {
	if a == AntarcticGroundingLine {
		return 6
	}
	return 5
}

// GridRequest is the full parameter tuple of one grid generation.
// It is a plain value: build it, validate it, hash it, then leave it alone.
type GridRequest struct {
	DX       float64  `json:"dx"`
	DY       float64  `json:"dy"`
	LonW     float64  `json:"lon_w"`
	LonE     float64  `json:"lon_e"`
	LatS     float64  `json:"lat_s"`
	LatN     float64  `json:"lat_n"`
	RefGrid  RefGrid  `json:"ref_grid"`
	Boundary Boundary `json:"boundary"`
	RefDir   string   `json:"ref_dir"`

	// Antarctic picks the Antarctic shoreline. Empty means AntarcticIceFront.
	Antarctic Antarctic `json:"antarctic,omitempty"`

	// Subgrid is K for the obstruction builder. Zero means DefaultSubgrid.
	Subgrid int `json:"subgrid,omitempty"`

	// MaskOverride, when set, has the grid's shape (Ny rows of Nx). Negative
	// entries keep the computed value; 0..3 replace it.
	MaskOverride [][]int8 `json:"mask_override,omitempty"`
}

// SubgridSize returns the effective K.
func (r GridRequest) SubgridSize() int {
	if r.Subgrid == 0 {
		return DefaultSubgrid
	}
	return r.Subgrid
}

// AntarcticShore returns the effective Antarctic shoreline.
func (r GridRequest) AntarcticShore() Antarctic {
	if r.Antarctic == "" {
		return AntarcticIceFront
	}
	return r.Antarctic
}

// Halo is the margin added around the bbox when loading reference data.
func (r GridRequest) Halo() float64 {
	return 2 * math.Max(r.DX, r.DY)
}

// Extent returns the request's bbox and resolution.
func (r GridRequest) Extent() Extent {
	return Extent{LonW: r.LonW, LonE: r.LonE, LatS: r.LatS, LatN: r.LatN, DX: r.DX, DY: r.DY}
}

// Validate checks the request and returns an error wrapping ErrInvalidRequest.
func (r GridRequest) Validate() error {
	for name, v := range map[string]float64{
		"dx": r.DX, "dy": r.DY, "lon_w": r.LonW, "lon_e": r.LonE, "lat_s": r.LatS, "lat_n": r.LatN,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be finite", ErrInvalidRequest, name)
		}
	}
	if r.LatS < -90 || r.LatN > 90 {
		return fmt.Errorf("%w: latitude bounds must be within [-90, 90]", ErrInvalidRequest)
	}
	if r.LonW < -360 || r.LonE > 360 || r.LonE-r.LonW > 360 {
		return fmt.Errorf("%w: longitude bounds must span at most 360 degrees within [-360, 360]", ErrInvalidRequest)
	}
	if _, err := NewGeometry(r.Extent()); err != nil {
		return err
	}
	if !r.RefGrid.Valid() {
		return fmt.Errorf("%w: unknown ref_grid %q", ErrInvalidRequest, r.RefGrid)
	}
	if !r.Boundary.Valid() {
		return fmt.Errorf("%w: unknown boundary %q", ErrInvalidRequest, r.Boundary)
	}
	if !r.Antarctic.Valid() {
		return fmt.Errorf("%w: unknown antarctic shoreline %q", ErrInvalidRequest, r.Antarctic)
	}
	if r.RefDir == "" || !filepath.IsAbs(r.RefDir) {
		return fmt.Errorf("%w: ref_dir must be an absolute path, got %q", ErrInvalidRequest, r.RefDir)
	}
	if r.Subgrid < 0 || r.Subgrid > 1000 {
		return fmt.Errorf("%w: subgrid must be between 1 and 1000", ErrInvalidRequest)
	}
	if r.MaskOverride != nil {
		g, _ := NewGeometry(r.Extent())
		if len(r.MaskOverride) != g.Ny {
			return fmt.Errorf("%w: mask_override has %d rows, expected %d", ErrInvalidRequest, len(r.MaskOverride), g.Ny)
		}
		for j, row := range r.MaskOverride {
			if len(row) != g.Nx {
				return fmt.Errorf("%w: mask_override row %d has %d columns, expected %d", ErrInvalidRequest, j, len(row), g.Nx)
			}
			for _, v := range row {
				if v > 3 {
					return fmt.Errorf("%w: mask_override value %d out of range", ErrInvalidRequest, v)
				}
			}
		}
	}
	return nil
}

// Canonical returns the canonical JSON form used for cache keys: sorted keys,
// floats with ten fractional digits, a slash-separated ref_dir. Transient
// fields (output path, logger) are not part of a request and never appear.
func (r GridRequest) Canonical() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	fields := map[string]any{
		"antarctic":   string(r.AntarcticShore()),
		"boundary":    string(r.Boundary),
		"depth_scale": DepthScale,
		"dx":          canonicalNumber(r.DX),
		"dy":          canonicalNumber(r.DY),
		"lat_n":       canonicalNumber(r.LatN),
		"lat_s":       canonicalNumber(r.LatS),
		"lon_e":       canonicalNumber(r.LonE),
		"lon_w":       canonicalNumber(r.LonW),
		"obstr_scale": ObstrScale,
		"ref_dir":     filepath.ToSlash(filepath.Clean(r.RefDir)),
		"ref_grid":    string(r.RefGrid),
		"subgrid":     r.SubgridSize(),
	}
	if r.MaskOverride != nil {
		fields["mask_override"] = overrideDigest(r.MaskOverride)
	}
	// encoding/json sorts map keys.
	return json.Marshal(fields)
}

// Key returns the 64-hex SHA-256 of the canonical form.
func (r GridRequest) Key() (string, error) {
	canon, err := r.Canonical()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canon)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalNumber(v float64) json.Number {
	s := strconv.FormatFloat(v, 'f', canonicalDigits, 64)
	if strings.TrimLeft(s, "-0.") == "" {
		s = strings.TrimPrefix(s, "-")
	}
	return json.Number(s)
}

func overrideDigest(m [][]int8) string {
	h := sha256.New()
	for _, row := range m {
		buf := make([]byte, len(row)+1)
		for i, v := range row {
			buf[i] = byte(v)
		}
		buf[len(row)] = '\n'
		h.Write(buf)
	}
	return hex.EncodeToString(h.Sum(nil))
}
