package usecase

import (
	"fmt"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// NestDirection selects which grid of a nested pair is derived.
type NestDirection string

// Nesting directions.
const (
	NestInner NestDirection = "inner"
	NestOuter NestDirection = "outer"
)

// Nest derives the inner grid of e (or the outer grid, for NestOuter) at scale n.
func Nest(e domain.Extent, n float64, dir NestDirection) (domain.Extent, error) {
	switch dir {
	case NestInner:
		return domain.ScaleToInner(e, n)
	case NestOuter:
		return domain.ScaleToOuter(e, n)
	}
	return domain.Extent{}, fmt.Errorf("%w: nesting direction must be %q or %q, got %q",
		domain.ErrInvalidRequest, NestInner, NestOuter, dir)
}

// NestedRequest returns req moved onto its nested extent. The mask override
// is dropped because it no longer matches the grid shape.
func NestedRequest(req domain.GridRequest, n float64, dir NestDirection) (domain.GridRequest, error) {
	e, err := Nest(req.Extent(), n, dir)
	if err != nil {
		return domain.GridRequest{}, err
	}
	req.LonW, req.LonE, req.LatS, req.LatN = e.LonW, e.LonE, e.LatS, e.LatN
	req.DX, req.DY = e.DX, e.DY
	req.MaskOverride = nil
	return req, nil
}
