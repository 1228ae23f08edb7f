package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy of the grid core. Adapters wrap these with context; callers
// match them with errors.Is.
var (
	// ErrInvalidRequest is returned when a GridRequest fails canonicalization.
	ErrInvalidRequest = errors.New("invalid grid request")

	// ErrRefDataMissing is returned when the selected reference product is absent or unreadable.
	ErrRefDataMissing = errors.New("reference data missing")

	// ErrBboxEmpty is returned when a reference window contains no cells.
	ErrBboxEmpty = errors.New("bounding box window is empty")

	// ErrResampleFailed is returned when too many cells have no reference data.
	ErrResampleFailed = errors.New("resample failed")

	// ErrGridTruncated is matched by *GridTruncatedError.
	ErrGridTruncated = errors.New("grid truncated")

	// ErrCacheCorrupt is returned when a cache entry lacks one of its artifacts.
	ErrCacheCorrupt = errors.New("cache entry corrupt")
)

// GridTruncatedError reports an artifact that does not have the shape declared in grid.meta.
type GridTruncatedError struct {
	File         string
	ActualRows   int
	ExpectedRows int

	// Row is the first row with a wrong column count, or -1 when only the row count is short.
	Row          int
	ActualCols   int
	ExpectedCols int
}

func (e *GridTruncatedError) Error() string {
	if e.Row >= 0 {
		return fmt.Sprintf("grid truncated: %s row %d has %d columns, expected %d (file likely observed mid-flush)",
			e.File, e.Row, e.ActualCols, e.ExpectedCols)
	}
	return fmt.Sprintf("grid truncated: %s has %d rows, expected %d (file likely observed mid-flush)",
		e.File, e.ActualRows, e.ExpectedRows)
}

// Is reports whether target is ErrGridTruncated.
func (e *GridTruncatedError) Is(target error) bool {
	return target == ErrGridTruncated
}
