package bathymetry

import (
	"github.com/golang/geo/r2"

	"go.ngs.io/ww3-gridprep/internal/adapter/interp"
	"go.ngs.io/ww3-gridprep/internal/domain"
)

// Store provides windowed access to a reference bathymetry product.
type Store interface {
	// Window returns reference elevations (meters, positive up) covering bbox,
	// expressed in bbox's longitude frame. Missing values are NaN.
	Window(bbox r2.Rect) (*interp.Grid2D, error)

	// Close releases any resources held by the store.
	Close() error
}

// Opener opens the product selected by grid under refDir.
type Opener func(refDir string, grid domain.RefGrid) (Store, error)
