package coastline

import (
	"github.com/golang/geo/r2"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// Store provides windowed access to a GSHHG shoreline database.
type Store interface {
	// Window returns the rings intersecting bbox, translated into bbox's
	// longitude frame.
	Window(bbox r2.Rect) (*domain.Shoreline, error)

	// Close releases any resources held by the store.
	Close() error
}

// Opener opens the shoreline of the given precision under refDir, closing
// Antarctica with the selected shoreline.
type Opener func(refDir string, boundary domain.Boundary, antarctic domain.Antarctic) (Store, error)

// MaxLevel is the deepest nested GSHHG level: 1 land, 2 lake, 3 island in
// lake, 4 pond in island. Levels 5 and 6 are the Antarctic ice front and
// grounding line; one of them is loaded as outer land, like level 1.
const MaxLevel = 4
