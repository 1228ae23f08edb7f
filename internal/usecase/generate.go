// Package usecase runs grid generation end to end: cache lookup, reference
// loading, the three layer builders, writing, validation and publishing.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.ngs.io/ww3-gridprep/internal/adapter/cache"
	"go.ngs.io/ww3-gridprep/internal/adapter/store/bathymetry"
	"go.ngs.io/ww3-gridprep/internal/adapter/store/coastline"
	"go.ngs.io/ww3-gridprep/internal/adapter/ww3"
	"go.ngs.io/ww3-gridprep/internal/builder"
	"go.ngs.io/ww3-gridprep/internal/domain"
)

// Config configures a GridUseCase.
type Config struct {
	// CacheDir is the cache root. Empty disables caching.
	CacheDir string

	// Subgrid is the obstruction K used when a request leaves it at zero.
	Subgrid int

	// MaxMissingFraction is the share of cells without reference data
	// tolerated before resampling fails. Zero selects 0.5.
	MaxMissingFraction float64

	// ValidateRetries and ValidateDelay tune the post-write validator.
	ValidateRetries int
	ValidateDelay   time.Duration
}

// GenerateResult describes a produced grid.
type GenerateResult struct {
	Paths    domain.ArtifactPaths `json:"paths"`
	Key      string               `json:"key"`
	CacheHit bool                 `json:"cache_hit"`
	Nx       int                  `json:"nx"`
	Ny       int                  `json:"ny"`
}

// GridUseCase produces WW3 grid inputs.
type GridUseCase struct {
	cfg            Config
	cache          *cache.Cache
	validator      *ww3.Validator
	openBathymetry bathymetry.Opener
	openCoastline  coastline.Opener
	logger         *slog.Logger
}

// NewGridUseCase creates a use case reading reference data from local files.
func NewGridUseCase(cfg Config, logger *slog.Logger) (*GridUseCase, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxMissingFraction <= 0 {
		cfg.MaxMissingFraction = builder.DefaultMaxMissingFraction
	}
	uc := &GridUseCase{
		cfg:            cfg,
		validator:      ww3.NewValidator(cfg.ValidateRetries, cfg.ValidateDelay, logger),
		openBathymetry: bathymetry.OpenLocal,
		openCoastline:  coastline.OpenLocal,
		logger:         logger,
	}
	if cfg.CacheDir != "" {
		c, err := cache.Open(cfg.CacheDir, logger)
		if err != nil {
			return nil, err
		}
		uc.cache = c
	}
	return uc, nil
}

// WithOpeners replaces the reference-data openers.
func (uc *GridUseCase) WithOpeners(b bathymetry.Opener, c coastline.Opener) *GridUseCase {
	uc.openBathymetry = b
	uc.openCoastline = c
	return uc
}

// Cache returns the grid cache, or nil when caching is disabled.
func (uc *GridUseCase) Cache() *cache.Cache {
	return uc.cache
}

// Close releases the cache catalog.
func (uc *GridUseCase) Close() error {
	if uc.cache == nil {
		return nil
	}
	return uc.cache.Close()
}

// Normalize fills defaults that take part in the cache key.
func (uc *GridUseCase) Normalize(req domain.GridRequest) domain.GridRequest {
	if req.Subgrid == 0 && uc.cfg.Subgrid > 0 {
		req.Subgrid = uc.cfg.Subgrid
	}
	return req
}

// GenerateGrid writes the four artifacts of req into outDir. A cached grid is
// copied without regeneration. Cancellation is honoured between stages.
func (uc *GridUseCase) GenerateGrid(ctx context.Context, req domain.GridRequest, outDir string) (*GenerateResult, error) {
	req = uc.Normalize(req)
	params, err := req.Canonical()
	if err != nil {
		return nil, err
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	g, err := domain.NewGeometry(req.Extent())
	if err != nil {
		return nil, err
	}
	result := &GenerateResult{Key: key, Nx: g.Nx, Ny: g.Ny}
	log := uc.logger.With("key", key[:12])

	if uc.cache != nil {
		paths, hit, err := uc.cache.Restore(ctx, key, outDir)
		switch {
		case errors.Is(err, domain.ErrCacheCorrupt):
			log.Warn("cache entry corrupt, regenerating", "error", err)
		case err != nil:
			return nil, err
		case hit:
			log.Info("grid served from cache", "out", outDir)
			result.Paths, result.CacheHit = paths, true
			return result, nil
		}
	}

	workDir := outDir
	if uc.cache != nil {
		if workDir, err = uc.cache.Stage(key); err != nil {
			return nil, err
		}
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	started := time.Now()
	if err := uc.build(ctx, log, req, key, g, workDir); err != nil {
		uc.discard(workDir)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		uc.discard(workDir)
		return nil, err
	}

	if _, err := uc.validator.Validate(ctx, workDir); err != nil {
		if uc.cache != nil {
			if _, cpErr := cache.CopyArtifacts(workDir, outDir); cpErr != nil {
				log.Warn("failed to copy rejected grid for inspection", "error", cpErr)
			}
			uc.discard(workDir)
		}
		return nil, err
	}

	if uc.cache == nil {
		result.Paths = domain.PathsIn(outDir)
	} else {
		entry, err := uc.cache.Publish(ctx, key, workDir, params)
		if err != nil {
			uc.discard(workDir)
			return nil, err
		}
		if result.Paths, err = cache.CopyArtifacts(entry, outDir); err != nil {
			return nil, err
		}
	}
	log.Info("grid generated", "nx", g.Nx, "ny", g.Ny, "out", outDir, "elapsed", time.Since(started))
	return result, nil
}

func (uc *GridUseCase) build(ctx context.Context, log *slog.Logger, req domain.GridRequest, key string, g *domain.Geometry, dir string) error {
	window := g.Bounds().ExpandedByMargin(req.Halo())

	bstore, err := uc.openBathymetry(req.RefDir, req.RefGrid)
	if err != nil {
		return err
	}
	defer func() { _ = bstore.Close() }()
	ref, err := bstore.Window(window)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	cstore, err := uc.openCoastline(req.RefDir, req.Boundary, req.AntarcticShore())
	if err != nil {
		return err
	}
	defer func() { _ = cstore.Close() }()
	shore, err := cstore.Window(window)
	if err != nil {
		return err
	}
	log.Debug("reference data loaded", "ref_x", len(ref.X), "ref_y", len(ref.Y), "rings", shore.Len())
	if err := ctx.Err(); err != nil {
		return err
	}

	a := domain.NewArtifact(g)
	bathy, err := builder.Resample(a, ref, uc.cfg.MaxMissingFraction)
	if err != nil {
		return err
	}
	if bathy.Filled > 0 || bathy.Missing > 0 {
		log.Info("reference gaps", "filled", bathy.Filled, "missing", bathy.Missing)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	builder.BuildMask(a, shore, bathy, req.MaskOverride)
	if err := ctx.Err(); err != nil {
		return err
	}

	builder.BuildObstruction(a, shore, req.SubgridSize())
	if err := a.CheckConsistency(builder.Overridden(req.MaskOverride)); err != nil {
		return fmt.Errorf("inconsistent grid layers: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := ww3.Write(dir, a, ww3.Header{Key: key, Request: req}); err != nil {
		return err
	}
	return nil
}

func (uc *GridUseCase) discard(workDir string) {
	if uc.cache != nil {
		uc.cache.Discard(workDir)
	}
}
