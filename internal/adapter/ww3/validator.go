package ww3

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// Validator defaults.
const (
	DefaultRetries = 3
	DefaultDelay   = 250 * time.Millisecond
)

// Validator re-reads written artifacts and checks them against the shape
// declared in grid.meta. It never modifies files.
type Validator struct {
	retries int
	delay   time.Duration
	logger  *slog.Logger
}

// NewValidator creates a validator that retries a failed check up to retries
// times, sleeping delay before each retry. Zero values select the defaults.
func NewValidator(retries int, delay time.Duration, logger *slog.Logger) *Validator {
	if retries <= 0 {
		retries = DefaultRetries
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{retries: retries, delay: delay, logger: logger}
}

// Validate checks grid.bot, then grid.mask and grid.obst, in dir. A shape
// mismatch is treated as a file observed mid-flush and retried; after the
// last retry it fails with a *domain.GridTruncatedError.
func (v *Validator) Validate(ctx context.Context, dir string) (*Meta, error) {
	var lastErr error
	for attempt := 0; attempt <= v.retries; attempt++ {
		if attempt > 0 {
			v.logger.Warn("grid files incomplete, retrying",
				"dir", dir, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(v.delay):
			}
		}
		meta, err := check(dir)
		if err == nil {
			return meta, nil
		}
		lastErr = err
	}

	var truncated *domain.GridTruncatedError
	if errors.As(lastErr, &truncated) {
		return nil, truncated
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrGridTruncated, lastErr)
}

func check(dir string) (*Meta, error) {
	paths := domain.PathsIn(dir)
	//nolint:gosec // G304: Path is built from the output directory and a fixed artifact name.
	f, err := os.Open(paths.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to open meta: %w", err)
	}
	meta, err := ParseMeta(f)
	_ = f.Close()
	if err != nil {
		return nil, err
	}

	if err := checkBlocks(paths.Bot, meta.Nx, meta.Ny, 1); err != nil {
		return nil, err
	}
	if err := checkBlocks(paths.Mask, meta.Nx, meta.Ny, 1); err != nil {
		return nil, err
	}
	if err := checkBlocks(paths.Obst, meta.Nx, meta.Ny, 2); err != nil {
		return nil, err
	}
	return meta, nil
}

// checkBlocks expects the file to hold the given number of blocks, each of ny
// non-empty rows of nx integers, separated by blank lines.
func checkBlocks(path string, nx, ny, blocks int) error {
	name := filepath.Base(path)
	//nolint:gosec // G304: Path is built from the output directory and a fixed artifact name.
	f, err := os.Open(path)
	if err != nil {
		return &domain.GridTruncatedError{File: name, ExpectedRows: blocks * ny, Row: -1}
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<26)
	rows, inBlock, found := 0, false, 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			inBlock = false
			continue
		}
		if !inBlock {
			found++
			inBlock = true
		}
		if cols := len(strings.Fields(line)); cols != nx {
			return &domain.GridTruncatedError{
				File: name, ActualRows: rows, ExpectedRows: blocks * ny,
				Row: rows, ActualCols: cols, ExpectedCols: nx,
			}
		}
		rows++
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if rows != blocks*ny || (blocks > 1 && found != blocks) {
		return &domain.GridTruncatedError{File: name, ActualRows: rows, ExpectedRows: blocks * ny, Row: -1}
	}
	return nil
}
