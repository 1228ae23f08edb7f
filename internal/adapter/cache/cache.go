// Package cache stores finished grids in directories named by their request
// key. Entries are staged in private temp directories and published with a
// single rename, so readers only ever see complete entries.
package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.ngs.io/ww3-gridprep/internal/domain"
)

// tempPrefix marks staging directories in the cache root.
const tempPrefix = ".tmp-"

// DefaultStaleAge is the age after which a staging directory is considered
// orphaned by a crashed writer.
const DefaultStaleAge = time.Hour

var keyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Cache is a directory of published grids.
type Cache struct {
	root    string
	catalog *Catalog
	logger  *slog.Logger
	now     func() time.Time
}

// Open prepares root for use. A catalog that cannot be opened is logged and
// left out; the cache works without it.
func Open(root string, logger *slog.Logger) (*Cache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache root: %w", err)
	}
	c := &Cache{root: root, logger: logger, now: time.Now}
	cat, err := OpenCatalog(filepath.Join(root, CatalogFile))
	if err != nil {
		logger.Warn("cache catalog unavailable", "root", root, "error", err)
	} else {
		c.catalog = cat
	}
	return c, nil
}

// Root returns the cache directory.
func (c *Cache) Root() string {
	return c.root
}

// Catalog returns the audit catalog, or nil when it could not be opened.
func (c *Cache) Catalog() *Catalog {
	return c.catalog
}

// EntryDir returns the directory of key.
func (c *Cache) EntryDir(key string) string {
	return filepath.Join(c.root, key)
}

// Restore copies the artifacts of key into outDir. It reports false when key
// is not cached. An entry missing one of its artifacts is removed and
// reported as domain.ErrCacheCorrupt.
func (c *Cache) Restore(ctx context.Context, key, outDir string) (domain.ArtifactPaths, bool, error) {
	dir := c.EntryDir(key)
	info, err := os.Stat(dir)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ArtifactPaths{}, false, nil
	}
	if err != nil {
		return domain.ArtifactPaths{}, false, fmt.Errorf("failed to stat cache entry: %w", err)
	}
	if !info.IsDir() {
		c.evict(ctx, key)
		return domain.ArtifactPaths{}, false, fmt.Errorf("%w: %s is not a directory", domain.ErrCacheCorrupt, key)
	}

	for _, name := range domain.ArtifactFiles {
		if fi, err := os.Stat(filepath.Join(dir, name)); err != nil || !fi.Mode().IsRegular() {
			c.evict(ctx, key)
			return domain.ArtifactPaths{}, false, fmt.Errorf("%w: %s lacks %s", domain.ErrCacheCorrupt, key, name)
		}
	}

	paths, err := CopyArtifacts(dir, outDir)
	if err != nil {
		return paths, false, err
	}
	if c.catalog != nil {
		if err := c.catalog.Hit(ctx, key, c.now()); err != nil {
			c.logger.Warn("cache catalog update failed", "key", key, "error", err)
		}
	}
	return paths, true, nil
}

// Stage creates a private staging directory for key. Stale staging
// directories of the same key are removed first.
func (c *Cache) Stage(key string) (string, error) {
	if _, err := c.sweep(tempPrefix+key+"-", DefaultStaleAge); err != nil {
		c.logger.Warn("failed to sweep stale staging directories", "key", key, "error", err)
	}
	dir, err := os.MkdirTemp(c.root, tempPrefix+key+"-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}
	return dir, nil
}

// Publish writes params.json into the validated staging directory and
// renames it to the entry of key. When another writer published key first,
// the staging directory is discarded and the existing entry is returned.
func (c *Cache) Publish(ctx context.Context, key, staged string, params []byte) (string, error) {
	if err := writeSynced(filepath.Join(staged, domain.ParamFile), params); err != nil {
		return "", err
	}

	final := c.EntryDir(key)
	if err := os.Rename(staged, final); err != nil {
		if fi, statErr := os.Stat(final); statErr == nil && fi.IsDir() {
			c.logger.Info("cache entry published concurrently, discarding ours", "key", key)
			c.Discard(staged)
			return final, nil
		}
		return "", fmt.Errorf("failed to publish cache entry: %w", err)
	}
	if c.catalog != nil {
		if err := c.catalog.Record(ctx, key, params, c.now()); err != nil {
			c.logger.Warn("cache catalog update failed", "key", key, "error", err)
		}
	}
	return final, nil
}

// Discard removes a staging directory.
func (c *Cache) Discard(staged string) {
	if err := os.RemoveAll(staged); err != nil {
		c.logger.Warn("failed to remove staging directory", "dir", staged, "error", err)
	}
}

// Sweep removes staging directories older than maxAge and returns how many
// were removed.
func (c *Cache) Sweep(maxAge time.Duration) (int, error) {
	return c.sweep(tempPrefix, maxAge)
}

// ArtifactPath returns the path of one file of a published entry.
func (c *Cache) ArtifactPath(key, name string) (string, error) {
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("%w: malformed cache key %q", domain.ErrInvalidRequest, key)
	}
	if name != domain.ParamFile && !contains(domain.ArtifactFiles, name) {
		return "", fmt.Errorf("%w: unknown artifact %q", domain.ErrInvalidRequest, name)
	}
	path := filepath.Join(c.EntryDir(key), name)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("cache entry %s: %w", key, err)
	}
	return path, nil
}

// Close releases the catalog.
func (c *Cache) Close() error {
	if c.catalog == nil {
		return nil
	}
	return c.catalog.Close()
}

func (c *Cache) evict(ctx context.Context, key string) {
	if err := os.RemoveAll(c.EntryDir(key)); err != nil {
		c.logger.Warn("failed to remove corrupt cache entry", "key", key, "error", err)
	}
	if c.catalog != nil {
		if err := c.catalog.Forget(ctx, key); err != nil {
			c.logger.Warn("cache catalog update failed", "key", key, "error", err)
		}
	}
}

func (c *Cache) sweep(prefix string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache root: %w", err)
	}
	cutoff := c.now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(c.root, e.Name())); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", e.Name(), err)
		}
		c.logger.Info("removed orphaned staging directory", "dir", e.Name(), "age", c.now().Sub(info.ModTime()))
		removed++
	}
	return removed, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	//nolint:gosec // G304: Source is an artifact inside the cache root.
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filepath.Base(src), err)
	}
	defer func() { _ = in.Close() }()

	//nolint:gosec // G304: Destination is an artifact inside the output directory.
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(dst), err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to copy %s: %w", filepath.Base(src), err)
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(dst), err)
	}
	return out.Close()
}

func writeSynced(path string, data []byte) error {
	//nolint:gosec // G304: Path is inside a staging directory.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to sync %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// CopyArtifacts copies the four artifacts from src into dst.
func CopyArtifacts(src, dst string) (domain.ArtifactPaths, error) {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return domain.ArtifactPaths{}, fmt.Errorf("failed to create output directory: %w", err)
	}
	for _, name := range domain.ArtifactFiles {
		if err := copyFile(filepath.Join(src, name), filepath.Join(dst, name)); err != nil {
			return domain.ArtifactPaths{}, err
		}
	}
	return domain.PathsIn(dst), nil
}
