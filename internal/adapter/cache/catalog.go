package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// CatalogFile is the SQLite audit log kept in the cache root.
const CatalogFile = "catalog.db"

// Entry is one catalog row.
type Entry struct {
	Key       string
	Params    string
	CreatedAt time.Time
	Hits      int
	LastHitAt time.Time // Zero until the first hit.
}

// Catalog records published entries and their hits. It is an audit trail;
// the directories in the cache root remain the source of truth.
type Catalog struct {
	db *sql.DB
}

// OpenCatalog opens or creates the catalog database at path.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS entries (
			key TEXT PRIMARY KEY,
			params TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			hits INTEGER NOT NULL DEFAULT 0,
			last_hit_at INTEGER
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize catalog: %w", err)
		}
	}
	return &Catalog{db: db}, nil
}

// Record inserts a published entry. Re-publishing a key keeps the first row.
func (c *Catalog) Record(ctx context.Context, key string, params []byte, at time.Time) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO entries (key, params, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO NOTHING`,
		key, string(params), at.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to record %s: %w", key, err)
	}
	return nil
}

// Hit counts a cache hit on key.
func (c *Catalog) Hit(ctx context.Context, key string, at time.Time) error {
	_, err := c.db.ExecContext(ctx,
		`UPDATE entries SET hits = hits + 1, last_hit_at = ? WHERE key = ?`,
		at.UnixNano(), key)
	if err != nil {
		return fmt.Errorf("failed to count hit on %s: %w", key, err)
	}
	return nil
}

// Forget removes key.
func (c *Catalog) Forget(ctx context.Context, key string) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to forget %s: %w", key, err)
	}
	return nil
}

// Get returns the row for key, or nil when it is not recorded.
func (c *Catalog) Get(ctx context.Context, key string) (*Entry, error) {
	var (
		e       Entry
		created int64
		lastHit sql.NullInt64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT key, params, created_at, hits, last_hit_at FROM entries WHERE key = ?`, key,
	).Scan(&e.Key, &e.Params, &created, &e.Hits, &lastHit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	e.CreatedAt = time.Unix(0, created)
	if lastHit.Valid {
		e.LastHitAt = time.Unix(0, lastHit.Int64)
	}
	return &e, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}
