// Package sigcache persists exported declaration signatures between
// runs so an unchanged file never has to be re-checked for its public
// surface. The store is a small SQLite database under the project's
// .truby directory; validity is tracked per file by content digest, and
// invalidation is whole-file, with no finer-grained dependency
// tracking.
package sigcache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/trubylang/truby/internal/config"
	"github.com/trubylang/truby/internal/pipeline"
)

// DBFileName is the database file created under the cache directory.
const DBFileName = "cache.db"

// listSep joins string slices into a single column. Type syntax never
// contains control characters, so the unit separator is safe.
const listSep = "\x1f"

// Cache is the on-disk signature store. Safe for concurrent use by a
// single process; the database itself is opened with one connection.
type Cache struct {
	mu    sync.Mutex
	db    *sql.DB
	runID string
}

// Open opens (creating if needed) the cache database under dir and
// registers a run row for this process.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, DBFileName)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening cache at %s: %w", dbPath, err)
	}
	// Single writer keeps SQLite happy and the store is tiny anyway.
	db.SetMaxOpenConns(1)

	c := &Cache{db: db, runID: uuid.NewString()}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing cache schema: %w", err)
	}
	if err := c.recordRun(); err != nil {
		db.Close()
		return nil, fmt.Errorf("recording cache run: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		tool_version TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		digest TEXT NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS decls (
		path TEXT NOT NULL,
		owner TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		param_names TEXT NOT NULL,
		param_types TEXT NOT NULL,
		return_type TEXT NOT NULL,
		line INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_decls_path ON decls(path);
	`
	_, err := c.db.Exec(schema)
	return err
}

func (c *Cache) recordRun() error {
	_, err := c.db.Exec(
		`INSERT INTO runs (id, created_at, tool_version) VALUES (?, ?, ?)`,
		c.runID, time.Now().Unix(), config.Version,
	)
	return err
}

// RunID identifies this process's snapshot run in the runs table.
func (c *Cache) RunID() string {
	return c.runID
}

// Digest returns the content digest used for cache validity checks.
func Digest(source []byte) string {
	sum := sha256.Sum256(source)
	return hex.EncodeToString(sum[:])
}

// Store replaces the cached rows for path wholesale: the digest entry
// and every declaration.
func (c *Cache) Store(path, digest string, decls []pipeline.DeclSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("cache store %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM decls WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache store %s: %w", path, err)
	}
	if _, err := tx.Exec(
		`INSERT INTO files (path, digest, run_id) VALUES (?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET digest = excluded.digest, run_id = excluded.run_id`,
		path, digest, c.runID,
	); err != nil {
		return fmt.Errorf("cache store %s: %w", path, err)
	}
	for _, d := range decls {
		if _, err := tx.Exec(
			`INSERT INTO decls (path, owner, name, kind, param_names, param_types, return_type, line)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			path, d.Owner, d.Name, d.Kind,
			joinList(d.ParamNames), joinList(d.ParamTypes), d.ReturnType, d.Line,
		); err != nil {
			return fmt.Errorf("cache store %s: %w", path, err)
		}
	}
	return tx.Commit()
}

// Lookup returns the cached declarations for path when digest still
// matches. A digest mismatch is a miss, never an error: the caller
// falls back to a full check.
func (c *Cache) Lookup(path, digest string) ([]pipeline.DeclSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var stored string
	if err := c.db.QueryRow(`SELECT digest FROM files WHERE path = ?`, path).Scan(&stored); err != nil {
		return nil, false
	}
	if stored != digest {
		return nil, false
	}

	// Line order is declaration order, which keeps owners ahead of
	// their members when the listing is re-rendered.
	rows, err := c.db.Query(
		`SELECT owner, name, kind, param_names, param_types, return_type, line
		 FROM decls WHERE path = ? ORDER BY line`, path)
	if err != nil {
		return nil, false
	}
	defer rows.Close()

	var out []pipeline.DeclSummary
	for rows.Next() {
		var d pipeline.DeclSummary
		var names, types string
		if err := rows.Scan(&d.Owner, &d.Name, &d.Kind, &names, &types, &d.ReturnType, &d.Line); err != nil {
			return nil, false
		}
		d.ParamNames = splitList(names)
		d.ParamTypes = splitList(types)
		out = append(out, d)
	}
	if rows.Err() != nil {
		return nil, false
	}
	return out, true
}

// Invalidate drops every cached row for path.
func (c *Cache) Invalidate(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("cache invalidate %s: %w", path, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM decls WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", path, err)
	}
	if _, err := tx.Exec(`DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("cache invalidate %s: %w", path, err)
	}
	return tx.Commit()
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func joinList(list []string) string {
	return strings.Join(list, listSep)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}
