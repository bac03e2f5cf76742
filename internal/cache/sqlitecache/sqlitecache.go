// Package sqlitecache is a cache.Backend stored in a SQLite table.
//
// A single connection is used so the per-connection max_page_count quota
// applies to every statement. When SQLite reports SQLITE_FULL the write is
// surfaced as cache.ErrStorageFull.
package sqlitecache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

const schema = `CREATE TABLE IF NOT EXISTS cache_entries (
	key   TEXT PRIMARY KEY,
	value BLOB NOT NULL
)`

// Cache is a SQLite-backed cache.Backend.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the database at path. maxPages, when positive, caps
// the database size via PRAGMA max_page_count.
func Open(path string, maxPages int) (*Cache, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite cache path is required")
	}
	if path != MemoryPath {
		path = filepath.Clean(path)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache table: %w", err)
	}
	if maxPages > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA max_page_count = %d", maxPages)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set max_page_count: %w", err)
		}
	}
	return &Cache{db: db}, nil
}

// Get returns the value stored under key.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRowContext(context.Background(),
		`SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry: %w", err)
	}
	return value, true, nil
}

// Put stores value under key.
func (c *Cache) Put(key string, value []byte) error {
	_, err := c.db.ExecContext(context.Background(),
		`INSERT INTO cache_entries (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err == nil {
		return nil
	}
	if isFull(err) {
		return fmt.Errorf("put cache entry: %w: %w", cache.ErrStorageFull, err)
	}
	return fmt.Errorf("put cache entry: %w", err)
}

// Delete removes keys in one transaction.
func (c *Cache) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(context.Background(), nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`DELETE FROM cache_entries WHERE key = ?`)
	if err != nil {
		return fmt.Errorf("prepare delete: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.Exec(k); err != nil {
			return fmt.Errorf("delete cache entry: %w", err)
		}
	}
	return tx.Commit()
}

// Keys lists keys with prefix.
func (c *Cache) Keys(prefix string) ([]string, error) {
	rows, err := c.db.QueryContext(context.Background(),
		`SELECT key FROM cache_entries WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("list cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan cache key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close closes the database handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func isFull(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code()&0xff == sqlite3.SQLITE_FULL
}
