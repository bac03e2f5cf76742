// Package filecache is a cache.Backend stored as a single JSON document.
//
// The document lives at {dir}/cache.json and maps scope keys to serialized
// entries kept as strings, so one damaged entry never makes the whole file
// unreadable:
//
//	{
//	  "version": 1,
//	  "entries": {
//	    "u1:save:1": "{\"payload\":{...},\"written_at\":\"2026-10-16T09:00:00Z\"}"
//	  }
//	}
//
// Every operation takes an exclusive flock on {dir}/cache.lock, reloads the
// document, applies the change and writes it back atomically, so two
// processes sharing a data directory never corrupt each other's writes.
package filecache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/storage"
)

const documentVersion = 1

type document struct {
	Version int               `json:"version"`
	Entries map[string]string `json:"entries"`
}

func emptyDocument() *document {
	return &document{Version: documentVersion, Entries: make(map[string]string)}
}

// Cache is a file-backed cache.Backend.
type Cache struct {
	dir      string
	maxBytes int64

	mu sync.Mutex
}

// CachePath returns the path to the cache document for a directory
func CachePath(dir string) string {
	return filepath.Join(dir, "cache.json")
}

// LockPath returns the path to the lock file for a directory
func LockPath(dir string) string {
	return filepath.Join(dir, "cache.lock")
}

// Open prepares a file cache in dir. maxBytes bounds the document size;
// zero means unbounded.
func Open(dir string, maxBytes int64) (*Cache, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}
	return &Cache{dir: dir, maxBytes: maxBytes}, nil
}

// Get returns the value stored under key.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var (
		value string
		ok    bool
	)
	err := c.withLock(func(doc *document) (bool, error) {
		value, ok = doc.Entries[key]
		return false, nil
	})
	if err != nil || !ok {
		return nil, false, err
	}
	return []byte(value), true, nil
}

// Put stores value under key. It fails with cache.ErrStorageFull, leaving the
// file untouched, when the resulting document would exceed the size bound.
func (c *Cache) Put(key string, value []byte) error {
	return c.withLock(func(doc *document) (bool, error) {
		doc.Entries[key] = string(value)
		return true, nil
	})
}

// Delete removes keys.
func (c *Cache) Delete(keys ...string) error {
	return c.withLock(func(doc *document) (bool, error) {
		dirty := false
		for _, k := range keys {
			if _, ok := doc.Entries[k]; ok {
				delete(doc.Entries, k)
				dirty = true
			}
		}
		return dirty, nil
	})
}

// Keys lists keys with prefix.
func (c *Cache) Keys(prefix string) ([]string, error) {
	var keys []string
	err := c.withLock(func(doc *document) (bool, error) {
		for k := range doc.Entries {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		return false, nil
	})
	return keys, err
}

// Close is a no-op; every operation already released its lock.
func (c *Cache) Close() error { return nil }

// withLock serializes fn against this process (mutex) and other processes
// (flock), and saves the document when fn reports a change.
func (c *Cache) withLock(fn func(doc *document) (dirty bool, err error)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	lock := NewFileLock(LockPath(c.dir))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("acquire cache lock: %w", err)
	}
	defer func() { _ = lock.Unlock() }()

	doc, err := load(CachePath(c.dir))
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}

	dirty, err := fn(doc)
	if err != nil || !dirty {
		return err
	}
	return c.save(doc)
}

// load reads the cache document. A missing or corrupted file yields an empty
// document: the cache is reconstructable, so starting fresh is always safe.
func load(path string) (*document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return emptyDocument(), nil
		}
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return emptyDocument(), nil
	}
	if doc.Entries == nil {
		doc.Entries = make(map[string]string)
	}
	doc.Version = documentVersion
	return &doc, nil
}

func (c *Cache) save(doc *document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if c.maxBytes > 0 && int64(len(data)) > c.maxBytes {
		return fmt.Errorf("cache document %d bytes exceeds %d: %w", len(data), c.maxBytes, cache.ErrStorageFull)
	}
	return storage.WriteAtomic(CachePath(c.dir), data)
}
