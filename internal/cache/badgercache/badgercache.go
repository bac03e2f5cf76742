// Package badgercache is a cache.Backend stored in BadgerDB.
//
// Values are written one key per transaction. The summed size of keys and
// values is tracked in memory (rebuilt by a key scan on Open) so that a
// MaxBytes quota can be enforced before Badger ever sees the write; Badger's
// own ErrTxnTooBig is reported as cache.ErrStorageFull as well.
package badgercache

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
)

// Config holds configuration for a Badger-backed cache.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM; used by tests and the "memory"
	// mode of the CLI.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// MaxBytes bounds summed key+value bytes. Zero means unbounded.
	MaxBytes int64

	// GCInterval runs value log GC periodically. Zero disables it.
	GCInterval time.Duration

	// Logger receives Badger's internal log lines. Nil silences them.
	Logger *zap.Logger
}

// DefaultConfig returns a persistent configuration for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:       path,
		SyncWrites: true,
		GCInterval: 10 * time.Minute,
	}
}

// zapLogger adapts zap to badger.Logger.
type zapLogger struct {
	s *zap.SugaredLogger
}

func (l zapLogger) Errorf(format string, args ...any)   { l.s.Errorf(format, args...) }
func (l zapLogger) Warningf(format string, args ...any) { l.s.Warnf(format, args...) }
func (l zapLogger) Infof(format string, args ...any)    { l.s.Debugf(format, args...) }
func (l zapLogger) Debugf(format string, args ...any)   { l.s.Debugf(format, args...) }

// Cache is a Badger-backed cache.Backend.
type Cache struct {
	db       *badger.DB
	maxBytes int64
	logger   *zap.Logger

	mu   sync.Mutex
	used int64

	stopGC chan struct{}
	gcDone chan struct{}
	closed bool
}

// Open opens (or creates) the database described by cfg.
func Open(cfg Config) (*Cache, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger cache path is required")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create badger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(zapLogger{s: logger.Named("badger").Sugar()})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	c := &Cache{db: db, maxBytes: cfg.MaxBytes, logger: logger}
	if err := c.measure(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if cfg.GCInterval > 0 && !cfg.InMemory {
		c.stopGC = make(chan struct{})
		c.gcDone = make(chan struct{})
		go c.runGC(cfg.GCInterval)
	}
	return c, nil
}

// measure rebuilds the size counter from the stored keys.
func (c *Cache) measure() error {
	var used int64
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{PrefetchValues: false})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			used += int64(len(item.Key())) + item.ValueSize()
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("measure badger cache: %w", err)
	}
	c.used = used
	return nil
}

// Get returns the value stored under key.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Put stores value under key.
func (c *Cache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var previous int64
	err := c.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			previous = int64(len(key)) + item.ValueSize()
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		next := c.used - previous + int64(len(key)+len(value))
		if c.maxBytes > 0 && next > c.maxBytes {
			return fmt.Errorf("badger cache %d bytes exceeds %d: %w", next, c.maxBytes, cache.ErrStorageFull)
		}
		return txn.Set([]byte(key), value)
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return fmt.Errorf("%w: %w", cache.ErrStorageFull, err)
	}
	if err != nil {
		return err
	}
	c.used += int64(len(key)+len(value)) - previous
	return nil
}

// Delete removes keys.
func (c *Cache) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var freed int64
	err := c.db.Update(func(txn *badger.Txn) error {
		for _, k := range keys {
			item, err := txn.Get([]byte(k))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			freed += int64(len(k)) + item.ValueSize()
			if err := txn.Delete([]byte(k)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.used -= freed
	return nil
}

// Keys lists keys with prefix.
func (c *Cache) Keys(prefix string) ([]string, error) {
	var keys []string
	err := c.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: false,
			Prefix:         []byte(prefix),
		})
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return keys, err
}

// Used returns the tracked key+value byte count.
func (c *Cache) Used() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.used
}

// Close stops GC and closes the database. Calling it twice is safe.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.stopGC != nil {
		close(c.stopGC)
		<-c.gcDone
	}
	return c.db.Close()
}

func (c *Cache) runGC(interval time.Duration) {
	defer close(c.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopGC:
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			if err := c.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				c.logger.Warn("badger value log gc failed", zap.Error(err))
			}
		}
	}
}
