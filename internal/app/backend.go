package app

import (
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache/badgercache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache/filecache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache/sqlitecache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/config"
)

// sqlitePageSize is SQLite's default page size, used to turn the byte quota
// into a page count.
const sqlitePageSize = 4096

// BackendPath returns where the configured backend keeps its data under
// dataDir. The memory backend has no path.
func BackendPath(backend, dataDir string) string {
	switch backend {
	case "file":
		return filepath.Join(dataDir, "cache")
	case "badger":
		return filepath.Join(dataDir, "badger")
	case "sqlite":
		return filepath.Join(dataDir, "cache.db")
	default:
		return ""
	}
}

// OpenBackend opens the cache backend named by cfg.Cache.Backend.
func OpenBackend(cfg config.CacheConfig, dataDir string, logger *zap.Logger) (cache.Backend, error) {
	path := BackendPath(cfg.Backend, dataDir)

	switch cfg.Backend {
	case "", "file":
		return filecache.Open(BackendPath("file", dataDir), cfg.MaxBytes)
	case "badger":
		bc := badgercache.DefaultConfig(path)
		bc.MaxBytes = cfg.MaxBytes
		bc.Logger = logger
		return badgercache.Open(bc)
	case "sqlite":
		pages := 0
		if cfg.MaxBytes > 0 {
			pages = int(max(cfg.MaxBytes/sqlitePageSize, 1))
		}
		return sqlitecache.Open(path, pages)
	case "memory":
		return cache.NewMemoryBackend(int(cfg.MaxBytes)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
