// Package identity resolves which user the local caches and saves belong to.
//
// Resolution order:
//
//  1. the in-memory value set during this process
//  2. the persisted value in {dataDir}/identity.json
//  3. the injected value (SAVESYNC_IDENTITY or config "identity")
//
// Listeners registered with OnChange observe every change of the effective
// identity synchronously, before SetIdentity or Clear return, so the cache
// can drop the previous identity's entries before anything reads on behalf
// of the new one.
package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/storage"
)

// FileName is the persisted identity file inside the data directory.
const FileName = "identity.json"

// Listener is called with the previous and current effective identity.
type Listener func(previous, current string)

// record is the persisted form.
type record struct {
	Identity string `json:"identity"`
}

// Options configures a Resolver.
type Options struct {
	// Injected is the lowest-priority identity, supplied by the environment.
	Injected string
	Logger   *zap.Logger
}

// Resolver resolves and changes the active identity.
type Resolver struct {
	path     string
	injected string
	logger   *zap.Logger

	// change serializes SetIdentity, Clear and watcher reloads so listeners
	// see changes in order.
	change sync.Mutex

	mu        sync.RWMutex
	memory    string
	listeners []Listener
}

// Path returns the identity file for a data directory.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// NewResolver returns a resolver persisting to {dataDir}/identity.json.
func NewResolver(dataDir string, optFns ...func(o *Options)) *Resolver {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Resolver{
		path:     Path(dataDir),
		injected: strings.TrimSpace(opts.Injected),
		logger:   log.OrNop(opts.Logger).Named("identity"),
	}
}

// OnChange registers fn for identity changes.
func (r *Resolver) OnChange(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Resolve returns the effective identity. It never writes.
func (r *Resolver) Resolve() (string, bool) {
	r.mu.RLock()
	mem := r.memory
	r.mu.RUnlock()

	if mem != "" {
		return mem, true
	}
	if persisted := r.loadPersisted(); persisted != "" {
		return persisted, true
	}
	if r.injected != "" {
		return r.injected, true
	}
	return "", false
}

// Persisted returns the identity stored on disk, or "".
func (r *Resolver) Persisted() string {
	return r.loadPersisted()
}

// SetIdentity makes id the active identity and persists it. Setting the
// current value again changes nothing on disk and notifies nobody.
func (r *Resolver) SetIdentity(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("identity must not be empty")
	}

	r.change.Lock()
	defer r.change.Unlock()

	previous, _ := r.Resolve()

	if r.loadPersisted() != id {
		if err := storage.SaveJSON(r.path, record{Identity: id}); err != nil {
			return fmt.Errorf("persist identity: %w", err)
		}
	}

	r.mu.Lock()
	r.memory = id
	r.mu.Unlock()

	r.notify(previous, id)
	return nil
}

// Clear forgets the in-memory and persisted identity (logout). The injected
// identity, if any, becomes effective again.
func (r *Resolver) Clear() error {
	r.change.Lock()
	defer r.change.Unlock()

	previous, _ := r.Resolve()

	if err := storage.Remove(r.path); err != nil {
		return fmt.Errorf("remove identity: %w", err)
	}
	r.mu.Lock()
	r.memory = ""
	r.mu.Unlock()

	current, _ := r.Resolve()
	r.notify(previous, current)
	return nil
}

// reload adopts the persisted value after an external change to the file.
func (r *Resolver) reload() {
	r.change.Lock()
	defer r.change.Unlock()

	previous, _ := r.Resolve()

	r.mu.Lock()
	r.memory = r.loadPersisted()
	r.mu.Unlock()

	current, _ := r.Resolve()
	if previous != current {
		r.logger.Info("identity changed on disk",
			zap.String("previous", previous), zap.String("current", current))
	}
	r.notify(previous, current)
}

func (r *Resolver) notify(previous, current string) {
	if previous == current {
		return
	}
	r.mu.RLock()
	listeners := append([]Listener(nil), r.listeners...)
	r.mu.RUnlock()

	for _, fn := range listeners {
		fn(previous, current)
	}
}

// loadPersisted reads the identity file. Missing or corrupt files read as "".
func (r *Resolver) loadPersisted() string {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return ""
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		// Corrupted - ignore
		return ""
	}
	return strings.TrimSpace(rec.Identity)
}
