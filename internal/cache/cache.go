package cache

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/metrics"
)

const (
	// DefaultFreshness is how long an entry is served before it must be refetched.
	DefaultFreshness = 60 * time.Second

	// DefaultStaleAfter is the age past which entries are evicted to make room.
	DefaultStaleAfter = time.Hour
)

// Entry is the persisted form of one cached value.
type Entry struct {
	Payload   json.RawMessage `json:"payload"`
	WrittenAt time.Time       `json:"written_at"`
}

// Age returns how old the entry is at now.
func (e Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.WrittenAt)
}

// Options configures a Store.
type Options struct {
	// Freshness is the hit window for Get.
	Freshness time.Duration
	// StaleAfter is the max age used by the evict-and-retry path of Set.
	StaleAfter time.Duration
	// Now is the clock. Defaults to time.Now.
	Now     func() time.Time
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Store is the identity-scoped cache over a Backend.
type Store struct {
	backend Backend
	opts    Options
	logger  *zap.Logger

	mu sync.Mutex
}

// New creates a Store over backend.
func New(backend Backend, optFns ...func(o *Options)) *Store {
	opts := Options{
		Freshness:  DefaultFreshness,
		StaleAfter: DefaultStaleAfter,
		Now:        time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Freshness <= 0 {
		opts.Freshness = DefaultFreshness
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Store{
		backend: backend,
		opts:    opts,
		logger:  log.OrNop(opts.Logger).Named("cache"),
	}
}

// Freshness returns the configured hit window.
func (s *Store) Freshness() time.Duration {
	return s.opts.Freshness
}

// Get returns the payload cached for (identity, key).
// Expired or corrupt entries are removed and reported as a miss.
func (s *Store) Get(identity, key string) (json.RawMessage, bool) {
	if identity == "" {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scoped := ScopeKey(identity, key)
	raw, ok, err := s.backend.Get(scoped)
	if err != nil {
		s.logger.Warn("cache read failed", zap.String("key", scoped), zap.Error(err))
		s.opts.Metrics.CacheLookup(metrics.LookupMiss)
		return nil, false
	}
	if !ok {
		s.opts.Metrics.CacheLookup(metrics.LookupMiss)
		return nil, false
	}

	entry, err := decodeEntry(raw)
	if err != nil {
		s.logger.Debug("dropping corrupt cache entry", zap.String("key", scoped), zap.Error(err))
		s.deleteLocked(scoped)
		s.opts.Metrics.CacheLookup(metrics.LookupCorrupt)
		return nil, false
	}

	if entry.Age(s.opts.Now()) >= s.opts.Freshness {
		s.deleteLocked(scoped)
		s.opts.Metrics.CacheLookup(metrics.LookupExpired)
		return nil, false
	}

	s.opts.Metrics.CacheLookup(metrics.LookupHit)
	return entry.Payload, true
}

// Set caches payload for (identity, key), replacing any previous entry.
// It reports whether the value was stored; a false return is not an error,
// the caller simply proceeds without a cache entry.
func (s *Store) Set(identity, key string, payload any) bool {
	if identity == "" {
		return false
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("cache payload not serializable", zap.String("key", key), zap.Error(err))
		s.opts.Metrics.CacheWrite(metrics.WriteDropped)
		return false
	}

	raw, err := json.Marshal(Entry{Payload: body, WrittenAt: s.opts.Now()})
	if err != nil {
		s.opts.Metrics.CacheWrite(metrics.WriteDropped)
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	scoped := ScopeKey(identity, key)
	err = s.backend.Put(scoped, raw)
	if err == nil {
		s.opts.Metrics.CacheWrite(metrics.WriteOK)
		return true
	}

	if !errors.Is(err, ErrStorageFull) {
		s.logger.Warn("cache write failed", zap.String("key", scoped), zap.Error(err))
		s.opts.Metrics.CacheWrite(metrics.WriteDropped)
		return false
	}

	evicted := s.evictLocked(s.opts.StaleAfter)
	s.logger.Info("cache full, evicted stale entries", zap.Int("evicted", evicted))

	if err := s.backend.Put(scoped, raw); err != nil {
		s.logger.Warn("cache write dropped after eviction", zap.String("key", scoped), zap.Error(err))
		s.opts.Metrics.CacheWrite(metrics.WriteDropped)
		return false
	}
	s.opts.Metrics.CacheWrite(metrics.WriteRetried)
	return true
}

// Invalidate removes the given keys for identity, or every entry of identity
// when no key is given.
func (s *Store) Invalidate(identity string, keys ...string) {
	if identity == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(keys) > 0 {
		scoped := make([]string, len(keys))
		for i, k := range keys {
			scoped[i] = ScopeKey(identity, k)
		}
		s.deleteLocked(scoped...)
		return
	}

	all, err := s.backend.Keys(scopePrefix(identity))
	if err != nil {
		s.logger.Warn("cache scan failed", zap.String("identity", identity), zap.Error(err))
		return
	}
	s.deleteLocked(all...)
}

// Keys returns the logical keys currently stored for identity, sorted.
// Freshness is not checked.
func (s *Store) Keys(identity string) []string {
	if identity == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := scopePrefix(identity)
	scoped, err := s.backend.Keys(prefix)
	if err != nil {
		s.logger.Warn("cache scan failed", zap.String("identity", identity), zap.Error(err))
		return nil
	}
	keys := make([]string, 0, len(scoped))
	for _, k := range scoped {
		keys = append(keys, strings.TrimPrefix(k, prefix))
	}
	sort.Strings(keys)
	return keys
}

// EvictStale removes every entry, across all identities, that is older than
// maxAge or cannot be parsed. It returns the number of entries removed.
func (s *Store) EvictStale(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evictLocked(maxAge)
}

// OnIdentityChanged drops everything cached for previous when the active
// identity moves away from it. It must run before the new identity reads or
// writes the cache.
func (s *Store) OnIdentityChanged(previous, current string) {
	if previous == "" || previous == current {
		return
	}
	s.logger.Debug("identity changed, invalidating previous scope",
		zap.String("previous", previous), zap.String("current", current))
	s.Invalidate(previous)
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) evictLocked(maxAge time.Duration) int {
	keys, err := s.backend.Keys("")
	if err != nil {
		s.logger.Warn("cache scan failed", zap.Error(err))
		return 0
	}

	now := s.opts.Now()
	var doomed []string
	for _, k := range keys {
		raw, ok, err := s.backend.Get(k)
		if err != nil || !ok {
			continue
		}
		entry, err := decodeEntry(raw)
		if err != nil || entry.Age(now) > maxAge {
			doomed = append(doomed, k)
		}
	}

	s.deleteLocked(doomed...)
	s.opts.Metrics.CacheEvicted(len(doomed))
	return len(doomed)
}

func (s *Store) deleteLocked(keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := s.backend.Delete(keys...); err != nil {
		s.logger.Warn("cache delete failed", zap.Strings("keys", keys), zap.Error(err))
	}
}

func decodeEntry(raw []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, err
	}
	if e.WrittenAt.IsZero() || len(e.Payload) == 0 {
		return Entry{}, errors.New("incomplete cache entry")
	}
	return e, nil
}
