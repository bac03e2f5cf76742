// Package syncengine reconciles the local cache and local save slots with the
// remote save service.
//
// The remote service is authoritative. Reads go cache first, then remote,
// then local slots; writes go local first, then remote, and on success drop
// the affected cache entries so the next read refetches. Every remote
// failure is recovered here: callers get typed results and advisory notices,
// never a fault that would stop the game.
package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/localsave"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/metrics"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

// Cache keys used by the engine.
const (
	SavesListKey = "saves_list"
	ProgressKey  = "progress"
	savePrefix   = "save:"
)

// SaveKey is the cache key of a slot.
func SaveKey(slot int) string {
	return savePrefix + strconv.Itoa(slot)
}

var (
	// ErrSecurityMismatch means the service returned data owned by a
	// different identity. The data is discarded and never cached.
	ErrSecurityMismatch = errors.New("ownership check failed")

	// ErrSync wraps a failed progress update. The next update is sent
	// unconditionally.
	ErrSync = errors.New("progress sync failed")

	// ErrNoIdentity is returned when an operation runs without an identity.
	ErrNoIdentity = errors.New("no identity")
)

// Options configures an Engine.
type Options struct {
	// Local is the local slot store used for fallback and local-first saves.
	// Nil disables both.
	Local    *localsave.Store
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Validate *validator.Validate
}

// Engine orchestrates load, save, list and progress operations.
//
// The engine keeps no persisted state of its own. In memory it holds, per
// identity, the fingerprint of the last progress record the service
// accepted and the percentage the service reported for it.
//
// Concurrent operations are not ordered against each other. Identical
// in-flight loads and list fetches share one remote call, but two distinct
// requests whose lifetimes overlap both write their response into the cache
// and whichever response arrives last wins. The remote service is the
// ordering authority; a stale cache entry lives at most one freshness window.
type Engine struct {
	cache    *cache.Store
	remote   remote.Client
	local    *localsave.Store
	notify   Notifier
	logger   *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	flights singleflight.Group

	mu           sync.Mutex
	fingerprints map[string]string
	displayed    map[string]float64
}

// New creates an Engine.
func New(store *cache.Store, client remote.Client, optFns ...func(o *Options)) *Engine {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := log.OrNop(opts.Logger).Named("sync")
	notify := opts.Notifier
	if notify == nil {
		notify = logNotifier{logger: logger}
	}
	v := opts.Validate
	if v == nil {
		v = validator.New(validator.WithRequiredStructEnabled())
	}

	return &Engine{
		cache:        store,
		remote:       client,
		local:        opts.Local,
		notify:       notify,
		logger:       logger,
		metrics:      opts.Metrics,
		validate:     v,
		fingerprints: make(map[string]string),
		displayed:    make(map[string]float64),
	}
}

// flightKey namespaces a singleflight key by identity.
func flightKey(op, identity string, extra ...string) string {
	return strings.Join(append([]string{op, cache.ScopeKey(identity, "")}, extra...), "\x00")
}

// sharedCallTimeout bounds a coalesced remote call once it no longer
// follows any single caller's deadline.
const sharedCallTimeout = time.Minute

// share runs fn once for every concurrent caller of key. The call is
// detached from the cancellation of whichever caller started it; each caller
// stops waiting when its own ctx ends.
func (e *Engine) share(ctx context.Context, key string, fn func(ctx context.Context) (any, error)) (any, error) {
	ch := e.flights.DoChan(key, func() (any, error) {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedCallTimeout)
		defer cancel()
		return fn(cctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", remote.ErrNetwork, ctx.Err())
	}
}

// ForgetIdentity drops the in-memory progress state kept for identity.
func (e *Engine) ForgetIdentity(identity string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.fingerprints, identity)
	delete(e.displayed, identity)
}

// DisplayedProgress returns the last percentage the service reported for
// identity.
func (e *Engine) DisplayedProgress(identity string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pct, ok := e.displayed[identity]
	return pct, ok
}

func (e *Engine) setDisplayed(identity string, pct float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.displayed[identity] = pct
}

func (e *Engine) ownershipFailed(identity, owner, what string) error {
	e.metrics.OwnershipMismatch()
	e.logger.Warn("remote data owned by another identity, discarding",
		zap.String("identity", identity), zap.String("owner", owner), zap.String("what", what))
	e.notify.Notify(identity, NoticeSecurity)
	return fmt.Errorf("%s: owner %q is not %q: %w", what, owner, identity, ErrSecurityMismatch)
}

// decodeCached unmarshals a cached payload; a payload that does not decode
// is dropped and reported as a miss.
func (e *Engine) decodeCached(identity, key string, raw json.RawMessage, dest any) bool {
	if err := json.Unmarshal(raw, dest); err != nil {
		e.logger.Debug("cached payload undecodable", zap.String("key", key), zap.Error(err))
		e.cache.Invalidate(identity, key)
		return false
	}
	return true
}
