package syncengine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

// Source tells where a loaded save came from.
type Source int

const (
	SourceNone Source = iota
	SourceCache
	SourceCloud
	SourceLocal
)

func (s Source) String() string {
	switch s {
	case SourceCache:
		return "cache"
	case SourceCloud:
		return "cloud"
	case SourceLocal:
		return "local"
	default:
		return "none"
	}
}

// LoadResult is the outcome of LoadAuthoritative.
type LoadResult struct {
	Artifact remote.SaveArtifact
	Source   Source
	// Reinitialize asks the caller to start from a fresh state; set when the
	// service returned someone else's save.
	Reinitialize bool
	// Err is set when no usable save was obtained.
	Err error
	// CloudErr is the remote failure that caused a local fallback.
	CloudErr error
}

// OK reports whether Artifact holds a usable save.
func (r LoadResult) OK() bool {
	return r.Source != SourceNone && r.Err == nil
}

// SaveResult is the outcome of SaveLocalThenCloud.
type SaveResult struct {
	// Local is true when the local slot was written.
	Local bool
	// CloudErr is the remote failure, if any. The save is still safe locally.
	CloudErr error
}

// LoadAuthoritative returns the save in slot for identity, preferring a
// fresh cache entry, then the remote service, then the local slot.
func (e *Engine) LoadAuthoritative(ctx context.Context, identity string, slot int) LoadResult {
	if identity == "" {
		return LoadResult{Err: ErrNoIdentity}
	}

	key := SaveKey(slot)
	if raw, ok := e.cache.Get(identity, key); ok {
		var art remote.SaveArtifact
		if e.decodeCached(identity, key, raw, &art) {
			if art.OwnerID == identity {
				return LoadResult{Artifact: art, Source: SourceCache}
			}
			e.cache.Invalidate(identity, key)
		}
	}

	v, err := e.share(ctx, flightKey("load", identity, strconv.Itoa(slot)), func(ctx context.Context) (any, error) {
		return e.remote.LoadGame(ctx, identity, slot)
	})
	if err != nil {
		return e.loadLocal(identity, slot, err)
	}

	art := v.(remote.SaveArtifact)
	if art.OwnerID != identity {
		return LoadResult{
			Err:          e.ownershipFailed(identity, art.OwnerID, "load slot "+strconv.Itoa(slot)),
			Reinitialize: true,
		}
	}

	e.cache.Set(identity, key, art)
	return LoadResult{Artifact: art, Source: SourceCloud}
}

func (e *Engine) loadLocal(identity string, slot int, cloudErr error) LoadResult {
	e.logger.Warn("cloud load failed", zap.String("identity", identity), zap.Int("slot", slot), zap.Error(cloudErr))

	if e.local != nil {
		art, err := e.local.Read(identity, slot)
		if err == nil {
			e.notify.Notify(identity, NoticeUsingLocal)
			return LoadResult{Artifact: art, Source: SourceLocal, CloudErr: cloudErr}
		}
	}
	return LoadResult{Err: fmt.Errorf("load slot %d: %w", slot, cloudErr), CloudErr: cloudErr}
}

// SaveAuthoritative pushes art to the service. On success the cached slot
// and saves list are dropped, not overwritten, so the next read observes the
// service's view. A failure is logged, announced as "saved locally only" and
// returned for inspection; callers must not treat it as fatal.
func (e *Engine) SaveAuthoritative(ctx context.Context, identity string, slot int, art remote.SaveArtifact) error {
	if identity == "" {
		return ErrNoIdentity
	}

	if err := e.remote.SaveGame(ctx, identity, slot, art.Blob, art.Metadata); err != nil {
		e.logger.Warn("cloud save failed", zap.String("identity", identity), zap.Int("slot", slot), zap.Error(err))
		e.notify.Notify(identity, NoticeLocalOnly)
		return fmt.Errorf("save slot %d: %w", slot, err)
	}

	e.cache.Invalidate(identity, SaveKey(slot), SavesListKey)
	e.notify.Notify(identity, NoticeSaved)
	return nil
}

// SaveLocalThenCloud writes the local slot and then the cloud. Only a local
// failure is returned as an error.
func (e *Engine) SaveLocalThenCloud(ctx context.Context, identity string, art remote.SaveArtifact) (SaveResult, error) {
	if identity == "" {
		return SaveResult{}, ErrNoIdentity
	}

	var res SaveResult
	if e.local != nil {
		if err := e.local.Write(identity, art); err != nil {
			return res, err
		}
		res.Local = true
	}

	res.CloudErr = e.SaveAuthoritative(ctx, identity, art.Slot, art)
	return res, nil
}

// ListAuthoritative returns the saves that exist for identity. A fetched
// list replaces the cached one entirely, and cached slots absent from it are
// dropped so a save deleted elsewhere does not linger.
func (e *Engine) ListAuthoritative(ctx context.Context, identity string) ([]remote.SaveSummary, error) {
	if identity == "" {
		return nil, ErrNoIdentity
	}

	if raw, ok := e.cache.Get(identity, SavesListKey); ok {
		var list []remote.SaveSummary
		if e.decodeCached(identity, SavesListKey, raw, &list) {
			return list, nil
		}
	}

	v, err := e.share(ctx, flightKey("list", identity), func(ctx context.Context) (any, error) {
		list, err := e.remote.ListSaves(ctx, identity)
		if err != nil {
			return nil, err
		}
		e.replaceList(identity, list)
		return list, nil
	})
	if err != nil {
		e.logger.Warn("cloud list failed", zap.String("identity", identity), zap.Error(err))
		return nil, fmt.Errorf("list saves: %w", err)
	}
	return v.([]remote.SaveSummary), nil
}

func (e *Engine) replaceList(identity string, list []remote.SaveSummary) {
	present := make(map[int]bool, len(list))
	for _, s := range list {
		present[s.Slot] = true
	}

	var gone []string
	for _, k := range e.cache.Keys(identity) {
		n, ok := strings.CutPrefix(k, savePrefix)
		if !ok {
			continue
		}
		slot, err := strconv.Atoi(n)
		if err != nil || !present[slot] {
			gone = append(gone, k)
		}
	}
	if len(gone) > 0 {
		e.cache.Invalidate(identity, gone...)
	}

	e.cache.Set(identity, SavesListKey, list)
}

// IsRecoverable reports whether err is one of the classified failures the
// engine recovers from.
func IsRecoverable(err error) bool {
	return errors.Is(err, remote.ErrNetwork) ||
		errors.Is(err, remote.ErrData) ||
		errors.Is(err, remote.ErrNotFound) ||
		errors.Is(err, ErrSecurityMismatch) ||
		errors.Is(err, ErrSync)
}
