// Package remotetest provides an in-memory remote.Client for tests.
package remotetest

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

// DefaultTotalQuests is the quest count the fake derives percentages from.
const DefaultTotalQuests = 10

// Fake is a remote.Client holding saves, progress and sessions in memory.
// It counts calls per operation, can be told to fail an operation, and can
// report a forged owner for an identity.
type Fake struct {
	// Now stamps saves and progress. Defaults to time.Now.
	Now func() time.Time
	// TotalQuests is the denominator for the derived progress percentage.
	TotalQuests int

	mu       sync.Mutex
	saves    map[string]map[int]remote.SaveArtifact
	progress map[string]remote.ProgressRecord
	sessions map[string]string
	ended    map[string]bool
	calls    map[string]int
	failures map[string]error
	owners   map[string]string
	hooks    map[string]func()
}

var _ remote.Client = (*Fake)(nil)

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		TotalQuests: DefaultTotalQuests,
		saves:       make(map[string]map[int]remote.SaveArtifact),
		progress:    make(map[string]remote.ProgressRecord),
		sessions:    make(map[string]string),
		ended:       make(map[string]bool),
		calls:       make(map[string]int),
		failures:    make(map[string]error),
		owners:      make(map[string]string),
		hooks:       make(map[string]func()),
	}
}

// Calls returns how many times op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Fail makes op return err until Heal is called. A nil err defaults to
// remote.ErrNetwork.
func (f *Fake) Fail(op string, err error) {
	if err == nil {
		err = remote.ErrNetwork
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
}

// Heal clears an injected failure.
func (f *Fake) Heal(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.failures, op)
}

// ForgeOwner makes loads for identity report owner as the owner.
func (f *Fake) ForgeOwner(identity, owner string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.owners[identity] = owner
}

// OnCall runs fn (outside the lock) each time op is invoked, before it
// answers. Used to block or sequence concurrent calls in tests.
func (f *Fake) OnCall(op string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

// Seed stores a save directly, bypassing call counting.
func (f *Fake) Seed(identity string, art remote.SaveArtifact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if art.OwnerID == "" {
		art.OwnerID = identity
	}
	f.slots(identity)[art.Slot] = art
}

// Remove deletes a stored save, as if another device deleted it.
func (f *Fake) Remove(identity string, slot int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.slots(identity), slot)
}

// SessionEnded reports whether EndSession was called for id.
func (f *Fake) SessionEnded(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ended[id]
}

// Progress returns the stored progress for identity.
func (f *Fake) Progress(identity string) (remote.ProgressRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.progress[identity]
	return rec, ok
}

func (f *Fake) slots(identity string) map[int]remote.SaveArtifact {
	s, ok := f.saves[identity]
	if !ok {
		s = make(map[int]remote.SaveArtifact)
		f.saves[identity] = s
	}
	return s
}

func (f *Fake) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// enter counts the call, runs its hook and returns the injected failure or
// the caller's cancellation.
func (f *Fake) enter(ctx context.Context, op string) error {
	f.mu.Lock()
	f.calls[op]++
	hook := f.hooks[op]
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[op]; ok {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w: %w", op, remote.ErrNetwork, err)
	}
	return nil
}

func (f *Fake) owner(identity string) string {
	if o, ok := f.owners[identity]; ok {
		return o
	}
	return identity
}

func (f *Fake) SaveGame(ctx context.Context, identity string, slot int, blob json.RawMessage, meta remote.SaveMetadata) error {
	if err := f.enter(ctx, remote.OpSaveGame); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.now()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = now
	}
	f.slots(identity)[slot] = remote.SaveArtifact{
		Slot:      slot,
		Blob:      append(json.RawMessage(nil), blob...),
		Metadata:  meta,
		OwnerID:   identity,
		Timestamp: now,
	}
	return nil
}

func (f *Fake) LoadGame(ctx context.Context, identity string, slot int) (remote.SaveArtifact, error) {
	if err := f.enter(ctx, remote.OpLoadGame); err != nil {
		return remote.SaveArtifact{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	art, ok := f.slots(identity)[slot]
	if !ok {
		return remote.SaveArtifact{}, fmt.Errorf("%s: slot %d: %w", remote.OpLoadGame, slot, remote.ErrNotFound)
	}
	art.OwnerID = f.owner(identity)
	return art, nil
}

func (f *Fake) ListSaves(ctx context.Context, identity string) ([]remote.SaveSummary, error) {
	if err := f.enter(ctx, remote.OpListSaves); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remote.SaveSummary, 0, len(f.saves[identity]))
	for _, art := range f.saves[identity] {
		out = append(out, remote.SaveSummary{Slot: art.Slot, Metadata: art.Metadata, Timestamp: art.Timestamp})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out, nil
}

func (f *Fake) StartSession(ctx context.Context, identity string) (string, error) {
	if err := f.enter(ctx, remote.OpStartSession); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.NewString()
	f.sessions[id] = identity
	return id, nil
}

func (f *Fake) EndSession(ctx context.Context, sessionID string) error {
	if err := f.enter(ctx, remote.OpEndSession); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[sessionID]; !ok {
		return fmt.Errorf("%s: unknown session %q: %w", remote.OpEndSession, sessionID, remote.ErrNetwork)
	}
	f.ended[sessionID] = true
	return nil
}

func (f *Fake) UpdateProgress(ctx context.Context, identity string, rec remote.ProgressRecord) (float64, error) {
	if err := f.enter(ctx, remote.OpUpdateProgress); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	total := f.TotalQuests
	if total <= 0 {
		total = DefaultTotalQuests
	}
	pct := float64(rec.CompletedQuests) * 100 / float64(total)
	if pct > 100 {
		pct = 100
	}
	rec.ProgressPercentage = pct
	rec.LastUpdated = f.now()
	f.progress[identity] = rec
	return pct, nil
}

func (f *Fake) GetProgress(ctx context.Context, identity string) (remote.ProgressSnapshot, error) {
	if err := f.enter(ctx, remote.OpGetProgress); err != nil {
		return remote.ProgressSnapshot{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.progress[identity]
	if !ok {
		return remote.ProgressSnapshot{}, fmt.Errorf("%s: %w", remote.OpGetProgress, remote.ErrNotFound)
	}
	return remote.ProgressSnapshot{Record: rec, OwnerID: f.owner(identity)}, nil
}
