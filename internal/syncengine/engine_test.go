package syncengine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/localsave"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote/remotetest"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *noticeRecorder) Notify(identity string, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *noticeRecorder) has(n Notice) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, got := range r.notices {
		if got == n {
			return true
		}
	}
	return false
}

type harness struct {
	engine  *Engine
	fake    *remotetest.Fake
	cache   *cache.Store
	local   *localsave.Store
	clock   *fakeClock
	notices *noticeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)}
	store := cache.New(cache.NewMemoryBackend(0), func(o *cache.Options) {
		o.Now = clock.Now
	})
	fake := remotetest.New()
	fake.Now = clock.Now
	local := localsave.New(t.TempDir())
	notices := &noticeRecorder{}

	e := New(store, fake, func(o *Options) {
		o.Local = local
		o.Notifier = notices
	})
	return &harness{engine: e, fake: fake, cache: store, local: local, clock: clock, notices: notices}
}

func artifact(slot int, title string) remote.SaveArtifact {
	return remote.SaveArtifact{
		Slot:     slot,
		Blob:     json.RawMessage(`{"title":"` + title + `"}`),
		Metadata: remote.SaveMetadata{Title: title},
	}
}

func TestLoadAuthoritative_CloudThenCache(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Seed("u1", artifact(1, "Save 1"))

	first := h.engine.LoadAuthoritative(ctx, "u1", 1)
	if !first.OK() || first.Source != SourceCloud {
		t.Fatalf("first load = %+v, want cloud", first)
	}

	second := h.engine.LoadAuthoritative(ctx, "u1", 1)
	if second.Source != SourceCache {
		t.Errorf("second load source = %v, want cache", second.Source)
	}
	if got := h.fake.Calls(remote.OpLoadGame); got != 1 {
		t.Errorf("load_game calls = %d, want 1", got)
	}
	if diff := cmp.Diff(first.Artifact, second.Artifact); diff != "" {
		t.Errorf("cached artifact differs (-cloud +cache):\n%s", diff)
	}
}

func TestLoadAuthoritative_OwnershipMismatch(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Seed("u1", artifact(1, "theirs"))
	h.fake.ForgeOwner("u1", "u2")

	res := h.engine.LoadAuthoritative(ctx, "u1", 1)
	if !errors.Is(res.Err, ErrSecurityMismatch) {
		t.Fatalf("Err = %v, want ErrSecurityMismatch", res.Err)
	}
	if !res.Reinitialize || res.OK() {
		t.Errorf("result = %+v, want Reinitialize and not OK", res)
	}
	if !h.notices.has(NoticeSecurity) {
		t.Error("security notice not sent")
	}
	if keys := h.cache.Keys("u1"); len(keys) != 0 {
		t.Errorf("mismatched artifact cached: %v", keys)
	}

	// not cached, so the next load asks the service again
	h.engine.LoadAuthoritative(ctx, "u1", 1)
	if got := h.fake.Calls(remote.OpLoadGame); got != 2 {
		t.Errorf("load_game calls = %d, want 2", got)
	}
}

func TestLoadAuthoritative_FallsBackToLocal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	if err := h.local.Write("u1", artifact(2, "local copy")); err != nil {
		t.Fatal(err)
	}
	h.fake.Fail(remote.OpLoadGame, nil)

	res := h.engine.LoadAuthoritative(ctx, "u1", 2)
	if !res.OK() || res.Source != SourceLocal {
		t.Fatalf("result = %+v, want local", res)
	}
	if !errors.Is(res.CloudErr, remote.ErrNetwork) {
		t.Errorf("CloudErr = %v, want ErrNetwork", res.CloudErr)
	}
	if res.Artifact.Metadata.Title != "local copy" {
		t.Errorf("artifact title = %q", res.Artifact.Metadata.Title)
	}
	if !h.notices.has(NoticeUsingLocal) {
		t.Error("using-local notice not sent")
	}
}

func TestLoadAuthoritative_CloudWinsOverLocal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if err := h.local.Write("u1", artifact(1, "old local")); err != nil {
		t.Fatal(err)
	}
	h.fake.Seed("u1", artifact(1, "cloud"))

	res := h.engine.LoadAuthoritative(context.Background(), "u1", 1)
	if res.Source != SourceCloud || res.Artifact.Metadata.Title != "cloud" {
		t.Errorf("result = %v %q, want cloud data", res.Source, res.Artifact.Metadata.Title)
	}
}

func TestLoadAuthoritative_NothingAvailable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.Fail(remote.OpLoadGame, remote.ErrData)

	res := h.engine.LoadAuthoritative(context.Background(), "u1", 1)
	if res.OK() || res.Source != SourceNone {
		t.Fatalf("result = %+v, want none", res)
	}
	if !errors.Is(res.Err, remote.ErrData) || !IsRecoverable(res.Err) {
		t.Errorf("Err = %v, want recoverable ErrData", res.Err)
	}
}

func TestLoadAuthoritative_NoIdentity(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	if res := h.engine.LoadAuthoritative(context.Background(), "", 1); !errors.Is(res.Err, ErrNoIdentity) {
		t.Errorf("Err = %v, want ErrNoIdentity", res.Err)
	}
	if h.fake.Calls(remote.OpLoadGame) != 0 {
		t.Error("remote called without identity")
	}
}

func TestSaveAuthoritative_InvalidatesCache(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Seed("u1", artifact(1, "v1"))

	h.engine.LoadAuthoritative(ctx, "u1", 1)
	if _, err := h.engine.ListAuthoritative(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	if err := h.engine.SaveAuthoritative(ctx, "u1", 1, artifact(1, "v2")); err != nil {
		t.Fatalf("SaveAuthoritative() error = %v", err)
	}
	if keys := h.cache.Keys("u1"); len(keys) != 0 {
		t.Errorf("cache keys after save = %v, want none", keys)
	}
	if !h.notices.has(NoticeSaved) {
		t.Error("saved notice not sent")
	}

	res := h.engine.LoadAuthoritative(ctx, "u1", 1)
	if res.Source != SourceCloud || res.Artifact.Metadata.Title != "v2" {
		t.Errorf("reload = %v %q, want cloud v2", res.Source, res.Artifact.Metadata.Title)
	}
}

func TestSaveAuthoritative_FailureIsLocalOnly(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Seed("u1", artifact(1, "v1"))
	h.engine.LoadAuthoritative(ctx, "u1", 1)
	h.fake.Fail(remote.OpSaveGame, nil)

	err := h.engine.SaveAuthoritative(ctx, "u1", 1, artifact(1, "v2"))
	if !errors.Is(err, remote.ErrNetwork) {
		t.Fatalf("error = %v, want ErrNetwork", err)
	}
	if !h.notices.has(NoticeLocalOnly) {
		t.Error("local-only notice not sent")
	}
	if keys := h.cache.Keys("u1"); len(keys) != 1 {
		t.Errorf("cache keys = %v, want the untouched slot entry", keys)
	}
}

func TestSaveLocalThenCloud(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Fail(remote.OpSaveGame, nil)

	res, err := h.engine.SaveLocalThenCloud(ctx, "u1", artifact(3, "offline"))
	if err != nil {
		t.Fatalf("SaveLocalThenCloud() error = %v", err)
	}
	if !res.Local || !errors.Is(res.CloudErr, remote.ErrNetwork) {
		t.Errorf("result = %+v, want local write with cloud error", res)
	}
	if _, err := h.local.Read("u1", 3); err != nil {
		t.Errorf("local slot not written: %v", err)
	}

	h.fake.Heal(remote.OpSaveGame)
	res, err = h.engine.SaveLocalThenCloud(ctx, "u1", artifact(3, "online"))
	if err != nil || res.CloudErr != nil {
		t.Fatalf("second save = %+v, %v", res, err)
	}
	if got := h.engine.LoadAuthoritative(ctx, "u1", 3); got.Artifact.Metadata.Title != "online" {
		t.Errorf("cloud title = %q", got.Artifact.Metadata.Title)
	}
}

func TestListAuthoritative_FreshnessWindow(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Seed("u1", artifact(1, "Save 1"))

	list, err := h.engine.ListAuthoritative(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Slot != 1 || list[0].Metadata.Title != "Save 1" {
		t.Fatalf("list = %+v", list)
	}

	h.clock.Advance(30 * time.Second)
	if _, err := h.engine.ListAuthoritative(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if got := h.fake.Calls(remote.OpListSaves); got != 1 {
		t.Fatalf("list_saves calls within 60s = %d, want 1", got)
	}

	h.clock.Advance(31 * time.Second)
	if _, err := h.engine.ListAuthoritative(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	if got := h.fake.Calls(remote.OpListSaves); got != 2 {
		t.Errorf("list_saves calls after 61s = %d, want 2", got)
	}
}

func TestListAuthoritative_ReplacesAndDropsDeletedSlots(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Seed("u1", artifact(1, "one"))
	h.fake.Seed("u1", artifact(2, "two"))

	h.engine.LoadAuthoritative(ctx, "u1", 1)
	h.engine.LoadAuthoritative(ctx, "u1", 2)
	if _, err := h.engine.ListAuthoritative(ctx, "u1"); err != nil {
		t.Fatal(err)
	}

	// another device deletes slot 2; the cached list expires
	h.fake.Remove("u1", 2)
	h.cache.Invalidate("u1", SavesListKey)

	list, err := h.engine.ListAuthoritative(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Slot != 1 {
		t.Fatalf("list = %+v, want only slot 1", list)
	}
	if diff := cmp.Diff([]string{SaveKey(1), SavesListKey}, h.cache.Keys("u1")); diff != "" {
		t.Errorf("cache keys (-want +got):\n%s", diff)
	}
}

func TestListAuthoritative_Failure(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.Fail(remote.OpListSaves, nil)

	if _, err := h.engine.ListAuthoritative(context.Background(), "u1"); !errors.Is(err, remote.ErrNetwork) {
		t.Errorf("error = %v, want ErrNetwork", err)
	}
	if keys := h.cache.Keys("u1"); len(keys) != 0 {
		t.Errorf("failed list cached: %v", keys)
	}
}

func TestListAuthoritative_CoalescesConcurrentFetches(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.Seed("u1", artifact(1, "one"))

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	h.fake.OnCall(remote.OpListSaves, func() {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-release
	})

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.engine.ListAuthoritative(context.Background(), "u1"); err != nil {
				t.Errorf("ListAuthoritative() error = %v", err)
			}
		}()
	}

	<-entered
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := h.fake.Calls(remote.OpListSaves); got != 1 {
		t.Errorf("list_saves calls = %d, want 1", got)
	}
}

func TestLoadAuthoritative_SharedCallOutlivesCancelledCaller(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.fake.Seed("u1", artifact(1, "cloud"))

	var once sync.Once
	entered := make(chan struct{})
	release := make(chan struct{})
	h.fake.OnCall(remote.OpLoadGame, func() {
		once.Do(func() { close(entered) })
		<-release
	})

	ctxA, cancelA := context.WithCancel(context.Background())
	resA := make(chan LoadResult, 1)
	go func() { resA <- h.engine.LoadAuthoritative(ctxA, "u1", 1) }()
	<-entered

	resB := make(chan LoadResult, 1)
	go func() { resB <- h.engine.LoadAuthoritative(context.Background(), "u1", 1) }()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	if a := <-resA; a.OK() || !errors.Is(a.Err, context.Canceled) {
		t.Errorf("cancelled caller = %+v, want context.Canceled", a)
	}
	close(release)

	b := <-resB
	if !b.OK() || b.Source != SourceCloud {
		t.Fatalf("live caller = %+v, want the cloud save", b)
	}
	if b.Artifact.Metadata.Title != "cloud" {
		t.Errorf("title = %q, want cloud", b.Artifact.Metadata.Title)
	}
}

func TestLoadAuthoritative_DropsCachedForeignSave(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	foreign := artifact(1, "theirs")
	foreign.OwnerID = "u2"
	h.cache.Set("u1", SaveKey(1), foreign)
	h.fake.Fail(remote.OpLoadGame, nil)

	res := h.engine.LoadAuthoritative(context.Background(), "u1", 1)
	if res.OK() {
		t.Fatalf("result = %+v, want no usable save", res)
	}
	if _, ok := h.cache.Get("u1", SaveKey(1)); ok {
		t.Error("foreign cached save kept")
	}
}

func TestIdentityIsolation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx := context.Background()
	h.fake.Seed("u1", artifact(1, "mine"))
	h.fake.Seed("u2", artifact(1, "yours"))

	if res := h.engine.LoadAuthoritative(ctx, "u1", 1); res.Artifact.Metadata.Title != "mine" {
		t.Fatalf("u1 load = %+v", res)
	}
	res := h.engine.LoadAuthoritative(ctx, "u2", 1)
	if res.Source != SourceCloud || res.Artifact.Metadata.Title != "yours" {
		t.Errorf("u2 load = %v %q, want its own cloud save", res.Source, res.Artifact.Metadata.Title)
	}
}
