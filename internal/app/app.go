// Package app wires the save sync components into one service container and
// exposes the lifecycle points a game host calls: Start at launch, Tick on
// its own clock, ProgressChanged on every tracked mutation and Shutdown on
// exit.
//
// Everything is constructed once in New and reached through the App value;
// there is no package level state.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/autosave"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/cache"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/config"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/identity"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/localsave"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/metrics"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/session"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/storage"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/syncengine"
)

// ErrClosed is returned by operations on an App after Shutdown.
var ErrClosed = errors.New("app is shut down")

// Options configures an App. Zero values select the configured defaults.
type Options struct {
	// Client replaces the HTTP client built from config.
	Client remote.Client
	// Backend replaces the cache backend named in config.
	Backend  cache.Backend
	Notifier syncengine.Notifier
	Logger   *zap.Logger
	// Registerer receives the metrics collectors. Nil leaves them
	// unregistered.
	Registerer prometheus.Registerer
	// Now is the clock used by the cache and sessions.
	Now func() time.Time
	// WatchIdentity follows the identity file for changes made by other
	// processes.
	WatchIdentity bool
}

// StartResult reports what Start managed to do. Nothing in it is fatal.
type StartResult struct {
	Identity string
	// Session is the new session id, "" when the service refused one.
	Session  string
	Load     syncengine.LoadResult
	Progress remote.ProgressRecord
	// ProgressErr is set when the stored progress could not be fetched.
	ProgressErr error
}

// App is the save sync service container.
type App struct {
	cfg     config.Config
	dataDir string
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	identity *identity.Resolver
	cache    *cache.Store
	client   remote.Client
	local    *localsave.Store
	engine   *syncengine.Engine
	autosave *autosave.Scheduler

	busy atomic.Bool

	// sessMu serializes session restarts.
	sessMu sync.Mutex

	mu          sync.Mutex
	session  *session.Manager
	progress pendingProgress
	started  bool
	closed   bool

	watchIdentity bool
	restart       chan struct{}
	ctx           context.Context
	cancel        context.CancelFunc
	bg            sync.WaitGroup

	shutdown sync.Once
}

// New builds an App from cfg. It opens the cache backend and prepares every
// component but makes no network calls.
func New(cfg config.Config, optFns ...func(o *Options)) (*App, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := log.OrNop(opts.Logger)

	dataDir, err := storage.DataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	m := metrics.New(opts.Registerer)

	client := opts.Client
	if client == nil {
		hc, err := remote.NewHTTPClient(cfg.ServerURL, func(o *remote.HTTPOptions) {
			o.Timeout = cfg.Remote.Timeout
			o.RateLimit = cfg.Remote.RateLimit
			o.Burst = cfg.Remote.Burst
			o.Logger = logger.Named("remote")
			o.Metrics = m
		})
		if err != nil {
			return nil, fmt.Errorf("create remote client: %w", err)
		}
		client = hc
	}

	backend := opts.Backend
	if backend == nil {
		backend, err = OpenBackend(cfg.Cache, dataDir, logger.Named("badger"))
		if err != nil {
			return nil, fmt.Errorf("open %s cache: %w", cfg.Cache.Backend, err)
		}
	}

	store := cache.New(backend, func(o *cache.Options) {
		o.Freshness = cfg.Cache.Freshness
		o.StaleAfter = cfg.Cache.StaleAfter
		o.Now = opts.Now
		o.Logger = logger
		o.Metrics = m
	})
	local := localsave.New(dataDir)

	engine := syncengine.New(store, client, func(o *syncengine.Options) {
		o.Local = local
		o.Notifier = opts.Notifier
		o.Logger = logger
		o.Metrics = m
	})

	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		cfg:      cfg,
		dataDir:  dataDir,
		logger:   logger,
		metrics:  m,
		now:      opts.Now,
		identity: identity.NewResolver(dataDir, func(o *identity.Options) {
			o.Injected = cfg.Identity
			o.Logger = logger
		}),
		cache:         store,
		client:        client,
		local:         local,
		engine:        engine,
		watchIdentity: opts.WatchIdentity,
		restart:       make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
	}
	a.session = a.newSession()
	a.autosave = autosave.New(a.pushProgress, func(o *autosave.Options) {
		o.Debounce = cfg.Autosave.Debounce
		o.Interval = cfg.Autosave.Interval
		o.Busy = a.busy.Load
		o.Logger = logger
		o.Metrics = m
	})
	a.identity.OnChange(a.identityChanged)

	return a, nil
}

func (a *App) newSession() *session.Manager {
	return session.NewManager(a.client, func(o *session.Options) {
		o.Now = a.now
		o.Logger = a.logger
	})
}

// DataDir returns the resolved data directory.
func (a *App) DataDir() string { return a.dataDir }

// Identity returns the active identity.
func (a *App) Identity() (string, bool) { return a.identity.Resolve() }

// Resolver exposes the identity resolver.
func (a *App) Resolver() *identity.Resolver { return a.identity }

// Cache exposes the cache store.
func (a *App) Cache() *cache.Store { return a.cache }

// Local exposes the on-disk slot store.
func (a *App) Local() *localsave.Store { return a.local }

// Client returns the remote client in use.
func (a *App) Client() remote.Client { return a.client }

// Config returns the configuration the App was built from.
func (a *App) Config() config.Config { return a.cfg }

// Engine exposes the sync engine.
func (a *App) Engine() *syncengine.Engine { return a.engine }

// Session returns the current session manager.
func (a *App) Session() *session.Manager {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session
}

// Start resolves the identity, opens a session and loads the configured
// slot and the stored progress in parallel, then starts autosave. Failures
// are reported in the result; the game continues regardless.
func (a *App) Start(ctx context.Context) (StartResult, error) {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return StartResult{}, ErrClosed
	}
	if a.started {
		a.mu.Unlock()
		return StartResult{}, errors.New("app already started")
	}
	a.started = true
	sess := a.session
	a.mu.Unlock()

	id, ok := a.identity.Resolve()
	res := StartResult{Identity: id}

	if ok {
		var g errgroup.Group
		g.Go(func() error {
			a.sessMu.Lock()
			defer a.sessMu.Unlock()
			if err := sess.Start(ctx, id); err == nil {
				res.Session = sess.SessionID()
			}
			return nil
		})
		g.Go(func() error {
			res.Load = a.engine.LoadAuthoritative(ctx, id, a.cfg.Autosave.Slot)
			return nil
		})
		g.Go(func() error {
			res.Progress, res.ProgressErr = a.engine.LoadProgress(ctx, id)
			return nil
		})
		_ = g.Wait()
	} else {
		res.Load = syncengine.LoadResult{Err: syncengine.ErrNoIdentity}
		a.logger.Info("no identity yet, running without cloud sync")
	}

	a.autosave.Start(a.ctx)

	a.bg.Add(1)
	go a.restartLoop()

	if a.watchIdentity {
		done, err := a.identity.Watch(a.ctx)
		if err != nil {
			a.logger.Warn("identity watcher unavailable", zap.Error(err))
		} else {
			a.bg.Add(1)
			go func() {
				defer a.bg.Done()
				<-done
			}()
		}
	}

	return res, nil
}

// Tick runs one interval autosave. Hosts that own the frame clock call it
// instead of configuring autosave.interval.
func (a *App) Tick() {
	a.autosave.Tick()
}

// SetBusy marks the application as busy (a modal, a scene transition).
// Autosave does not fire while busy.
func (a *App) SetBusy(busy bool) {
	a.busy.Store(busy)
}

// pendingProgress is the latest unsent record and the identity it was
// recorded for.
type pendingProgress struct {
	owner string
	rec   remote.ProgressRecord
	set   bool
}

// ProgressChanged records the latest progress for the active identity and
// re-arms the debounce timer of source.
func (a *App) ProgressChanged(source string, rec remote.ProgressRecord) {
	id, _ := a.identity.Resolve()

	a.mu.Lock()
	a.progress = pendingProgress{owner: id, rec: rec, set: true}
	a.mu.Unlock()

	a.autosave.Track(source).Changed()
}

// pushProgress is the autosave SaveFunc.
func (a *App) pushProgress(ctx context.Context, trigger autosave.Trigger) error {
	a.mu.Lock()
	p := a.progress
	a.mu.Unlock()
	return a.pushPending(ctx, trigger, p)
}

// pushPending sends p under its owner, and only while the owner is still
// the active identity.
func (a *App) pushPending(ctx context.Context, trigger autosave.Trigger, p pendingProgress) error {
	if !p.set {
		return nil
	}
	if p.owner == "" {
		return syncengine.ErrNoIdentity
	}
	if id, _ := a.identity.Resolve(); id != p.owner {
		a.logger.Debug("dropping progress of inactive identity",
			zap.String("owner", p.owner), zap.String("active", id))
		return nil
	}

	res, err := a.engine.UpdateProgress(ctx, p.owner, p.rec)
	if err != nil {
		return err
	}
	a.logger.Debug("progress pushed",
		zap.String("trigger", string(trigger)),
		zap.Bool("skipped", res.Skipped),
		zap.Float64("percentage", res.Percentage))
	return nil
}

// FlushProgress pushes the latest progress now, ignoring Busy.
func (a *App) FlushProgress(ctx context.Context) error {
	return a.autosave.Flush(ctx)
}

// Progress returns the percentage the service last reported for the active
// identity.
func (a *App) Progress() (float64, bool) {
	id, ok := a.identity.Resolve()
	if !ok {
		return 0, false
	}
	return a.engine.DisplayedProgress(id)
}

// LoadProgress returns the stored progress record of the active identity.
func (a *App) LoadProgress(ctx context.Context) (remote.ProgressRecord, error) {
	id, _ := a.identity.Resolve()
	return a.engine.LoadProgress(ctx, id)
}

// SaveGame writes art to its local slot and then to the service.
func (a *App) SaveGame(ctx context.Context, art remote.SaveArtifact) (syncengine.SaveResult, error) {
	id, _ := a.identity.Resolve()
	return a.engine.SaveLocalThenCloud(ctx, id, art)
}

// LoadGame returns the save in slot for the active identity.
func (a *App) LoadGame(ctx context.Context, slot int) syncengine.LoadResult {
	id, _ := a.identity.Resolve()
	return a.engine.LoadAuthoritative(ctx, id, slot)
}

// ListSaves returns the saves of the active identity.
func (a *App) ListSaves(ctx context.Context) ([]remote.SaveSummary, error) {
	id, _ := a.identity.Resolve()
	return a.engine.ListAuthoritative(ctx, id)
}

// SwitchIdentity makes id active. The previous identity's cache entries and
// progress fingerprint are dropped before SwitchIdentity returns, then the
// session is restarted for id.
func (a *App) SwitchIdentity(ctx context.Context, id string) error {
	if err := a.identity.SetIdentity(id); err != nil {
		return err
	}
	return a.restartSession(ctx)
}

// Logout clears the identity and ends the session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.identity.Clear(); err != nil {
		return err
	}
	return a.restartSession(ctx)
}

// identityChanged runs synchronously inside the resolver, before anything
// can read on behalf of current.
func (a *App) identityChanged(previous, current string) {
	a.cache.OnIdentityChanged(previous, current)
	a.engine.ForgetIdentity(previous)

	a.mu.Lock()
	a.progress = pendingProgress{}
	a.mu.Unlock()

	// sessions of watcher-driven changes restart in the background
	select {
	case a.restart <- struct{}{}:
	default:
	}
}

func (a *App) restartLoop() {
	defer a.bg.Done()
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-a.restart:
			if err := a.restartSession(a.ctx); err != nil {
				a.logger.Debug("session restart failed", zap.Error(err))
			}
		}
	}
}

// restartSession ends the current session unless it already belongs to the
// active identity, and starts a new one for it.
func (a *App) restartSession(ctx context.Context) error {
	a.sessMu.Lock()
	defer a.sessMu.Unlock()

	a.mu.Lock()
	if !a.started || a.closed {
		a.mu.Unlock()
		return nil
	}
	cur := a.session
	a.mu.Unlock()

	id, ok := a.identity.Resolve()
	if s, active := cur.Current(); active && s.Identity == id {
		return nil
	}

	cur.End(ctx)
	next := a.newSession()
	a.mu.Lock()
	a.session = next
	a.mu.Unlock()

	if !ok {
		return nil
	}
	return next.Start(ctx, id)
}

// Shutdown stops autosave, makes a best-effort final progress save, ends
// the session and closes the cache. Later calls return nil.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.shutdown.Do(func() {
		a.autosave.Stop()
		if ferr := a.autosave.Flush(ctx); ferr != nil {
			a.logger.Debug("final progress save failed", zap.Error(ferr))
		}

		a.mu.Lock()
		a.closed = true
		a.mu.Unlock()

		a.cancel()
		a.bg.Wait()

		a.sessMu.Lock()
		a.Session().End(ctx)
		a.sessMu.Unlock()

		err = a.cache.Close()
	})
	return err
}
