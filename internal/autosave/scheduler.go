// Package autosave decides when progress is pushed to the service.
//
// Two triggers drive a SaveFunc:
//
//   - change: each tracked source owns a debounce Timer that every change
//     re-arms, so a burst of changes produces one save after it settles
//   - interval: a fixed period ticker, independent of the debounce timers
//
// Neither trigger saves while the Busy predicate reports true (e.g. during a
// scene transition). A debounced save that hits a busy application is
// re-armed; an interval tick that does is skipped.
package autosave

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/metrics"
)

const (
	DefaultDebounce = 2 * time.Second
	DefaultInterval = 30 * time.Second
)

// Trigger names what caused a save.
type Trigger string

const (
	TriggerChange   Trigger = "change"
	TriggerInterval Trigger = "interval"
	TriggerFlush    Trigger = "flush"
)

// Outcomes recorded per trigger.
const (
	outcomeSaved   = "saved"
	outcomeFailed  = "failed"
	outcomeBusy    = "busy"
	outcomeRearmed = "rearmed"
)

// SaveFunc performs one save.
type SaveFunc func(ctx context.Context, trigger Trigger) error

// Options configures a Scheduler.
type Options struct {
	// Debounce is the quiet period after a change. Zero means DefaultDebounce.
	Debounce time.Duration
	// Interval is the period of the interval trigger. Zero disables it.
	Interval time.Duration
	// Busy reports whether saving must be deferred.
	Busy    func() bool
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Scheduler owns the debounce timers and the interval loop.
type Scheduler struct {
	save    SaveFunc
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics

	mu      sync.Mutex
	fields  map[string]*Field
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	stopped bool

	loop sync.WaitGroup
}

// Field is a tracked progress source.
type Field struct {
	name  string
	s     *Scheduler
	timer *Timer
}

// New returns a scheduler calling save. Call Start to enable the interval
// trigger; debounced changes work from construction.
func New(save SaveFunc, optFns ...func(o *Options)) *Scheduler {
	opts := Options{Debounce: DefaultDebounce}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Busy == nil {
		opts.Busy = func() bool { return false }
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		save:    save,
		opts:    opts,
		logger:  log.OrNop(opts.Logger).Named("autosave"),
		metrics: opts.Metrics,
		fields:  make(map[string]*Field),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Track returns the Field for source, creating it on first use.
func (s *Scheduler) Track(source string) *Field {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.fields[source]; ok {
		return f
	}
	f := &Field{name: source, s: s}
	f.timer = NewTimer(s.opts.Debounce, f.fire)
	if s.stopped {
		f.timer.Stop()
	}
	s.fields[source] = f
	return f
}

// Sources lists the tracked sources, sorted.
func (s *Scheduler) Sources() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.fields))
	for n := range s.fields {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Name returns the source name.
func (f *Field) Name() string { return f.name }

// Changed records a mutation and re-arms the debounce timer.
func (f *Field) Changed() {
	f.timer.Reset()
}

// Pending reports whether a debounced save is waiting.
func (f *Field) Pending() bool {
	return f.timer.Pending()
}

func (f *Field) fire() {
	s := f.s
	if s.opts.Busy() {
		s.metrics.AutosaveFired(string(TriggerChange), outcomeRearmed)
		s.logger.Debug("busy, deferring debounced save", zap.String("source", f.name))
		f.timer.Reset()
		return
	}
	s.run(TriggerChange, f.name)
}

// Start launches the interval loop. Starting twice, or after Stop, does
// nothing. The loop ends when ctx is done or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started || s.stopped || s.opts.Interval <= 0 {
		s.started = true
		return
	}
	s.started = true

	s.loop.Add(1)
	go s.intervalLoop(ctx, s.opts.Interval)
}

func (s *Scheduler) intervalLoop(ctx context.Context, every time.Duration) {
	defer s.loop.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick runs the interval trigger once, unless the application is busy.
// Hosts that drive their own clock call it instead of setting Interval.
func (s *Scheduler) Tick() {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	if s.opts.Busy() {
		s.metrics.AutosaveFired(string(TriggerInterval), outcomeBusy)
		return
	}
	s.run(TriggerInterval, "")
}

func (s *Scheduler) run(trigger Trigger, source string) {
	if err := s.save(s.ctx, trigger); err != nil {
		s.metrics.AutosaveFired(string(trigger), outcomeFailed)
		s.logger.Debug("autosave failed",
			zap.String("trigger", string(trigger)), zap.String("source", source), zap.Error(err))
		return
	}
	s.metrics.AutosaveFired(string(trigger), outcomeSaved)
}

// Flush cancels pending debounced saves and performs one save now, ignoring
// Busy. It is the final save at shutdown.
func (s *Scheduler) Flush(ctx context.Context) error {
	for _, f := range s.snapshot() {
		f.timer.Cancel()
	}
	err := s.save(ctx, TriggerFlush)
	outcome := outcomeSaved
	if err != nil {
		outcome = outcomeFailed
	}
	s.metrics.AutosaveFired(string(TriggerFlush), outcome)
	return err
}

// Stop cancels all timers and the interval loop and waits for running saves
// to return. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.cancel()
	s.mu.Unlock()

	s.loop.Wait()
	for _, f := range s.snapshot() {
		f.timer.Stop()
	}
}

func (s *Scheduler) snapshot() []*Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Field, 0, len(s.fields))
	for _, f := range s.fields {
		out = append(out, f)
	}
	return out
}
