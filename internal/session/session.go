// Package session manages the advisory play session opened against the
// remote service.
//
// Sessions are telemetry, not a correctness gate: a failed start leaves the
// manager in NotStarted and saves proceed without a session id.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/log"
	"github.com/zyrenemanungay/FILIBUSTERO-sub000/internal/remote"
)

// State is the lifecycle state of a Manager.
type State int

const (
	NotStarted State = iota
	Active
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Active:
		return "active"
	case Ended:
		return "ended"
	default:
		return "unknown"
	}
}

// ErrNotStartable is returned by Start when the manager is not in NotStarted.
var ErrNotStartable = errors.New("session already started")

// Session is an open play session.
type Session struct {
	ID        string
	Identity  string
	StartedAt time.Time
}

// Remote is the subset of remote.Client used by the manager.
type Remote interface {
	StartSession(ctx context.Context, identity string) (string, error)
	EndSession(ctx context.Context, sessionID string) error
}

var _ Remote = (remote.Client)(nil)

// Options configures a Manager.
type Options struct {
	Now    func() time.Time
	Logger *zap.Logger
}

// Manager drives one session through NotStarted -> Active -> Ended.
// Use one Manager per identity per process; start a new Manager to open a
// new session after Ended.
type Manager struct {
	remote Remote
	now    func() time.Time
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	current Session
}

// NewManager returns a manager in NotStarted.
func NewManager(r Remote, optFns ...func(o *Options)) *Manager {
	opts := Options{Now: time.Now}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Manager{
		remote: r,
		now:    opts.Now,
		logger: log.OrNop(opts.Logger).Named("session"),
	}
}

// Start requests a session id for identity. On failure the manager stays in
// NotStarted and the error is returned for inspection only.
func (m *Manager) Start(ctx context.Context, identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != NotStarted {
		return fmt.Errorf("start session in state %s: %w", m.state, ErrNotStartable)
	}
	if identity == "" {
		return errors.New("start session: identity is required")
	}

	id, err := m.remote.StartSession(ctx, identity)
	if err != nil {
		m.logger.Warn("session start failed, continuing without session",
			zap.String("identity", identity), zap.Error(err))
		return fmt.Errorf("start session: %w", err)
	}

	m.current = Session{ID: id, Identity: identity, StartedAt: m.now()}
	m.state = Active
	m.logger.Debug("session started", zap.String("identity", identity), zap.String("session", id))
	return nil
}

// End closes an active session: the state moves to Ended and the id is
// cleared whatever the remote outcome. On any other state End is a no-op.
func (m *Manager) End(ctx context.Context) {
	m.mu.Lock()
	if m.state != Active {
		m.mu.Unlock()
		return
	}
	s := m.current
	m.current = Session{}
	m.state = Ended
	m.mu.Unlock()

	if err := m.remote.EndSession(ctx, s.ID); err != nil {
		m.logger.Debug("session end notify failed", zap.String("session", s.ID), zap.Error(err))
		return
	}
	m.logger.Debug("session ended",
		zap.String("session", s.ID), zap.Duration("duration", m.now().Sub(s.StartedAt)))
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Current returns the active session.
func (m *Manager) Current() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.state == Active
}

// SessionID returns the active session id, or "" when there is none.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.ID
}
