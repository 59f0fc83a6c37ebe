package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/wizard"
)

// DefaultTTL is how long an idle session survives.
const DefaultTTL = 30 * time.Minute

var (
	// ErrNotFound is returned for unknown or expired session ids.
	ErrNotFound = errors.New("session: not found")
	// ErrUnknownForm is returned when Create names a form the source lacks.
	ErrUnknownForm = errors.New("session: unknown form")
)

// Definitions resolves form ids to definitions. *catalog.Store satisfies it.
type Definitions interface {
	Definition(id string) (*wizard.Definition, bool)
}

// Observer is told when sessions open and close, typically for metrics.
type Observer interface {
	SessionOpened(formID string)
	SessionClosed(formID string, reason CloseReason)
}

// CloseReason says why a session went away.
type CloseReason string

const (
	ClosedDiscarded CloseReason = "discarded"
	ClosedExpired   CloseReason = "expired"
)

// Info is a snapshot of a session's bookkeeping.
type Info struct {
	ID        string    `json:"id"`
	FormID    string    `json:"formId"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

type entry struct {
	info Info
	ctrl *wizard.Controller
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager owns the live sessions.
type Manager struct {
	defs Definitions

	mu       sync.Mutex
	sessions map[string]*entry
	locks    map[string]*lockEntry

	ttl         time.Duration
	now         func() time.Time
	newID       func() string
	ctrlOptions []wizard.Option
	observer    Observer
	logger      *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithTTL sets the idle lifetime. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithIDGenerator overrides the uuid based session ids.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithControllerOptions are applied to every controller the manager creates
// (submitter, observer, logger).
func WithControllerOptions(options ...wizard.Option) Option {
	return func(m *Manager) {
		m.ctrlOptions = append(m.ctrlOptions, options...)
	}
}

// WithObserver registers session lifecycle hooks.
func WithObserver(observer Observer) Option {
	return func(m *Manager) {
		m.observer = observer
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager resolving forms through defs.
func NewManager(defs Definitions, opts ...Option) *Manager {
	m := &Manager{
		defs:     defs,
		sessions: make(map[string]*entry),
		locks:    make(map[string]*lockEntry),
		ttl:      DefaultTTL,
		now:      time.Now,
		newID:    uuid.NewString,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Create starts a session on formID.
func (m *Manager) Create(ctx context.Context, formID string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}
	if m.defs == nil {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownForm, formID)
	}
	def, ok := m.defs.Definition(formID)
	if !ok {
		return Info{}, fmt.Errorf("%w: %q", ErrUnknownForm, formID)
	}
	ctrl, err := wizard.New(def, m.ctrlOptions...)
	if err != nil {
		return Info{}, fmt.Errorf("session: create controller for %q: %w", formID, err)
	}

	now := m.now()
	info := Info{ID: m.newID(), FormID: formID, CreatedAt: now, LastSeen: now}

	m.mu.Lock()
	m.sessions[info.ID] = &entry{info: info, ctrl: ctrl}
	m.mu.Unlock()

	logging.LogWith(logging.WithSessionID(logging.WithFormID(ctx, formID), info.ID), m.logger).
		Debug("session created")
	if m.observer != nil {
		m.observer.SessionOpened(formID)
	}
	return info, nil
}

// Do runs fn with exclusive access to the session's controller. It refreshes
// the session's idle timer.
func (m *Manager) Do(ctx context.Context, id string, fn func(ctx context.Context, ctrl *wizard.Controller) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lock := m.acquire(id)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		m.release(id)
	}()

	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		e.info.LastSeen = m.now()
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	ctx = logging.WithSessionID(logging.WithFormID(ctx, e.info.FormID), id)
	return fn(ctx, e.ctrl)
}

// Info returns the bookkeeping of session id.
func (m *Manager) Info(id string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return Info{}, false
	}
	return e.info, true
}

// List returns the live sessions ordered by creation time.
func (m *Manager) List() []Info {
	m.mu.Lock()
	out := make([]Info, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, e.info)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Discard drops session id, waiting for any in-flight Do to finish.
func (m *Manager) Discard(ctx context.Context, id string) error {
	lock := m.acquire(id)
	lock.mu.Lock()
	defer func() {
		lock.mu.Unlock()
		m.release(id)
	}()

	m.mu.Lock()
	e, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	logging.LogWith(logging.WithSessionID(logging.WithFormID(ctx, e.info.FormID), id), m.logger).
		Debug("session discarded")
	if m.observer != nil {
		m.observer.SessionClosed(e.info.FormID, ClosedDiscarded)
	}
	return nil
}

// Sweep drops sessions idle for longer than the TTL and returns how many
// were removed. Sessions with an action in flight are left alone.
func (m *Manager) Sweep() int {
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []Info
	for id, e := range m.sessions {
		if _, busy := m.locks[id]; busy {
			continue
		}
		if e.info.LastSeen.Before(cutoff) {
			expired = append(expired, e.info)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, info := range expired {
		m.logger.Debug("session expired", "session_id", info.ID, "form_id", info.FormID)
		if m.observer != nil {
			m.observer.SessionClosed(info.FormID, ClosedExpired)
		}
	}
	return len(expired)
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 2
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Info("expired sessions swept", "count", n)
			}
		}
	}
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu and call release after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[id]
	if !ok {
		e = &lockEntry{}
		m.locks[id] = e
	}
	e.refs++
	return e
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.locks, id)
	}
}
