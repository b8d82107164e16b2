package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrClosed is returned by WaitReady once the Manager has been closed.
var ErrClosed = errors.New("session: manager closed")

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for absorbed failures.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRecorder sets the lifecycle observer, usually a metrics collector.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		if r != nil {
			m.rec = r
		}
	}
}

// Manager owns the process-wide session state. It mirrors the provider's
// session into State and the snapshot cache, and fans transitions out to
// subscribers.
//
// Every transition holds applyMu for its whole run, is dropped once the
// Manager is closed, and updates the cache before the new State is published.
type Manager struct {
	provider Provider
	cache    Cache
	logger   *slog.Logger
	rec      Recorder

	// applyMu serializes transitions end to end: cache write, publish, notify.
	applyMu sync.Mutex
	// writes counts transitions applied from events and sign-out. A bootstrap
	// result that resolves after any of them is stale.
	writes uint64
	closed bool

	mu    sync.RWMutex
	state State

	subsMu  sync.Mutex
	subs    map[uint64]func(State)
	nextSub uint64

	ready     chan struct{}
	readyOnce sync.Once

	sub       Subscription
	cancel    context.CancelFunc
	done      chan struct{}
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a Manager, registers its change listener with the provider and
// starts the one bootstrap lookup in the background.
func New(provider Provider, cache Cache, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		provider: provider,
		cache:    cache,
		logger:   slog.Default(),
		rec:      nopRecorder{},
		subs:     make(map[uint64]func(State)),
		ready:    make(chan struct{}),
		cancel:   cancel,
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	sub := provider.OnSessionChange(func(event Event, user *User) {
		m.handleEvent(ctx, event, user)
	})
	m.applyMu.Lock()
	m.sub = sub
	m.applyMu.Unlock()

	go m.bootstrap(ctx)

	return m
}

func (m *Manager) bootstrap(ctx context.Context) {
	defer close(m.done)

	user, err := m.provider.CurrentSession(ctx)
	if err != nil {
		// Resolves toward "require login".
		m.logger.Error("session bootstrap failed", "error", err)
		user = nil
	}
	user = user.Clone()

	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	if m.closed {
		return
	}

	m.rec.BootstrapResolved(user != nil, err)

	if m.writes > 0 {
		m.logger.Debug("session bootstrap superseded by newer change", "writes", m.writes)
		m.publishLocked(m.currentUser(), true)
		return
	}

	m.mirrorLocked(ctx, user)
	m.publishLocked(user, true)
	m.rec.SessionChanged("bootstrap", user != nil)
}

func (m *Manager) handleEvent(ctx context.Context, event Event, user *User) {
	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	if m.closed {
		return
	}

	m.logger.Debug("session change", "event", string(event), "signed_in", user != nil)

	m.writes++
	user = user.Clone()
	m.mirrorLocked(ctx, user)
	m.publishLocked(user, m.IsReady())
	m.rec.SessionChanged("event", user != nil)
}

// LogOut signs the user out of the provider and clears local state. Provider
// failures are logged and never returned: the local session is cleared
// either way. After Close only the provider call is made.
func (m *Manager) LogOut(ctx context.Context) error {
	if err := m.provider.SignOut(ctx); err != nil {
		m.logger.Warn("provider sign-out failed, clearing local session anyway", "error", err)
		m.rec.SignOutFailed()
	}

	m.applyMu.Lock()
	defer m.applyMu.Unlock()

	if m.closed {
		return nil
	}

	m.writes++
	m.mirrorLocked(context.WithoutCancel(ctx), nil)
	m.publishLocked(nil, m.IsReady())
	m.rec.SessionChanged("logout", false)
	return nil
}

// mirrorLocked writes or removes the cached snapshot. Failures are absorbed.
func (m *Manager) mirrorLocked(ctx context.Context, user *User) {
	if m.cache == nil {
		return
	}

	if user == nil {
		if err := m.cache.Remove(ctx, CacheKey); err != nil {
			m.logger.Warn("failed to remove cached session", "key", CacheKey, "error", err)
			m.rec.CacheFailed("remove")
		}
		return
	}

	b, err := encodeUser(user)
	if err != nil {
		m.logger.Warn("failed to encode session snapshot", "error", err)
		m.rec.CacheFailed("put")
		return
	}
	if err := m.cache.Put(ctx, CacheKey, b); err != nil {
		m.logger.Warn("failed to cache session", "key", CacheKey, "error", err)
		m.rec.CacheFailed("put")
	}
}

// publishLocked swaps the state and notifies subscribers. Caller holds applyMu.
func (m *Manager) publishLocked(user *User, ready bool) {
	m.mu.Lock()
	m.state = State{User: user, IsReady: m.state.IsReady || ready}
	st := m.snapshotLocked()
	m.mu.Unlock()

	if st.IsReady {
		m.readyOnce.Do(func() { close(m.ready) })
	}

	m.subsMu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for id := uint64(1); id <= m.nextSub; id++ {
		if fn, ok := m.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	m.subsMu.Unlock()

	for _, fn := range fns {
		fn(State{User: st.User.Clone(), IsReady: st.IsReady})
	}
}

func (m *Manager) snapshotLocked() State {
	return State{User: m.state.User.Clone(), IsReady: m.state.IsReady}
}

func (m *Manager) currentUser() *User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.User
}

// State returns a copy of the current session state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked()
}

// User returns a copy of the current user, nil when signed out or not ready.
func (m *Manager) User() *User {
	return m.State().User
}

// IsReady reports whether the bootstrap lookup has resolved.
func (m *Manager) IsReady() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.IsReady
}

// Ready returns a channel that is closed once the Manager is ready.
func (m *Manager) Ready() <-chan struct{} {
	return m.ready
}

// WaitReady blocks until the Manager is ready, ctx is done or it is closed.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-m.closing:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers fn to be called with the new State after every
// transition. Calls are serialized and in order. fn must not call LogOut or
// Close synchronously. The returned function removes the subscription and
// may be called more than once.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	m.subsMu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subs[id] = fn
	m.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subsMu.Lock()
			delete(m.subs, id)
			m.subsMu.Unlock()
		})
	}
}

// Close releases the provider subscription and stops the bootstrap lookup.
// It blocks until the bootstrap goroutine has exited. No state changes are
// applied after Close returns. Safe to call more than once.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.applyMu.Lock()
		m.closed = true
		sub := m.sub
		m.applyMu.Unlock()

		close(m.closing)

		if sub != nil {
			sub.Unsubscribe()
		}
		m.cancel()
		<-m.done

		m.subsMu.Lock()
		clear(m.subs)
		m.subsMu.Unlock()
	})
}
