package capture

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// Manager loads, updates and saves sessions around each engine event.
// Events for the same session are serialized in this process; sessions
// share a fixed set of lock stripes.
type Manager struct {
	store SessionStore
	gate  GateConfig
	locks [lockStripes]sync.Mutex
}

func NewManager(store SessionStore, gate GateConfig) *Manager {
	return &Manager{store: store, gate: gate}
}

// GateConfig returns the gate settings new sessions use
func (m *Manager) GateConfig() GateConfig { return m.gate }

func (m *Manager) stripe(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &m.locks[h.Sum32()%lockStripes]
}

func (m *Manager) lock(id string) func() {
	mu := m.stripe(id)
	mu.Lock()
	return mu.Unlock
}

// Create starts a new listening session. An empty mode uses the configured
// one; granted reports the microphone permission the client obtained.
func (m *Manager) Create(ctx context.Context, mode string, granted bool) (SessionState, Result, error) {
	cfg := m.gate
	if mode != "" {
		cfg.Mode = mode
	}
	gate, err := NewGate(cfg)
	if err != nil {
		return SessionState{}, Result{}, err
	}
	s := NewSession(gate)
	startErr := s.Start(ctx, StaticPermission(granted))
	if err := m.store.Save(ctx, s.Snapshot()); err != nil {
		return SessionState{}, Result{}, err
	}
	return s.Snapshot(), s.result(nil), startErr
}

// Handle applies evt to the stored session
func (m *Manager) Handle(ctx context.Context, id string, evt Event) (Result, error) {
	return m.update(ctx, id, func(s *Session) (Result, error) {
		s.Expire()
		return s.Handle(evt), nil
	})
}

// Start resumes listening on a stored session. Permission is only asked
// again when retry is set or it was never settled.
func (m *Manager) Start(ctx context.Context, id string, granted, retry bool) (Result, error) {
	return m.update(ctx, id, func(s *Session) (Result, error) {
		var err error
		if retry {
			err = s.RetryPermission(ctx, StaticPermission(granted))
		} else {
			err = s.Start(ctx, StaticPermission(granted))
		}
		return s.result(nil), err
	})
}

// Stop ends listening and drops any partial command
func (m *Manager) Stop(ctx context.Context, id string) (Result, error) {
	return m.update(ctx, id, func(s *Session) (Result, error) {
		return s.Stop(), nil
	})
}

// Delete removes the session
func (m *Manager) Delete(ctx context.Context, id string) error {
	unlock := m.lock(id)
	defer unlock()
	return m.store.Delete(ctx, id)
}

func (m *Manager) update(ctx context.Context, id string, fn func(*Session) (Result, error)) (Result, error) {
	unlock := m.lock(id)
	defer unlock()

	state, err := m.store.Load(ctx, id)
	if err != nil {
		return Result{}, err
	}
	s, err := RestoreSession(state, m.gate)
	if err != nil {
		return Result{}, fmt.Errorf("restore session %s: %w", id, err)
	}

	res, fnErr := fn(s)
	if err := m.store.Save(ctx, s.Snapshot()); err != nil {
		return Result{}, err
	}
	return res, fnErr
}
