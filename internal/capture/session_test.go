package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRequester struct{}

func (failingRequester) RequestPermission(context.Context) (bool, error) {
	return false, errors.New("prompt closed")
}

func newSession(t *testing.T) *Session {
	t.Helper()
	return NewSession(newKeywordGate(t))
}

func TestSessionPermission(t *testing.T) {
	ctx := context.Background()

	t.Run("denial is terminal until retried", func(t *testing.T) {
		s := newSession(t)
		assert.Equal(t, PermissionUnknown, s.Permission())

		err := s.Start(ctx, StaticPermission(false))
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, PermissionDenied, s.Permission())
		assert.False(t, s.Listening())

		err = s.Start(ctx, StaticPermission(true))
		assert.ErrorIs(t, err, ErrPermissionDenied)

		require.NoError(t, s.RetryPermission(ctx, StaticPermission(true)))
		assert.Equal(t, PermissionGranted, s.Permission())
		assert.True(t, s.Listening())
	})

	t.Run("permission asked once", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.Start(ctx, StaticPermission(true)))
		s.Stop()
		// a second start never consults the requester
		require.NoError(t, s.Start(ctx, failingRequester{}))
	})

	t.Run("requester error", func(t *testing.T) {
		s := newSession(t)
		err := s.Start(ctx, failingRequester{})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrPermissionDenied)
		assert.Equal(t, PermissionUnknown, s.Permission())
	})
}

func TestSessionHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("results produce commands", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.Start(ctx, StaticPermission(true)))

		res := s.Handle(Event{Type: EventResult, Fragments: []Fragment{
			final("system mark order 4"),
			final("as done over"),
		}})
		assert.Equal(t, []string{"mark order 4 as done"}, res.Commands)
		assert.Equal(t, StateWaitingForKeyword, res.State)
		assert.Empty(t, res.Display)
	})

	t.Run("results ignored when not listening", func(t *testing.T) {
		s := newSession(t)
		res := s.Handle(Event{Type: EventResult, Fragments: []Fragment{final("system show orders over")}})
		assert.Empty(t, res.Commands)
	})

	t.Run("error stops and drops partial command", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.Start(ctx, StaticPermission(true)))
		s.Handle(Event{Type: EventResult, Fragments: []Fragment{final("system cancel order")}})

		res := s.Handle(Event{Type: EventError, Error: ErrorNoSpeech})
		assert.False(t, res.Listening)
		assert.Equal(t, StatusText(ErrorNoSpeech), res.Status)
		assert.Equal(t, StateWaitingForKeyword, res.State)

		require.NoError(t, s.Start(ctx, nil))
		res = s.Handle(Event{Type: EventResult, Fragments: []Fragment{final("twelve over")}})
		assert.Empty(t, res.Commands)
	})

	t.Run("not-allowed error denies permission", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.Start(ctx, StaticPermission(true)))
		s.Handle(Event{Type: EventError, Error: ErrorNotAllowed})
		assert.Equal(t, PermissionDenied, s.Permission())
		assert.ErrorIs(t, s.Start(ctx, StaticPermission(true)), ErrPermissionDenied)
	})

	t.Run("end stops listening", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.Start(ctx, StaticPermission(true)))
		res := s.Handle(Event{Type: EventEnd})
		assert.False(t, res.Listening)
	})

	t.Run("stop discards buffer", func(t *testing.T) {
		s := newSession(t)
		require.NoError(t, s.Start(ctx, StaticPermission(true)))
		s.Handle(Event{Type: EventResult, Fragments: []Fragment{final("system mark order 3")}})

		res := s.Stop()
		assert.False(t, res.Listening)
		assert.Equal(t, StateWaitingForKeyword, res.State)
		assert.Empty(t, s.Snapshot().Gate.Buffer)
	})

	t.Run("unknown error code", func(t *testing.T) {
		assert.Contains(t, StatusText("bad-grammar"), "bad-grammar")
	})
}

func TestSessionRestore(t *testing.T) {
	ctx := context.Background()
	s := newSession(t)
	require.NoError(t, s.Start(ctx, StaticPermission(true)))
	s.Handle(Event{Type: EventResult, Fragments: []Fragment{final("system set order 9")}})

	restored, err := RestoreSession(s.Snapshot(), DefaultGateConfig())
	require.NoError(t, err)
	assert.Equal(t, s.ID, restored.ID)
	assert.True(t, restored.Listening())

	res := restored.Handle(Event{Type: EventResult, Fragments: []Fragment{final("to pending over")}})
	assert.Equal(t, []string{"set order 9 to pending"}, res.Commands)
}

func TestSessionExpireActivation(t *testing.T) {
	now := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	cfg := DefaultGateConfig()
	cfg.Mode = ModeActivation
	cfg.Clock = func() time.Time { return now }

	gate, err := NewGate(cfg)
	require.NoError(t, err)
	s := NewSession(gate)
	require.NoError(t, s.Start(context.Background(), StaticPermission(true)))

	res := s.Handle(Event{Type: EventResult, Fragments: []Fragment{final("hey system")}})
	assert.Equal(t, StateListeningForCommand, res.State)

	now = now.Add(time.Minute)
	assert.True(t, s.Expire())
	assert.Equal(t, "Waiting for the keyword...", s.Status())
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC)
	store := NewMemoryStore(time.Minute, func() time.Time { return now })

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Error(t, store.Save(ctx, SessionState{}))

	state := newSession(t).Snapshot()
	require.NoError(t, store.Save(ctx, state))

	got, err := store.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ID, got.ID)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, state.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, store.Save(ctx, state))
	require.NoError(t, store.Delete(ctx, state.ID))
	_, err = store.Load(ctx, state.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// Set MAITRE_TEST_REDIS_ADDR to run against a live server
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("MAITRE_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MAITRE_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	store, err := NewRedisStore(ctx, addr, "", 0, time.Minute)
	require.NoError(t, err)
	defer store.Close()

	state := newSession(t).Snapshot()
	require.NoError(t, store.Save(ctx, state))

	got, err := store.Load(ctx, state.ID)
	require.NoError(t, err)
	assert.Equal(t, state.ID, got.ID)
	assert.Equal(t, state.Gate.Mode, got.Gate.Mode)

	require.NoError(t, store.Delete(ctx, state.ID))
	_, err = store.Load(ctx, state.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStoreUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	store := NewRedisStoreWithClient(client, 0)
	defer store.Close()

	_, err := store.Load(context.Background(), "abc")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrSessionNotFound)
}

func TestManager(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Minute, nil), DefaultGateConfig())

	state, res, err := m.Create(ctx, "", true)
	require.NoError(t, err)
	assert.True(t, res.Listening)

	res, err = m.Handle(ctx, state.ID, Event{Type: EventResult, Fragments: []Fragment{final("system show pending")}})
	require.NoError(t, err)
	assert.Equal(t, StateListeningForCommand, res.State)

	res, err = m.Handle(ctx, state.ID, Event{Type: EventResult, Fragments: []Fragment{final("orders over")}})
	require.NoError(t, err)
	assert.Equal(t, []string{"show pending orders"}, res.Commands)

	res, err = m.Stop(ctx, state.ID)
	require.NoError(t, err)
	assert.False(t, res.Listening)

	res, err = m.Start(ctx, state.ID, true, false)
	require.NoError(t, err)
	assert.True(t, res.Listening)

	require.NoError(t, m.Delete(ctx, state.ID))
	_, err = m.Handle(ctx, state.ID, Event{Type: EventEnd})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, _, err = m.Create(ctx, "push-to-talk", true)
	assert.Error(t, err)

	t.Run("denied on create", func(t *testing.T) {
		state, res, err := m.Create(ctx, ModeActivation, false)
		assert.ErrorIs(t, err, ErrPermissionDenied)
		assert.False(t, res.Listening)
		assert.Equal(t, ModeActivation, state.Gate.Mode)

		_, err = m.Start(ctx, state.ID, true, false)
		assert.ErrorIs(t, err, ErrPermissionDenied)

		res, err = m.Start(ctx, state.ID, true, true)
		require.NoError(t, err)
		assert.True(t, res.Listening)
	})
}

func TestManagerUnknownSessionsShareLocks(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Minute, nil), DefaultGateConfig())

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("missing-%d", i)
		_, err := m.Handle(ctx, id, Event{Type: EventEnd})
		require.ErrorIs(t, err, ErrSessionNotFound)

		mu := m.stripe(id)
		assert.Same(t, mu, m.stripe(id))
	}

	// every stripe is free again
	for i := range m.locks {
		require.True(t, m.locks[i].TryLock())
		m.locks[i].Unlock()
	}
}

func TestManagerConcurrentEvents(t *testing.T) {
	ctx := context.Background()
	m := NewManager(NewMemoryStore(time.Minute, nil), DefaultGateConfig())
	state, _, err := m.Create(ctx, "", true)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Stop(ctx, state.ID)
			assert.NoError(t, err)
			_, err = m.Start(ctx, state.ID, true, false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	res, err := m.Start(ctx, state.ID, true, false)
	require.NoError(t, err)
	assert.True(t, res.Listening)
}
