package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSessionNotFound is returned when a session is missing or expired
var ErrSessionNotFound = errors.New("capture session not found")

// DefaultSessionTTL bounds how long an idle session is kept
const DefaultSessionTTL = 10 * time.Minute

// SessionStore persists session state between requests
type SessionStore interface {
	Save(ctx context.Context, state SessionState) error
	Load(ctx context.Context, id string) (SessionState, error)
	Delete(ctx context.Context, id string) error
}

type memoryEntry struct {
	state     SessionState
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   Clock
	entries map[string]memoryEntry
}

// NewMemoryStore creates a store whose entries expire after ttl.
// A nil clock uses time.Now.
func NewMemoryStore(ttl time.Duration, clock Clock) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Save(_ context.Context, state SessionState) error {
	if state.ID == "" {
		return fmt.Errorf("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[state.ID] = memoryEntry{state: state, expiresAt: s.clock().Add(s.ttl)}
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return SessionState{}, ErrSessionNotFound
	}
	if !s.clock().Before(entry.expiresAt) {
		delete(s.entries, id)
		return SessionState{}, ErrSessionNotFound
	}
	return entry.state, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	return nil
}

// RedisStore keeps sessions in Redis so several server instances can share
// them.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

// NewRedisStore connects to addr and pings it
func NewRedisStore(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient wraps an existing client
func NewRedisStoreWithClient(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, keyPrefix: "maitre:session:", ttl: ttl}
}

func (s *RedisStore) key(id string) string { return s.keyPrefix + id }

func (s *RedisStore) Save(ctx context.Context, state SessionState) error {
	if state.ID == "" {
		return fmt.Errorf("session id is required")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state.ID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, id string) (SessionState, error) {
	data, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return SessionState{}, ErrSessionNotFound
	}
	if err != nil {
		return SessionState{}, fmt.Errorf("failed to load session: %w", err)
	}
	var state SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return SessionState{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return state, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var (
	_ SessionStore = (*MemoryStore)(nil)
	_ SessionStore = (*RedisStore)(nil)
)
