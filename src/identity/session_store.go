package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionRecord is the server-side half of a session. Deleting it revokes the JWT.
type SessionRecord struct {
	ID        string    `json:"id"`
	SubjectID uuid.UUID `json:"subject_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore keeps live sessions with a sliding idle timeout
type SessionStore interface {
	Create(ctx context.Context, rec SessionRecord, idle time.Duration) error
	// Touch refreshes the idle timeout and returns the record, or nil when it is gone.
	Touch(ctx context.Context, id string, idle time.Duration) (*SessionRecord, error)
	Delete(ctx context.Context, id string) error
}

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps sessions in redis, expiring them after the idle timeout
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore connects to redisURL and verifies the connection
func NewRedisSessionStore(ctx context.Context, redisURL string) (*RedisSessionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisSessionStore{client: client}, nil
}

// NewRedisSessionStoreFromClient wraps an existing client
func NewRedisSessionStoreFromClient(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

// Close closes the redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// Health pings redis
func (s *RedisSessionStore) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisSessionStore) Create(ctx context.Context, rec SessionRecord, idle time.Duration) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+rec.ID, data, idle).Err(); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Touch(ctx context.Context, id string, idle time.Duration) (*SessionRecord, error) {
	data, err := s.client.GetEx(ctx, sessionKeyPrefix+id, idle).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var rec SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &rec, nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// MemorySessionStore is an in-process SessionStore for tests and single-node development
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	rec      SessionRecord
	deadline time.Time
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]memorySession), now: time.Now}
}

// SetClock overrides the store's clock
func (s *MemorySessionStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Len returns the number of live sessions
func (s *MemorySessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, sess := range s.sessions {
		if s.now().Before(sess.deadline) {
			n++
		}
	}
	return n
}

func (s *MemorySessionStore) Create(ctx context.Context, rec SessionRecord, idle time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = memorySession{rec: rec, deadline: s.now().Add(idle)}
	return nil
}

func (s *MemorySessionStore) Touch(ctx context.Context, id string, idle time.Duration) (*SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	now := s.now()
	if !now.Before(sess.deadline) {
		delete(s.sessions, id)
		return nil, nil
	}
	sess.deadline = now.Add(idle)
	s.sessions[id] = sess
	rec := sess.rec
	return &rec, nil
}

func (s *MemorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

var (
	_ SessionStore = (*RedisSessionStore)(nil)
	_ SessionStore = (*MemorySessionStore)(nil)
)
