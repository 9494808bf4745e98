// Package cache persists in-progress opname sessions between requests.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"go-stock-ledger/internal/ledger"
)

// SessionStore keeps opname sessions by id. Load returns a fresh empty session
// when none is stored.
type SessionStore interface {
	Load(ctx context.Context, id string) (*ledger.Session, error)
	Save(ctx context.Context, s *ledger.Session) error
	Delete(ctx context.Context, id string) error
}

type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string][]byte)}
}

func (m *MemorySessionStore) Load(_ context.Context, id string) (*ledger.Session, error) {
	m.mu.Lock()
	raw, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return ledger.NewSession(id, ""), nil
	}
	return decode(raw)
}

func (m *MemorySessionStore) Save(_ context.Context, s *ledger.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.sessions[s.ID] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
	return nil
}

const sessionKeyPrefix = "opname:session:"

// RedisSessionStore shares sessions across server instances. Each save refreshes the TTL.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (c *RedisSessionStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisSessionStore) Load(ctx context.Context, id string) (*ledger.Session, error) {
	raw, err := c.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.NewSession(id, ""), nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (c *RedisSessionStore) Save(ctx context.Context, s *ledger.Session) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKeyPrefix+s.ID, payload, c.ttl).Err()
}

func (c *RedisSessionStore) Delete(ctx context.Context, id string) error {
	return c.client.Del(ctx, sessionKeyPrefix+id).Err()
}

func decode(raw []byte) (*ledger.Session, error) {
	var s ledger.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	if s.Lines == nil {
		s.Lines = make(map[string]ledger.PendingLine)
	}
	return &s, nil
}
