// internal/adapter/storage/trend_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"membitpulse/internal/domain/trend"
)

// ErrNoSnapshot is returned when no fresh snapshot is available
var ErrNoSnapshot = errors.New("no trends snapshot available")

// MemoryTrendStore keeps the last upstream trends response in process memory
type MemoryTrendStore struct {
	mu      sync.RWMutex
	ttl     time.Duration
	resp    *trend.Response
	savedAt time.Time
	now     func() time.Time
}

// NewMemoryTrendStore creates a new in-memory trend store
func NewMemoryTrendStore(ttl time.Duration) *MemoryTrendStore {
	return &MemoryTrendStore{ttl: ttl, now: time.Now}
}

// Save replaces the stored snapshot
func (s *MemoryTrendStore) Save(_ context.Context, resp trend.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resp = &resp
	s.savedAt = s.now()
	return nil
}

// Latest returns the stored snapshot while it is younger than the TTL
func (s *MemoryTrendStore) Latest(_ context.Context) (*trend.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.resp == nil || (s.ttl > 0 && s.now().Sub(s.savedAt) > s.ttl) {
		return nil, ErrNoSnapshot
	}
	out := *s.resp
	return &out, nil
}

// RedisTrendStore keeps the last upstream trends response in Redis so that
// several instances share it
type RedisTrendStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisTrendStore connects to Redis at url and verifies the connection
func NewRedisTrendStore(ctx context.Context, url, key string, ttl time.Duration) (*RedisTrendStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisTrendStore{client: client, key: key, ttl: ttl}, nil
}

// Save stores the snapshot with the configured TTL
func (s *RedisTrendStore) Save(ctx context.Context, resp trend.Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Latest loads the snapshot, returning ErrNoSnapshot when it has expired
func (s *RedisTrendStore) Latest(ctx context.Context) (*trend.Response, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var resp trend.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	return &resp, nil
}

// Close releases the Redis connection pool
func (s *RedisTrendStore) Close() error {
	return s.client.Close()
}
