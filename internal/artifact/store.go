package artifact

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store keeps combined label documents for a limited time.
type Store interface {
	Put(ctx context.Context, id string, content string, ttl time.Duration) error
	Get(ctx context.Context, id string) (string, error)
	Close() error
}

var ErrNotFound = errors.New("artifact not found or expired")

const redisKeyPrefix = "primelabel:artifact:"

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(ctx context.Context, opts *redis.Options) (Store, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) Put(ctx context.Context, id string, content string, ttl time.Duration) error {
	if err := s.client.Set(ctx, redisKeyPrefix+id, content, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store artifact: %w", err)
	}
	return nil
}

func (s *redisStore) Get(ctx context.Context, id string) (string, error) {
	content, err := s.client.Get(ctx, redisKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to load artifact: %w", err)
	}
	return content, nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

type memEntry struct {
	content   string
	expiresAt time.Time
}

type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

func NewMemStore() Store {
	return &memStore{entries: make(map[string]memEntry), now: time.Now}
}

func (s *memStore) Put(_ context.Context, id string, content string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	// просроченные удаляем при записи
	for key, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
	s.entries[id] = memEntry{content: content, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memStore) Get(_ context.Context, id string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok || !s.now().Before(entry.expiresAt) {
		return "", ErrNotFound
	}
	return entry.content, nil
}

func (s *memStore) Close() error { return nil }
