package ratelimit

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps counters in process memory. Counters reset on restart and
// are not shared between instances; use RedisStore for that.
type MemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(time.Minute, 5*time.Minute)}
}

func (s *MemoryStore) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.items.Add(key, int64(1), window); err == nil {
		return 1, nil
	}
	n, err := s.items.IncrementInt64(key, 1)
	if err != nil {
		// Expired between Add and Increment: start a new window.
		s.items.Set(key, int64(1), window)
		return 1, nil
	}
	return n, nil
}
