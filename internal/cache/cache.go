package cache

import (
	"context"
	"sync"
	"time"
)

// AttemptCounter counts events per key inside a fixed window that starts with
// the first event. It backs the login limiter.
type AttemptCounter interface {
	// Hit records one event for key and returns the count in the current window.
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

type MemoryAttemptCounter struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryAttemptCounter() *MemoryAttemptCounter {
	return &MemoryAttemptCounter{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (c *MemoryAttemptCounter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.entries[key]
	if !ok || !now.Before(entry.expiresAt) {
		entry = memoryEntry{expiresAt: now.Add(window)}
	}
	entry.count++
	c.entries[key] = entry

	if len(c.entries) > 4096 {
		for k, e := range c.entries {
			if !now.Before(e.expiresAt) {
				delete(c.entries, k)
			}
		}
	}
	return entry.count, nil
}

func (c *MemoryAttemptCounter) Reset(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}
