package ratelimit

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryThrottle keeps failure counts in process. Counts are lost on restart
// and not shared between replicas.
type MemoryThrottle struct {
	counts *gocache.Cache
	max    int
	window time.Duration
}

func NewMemoryThrottle(max int, window time.Duration) *MemoryThrottle {
	window = windowOrDefault(window)
	return &MemoryThrottle{
		counts: gocache.New(window, time.Minute),
		max:    max,
		window: window,
	}
}

func (t *MemoryThrottle) Blocked(_ context.Context, email string) (bool, error) {
	value, ok := t.counts.Get(normalizeKey(email))
	if !ok {
		return false, nil
	}
	hits, _ := value.(int)
	return hits >= t.max, nil
}

func (t *MemoryThrottle) RecordFailure(_ context.Context, email string) error {
	key := normalizeKey(email)
	if err := t.counts.Add(key, 1, t.window); err == nil {
		return nil
	}
	_, err := t.counts.IncrementInt(key, 1)
	if err != nil {
		// Expired between Add and IncrementInt.
		return t.counts.Add(key, 1, t.window)
	}
	return nil
}

func (t *MemoryThrottle) Reset(_ context.Context, email string) error {
	t.counts.Delete(normalizeKey(email))
	return nil
}
