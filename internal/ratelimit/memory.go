package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	sweepInterval  = time.Minute
	staleThreshold = 10 * time.Minute
)

// bucket tracks one key's remaining tokens. Refill happens lazily on
// access, so an idle bucket costs nothing until the sweeper drops it.
type bucket struct {
	tokens     float64
	lastAccess time.Time
}

// take refills the bucket for the time elapsed since the last access,
// capped at capacity, then tries to consume one token.
func (b *bucket) take(now time.Time, rate, capacity float64) bool {
	b.tokens += now.Sub(b.lastAccess).Seconds() * rate
	if b.tokens > capacity {
		b.tokens = capacity
	}
	b.lastAccess = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// MemoryLimiter is a per-key token bucket held in process memory. A
// background sweeper drops keys idle past staleThreshold so the map stays
// bounded by the active client set.
type MemoryLimiter struct {
	rate     float64 // tokens added per second
	capacity float64 // maximum tokens per bucket

	mu      sync.Mutex
	buckets map[string]*bucket

	stopOnce sync.Once
	done     chan struct{}
}

// NewMemoryLimiter creates a limiter sustaining rate requests per second
// per key with the given burst capacity. Call Close to stop the sweeper.
func NewMemoryLimiter(rate float64, burst int) *MemoryLimiter {
	m := &MemoryLimiter{
		rate:     rate,
		capacity: float64(burst),
		buckets:  make(map[string]*bucket),
		done:     make(chan struct{}),
	}
	go m.sweep()
	return m
}

// Allow consumes one token from key's bucket, reporting whether one was
// available. A key's first request starts from a full bucket.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	b, ok := m.buckets[key]
	if !ok {
		m.buckets[key] = &bucket{tokens: m.capacity - 1, lastAccess: now}
		return true, nil
	}
	return b.take(now, m.rate, m.capacity), nil
}

// Close stops the sweeper goroutine. Safe to call multiple times.
func (m *MemoryLimiter) Close() error {
	m.stopOnce.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLimiter) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.evictStale()
		}
	}
}

func (m *MemoryLimiter) evictStale() {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-staleThreshold)
	for key, b := range m.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
