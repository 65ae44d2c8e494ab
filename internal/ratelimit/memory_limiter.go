package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// MemoryLimiter keeps sliding windows in process memory. It serves single-instance
// deployments and the Redis fallback.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string][]time.Time
	log     *slog.Logger
	now     func() time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns an empty in-memory limiter.
func NewMemoryLimiter(log *slog.Logger) *MemoryLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &MemoryLimiter{
		windows: make(map[string][]time.Time),
		log:     log,
		now:     time.Now,
	}
}

// Check admits the request when fewer than limit requests were admitted during window.
// Rejected requests are not recorded.
func (m *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	hits := dropBefore(m.windows[key], now.Add(-window))
	result := &Result{ResetAt: now.Add(window)}
	if len(hits) > 0 {
		result.ResetAt = hits[0].Add(window)
	}

	if len(hits) < limit {
		hits = append(hits, now)
		result.Allowed = true
		result.Remaining = limit - len(hits)
	}
	m.windows[key] = hits

	return result, nil
}

// Cleanup forgets keys without requests during the last maxAge and reports how many.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) int {
	if maxAge <= 0 {
		return 0
	}
	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, hits := range m.windows {
		if len(hits) == 0 || hits[len(hits)-1].Before(cutoff) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}

// dropBefore removes the sorted prefix of hits older than start, reusing the backing array.
func dropBefore(hits []time.Time, start time.Time) []time.Time {
	n := 0
	for n < len(hits) && hits[n].Before(start) {
		n++
	}
	if n == 0 {
		return hits
	}
	return append(hits[:0], hits[n:]...)
}
