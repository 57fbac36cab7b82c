package ratelimit

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// inlineSweepThreshold enables an eviction pass during Check once this many keys are tracked.
// The pass runs at most once per window.
const inlineSweepThreshold = 1024

// MemoryLimiter implements a sliding-window in-memory rate limiter.
// Each key owns the ordered timestamps of its admitted attempts inside the window.
type MemoryLimiter struct {
	mu       sync.Mutex
	attempts  map[string][]time.Time
	window    time.Duration
	lastSweep time.Time
}

// NewMemoryLimiter constructs a MemoryLimiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		attempts: make(map[string][]time.Time),
	}
}

// Check prunes attempts older than now-window, then admits and records the attempt
// when fewer than limit remain. Prune, decide and append happen under one lock.
func (l *MemoryLimiter) Check(_ context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error) {
	if limit <= 0 || window <= 0 {
		return Result{}, nil
	}
	cutoff := now.Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.window = window
	if len(l.attempts) > inlineSweepThreshold && now.Sub(l.lastSweep) >= window {
		l.sweepLocked(cutoff)
		l.lastSweep = now
	}

	stamps := prune(l.attempts[key], cutoff)
	if len(stamps) >= limit {
		l.attempts[key] = stamps
		return Result{Limited: true, Remaining: 0, Reset: stamps[0].Add(window)}, nil
	}
	stamps = append(stamps, now)
	l.attempts[key] = stamps
	return Result{Limited: false, Remaining: limit - len(stamps), Reset: stamps[0].Add(window)}, nil
}

// Sweep evicts keys whose newest attempt has left the window. It returns the number of evicted keys.
func (l *MemoryLimiter) Sweep(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.window <= 0 {
		return 0
	}
	l.lastSweep = now
	return l.sweepLocked(now.Add(-l.window))
}

// Len returns the number of tracked keys.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.attempts)
}

// Run sweeps idle keys every interval until ctx is done.
func (l *MemoryLimiter) Run(ctx context.Context, interval time.Duration, nowFn func() time.Time) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if evicted := l.Sweep(nowFn()); evicted > 0 {
				log.WithField("evicted", evicted).Debug("rate limit: swept idle clients")
			}
		}
	}
}

// sweepLocked must be called with mu held.
func (l *MemoryLimiter) sweepLocked(cutoff time.Time) int {
	evicted := 0
	for key, stamps := range l.attempts {
		if len(stamps) == 0 || stamps[len(stamps)-1].Before(cutoff) {
			delete(l.attempts, key)
			evicted++
		}
	}
	return evicted
}

// prune drops leading timestamps older than cutoff, reusing the backing array.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(stamps) && stamps[idx].Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return stamps
	}
	n := copy(stamps, stamps[idx:])
	return stamps[:n]
}
