package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of a rate limit check.
type Result struct {
	Limited   bool
	Remaining int
	Reset     time.Time
}

// Limiter provides sliding-window rate limit checks.
// A check that admits the caller records the attempt; a denied check records nothing.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}
