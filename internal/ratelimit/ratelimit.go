package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Limiter throttles consecutive operations against the marketplace.
type Limiter interface {
	Wait(ctx context.Context) error
}

// JitteredLimiter sleeps a random duration in [minDelay, maxDelay] between
// operations so the request cadence does not look machine-generated. The
// first Wait of a run returns immediately.
type JitteredLimiter struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	mu         sync.Mutex
}

func NewJitteredLimiter(minDelay, maxDelay time.Duration) *JitteredLimiter {
	return &JitteredLimiter{
		minDelay: minDelay,
		maxDelay: maxDelay,
	}
}

func (l *JitteredLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lastAction.IsZero() {
		elapsed := time.Since(l.lastAction)
		delay := l.delay()

		if elapsed < delay {
			timer := time.NewTimer(delay - elapsed)
			defer timer.Stop()

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
			}
		}
	}

	l.lastAction = time.Now()
	return nil
}

func (l *JitteredLimiter) delay() time.Duration {
	if l.maxDelay <= l.minDelay {
		return l.minDelay
	}
	return l.minDelay + time.Duration(rand.Int63n(int64(l.maxDelay-l.minDelay)))
}
