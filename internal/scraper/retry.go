package scraper

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffSchedule maps a 1-based attempt index to the delay before the next
// attempt.
type BackoffSchedule func(attempt int) time.Duration

// ExponentialBackoff is the default schedule: 2^(attempt-1) seconds plus a
// sub-second random component so retries from concurrent operators do not
// synchronize.
func ExponentialBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
	jitter := time.Duration(rand.Int63n(int64(time.Second)))
	return base + jitter
}

// RetryPolicy composes the two axes of resilient fetching: how many rounds to
// try and how long to sleep between failed rounds. Host order is a separate
// concern carried by the URL list handed to FetchWithRetry.
type RetryPolicy struct {
	Attempts int
	Backoff  BackoffSchedule
}

func DefaultRetryPolicy(attempts int) RetryPolicy {
	return RetryPolicy{Attempts: attempts, Backoff: ExponentialBackoff}
}

// FetchWithRetry walks the candidate URLs in order for each attempt and
// returns the first HTML document retrieved. Failed attempts sleep per the
// backoff schedule. Both the per-URL fetch and the sleep observe ctx, so a
// cancelled run aborts mid-retry. When every attempt across every URL fails
// it returns ErrFetchFailed (ctx errors are returned as-is).
func (f *Fetcher) FetchWithRetry(ctx context.Context, urls []string, policy RetryPolicy) (string, error) {
	for attempt := 1; attempt <= policy.Attempts; attempt++ {
		for i, u := range urls {
			if err := ctx.Err(); err != nil {
				return "", err
			}

			f.logger.Info("fetching search page", "attempt", attempt, "max_attempts", policy.Attempts, "url", u)

			html, err := f.Fetch(ctx, u)
			if err == nil {
				return html, nil
			}

			if ctx.Err() != nil {
				return "", ctx.Err()
			}

			f.logger.Warn("fetch attempt failed", "attempt", attempt, "url", u, "error", err)

			// Back off after every failed fetch except the very last one,
			// where a sleep would only delay the FetchFailed verdict.
			if attempt == policy.Attempts && i == len(urls)-1 {
				break
			}

			if err := sleepCtx(ctx, policy.Backoff(attempt)); err != nil {
				return "", err
			}
		}
	}

	return "", ErrFetchFailed
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
