// Package retry provides the single retry-with-backoff primitive shared by
// every network call site.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Default policy values.
const (
	DefaultMaxAttempts = 4
	DefaultInitialWait = 1 * time.Second
	DefaultMaxWait     = 10 * time.Second
	DefaultMultiplier  = 2.0
	DefaultJitterFrac  = 0.25
)

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	MaxAttempts int           // total attempts including the first
	InitialWait time.Duration // wait before the second attempt
	MaxWait     time.Duration // ceiling for any single wait
	Multiplier  float64       // wait growth factor per attempt
	JitterFrac  float64       // +/- fraction of the wait randomized away

	// OnRetry, when set, runs after each retryable failure that will be
	// attempted again. Callers use it to count retries.
	OnRetry func(attempt int, err error)
}

// DefaultPolicy returns the standard schedule used for RPC traffic.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		InitialWait: DefaultInitialWait,
		MaxWait:     DefaultMaxWait,
		Multiplier:  DefaultMultiplier,
		JitterFrac:  DefaultJitterFrac,
	}
}

// Do runs fn until it succeeds, returns a non-retryable error, or the policy
// is exhausted. retryable decides which errors are worth another attempt;
// everything else is returned immediately. On exhaustion the last error is
// returned wrapped, so callers can still classify it with errors.Is.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.InitialWait <= 0 {
		p.InitialWait = DefaultInitialWait
	}
	if p.MaxWait <= 0 {
		p.MaxWait = DefaultMaxWait
	}
	if p.Multiplier < 1 {
		p.Multiplier = DefaultMultiplier
	}

	wait := p.InitialWait
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(jittered(wait, p.JitterFrac)):
			}
			wait = time.Duration(float64(wait) * p.Multiplier)
			if wait > p.MaxWait {
				wait = p.MaxWait
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		if retryable == nil || !retryable(err) {
			return err
		}
		lastErr = err
		if attempt < p.MaxAttempts && p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}
	}

	return fmt.Errorf("retries exhausted after %d attempts: %w", p.MaxAttempts, lastErr)
}

// jittered spreads a wait by +/- frac to avoid synchronized retry storms.
func jittered(d time.Duration, frac float64) time.Duration {
	if frac <= 0 {
		return d
	}
	delta := float64(d) * frac
	return time.Duration(float64(d) - delta + 2*delta*rand.Float64())
}
