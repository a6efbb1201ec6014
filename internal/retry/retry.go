// Package retry provides the single retry policy shared by the registry
// client and the research/scoring agent calls. Call sites differ only in
// which errors they treat as retryable.
package retry

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Policy describes bounded retries with exponential backoff.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Retryable decides whether a failure is transient. A nil predicate
	// retries everything.
	Retryable func(error) bool
}

// DefaultPolicy returns the conservative policy used by network call sites.
func DefaultPolicy(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts:  3,
		InitialDelay: 2 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		Retryable:    retryable,
	}
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. It stops
// early on context cancellation or a non-retryable error and returns the last
// error observed.
func (p Policy) Do(ctx context.Context, name string, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.InitialDelay
	var err error

	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		logrus.Warnf("%s failed (attempt %d/%d), retrying in %v: %v", name, attempt, attempts, delay, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * p.Multiplier)
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}

	return err
}
