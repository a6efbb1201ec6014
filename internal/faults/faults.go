// Package faults defines the error taxonomy shared across pipeline phases.
// Each type maps to a distinct propagation policy: upstream failures are
// retryable and abort the phase, everything else is recorded per subnet and
// processing continues.
package faults

import (
	"errors"
	"fmt"
)

// UpstreamError indicates the registry API (or another upstream) could not be
// reached or answered with a server-side failure. Retryable.
type UpstreamError struct {
	Endpoint   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream unavailable: %s returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("upstream unavailable: %s: %v", e.Endpoint, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is transient (network error or 5xx).
// 4xx responses are permanent and must not be retried.
func (e *UpstreamError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// MalformedResponseError indicates an external collaborator returned data
// violating its schema contract. Never retried.
type MalformedResponseError struct {
	Source string
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %s", e.Source, e.Detail)
}

// CrawlError is a per-subnet, non-fatal crawl failure. Reconciliation
// degrades to an empty link set and other subnets are unaffected.
type CrawlError struct {
	URL string
	Err error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl failed for %s: %v", e.URL, e.Err)
}

func (e *CrawlError) Unwrap() error { return e.Err }

// TimeoutError marks a collaborator call that exceeded its deadline. The
// affected operation is recorded as failed for that subnet only.
type TimeoutError struct {
	Operation string
	Err       error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("collaborator timeout during %s: %v", e.Operation, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// IntegrityError flags a locally detected inconsistency, such as a stored
// overall score disagreeing with its weighted formula. Never silently
// accepted.
type IntegrityError struct {
	Subject string
	Detail  string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity violation in %s: %s", e.Subject, e.Detail)
}

// IsRetryable reports whether err should be handed back to the retry policy.
func IsRetryable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Retryable()
	}
	var te *TimeoutError
	return errors.As(err, &te)
}
