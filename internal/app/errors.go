package app

import (
	"errors"
	"fmt"
)

// ErrConcurrencyConflict is returned when a write lost to a concurrent
// writer. The loser's computed state is discarded; the next sweep reconciles.
var ErrConcurrencyConflict = errors.New("concurrency conflict")

// PolicyLookupError reports that the policy backing store could not be read.
type PolicyLookupError struct {
	PolicyID string // empty for the default policy
	Err      error
}

func (e *PolicyLookupError) Error() string {
	id := e.PolicyID
	if id == "" {
		id = "default"
	}
	return fmt.Sprintf("policy lookup %s: %v", id, e.Err)
}

func (e *PolicyLookupError) Unwrap() error { return e.Err }

// ConfigurationError describes a policy or directory problem that causes a
// rule or escalation level to be skipped.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "configuration: " + e.Reason
}

// NotificationError reports a failed escalation send. No ledger record is
// kept for it, so the level is retried on the next sweep.
type NotificationError struct {
	WorkItemID string
	Level      int
	Err        error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s level %d: %v", e.WorkItemID, e.Level, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }
