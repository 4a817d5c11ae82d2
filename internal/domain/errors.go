package domain

import (
	"errors"
	"fmt"
)

// Ledger sentinel errors. ErrDuplicateEvent is raised by the audit-entry
// uniqueness constraint and is the sole concurrency control for
// idempotency; ErrVersionConflict signals a lost compare-and-set race.
var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrDuplicateEvent  = errors.New("duplicate event")
	ErrVersionConflict = errors.New("version conflict")
)

// AuthenticationError rejects an event before any persistence. Not
// retryable without a secret fix.
type AuthenticationError struct {
	Reason string
}

func (e *AuthenticationError) Error() string {
	return "authentication failed: " + e.Reason
}

// MalformedEventError rejects an unparsable payload before any audit
// entry is written.
type MalformedEventError struct {
	Reason string
	Err    error
}

func (e *MalformedEventError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed event: %s: %v", e.Reason, e.Err)
	}
	return "malformed event: " + e.Reason
}

func (e *MalformedEventError) Unwrap() error { return e.Err }

// UnresolvableOwnerError marks an event permanently unprocessable: its
// payload carries no resolvable owner, and redelivery cannot supply one.
type UnresolvableOwnerError struct {
	EventID string
	Ref     string
}

func (e *UnresolvableOwnerError) Error() string {
	return fmt.Sprintf("event %s: no resolvable owner for %s", e.EventID, e.Ref)
}

// UnresolvableAggregateError marks an event that references an aggregate
// that cannot be located or lazily created from the payload.
type UnresolvableAggregateError struct {
	Kind string
	Key  string
}

func (e *UnresolvableAggregateError) Error() string {
	return fmt.Sprintf("unresolvable %s aggregate %q", e.Kind, e.Key)
}

// TransientStoreError wraps a Ledger failure that should be retried via
// redelivery.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("ledger store: %s: %v", e.Op, e.Err)
}

func (e *TransientStoreError) Unwrap() error { return e.Err }

// NotificationDeliveryError is logged and swallowed; it never affects the
// domain transition it is attached to.
type NotificationDeliveryError struct {
	UserID string
	Err    error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notification to %s failed: %v", e.UserID, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error { return e.Err }

// IsTerminal reports whether an error means the event can never be
// processed and must be skipped instead of retried.
func IsTerminal(err error) bool {
	var owner *UnresolvableOwnerError
	var agg *UnresolvableAggregateError
	return errors.As(err, &owner) || errors.As(err, &agg)
}

// IsRetryable reports whether redelivery of the event should re-attempt
// the reconciler.
func IsRetryable(err error) bool {
	var transient *TransientStoreError
	if errors.As(err, &transient) {
		return true
	}
	return errors.Is(err, ErrVersionConflict)
}
