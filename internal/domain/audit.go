package domain

import (
	"time"
)

type AuditOutcome string

const (
	AuditOutcomePending   AuditOutcome = "PENDING"
	AuditOutcomeSucceeded AuditOutcome = "SUCCEEDED"
	AuditOutcomeFailed    AuditOutcome = "FAILED"
	AuditOutcomeSkipped   AuditOutcome = "SKIPPED"
)

// EventAuditEntry is append-only and keyed by the external event id. The
// uniqueness constraint on EventID is what makes processing idempotent;
// entries are never deleted (financial retention).
type EventAuditEntry struct {
	EventID    string       `json:"event_id" db:"event_id"`
	Type       string       `json:"type" db:"type"`
	ReceivedAt time.Time    `json:"received_at" db:"received_at"`
	Outcome    AuditOutcome `json:"outcome" db:"outcome"`
	Message    string       `json:"message" db:"message"`
}
