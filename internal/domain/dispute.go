package domain

import (
	"time"
)

type DisputeStatus string

const (
	DisputeStatusOpen   DisputeStatus = "OPEN"
	DisputeStatusClosed DisputeStatus = "CLOSED"
)

const DisputeOutcomeLost = "lost"

// DisputeCase is linked 1:1 to a PaymentRecord.
type DisputeCase struct {
	ID         string        `json:"id" db:"id"`
	PaymentID  string        `json:"payment_id" db:"payment_id"`
	ExternalID string        `json:"external_id" db:"external_id"`
	Reason     string        `json:"reason" db:"reason"`
	Status     DisputeStatus `json:"status" db:"status"`
	Outcome    string        `json:"outcome" db:"outcome"`
	Version    int64         `json:"version" db:"version"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}
