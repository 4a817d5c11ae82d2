package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentStatusPending           PaymentStatus = "PENDING"
	PaymentStatusCompleted         PaymentStatus = "COMPLETED"
	PaymentStatusFailed            PaymentStatus = "FAILED"
	PaymentStatusDisputed          PaymentStatus = "DISPUTED"
	PaymentStatusPartiallyRefunded PaymentStatus = "PARTIALLY_REFUNDED"
	PaymentStatusRefunded          PaymentStatus = "REFUNDED"
)

type LinkKind string

const (
	LinkDelivery     LinkKind = "delivery"
	LinkService      LinkKind = "service"
	LinkSubscription LinkKind = "subscription"
)

// PaymentRecord is the aggregate for one processor payment intent.
// Amount is immutable after creation; RefundedAmount stays within
// [0, Amount]; Status only moves along the reconciler transition table.
type PaymentRecord struct {
	ID             string          `json:"id" db:"id"`
	IntentID       string          `json:"intent_id" db:"intent_id"`
	UserID         string          `json:"user_id" db:"user_id"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Currency       string          `json:"currency" db:"currency"`
	Status         PaymentStatus   `json:"status" db:"status"`
	RefundedAmount decimal.Decimal `json:"refunded_amount" db:"refunded_amount"`
	ErrorMessage   string          `json:"error_message" db:"error_message"`
	LinkKind       LinkKind        `json:"link_kind" db:"link_kind"`
	LinkID         string          `json:"link_id" db:"link_id"`
	Metadata       json.RawMessage `json:"metadata" db:"metadata"`
	Version        int64           `json:"version" db:"version"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// Refundable reports whether a refund event may apply to the record.
func (p *PaymentRecord) Refundable() bool {
	return p.Status != PaymentStatusFailed
}
