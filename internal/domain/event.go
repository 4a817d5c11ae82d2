package domain

import (
	"time"
)

type EventType string

const (
	EventIntentSucceeded      EventType = "intent.succeeded"
	EventIntentFailed         EventType = "intent.failed"
	EventChargeRefunded       EventType = "charge.refunded"
	EventDisputeCreated       EventType = "dispute.created"
	EventDisputeClosed        EventType = "dispute.closed"
	EventSubscriptionCreated  EventType = "subscription.created"
	EventSubscriptionUpdated  EventType = "subscription.updated"
	EventSubscriptionDeleted  EventType = "subscription.deleted"
	EventInvoicePaid          EventType = "invoice.paid"
	EventInvoicePaymentFailed EventType = "invoice.payment_failed"
	EventPayoutCreated        EventType = "payout.created"
	EventPayoutFailed         EventType = "payout.failed"
	EventAccountUpdated       EventType = "account.updated"

	// EventUnknown is the forward-compatibility variant: a received but
	// unrecognized type is acknowledged, never failed.
	EventUnknown EventType = "unknown"
)

// DomainEvent is the typed form of one processor notification. Exactly
// one payload pointer is set, matching Type; EventUnknown carries none.
type DomainEvent struct {
	ID         string
	Type       EventType
	RawType    string
	OccurredAt time.Time

	Intent       *IntentPayload
	Refund       *RefundPayload
	Dispute      *DisputePayload
	Subscription *SubscriptionPayload
	Invoice      *InvoicePayload
	Payout       *PayoutPayload
	Account      *AccountPayload
}

// All payload amounts are integer minor units as delivered by the
// processor; conversion to fixed-point major units happens once, inside
// the reconcilers.

type IntentPayload struct {
	IntentID       string            `json:"id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	FailureMessage string            `json:"failure_message"`
	Metadata       map[string]string `json:"metadata"`
}

type RefundPayload struct {
	IntentID       string `json:"payment_intent"`
	Amount         int64  `json:"amount"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
}

type DisputePayload struct {
	DisputeID string `json:"id"`
	IntentID  string `json:"payment_intent"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
	Outcome   string `json:"outcome"`
}

type SubscriptionPayload struct {
	SubscriptionID    string            `json:"id"`
	CustomerID        string            `json:"customer"`
	Status            string            `json:"status"`
	PlanType          string            `json:"plan_type"`
	PeriodStart       int64             `json:"current_period_start"`
	PeriodEnd         int64             `json:"current_period_end"`
	CancelAtPeriodEnd bool              `json:"cancel_at_period_end"`
	Metadata          map[string]string `json:"metadata"`
}

type InvoiceLinePayload struct {
	Description string `json:"description"`
	Total       int64  `json:"amount"`
}

type InvoicePayload struct {
	InvoiceID       string               `json:"id"`
	SubscriptionID  string               `json:"subscription"`
	PaymentIntentID string               `json:"payment_intent"`
	AmountPaid      int64                `json:"amount_paid"`
	Currency        string               `json:"currency"`
	Lines           []InvoiceLinePayload `json:"lines"`
	FailureMessage  string               `json:"failure_message"`
}

type PayoutPayload struct {
	PayoutID       string            `json:"id"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	DestinationID  string            `json:"destination"`
	FailureMessage string            `json:"failure_message"`
	Metadata       map[string]string `json:"metadata"`
}

type AccountPayload struct {
	AccountID        string `json:"id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	DisabledReason   string `json:"disabled_reason"`
	AccountType      string `json:"account_type"`
}
