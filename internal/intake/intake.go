package intake

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/domain"
)

// EventSource selects the authentication strategy at construction time.
// It is never inferred from ambient environment state.
type EventSource string

const (
	// SourceVerified requires a valid HMAC signature on every payload.
	SourceVerified EventSource = "verified"
	// SourceTrustedTest bypasses signature checks for simulated event
	// injection in non-production contexts.
	SourceTrustedTest EventSource = "trusted-test"
)

// Authenticator validates transport-level authenticity and parses raw
// payloads into the closed set of typed events.
type Authenticator struct {
	source EventSource
	secret []byte
	logger zerolog.Logger
}

func New(source EventSource, secret string, logger zerolog.Logger) *Authenticator {
	return &Authenticator{
		source: source,
		secret: []byte(secret),
		logger: logger.With().Str("component", "intake").Logger(),
	}
}

type envelope struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    json.RawMessage `json:"data"`
}

// Parse authenticates the payload and decodes it into a DomainEvent.
// Authentication and parse failures happen before any persistence; the
// caller must not write an audit entry for a rejected payload.
func (a *Authenticator) Parse(body []byte, signature string) (*domain.DomainEvent, error) {
	if a.source == SourceVerified {
		if err := a.verifySignature(body, signature); err != nil {
			return nil, err
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.MalformedEventError{Reason: "invalid envelope", Err: err}
	}
	if env.ID == "" {
		return nil, &domain.MalformedEventError{Reason: "missing event id"}
	}
	if env.Type == "" {
		return nil, &domain.MalformedEventError{Reason: "missing event type"}
	}

	event := &domain.DomainEvent{
		ID:         env.ID,
		RawType:    env.Type,
		OccurredAt: time.Unix(env.Created, 0).UTC(),
	}
	if env.Created == 0 {
		event.OccurredAt = time.Now().UTC()
	}

	if err := decodePayload(event, env); err != nil {
		return nil, err
	}
	return event, nil
}

func (a *Authenticator) verifySignature(body []byte, signature string) error {
	if len(a.secret) == 0 {
		return &domain.AuthenticationError{Reason: "no signing secret configured"}
	}
	if signature == "" {
		return &domain.AuthenticationError{Reason: "missing signature header"}
	}

	provided, err := hex.DecodeString(signature)
	if err != nil {
		return &domain.AuthenticationError{Reason: "signature is not valid hex"}
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(body)
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return &domain.AuthenticationError{Reason: "signature mismatch"}
	}
	return nil
}

func decodePayload(event *domain.DomainEvent, env envelope) error {
	switch domain.EventType(env.Type) {
	case domain.EventIntentSucceeded, domain.EventIntentFailed:
		var p domain.IntentPayload
		if err := unmarshalData(env, &p); err != nil {
			return err
		}
		if p.IntentID == "" {
			return &domain.MalformedEventError{Reason: "intent payload missing id"}
		}
		if p.Amount < 0 {
			return &domain.MalformedEventError{Reason: "intent payload has negative amount"}
		}
		event.Type = domain.EventType(env.Type)
		event.Intent = &p

	case domain.EventChargeRefunded:
		var p domain.RefundPayload
		if err := unmarshalData(env, &p); err != nil {
			return err
		}
		if p.IntentID == "" {
			return &domain.MalformedEventError{Reason: "refund payload missing payment intent"}
		}
		if p.AmountRefunded <= 0 {
			return &domain.MalformedEventError{Reason: "refund payload missing refunded amount"}
		}
		event.Type = domain.EventChargeRefunded
		event.Refund = &p

	case domain.EventDisputeCreated, domain.EventDisputeClosed:
		var p domain.DisputePayload
		if err := unmarshalData(env, &p); err != nil {
			return err
		}
		if p.DisputeID == "" || p.IntentID == "" {
			return &domain.MalformedEventError{Reason: "dispute payload missing ids"}
		}
		event.Type = domain.EventType(env.Type)
		event.Dispute = &p

	case domain.EventSubscriptionCreated, domain.EventSubscriptionUpdated, domain.EventSubscriptionDeleted:
		var p domain.SubscriptionPayload
		if err := unmarshalData(env, &p); err != nil {
			return err
		}
		if p.SubscriptionID == "" {
			return &domain.MalformedEventError{Reason: "subscription payload missing id"}
		}
		event.Type = domain.EventType(env.Type)
		event.Subscription = &p

	case domain.EventInvoicePaid, domain.EventInvoicePaymentFailed:
		var p domain.InvoicePayload
		if err := unmarshalData(env, &p); err != nil {
			return err
		}
		if p.InvoiceID == "" {
			return &domain.MalformedEventError{Reason: "invoice payload missing id"}
		}
		event.Type = domain.EventType(env.Type)
		event.Invoice = &p

	case domain.EventPayoutCreated, domain.EventPayoutFailed:
		var p domain.PayoutPayload
		if err := unmarshalData(env, &p); err != nil {
			return err
		}
		if p.PayoutID == "" {
			return &domain.MalformedEventError{Reason: "payout payload missing id"}
		}
		event.Type = domain.EventType(env.Type)
		event.Payout = &p

	case domain.EventAccountUpdated:
		var p domain.AccountPayload
		if err := unmarshalData(env, &p); err != nil {
			return err
		}
		if p.AccountID == "" {
			return &domain.MalformedEventError{Reason: "account payload missing id"}
		}
		event.Type = domain.EventAccountUpdated
		event.Account = &p

	default:
		// Forward compatibility: new provider event types flow into the
		// unknown path instead of mis-parsing.
		event.Type = domain.EventUnknown
	}
	return nil
}

func unmarshalData(env envelope, v any) error {
	if len(env.Data) == 0 {
		return &domain.MalformedEventError{Reason: "missing data for " + env.Type}
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return &domain.MalformedEventError{Reason: "invalid data for " + env.Type, Err: err}
	}
	return nil
}
