package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/domain"
	"github.com/tuncanbit/recon/internal/domain/interfaces"
)

// Guard records every event exactly once before any domain effect runs,
// turning at-least-once delivery into at-most-once business effect. It
// short-circuits only on SUCCEEDED and SKIPPED outcomes; a FAILED or
// still-PENDING entry means the reconciler must be re-attempted.
type Guard struct {
	ledger interfaces.Ledger
	logger zerolog.Logger
}

func NewGuard(ledger interfaces.Ledger, logger zerolog.Logger) *Guard {
	return &Guard{
		ledger: ledger,
		logger: logger.With().Str("component", "idempotency_guard").Logger(),
	}
}

// Begin inserts the audit entry for the event. proceed reports whether
// the reconciler should run; a false return with nil error is a
// redelivery of an already-completed event.
func (g *Guard) Begin(ctx context.Context, event *domain.DomainEvent) (proceed bool, err error) {
	entry := &domain.EventAuditEntry{
		EventID:    event.ID,
		Type:       event.RawType,
		ReceivedAt: time.Now().UTC(),
		Outcome:    domain.AuditOutcomePending,
	}

	insertErr := g.ledger.InsertAuditEntry(ctx, entry)
	if insertErr == nil {
		return true, nil
	}
	if !errors.Is(insertErr, domain.ErrDuplicateEvent) {
		return false, storeErr("insert audit entry", insertErr)
	}

	existing, getErr := g.ledger.GetAuditEntry(ctx, event.ID)
	if getErr != nil {
		return false, storeErr("load audit entry", getErr)
	}

	switch existing.Outcome {
	case domain.AuditOutcomeSucceeded, domain.AuditOutcomeSkipped:
		g.logger.Info().
			Str("event_id", event.ID).
			Str("event_type", event.RawType).
			Str("outcome", string(existing.Outcome)).
			Msg("Redelivered event already processed, acknowledging without effect")
		return false, nil
	default:
		// FAILED or PENDING: the previous attempt did not complete, so
		// redelivery re-runs the reconciler.
		if markErr := g.ledger.MarkAuditOutcome(ctx, event.ID, domain.AuditOutcomePending, ""); markErr != nil {
			return false, storeErr("reset audit entry", markErr)
		}
		g.logger.Info().
			Str("event_id", event.ID).
			Str("previous_outcome", string(existing.Outcome)).
			Msg("Re-attempting event after incomplete processing")
		return true, nil
	}
}

// Finish records the processing outcome for the event.
func (g *Guard) Finish(ctx context.Context, eventID string, outcome domain.AuditOutcome, message string) error {
	if err := g.ledger.MarkAuditOutcome(ctx, eventID, outcome, message); err != nil {
		return storeErr(fmt.Sprintf("mark audit outcome %s", outcome), err)
	}
	return nil
}
