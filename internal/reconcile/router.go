package reconcile

import (
	"context"

	"github.com/tuncanbit/recon/internal/domain"
)

type handlerFunc func(ctx context.Context, event *domain.DomainEvent) error

// routes binds each event type to its reconciler. Unknown types are
// deliberately absent: they are acknowledged without effect so that
// new processor event types never poison the delivery queue.
func (s *Service) routes() map[domain.EventType]handlerFunc {
	return map[domain.EventType]handlerFunc{
		domain.EventIntentSucceeded:      s.applyIntentSucceeded,
		domain.EventIntentFailed:         s.applyIntentFailed,
		domain.EventChargeRefunded:       s.applyChargeRefunded,
		domain.EventDisputeCreated:       s.applyDisputeCreated,
		domain.EventDisputeClosed:        s.applyDisputeClosed,
		domain.EventSubscriptionCreated:  s.applySubscriptionSync,
		domain.EventSubscriptionUpdated:  s.applySubscriptionSync,
		domain.EventSubscriptionDeleted:  s.applySubscriptionDeleted,
		domain.EventInvoicePaid:          s.applyInvoicePaid,
		domain.EventInvoicePaymentFailed: s.applyInvoiceFailed,
		domain.EventPayoutCreated:        s.applyPayoutCreated,
		domain.EventPayoutFailed:         s.applyPayoutFailed,
		domain.EventAccountUpdated:       s.applyAccountUpdated,
	}
}

// Dispatch routes the event to its reconciler. Event types without a
// route are logged and acknowledged.
func (s *Service) Dispatch(ctx context.Context, event *domain.DomainEvent) error {
	handler, ok := s.routes()[event.Type]
	if !ok {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("event_type", event.RawType).
			Msg("No reconciler registered for event type, acknowledging")
		return nil
	}
	return handler(ctx, event)
}
