package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tuncanbit/recon/internal/domain"
)

// metadata keys set by the checkout flow when the intent is created.
const (
	metaUserID         = "userId"
	metaDeliveryID     = "deliveryId"
	metaBookingID      = "bookingId"
	metaSubscriptionID = "subscriptionId"
)

// resolveLink extracts what the payment paid for from intent metadata.
func resolveLink(metadata map[string]string) (domain.LinkKind, string) {
	if id := metadata[metaDeliveryID]; id != "" {
		return domain.LinkDelivery, id
	}
	if id := metadata[metaBookingID]; id != "" {
		return domain.LinkService, id
	}
	if id := metadata[metaSubscriptionID]; id != "" {
		return domain.LinkSubscription, id
	}
	return "", ""
}

// applyIntentSucceeded folds a successful payment intent into the
// payment ledger. Records missing locally are created from intent
// metadata; an intent without an owner reference can never be applied
// and is skipped permanently.
func (s *Service) applyIntentSucceeded(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Intent

	payment, err := s.ledger.GetPaymentByIntent(ctx, p.IntentID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.createPaymentFromIntent(ctx, event, domain.PaymentStatusCompleted, "")
	}
	if err != nil {
		return storeErr("get payment by intent", err)
	}

	if payment.Status != domain.PaymentStatusPending {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("intent_id", p.IntentID).
			Str("status", string(payment.Status)).
			Msg("Payment already settled, acknowledging")
		return nil
	}

	payment.Status = domain.PaymentStatusCompleted
	payment.ErrorMessage = ""
	payment.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdatePayment(ctx, payment, payment.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update payment", err)
	}

	s.announcePaymentConfirmed(ctx, payment)
	return nil
}

// applyIntentFailed records a failed payment intent. The failure is a
// durable fact worth a record even when checkout never wrote one.
func (s *Service) applyIntentFailed(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Intent

	payment, err := s.ledger.GetPaymentByIntent(ctx, p.IntentID)
	if errors.Is(err, domain.ErrNotFound) {
		return s.createPaymentFromIntent(ctx, event, domain.PaymentStatusFailed, p.FailureMessage)
	}
	if err != nil {
		return storeErr("get payment by intent", err)
	}

	if payment.Status != domain.PaymentStatusPending {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("intent_id", p.IntentID).
			Str("status", string(payment.Status)).
			Msg("Payment already settled, ignoring failure event")
		return nil
	}

	payment.Status = domain.PaymentStatusFailed
	payment.ErrorMessage = p.FailureMessage
	payment.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdatePayment(ctx, payment, payment.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update payment", err)
	}

	amountStr := s.currency.FormatAmount(payment.Amount, payment.Currency)
	s.notify(ctx, payment.UserID,
		"Payment failed",
		fmt.Sprintf("Your payment of %s could not be processed: %s", amountStr, p.FailureMessage),
		domain.NotifyPaymentFailed, "/payments/"+payment.ID)
	if payment.LinkKind == domain.LinkDelivery {
		s.notify(ctx, payment.UserID,
			"Delivery payment issue",
			fmt.Sprintf("The payment for delivery %s failed and the delivery is on hold", payment.LinkID),
			domain.NotifyDeliveryPaymentIssue, "/deliveries/"+payment.LinkID)
	}
	s.hub.BroadcastPayment(*payment)
	return nil
}

// createPaymentFromIntent lazily creates the payment record for an
// intent the ledger has never seen. A concurrent duplicate delivery
// loses the insert race and acknowledges without a second notification.
func (s *Service) createPaymentFromIntent(ctx context.Context, event *domain.DomainEvent, status domain.PaymentStatus, errorMessage string) error {
	p := event.Intent

	userID := p.Metadata[metaUserID]
	if userID == "" {
		return &domain.UnresolvableOwnerError{EventID: event.ID, Ref: p.IntentID}
	}
	linkKind, linkID := resolveLink(p.Metadata)

	now := time.Now().UTC()
	payment := &domain.PaymentRecord{
		ID:             uuid.New().String(),
		IntentID:       p.IntentID,
		UserID:         userID,
		Amount:         s.currency.FromMinorUnits(p.Amount, p.Currency),
		Currency:       p.Currency,
		Status:         status,
		RefundedAmount: decimal.Zero,
		ErrorMessage:   errorMessage,
		LinkKind:       linkKind,
		LinkID:         linkID,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.ledger.CreatePayment(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Debug().
				Str("event_id", event.ID).
				Str("intent_id", p.IntentID).
				Msg("Lost payment insert race to a concurrent delivery, acknowledging")
			return nil
		}
		return storeErr("create payment", err)
	}

	if status == domain.PaymentStatusCompleted {
		s.announcePaymentConfirmed(ctx, payment)
	} else {
		amountStr := s.currency.FormatAmount(payment.Amount, payment.Currency)
		s.notify(ctx, payment.UserID,
			"Payment failed",
			fmt.Sprintf("Your payment of %s could not be processed: %s", amountStr, errorMessage),
			domain.NotifyPaymentFailed, "/payments/"+payment.ID)
		s.hub.BroadcastPayment(*payment)
	}
	return nil
}

// announcePaymentConfirmed sends the payer confirmation plus the
// link-specific follow-up, then pushes the record to live clients.
func (s *Service) announcePaymentConfirmed(ctx context.Context, payment *domain.PaymentRecord) {
	amountStr := s.currency.FormatAmount(payment.Amount, payment.Currency)
	s.notify(ctx, payment.UserID,
		"Payment confirmed",
		fmt.Sprintf("Your payment of %s was received", amountStr),
		domain.NotifyPaymentConfirmed, "/payments/"+payment.ID)

	switch payment.LinkKind {
	case domain.LinkDelivery:
		s.notify(ctx, payment.UserID,
			"Delivery paid",
			fmt.Sprintf("Delivery %s is paid and will be dispatched", payment.LinkID),
			domain.NotifyDeliveryPaid, "/deliveries/"+payment.LinkID)
	case domain.LinkService:
		s.notify(ctx, payment.UserID,
			"Booking confirmed",
			fmt.Sprintf("Your booking %s is confirmed", payment.LinkID),
			domain.NotifyBookingConfirmed, "/bookings/"+payment.LinkID)
	}

	s.hub.BroadcastPayment(*payment)
}

// applyChargeRefunded applies the processor's cumulative refunded total
// to the payment. Only the delta beyond what the ledger already recorded
// has an effect, so duplicated and reordered refund events converge on
// the same record.
func (s *Service) applyChargeRefunded(ctx context.Context, event *domain.DomainEvent) error {
	r := event.Refund

	payment, err := s.ledger.GetPaymentByIntent(ctx, r.IntentID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UnresolvableAggregateError{Kind: "payment", Key: r.IntentID}
	}
	if err != nil {
		return storeErr("get payment by intent", err)
	}

	if !payment.Refundable() {
		s.logger.Warn().
			Str("event_id", event.ID).
			Str("intent_id", r.IntentID).
			Str("status", string(payment.Status)).
			Msg("Refund event for a non-refundable payment, acknowledging")
		return nil
	}

	cumulative := s.currency.FromMinorUnits(r.AmountRefunded, r.Currency)
	if cumulative.GreaterThan(payment.Amount) {
		s.logger.Warn().
			Str("intent_id", r.IntentID).
			Str("reported", cumulative.String()).
			Str("amount", payment.Amount.String()).
			Msg("Cumulative refund exceeds payment amount, clamping")
		cumulative = payment.Amount
	}

	delta := cumulative.Sub(payment.RefundedAmount)
	if !delta.IsPositive() {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("intent_id", r.IntentID).
			Msg("Refund already recorded, acknowledging")
		return nil
	}

	payment.RefundedAmount = cumulative
	if cumulative.Equal(payment.Amount) {
		payment.Status = domain.PaymentStatusRefunded
	} else {
		payment.Status = domain.PaymentStatusPartiallyRefunded
	}
	payment.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdatePayment(ctx, payment, payment.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update payment", err)
	}

	deltaStr := s.currency.FormatAmount(delta, payment.Currency)
	s.notify(ctx, payment.UserID,
		"Refund received",
		fmt.Sprintf("A refund of %s was applied to your payment", deltaStr),
		domain.NotifyPaymentRefunded, "/payments/"+payment.ID)
	s.hub.BroadcastPayment(*payment)
	return nil
}

// applyDisputeCreated opens a dispute case against the payment and
// freezes it in DISPUTED.
func (s *Service) applyDisputeCreated(ctx context.Context, event *domain.DomainEvent) error {
	d := event.Dispute

	payment, err := s.ledger.GetPaymentByIntent(ctx, d.IntentID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UnresolvableAggregateError{Kind: "payment", Key: d.IntentID}
	}
	if err != nil {
		return storeErr("get payment by intent", err)
	}

	now := time.Now().UTC()
	dispute, err := s.ledger.GetDisputeByExternalID(ctx, d.DisputeID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		dispute = &domain.DisputeCase{
			ID:         uuid.New().String(),
			PaymentID:  payment.ID,
			ExternalID: d.DisputeID,
			Reason:     d.Reason,
			Status:     domain.DisputeStatusOpen,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.ledger.CreateDispute(ctx, dispute); err != nil {
			if !errors.Is(err, domain.ErrAlreadyExists) {
				return storeErr("create dispute", err)
			}
			if dispute, err = s.ledger.GetDisputeByExternalID(ctx, d.DisputeID); err != nil {
				return storeErr("get dispute", err)
			}
		}
	case err != nil:
		return storeErr("get dispute", err)
	default:
		// Redelivery. The case is on record but the payment may not
		// have made it to DISPUTED yet, so keep going.
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("dispute_id", d.DisputeID).
			Msg("Dispute case already open, reconciling payment")
	}

	if payment.Status != domain.PaymentStatusCompleted {
		return nil
	}
	payment.Status = domain.PaymentStatusDisputed
	payment.UpdatedAt = now
	if err := s.ledger.UpdatePayment(ctx, payment, payment.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update payment", err)
	}

	amountStr := s.currency.FormatAmount(payment.Amount, payment.Currency)
	s.notify(ctx, payment.UserID,
		"Payment disputed",
		fmt.Sprintf("Your payment of %s is being disputed (%s)", amountStr, d.Reason),
		domain.NotifyPaymentDisputed, "/payments/"+payment.ID)
	s.notifyAdmins(ctx,
		"Dispute opened",
		fmt.Sprintf("Dispute %s opened against payment %s for %s", d.DisputeID, payment.ID, amountStr),
		domain.NotifyPaymentDisputed, "/admin/disputes/"+dispute.ID)
	s.hub.BroadcastPayment(*payment)
	return nil
}

// applyDisputeClosed settles the dispute: a lost dispute means the funds
// are gone and the payment becomes fully refunded, anything else
// restores it to COMPLETED. A close arriving before its open event
// synthesizes the case so the outcome is never lost.
func (s *Service) applyDisputeClosed(ctx context.Context, event *domain.DomainEvent) error {
	d := event.Dispute

	payment, err := s.ledger.GetPaymentByIntent(ctx, d.IntentID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UnresolvableAggregateError{Kind: "payment", Key: d.IntentID}
	}
	if err != nil {
		return storeErr("get payment by intent", err)
	}

	now := time.Now().UTC()
	outcome := d.Outcome
	dispute, err := s.ledger.GetDisputeByExternalID(ctx, d.DisputeID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		dispute = &domain.DisputeCase{
			ID:         uuid.New().String(),
			PaymentID:  payment.ID,
			ExternalID: d.DisputeID,
			Reason:     d.Reason,
			Status:     domain.DisputeStatusClosed,
			Outcome:    d.Outcome,
			Version:    1,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.ledger.CreateDispute(ctx, dispute); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
			return storeErr("create dispute", err)
		}
	case err != nil:
		return storeErr("get dispute", err)
	case dispute.Status == domain.DisputeStatusClosed:
		// Redelivery. The stored outcome is authoritative and the
		// payment may still owe its side of the settlement.
		outcome = dispute.Outcome
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("dispute_id", d.DisputeID).
			Msg("Dispute already closed, reconciling payment")
	default:
		dispute.Status = domain.DisputeStatusClosed
		dispute.Outcome = d.Outcome
		dispute.UpdatedAt = now
		if err := s.ledger.UpdateDispute(ctx, dispute, dispute.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return err
			}
			return storeErr("update dispute", err)
		}
	}

	lost := outcome == domain.DisputeOutcomeLost
	settled := false
	if lost {
		if payment.Status != domain.PaymentStatusRefunded {
			payment.Status = domain.PaymentStatusRefunded
			payment.RefundedAmount = payment.Amount
			settled = true
		}
	} else if payment.Status == domain.PaymentStatusDisputed {
		payment.Status = domain.PaymentStatusCompleted
		settled = true
	}
	if !settled {
		return nil
	}
	payment.UpdatedAt = now
	if err := s.ledger.UpdatePayment(ctx, payment, payment.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update payment", err)
	}

	amountStr := s.currency.FormatAmount(payment.Amount, payment.Currency)
	if lost {
		s.notify(ctx, payment.UserID,
			"Dispute resolved",
			fmt.Sprintf("The dispute on your payment of %s was upheld and the payment was reversed", amountStr),
			domain.NotifyPaymentRefunded, "/payments/"+payment.ID)
	} else {
		s.notify(ctx, payment.UserID,
			"Dispute resolved",
			fmt.Sprintf("The dispute on your payment of %s was resolved in your favor", amountStr),
			domain.NotifyPaymentConfirmed, "/payments/"+payment.ID)
	}
	s.hub.BroadcastPayment(*payment)
	return nil
}
