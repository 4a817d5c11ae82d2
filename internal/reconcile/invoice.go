package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tuncanbit/recon/internal/domain"
)

// invoiceNumber derives a stable human-readable number from the
// processor invoice id, so replays produce the same number and collide
// on the uniqueness constraint instead of issuing twice.
func invoiceNumber(externalID string, issued time.Time) string {
	frag := strings.TrimPrefix(externalID, "in_")
	if len(frag) > 8 {
		frag = frag[len(frag)-8:]
	}
	return fmt.Sprintf("INV-%s-%s", issued.Format("20060102"), strings.ToUpper(frag))
}

// applyInvoicePaid issues the local invoice for a paid billing cycle,
// reactivates the subscription and books the cycle's payment record.
// Invoices without a subscription reference are one-off processor
// charges with no local aggregate and are acknowledged untouched.
func (s *Service) applyInvoicePaid(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Invoice
	if p.SubscriptionID == "" {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("invoice_id", p.InvoiceID).
			Msg("Invoice without subscription reference, acknowledging")
		return nil
	}

	sub, err := s.ledger.GetSubscriptionByExternalID(ctx, p.SubscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UnresolvableAggregateError{Kind: "subscription", Key: p.SubscriptionID}
	}
	if err != nil {
		return storeErr("get subscription", err)
	}

	issued := event.OccurredAt
	if issued.IsZero() {
		issued = time.Now().UTC()
	}
	paid := issued

	invoice := &domain.InvoiceRecord{
		ID:             uuid.New().String(),
		SubscriptionID: sub.ID,
		Number:         invoiceNumber(p.InvoiceID, issued),
		Amount:         s.currency.FromMinorUnits(p.AmountPaid, p.Currency),
		Currency:       p.Currency,
		Status:         domain.InvoiceStatusPaid,
		IssuedDate:     issued,
		PaidDate:       &paid,
		CreatedAt:      time.Now().UTC(),
	}

	lines := p.Lines
	if len(lines) == 0 {
		lines = []domain.InvoiceLinePayload{{
			Description: fmt.Sprintf("%s plan subscription", sub.PlanType),
			Total:       p.AmountPaid,
		}}
	}
	for _, line := range lines {
		total := s.currency.FromMinorUnits(line.Total, p.Currency)
		pretax, tax := s.currency.SplitTax(total, s.taxRate, p.Currency)
		invoice.Lines = append(invoice.Lines, domain.InvoiceLine{
			ID:          uuid.New().String(),
			InvoiceID:   invoice.ID,
			Description: line.Description,
			PreTax:      pretax,
			TaxRate:     s.taxRate,
			Tax:         tax,
			Total:       total,
		})
	}

	if err := s.ledger.CreateInvoice(ctx, invoice); err != nil {
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return storeErr("create invoice", err)
		}
		// Redelivery. The invoice is on file but the subscription and
		// cycle payment below may not have caught up yet.
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("invoice_number", invoice.Number).
			Msg("Invoice already issued, reconciling subscription")
	}

	if sub.Status != domain.SubscriptionStatusActive && sub.Status != domain.SubscriptionStatusEnded {
		sub.Status = domain.SubscriptionStatusActive
		sub.UpdatedAt = time.Now().UTC()
		if err := s.ledger.UpdateSubscription(ctx, sub, sub.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return err
			}
			return storeErr("update subscription", err)
		}
		s.notify(ctx, sub.UserID,
			"Subscription active",
			fmt.Sprintf("Payment received, your %s plan is active", sub.PlanType),
			domain.NotifySubscriptionActive, "/subscriptions/"+sub.ID)
		s.hub.BroadcastSubscription(*sub)
	}

	return s.recordCyclePayment(ctx, p, sub)
}

// recordCyclePayment books the billing-cycle charge in the payment
// ledger when the invoice carries its payment intent reference.
func (s *Service) recordCyclePayment(ctx context.Context, p *domain.InvoicePayload, sub *domain.SubscriptionRecord) error {
	if p.PaymentIntentID == "" || p.AmountPaid == 0 {
		return nil
	}

	_, err := s.ledger.GetPaymentByIntent(ctx, p.PaymentIntentID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return storeErr("get payment by intent", err)
	}

	now := time.Now().UTC()
	payment := &domain.PaymentRecord{
		ID:        uuid.New().String(),
		IntentID:  p.PaymentIntentID,
		UserID:    sub.UserID,
		Amount:    s.currency.FromMinorUnits(p.AmountPaid, p.Currency),
		Currency:  p.Currency,
		Status:    domain.PaymentStatusCompleted,
		LinkKind:  domain.LinkSubscription,
		LinkID:    sub.ID,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.ledger.CreatePayment(ctx, payment); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return storeErr("create payment", err)
	}
	return nil
}

// applyInvoiceFailed marks the subscription past due. The processor keeps
// retrying the charge; termination arrives as its own deletion event.
func (s *Service) applyInvoiceFailed(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Invoice
	if p.SubscriptionID == "" {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("invoice_id", p.InvoiceID).
			Msg("Failed invoice without subscription reference, acknowledging")
		return nil
	}

	sub, err := s.ledger.GetSubscriptionByExternalID(ctx, p.SubscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UnresolvableAggregateError{Kind: "subscription", Key: p.SubscriptionID}
	}
	if err != nil {
		return storeErr("get subscription", err)
	}

	switch sub.Status {
	case domain.SubscriptionStatusPastDue, domain.SubscriptionStatusEnded, domain.SubscriptionStatusCancelled:
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("subscription_id", sub.ID).
			Str("status", string(sub.Status)).
			Msg("Failed invoice needs no transition, acknowledging")
		return nil
	}

	sub.Status = domain.SubscriptionStatusPastDue
	sub.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdateSubscription(ctx, sub, sub.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update subscription", err)
	}

	s.notify(ctx, sub.UserID,
		"Subscription payment failed",
		fmt.Sprintf("The renewal payment for your %s plan failed, please update your payment method", sub.PlanType),
		domain.NotifySubscriptionPastDue, "/subscriptions/"+sub.ID)
	s.hub.BroadcastSubscription(*sub)
	return nil
}
