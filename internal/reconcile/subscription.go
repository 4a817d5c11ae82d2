package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuncanbit/recon/internal/domain"
)

// mapExternalStatus translates the processor's subscription status
// vocabulary into ours. Unrecognized values default to ACTIVE so a new
// processor status degrades to the least surprising state.
func (s *Service) mapExternalStatus(external string) domain.SubscriptionStatus {
	switch external {
	case "active":
		return domain.SubscriptionStatusActive
	case "trialing":
		return domain.SubscriptionStatusTrial
	case "past_due":
		return domain.SubscriptionStatusPastDue
	case "unpaid":
		return domain.SubscriptionStatusUnpaid
	case "canceled", "cancelled":
		return domain.SubscriptionStatusCancelled
	default:
		s.logger.Warn().
			Str("external_status", external).
			Msg("Unrecognized subscription status, defaulting to ACTIVE")
		return domain.SubscriptionStatusActive
	}
}

// applySubscriptionSync handles both created and updated events: the
// processor's view of the subscription is authoritative and the local
// record converges on it regardless of event order.
func (s *Service) applySubscriptionSync(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Subscription
	status := s.mapExternalStatus(p.Status)
	now := time.Now().UTC()

	sub, err := s.ledger.GetSubscriptionByExternalID(ctx, p.SubscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		userID := p.Metadata[metaUserID]
		if userID == "" {
			return &domain.UnresolvableOwnerError{EventID: event.ID, Ref: p.SubscriptionID}
		}
		sub = &domain.SubscriptionRecord{
			ID:                 uuid.New().String(),
			ExternalID:         p.SubscriptionID,
			UserID:             userID,
			PlanType:           p.PlanType,
			Status:             status,
			CurrentPeriodStart: time.Unix(p.PeriodStart, 0).UTC(),
			CurrentPeriodEnd:   time.Unix(p.PeriodEnd, 0).UTC(),
			AutoRenew:          !p.CancelAtPeriodEnd,
			Version:            1,
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.ledger.CreateSubscription(ctx, sub); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				return nil
			}
			return storeErr("create subscription", err)
		}
		if status == domain.SubscriptionStatusActive || status == domain.SubscriptionStatusTrial {
			s.notify(ctx, sub.UserID,
				"Subscription active",
				fmt.Sprintf("Your %s plan is now active", sub.PlanType),
				domain.NotifySubscriptionActive, "/subscriptions/"+sub.ID)
		}
		s.hub.BroadcastSubscription(*sub)
		return nil
	}
	if err != nil {
		return storeErr("get subscription", err)
	}

	if sub.Status == domain.SubscriptionStatusEnded {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("subscription_id", sub.ID).
			Msg("Update for an ended subscription, acknowledging")
		return nil
	}

	previous := sub.Status
	sub.Status = status
	if p.PlanType != "" {
		sub.PlanType = p.PlanType
	}
	sub.CurrentPeriodStart = time.Unix(p.PeriodStart, 0).UTC()
	sub.CurrentPeriodEnd = time.Unix(p.PeriodEnd, 0).UTC()
	sub.AutoRenew = !p.CancelAtPeriodEnd
	sub.UpdatedAt = now
	if err := s.ledger.UpdateSubscription(ctx, sub, sub.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update subscription", err)
	}

	if previous != status {
		switch status {
		case domain.SubscriptionStatusActive:
			s.notify(ctx, sub.UserID,
				"Subscription active",
				fmt.Sprintf("Your %s plan is active again", sub.PlanType),
				domain.NotifySubscriptionActive, "/subscriptions/"+sub.ID)
		case domain.SubscriptionStatusPastDue, domain.SubscriptionStatusUnpaid:
			s.notify(ctx, sub.UserID,
				"Subscription payment overdue",
				fmt.Sprintf("The payment for your %s plan is overdue, please update your payment method", sub.PlanType),
				domain.NotifySubscriptionPastDue, "/subscriptions/"+sub.ID)
		}
	}
	s.hub.BroadcastSubscription(*sub)
	return nil
}

// applySubscriptionDeleted ends the subscription and hands the user back
// to the free tier. Every user always owns a live subscription, so the
// fallback FREE record is created idempotently.
func (s *Service) applySubscriptionDeleted(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Subscription

	sub, err := s.ledger.GetSubscriptionByExternalID(ctx, p.SubscriptionID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("external_id", p.SubscriptionID).
			Msg("Deletion event for an unknown subscription, acknowledging")
		return nil
	}
	if err != nil {
		return storeErr("get subscription", err)
	}

	now := time.Now().UTC()
	if sub.Status != domain.SubscriptionStatusEnded {
		sub.Status = domain.SubscriptionStatusEnded
		sub.AutoRenew = false
		sub.CancelledAt = &now
		sub.UpdatedAt = now
		if err := s.ledger.UpdateSubscription(ctx, sub, sub.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return err
			}
			return storeErr("update subscription", err)
		}

		s.notify(ctx, sub.UserID,
			"Subscription ended",
			fmt.Sprintf("Your %s plan has ended, you are now on the %s plan", sub.PlanType, s.freePlanType),
			domain.NotifySubscriptionEnded, "/subscriptions")
	}

	return s.ensureFreeSubscription(ctx, sub.UserID)
}

// ensureFreeSubscription creates the fallback FREE-tier record unless the
// user already holds one; a concurrent duplicate loses the insert race
// harmlessly.
func (s *Service) ensureFreeSubscription(ctx context.Context, userID string) error {
	_, err := s.ledger.GetActiveSubscriptionByPlan(ctx, userID, s.freePlanType)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return storeErr("get free subscription", err)
	}

	now := time.Now().UTC()
	free := &domain.SubscriptionRecord{
		ID:                 uuid.New().String(),
		UserID:             userID,
		PlanType:           s.freePlanType,
		Status:             domain.SubscriptionStatusActive,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.AddDate(100, 0, 0),
		AutoRenew:          false,
		Version:            1,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.ledger.CreateSubscription(ctx, free); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return storeErr("create free subscription", err)
	}
	return nil
}
