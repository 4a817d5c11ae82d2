package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuncanbit/recon/internal/domain"
)

func subEvent(eventID string, typ domain.EventType, externalID, status string, metadata map[string]string) *domain.DomainEvent {
	return &domain.DomainEvent{
		ID:   eventID,
		Type: typ,
		Subscription: &domain.SubscriptionPayload{
			SubscriptionID: externalID,
			Status:         status,
			PlanType:       "PRO",
			PeriodStart:    1756000000,
			PeriodEnd:      1758678400,
			Metadata:       metadata,
		},
	}
}

func seedSubscription(ledger *memLedger, id, externalID, userID string, status domain.SubscriptionStatus) *domain.SubscriptionRecord {
	now := time.Now().UTC()
	sub := &domain.SubscriptionRecord{
		ID:         id,
		ExternalID: externalID,
		UserID:     userID,
		PlanType:   "PRO",
		Status:     status,
		AutoRenew:  true,
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_ = ledger.CreateSubscription(context.Background(), sub)
	return sub
}

func TestSubscriptionCreatedFromEvent(t *testing.T) {
	ledger := newMemLedger()
	notifier := &memNotifier{}
	svc := newTestService(ledger, notifier)

	event := subEvent("evt_sc", domain.EventSubscriptionCreated, "sub_ext_1", "active", map[string]string{"userId": "user_9"})
	require.NoError(t, svc.applySubscriptionSync(context.Background(), event))

	sub, err := ledger.GetSubscriptionByExternalID(context.Background(), "sub_ext_1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, "user_9", sub.UserID)
	assert.True(t, sub.AutoRenew)
	assert.NotEmpty(t, notifier.sentTo("user_9"))
}

func TestSubscriptionCreatedWithoutOwnerTerminal(t *testing.T) {
	svc := newTestService(newMemLedger(), &memNotifier{})
	event := subEvent("evt_so", domain.EventSubscriptionCreated, "sub_ext_o", "active", nil)
	err := svc.applySubscriptionSync(context.Background(), event)
	require.Error(t, err)
	assert.True(t, domain.IsTerminal(err))
}

func TestSubscriptionStatusMapping(t *testing.T) {
	svc := newTestService(newMemLedger(), &memNotifier{})

	assert.Equal(t, domain.SubscriptionStatusActive, svc.mapExternalStatus("active"))
	assert.Equal(t, domain.SubscriptionStatusTrial, svc.mapExternalStatus("trialing"))
	assert.Equal(t, domain.SubscriptionStatusPastDue, svc.mapExternalStatus("past_due"))
	assert.Equal(t, domain.SubscriptionStatusUnpaid, svc.mapExternalStatus("unpaid"))
	assert.Equal(t, domain.SubscriptionStatusCancelled, svc.mapExternalStatus("canceled"))
	// New processor vocabulary degrades to ACTIVE instead of rejecting.
	assert.Equal(t, domain.SubscriptionStatusActive, svc.mapExternalStatus("paused"))
}

func TestSubscriptionUpdateNotifiesOnTransitionOnly(t *testing.T) {
	ledger := newMemLedger()
	notifier := &memNotifier{}
	svc := newTestService(ledger, notifier)
	seedSubscription(ledger, "sub_1", "sub_ext_2", "user_9", domain.SubscriptionStatusActive)

	pastDue := subEvent("evt_pd", domain.EventSubscriptionUpdated, "sub_ext_2", "past_due", nil)
	require.NoError(t, svc.applySubscriptionSync(context.Background(), pastDue))
	assert.Len(t, notifier.sentTo("user_9"), 1)

	// Same status again: the record converges, the user is not re-notified.
	samePastDue := subEvent("evt_pd2", domain.EventSubscriptionUpdated, "sub_ext_2", "past_due", nil)
	require.NoError(t, svc.applySubscriptionSync(context.Background(), samePastDue))
	assert.Len(t, notifier.sentTo("user_9"), 1)
}

func TestSubscriptionDeletedEndsAndFallsBackToFree(t *testing.T) {
	ledger := newMemLedger()
	notifier := &memNotifier{}
	svc := newTestService(ledger, notifier)
	seedSubscription(ledger, "sub_2", "sub_ext_3", "user_10", domain.SubscriptionStatusActive)

	event := subEvent("evt_del", domain.EventSubscriptionDeleted, "sub_ext_3", "canceled", nil)
	require.NoError(t, svc.applySubscriptionDeleted(context.Background(), event))

	ended, err := ledger.GetSubscriptionByExternalID(context.Background(), "sub_ext_3")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusEnded, ended.Status)
	assert.False(t, ended.AutoRenew)
	require.NotNil(t, ended.CancelledAt)

	free, err := ledger.GetActiveSubscriptionByPlan(context.Background(), "user_10", "FREE")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, free.Status)
	assert.Len(t, notifier.sentTo("user_10"), 1)
}

func TestSubscriptionDeletedReplayCreatesOneFreeRecord(t *testing.T) {
	ledger := newMemLedger()
	notifier := &memNotifier{}
	svc := newTestService(ledger, notifier)
	seedSubscription(ledger, "sub_3", "sub_ext_4", "user_11", domain.SubscriptionStatusActive)

	event := subEvent("evt_del2", domain.EventSubscriptionDeleted, "sub_ext_4", "canceled", nil)
	require.NoError(t, svc.applySubscriptionDeleted(context.Background(), event))
	require.NoError(t, svc.applySubscriptionDeleted(context.Background(), event))

	var freeCount int
	for _, sub := range ledger.subscriptions {
		if sub.UserID == "user_11" && sub.PlanType == "FREE" {
			freeCount++
		}
	}
	assert.Equal(t, 1, freeCount)
	assert.Len(t, notifier.sentTo("user_11"), 1)
}

func TestSubscriptionDeletedUnknownAcknowledged(t *testing.T) {
	svc := newTestService(newMemLedger(), &memNotifier{})
	event := subEvent("evt_del3", domain.EventSubscriptionDeleted, "sub_ext_missing", "canceled", nil)
	require.NoError(t, svc.applySubscriptionDeleted(context.Background(), event))
}
