package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuncanbit/recon/internal/domain"
)

func seedWallet(ledger *memLedger, id, userID, accountID string) *domain.WalletAccount {
	now := time.Now().UTC()
	wallet := &domain.WalletAccount{
		ID:                id,
		UserID:            userID,
		ExternalAccountID: accountID,
		Verified:          true,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	ledger.wallets[id] = wallet
	return wallet
}

func seedWithdrawal(ledger *memLedger, id, walletID string, status domain.WithdrawalStatus) *domain.WithdrawalRequest {
	now := time.Now().UTC()
	withdrawal := &domain.WithdrawalRequest{
		ID:        id,
		WalletID:  walletID,
		Amount:    decimal.RequireFromString("80.00"),
		Currency:  "eur",
		Status:    status,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ledger.withdrawals[id] = withdrawal
	return withdrawal
}

func payoutEvent(eventID string, typ domain.EventType, payoutID, destination string, metadata map[string]string) *domain.DomainEvent {
	return &domain.DomainEvent{
		ID:   eventID,
		Type: typ,
		Payout: &domain.PayoutPayload{
			PayoutID:       payoutID,
			Amount:         8000,
			Currency:       "eur",
			DestinationID:  destination,
			FailureMessage: "account_closed",
			Metadata:       metadata,
		},
	}
}

func TestPayoutCreatedByMetadataReference(t *testing.T) {
	ledger := newMemLedger()
	svc := newTestService(ledger, &memNotifier{})
	seedWallet(ledger, "wal_1", "user_30", "acct_1")
	seedWithdrawal(ledger, "wd_1", "wal_1", domain.WithdrawalStatusPending)

	event := payoutEvent("evt_pc", domain.EventPayoutCreated, "po_1", "", map[string]string{"withdrawalId": "wd_1"})
	require.NoError(t, svc.applyPayoutCreated(context.Background(), event))

	withdrawal, err := ledger.GetWithdrawalByID(context.Background(), "wd_1")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusProcessing, withdrawal.Status)
	assert.Equal(t, "po_1", withdrawal.ExternalPayoutID)
}

func TestPayoutCreatedByDestinationFallback(t *testing.T) {
	ledger := newMemLedger()
	svc := newTestService(ledger, &memNotifier{})
	seedWallet(ledger, "wal_2", "user_31", "acct_2")
	seedWithdrawal(ledger, "wd_2", "wal_2", domain.WithdrawalStatusPending)

	event := payoutEvent("evt_pc2", domain.EventPayoutCreated, "po_2", "acct_2", nil)
	require.NoError(t, svc.applyPayoutCreated(context.Background(), event))

	withdrawal, err := ledger.GetWithdrawalByID(context.Background(), "wd_2")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusProcessing, withdrawal.Status)
}

func TestPayoutCreatedWithoutWithdrawalBooksDebit(t *testing.T) {
	ledger := newMemLedger()
	svc := newTestService(ledger, &memNotifier{})
	seedWallet(ledger, "wal_3", "user_32", "acct_3")

	event := payoutEvent("evt_pc3", domain.EventPayoutCreated, "po_3", "acct_3", nil)
	require.NoError(t, svc.applyPayoutCreated(context.Background(), event))
	// Replay books nothing new: the reference is unique per payout.
	require.NoError(t, svc.applyPayoutCreated(context.Background(), event))

	require.Len(t, ledger.walletTxs, 1)
	tx := ledger.walletTxs["po_3"]
	require.NotNil(t, tx)
	assert.Equal(t, domain.WalletTransactionDebit, tx.Kind)
	assert.Equal(t, "wal_3", tx.WalletID)
	assert.Equal(t, "80.00", tx.Amount.StringFixed(2))
}

func TestPayoutCreatedUnresolvableTerminal(t *testing.T) {
	svc := newTestService(newMemLedger(), &memNotifier{})
	event := payoutEvent("evt_pc4", domain.EventPayoutCreated, "po_4", "acct_missing", nil)
	err := svc.applyPayoutCreated(context.Background(), event)
	require.Error(t, err)
	assert.True(t, domain.IsTerminal(err))
}

func TestPayoutFailedFailsWithdrawalAndNotifiesOwner(t *testing.T) {
	ledger := newMemLedger()
	ledger.admins = []string{"admin_1"}
	notifier := &memNotifier{}
	svc := newTestService(ledger, notifier)
	seedWallet(ledger, "wal_4", "user_33", "acct_4")
	seedWithdrawal(ledger, "wd_4", "wal_4", domain.WithdrawalStatusProcessing)

	event := payoutEvent("evt_pf", domain.EventPayoutFailed, "po_5", "acct_4", nil)
	require.NoError(t, svc.applyPayoutFailed(context.Background(), event))

	withdrawal, err := ledger.GetWithdrawalByID(context.Background(), "wd_4")
	require.NoError(t, err)
	assert.Equal(t, domain.WithdrawalStatusFailed, withdrawal.Status)
	assert.Equal(t, "account_closed", withdrawal.RejectionReason)
	assert.Len(t, notifier.sentTo("user_33"), 1)
	assert.Len(t, notifier.sentTo("admin_1"), 1)
}

func TestPayoutFailedReplayAcknowledged(t *testing.T) {
	ledger := newMemLedger()
	notifier := &memNotifier{}
	svc := newTestService(ledger, notifier)
	seedWallet(ledger, "wal_5", "user_34", "acct_5")
	seedWithdrawal(ledger, "wd_5", "wal_5", domain.WithdrawalStatusProcessing)

	event := payoutEvent("evt_pf2", domain.EventPayoutFailed, "po_6", "acct_5", map[string]string{"withdrawalId": "wd_5"})
	require.NoError(t, svc.applyPayoutFailed(context.Background(), event))
	require.NoError(t, svc.applyPayoutFailed(context.Background(), event))

	assert.Len(t, notifier.sentTo("user_34"), 1)
}
