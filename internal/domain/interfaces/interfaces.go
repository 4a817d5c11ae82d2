package interfaces

import (
	"context"

	"github.com/tuncanbit/recon/internal/domain"
)

// Ledger is the durable aggregate and audit store. Aggregates are
// borrowed for one read-modify-write; every update is a compare-and-set
// against the version read, returning domain.ErrVersionConflict on a
// lost race. Lookups return domain.ErrNotFound when nothing matches;
// creates return domain.ErrAlreadyExists on a uniqueness conflict.
type Ledger interface {
	// Payments
	GetPaymentByIntent(ctx context.Context, intentID string) (*domain.PaymentRecord, error)
	CreatePayment(ctx context.Context, payment *domain.PaymentRecord) error
	UpdatePayment(ctx context.Context, payment *domain.PaymentRecord, expectedVersion int64) error

	// Subscriptions
	GetSubscriptionByExternalID(ctx context.Context, externalID string) (*domain.SubscriptionRecord, error)
	GetActiveSubscriptionByPlan(ctx context.Context, userID, planType string) (*domain.SubscriptionRecord, error)
	CreateSubscription(ctx context.Context, sub *domain.SubscriptionRecord) error
	UpdateSubscription(ctx context.Context, sub *domain.SubscriptionRecord, expectedVersion int64) error

	// Invoices
	CreateInvoice(ctx context.Context, invoice *domain.InvoiceRecord) error

	// Wallets and withdrawals
	GetWalletByID(ctx context.Context, id string) (*domain.WalletAccount, error)
	GetWalletByExternalAccount(ctx context.Context, accountID string) (*domain.WalletAccount, error)
	UpdateWallet(ctx context.Context, wallet *domain.WalletAccount, expectedVersion int64) error
	GetWithdrawalByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)
	GetPendingWithdrawalByWallet(ctx context.Context, walletID string) (*domain.WithdrawalRequest, error)
	UpdateWithdrawal(ctx context.Context, withdrawal *domain.WithdrawalRequest, expectedVersion int64) error
	CreateWalletTransaction(ctx context.Context, tx *domain.WalletTransaction) error

	// Disputes
	GetDisputeByExternalID(ctx context.Context, externalID string) (*domain.DisputeCase, error)
	CreateDispute(ctx context.Context, dispute *domain.DisputeCase) error
	UpdateDispute(ctx context.Context, dispute *domain.DisputeCase, expectedVersion int64) error

	// Users
	ListAdminUserIDs(ctx context.Context) ([]string, error)

	// Audit ledger. InsertAuditEntry returns domain.ErrDuplicateEvent
	// when the event id was seen before; this constraint is the sole
	// idempotency mechanism.
	InsertAuditEntry(ctx context.Context, entry *domain.EventAuditEntry) error
	GetAuditEntry(ctx context.Context, eventID string) (*domain.EventAuditEntry, error)
	MarkAuditOutcome(ctx context.Context, eventID string, outcome domain.AuditOutcome, message string) error
}

// Notifier delivers best-effort outbound notifications. Failures must
// never affect the domain transition they accompany.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message, kind, link string) error
}
