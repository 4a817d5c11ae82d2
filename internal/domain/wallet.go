package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WalletAccount links a user to their external payout account. Verified
// is recomputed from account.updated events.
type WalletAccount struct {
	ID                string    `json:"id" db:"id"`
	UserID            string    `json:"user_id" db:"user_id"`
	ExternalAccountID string    `json:"external_account_id" db:"external_account_id"`
	Verified          bool      `json:"verified" db:"verified"`
	AccountType       string    `json:"account_type" db:"account_type"`
	Version           int64     `json:"version" db:"version"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}

type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "PENDING"
	WithdrawalStatusProcessing WithdrawalStatus = "PROCESSING"
	WithdrawalStatusCompleted  WithdrawalStatus = "COMPLETED"
	WithdrawalStatusFailed     WithdrawalStatus = "FAILED"
)

type WithdrawalRequest struct {
	ID               string           `json:"id" db:"id"`
	WalletID         string           `json:"wallet_id" db:"wallet_id"`
	Amount           decimal.Decimal  `json:"amount" db:"amount"`
	Currency         string           `json:"currency" db:"currency"`
	Status           WithdrawalStatus `json:"status" db:"status"`
	ExternalPayoutID string           `json:"external_payout_id" db:"external_payout_id"`
	RejectionReason  string           `json:"rejection_reason" db:"rejection_reason"`
	Version          int64            `json:"version" db:"version"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`
}

type WalletTransactionKind string

const (
	WalletTransactionCredit WalletTransactionKind = "CREDIT"
	WalletTransactionDebit  WalletTransactionKind = "DEBIT"
)

// WalletTransaction books a standalone ledger movement against a wallet,
// e.g. a processor-initiated payout with no prior withdrawal request.
type WalletTransaction struct {
	ID          string                `json:"id" db:"id"`
	WalletID    string                `json:"wallet_id" db:"wallet_id"`
	Kind        WalletTransactionKind `json:"kind" db:"kind"`
	Amount      decimal.Decimal       `json:"amount" db:"amount"`
	Currency    string                `json:"currency" db:"currency"`
	Description string                `json:"description" db:"description"`
	Reference   string                `json:"reference" db:"reference"`
	CreatedAt   time.Time             `json:"created_at" db:"created_at"`
}
