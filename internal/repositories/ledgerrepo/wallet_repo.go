package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tuncanbit/recon/internal/domain"
)

func (r *LedgerRepository) scanWallet(row *sql.Row) (*domain.WalletAccount, error) {
	var w domain.WalletAccount
	var accountType sql.NullString
	err := row.Scan(&w.ID, &w.UserID, &w.ExternalAccountID, &w.Verified,
		&accountType, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.AccountType = accountType.String
	return &w, nil
}

const walletColumns = `id, user_id, external_account_id, verified, account_type,
	version, created_at, updated_at`

func (r *LedgerRepository) GetWalletByID(ctx context.Context, id string) (*domain.WalletAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE id = $1`, id)
	wallet, err := r.scanWallet(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Err(err).Str("wallet_id", id).Msg("Failed to load wallet")
	}
	return wallet, err
}

func (r *LedgerRepository) GetWalletByExternalAccount(ctx context.Context, accountID string) (*domain.WalletAccount, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+walletColumns+` FROM wallets WHERE external_account_id = $1`, accountID)
	wallet, err := r.scanWallet(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Err(err).Str("account_id", accountID).Msg("Failed to load wallet by account")
	}
	return wallet, err
}

func (r *LedgerRepository) UpdateWallet(ctx context.Context, wallet *domain.WalletAccount, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE wallets
		SET verified = $1, account_type = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`,
		wallet.Verified, nullStr(wallet.AccountType), wallet.UpdatedAt,
		wallet.ID, expectedVersion)
	if casErr := r.casResult(result, err); casErr != nil {
		if !errors.Is(casErr, domain.ErrVersionConflict) {
			r.logger.Err(casErr).Str("wallet_id", wallet.ID).Msg("Failed to update wallet")
		}
		return casErr
	}
	return nil
}

func (r *LedgerRepository) scanWithdrawal(row *sql.Row) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	var payoutID, rejectionReason sql.NullString
	err := row.Scan(&w.ID, &w.WalletID, &w.Amount, &w.Currency, &w.Status,
		&payoutID, &rejectionReason, &w.Version, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	w.ExternalPayoutID = payoutID.String
	w.RejectionReason = rejectionReason.String
	return &w, nil
}

const withdrawalColumns = `id, wallet_id, amount, currency, status,
	external_payout_id, rejection_reason, version, created_at, updated_at`

func (r *LedgerRepository) GetWithdrawalByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
	withdrawal, err := r.scanWithdrawal(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Err(err).Str("withdrawal_id", id).Msg("Failed to load withdrawal")
	}
	return withdrawal, err
}

func (r *LedgerRepository) GetPendingWithdrawalByWallet(ctx context.Context, walletID string) (*domain.WithdrawalRequest, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+withdrawalColumns+` FROM withdrawals
		 WHERE wallet_id = $1 AND status IN ($2, $3)
		 ORDER BY created_at ASC LIMIT 1`,
		walletID, domain.WithdrawalStatusPending, domain.WithdrawalStatusProcessing)
	withdrawal, err := r.scanWithdrawal(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Err(err).Str("wallet_id", walletID).Msg("Failed to load pending withdrawal")
	}
	return withdrawal, err
}

func (r *LedgerRepository) UpdateWithdrawal(ctx context.Context, withdrawal *domain.WithdrawalRequest, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE withdrawals
		SET status = $1, external_payout_id = $2, rejection_reason = $3,
		    version = version + 1, updated_at = $4
		WHERE id = $5 AND version = $6`,
		withdrawal.Status, nullStr(withdrawal.ExternalPayoutID),
		nullStr(withdrawal.RejectionReason), withdrawal.UpdatedAt,
		withdrawal.ID, expectedVersion)
	if casErr := r.casResult(result, err); casErr != nil {
		if !errors.Is(casErr, domain.ErrVersionConflict) {
			r.logger.Err(casErr).Str("withdrawal_id", withdrawal.ID).Msg("Failed to update withdrawal")
		}
		return casErr
	}
	return nil
}

func (r *LedgerRepository) CreateWalletTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO wallet_transactions (id, wallet_id, kind, amount, currency, description, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		tx.ID, tx.WalletID, tx.Kind, tx.Amount, tx.Currency, tx.Description,
		tx.Reference, tx.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		r.logger.Err(err).Str("reference", tx.Reference).Msg("Failed to create wallet transaction")
		return err
	}
	return nil
}
