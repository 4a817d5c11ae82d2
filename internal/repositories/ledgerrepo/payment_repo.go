package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/sqlc-dev/pqtype"

	"github.com/tuncanbit/recon/internal/domain"
)

func (r *LedgerRepository) GetPaymentByIntent(ctx context.Context, intentID string) (*domain.PaymentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, intent_id, user_id, amount, currency, status, refunded_amount,
		       error_message, link_kind, link_id, metadata, version, created_at, updated_at
		FROM payments
		WHERE intent_id = $1`, intentID)

	var p domain.PaymentRecord
	var linkKind, linkID, errorMessage sql.NullString
	var metadata pqtype.NullRawMessage
	err := row.Scan(&p.ID, &p.IntentID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.RefundedAmount, &errorMessage, &linkKind, &linkID, &metadata,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Err(err).Str("intent_id", intentID).Msg("Failed to load payment")
		return nil, err
	}
	p.ErrorMessage = errorMessage.String
	p.LinkKind = domain.LinkKind(linkKind.String)
	p.LinkID = linkID.String
	if metadata.Valid {
		p.Metadata = metadata.RawMessage
	}
	return &p, nil
}

func (r *LedgerRepository) CreatePayment(ctx context.Context, payment *domain.PaymentRecord) error {
	metadata := pqtype.NullRawMessage{RawMessage: payment.Metadata, Valid: len(payment.Metadata) > 0}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO payments (id, intent_id, user_id, amount, currency, status, refunded_amount,
		                      error_message, link_kind, link_id, metadata, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		payment.ID, payment.IntentID, payment.UserID, payment.Amount, payment.Currency,
		payment.Status, payment.RefundedAmount, nullStr(payment.ErrorMessage),
		nullStr(string(payment.LinkKind)), nullStr(payment.LinkID), metadata,
		payment.Version, payment.CreatedAt, payment.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		r.logger.Err(err).Str("intent_id", payment.IntentID).Msg("Failed to create payment")
		return err
	}
	return nil
}

func (r *LedgerRepository) UpdatePayment(ctx context.Context, payment *domain.PaymentRecord, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, refunded_amount = $2, error_message = $3,
		    version = version + 1, updated_at = $4
		WHERE intent_id = $5 AND version = $6`,
		payment.Status, payment.RefundedAmount, nullStr(payment.ErrorMessage),
		payment.UpdatedAt, payment.IntentID, expectedVersion)
	if casErr := r.casResult(result, err); casErr != nil {
		if !errors.Is(casErr, domain.ErrVersionConflict) {
			r.logger.Err(casErr).Str("intent_id", payment.IntentID).Msg("Failed to update payment")
		}
		return casErr
	}
	return nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
