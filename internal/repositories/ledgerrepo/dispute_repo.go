package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tuncanbit/recon/internal/domain"
)

func (r *LedgerRepository) GetDisputeByExternalID(ctx context.Context, externalID string) (*domain.DisputeCase, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, payment_id, external_id, reason, status, outcome, version, created_at, updated_at
		FROM disputes
		WHERE external_id = $1`, externalID)

	var d domain.DisputeCase
	var reason, outcome sql.NullString
	err := row.Scan(&d.ID, &d.PaymentID, &d.ExternalID, &reason, &d.Status,
		&outcome, &d.Version, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Err(err).Str("external_id", externalID).Msg("Failed to load dispute")
		return nil, err
	}
	d.Reason = reason.String
	d.Outcome = outcome.String
	return &d, nil
}

func (r *LedgerRepository) CreateDispute(ctx context.Context, dispute *domain.DisputeCase) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO disputes (id, payment_id, external_id, reason, status, outcome, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		dispute.ID, dispute.PaymentID, dispute.ExternalID, nullStr(dispute.Reason),
		dispute.Status, nullStr(dispute.Outcome), dispute.Version,
		dispute.CreatedAt, dispute.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		r.logger.Err(err).Str("external_id", dispute.ExternalID).Msg("Failed to create dispute")
		return err
	}
	return nil
}

func (r *LedgerRepository) UpdateDispute(ctx context.Context, dispute *domain.DisputeCase, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE disputes
		SET status = $1, outcome = $2, version = version + 1, updated_at = $3
		WHERE external_id = $4 AND version = $5`,
		dispute.Status, nullStr(dispute.Outcome), dispute.UpdatedAt,
		dispute.ExternalID, expectedVersion)
	if casErr := r.casResult(result, err); casErr != nil {
		if !errors.Is(casErr, domain.ErrVersionConflict) {
			r.logger.Err(casErr).Str("external_id", dispute.ExternalID).Msg("Failed to update dispute")
		}
		return casErr
	}
	return nil
}
