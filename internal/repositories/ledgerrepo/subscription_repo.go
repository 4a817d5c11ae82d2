package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tuncanbit/recon/internal/domain"
)

func (r *LedgerRepository) scanSubscription(row *sql.Row) (*domain.SubscriptionRecord, error) {
	var s domain.SubscriptionRecord
	var externalID sql.NullString
	var cancelledAt sql.NullTime
	err := row.Scan(&s.ID, &externalID, &s.UserID, &s.PlanType, &s.Status,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.AutoRenew, &cancelledAt,
		&s.Version, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.ExternalID = externalID.String
	if cancelledAt.Valid {
		s.CancelledAt = &cancelledAt.Time
	}
	return &s, nil
}

const subscriptionColumns = `id, external_id, user_id, plan_type, status,
	current_period_start, current_period_end, auto_renew, cancelled_at,
	version, created_at, updated_at`

func (r *LedgerRepository) GetSubscriptionByExternalID(ctx context.Context, externalID string) (*domain.SubscriptionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE external_id = $1`, externalID)
	sub, err := r.scanSubscription(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Err(err).Str("external_id", externalID).Msg("Failed to load subscription")
	}
	return sub, err
}

func (r *LedgerRepository) GetActiveSubscriptionByPlan(ctx context.Context, userID, planType string) (*domain.SubscriptionRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
		 WHERE user_id = $1 AND plan_type = $2 AND status = $3
		 ORDER BY created_at DESC LIMIT 1`,
		userID, planType, domain.SubscriptionStatusActive)
	sub, err := r.scanSubscription(row)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		r.logger.Err(err).Str("user_id", userID).Msg("Failed to load active subscription")
	}
	return sub, err
}

func (r *LedgerRepository) CreateSubscription(ctx context.Context, sub *domain.SubscriptionRecord) error {
	var externalID sql.NullString
	if sub.ExternalID != "" {
		externalID = sql.NullString{String: sub.ExternalID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO subscriptions (id, external_id, user_id, plan_type, status,
		                           current_period_start, current_period_end, auto_renew,
		                           cancelled_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		sub.ID, externalID, sub.UserID, sub.PlanType, sub.Status,
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.AutoRenew,
		sub.CancelledAt, sub.Version, sub.CreatedAt, sub.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		r.logger.Err(err).Str("external_id", sub.ExternalID).Msg("Failed to create subscription")
		return err
	}
	return nil
}

func (r *LedgerRepository) UpdateSubscription(ctx context.Context, sub *domain.SubscriptionRecord, expectedVersion int64) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE subscriptions
		SET status = $1, plan_type = $2, current_period_start = $3, current_period_end = $4,
		    auto_renew = $5, cancelled_at = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9`,
		sub.Status, sub.PlanType, sub.CurrentPeriodStart, sub.CurrentPeriodEnd,
		sub.AutoRenew, sub.CancelledAt, sub.UpdatedAt, sub.ID, expectedVersion)
	if casErr := r.casResult(result, err); casErr != nil {
		if !errors.Is(casErr, domain.ErrVersionConflict) {
			r.logger.Err(casErr).Str("subscription_id", sub.ID).Msg("Failed to update subscription")
		}
		return casErr
	}
	return nil
}
