package ledgerrepo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tuncanbit/recon/internal/domain"
)

func (r *LedgerRepository) InsertAuditEntry(ctx context.Context, entry *domain.EventAuditEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO event_audit (event_id, type, received_at, outcome, message)
		VALUES ($1, $2, $3, $4, $5)`,
		entry.EventID, entry.Type, entry.ReceivedAt, entry.Outcome, nullStr(entry.Message))
	if isUniqueViolation(err) {
		return domain.ErrDuplicateEvent
	}
	if err != nil {
		r.logger.Err(err).Str("event_id", entry.EventID).Msg("Failed to insert audit entry")
		return err
	}
	return nil
}

func (r *LedgerRepository) GetAuditEntry(ctx context.Context, eventID string) (*domain.EventAuditEntry, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT event_id, type, received_at, outcome, message
		FROM event_audit
		WHERE event_id = $1`, eventID)

	var entry domain.EventAuditEntry
	var message sql.NullString
	err := row.Scan(&entry.EventID, &entry.Type, &entry.ReceivedAt, &entry.Outcome, &message)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		r.logger.Err(err).Str("event_id", eventID).Msg("Failed to load audit entry")
		return nil, err
	}
	entry.Message = message.String
	return &entry, nil
}

func (r *LedgerRepository) MarkAuditOutcome(ctx context.Context, eventID string, outcome domain.AuditOutcome, message string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE event_audit
		SET outcome = $1, message = $2
		WHERE event_id = $3`,
		outcome, nullStr(message), eventID)
	if err != nil {
		r.logger.Err(err).Str("event_id", eventID).Msg("Failed to mark audit outcome")
		return err
	}
	return nil
}

func (r *LedgerRepository) ListAdminUserIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM users WHERE role = 'ADMIN'`)
	if err != nil {
		r.logger.Err(err).Msg("Failed to list admin users")
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
