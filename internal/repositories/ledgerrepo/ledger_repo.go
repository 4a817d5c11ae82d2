package ledgerrepo

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/tuncanbit/recon/internal/domain"
	"github.com/tuncanbit/recon/internal/domain/interfaces"
)

// LedgerRepository is the Postgres implementation of the Ledger.
// Uniqueness constraints back the idempotency guarantees: event ids on
// the audit table, intent ids on payments, external ids on
// subscriptions and disputes, references on wallet transactions.
type LedgerRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(db *sql.DB, logger zerolog.Logger) interfaces.Ledger {
	return &LedgerRepository{
		db:     db,
		logger: logger.With().Str("component", "ledger_repo").Logger(),
	}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// casResult maps the outcome of a compare-and-set UPDATE: zero rows means
// either the row is gone or another writer advanced the version first.
func (r *LedgerRepository) casResult(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}
	return nil
}
