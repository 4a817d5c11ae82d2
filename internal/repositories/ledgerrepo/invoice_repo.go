package ledgerrepo

import (
	"context"

	"github.com/tuncanbit/recon/internal/domain"
)

// CreateInvoice writes the invoice and its lines in one transaction; the
// uniqueness constraint on the derived invoice number absorbs replays.
func (r *LedgerRepository) CreateInvoice(ctx context.Context, invoice *domain.InvoiceRecord) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO invoices (id, subscription_id, number, amount, currency, status,
		                      issued_date, paid_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		invoice.ID, invoice.SubscriptionID, invoice.Number, invoice.Amount,
		invoice.Currency, invoice.Status, invoice.IssuedDate, invoice.PaidDate,
		invoice.CreatedAt)
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	if err != nil {
		r.logger.Err(err).Str("number", invoice.Number).Msg("Failed to create invoice")
		return err
	}

	for _, line := range invoice.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO invoice_lines (id, invoice_id, description, pretax, tax_rate, tax, total)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			line.ID, invoice.ID, line.Description, line.PreTax, line.TaxRate, line.Tax, line.Total)
		if err != nil {
			r.logger.Err(err).Str("invoice_id", invoice.ID).Msg("Failed to create invoice line")
			return err
		}
	}

	return tx.Commit()
}
