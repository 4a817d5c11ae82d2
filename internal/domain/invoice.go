package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type InvoiceStatus string

const (
	InvoiceStatusIssued InvoiceStatus = "ISSUED"
	InvoiceStatusPaid   InvoiceStatus = "PAID"
	InvoiceStatusFailed InvoiceStatus = "FAILED"
)

type InvoiceRecord struct {
	ID             string          `json:"id" db:"id"`
	SubscriptionID string          `json:"subscription_id" db:"subscription_id"`
	Number         string          `json:"number" db:"number"`
	Amount         decimal.Decimal `json:"amount" db:"amount"`
	Currency       string          `json:"currency" db:"currency"`
	Status         InvoiceStatus   `json:"status" db:"status"`
	IssuedDate     time.Time       `json:"issued_date" db:"issued_date"`
	PaidDate       *time.Time      `json:"paid_date" db:"paid_date"`
	Lines          []InvoiceLine   `json:"lines"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}

// InvoiceLine holds Total = PreTax + Tax, exact to the minor unit.
type InvoiceLine struct {
	ID          string          `json:"id" db:"id"`
	InvoiceID   string          `json:"invoice_id" db:"invoice_id"`
	Description string          `json:"description" db:"description"`
	PreTax      decimal.Decimal `json:"pretax" db:"pretax"`
	TaxRate     decimal.Decimal `json:"tax_rate" db:"tax_rate"`
	Tax         decimal.Decimal `json:"tax" db:"tax"`
	Total       decimal.Decimal `json:"total" db:"total"`
}
