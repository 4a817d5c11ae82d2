package reconcile

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/tuncanbit/recon/internal/domain"
	"github.com/tuncanbit/recon/internal/domain/interfaces"
	"github.com/tuncanbit/recon/internal/server/websocket"
	"github.com/tuncanbit/recon/pkg/config"
	"github.com/tuncanbit/recon/pkg/currency"
)

// Service owns the six domain reconcilers. Each reconciler folds one
// typed event into one aggregate's state machine through the Ledger's
// compare-and-set primitive; reconcilers never call each other directly.
type Service struct {
	ledger       interfaces.Ledger
	notifier     interfaces.Notifier
	hub          *websocket.WsHub
	currency     *currency.CurrencyUtils
	taxRate      decimal.Decimal
	freePlanType string
	logger       zerolog.Logger
}

func NewService(
	ledger interfaces.Ledger,
	notifier interfaces.Notifier,
	hub *websocket.WsHub,
	billing config.BillingConfig,
	logger zerolog.Logger,
) *Service {
	taxRate := decimal.Zero
	if billing.TaxRate != "" {
		parsed, err := decimal.NewFromString(billing.TaxRate)
		if err != nil {
			logger.Warn().Str("tax_rate", billing.TaxRate).Msg("Invalid billing tax rate, defaulting to 0")
		} else {
			taxRate = parsed
		}
	}

	freePlan := billing.FreePlanType
	if freePlan == "" {
		freePlan = "FREE"
	}

	return &Service{
		ledger:       ledger,
		notifier:     notifier,
		hub:          hub,
		currency:     currency.NewCurrencyUtils(),
		taxRate:      taxRate,
		freePlanType: freePlan,
		logger:       logger.With().Str("component", "reconcile").Logger(),
	}
}

// storeErr wraps an unexpected Ledger failure as retryable. Callers
// branch on the sentinel errors before reaching for this.
func storeErr(op string, err error) error {
	return &domain.TransientStoreError{Op: op, Err: err}
}
