package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/tuncanbit/recon/internal/domain"
)

// applyAccountUpdated recomputes the wallet's verification flag from the
// external account state. Accounts with no local wallet belong to users
// who never started onboarding here; they are acknowledged untouched.
func (s *Service) applyAccountUpdated(ctx context.Context, event *domain.DomainEvent) error {
	a := event.Account

	wallet, err := s.ledger.GetWalletByExternalAccount(ctx, a.AccountID)
	if errors.Is(err, domain.ErrNotFound) {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("account_id", a.AccountID).
			Msg("Account update for an unknown wallet, acknowledging")
		return nil
	}
	if err != nil {
		return storeErr("get wallet by account", err)
	}

	verified := a.DetailsSubmitted && a.DisabledReason == ""
	if wallet.Verified == verified && (a.AccountType == "" || wallet.AccountType == a.AccountType) {
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("wallet_id", wallet.ID).
			Msg("Account state unchanged, acknowledging")
		return nil
	}

	becameVerified := !wallet.Verified && verified
	wallet.Verified = verified
	if a.AccountType != "" {
		wallet.AccountType = a.AccountType
	}
	wallet.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdateWallet(ctx, wallet, wallet.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update wallet", err)
	}

	// The notification fires only on the false-to-true edge so repeated
	// account snapshots never spam the user.
	if becameVerified {
		s.notify(ctx, wallet.UserID,
			"Payout account verified",
			"Your payout account is verified and withdrawals are enabled",
			domain.NotifyAccountVerified, "/wallet")
	}
	return nil
}
