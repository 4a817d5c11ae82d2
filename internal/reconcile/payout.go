package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tuncanbit/recon/internal/domain"
)

const metaWithdrawalID = "withdrawalId"

// resolveWithdrawal finds the withdrawal a payout settles. The out flow
// stamps the withdrawal id into payout metadata; payouts created outside
// the flow fall back to the open withdrawal on the destination wallet.
// Both misses return nil with no error.
func (s *Service) resolveWithdrawal(ctx context.Context, p *domain.PayoutPayload) (*domain.WithdrawalRequest, error) {
	if id := p.Metadata[metaWithdrawalID]; id != "" {
		withdrawal, err := s.ledger.GetWithdrawalByID(ctx, id)
		if err == nil {
			return withdrawal, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, storeErr("get withdrawal", err)
		}
	}

	if p.DestinationID == "" {
		return nil, nil
	}
	wallet, err := s.ledger.GetWalletByExternalAccount(ctx, p.DestinationID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get wallet by account", err)
	}

	withdrawal, err := s.ledger.GetPendingWithdrawalByWallet(ctx, wallet.ID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("get pending withdrawal", err)
	}
	return withdrawal, nil
}

// applyPayoutCreated advances the matching withdrawal to PROCESSING.
// A payout with no matching withdrawal is still money leaving the
// wallet, so it is booked as a standalone debit transaction instead.
func (s *Service) applyPayoutCreated(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Payout

	withdrawal, err := s.resolveWithdrawal(ctx, p)
	if err != nil {
		return err
	}

	if withdrawal != nil {
		if withdrawal.Status != domain.WithdrawalStatusPending {
			s.logger.Debug().
				Str("event_id", event.ID).
				Str("withdrawal_id", withdrawal.ID).
				Str("status", string(withdrawal.Status)).
				Msg("Withdrawal already in flight, acknowledging")
			return nil
		}
		withdrawal.Status = domain.WithdrawalStatusProcessing
		withdrawal.ExternalPayoutID = p.PayoutID
		withdrawal.UpdatedAt = time.Now().UTC()
		if err := s.ledger.UpdateWithdrawal(ctx, withdrawal, withdrawal.Version); err != nil {
			if errors.Is(err, domain.ErrVersionConflict) {
				return err
			}
			return storeErr("update withdrawal", err)
		}
		s.broadcastWithdrawal(ctx, withdrawal)
		return nil
	}

	if p.DestinationID == "" {
		return &domain.UnresolvableAggregateError{Kind: "wallet", Key: p.PayoutID}
	}
	wallet, err := s.ledger.GetWalletByExternalAccount(ctx, p.DestinationID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.UnresolvableAggregateError{Kind: "wallet", Key: p.DestinationID}
	}
	if err != nil {
		return storeErr("get wallet by account", err)
	}

	tx := &domain.WalletTransaction{
		ID:          uuid.New().String(),
		WalletID:    wallet.ID,
		Kind:        domain.WalletTransactionDebit,
		Amount:      s.currency.FromMinorUnits(p.Amount, p.Currency),
		Currency:    p.Currency,
		Description: "Payout to external account",
		Reference:   p.PayoutID,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.ledger.CreateWalletTransaction(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.logger.Debug().
				Str("event_id", event.ID).
				Str("payout_id", p.PayoutID).
				Msg("Payout already booked, acknowledging")
			return nil
		}
		return storeErr("create wallet transaction", err)
	}
	return nil
}

// applyPayoutFailed fails the matching withdrawal and returns the funds
// to the wallet owner's attention.
func (s *Service) applyPayoutFailed(ctx context.Context, event *domain.DomainEvent) error {
	p := event.Payout

	withdrawal, err := s.resolveWithdrawal(ctx, p)
	if err != nil {
		return err
	}
	if withdrawal == nil {
		return &domain.UnresolvableAggregateError{Kind: "withdrawal", Key: p.PayoutID}
	}

	switch withdrawal.Status {
	case domain.WithdrawalStatusFailed:
		s.logger.Debug().
			Str("event_id", event.ID).
			Str("withdrawal_id", withdrawal.ID).
			Msg("Withdrawal already failed, acknowledging")
		return nil
	case domain.WithdrawalStatusCompleted:
		s.logger.Warn().
			Str("event_id", event.ID).
			Str("withdrawal_id", withdrawal.ID).
			Msg("Payout failure for a completed withdrawal, acknowledging")
		return nil
	}

	withdrawal.Status = domain.WithdrawalStatusFailed
	withdrawal.RejectionReason = p.FailureMessage
	if withdrawal.ExternalPayoutID == "" {
		withdrawal.ExternalPayoutID = p.PayoutID
	}
	withdrawal.UpdatedAt = time.Now().UTC()
	if err := s.ledger.UpdateWithdrawal(ctx, withdrawal, withdrawal.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		return storeErr("update withdrawal", err)
	}

	wallet, err := s.ledger.GetWalletByID(ctx, withdrawal.WalletID)
	if err != nil {
		s.logger.Warn().Err(err).Str("wallet_id", withdrawal.WalletID).Msg("Failed to load wallet for payout failure notification")
	} else {
		amountStr := s.currency.FormatAmount(withdrawal.Amount, withdrawal.Currency)
		s.notify(ctx, wallet.UserID,
			"Withdrawal failed",
			fmt.Sprintf("Your withdrawal of %s could not be paid out: %s", amountStr, p.FailureMessage),
			domain.NotifyPayoutFailed, "/wallet/withdrawals/"+withdrawal.ID)
		s.hub.BroadcastWithdrawal(wallet.UserID, *withdrawal)
	}

	s.notifyAdmins(ctx,
		"Payout failed",
		fmt.Sprintf("Payout %s for withdrawal %s failed: %s", p.PayoutID, withdrawal.ID, p.FailureMessage),
		domain.NotifyPayoutFailed, "/admin/withdrawals/"+withdrawal.ID)
	return nil
}

func (s *Service) broadcastWithdrawal(ctx context.Context, withdrawal *domain.WithdrawalRequest) {
	wallet, err := s.ledger.GetWalletByID(ctx, withdrawal.WalletID)
	if err != nil {
		s.logger.Debug().Err(err).Str("wallet_id", withdrawal.WalletID).Msg("Skipping withdrawal broadcast, wallet lookup failed")
		return
	}
	s.hub.BroadcastWithdrawal(wallet.UserID, *withdrawal)
}
