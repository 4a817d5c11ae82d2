package reconcile

import (
	"context"

	"github.com/tuncanbit/recon/internal/domain"
)

// notify isolates notification failures from the domain transition they
// accompany: a delivery error is logged and swallowed, never propagated.
func (s *Service) notify(ctx context.Context, userID, title, message, kind, link string) {
	if s.notifier == nil || userID == "" {
		return
	}
	if err := s.notifier.Notify(ctx, userID, title, message, kind, link); err != nil {
		deliveryErr := &domain.NotificationDeliveryError{UserID: userID, Err: err}
		s.logger.Warn().
			Err(deliveryErr).
			Str("user_id", userID).
			Str("kind", kind).
			Msg("Notification delivery failed")
	}
}

// notifyAdmins fans one notification out to every admin-role user.
func (s *Service) notifyAdmins(ctx context.Context, title, message, kind, link string) {
	adminIDs, err := s.ledger.ListAdminUserIDs(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to list admin users for notification")
		return
	}
	for _, adminID := range adminIDs {
		s.notify(ctx, adminID, title, message, kind, link)
	}
}
