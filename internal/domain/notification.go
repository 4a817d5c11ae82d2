package domain

// Notification kinds carried as outbound domain events through the
// Notifier.
const (
	NotifyPaymentConfirmed     = "PAYMENT_CONFIRMED"
	NotifyPaymentFailed        = "PAYMENT_FAILED"
	NotifyPaymentDisputed      = "PAYMENT_DISPUTED"
	NotifyPaymentRefunded      = "PAYMENT_REFUNDED"
	NotifyDeliveryPaid         = "DELIVERY_PAID"
	NotifyDeliveryPaymentIssue = "DELIVERY_PAYMENT_ISSUE"
	NotifyBookingConfirmed     = "BOOKING_CONFIRMED"
	NotifySubscriptionActive   = "SUBSCRIPTION_ACTIVATED"
	NotifySubscriptionEnded    = "SUBSCRIPTION_ENDED"
	NotifySubscriptionPastDue  = "SUBSCRIPTION_PAST_DUE"
	NotifyPayoutFailed         = "PAYOUT_FAILED"
	NotifyAccountVerified      = "ACCOUNT_VERIFIED"
)
