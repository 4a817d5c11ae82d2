package domain

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue   SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusUnpaid    SubscriptionStatus = "UNPAID"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
	SubscriptionStatusTrial     SubscriptionStatus = "TRIAL"
	SubscriptionStatusEnded     SubscriptionStatus = "ENDED"
)

// SubscriptionRecord is never deleted; a terminated subscription moves to
// the terminal ENDED state and a FREE-tier record takes its place so that
// every user always owns at least one live subscription.
type SubscriptionRecord struct {
	ID                 string             `json:"id" db:"id"`
	ExternalID         string             `json:"external_id" db:"external_id"`
	UserID             string             `json:"user_id" db:"user_id"`
	PlanType           string             `json:"plan_type" db:"plan_type"`
	Status             SubscriptionStatus `json:"status" db:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start" db:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end" db:"current_period_end"`
	AutoRenew          bool               `json:"auto_renew" db:"auto_renew"`
	CancelledAt        *time.Time         `json:"cancelled_at" db:"cancelled_at"`
	Version            int64              `json:"version" db:"version"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" db:"updated_at"`
}
