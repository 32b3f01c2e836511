// Package domain contains persistence models for plans and user subscriptions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// PlanCode identifies a catalog plan.
type PlanCode string

const (
	PlanFree PlanCode = "free"
	PlanPro  PlanCode = "pro"
)

// SubscriptionPlan is immutable reference data seeded at startup.
type SubscriptionPlan struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	Code            PlanCode     `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name            string       `gorm:"type:text;not null" json:"name"`
	PriceCents      int64        `gorm:"not null" json:"price_cents"`
	Currency        string       `gorm:"type:text;not null" json:"currency"`
	GenerationLimit int          `gorm:"not null" json:"generation_limit"`
	SendsPerEmail   int          `gorm:"not null" json:"sends_per_email"`
	MaxDailySends   int          `gorm:"not null;default:0" json:"max_daily_sends"`
	HasBranding     bool         `gorm:"not null;default:true" json:"has_branding"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (SubscriptionPlan) TableName() string { return "subscription_plans" }

// SubscriptionStatus is the persisted lifecycle flag. Effective access is a
// function of (status, now, period end), see EffectiveState.
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// EffectiveState is the derived access state of a subscription.
type EffectiveState string

const (
	StateActive                 EffectiveState = "active"
	StateCancelledPendingExpiry EffectiveState = "cancelled_pending_expiry"
	StateExpired                EffectiveState = "expired"
)

// UserSubscription is the single billing agreement row per user. The current
// package grant lives here because a user holds at most one grant at a time
// and it is replaced wholesale on purchase.
type UserSubscription struct {
	ID                 snowflake.ID       `gorm:"primaryKey" json:"id"`
	UserID             snowflake.ID       `gorm:"not null;uniqueIndex" json:"user_id"`
	PlanID             snowflake.ID       `gorm:"not null;index" json:"plan_id"`
	Status             SubscriptionStatus `gorm:"type:text;not null" json:"status"`
	CurrentPeriodStart time.Time          `gorm:"not null" json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `gorm:"not null" json:"current_period_end"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty"`

	PackageID                 *snowflake.ID `gorm:"index" json:"package_id,omitempty"`
	GrantGenerationsRemaining int           `gorm:"not null;default:0" json:"grant_generations_remaining"`
	GrantSendsPerEmail        int           `gorm:"not null;default:0" json:"grant_sends_per_email"`
	PackagePurchasedAt        *time.Time    `json:"package_purchased_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UserSubscription) TableName() string { return "user_subscriptions" }

// EffectiveStateAt derives access from status and period bounds. A cancelled
// subscription keeps access until the paid period elapses.
func (s UserSubscription) EffectiveStateAt(now time.Time) EffectiveState {
	if now.After(s.CurrentPeriodEnd) {
		if s.Status == SubscriptionStatusCancelled {
			return StateExpired
		}
		// An active subscription past its period end is stale, not expired;
		// the service rolls it forward before quota checks.
		return StateActive
	}
	if s.Status == SubscriptionStatusCancelled {
		return StateCancelledPendingExpiry
	}
	return StateActive
}

// Usable reports whether the subscription still grants access at now.
func (s UserSubscription) Usable(now time.Time) bool {
	return s.EffectiveStateAt(now) != StateExpired
}
