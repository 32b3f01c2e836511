// Package domain contains persistence models for per-period usage counters.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsagePeriod accumulates metered counters for one subscription period. One
// row per (subscription, period start); counters only ever grow until a
// rollover creates a fresh row.
type UsagePeriod struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID           snowflake.ID `gorm:"not null;index" json:"user_id"`
	SubscriptionID   snowflake.ID `gorm:"not null;index:idx_usage_sub_start,unique" json:"subscription_id"`
	PeriodStart      time.Time    `gorm:"not null;index:idx_usage_sub_start,unique" json:"period_start"`
	PeriodEnd        time.Time    `gorm:"not null" json:"period_end"`
	GenerationsCount int          `gorm:"not null;default:0" json:"generations_count"`
	SendsCount       int          `gorm:"not null;default:0" json:"sends_count"`
	// SendsToday tracks the max_daily_sends cap; SendsDay is the UTC day it
	// counts for and resets the counter when the day changes.
	SendsToday      int       `gorm:"not null;default:0" json:"sends_today"`
	SendsDay        string    `gorm:"type:text;not null;default:''" json:"-"`
	TotalSpentCents int64     `gorm:"not null;default:0" json:"total_spent_cents"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UsagePeriod) TableName() string { return "usage_periods" }
