package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// CreatePeriod inserts a zeroed counter row. The unique
	// (subscription_id, period_start) index rejects a second create for the
	// same period.
	CreatePeriod(ctx context.Context, db *gorm.DB, period *UsagePeriod) error
	// FindCurrent returns the period row covering at, or nil.
	FindCurrent(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID, at time.Time) (*UsagePeriod, error)
	IncrementGenerations(ctx context.Context, db *gorm.DB, id snowflake.ID, n int, now time.Time) error
	// IncrementSends bumps the period counter, the daily counter (resetting
	// it when day differs from the stored one) and total spend.
	IncrementSends(ctx context.Context, db *gorm.DB, id snowflake.ID, n int, spentCents int64, day string, now time.Time) error
	AddSpent(ctx context.Context, db *gorm.DB, id snowflake.ID, spentCents int64, now time.Time) error
}
