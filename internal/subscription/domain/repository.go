package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListPlans(ctx context.Context, db *gorm.DB) ([]SubscriptionPlan, error)
	FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*SubscriptionPlan, error)
	FindPlanByCode(ctx context.Context, db *gorm.DB, code PlanCode) (*SubscriptionPlan, error)
	// Upsert replaces the user's single subscription row.
	Upsert(ctx context.Context, db *gorm.DB, subscription *UserSubscription) error
	FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*UserSubscription, error)
	FindBySubscriptionID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*UserSubscription, error)
	UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error
	// ApplyGrant replaces the user's package grant in a single statement so
	// it can participate in a caller-owned transaction.
	ApplyGrant(ctx context.Context, db *gorm.DB, userID, packageID snowflake.ID, credits, sendsPerEmail int, now time.Time) error
	// ConsumeGrant decrements the grant generation counter only where at
	// least n generations remain, reporting false on zero rows affected.
	ConsumeGrant(ctx context.Context, db *gorm.DB, userID snowflake.ID, n int) (bool, error)
}
