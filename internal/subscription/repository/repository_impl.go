package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/subscription/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListPlans(ctx context.Context, db *gorm.DB) ([]domain.SubscriptionPlan, error) {
	var plans []domain.SubscriptionPlan
	err := db.WithContext(ctx).Order("price_cents ASC").Find(&plans).Error
	if err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repo) FindPlanByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.SubscriptionPlan, error) {
	var plan domain.SubscriptionPlan
	err := db.WithContext(ctx).First(&plan, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) FindPlanByCode(ctx context.Context, db *gorm.DB, code domain.PlanCode) (*domain.SubscriptionPlan, error) {
	var plan domain.SubscriptionPlan
	err := db.WithContext(ctx).First(&plan, "code = ?", code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, subscription *domain.UserSubscription) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		// Grant columns are deliberately absent: a plan switch must not wipe
		// a purchased package grant.
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_id",
			"status",
			"current_period_start",
			"current_period_end",
			"cancelled_at",
			"updated_at",
		}),
	}).Create(subscription).Error
}

func (r *repo) FindByUserID(ctx context.Context, db *gorm.DB, userID snowflake.ID) (*domain.UserSubscription, error) {
	var sub domain.UserSubscription
	err := db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) FindBySubscriptionID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.UserSubscription, error) {
	var sub domain.UserSubscription
	err := db.WithContext(ctx).First(&sub, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repo) ConsumeGrant(ctx context.Context, db *gorm.DB, userID snowflake.ID, n int) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE user_subscriptions
		 SET grant_generations_remaining = grant_generations_remaining - ?
		 WHERE user_id = ? AND grant_generations_remaining >= ?`,
		n,
		userID,
		n,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ApplyGrant(ctx context.Context, db *gorm.DB, userID, packageID snowflake.ID, credits, sendsPerEmail int, now time.Time) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE user_subscriptions
		 SET package_id = ?,
		     grant_generations_remaining = ?,
		     grant_sends_per_email = ?,
		     package_purchased_at = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		packageID,
		credits,
		sendsPerEmail,
		now,
		now,
		userID,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func (r *repo) UpdateFields(ctx context.Context, db *gorm.DB, id snowflake.ID, fields map[string]any) error {
	return db.WithContext(ctx).
		Model(&domain.UserSubscription{}).
		Where("id = ?", id).
		Updates(fields).Error
}
