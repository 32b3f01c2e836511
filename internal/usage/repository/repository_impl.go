package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/usage/domain"
	"github.com/lumamail/backend/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreatePeriod(ctx context.Context, conn *gorm.DB, period *domain.UsagePeriod) error {
	err := conn.WithContext(ctx).Create(period).Error
	if err != nil && db.IsDuplicateKeyErr(err) {
		return domain.ErrPeriodExists
	}
	return err
}

func (r *repo) FindCurrent(ctx context.Context, conn *gorm.DB, subscriptionID snowflake.ID, at time.Time) (*domain.UsagePeriod, error) {
	var period domain.UsagePeriod
	err := conn.WithContext(ctx).
		Where("subscription_id = ? AND period_start <= ? AND period_end > ?", subscriptionID, at, at).
		Order("period_start DESC").
		First(&period).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &period, nil
}

func (r *repo) IncrementGenerations(ctx context.Context, conn *gorm.DB, id snowflake.ID, n int, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE usage_periods
		 SET generations_count = generations_count + ?, updated_at = ?
		 WHERE id = ?`,
		n,
		now,
		id,
	).Error
}

func (r *repo) IncrementSends(ctx context.Context, conn *gorm.DB, id snowflake.ID, n int, spentCents int64, day string, now time.Time) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reset the daily counter when the stored day is stale.
		if err := tx.Exec(
			`UPDATE usage_periods
			 SET sends_today = 0, sends_day = ?
			 WHERE id = ? AND sends_day <> ?`,
			day,
			id,
			day,
		).Error; err != nil {
			return err
		}
		return tx.Exec(
			`UPDATE usage_periods
			 SET sends_count = sends_count + ?,
			     sends_today = sends_today + ?,
			     total_spent_cents = total_spent_cents + ?,
			     updated_at = ?
			 WHERE id = ?`,
			n,
			n,
			spentCents,
			now,
			id,
		).Error
	})
}

func (r *repo) AddSpent(ctx context.Context, conn *gorm.DB, id snowflake.ID, spentCents int64, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		`UPDATE usage_periods
		 SET total_spent_cents = total_spent_cents + ?, updated_at = ?
		 WHERE id = ?`,
		spentCents,
		now,
		id,
	).Error
}
