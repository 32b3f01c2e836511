package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	creditpackagedomain "github.com/lumamail/backend/internal/creditpackage/domain"
	creditpackagerepository "github.com/lumamail/backend/internal/creditpackage/repository"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	"gorm.io/gorm"
)

// EnsurePlans seeds the plan catalog for startup bootstrap. Plans are
// reference data; existing rows keep their id and get their attributes
// refreshed so catalog tweaks land on restart.
func EnsurePlans(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, plan := range defaultPlans() {
			if err := ensurePlanTx(ctx, tx, node, plan); err != nil {
				return err
			}
		}
		return nil
	})
}

// EnsurePackages seeds the purchasable credit package catalog.
func EnsurePackages(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	repo := creditpackagerepository.Provide()
	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, pkg := range defaultPackages() {
			pkg.ID = node.Generate()
			pkg.CreatedAt = now
			pkg.UpdatedAt = now
			if err := repo.Upsert(ctx, tx, &pkg); err != nil {
				return err
			}
		}
		return nil
	})
}

func defaultPlans() []subscriptiondomain.SubscriptionPlan {
	return []subscriptiondomain.SubscriptionPlan{
		{
			Code:            subscriptiondomain.PlanFree,
			Name:            "Free",
			PriceCents:      0,
			Currency:        "USD",
			GenerationLimit: 10,
			SendsPerEmail:   1,
			MaxDailySends:   0,
			HasBranding:     true,
		},
		{
			Code:            subscriptiondomain.PlanPro,
			Name:            "Pro",
			PriceCents:      1900,
			Currency:        "USD",
			GenerationLimit: 0,
			SendsPerEmail:   3,
			MaxDailySends:   200,
			HasBranding:     false,
		},
	}
}

func defaultPackages() []creditpackagedomain.Package {
	return []creditpackagedomain.Package{
		{Name: "starter", Credits: 100, SendsPerEmail: 3, PriceCents: 999, Currency: "USD"},
		{Name: "growth", Credits: 500, SendsPerEmail: 5, PriceCents: 3999, Currency: "USD"},
		{Name: "scale", Credits: 2000, SendsPerEmail: 10, PriceCents: 12999, Currency: "USD"},
	}
}

func ensurePlanTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, plan subscriptiondomain.SubscriptionPlan) error {
	var existing subscriptiondomain.SubscriptionPlan
	err := tx.WithContext(ctx).
		Where("code = ?", plan.Code).
		First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		plan.ID = node.Generate()
		plan.CreatedAt = time.Now().UTC()
		return tx.WithContext(ctx).Create(&plan).Error
	}

	return tx.WithContext(ctx).
		Model(&subscriptiondomain.SubscriptionPlan{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"name":             plan.Name,
			"price_cents":      plan.PriceCents,
			"currency":         plan.Currency,
			"generation_limit": plan.GenerationLimit,
			"sends_per_email":  plan.SendsPerEmail,
			"max_daily_sends":  plan.MaxDailySends,
			"has_branding":     plan.HasBranding,
		}).Error
}
