package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lumamail/backend/internal/clock"
	"github.com/lumamail/backend/internal/creditpackage/domain"
	"github.com/lumamail/backend/internal/creditpackage/repository"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	subscriptionrepository "github.com/lumamail/backend/internal/subscription/repository"
	subscriptionservice "github.com/lumamail/backend/internal/subscription/service"
	usagedomain "github.com/lumamail/backend/internal/usage/domain"
	usagerepository "github.com/lumamail/backend/internal/usage/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupPackageService(t *testing.T) (domain.Service, subscriptiondomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&subscriptiondomain.SubscriptionPlan{},
		&subscriptiondomain.UserSubscription{},
		&usagedomain.UsagePeriod{},
		&domain.Package{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	seeded := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	proPlan := subscriptiondomain.SubscriptionPlan{
		ID: node.Generate(), Code: subscriptiondomain.PlanPro, Name: "Pro",
		PriceCents: 1900, Currency: "USD", SendsPerEmail: 3, CreatedAt: seeded,
	}
	require.NoError(t, db.Create(&proPlan).Error)

	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.Params{
		DB:        db,
		Log:       log,
		GenID:     node,
		Repo:      subscriptionrepository.Provide(),
		UsageRepo: usagerepository.Provide(),
		Clock:     clk,
	})
	svc := NewService(Params{
		DB:              db,
		Log:             log,
		Repo:            repository.Provide(),
		SubscriptionSvc: subscriptionSvc,
	})
	return svc, subscriptionSvc, db, node
}

func createPackage(t *testing.T, db *gorm.DB, node *snowflake.Node, name string, credits, sends int, priceCents int64) domain.Package {
	t.Helper()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	pkg := domain.Package{
		ID: node.Generate(), Name: name, Credits: credits, SendsPerEmail: sends,
		PriceCents: priceCents, Currency: "USD", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&pkg).Error)
	return pkg
}

func TestListOrdersByPrice(t *testing.T) {
	svc, _, db, node := setupPackageService(t)

	createPackage(t, db, node, "scale", 2000, 10, 12999)
	createPackage(t, db, node, "starter", 100, 3, 999)
	createPackage(t, db, node, "growth", 500, 5, 3999)

	packages, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, packages, 3)
	assert.Equal(t, "starter", packages[0].Name)
	assert.Equal(t, "growth", packages[1].Name)
	assert.Equal(t, "scale", packages[2].Name)
}

func TestPurchaseAppliesGrant(t *testing.T) {
	svc, subscriptionSvc, db, node := setupPackageService(t)
	ctx := context.Background()

	userID := node.Generate()
	_, err := subscriptionSvc.Assign(ctx, subscriptiondomain.AssignRequest{
		UserID: userID, PlanCode: subscriptiondomain.PlanPro,
	})
	require.NoError(t, err)
	pkg := createPackage(t, db, node, "starter", 100, 3, 999)

	bought, err := svc.Purchase(ctx, userID, pkg.ID)
	require.NoError(t, err)
	assert.Equal(t, pkg.ID, bought.ID)

	current, err := subscriptionSvc.GetCurrent(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, current.Subscription.PackageID)
	assert.Equal(t, pkg.ID, *current.Subscription.PackageID)
	assert.Equal(t, 100, current.Subscription.GrantGenerationsRemaining)
	assert.Equal(t, 3, current.Subscription.GrantSendsPerEmail)
	assert.NotNil(t, current.Subscription.PackagePurchasedAt)
}

func TestPurchaseUnknownPackage(t *testing.T) {
	svc, _, _, node := setupPackageService(t)

	_, err := svc.Purchase(context.Background(), node.Generate(), node.Generate())
	assert.ErrorIs(t, err, domain.ErrPackageNotFound)
}

func TestUpsertKeyedOnName(t *testing.T) {
	_, _, db, node := setupPackageService(t)
	ctx := context.Background()
	repo := repository.Provide()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	first := domain.Package{ID: node.Generate(), Name: "starter", Credits: 100, SendsPerEmail: 3, PriceCents: 999, Currency: "USD", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Upsert(ctx, db, &first))

	second := domain.Package{ID: node.Generate(), Name: "starter", Credits: 120, SendsPerEmail: 4, PriceCents: 1099, Currency: "USD", CreatedAt: now, UpdatedAt: now.Add(time.Hour)}
	require.NoError(t, repo.Upsert(ctx, db, &second))

	packages, err := repo.List(ctx, db)
	require.NoError(t, err)
	require.Len(t, packages, 1)
	assert.Equal(t, first.ID, packages[0].ID, "upsert must keep the original row identity")
	assert.Equal(t, 120, packages[0].Credits)
	assert.Equal(t, int64(1099), packages[0].PriceCents)
}
