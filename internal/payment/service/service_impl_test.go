package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/lumamail/backend/internal/clock"
	creditpackagedomain "github.com/lumamail/backend/internal/creditpackage/domain"
	creditpackagerepository "github.com/lumamail/backend/internal/creditpackage/repository"
	"github.com/lumamail/backend/internal/payment/domain"
	"github.com/lumamail/backend/internal/payment/repository"
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

type paymentFixture struct {
	svc             domain.Service
	subscriptionSvc subscriptiondomain.Service
	db              *gorm.DB
	node            *snowflake.Node
	userID          snowflake.ID
	packageID       snowflake.ID
}

func setupPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	return setupPaymentFixtureWithRepo(t, repository.Provide())
}

func setupPaymentFixtureWithRepo(t *testing.T, repo domain.Repository) *paymentFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&subscriptiondomain.SubscriptionPlan{},
		&subscriptiondomain.UserSubscription{},
		&usagedomain.UsagePeriod{},
		&creditpackagedomain.Package{},
		&domain.EventRecord{},
		&domain.PaymentHistory{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	seeded := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	proPlan := subscriptiondomain.SubscriptionPlan{
		ID: node.Generate(), Code: subscriptiondomain.PlanPro, Name: "Pro",
		PriceCents: 1900, Currency: "USD", SendsPerEmail: 3, CreatedAt: seeded,
	}
	require.NoError(t, db.Create(&proPlan).Error)

	pkg := creditpackagedomain.Package{
		ID: node.Generate(), Name: "starter", Credits: 100, SendsPerEmail: 3,
		PriceCents: 999, Currency: "USD", CreatedAt: seeded, UpdatedAt: seeded,
	}
	require.NoError(t, db.Create(&pkg).Error)

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
		DB:               db,
		Log:              log,
		GenID:            node,
		Repo:             repo,
		PackageRepo:      creditpackagerepository.Provide(),
		SubscriptionRepo: subscriptionrepository.Provide(),
		Clock:            clk,
	})

	userID := node.Generate()
	_, err = subscriptionSvc.Assign(context.Background(), subscriptiondomain.AssignRequest{
		UserID: userID, PlanCode: subscriptiondomain.PlanPro,
	})
	require.NoError(t, err)

	return &paymentFixture{
		svc:             svc,
		subscriptionSvc: subscriptionSvc,
		db:              db,
		node:            node,
		userID:          userID,
		packageID:       pkg.ID,
	}
}

func (f *paymentFixture) succeededEvent(eventID string) *domain.PaymentEvent {
	return &domain.PaymentEvent{
		Provider:            "gateway",
		ProviderEventID:     eventID,
		Type:                domain.EventTypePaymentSucceeded,
		UserID:              f.userID,
		PackageID:           f.packageID,
		OriginalAmountCents: 999,
		OriginalCurrency:    "USD",
		ChargedAmountCents:  999,
		ChargedCurrency:     "USD",
		ExchangeRate:        1,
	}
}

func TestReconcileGrantsPackageExactlyOnce(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := context.Background()
	payload := []byte(`{"id":"evt_1"}`)

	require.NoError(t, f.svc.Reconcile(ctx, f.succeededEvent("evt_1"), payload))
	// Redelivery of the same provider event is a benign no-op.
	require.NoError(t, f.svc.Reconcile(ctx, f.succeededEvent("evt_1"), payload))

	current, err := f.subscriptionSvc.GetCurrent(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 100, current.Subscription.GrantGenerationsRemaining,
		"a redelivered event must not stack a second grant")

	var histories int64
	require.NoError(t, f.db.Model(&domain.PaymentHistory{}).Count(&histories).Error)
	assert.Equal(t, int64(1), histories)

	var events int64
	require.NoError(t, f.db.Model(&domain.EventRecord{}).Count(&events).Error)
	assert.Equal(t, int64(1), events)
}

// flakyHistoryRepo fails AppendHistory a fixed number of times before
// delegating, standing in for a transient store error mid-reconcile.
type flakyHistoryRepo struct {
	domain.Repository
	failures int
}

func (r *flakyHistoryRepo) AppendHistory(ctx context.Context, db *gorm.DB, history *domain.PaymentHistory) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("history store unavailable")
	}
	return r.Repository.AppendHistory(ctx, db, history)
}

func TestReconcileRetryAfterFailureAppliesOnce(t *testing.T) {
	f := setupPaymentFixtureWithRepo(t, &flakyHistoryRepo{Repository: repository.Provide(), failures: 1})
	ctx := context.Background()
	payload := []byte(`{"id":"evt_retry"}`)

	require.Error(t, f.svc.Reconcile(ctx, f.succeededEvent("evt_retry"), payload))

	// The failed attempt rolls back wholesale: no grant, no history, and an
	// unprocessed event row for the gateway's retry.
	current, err := f.subscriptionSvc.GetCurrent(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Subscription.GrantGenerationsRemaining)

	var record domain.EventRecord
	require.NoError(t, f.db.Where("provider_event_id = ?", "evt_retry").First(&record).Error)
	require.Nil(t, record.ProcessedAt)

	require.NoError(t, f.svc.Reconcile(ctx, f.succeededEvent("evt_retry"), payload))

	current, err = f.subscriptionSvc.GetCurrent(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 100, current.Subscription.GrantGenerationsRemaining,
		"the retried event must grant exactly once")

	var histories int64
	require.NoError(t, f.db.Model(&domain.PaymentHistory{}).Count(&histories).Error)
	assert.Equal(t, int64(1), histories)
}

func TestReconcileDistinctEventsBothApply(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.Reconcile(ctx, f.succeededEvent("evt_1"), []byte(`{"id":"evt_1"}`)))
	require.NoError(t, f.svc.Reconcile(ctx, f.succeededEvent("evt_2"), []byte(`{"id":"evt_2"}`)))

	history, err := f.svc.ListHistory(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestReconcileFailedPaymentIsAuditOnly(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := context.Background()

	event := &domain.PaymentEvent{
		Provider:        "gateway",
		ProviderEventID: "evt_failed",
		Type:            domain.EventTypePaymentFailed,
		UserID:          f.userID,
		PackageID:       f.packageID,
	}
	require.NoError(t, f.svc.Reconcile(ctx, event, []byte(`{"id":"evt_failed"}`)))

	current, err := f.subscriptionSvc.GetCurrent(ctx, f.userID)
	require.NoError(t, err)
	assert.Equal(t, 0, current.Subscription.GrantGenerationsRemaining, "a failed payment must not grant")

	history, err := f.svc.ListHistory(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "failed", history[0].Status)
}

func TestReconcileValidation(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := context.Background()

	err := f.svc.Reconcile(ctx, f.succeededEvent("evt_x"), []byte(`not json`))
	assert.ErrorIs(t, err, domain.ErrInvalidPayload)

	event := f.succeededEvent("evt_x")
	event.ChargedAmountCents = 0
	err = f.svc.Reconcile(ctx, event, []byte(`{"id":"evt_x"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	event = f.succeededEvent("evt_x")
	event.ChargedCurrency = " "
	err = f.svc.Reconcile(ctx, event, []byte(`{"id":"evt_x"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidCurrency)

	event = f.succeededEvent("")
	err = f.svc.Reconcile(ctx, event, []byte(`{"id":""}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	event = f.succeededEvent("evt_y")
	event.Type = "payment.refunded"
	err = f.svc.Reconcile(ctx, event, []byte(`{"id":"evt_y"}`))
	assert.ErrorIs(t, err, domain.ErrInvalidEvent)

	var events int64
	require.NoError(t, f.db.Model(&domain.EventRecord{}).Count(&events).Error)
	assert.Equal(t, int64(0), events, "rejected events must not be stored")
}

func TestReconcileUnknownPackage(t *testing.T) {
	f := setupPaymentFixture(t)
	ctx := context.Background()

	event := f.succeededEvent("evt_nopkg")
	event.PackageID = f.node.Generate()
	err := f.svc.Reconcile(ctx, event, []byte(`{"id":"evt_nopkg"}`))
	assert.ErrorIs(t, err, creditpackagedomain.ErrPackageNotFound)

	// The event row stays unprocessed so a corrected retry can land.
	var record domain.EventRecord
	require.NoError(t, f.db.Where("provider_event_id = ?", "evt_nopkg").First(&record).Error)
	assert.Nil(t, record.ProcessedAt)
}
