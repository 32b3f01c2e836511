package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// View joins the subscription row with its plan and derived state; downstream
// quota checks read limits from here.
type View struct {
	Subscription UserSubscription `json:"subscription"`
	Plan         SubscriptionPlan `json:"plan"`
	State        EffectiveState   `json:"state"`
}

type AssignRequest struct {
	UserID   snowflake.ID
	PlanCode PlanCode
	// Start defaults to now; the period always spans one month from it.
	Start *time.Time
}

type Service interface {
	ListPlans(ctx context.Context) ([]SubscriptionPlan, error)
	GetPlanByCode(ctx context.Context, code PlanCode) (*SubscriptionPlan, error)
	GetPlanByID(ctx context.Context, id snowflake.ID) (*SubscriptionPlan, error)
	// Assign upserts the user's subscription and seeds a fresh usage period
	// for the same window in one transaction. Plan switches are immediate.
	Assign(ctx context.Context, req AssignRequest) (*View, error)
	// Cancel soft-cancels: access continues until the current period end.
	// Cancelling the free plan is rejected.
	Cancel(ctx context.Context, userID snowflake.ID) (*View, error)
	// GetCurrent returns the subscription joined with plan attributes. A
	// stale active period is rolled forward before returning.
	GetCurrent(ctx context.Context, userID snowflake.ID) (*View, error)
	// ApplyPackageGrant replaces the current grant on the user's
	// subscription. Plan eligibility is the caller's concern.
	ApplyPackageGrant(ctx context.Context, userID, packageID snowflake.ID, credits, sendsPerEmail int) error
	// ConsumeGrantGenerations atomically decrements the grant counter,
	// reporting false when fewer than n generations remain.
	ConsumeGrantGenerations(ctx context.Context, userID snowflake.ID, n int) (bool, error)
}

var (
	ErrPlanNotFound         = errors.New("plan_not_found")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrCannotCancelFreePlan = errors.New("cannot_cancel_free_plan")
	ErrSubscriptionExpired  = errors.New("subscription_expired")
)
