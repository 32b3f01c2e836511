package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Action is a metered activity.
type Action string

const (
	ActionGeneration Action = "generation"
	ActionSend       Action = "send"
)

func (a Action) Valid() bool {
	return a == ActionGeneration || a == ActionSend
}

type CheckLimitRequest struct {
	UserID snowflake.ID
	Action Action
	Count  int
	// CostCents is the externally computed price of the action. Required on
	// the pro plan where the limit is wallet sufficiency.
	CostCents int64
}

type CheckLimitResult struct {
	Allowed   bool   `json:"allowed"`
	Remaining int    `json:"remaining"`
	Limit     int    `json:"limit"`
	CostCents int64  `json:"cost_cents"`
	Reason    string `json:"reason,omitempty"`
}

type TrackRequest struct {
	UserID    snowflake.ID
	Action    Action
	Count     int
	CostCents int64
	Note      string
}

type Stats struct {
	PeriodStart      time.Time `json:"period_start"`
	PeriodEnd        time.Time `json:"period_end"`
	GenerationsCount int       `json:"generations_count"`
	GenerationLimit  int       `json:"generation_limit"`
	SendsCount       int       `json:"sends_count"`
	SendsToday       int       `json:"sends_today"`
	TotalSpentCents  int64     `json:"total_spent_cents"`
	PlanCode         string    `json:"plan_code"`
	GrantGenerations int       `json:"grant_generations_remaining"`
	BalanceCents     *int64    `json:"balance_cents,omitempty"`
}

type Service interface {
	// CreatePeriod seeds zeroed counters. Must be called exactly once per
	// period transition; a duplicate create is a caller error.
	CreatePeriod(ctx context.Context, userID, subscriptionID snowflake.ID, start, end time.Time) error
	// CheckLimit is a pure read-then-decide; it never mutates state.
	CheckLimit(ctx context.Context, req CheckLimitRequest) (*CheckLimitResult, error)
	// Track records an action that already happened. The gate is CheckLimit
	// for free-plan counters and the wallet debit for pro spend; Track is
	// the record, not the gate.
	Track(ctx context.Context, req TrackRequest) error
	Stats(ctx context.Context, userID snowflake.ID) (*Stats, error)
}

var (
	ErrInvalidAction = errors.New("invalid_action")
	ErrInvalidCount  = errors.New("invalid_count")
	ErrCostRequired  = errors.New("cost_required")
	ErrPeriodExists  = errors.New("usage_period_exists")
	ErrNoUsagePeriod = errors.New("usage_period_not_found")
	ErrLimitExceeded = errors.New("limit_exceeded")
)
