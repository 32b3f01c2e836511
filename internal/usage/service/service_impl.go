package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/clock"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	"github.com/lumamail/backend/internal/usage/domain"
	walletdomain "github.com/lumamail/backend/internal/wallet/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	ReasonSubscriptionExpired = "subscription_expired"
	ReasonGenerationLimit     = "generation_limit_reached"
	ReasonSendsPerEmail       = "sends_per_email_exceeded"
	ReasonDailySendLimit      = "daily_send_limit_reached"
	ReasonInsufficientBalance = "insufficient_balance"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Repo            domain.Repository
	SubscriptionSvc subscriptiondomain.Service
	WalletSvc       walletdomain.Service
	Clock           clock.Clock
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	repo            domain.Repository
	subscriptionSvc subscriptiondomain.Service
	walletSvc       walletdomain.Service
	clock           clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("usage.service"),
		genID:           p.GenID,
		repo:            p.Repo,
		subscriptionSvc: p.SubscriptionSvc,
		walletSvc:       p.WalletSvc,
		clock:           p.Clock,
	}
}

func (s *Service) CreatePeriod(ctx context.Context, userID, subscriptionID snowflake.ID, start, end time.Time) error {
	now := s.clock.Now()
	return s.repo.CreatePeriod(ctx, s.db, &domain.UsagePeriod{
		ID:             s.genID.Generate(),
		UserID:         userID,
		SubscriptionID: subscriptionID,
		PeriodStart:    start.UTC(),
		PeriodEnd:      end.UTC(),
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) CheckLimit(ctx context.Context, req domain.CheckLimitRequest) (*domain.CheckLimitResult, error) {
	if !req.Action.Valid() {
		return nil, domain.ErrInvalidAction
	}
	if req.Count <= 0 {
		return nil, domain.ErrInvalidCount
	}

	view, err := s.subscriptionSvc.GetCurrent(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if !view.Subscription.Usable(now) {
		return &domain.CheckLimitResult{Allowed: false, Reason: ReasonSubscriptionExpired}, nil
	}

	period, err := s.repo.FindCurrent(ctx, s.db, view.Subscription.ID, now)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNoUsagePeriod
	}

	if view.Plan.Code == subscriptiondomain.PlanFree {
		return s.checkFree(req, view, period), nil
	}
	return s.checkPro(ctx, req, view, period, now)
}

func (s *Service) checkFree(req domain.CheckLimitRequest, view *subscriptiondomain.View, period *domain.UsagePeriod) *domain.CheckLimitResult {
	switch req.Action {
	case domain.ActionGeneration:
		limit := view.Plan.GenerationLimit
		remaining := limit - period.GenerationsCount
		if remaining < 0 {
			remaining = 0
		}
		res := &domain.CheckLimitResult{
			Allowed:   req.Count <= remaining,
			Remaining: remaining,
			Limit:     limit,
		}
		if !res.Allowed {
			res.Reason = ReasonGenerationLimit
		}
		return res
	default: // send
		limit := view.Plan.SendsPerEmail
		res := &domain.CheckLimitResult{
			Allowed:   req.Count <= limit,
			Remaining: limit,
			Limit:     limit,
		}
		if !res.Allowed {
			res.Reason = ReasonSendsPerEmail
		}
		return res
	}
}

func (s *Service) checkPro(ctx context.Context, req domain.CheckLimitRequest, view *subscriptiondomain.View, period *domain.UsagePeriod, now time.Time) (*domain.CheckLimitResult, error) {
	switch req.Action {
	case domain.ActionGeneration:
		grant := view.Subscription.GrantGenerationsRemaining
		if grant >= req.Count {
			// Prepaid package credits cover it; no wallet involvement.
			return &domain.CheckLimitResult{
				Allowed:   true,
				Remaining: grant,
				Limit:     grant,
			}, nil
		}
		if req.CostCents <= 0 {
			return nil, domain.ErrCostRequired
		}
		wallet, err := s.walletSvc.GetBalance(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		res := &domain.CheckLimitResult{
			Allowed:   wallet.BalanceCents >= req.CostCents,
			Remaining: grant,
			CostCents: req.CostCents,
		}
		if !res.Allowed {
			res.Reason = ReasonInsufficientBalance
		}
		return res, nil
	default: // send
		perEmail := view.Plan.SendsPerEmail
		if view.Subscription.GrantSendsPerEmail > perEmail {
			perEmail = view.Subscription.GrantSendsPerEmail
		}
		if req.Count > perEmail {
			return &domain.CheckLimitResult{
				Allowed: false,
				Limit:   perEmail,
				Reason:  ReasonSendsPerEmail,
			}, nil
		}
		if dailyCap := view.Plan.MaxDailySends; dailyCap > 0 {
			today := period.SendsToday
			if period.SendsDay != dayKey(now) {
				today = 0
			}
			if today+req.Count > dailyCap {
				remaining := dailyCap - today
				if remaining < 0 {
					remaining = 0
				}
				return &domain.CheckLimitResult{
					Allowed:   false,
					Remaining: remaining,
					Limit:     dailyCap,
					Reason:    ReasonDailySendLimit,
				}, nil
			}
		}
		if req.CostCents <= 0 {
			return nil, domain.ErrCostRequired
		}
		wallet, err := s.walletSvc.GetBalance(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		res := &domain.CheckLimitResult{
			Allowed:   wallet.BalanceCents >= req.CostCents,
			Limit:     perEmail,
			CostCents: req.CostCents,
		}
		if !res.Allowed {
			res.Reason = ReasonInsufficientBalance
		}
		return res, nil
	}
}

func (s *Service) Track(ctx context.Context, req domain.TrackRequest) error {
	if !req.Action.Valid() {
		return domain.ErrInvalidAction
	}
	if req.Count <= 0 {
		return domain.ErrInvalidCount
	}

	view, err := s.subscriptionSvc.GetCurrent(ctx, req.UserID)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	if !view.Subscription.Usable(now) {
		return subscriptiondomain.ErrSubscriptionExpired
	}

	period, err := s.repo.FindCurrent(ctx, s.db, view.Subscription.ID, now)
	if err != nil {
		return err
	}
	if period == nil {
		return domain.ErrNoUsagePeriod
	}

	if view.Plan.Code == subscriptiondomain.PlanFree {
		return s.trackFree(ctx, req, period, now)
	}
	return s.trackPro(ctx, req, period, now)
}

func (s *Service) trackFree(ctx context.Context, req domain.TrackRequest, period *domain.UsagePeriod, now time.Time) error {
	switch req.Action {
	case domain.ActionGeneration:
		return s.repo.IncrementGenerations(ctx, s.db, period.ID, req.Count, now)
	default:
		return s.repo.IncrementSends(ctx, s.db, period.ID, req.Count, 0, dayKey(now), now)
	}
}

func (s *Service) trackPro(ctx context.Context, req domain.TrackRequest, period *domain.UsagePeriod, now time.Time) error {
	switch req.Action {
	case domain.ActionGeneration:
		// Prepaid credits are consumed before any wallet charge. The grant
		// decrement is conditional, so two concurrent tracks cannot spend
		// the same credits twice.
		consumed, err := s.subscriptionSvc.ConsumeGrantGenerations(ctx, req.UserID, req.Count)
		if err != nil {
			return err
		}
		if !consumed {
			if req.CostCents <= 0 {
				return domain.ErrCostRequired
			}
			if err := s.walletSvc.Deduct(ctx, walletdomain.DeductRequest{
				UserID:      req.UserID,
				AmountCents: req.CostCents,
				Action:      string(req.Action),
				Note:        req.Note,
			}); err != nil {
				return err
			}
			if err := s.repo.AddSpent(ctx, s.db, period.ID, req.CostCents, now); err != nil {
				return err
			}
		}
		return s.repo.IncrementGenerations(ctx, s.db, period.ID, req.Count, now)
	default:
		if req.CostCents <= 0 {
			return domain.ErrCostRequired
		}
		if err := s.walletSvc.Deduct(ctx, walletdomain.DeductRequest{
			UserID:      req.UserID,
			AmountCents: req.CostCents,
			Action:      string(req.Action),
			Note:        req.Note,
		}); err != nil {
			return err
		}
		return s.repo.IncrementSends(ctx, s.db, period.ID, req.Count, req.CostCents, dayKey(now), now)
	}
}

func (s *Service) Stats(ctx context.Context, userID snowflake.ID) (*domain.Stats, error) {
	view, err := s.subscriptionSvc.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	period, err := s.repo.FindCurrent(ctx, s.db, view.Subscription.ID, now)
	if err != nil {
		return nil, err
	}
	if period == nil {
		return nil, domain.ErrNoUsagePeriod
	}

	stats := &domain.Stats{
		PeriodStart:      period.PeriodStart,
		PeriodEnd:        period.PeriodEnd,
		GenerationsCount: period.GenerationsCount,
		GenerationLimit:  view.Plan.GenerationLimit,
		SendsCount:       period.SendsCount,
		SendsToday:       period.SendsToday,
		TotalSpentCents:  period.TotalSpentCents,
		PlanCode:         string(view.Plan.Code),
		GrantGenerations: view.Subscription.GrantGenerationsRemaining,
	}
	if period.SendsDay != dayKey(now) {
		stats.SendsToday = 0
	}

	if view.Plan.Code == subscriptiondomain.PlanPro {
		wallet, err := s.walletSvc.GetBalance(ctx, userID)
		if err == nil {
			stats.BalanceCents = &wallet.BalanceCents
		} else if err != walletdomain.ErrWalletNotFound {
			return nil, err
		}
	}

	return stats, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
