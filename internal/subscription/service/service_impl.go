package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/clock"
	"github.com/lumamail/backend/internal/subscription/domain"
	usagedomain "github.com/lumamail/backend/internal/usage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Repo      domain.Repository
	UsageRepo usagedomain.Repository
	Clock     clock.Clock
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	repo      domain.Repository
	usageRepo usagedomain.Repository
	clock     clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("subscription.service"),
		genID:     p.GenID,
		repo:      p.Repo,
		usageRepo: p.UsageRepo,
		clock:     p.Clock,
	}
}

func (s *Service) ListPlans(ctx context.Context) ([]domain.SubscriptionPlan, error) {
	return s.repo.ListPlans(ctx, s.db)
}

func (s *Service) GetPlanByCode(ctx context.Context, code domain.PlanCode) (*domain.SubscriptionPlan, error) {
	return s.repo.FindPlanByCode(ctx, s.db, code)
}

func (s *Service) GetPlanByID(ctx context.Context, id snowflake.ID) (*domain.SubscriptionPlan, error) {
	return s.repo.FindPlanByID(ctx, s.db, id)
}

func (s *Service) Assign(ctx context.Context, req domain.AssignRequest) (*domain.View, error) {
	plan, err := s.repo.FindPlanByCode(ctx, s.db, req.PlanCode)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	if req.Start != nil {
		start = req.Start.UTC()
	}
	end := start.AddDate(0, 1, 0)

	sub := &domain.UserSubscription{
		ID:                 s.genID.Generate(),
		UserID:             req.UserID,
		PlanID:             plan.ID,
		Status:             domain.SubscriptionStatusActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
		CreatedAt:          start,
		UpdatedAt:          start,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Plan switches replace the row but keep its identity when one
		// already exists, so usage periods stay attached.
		existing, err := s.repo.FindByUserID(ctx, tx, req.UserID)
		if err != nil && err != domain.ErrSubscriptionNotFound {
			return err
		}
		if existing != nil {
			sub.ID = existing.ID
			sub.CreatedAt = existing.CreatedAt
			sub.PackageID = existing.PackageID
			sub.GrantGenerationsRemaining = existing.GrantGenerationsRemaining
			sub.GrantSendsPerEmail = existing.GrantSendsPerEmail
			sub.PackagePurchasedAt = existing.PackagePurchasedAt
		}

		if err := s.repo.Upsert(ctx, tx, sub); err != nil {
			return err
		}

		err = s.usageRepo.CreatePeriod(ctx, tx, &usagedomain.UsagePeriod{
			ID:             s.genID.Generate(),
			UserID:         req.UserID,
			SubscriptionID: sub.ID,
			PeriodStart:    start,
			PeriodEnd:      end,
			CreatedAt:      start,
			UpdatedAt:      start,
		})
		if err == usagedomain.ErrPeriodExists {
			// Re-creating within the same period keeps the existing
			// counters; a switch must not reset spent quota.
			err = nil
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("subscription assigned",
		zap.String("user_id", req.UserID.String()),
		zap.String("plan", string(plan.Code)),
	)

	return &domain.View{
		Subscription: *sub,
		Plan:         *plan,
		State:        sub.EffectiveStateAt(s.clock.Now()),
	}, nil
}

func (s *Service) Cancel(ctx context.Context, userID snowflake.ID) (*domain.View, error) {
	sub, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.FindPlanByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if plan.Code == domain.PlanFree {
		return nil, domain.ErrCannotCancelFreePlan
	}

	now := s.clock.Now()
	if err := s.repo.UpdateFields(ctx, s.db, sub.ID, map[string]any{
		"status":       domain.SubscriptionStatusCancelled,
		"cancelled_at": now,
		"updated_at":   now,
	}); err != nil {
		return nil, err
	}

	sub.Status = domain.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	return &domain.View{
		Subscription: *sub,
		Plan:         *plan,
		State:        sub.EffectiveStateAt(now),
	}, nil
}

func (s *Service) GetCurrent(ctx context.Context, userID snowflake.ID) (*domain.View, error) {
	sub, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	plan, err := s.repo.FindPlanByID(ctx, s.db, sub.PlanID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if now.After(sub.CurrentPeriodEnd) && sub.Status == domain.SubscriptionStatusActive {
		if err := s.rollPeriod(ctx, sub, now); err != nil {
			return nil, err
		}
	}

	return &domain.View{
		Subscription: *sub,
		Plan:         *plan,
		State:        sub.EffectiveStateAt(now),
	}, nil
}

// rollPeriod advances a stale active subscription into the period containing
// now, seeding a fresh zeroed usage period. A stale period must never read as
// room remaining.
func (s *Service) rollPeriod(ctx context.Context, sub *domain.UserSubscription, now time.Time) error {
	start := sub.CurrentPeriodStart
	end := sub.CurrentPeriodEnd
	for !now.Before(end) {
		start = end
		end = end.AddDate(0, 1, 0)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.UpdateFields(ctx, tx, sub.ID, map[string]any{
			"current_period_start": start,
			"current_period_end":   end,
			"updated_at":           now,
		}); err != nil {
			return err
		}

		err := s.usageRepo.CreatePeriod(ctx, tx, &usagedomain.UsagePeriod{
			ID:             s.genID.Generate(),
			UserID:         sub.UserID,
			SubscriptionID: sub.ID,
			PeriodStart:    start,
			PeriodEnd:      end,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err == usagedomain.ErrPeriodExists {
			// A concurrent request already rolled the same period.
			err = nil
		}
		if err != nil {
			return err
		}

		sub.CurrentPeriodStart = start
		sub.CurrentPeriodEnd = end
		return nil
	})
}

func (s *Service) ApplyPackageGrant(ctx context.Context, userID, packageID snowflake.ID, credits, sendsPerEmail int) error {
	return s.repo.ApplyGrant(ctx, s.db, userID, packageID, credits, sendsPerEmail, s.clock.Now())
}

func (s *Service) ConsumeGrantGenerations(ctx context.Context, userID snowflake.ID, n int) (bool, error) {
	if n <= 0 {
		return false, nil
	}
	return s.repo.ConsumeGrant(ctx, s.db, userID, n)
}
