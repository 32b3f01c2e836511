package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/lumamail/backend/internal/clock"
	creditpackagedomain "github.com/lumamail/backend/internal/creditpackage/domain"
	"github.com/lumamail/backend/internal/payment/domain"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	statusSucceeded = "succeeded"
	statusFailed    = "failed"
)

type Params struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Repo             domain.Repository
	PackageRepo      creditpackagedomain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	Clock            clock.Clock
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	repo             domain.Repository
	packageRepo      creditpackagedomain.Repository
	subscriptionRepo subscriptiondomain.Repository
	clock            clock.Clock
}

func NewService(p Params) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("payment.service"),
		genID:            p.GenID,
		repo:             p.Repo,
		packageRepo:      p.PackageRepo,
		subscriptionRepo: p.SubscriptionRepo,
		clock:            p.Clock,
	}
}

func (s *Service) Reconcile(ctx context.Context, event *domain.PaymentEvent, payload []byte) error {
	if !json.Valid(payload) {
		return domain.ErrInvalidPayload
	}
	if err := validateEvent(event); err != nil {
		return err
	}

	now := s.clock.Now()
	received := domain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ProviderEventID,
		EventType:       event.Type,
		UserID:          event.UserID,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      now,
	}

	// The insert records the delivery; the claim below is the gate. Both
	// stay separate so a lost race on the unique index still converges.
	inserted, err := s.repo.InsertEvent(ctx, s.db, &received)
	if err != nil {
		return err
	}
	stored := &received
	if !inserted {
		stored, err = s.repo.FindEvent(ctx, s.db, event.Provider, event.ProviderEventID)
		if err != nil {
			return err
		}
		if stored == nil {
			return domain.ErrInvalidEvent
		}
	}

	// Side effects commit atomically with the processed_at stamp. A failure
	// anywhere rolls the claim back, leaving the event open for the
	// gateway's retry; a delivery that loses the claim is a benign no-op.
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claimed, err := s.repo.ClaimEvent(ctx, tx, stored.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			s.log.Info("duplicate payment event ignored",
				zap.String("provider", event.Provider),
				zap.String("provider_event_id", event.ProviderEventID),
			)
			return nil
		}
		return s.applyEvent(ctx, tx, stored, event, now)
	})
}

func (s *Service) applyEvent(ctx context.Context, tx *gorm.DB, stored *domain.EventRecord, event *domain.PaymentEvent, now time.Time) error {
	switch event.Type {
	case domain.EventTypePaymentSucceeded:
		pkg, err := s.packageRepo.FindByID(ctx, tx, event.PackageID)
		if err != nil {
			return err
		}
		if err := s.subscriptionRepo.ApplyGrant(ctx, tx, event.UserID, pkg.ID, pkg.Credits, pkg.SendsPerEmail, now); err != nil {
			return err
		}
		s.log.Info("payment reconciled",
			zap.Int64("user_id", event.UserID.Int64()),
			zap.Int64("package_id", pkg.ID.Int64()),
			zap.Int64("charged_amount_cents", event.ChargedAmountCents),
			zap.String("charged_currency", event.ChargedCurrency),
		)
		return s.appendHistory(ctx, tx, stored, event, statusSucceeded, now)
	case domain.EventTypePaymentFailed:
		// Audit only. No grant, no wallet mutation; retries belong to the
		// gateway.
		s.log.Warn("payment failed",
			zap.Int64("user_id", event.UserID.Int64()),
			zap.String("provider_event_id", event.ProviderEventID),
		)
		return s.appendHistory(ctx, tx, stored, event, statusFailed, now)
	default:
		return domain.ErrInvalidEvent
	}
}

func (s *Service) appendHistory(ctx context.Context, tx *gorm.DB, stored *domain.EventRecord, event *domain.PaymentEvent, status string, now time.Time) error {
	return s.repo.AppendHistory(ctx, tx, &domain.PaymentHistory{
		ID:                  s.genID.Generate(),
		UserID:              event.UserID,
		PackageID:           event.PackageID,
		ReferenceID:         uuid.NewString(),
		Provider:            stored.Provider,
		ProviderEventID:     stored.ProviderEventID,
		Status:              status,
		OriginalAmountCents: event.OriginalAmountCents,
		OriginalCurrency:    event.OriginalCurrency,
		ChargedAmountCents:  event.ChargedAmountCents,
		ChargedCurrency:     event.ChargedCurrency,
		ExchangeRate:        event.ExchangeRate,
		CreatedAt:           now,
	})
}

func (s *Service) ListHistory(ctx context.Context, userID snowflake.ID) ([]domain.PaymentHistory, error) {
	return s.repo.ListHistory(ctx, s.db, userID)
}

func validateEvent(event *domain.PaymentEvent) error {
	if event == nil {
		return domain.ErrInvalidEvent
	}
	event.Provider = strings.ToLower(strings.TrimSpace(event.Provider))
	if event.Provider == "" {
		return domain.ErrInvalidEvent
	}
	event.ProviderEventID = strings.TrimSpace(event.ProviderEventID)
	if event.ProviderEventID == "" {
		return domain.ErrInvalidEvent
	}
	event.Type = strings.TrimSpace(event.Type)
	if event.UserID == 0 {
		return domain.ErrInvalidEvent
	}
	switch event.Type {
	case domain.EventTypePaymentSucceeded:
		if event.PackageID == 0 {
			return domain.ErrInvalidEvent
		}
		if event.ChargedAmountCents <= 0 {
			return domain.ErrInvalidAmount
		}
		if strings.TrimSpace(event.ChargedCurrency) == "" {
			return domain.ErrInvalidCurrency
		}
	case domain.EventTypePaymentFailed:
	default:
		return domain.ErrInvalidEvent
	}
	return nil
}
