package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/clock"
	"github.com/lumamail/backend/internal/wallet/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultCurrency = "USD"

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
	clock clock.Clock
}

func NewService(db *gorm.DB, log *zap.Logger, repo domain.Repository, genID *snowflake.Node, clk clock.Clock) domain.Service {
	return &Service{
		db:    db,
		log:   log.Named("wallet.service"),
		repo:  repo,
		genID: genID,
		clock: clk,
	}
}

func (s *Service) Ensure(ctx context.Context, userID snowflake.ID, currency string) (*domain.Wallet, error) {
	wallet, err := s.repo.FindByUserID(ctx, s.db, userID)
	if err == nil {
		return wallet, nil
	}
	if err != domain.ErrWalletNotFound {
		return nil, err
	}

	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = DefaultCurrency
	}

	now := s.clock.Now()
	wallet = &domain.Wallet{
		ID:           s.genID.Generate(),
		UserID:       userID,
		BalanceCents: 0,
		Currency:     currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, s.db, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

func (s *Service) GetBalance(ctx context.Context, userID snowflake.ID) (*domain.Wallet, error) {
	return s.repo.FindByUserID(ctx, s.db, userID)
}

func (s *Service) Deduct(ctx context.Context, req domain.DeductRequest) error {
	if req.AmountCents <= 0 {
		return domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.DeductBalance(ctx, tx, req.UserID, req.AmountCents, now)
		if err != nil {
			return err
		}
		if !ok {
			// Zero rows: either no wallet or not enough balance.
			if _, err := s.repo.FindByUserID(ctx, tx, req.UserID); err != nil {
				return err
			}
			return domain.ErrInsufficientBalance
		}

		return s.repo.AppendTransaction(ctx, tx, &domain.WalletTransaction{
			ID:          s.genID.Generate(),
			UserID:      req.UserID,
			AmountCents: -req.AmountCents,
			Reason:      req.Action,
			Note:        req.Note,
			CreatedAt:   now,
		})
	})
	if err != nil {
		if err == domain.ErrInsufficientBalance || err == domain.ErrWalletNotFound || err == domain.ErrInvalidAmount {
			return err
		}
		s.log.Error("wallet deduct failed",
			zap.String("user_id", req.UserID.String()),
			zap.String("action", req.Action),
			zap.Int64("amount_cents", req.AmountCents),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) Credit(ctx context.Context, req domain.CreditRequest) error {
	if req.AmountCents <= 0 {
		return domain.ErrInvalidAmount
	}

	now := s.clock.Now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.CreditBalance(ctx, tx, req.UserID, req.AmountCents, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrWalletNotFound
		}

		return s.repo.AppendTransaction(ctx, tx, &domain.WalletTransaction{
			ID:          s.genID.Generate(),
			UserID:      req.UserID,
			AmountCents: req.AmountCents,
			Reason:      req.Reason,
			CreatedAt:   now,
		})
	})
}

func (s *Service) ListTransactions(ctx context.Context, userID snowflake.ID) ([]domain.WalletTransaction, error) {
	return s.repo.ListTransactions(ctx, s.db, userID)
}
