package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/creditpackage/domain"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Repo            domain.Repository
	SubscriptionSvc subscriptiondomain.Service
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	repo            domain.Repository
	subscriptionSvc subscriptiondomain.Service
}

func NewService(p Params) domain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("creditpackage.service"),
		repo:            p.Repo,
		subscriptionSvc: p.SubscriptionSvc,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Package, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Package, error) {
	return s.repo.FindByID(ctx, s.db, id)
}

func (s *Service) Purchase(ctx context.Context, userID, packageID snowflake.ID) (*domain.Package, error) {
	pkg, err := s.repo.FindByID(ctx, s.db, packageID)
	if err != nil {
		return nil, err
	}

	if err := s.subscriptionSvc.ApplyPackageGrant(ctx, userID, pkg.ID, pkg.Credits, pkg.SendsPerEmail); err != nil {
		return nil, err
	}

	s.log.Info("package grant applied",
		zap.Int64("user_id", userID.Int64()),
		zap.Int64("package_id", pkg.ID.Int64()),
		zap.Int("credits", pkg.Credits),
	)
	return pkg, nil
}
