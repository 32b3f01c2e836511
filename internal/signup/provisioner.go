package signup

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/lumamail/backend/internal/signup/domain"
	subscriptiondomain "github.com/lumamail/backend/internal/subscription/domain"
	walletdomain "github.com/lumamail/backend/internal/wallet/domain"
	walletservice "github.com/lumamail/backend/internal/wallet/service"
)

type accountProvisioner struct {
	subscriptionSvc subscriptiondomain.Service
	walletSvc       walletdomain.Service
}

func NewAccountProvisioner(subscriptionSvc subscriptiondomain.Service, walletSvc walletdomain.Service) domain.Provisioner {
	return &accountProvisioner{
		subscriptionSvc: subscriptionSvc,
		walletSvc:       walletSvc,
	}
}

func (p *accountProvisioner) Provision(ctx context.Context, userID snowflake.ID) error {
	if _, err := p.subscriptionSvc.Assign(ctx, subscriptiondomain.AssignRequest{
		UserID:   userID,
		PlanCode: subscriptiondomain.PlanFree,
	}); err != nil {
		return err
	}

	if _, err := p.walletSvc.Ensure(ctx, userID, walletservice.DefaultCurrency); err != nil {
		return err
	}
	return nil
}
