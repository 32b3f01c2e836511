package payment

import (
	"github.com/lumamail/backend/internal/payment/repository"
	"github.com/lumamail/backend/internal/payment/service"
	"github.com/lumamail/backend/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
	fx.Provide(webhook.NewVerifier),
)
