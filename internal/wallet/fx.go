package wallet

import (
	"github.com/lumamail/backend/internal/wallet/repository"
	"github.com/lumamail/backend/internal/wallet/service"
	"go.uber.org/fx"
)

var Module = fx.Module("wallet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
