package verification

import (
	"github.com/lumamail/backend/internal/verification/repository"
	"github.com/lumamail/backend/internal/verification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("verification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
