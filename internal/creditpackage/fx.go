package creditpackage

import (
	"github.com/lumamail/backend/internal/creditpackage/repository"
	"github.com/lumamail/backend/internal/creditpackage/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditpackage.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
