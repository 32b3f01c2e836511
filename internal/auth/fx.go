package auth

import (
	"github.com/lumamail/backend/internal/auth/repository"
	"github.com/lumamail/backend/internal/auth/service"
	"github.com/lumamail/backend/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.ProvideUserRepository),
	fx.Provide(repository.ProvideSessionRepository),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
