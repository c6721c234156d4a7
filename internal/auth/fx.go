package auth

import (
	"github.com/scyra/scyra/internal/auth/repository"
	"github.com/scyra/scyra/internal/auth/service"
	"github.com/scyra/scyra/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
