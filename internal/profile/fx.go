package profile

import (
	"github.com/scyra/scyra/internal/profile/repository"
	"github.com/scyra/scyra/internal/profile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("profile",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
