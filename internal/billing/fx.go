package billing

import (
	"github.com/scyra/scyra/internal/billing/repository"
	"github.com/scyra/scyra/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(repository.New),
	fx.Provide(service.NewDodoClient),
	fx.Provide(service.New),
)
