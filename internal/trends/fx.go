package trends

import (
	"github.com/scyra/scyra/internal/trends/repository"
	"github.com/scyra/scyra/internal/trends/service"
	"go.uber.org/fx"
)

var Module = fx.Module("trends",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
