package search

import (
	"github.com/scyra/scyra/internal/search/service"
	"go.uber.org/fx"
)

var Module = fx.Module("search",
	fx.Provide(service.NewExaClient),
)
