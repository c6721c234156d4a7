package research

import (
	"github.com/scyra/scyra/internal/research/service"
	"go.uber.org/fx"
)

var Module = fx.Module("research",
	fx.Provide(service.NewPlanner),
	fx.Provide(service.NewSynthesizer),
)
