package facility

import (
	"github.com/orbitalworks/foundry/internal/facility/repository"
	"github.com/orbitalworks/foundry/internal/facility/service"
	"go.uber.org/fx"
)

var Module = fx.Module("facility.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
