package job

import (
	"github.com/orbitalworks/foundry/internal/job/repository"
	"github.com/orbitalworks/foundry/internal/job/service"
	"go.uber.org/fx"
)

var Module = fx.Module("job.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
