package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/orbitalworks/foundry/internal/authgw"
	"github.com/orbitalworks/foundry/internal/catalog"
	"github.com/orbitalworks/foundry/internal/clock"
	"github.com/orbitalworks/foundry/internal/config"
	"github.com/orbitalworks/foundry/internal/events"
	"github.com/orbitalworks/foundry/internal/facility"
	"github.com/orbitalworks/foundry/internal/job"
	"github.com/orbitalworks/foundry/internal/ledger"
	"github.com/orbitalworks/foundry/internal/logger"
	"github.com/orbitalworks/foundry/internal/migration"
	"github.com/orbitalworks/foundry/internal/registry"
	"github.com/orbitalworks/foundry/internal/scheduler"
	"github.com/orbitalworks/foundry/pkg/db"
	"go.uber.org/fx"
)

// Tick-only worker: runs the scheduler loop without the HTTP surface so the
// API deployment and the scheduling deployment can scale independently.
func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		catalog.Module,
		authgw.Module,
		ledger.Module,
		registry.Module,
		events.Module,

		facility.Module,
		job.Module,

		// No server module
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
