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
	"github.com/orbitalworks/foundry/internal/server"
	"github.com/orbitalworks/foundry/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// External collaborators
		catalog.Module,
		authgw.Module,
		ledger.Module,
		registry.Module,
		events.Module,

		// Functional domains
		facility.Module,
		job.Module,
		scheduler.Module,

		server.Module,
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
