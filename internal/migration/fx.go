package migration

import (
	"github.com/orbitalworks/foundry/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(cfg config.Config, conn *gorm.DB, log *zap.Logger) error {
		// The embedded migrator only speaks postgres; other dialects manage
		// their schema out of band.
		if cfg.DBType != "postgres" {
			log.Warn("skipping embedded migrations", zap.String("db_type", cfg.DBType))
			return nil
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
