package migration

import (
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/smallbiznis/horecaalert/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, clk clock.Clock, log *zap.Logger) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrate(conn); err != nil {
			return err
		}

		if cfg.SeedDemoData && !cfg.IsProduction() {
			if err := seed.EnsureDemoData(conn, clk.Now()); err != nil {
				return err
			}
			log.Named("migrations").Info("demo data ensured")
		}
		return nil
	}),
)
