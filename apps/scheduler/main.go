package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/horecaalert/internal/alertrun"
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/smallbiznis/horecaalert/internal/listing"
	"github.com/smallbiznis/horecaalert/internal/matchevent"
	"github.com/smallbiznis/horecaalert/internal/metricspush"
	"github.com/smallbiznis/horecaalert/internal/observability"
	"github.com/smallbiznis/horecaalert/internal/providers"
	"github.com/smallbiznis/horecaalert/internal/ratelimit"
	"github.com/smallbiznis/horecaalert/internal/scheduler"
	searchalertrepository "github.com/smallbiznis/horecaalert/internal/searchalert/repository"
	"github.com/smallbiznis/horecaalert/internal/user"
	"github.com/smallbiznis/horecaalert/pkg/db"
	"go.uber.org/fx"
)

// Standalone scheduler worker. It never serves HTTP and expects the schema to
// be migrated by the main binary.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by the run
		user.Module,
		listing.Module,
		matchevent.Module,
		fx.Provide(searchalertrepository.Provide),
		providers.Module,
		ratelimit.Module,
		metricspush.Module,
		alertrun.Module,

		// No server module!
		scheduler.Module,
		fx.Decorate(func(cfg scheduler.Config) scheduler.Config {
			cfg.Enabled = true
			cfg.RunOnStart = true
			return cfg
		}),
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
