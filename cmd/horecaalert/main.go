package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/horecaalert/internal/alertrun"
	"github.com/smallbiznis/horecaalert/internal/clock"
	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/smallbiznis/horecaalert/internal/listing"
	"github.com/smallbiznis/horecaalert/internal/matchevent"
	"github.com/smallbiznis/horecaalert/internal/metricspush"
	"github.com/smallbiznis/horecaalert/internal/migration"
	"github.com/smallbiznis/horecaalert/internal/observability"
	"github.com/smallbiznis/horecaalert/internal/providers"
	"github.com/smallbiznis/horecaalert/internal/ratelimit"
	"github.com/smallbiznis/horecaalert/internal/scheduler"
	"github.com/smallbiznis/horecaalert/internal/searchalert"
	"github.com/smallbiznis/horecaalert/internal/server"
	"github.com/smallbiznis/horecaalert/internal/user"
	"github.com/smallbiznis/horecaalert/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domains
		user.Module,
		listing.Module,
		matchevent.Module,
		searchalert.Module,
		providers.Module,
		ratelimit.Module,
		metricspush.Module,
		alertrun.Module,

		// Triggers: the cron endpoint always, the in-process scheduler when enabled.
		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
