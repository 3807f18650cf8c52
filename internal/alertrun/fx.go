package alertrun

import (
	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/smallbiznis/horecaalert/internal/notification"
	"github.com/smallbiznis/horecaalert/internal/scanner"
	"go.uber.org/fx"
)

var Module = fx.Module("alertrun",
	fx.Provide(
		scanner.New,
		notification.New,
		func(s *scanner.Scanner) PairScanner { return s },
		func(d *notification.Dispatcher) PairDispatcher { return d },
		fx.Annotate(
			func(cfg config.Config) string { return cfg.Slack.Channel },
			fx.ResultTags(`name:"ops_channel"`),
		),
		New,
	),
)
