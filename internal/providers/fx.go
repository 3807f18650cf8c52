package providers

import (
	"github.com/smallbiznis/horecaalert/internal/providers/email"
	"github.com/smallbiznis/horecaalert/internal/providers/slack"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	slack.Module,
)
