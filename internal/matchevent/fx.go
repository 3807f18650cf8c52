package matchevent

import (
	"github.com/smallbiznis/horecaalert/internal/matchevent/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("matchevent.repository",
	fx.Provide(repository.Provide),
)
