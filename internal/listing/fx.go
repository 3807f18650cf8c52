package listing

import (
	"github.com/smallbiznis/horecaalert/internal/config"
	"github.com/smallbiznis/horecaalert/internal/listing/domain"
	"github.com/smallbiznis/horecaalert/internal/listing/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("listing.repository",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config) domain.URLBuilder {
		return domain.NewURLBuilder(cfg.PublicBaseURL)
	}),
)
