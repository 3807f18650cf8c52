package searchalert

import (
	"github.com/smallbiznis/horecaalert/internal/searchalert/repository"
	"github.com/smallbiznis/horecaalert/internal/searchalert/schema"
	"github.com/smallbiznis/horecaalert/internal/searchalert/service"
	"go.uber.org/fx"
)

var Module = fx.Module("searchalert.service",
	fx.Provide(repository.Provide),
	fx.Provide(schema.NewValidator),
	fx.Provide(service.New),
)
