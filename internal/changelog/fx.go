package changelog

import (
	"github.com/arusdata/pricebook/internal/changelog/repository"
	"github.com/arusdata/pricebook/internal/changelog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("changelog.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
