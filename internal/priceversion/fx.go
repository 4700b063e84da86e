package priceversion

import (
	"github.com/arusdata/pricebook/internal/priceversion/repository"
	"github.com/arusdata/pricebook/internal/priceversion/service"
	"go.uber.org/fx"
)

var Module = fx.Module("priceversion.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
