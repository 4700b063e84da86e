package exchangerate

import (
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	"github.com/arusdata/pricebook/internal/exchangerate/repository"
	"github.com/arusdata/pricebook/internal/exchangerate/service"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("exchangerate.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(provideRateSource),
)

// provideRateSource exposes the rate store to the price store for snapshot
// capture at price creation.
func provideRateSource(svc ratedomain.Service) pricedomain.RateSource {
	rateSource, _ := svc.(pricedomain.RateSource)
	return rateSource
}
