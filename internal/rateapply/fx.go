package rateapply

import (
	"github.com/arusdata/pricebook/internal/rateapply/service"
	"go.uber.org/fx"
)

var Module = fx.Module("rateapply.service",
	fx.Provide(service.New),
)
