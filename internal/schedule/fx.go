package schedule

import (
	"github.com/arusdata/pricebook/internal/schedule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("schedule.service",
	fx.Provide(service.New),
)
