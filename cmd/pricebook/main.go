package main

import (
	"github.com/arusdata/pricebook/internal/changelog"
	"github.com/arusdata/pricebook/internal/clock"
	"github.com/arusdata/pricebook/internal/config"
	"github.com/arusdata/pricebook/internal/exchangerate"
	"github.com/arusdata/pricebook/internal/migration"
	"github.com/arusdata/pricebook/internal/observability"
	"github.com/arusdata/pricebook/internal/priceversion"
	"github.com/arusdata/pricebook/internal/rateapply"
	"github.com/arusdata/pricebook/internal/reference"
	"github.com/arusdata/pricebook/internal/schedule"
	"github.com/arusdata/pricebook/internal/server"
	"github.com/arusdata/pricebook/pkg/db"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		reference.Module,
		changelog.Module,
		priceversion.Module,
		exchangerate.Module,
		schedule.Module,
		rateapply.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
