package migration

import (
	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/internal/config"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/arusdata/pricebook/internal/seed"
	pkgdb "github.com/arusdata/pricebook/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return RunMigrations(sqlDB)
		}

		// Non-postgres deployments (local sqlite, mysql) fall back to the
		// model definitions; the seed keeps the currency table populated.
		err := conn.AutoMigrate(
			&referencedomain.Currency{},
			&pricedomain.PriceVersion{},
			&ratedomain.RateVersion{},
			&changelogdomain.ChangeLog{},
			&pkgdb.SubjectLock{},
		)
		if err != nil {
			return err
		}

		return seed.EnsureCurrencies(conn)
	}),
)
