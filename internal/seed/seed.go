package seed

import (
	"context"
	"errors"
	"time"

	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var defaultCurrencies = []referencedomain.Currency{
	{Code: "IDR", Name: "Indonesian Rupiah", Symbol: ptr("Rp"), MinorUnit: 0, IsActive: true},
	{Code: "CNY", Name: "Chinese Yuan", Symbol: ptr("¥"), MinorUnit: 2, IsActive: true},
}

// EnsureCurrencies seeds the supported currency reference rows so the service
// is usable out of the box. Existing rows are left untouched.
func EnsureCurrencies(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for i := range defaultCurrencies {
			currency := defaultCurrencies[i]
			currency.CreatedAt = now
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "code"}},
				DoNothing: true,
			}).Create(&currency).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func ptr(s string) *string { return &s }
