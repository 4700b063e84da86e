package reference

import (
	"context"

	"github.com/arusdata/pricebook/internal/reference/domain"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func Provide(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) ListCurrencies(ctx context.Context) ([]domain.Currency, error) {
	var items []domain.Currency
	err := r.db.WithContext(ctx).Raw(
		`SELECT code, name, symbol, minor_unit, is_active, created_at
		 FROM currencies WHERE is_active ORDER BY code ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
