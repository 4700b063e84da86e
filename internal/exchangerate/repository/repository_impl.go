package repository

import (
	"context"
	"time"

	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	pkgdb "github.com/arusdata/pricebook/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() ratedomain.Repository {
	return &repo{}
}

func (r *repo) LockSubject(ctx context.Context, tx *gorm.DB, from, to referencedomain.CurrencyCode) error {
	key := "rate:" + string(from) + ":" + string(to)
	return pkgdb.AcquireSubjectLock(ctx, tx, key)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, v *ratedomain.RateVersion) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO exchange_rate_versions (
			id, from_currency, to_currency, rate,
			effective_from, effective_to, source, cancelled,
			cancelled_at, cancelled_by, change_reason, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		v.FromCurrency,
		v.ToCurrency,
		v.Rate,
		v.EffectiveFrom,
		v.EffectiveTo,
		v.Source,
		v.Cancelled,
		v.CancelledAt,
		v.CancelledBy,
		v.ChangeReason,
		v.CreatedBy,
		v.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*ratedomain.RateVersion, error) {
	var v ratedomain.RateVersion
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Take(&v).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *repo) FindLive(ctx context.Context, db *gorm.DB, from, to referencedomain.CurrencyCode, forUpdate bool) ([]ratedomain.RateVersion, error) {
	stmt := db.WithContext(ctx).
		Where("from_currency = ?", from).
		Where("to_currency = ?", to).
		Where("cancelled = ?", false)
	if forUpdate && supportsRowLocks(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var items []ratedomain.RateVersion
	if err := stmt.Order("effective_from ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, from, to referencedomain.CurrencyCode, asOf time.Time) (*ratedomain.RateVersion, error) {
	var v ratedomain.RateVersion
	err := db.WithContext(ctx).
		Where("from_currency = ?", from).
		Where("to_currency = ?", to).
		Where("cancelled = ?", false).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf).
		Order("effective_from DESC").
		Take(&v).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *repo) FindUpcoming(ctx context.Context, db *gorm.DB, after, until time.Time) ([]ratedomain.RateVersion, error) {
	var items []ratedomain.RateVersion
	err := db.WithContext(ctx).
		Where("cancelled = ?", false).
		Where("effective_from > ?", after).
		Where("effective_from <= ?", until).
		Order("effective_from ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) History(ctx context.Context, db *gorm.DB, from, to referencedomain.CurrencyCode, offset, limit int) ([]ratedomain.RateVersion, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&ratedomain.RateVersion{}).
		Where("from_currency = ?", from).
		Where("to_currency = ?", to)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []ratedomain.RateVersion
	err := stmt.Order("effective_from DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repo) MarkCancelled(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, by string) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE exchange_rate_versions
		 SET cancelled = ?, cancelled_at = ?, cancelled_by = ?
		 WHERE id = ? AND cancelled = ?`,
		true, at, by, id, false,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func supportsRowLocks(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}
