package repository

import (
	"context"
	"time"

	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	pkgdb "github.com/arusdata/pricebook/pkg/db"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() pricedomain.Repository {
	return &repo{}
}

func (r *repo) LockSubject(ctx context.Context, tx *gorm.DB, productID snowflake.ID, orgID *snowflake.ID) error {
	key := "price:" + productID.String() + ":"
	if orgID != nil {
		key += orgID.String()
	} else {
		key += "global"
	}
	return pkgdb.AcquireSubjectLock(ctx, tx, key)
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, v *pricedomain.PriceVersion) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_versions (
			id, org_id, product_id, amounts, rate_snapshot,
			effective_from, effective_to, source, cancelled,
			cancelled_at, cancelled_by, change_reason, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID,
		v.OrgID,
		v.ProductID,
		v.Amounts,
		v.RateSnapshot,
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

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*pricedomain.PriceVersion, error) {
	var v pricedomain.PriceVersion
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

func (r *repo) FindLive(ctx context.Context, db *gorm.DB, productID snowflake.ID, orgID *snowflake.ID, forUpdate bool) ([]pricedomain.PriceVersion, error) {
	stmt := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("cancelled = ?", false)
	stmt = scopeOrg(stmt, orgID)
	if forUpdate && supportsRowLocks(db) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var items []pricedomain.PriceVersion
	if err := stmt.Order("effective_from ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindCurrent(ctx context.Context, db *gorm.DB, productID snowflake.ID, orgID *snowflake.ID, asOf time.Time) (*pricedomain.PriceVersion, error) {
	stmt := db.WithContext(ctx).
		Where("product_id = ?", productID).
		Where("cancelled = ?", false).
		Where("effective_from <= ?", asOf).
		Where("effective_to IS NULL OR effective_to > ?", asOf)
	stmt = scopeOrg(stmt, orgID)

	var v pricedomain.PriceVersion
	err := stmt.Order("effective_from DESC").Take(&v).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *repo) FindUpcoming(ctx context.Context, db *gorm.DB, productID *snowflake.ID, orgID *snowflake.ID, after, until time.Time) ([]pricedomain.PriceVersion, error) {
	stmt := db.WithContext(ctx).
		Where("cancelled = ?", false).
		Where("effective_from > ?", after).
		Where("effective_from <= ?", until)
	if productID != nil {
		stmt = stmt.Where("product_id = ?", *productID)
	}
	stmt = scopeOrg(stmt, orgID)

	var items []pricedomain.PriceVersion
	if err := stmt.Order("effective_from ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) History(ctx context.Context, db *gorm.DB, productID snowflake.ID, orgID *snowflake.ID, offset, limit int) ([]pricedomain.PriceVersion, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&pricedomain.PriceVersion{}).
		Where("product_id = ?", productID)
	stmt = scopeOrg(stmt, orgID)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var items []pricedomain.PriceVersion
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
		`UPDATE price_versions
		 SET cancelled = ?, cancelled_at = ?, cancelled_by = ?
		 WHERE id = ? AND cancelled = ?`,
		true, at, by, id, false,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func scopeOrg(stmt *gorm.DB, orgID *snowflake.ID) *gorm.DB {
	if orgID != nil {
		return stmt.Where("org_id = ?", *orgID)
	}
	return stmt.Where("org_id IS NULL")
}

func supportsRowLocks(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return true
	default:
		return false
	}
}
