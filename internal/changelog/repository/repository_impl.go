package repository

import (
	"context"
	"strings"

	"github.com/arusdata/pricebook/internal/changelog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.ChangeLog) error {
	if entry == nil {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO change_logs (
			id, subject_type, subject_id, change_type, old_value, new_value,
			diff, amount_keys, changed_by, changed_at, reason,
			request_id, ip_address, user_agent
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SubjectType,
		entry.SubjectID,
		entry.ChangeType,
		entry.OldValue,
		entry.NewValue,
		entry.Diff,
		entry.AmountKeys,
		entry.ChangedBy,
		entry.ChangedAt,
		entry.Reason,
		entry.RequestID,
		entry.IPAddress,
		entry.UserAgent,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.ChangeLog, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.ChangeLog{})

	if filter.SubjectType != "" {
		stmt = stmt.Where("subject_type = ?", filter.SubjectType)
	}
	if filter.SubjectID != nil {
		stmt = stmt.Where("subject_id = ?", *filter.SubjectID)
	}
	if filter.ChangeType != "" {
		stmt = stmt.Where("change_type = ?", filter.ChangeType)
	}
	// The `_` separating price type from currency is a LIKE wildcard, so it
	// has to be escaped or "rate" would match a "rateidr" key.
	if priceType := strings.TrimSpace(filter.PriceType); priceType != "" {
		stmt = stmt.Where("amount_keys LIKE ? ESCAPE '!'", "%,"+priceType+"!_%")
	}
	if currency := strings.TrimSpace(filter.Currency); currency != "" {
		stmt = stmt.Where("amount_keys LIKE ? ESCAPE '!'", "%!_"+strings.ToLower(currency)+",%")
	}
	if changedBy := strings.TrimSpace(filter.ChangedBy); changedBy != "" {
		stmt = stmt.Where("changed_by = ?", changedBy)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("changed_at >= ?", filter.StartAt.UTC())
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("changed_at <= ?", filter.EndAt.UTC())
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []domain.ChangeLog
	err := stmt.Order("changed_at desc, id desc").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
