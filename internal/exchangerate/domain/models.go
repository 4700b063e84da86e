package domain

import (
	"time"

	"github.com/arusdata/pricebook/internal/effective"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// RateVersion is one effective-dated exchange rate. The subject key is the
// ordered currency pair (FromCurrency, ToCurrency).
type RateVersion struct {
	ID            snowflake.ID                 `json:"id" gorm:"primaryKey"`
	FromCurrency  referencedomain.CurrencyCode `json:"from_currency" gorm:"type:char(3);not null;index:idx_rate_pair"`
	ToCurrency    referencedomain.CurrencyCode `json:"to_currency" gorm:"type:char(3);not null;index:idx_rate_pair"`
	Rate          decimal.Decimal              `json:"rate" gorm:"type:numeric;not null"`
	EffectiveFrom time.Time                    `json:"effective_from" gorm:"not null;index"`
	EffectiveTo   *time.Time                   `json:"effective_to,omitempty"`
	Source        referencedomain.Source       `json:"source" gorm:"type:text;not null"`
	Cancelled     bool                         `json:"cancelled" gorm:"not null;default:false"`
	CancelledAt   *time.Time                   `json:"cancelled_at,omitempty"`
	CancelledBy   *string                      `json:"cancelled_by,omitempty" gorm:"type:text"`
	ChangeReason  *string                      `json:"change_reason,omitempty" gorm:"type:text"`
	CreatedBy     string                       `json:"created_by" gorm:"type:text;not null"`
	CreatedAt     time.Time                    `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (RateVersion) TableName() string { return "exchange_rate_versions" }

func (v *RateVersion) Range() effective.Range {
	return effective.Range{From: v.EffectiveFrom, To: v.EffectiveTo}
}

func (v *RateVersion) StatusAt(now time.Time) effective.Status {
	return v.Range().StatusAt(now)
}
