package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/arusdata/pricebook/internal/effective"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// AmountMap holds the monetary values of one version keyed by
// "<price_type>_<currency>", e.g. "direct_idr". Stored as JSONB.
type AmountMap map[string]decimal.Decimal

func (m AmountMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (m *AmountMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	switch typed := value.(type) {
	case []byte:
		return json.Unmarshal(typed, m)
	case string:
		return json.Unmarshal([]byte(typed), m)
	default:
		return fmt.Errorf("unsupported amounts column type %T", value)
	}
}

func (AmountMap) GormDataType() string { return "jsonb" }

// PriceVersion is one effective-dated price record. The subject key is
// (ProductID, OrgID); ranges of live versions of one subject never overlap.
type PriceVersion struct {
	ID            snowflake.ID            `json:"id" gorm:"primaryKey"`
	OrgID         *snowflake.ID           `json:"organization_id,omitempty" gorm:"column:org_id;index"`
	ProductID     snowflake.ID            `json:"product_id" gorm:"not null;index"`
	Amounts       AmountMap               `json:"amounts" gorm:"type:jsonb;not null"`
	RateSnapshot  *decimal.Decimal        `json:"rate_snapshot,omitempty" gorm:"type:numeric"`
	EffectiveFrom time.Time               `json:"effective_from" gorm:"not null;index"`
	EffectiveTo   *time.Time              `json:"effective_to,omitempty"`
	Source        referencedomain.Source  `json:"source" gorm:"type:text;not null"`
	Cancelled     bool                    `json:"cancelled" gorm:"not null;default:false"`
	CancelledAt   *time.Time              `json:"cancelled_at,omitempty"`
	CancelledBy   *string                 `json:"cancelled_by,omitempty" gorm:"type:text"`
	ChangeReason  *string                 `json:"change_reason,omitempty" gorm:"type:text"`
	CreatedBy     string                  `json:"created_by" gorm:"type:text;not null"`
	CreatedAt     time.Time               `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceVersion) TableName() string { return "price_versions" }

func (p *PriceVersion) Range() effective.Range {
	return effective.Range{From: p.EffectiveFrom, To: p.EffectiveTo}
}

func (p *PriceVersion) StatusAt(now time.Time) effective.Status {
	return p.Range().StatusAt(now)
}
