package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type SubjectType string

const (
	SubjectPrice SubjectType = "price"
	SubjectRate  SubjectType = "rate"
)

type ChangeType string

const (
	ChangeCreate     ChangeType = "create"
	ChangeUpdate     ChangeType = "update"
	ChangeDelete     ChangeType = "delete"
	ChangeActivate   ChangeType = "activate"
	ChangeDeactivate ChangeType = "deactivate"
)

// ChangeLog is one append-only audit entry. Rows are never updated or
// deleted once written.
type ChangeLog struct {
	ID          snowflake.ID      `json:"id" gorm:"primaryKey"`
	SubjectType SubjectType       `json:"subject_type" gorm:"type:text;not null;index"`
	SubjectID   snowflake.ID      `json:"subject_id" gorm:"not null;index"`
	ChangeType  ChangeType        `json:"change_type" gorm:"type:text;not null;index"`
	OldValue    datatypes.JSONMap `json:"old_value,omitempty" gorm:"type:jsonb"`
	NewValue    datatypes.JSONMap `json:"new_value" gorm:"type:jsonb"`
	Diff        datatypes.JSON    `json:"diff,omitempty" gorm:"type:jsonb"`
	// AmountKeys holds the touched amount keys wrapped in commas
	// (",direct_idr,list_cny,") so listings can filter by price type or
	// currency without unpacking the diff JSON.
	AmountKeys  *string   `json:"-" gorm:"type:text"`
	ChangedBy   string    `json:"changed_by" gorm:"type:text;not null"`
	ChangedAt   time.Time `json:"changed_at" gorm:"not null;index"`
	Reason      *string   `json:"reason,omitempty" gorm:"type:text"`
	RequestID   *string   `json:"request_id,omitempty" gorm:"type:text"`
	IPAddress   *string   `json:"ip_address,omitempty" gorm:"type:text"`
	UserAgent   *string   `json:"user_agent,omitempty" gorm:"type:text"`
}

func (ChangeLog) TableName() string { return "change_logs" }
