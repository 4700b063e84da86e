package domain

import (
	"context"
	"errors"
	"time"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	"github.com/bwmarrin/snowflake"
)

// UpcomingChange annotates one scheduled version with its countdown. The
// countdown is computed at query time and never persisted.
type UpcomingChange struct {
	SubjectType   changelogdomain.SubjectType `json:"subject_type"`
	ID            snowflake.ID                `json:"id"`
	EffectiveFrom time.Time                   `json:"effective_from"`
	EffectiveIn   time.Duration               `json:"-"`
	EffectiveInS  int64                       `json:"effective_in_seconds"`
	Price         *pricedomain.Response       `json:"price,omitempty"`
	Rate          *ratedomain.Response        `json:"rate,omitempty"`
}

type ListRequest struct {
	Horizon time.Duration `form:"-"`
}

type ListResponse struct {
	AsOf    time.Time        `json:"as_of"`
	Horizon time.Duration    `json:"-"`
	Changes []UpcomingChange `json:"changes"`
}

type CancelRequest struct {
	SubjectType string  `json:"-"`
	ID          string  `json:"-"`
	Actor       string  `json:"-"`
	Reason      *string `json:"reason,omitempty"`
}

type Service interface {
	// ListUpcoming merges scheduled price and rate versions inside the
	// horizon, ascending by effective_from.
	ListUpcoming(ctx context.Context, req ListRequest) (ListResponse, error)
	// CancelUpcoming withdraws a scheduled version via its owning store.
	CancelUpcoming(ctx context.Context, req CancelRequest) (*UpcomingChange, error)
}

var (
	ErrInvalidSubjectType = errors.New("invalid_subject_type")
	ErrInvalidHorizon     = errors.New("invalid_horizon")
)
