package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/arusdata/pricebook/internal/auditcontext"
	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/internal/clock"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/arusdata/pricebook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  changelogdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  changelogdomain.Repository
}

func New(p Params) changelogdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("changelog.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, input changelogdomain.RecordInput) error {
	if err := validateRecordInput(input); err != nil {
		return err
	}
	if tx == nil {
		tx = s.db
	}

	entry := changelogdomain.ChangeLog{
		ID:          s.genID.Generate(),
		SubjectType: input.SubjectType,
		SubjectID:   input.SubjectID,
		ChangeType:  input.ChangeType,
		NewValue:    datatypes.JSONMap(input.NewValues),
		ChangedBy:   strings.TrimSpace(input.Actor),
		ChangedAt:   s.clock.Now(),
		Reason:      normalizePointer(input.Reason),
	}
	if input.OldValues != nil {
		entry.OldValue = datatypes.JSONMap(input.OldValues)
	}

	diffs := changelogdomain.Diff(input.OldAmounts, input.NewAmounts)
	if len(diffs) > 0 {
		raw, err := json.Marshal(diffs)
		if err != nil {
			return err
		}
		entry.Diff = datatypes.JSON(raw)
		entry.AmountKeys = amountKeysIndex(diffs)
	}

	if requestID := auditcontext.RequestIDFromContext(ctx); requestID != "" {
		entry.RequestID = &requestID
	}
	if ip := auditcontext.IPAddressFromContext(ctx); ip != "" {
		entry.IPAddress = &ip
	}
	if ua := auditcontext.UserAgentFromContext(ctx); ua != "" {
		entry.UserAgent = &ua
	}

	if err := s.repo.Insert(ctx, tx, &entry); err != nil {
		s.log.Warn("failed to write change log",
			zap.String("subject_type", string(input.SubjectType)),
			zap.String("change_type", string(input.ChangeType)),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (s *Service) List(ctx context.Context, req changelogdomain.ListRequest) (changelogdomain.ListResponse, error) {
	filter, err := buildListFilter(req)
	if err != nil {
		return changelogdomain.ListResponse{}, err
	}

	entries, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return changelogdomain.ListResponse{}, err
	}

	return changelogdomain.ListResponse{
		PageInfo: pagination.BuildPageInfo(total, req.Page),
		Changes:  entries,
	}, nil
}

func validateRecordInput(input changelogdomain.RecordInput) error {
	switch input.SubjectType {
	case changelogdomain.SubjectPrice, changelogdomain.SubjectRate:
	default:
		return changelogdomain.ErrInvalidSubjectType
	}
	if input.SubjectID == 0 {
		return changelogdomain.ErrInvalidSubjectID
	}
	switch input.ChangeType {
	case changelogdomain.ChangeCreate,
		changelogdomain.ChangeUpdate,
		changelogdomain.ChangeDelete,
		changelogdomain.ChangeActivate,
		changelogdomain.ChangeDeactivate:
	default:
		return changelogdomain.ErrInvalidChangeType
	}
	if strings.TrimSpace(input.Actor) == "" {
		return changelogdomain.ErrInvalidActor
	}
	return nil
}

func buildListFilter(req changelogdomain.ListRequest) (changelogdomain.ListFilter, error) {
	filter := changelogdomain.ListFilter{
		ChangedBy: req.ChangedBy,
		StartAt:   req.StartAt,
		EndAt:     req.EndAt,
		Offset:    req.Page.Offset(),
		Limit:     req.Page.Limit(),
	}

	if value := strings.TrimSpace(req.SubjectType); value != "" {
		switch changelogdomain.SubjectType(value) {
		case changelogdomain.SubjectPrice, changelogdomain.SubjectRate:
			filter.SubjectType = changelogdomain.SubjectType(value)
		default:
			return changelogdomain.ListFilter{}, changelogdomain.ErrInvalidSubjectType
		}
	}
	if value := strings.TrimSpace(req.SubjectID); value != "" {
		id, err := snowflake.ParseString(value)
		if err != nil || id == 0 {
			return changelogdomain.ListFilter{}, changelogdomain.ErrInvalidSubjectID
		}
		filter.SubjectID = &id
	}
	if value := strings.TrimSpace(req.ChangeType); value != "" {
		switch changelogdomain.ChangeType(value) {
		case changelogdomain.ChangeCreate,
			changelogdomain.ChangeUpdate,
			changelogdomain.ChangeDelete,
			changelogdomain.ChangeActivate,
			changelogdomain.ChangeDeactivate:
			filter.ChangeType = changelogdomain.ChangeType(value)
		default:
			return changelogdomain.ListFilter{}, changelogdomain.ErrInvalidChangeType
		}
	}
	if value := strings.TrimSpace(req.PriceType); value != "" {
		priceType, err := referencedomain.ParsePriceType(value)
		if err != nil {
			return changelogdomain.ListFilter{}, err
		}
		filter.PriceType = string(priceType)
	}
	if value := strings.TrimSpace(req.Currency); value != "" {
		currency, err := referencedomain.ParseCurrency(value)
		if err != nil {
			return changelogdomain.ListFilter{}, err
		}
		filter.Currency = string(currency)
	}
	if req.StartAt != nil && req.EndAt != nil && req.StartAt.After(*req.EndAt) {
		return changelogdomain.ListFilter{}, changelogdomain.ErrInvalidTimeRange
	}

	return filter, nil
}

func amountKeysIndex(diffs []changelogdomain.FieldDiff) *string {
	var b strings.Builder
	b.WriteString(",")
	for _, diff := range diffs {
		b.WriteString(diff.Field)
		b.WriteString(",")
	}
	index := b.String()
	return &index
}

func normalizePointer(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
