package service

import (
	"context"
	"strings"
	"time"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/internal/clock"
	"github.com/arusdata/pricebook/internal/config"
	"github.com/arusdata/pricebook/internal/effective"
	"github.com/arusdata/pricebook/internal/observability/metrics"
	"github.com/arusdata/pricebook/internal/orgcontext"
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/arusdata/pricebook/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	Clock        clock.Clock
	GenID        *snowflake.Node
	Repo         pricedomain.Repository
	ChangelogSvc changelogdomain.Service
	Rates        pricedomain.RateSource `optional:"true"`
	Metrics      *metrics.Metrics       `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          config.Config
	clock        clock.Clock
	genID        *snowflake.Node
	repo         pricedomain.Repository
	changelogSvc changelogdomain.Service
	rates        pricedomain.RateSource
	metrics      *metrics.Metrics
}

func New(p Params) pricedomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("priceversion.service"),
		cfg:          p.Cfg,
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		changelogSvc: p.ChangelogSvc,
		rates:        p.Rates,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req pricedomain.CreateRequest) (*pricedomain.Response, error) {
	productID, err := parseID(req.ProductID, pricedomain.ErrInvalidProduct)
	if err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		return nil, pricedomain.ErrInvalidActor
	}
	amounts, err := validateAmounts(req.Amounts)
	if err != nil {
		return nil, err
	}
	source, err := referencedomain.ParseSource(req.Source)
	if err != nil {
		return nil, err
	}
	if req.RateSnapshot != nil && !req.RateSnapshot.IsPositive() {
		return nil, pricedomain.ErrInvalidRateSnapshot
	}

	from := req.EffectiveFrom.UTC()
	var to *time.Time
	if req.EffectiveTo != nil {
		utc := req.EffectiveTo.UTC()
		to = &utc
	}
	candidate := effective.Range{From: from, To: to}
	if !candidate.Valid() {
		return nil, pricedomain.ErrInvalidEffectiveRange
	}

	orgID := orgScope(ctx)
	now := s.clock.Now()

	snapshot := req.RateSnapshot
	if snapshot == nil && s.rates != nil && spansCurrencies(amounts) {
		rate, err := s.rates.CurrentRate(ctx, referencedomain.IDR, referencedomain.CNY, now)
		if err != nil {
			return nil, err
		}
		snapshot = rate
	}

	entity := &pricedomain.PriceVersion{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		ProductID:     productID,
		Amounts:       amounts,
		RateSnapshot:  snapshot,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Source:        source,
		ChangeReason:  normalizeReason(req.ChangeReason),
		CreatedBy:     actor,
		CreatedAt:     now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Serialize writers of this subject key before reading: row locks
		// alone cannot fence a first create, where there is nothing to lock.
		if err := s.repo.LockSubject(ctx, tx, productID, orgID); err != nil {
			return err
		}
		live, err := s.repo.FindLive(ctx, tx, productID, orgID, true)
		if err != nil {
			return err
		}
		for i := range live {
			if effective.Overlaps(live[i].Range(), candidate) {
				return pricedomain.ErrRangeConflict
			}
		}

		if err := s.repo.Insert(ctx, tx, entity); err != nil {
			return err
		}

		record := changelogdomain.RecordInput{
			SubjectType: changelogdomain.SubjectPrice,
			SubjectID:   entity.ID,
			ChangeType:  changelogdomain.ChangeCreate,
			NewValues:   versionValues(entity),
			NewAmounts:  map[string]decimal.Decimal(entity.Amounts),
			Actor:       actor,
			Reason:      entity.ChangeReason,
		}
		if previous, ok := effective.Current(live, rangeOf, now); ok {
			record.ChangeType = changelogdomain.ChangeUpdate
			record.OldValues = versionValues(&previous)
			record.OldAmounts = map[string]decimal.Decimal(previous.Amounts)
		}
		return s.changelogSvc.Record(ctx, tx, record)
	})
	if err != nil {
		if err == pricedomain.ErrRangeConflict {
			s.metrics.RecordRangeConflict(ctx, string(changelogdomain.SubjectPrice))
		}
		return nil, err
	}

	s.metrics.RecordVersionCreated(ctx, string(changelogdomain.SubjectPrice), string(source))
	s.log.Info("price version created",
		zap.String("price_version_id", entity.ID.String()),
		zap.String("product_id", productID.String()),
		zap.Time("effective_from", from),
	)
	return s.toResponse(entity, now), nil
}

func (s *Service) Get(ctx context.Context, id string) (*pricedomain.Response, error) {
	versionID, err := parseID(id, pricedomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}

	entity, err := s.repo.FindByID(ctx, s.db, versionID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, pricedomain.ErrNotFound
	}
	return s.toResponse(entity, s.clock.Now()), nil
}

func (s *Service) Current(ctx context.Context, q pricedomain.CurrentQuery) (*pricedomain.Response, error) {
	productID, err := parseID(q.ProductID, pricedomain.ErrInvalidProduct)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	asOf := now
	if q.AsOf != nil {
		asOf = q.AsOf.UTC()
	}

	entity, err := s.repo.FindCurrent(ctx, s.db, productID, orgScope(ctx), asOf)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, pricedomain.ErrNotFound
	}
	return s.toResponse(entity, asOf), nil
}

func (s *Service) Upcoming(ctx context.Context, q pricedomain.UpcomingQuery) ([]pricedomain.Response, error) {
	horizon := q.Horizon
	if horizon == 0 {
		horizon = s.cfg.UpcomingHorizon
	}
	if horizon < 0 {
		return nil, pricedomain.ErrInvalidHorizon
	}

	var productID *snowflake.ID
	if strings.TrimSpace(q.ProductID) != "" {
		id, err := parseID(q.ProductID, pricedomain.ErrInvalidProduct)
		if err != nil {
			return nil, err
		}
		productID = &id
	}

	now := s.clock.Now()
	items, err := s.repo.FindUpcoming(ctx, s.db, productID, orgScope(ctx), now, now.Add(horizon))
	if err != nil {
		return nil, err
	}

	resp := make([]pricedomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i], now))
	}
	return resp, nil
}

func (s *Service) History(ctx context.Context, req pricedomain.HistoryRequest) (pricedomain.HistoryResponse, error) {
	productID, err := parseID(req.ProductID, pricedomain.ErrInvalidProduct)
	if err != nil {
		return pricedomain.HistoryResponse{}, err
	}

	items, total, err := s.repo.History(ctx, s.db, productID, orgScope(ctx), req.Page.Offset(), req.Page.Limit())
	if err != nil {
		return pricedomain.HistoryResponse{}, err
	}

	now := s.clock.Now()
	versions := make([]pricedomain.Response, 0, len(items))
	for i := range items {
		versions = append(versions, *s.toResponse(&items[i], now))
	}

	return pricedomain.HistoryResponse{
		PageInfo: pagination.BuildPageInfo(total, req.Page),
		Versions: versions,
	}, nil
}

func (s *Service) Cancel(ctx context.Context, req pricedomain.CancelRequest) (*pricedomain.Response, error) {
	versionID, err := parseID(req.ID, pricedomain.ErrInvalidID)
	if err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		return nil, pricedomain.ErrInvalidActor
	}

	now := s.clock.Now()
	var entity *pricedomain.PriceVersion

	err = s.db.Transaction(func(tx *gorm.DB) error {
		entity, err = s.repo.FindByID(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if entity == nil {
			return pricedomain.ErrNotFound
		}
		if entity.Cancelled || entity.StatusAt(now) != effective.StatusUpcoming {
			return pricedomain.ErrInvalidState
		}

		affected, err := s.repo.MarkCancelled(ctx, tx, versionID, now, actor)
		if err != nil {
			return err
		}
		if affected == 0 {
			// A concurrent cancel won; the version is already cancelled and
			// its changelog entry already written.
			return pricedomain.ErrInvalidState
		}

		oldValues := versionValues(entity)
		entity.Cancelled = true
		entity.CancelledAt = &now
		entity.CancelledBy = &actor

		return s.changelogSvc.Record(ctx, tx, changelogdomain.RecordInput{
			SubjectType: changelogdomain.SubjectPrice,
			SubjectID:   entity.ID,
			ChangeType:  changelogdomain.ChangeDelete,
			OldValues:   oldValues,
			NewValues:   versionValues(entity),
			Actor:       actor,
			Reason:      normalizeReason(req.Reason),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordVersionCancelled(ctx, string(changelogdomain.SubjectPrice))
	s.log.Info("price version cancelled",
		zap.String("price_version_id", versionID.String()),
		zap.String("cancelled_by", actor),
	)
	return s.toResponse(entity, now), nil
}

func (s *Service) toResponse(v *pricedomain.PriceVersion, now time.Time) *pricedomain.Response {
	resp := &pricedomain.Response{
		ID:            v.ID,
		OrgID:         v.OrgID,
		ProductID:     v.ProductID,
		Amounts:       v.Amounts,
		RateSnapshot:  v.RateSnapshot,
		EffectiveFrom: v.EffectiveFrom,
		EffectiveTo:   v.EffectiveTo,
		Status:        v.StatusAt(now),
		Source:        v.Source,
		Cancelled:     v.Cancelled,
		CancelledAt:   v.CancelledAt,
		CancelledBy:   v.CancelledBy,
		ChangeReason:  v.ChangeReason,
		CreatedBy:     v.CreatedBy,
		CreatedAt:     v.CreatedAt,
	}
	return resp
}

func rangeOf(v pricedomain.PriceVersion) effective.Range {
	return effective.Range{From: v.EffectiveFrom, To: v.EffectiveTo}
}

func versionValues(v *pricedomain.PriceVersion) map[string]any {
	values := map[string]any{
		"product_id":     v.ProductID.String(),
		"effective_from": v.EffectiveFrom,
		"source":         string(v.Source),
		"cancelled":      v.Cancelled,
	}
	for key, amount := range v.Amounts {
		values[key] = amount.String()
	}
	if v.OrgID != nil {
		values["organization_id"] = v.OrgID.String()
	}
	if v.EffectiveTo != nil {
		values["effective_to"] = *v.EffectiveTo
	}
	if v.RateSnapshot != nil {
		values["rate_snapshot"] = v.RateSnapshot.String()
	}
	return values
}

func validateAmounts(amounts map[string]decimal.Decimal) (pricedomain.AmountMap, error) {
	if len(amounts) == 0 {
		return nil, pricedomain.ErrInvalidAmounts
	}
	out := make(pricedomain.AmountMap, len(amounts))
	for key, amount := range amounts {
		priceType, currency, err := referencedomain.ParseAmountKey(key)
		if err != nil {
			return nil, err
		}
		if amount.IsNegative() {
			return nil, pricedomain.ErrInvalidAmounts
		}
		out[referencedomain.AmountKey(priceType, currency)] = amount
	}
	return out, nil
}

// spansCurrencies reports whether the amounts cover more than one currency,
// in which case the version should carry an exchange-rate snapshot.
func spansCurrencies(amounts pricedomain.AmountMap) bool {
	seen := ""
	for key := range amounts {
		_, currency, err := referencedomain.ParseAmountKey(key)
		if err != nil {
			continue
		}
		if seen == "" {
			seen = string(currency)
			continue
		}
		if seen != string(currency) {
			return true
		}
	}
	return false
}

func orgScope(ctx context.Context) *snowflake.ID {
	if orgID, ok := orgcontext.OrgIDFromContext(ctx); ok && orgID != 0 {
		return &orgID
	}
	return nil
}

func normalizeReason(reason *string) *string {
	if reason == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*reason)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
