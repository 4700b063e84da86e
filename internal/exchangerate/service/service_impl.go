package service

import (
	"context"
	"strings"
	"time"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/internal/clock"
	"github.com/arusdata/pricebook/internal/config"
	"github.com/arusdata/pricebook/internal/effective"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	"github.com/arusdata/pricebook/internal/observability/metrics"
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
	Repo         ratedomain.Repository
	ChangelogSvc changelogdomain.Service
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          config.Config
	clock        clock.Clock
	genID        *snowflake.Node
	repo         ratedomain.Repository
	changelogSvc changelogdomain.Service
	metrics      *metrics.Metrics
}

func New(p Params) ratedomain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("exchangerate.service"),
		cfg:          p.Cfg,
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		changelogSvc: p.ChangelogSvc,
		metrics:      p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req ratedomain.CreateRequest) (*ratedomain.Response, error) {
	fromCurrency, toCurrency, err := parsePair(req.FromCurrency, req.ToCurrency)
	if err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		return nil, ratedomain.ErrInvalidActor
	}
	if !req.Rate.IsPositive() {
		return nil, ratedomain.ErrInvalidRate
	}
	source, err := referencedomain.ParseSource(req.Source)
	if err != nil {
		return nil, err
	}

	from := req.EffectiveFrom.UTC()
	var to *time.Time
	if req.EffectiveTo != nil {
		utc := req.EffectiveTo.UTC()
		to = &utc
	}
	candidate := effective.Range{From: from, To: to}
	if !candidate.Valid() {
		return nil, ratedomain.ErrInvalidEffectiveRange
	}

	now := s.clock.Now()
	entity := &ratedomain.RateVersion{
		ID:            s.genID.Generate(),
		FromCurrency:  fromCurrency,
		ToCurrency:    toCurrency,
		Rate:          req.Rate,
		EffectiveFrom: from,
		EffectiveTo:   to,
		Source:        source,
		ChangeReason:  normalizeReason(req.ChangeReason),
		CreatedBy:     actor,
		CreatedAt:     now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// Serialize writers of this currency pair before reading: row locks
		// alone cannot fence a first create, where there is nothing to lock.
		if err := s.repo.LockSubject(ctx, tx, fromCurrency, toCurrency); err != nil {
			return err
		}

		live, err := s.repo.FindLive(ctx, tx, fromCurrency, toCurrency, true)
		if err != nil {
			return err
		}
		for i := range live {
			if effective.Overlaps(live[i].Range(), candidate) {
				return ratedomain.ErrRangeConflict
			}
		}

		if err := s.repo.Insert(ctx, tx, entity); err != nil {
			return err
		}

		record := changelogdomain.RecordInput{
			SubjectType: changelogdomain.SubjectRate,
			SubjectID:   entity.ID,
			ChangeType:  changelogdomain.ChangeCreate,
			NewValues:   versionValues(entity),
			NewAmounts:  map[string]decimal.Decimal{"rate": entity.Rate},
			Actor:       actor,
			Reason:      entity.ChangeReason,
		}
		if previous, ok := effective.Current(live, rangeOf, now); ok {
			record.ChangeType = changelogdomain.ChangeUpdate
			record.OldValues = versionValues(&previous)
			record.OldAmounts = map[string]decimal.Decimal{"rate": previous.Rate}
		}
		return s.changelogSvc.Record(ctx, tx, record)
	})
	if err != nil {
		if err == ratedomain.ErrRangeConflict {
			s.metrics.RecordRangeConflict(ctx, string(changelogdomain.SubjectRate))
		}
		return nil, err
	}

	s.metrics.RecordVersionCreated(ctx, string(changelogdomain.SubjectRate), string(source))
	s.log.Info("exchange rate version created",
		zap.String("rate_version_id", entity.ID.String()),
		zap.String("from_currency", string(fromCurrency)),
		zap.String("to_currency", string(toCurrency)),
		zap.Time("effective_from", from),
	)
	return s.toResponse(entity, now), nil
}

func (s *Service) Get(ctx context.Context, id string) (*ratedomain.Response, error) {
	versionID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	entity, err := s.repo.FindByID(ctx, s.db, versionID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ratedomain.ErrNotFound
	}
	return s.toResponse(entity, s.clock.Now()), nil
}

func (s *Service) Current(ctx context.Context, q ratedomain.CurrentQuery) (*ratedomain.Response, error) {
	fromCurrency, toCurrency, err := parsePair(q.FromCurrency, q.ToCurrency)
	if err != nil {
		return nil, err
	}

	asOf := s.clock.Now()
	if q.AsOf != nil {
		asOf = q.AsOf.UTC()
	}

	entity, err := s.repo.FindCurrent(ctx, s.db, fromCurrency, toCurrency, asOf)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, ratedomain.ErrNotFound
	}
	return s.toResponse(entity, asOf), nil
}

// CurrentRate satisfies the price store's rate source so new price versions
// can snapshot the rate in force at creation.
func (s *Service) CurrentRate(ctx context.Context, from, to referencedomain.CurrencyCode, asOf time.Time) (*decimal.Decimal, error) {
	entity, err := s.repo.FindCurrent(ctx, s.db, from, to, asOf)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, nil
	}
	rate := entity.Rate
	return &rate, nil
}

func (s *Service) Upcoming(ctx context.Context, q ratedomain.UpcomingQuery) ([]ratedomain.Response, error) {
	horizon := q.Horizon
	if horizon == 0 {
		horizon = s.cfg.UpcomingHorizon
	}
	if horizon < 0 {
		return nil, ratedomain.ErrInvalidHorizon
	}

	now := s.clock.Now()
	items, err := s.repo.FindUpcoming(ctx, s.db, now, now.Add(horizon))
	if err != nil {
		return nil, err
	}

	resp := make([]ratedomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *s.toResponse(&items[i], now))
	}
	return resp, nil
}

func (s *Service) History(ctx context.Context, req ratedomain.HistoryRequest) (ratedomain.HistoryResponse, error) {
	fromCurrency, toCurrency, err := parsePair(req.FromCurrency, req.ToCurrency)
	if err != nil {
		return ratedomain.HistoryResponse{}, err
	}

	items, total, err := s.repo.History(ctx, s.db, fromCurrency, toCurrency, req.Page.Offset(), req.Page.Limit())
	if err != nil {
		return ratedomain.HistoryResponse{}, err
	}

	now := s.clock.Now()
	versions := make([]ratedomain.Response, 0, len(items))
	for i := range items {
		versions = append(versions, *s.toResponse(&items[i], now))
	}

	return ratedomain.HistoryResponse{
		PageInfo: pagination.BuildPageInfo(total, req.Page),
		Versions: versions,
	}, nil
}

func (s *Service) Cancel(ctx context.Context, req ratedomain.CancelRequest) (*ratedomain.Response, error) {
	versionID, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	actor := strings.TrimSpace(req.Actor)
	if actor == "" {
		return nil, ratedomain.ErrInvalidActor
	}

	now := s.clock.Now()
	var entity *ratedomain.RateVersion

	err = s.db.Transaction(func(tx *gorm.DB) error {
		entity, err = s.repo.FindByID(ctx, tx, versionID)
		if err != nil {
			return err
		}
		if entity == nil {
			return ratedomain.ErrNotFound
		}
		if entity.Cancelled || entity.StatusAt(now) != effective.StatusUpcoming {
			return ratedomain.ErrInvalidState
		}

		affected, err := s.repo.MarkCancelled(ctx, tx, versionID, now, actor)
		if err != nil {
			return err
		}
		if affected == 0 {
			// A concurrent cancel won; the version is already cancelled and
			// its changelog entry already written.
			return ratedomain.ErrInvalidState
		}

		oldValues := versionValues(entity)
		entity.Cancelled = true
		entity.CancelledAt = &now
		entity.CancelledBy = &actor

		return s.changelogSvc.Record(ctx, tx, changelogdomain.RecordInput{
			SubjectType: changelogdomain.SubjectRate,
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

	s.metrics.RecordVersionCancelled(ctx, string(changelogdomain.SubjectRate))
	s.log.Info("exchange rate version cancelled",
		zap.String("rate_version_id", versionID.String()),
		zap.String("cancelled_by", actor),
	)
	return s.toResponse(entity, now), nil
}

func (s *Service) toResponse(v *ratedomain.RateVersion, now time.Time) *ratedomain.Response {
	return &ratedomain.Response{
		ID:            v.ID,
		FromCurrency:  v.FromCurrency,
		ToCurrency:    v.ToCurrency,
		Rate:          v.Rate,
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
}

func rangeOf(v ratedomain.RateVersion) effective.Range {
	return effective.Range{From: v.EffectiveFrom, To: v.EffectiveTo}
}

func versionValues(v *ratedomain.RateVersion) map[string]any {
	values := map[string]any{
		"from_currency":  string(v.FromCurrency),
		"to_currency":    string(v.ToCurrency),
		"rate":           v.Rate.String(),
		"effective_from": v.EffectiveFrom,
		"source":         string(v.Source),
		"cancelled":      v.Cancelled,
	}
	if v.EffectiveTo != nil {
		values["effective_to"] = *v.EffectiveTo
	}
	return values
}

func parsePair(from, to string) (referencedomain.CurrencyCode, referencedomain.CurrencyCode, error) {
	fromCurrency, err := referencedomain.ParseCurrency(from)
	if err != nil {
		return "", "", ratedomain.ErrInvalidCurrencyPair
	}
	toCurrency, err := referencedomain.ParseCurrency(to)
	if err != nil {
		return "", "", ratedomain.ErrInvalidCurrencyPair
	}
	if fromCurrency == toCurrency {
		return "", "", ratedomain.ErrInvalidCurrencyPair
	}
	return fromCurrency, toCurrency, nil
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

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, ratedomain.ErrInvalidID
	}
	return id, nil
}
