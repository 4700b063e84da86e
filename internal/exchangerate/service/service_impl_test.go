package service_test

import (
	"context"
	"testing"
	"time"

	changelogdomain "github.com/arusdata/pricebook/internal/changelog/domain"
	changelogrepo "github.com/arusdata/pricebook/internal/changelog/repository"
	changelogservice "github.com/arusdata/pricebook/internal/changelog/service"
	"github.com/arusdata/pricebook/internal/clock"
	"github.com/arusdata/pricebook/internal/config"
	"github.com/arusdata/pricebook/internal/effective"
	ratedomain "github.com/arusdata/pricebook/internal/exchangerate/domain"
	raterepo "github.com/arusdata/pricebook/internal/exchangerate/repository"
	rateservice "github.com/arusdata/pricebook/internal/exchangerate/service"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE exchange_rate_versions (
			id BIGINT PRIMARY KEY,
			from_currency CHAR(3) NOT NULL,
			to_currency CHAR(3) NOT NULL,
			rate NUMERIC NOT NULL,
			effective_from TIMESTAMP NOT NULL,
			effective_to TIMESTAMP,
			source TEXT NOT NULL,
			cancelled BOOLEAN NOT NULL DEFAULT FALSE,
			cancelled_at TIMESTAMP,
			cancelled_by TEXT,
			change_reason TEXT,
			created_by TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE change_logs (
			id BIGINT PRIMARY KEY,
			subject_type TEXT NOT NULL,
			subject_id BIGINT NOT NULL,
			change_type TEXT NOT NULL,
			old_value TEXT,
			new_value TEXT,
			diff TEXT,
			amount_keys TEXT,
			changed_by TEXT NOT NULL,
			changed_at TIMESTAMP NOT NULL,
			reason TEXT,
			request_id TEXT,
			ip_address TEXT,
			user_agent TEXT
		)`,
	}
	for _, ddl := range schema {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) ratedomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(22)
	require.NoError(t, err)

	changelogSvc := changelogservice.New(changelogservice.Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		Clock: clk,
		GenID: node,
		Repo:  changelogrepo.Provide(),
	})

	return rateservice.New(rateservice.Params{
		DB:           db,
		Log:          zaptest.NewLogger(t),
		Cfg:          config.Config{UpcomingHorizon: 168 * time.Hour},
		Clock:        clk,
		GenID:        node,
		Repo:         raterepo.Provide(),
		ChangelogSvc: changelogSvc,
	})
}

func TestCreateAndResolveCurrentRate(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	created, err := svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00044"),
		EffectiveFrom: clk.Now().Add(-time.Hour),
		Actor:         "fx-desk",
	})
	require.NoError(t, err)
	assert.Equal(t, effective.StatusActive, created.Status)
	assert.Equal(t, referencedomain.IDR, created.FromCurrency)

	current, err := svc.Current(context.Background(), ratedomain.CurrentQuery{
		FromCurrency: "idr",
		ToCurrency:   "cny",
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, current.ID)
	assert.True(t, decimal.RequireFromString("0.00044").Equal(current.Rate))

	// The inverse pair is an independent subject key.
	_, err = svc.Current(context.Background(), ratedomain.CurrentQuery{
		FromCurrency: "CNY",
		ToCurrency:   "IDR",
	})
	assert.ErrorIs(t, err, ratedomain.ErrNotFound)
}

func TestCreateValidatesPairAndRate(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	_, err := svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "IDR",
		Rate:          decimal.NewFromInt(1),
		EffectiveFrom: clk.Now(),
		Actor:         "fx-desk",
	})
	assert.ErrorIs(t, err, ratedomain.ErrInvalidCurrencyPair)

	_, err = svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "USD",
		Rate:          decimal.NewFromInt(1),
		EffectiveFrom: clk.Now(),
		Actor:         "fx-desk",
	})
	assert.ErrorIs(t, err, ratedomain.ErrInvalidCurrencyPair)

	_, err = svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.Zero,
		EffectiveFrom: clk.Now(),
		Actor:         "fx-desk",
	})
	assert.ErrorIs(t, err, ratedomain.ErrInvalidRate)

	_, err = svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.NewFromInt(-1),
		EffectiveFrom: clk.Now(),
		Actor:         "fx-desk",
	})
	assert.ErrorIs(t, err, ratedomain.ErrInvalidRate)
}

func TestCreateRejectsOverlappingRange(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	base := clk.Now()
	end := base.Add(72 * time.Hour)
	_, err := svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00044"),
		EffectiveFrom: base,
		EffectiveTo:   &end,
		Actor:         "fx-desk",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00046"),
		EffectiveFrom: base.Add(24 * time.Hour),
		Actor:         "fx-desk",
	})
	assert.ErrorIs(t, err, ratedomain.ErrRangeConflict)

	// The inverse pair does not collide.
	_, err = svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "CNY",
		ToCurrency:    "IDR",
		Rate:          decimal.NewFromInt(2200),
		EffectiveFrom: base,
		Actor:         "fx-desk",
	})
	assert.NoError(t, err)
}

func TestSupersedingRateRecordsPercentageDiff(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	base := clk.Now()
	end := base.Add(24 * time.Hour)
	_, err := svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00044"),
		EffectiveFrom: base.Add(-time.Hour),
		EffectiveTo:   &end,
		Actor:         "fx-desk",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00046"),
		EffectiveFrom: end,
		Actor:         "fx-desk",
	})
	require.NoError(t, err)

	var entries []changelogdomain.ChangeLog
	require.NoError(t, db.Order("changed_at asc, id asc").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, changelogdomain.ChangeCreate, entries[0].ChangeType)
	assert.Equal(t, changelogdomain.ChangeUpdate, entries[1].ChangeType)
	// (0.00046-0.00044)/0.00044*100 = 4.55 rounded to two places.
	assert.Contains(t, string(entries[1].Diff), "4.55")
}

func TestCancelUpcomingRate(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	upcoming, err := svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00046"),
		EffectiveFrom: clk.Now().Add(48 * time.Hour),
		Actor:         "fx-desk",
	})
	require.NoError(t, err)
	require.Equal(t, effective.StatusUpcoming, upcoming.Status)

	cancelled, err := svc.Cancel(context.Background(), ratedomain.CancelRequest{
		ID:    upcoming.ID.String(),
		Actor: "fx-desk",
	})
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)

	// Once effective, the window for withdrawal is closed.
	active, err := svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00044"),
		EffectiveFrom: clk.Now().Add(time.Hour),
		Actor:         "fx-desk",
	})
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)

	_, err = svc.Cancel(context.Background(), ratedomain.CancelRequest{
		ID:    active.ID.String(),
		Actor: "fx-desk",
	})
	assert.ErrorIs(t, err, ratedomain.ErrInvalidState)
}

func TestCurrentRateSnapshotSource(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	rateSource, ok := svc.(interface {
		CurrentRate(ctx context.Context, from, to referencedomain.CurrencyCode, asOf time.Time) (*decimal.Decimal, error)
	})
	require.True(t, ok)

	rate, err := rateSource.CurrentRate(context.Background(), referencedomain.IDR, referencedomain.CNY, clk.Now())
	require.NoError(t, err)
	assert.Nil(t, rate)

	_, err = svc.Create(context.Background(), ratedomain.CreateRequest{
		FromCurrency:  "IDR",
		ToCurrency:    "CNY",
		Rate:          decimal.RequireFromString("0.00044"),
		EffectiveFrom: clk.Now().Add(-time.Hour),
		Actor:         "fx-desk",
	})
	require.NoError(t, err)

	rate, err = rateSource.CurrentRate(context.Background(), referencedomain.IDR, referencedomain.CNY, clk.Now())
	require.NoError(t, err)
	require.NotNil(t, rate)
	assert.True(t, decimal.RequireFromString("0.00044").Equal(*rate))
}
