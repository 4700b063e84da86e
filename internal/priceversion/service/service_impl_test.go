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
	pricedomain "github.com/arusdata/pricebook/internal/priceversion/domain"
	pricerepo "github.com/arusdata/pricebook/internal/priceversion/repository"
	priceservice "github.com/arusdata/pricebook/internal/priceversion/service"
	referencedomain "github.com/arusdata/pricebook/internal/reference/domain"
	"github.com/arusdata/pricebook/pkg/db/pagination"
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
		`CREATE TABLE price_versions (
			id BIGINT PRIMARY KEY,
			org_id BIGINT,
			product_id BIGINT NOT NULL,
			amounts TEXT NOT NULL,
			rate_snapshot NUMERIC,
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

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) pricedomain.Service {
	t.Helper()

	node, err := snowflake.NewNode(21)
	require.NoError(t, err)

	changelogSvc := changelogservice.New(changelogservice.Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		Clock: clk,
		GenID: node,
		Repo:  changelogrepo.Provide(),
	})

	return priceservice.New(priceservice.Params{
		DB:           db,
		Log:          zaptest.NewLogger(t),
		Cfg:          config.Config{UpcomingHorizon: 168 * time.Hour},
		Clock:        clk,
		GenID:        node,
		Repo:         pricerepo.Provide(),
		ChangelogSvc: changelogSvc,
	})
}

func TestCreateAndResolveCurrent(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()

	created, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(150000),
		},
		EffectiveFrom: clk.Now().Add(-time.Hour),
		Actor:         "ops@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, effective.StatusActive, created.Status)
	assert.Equal(t, referencedomain.SourceManual, created.Source)

	current, err := svc.Current(context.Background(), pricedomain.CurrentQuery{
		ProductID: productID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, current.ID)
	assert.True(t, decimal.NewFromInt(150000).Equal(current.Amounts["direct_idr"]))

	// No version for an unknown product.
	_, err = svc.Current(context.Background(), pricedomain.CurrentQuery{
		ProductID: node.Generate().String(),
	})
	assert.ErrorIs(t, err, pricedomain.ErrNotFound)
}

func TestCreateRejectsOverlap(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()
	base := clk.Now()

	end := base.Add(48 * time.Hour)
	_, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: base,
		EffectiveTo:   &end,
		Actor:         "ops",
	})
	require.NoError(t, err)

	// Starts inside the existing range.
	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(110),
		},
		EffectiveFrom: base.Add(24 * time.Hour),
		Actor:         "ops",
	})
	assert.ErrorIs(t, err, pricedomain.ErrRangeConflict)

	// Adjacent range is allowed: [from, to) excludes the boundary.
	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(110),
		},
		EffectiveFrom: end,
		Actor:         "ops",
	})
	assert.NoError(t, err)

	// A different product is a different subject key.
	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: node.Generate().String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(90),
		},
		EffectiveFrom: base,
		Actor:         "ops",
	})
	assert.NoError(t, err)
}

func TestCreateValidation(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()

	_, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID:     productID.String(),
		EffectiveFrom: clk.Now(),
		Actor:         "ops",
	})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidAmounts)

	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(-1),
		},
		EffectiveFrom: clk.Now(),
		Actor:         "ops",
	})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidAmounts)

	end := clk.Now().Add(-time.Hour)
	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: clk.Now(),
		EffectiveTo:   &end,
		Actor:         "ops",
	})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidEffectiveRange)

	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: clk.Now(),
	})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidActor)
}

func TestSupersedingVersionRecordsDiff(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()

	end := clk.Now().Add(24 * time.Hour)
	_, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: clk.Now().Add(-time.Hour),
		EffectiveTo:   &end,
		Actor:         "ops",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(110),
		},
		EffectiveFrom: end,
		Actor:         "ops",
	})
	require.NoError(t, err)

	var entries []changelogdomain.ChangeLog
	require.NoError(t, db.Order("changed_at asc, id asc").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, changelogdomain.ChangeCreate, entries[0].ChangeType)
	assert.Equal(t, changelogdomain.ChangeUpdate, entries[1].ChangeType)
	assert.NotNil(t, entries[1].OldValue)
	assert.NotEmpty(t, entries[1].Diff)
}

func TestCancelOnlyWhenUpcoming(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()

	upcoming, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: clk.Now().Add(48 * time.Hour),
		Actor:         "ops",
	})
	require.NoError(t, err)
	require.Equal(t, effective.StatusUpcoming, upcoming.Status)

	cancelled, err := svc.Cancel(context.Background(), pricedomain.CancelRequest{
		ID:    upcoming.ID.String(),
		Actor: "ops",
	})
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)
	require.NotNil(t, cancelled.CancelledBy)
	assert.Equal(t, "ops", *cancelled.CancelledBy)

	// Already cancelled.
	_, err = svc.Cancel(context.Background(), pricedomain.CancelRequest{
		ID:    upcoming.ID.String(),
		Actor: "ops",
	})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidState)

	// Active versions cannot be cancelled.
	activeFrom := clk.Now().Add(time.Hour)
	activeTo := activeFrom.Add(24 * time.Hour)
	active, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: activeFrom,
		EffectiveTo:   &activeTo,
		Actor:         "ops",
	})
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)

	_, err = svc.Cancel(context.Background(), pricedomain.CancelRequest{
		ID:    active.ID.String(),
		Actor: "ops",
	})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidState)

	// A cancelled version no longer blocks its old range.
	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(105),
		},
		EffectiveFrom: clk.Now().Add(72 * time.Hour),
		Actor:         "ops",
	})
	assert.NoError(t, err)
}

func TestCancelRequiresWinningUpdate(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()

	upcoming, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: clk.Now().Add(48 * time.Hour),
		Actor:         "ops",
	})
	require.NoError(t, err)

	// The cancel update is guarded by cancelled = false, so only one of
	// two racing cancels can report an affected row.
	repo := pricerepo.Provide()
	affected, err := repo.MarkCancelled(context.Background(), db, upcoming.ID, clk.Now(), "first")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.MarkCancelled(context.Background(), db, upcoming.ID, clk.Now(), "second")
	require.NoError(t, err)
	assert.Equal(t, int64(0), affected)

	// The losing cancel must not append a second delete entry.
	_, err = svc.Cancel(context.Background(), pricedomain.CancelRequest{
		ID:    upcoming.ID.String(),
		Actor: "second",
	})
	assert.ErrorIs(t, err, pricedomain.ErrInvalidState)

	var deletes int64
	require.NoError(t, db.Model(&changelogdomain.ChangeLog{}).
		Where("change_type = ?", changelogdomain.ChangeDelete).
		Count(&deletes).Error)
	assert.Equal(t, int64(0), deletes)
}

func TestUpcomingHorizonBounds(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()

	inside, err := svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: productID.String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		EffectiveFrom: clk.Now().Add(100 * time.Hour),
		Actor:         "ops",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), pricedomain.CreateRequest{
		ProductID: node.Generate().String(),
		Amounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(200),
		},
		EffectiveFrom: clk.Now().Add(200 * time.Hour),
		Actor:         "ops",
	})
	require.NoError(t, err)

	// Default 168h horizon excludes the version 200h out.
	items, err := svc.Upcoming(context.Background(), pricedomain.UpcomingQuery{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, inside.ID, items[0].ID)

	// A wider horizon picks up both.
	items, err = svc.Upcoming(context.Background(), pricedomain.UpcomingQuery{Horizon: 300 * time.Hour})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestHistoryPagination(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(3)
	productID := node.Generate()

	for i := 0; i < 3; i++ {
		from := clk.Now().Add(time.Duration(i*24) * time.Hour)
		to := from.Add(24 * time.Hour)
		_, err := svc.Create(context.Background(), pricedomain.CreateRequest{
			ProductID: productID.String(),
			Amounts: map[string]decimal.Decimal{
				"direct_idr": decimal.NewFromInt(int64(100 + i)),
			},
			EffectiveFrom: from,
			EffectiveTo:   &to,
			Actor:         "ops",
		})
		require.NoError(t, err)
	}

	resp, err := svc.History(context.Background(), pricedomain.HistoryRequest{
		Page:      pagination.Page{Page: 1, PageSize: 2},
		ProductID: productID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), resp.Total)
	assert.Equal(t, 2, resp.Pages)
	require.Len(t, resp.Versions, 2)
	// Newest effective_from first.
	assert.True(t, resp.Versions[0].EffectiveFrom.After(resp.Versions[1].EffectiveFrom))
}
