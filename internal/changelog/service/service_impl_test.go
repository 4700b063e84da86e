package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/arusdata/pricebook/internal/auditcontext"
	"github.com/arusdata/pricebook/internal/changelog/domain"
	"github.com/arusdata/pricebook/internal/changelog/repository"
	"github.com/arusdata/pricebook/internal/changelog/service"
	"github.com/arusdata/pricebook/internal/clock"
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

	require.NoError(t, db.Exec(`CREATE TABLE change_logs (
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
	)`).Error)

	return db
}

func newService(t *testing.T, db *gorm.DB, clk clock.Clock) domain.Service {
	t.Helper()

	node, err := snowflake.NewNode(42)
	require.NoError(t, err)

	return service.New(service.Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		Clock: clk,
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestRecordComputesPercentageDiff(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(7)
	subjectID := node.Generate()

	err := svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   subjectID,
		ChangeType:  domain.ChangeUpdate,
		OldValues:   map[string]any{"direct_idr": "100"},
		NewValues:   map[string]any{"direct_idr": "110"},
		OldAmounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		NewAmounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(110),
		},
		Actor: "ops@example.com",
	})
	require.NoError(t, err)

	var entry domain.ChangeLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, domain.SubjectPrice, entry.SubjectType)
	assert.Equal(t, subjectID, entry.SubjectID)
	assert.Equal(t, "ops@example.com", entry.ChangedBy)
	assert.True(t, clk.Now().Equal(entry.ChangedAt))
	require.NotNil(t, entry.AmountKeys)
	assert.Equal(t, ",direct_idr,", *entry.AmountKeys)

	var diffs []domain.FieldDiff
	require.NoError(t, json.Unmarshal(entry.Diff, &diffs))
	require.Len(t, diffs, 1)
	assert.Equal(t, "direct_idr", diffs[0].Field)
	assert.Equal(t, domain.DiffLabelChanged, diffs[0].Label)
	require.NotNil(t, diffs[0].PctChange)
	assert.Equal(t, "10", diffs[0].PctChange.String())
}

func TestRecordCreationHasNoPercentage(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(7)

	err := svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectRate,
		SubjectID:   node.Generate(),
		ChangeType:  domain.ChangeCreate,
		NewValues:   map[string]any{"rate": "0.00044"},
		NewAmounts: map[string]decimal.Decimal{
			"rate": decimal.RequireFromString("0.00044"),
		},
		Actor: "importer",
	})
	require.NoError(t, err)

	var entry domain.ChangeLog
	require.NoError(t, db.First(&entry).Error)

	var diffs []domain.FieldDiff
	require.NoError(t, json.Unmarshal(entry.Diff, &diffs))
	require.Len(t, diffs, 1)
	assert.Equal(t, domain.DiffLabelNew, diffs[0].Label)
	assert.Nil(t, diffs[0].Old)
	assert.Nil(t, diffs[0].PctChange)
}

func TestRecordCapturesRequestContext(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(7)
	ctx := auditcontext.WithRequestID(context.Background(), "req-123")
	ctx = auditcontext.WithIPAddress(ctx, "10.0.0.5")
	ctx = auditcontext.WithUserAgent(ctx, "pricebook-cli/1.0")

	err := svc.Record(ctx, db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   node.Generate(),
		ChangeType:  domain.ChangeDelete,
		NewValues:   map[string]any{"status": "cancelled"},
		Actor:       "ops@example.com",
	})
	require.NoError(t, err)

	var entry domain.ChangeLog
	require.NoError(t, db.First(&entry).Error)
	require.NotNil(t, entry.RequestID)
	assert.Equal(t, "req-123", *entry.RequestID)
	require.NotNil(t, entry.IPAddress)
	assert.Equal(t, "10.0.0.5", *entry.IPAddress)
	require.NotNil(t, entry.UserAgent)
	assert.Equal(t, "pricebook-cli/1.0", *entry.UserAgent)
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(7)

	err := svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: "invoice",
		SubjectID:   node.Generate(),
		ChangeType:  domain.ChangeCreate,
		Actor:       "ops",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidSubjectType)

	err = svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   node.Generate(),
		ChangeType:  "patch",
		Actor:       "ops",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidChangeType)

	err = svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   node.Generate(),
		ChangeType:  domain.ChangeCreate,
		Actor:       "   ",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidActor)
}

func TestListFiltersByPriceTypeAndCurrency(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(7)
	priceID := node.Generate()

	require.NoError(t, svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   priceID,
		ChangeType:  domain.ChangeCreate,
		NewValues:   map[string]any{"direct_idr": "100"},
		NewAmounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		Actor: "alice",
	}))
	clk.Advance(time.Hour)
	require.NoError(t, svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   priceID,
		ChangeType:  domain.ChangeUpdate,
		OldValues:   map[string]any{"list_cny": "9"},
		NewValues:   map[string]any{"list_cny": "12"},
		OldAmounts: map[string]decimal.Decimal{
			"list_cny": decimal.NewFromInt(9),
		},
		NewAmounts: map[string]decimal.Decimal{
			"list_cny": decimal.NewFromInt(12),
		},
		Actor: "bob",
	}))

	resp, err := svc.List(context.Background(), domain.ListRequest{
		Page:      pagination.Page{Page: 1, PageSize: 20},
		PriceType: "list",
	})
	require.NoError(t, err)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, "bob", resp.Changes[0].ChangedBy)
	assert.Equal(t, int64(1), resp.Total)

	resp, err = svc.List(context.Background(), domain.ListRequest{
		Page:     pagination.Page{Page: 1, PageSize: 20},
		Currency: "IDR",
	})
	require.NoError(t, err)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, "alice", resp.Changes[0].ChangedBy)

	// Newest first when unfiltered.
	resp, err = svc.List(context.Background(), domain.ListRequest{
		Page: pagination.Page{Page: 1, PageSize: 20},
	})
	require.NoError(t, err)
	require.Len(t, resp.Changes, 2)
	assert.Equal(t, "bob", resp.Changes[0].ChangedBy)
	assert.Equal(t, int64(2), resp.Total)
	assert.Equal(t, 1, resp.Pages)
}

func TestListFilterTreatsUnderscoreLiterally(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	node, _ := snowflake.NewNode(7)

	require.NoError(t, svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   node.Generate(),
		ChangeType:  domain.ChangeCreate,
		NewValues:   map[string]any{"direct_idr": "100"},
		NewAmounts: map[string]decimal.Decimal{
			"direct_idr": decimal.NewFromInt(100),
		},
		Actor: "alice",
	}))
	clk.Advance(time.Hour)
	// Keys without an underscore, such as "rateidr", must not match a
	// currency filter for IDR.
	require.NoError(t, svc.Record(context.Background(), db, domain.RecordInput{
		SubjectType: domain.SubjectPrice,
		SubjectID:   node.Generate(),
		ChangeType:  domain.ChangeCreate,
		NewValues:   map[string]any{"rateidr": "5"},
		NewAmounts: map[string]decimal.Decimal{
			"rateidr": decimal.NewFromInt(5),
		},
		Actor: "mallory",
	}))

	resp, err := svc.List(context.Background(), domain.ListRequest{
		Page:     pagination.Page{Page: 1, PageSize: 20},
		Currency: "IDR",
	})
	require.NoError(t, err)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, "alice", resp.Changes[0].ChangedBy)

	resp, err = svc.List(context.Background(), domain.ListRequest{
		Page:      pagination.Page{Page: 1, PageSize: 20},
		PriceType: "rate",
	})
	require.NoError(t, err)
	assert.Empty(t, resp.Changes)
}

func TestListRejectsInvalidTimeRange(t *testing.T) {
	db := setupTestDB(t)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	svc := newService(t, db, clk)

	start := clk.Now()
	end := start.Add(-time.Hour)
	_, err := svc.List(context.Background(), domain.ListRequest{
		Page:    pagination.Page{Page: 1, PageSize: 20},
		StartAt: &start,
		EndAt:   &end,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTimeRange)
}
