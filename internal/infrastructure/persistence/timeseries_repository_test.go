package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezze/backend/internal/domain/report"
)

func weeklyPoint(t *testing.T, periodStart time.Time, value int64) report.TimeSeriesPoint {
	t.Helper()

	point, err := report.NewTimeSeriesPoint(report.MetricOrderedAmount, report.GranularityWeekly, periodStart, decimal.NewFromInt(value))
	require.NoError(t, err)
	return *point
}

func TestGormTimeSeriesRepository_ReplacePeriodIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormTimeSeriesRepository(db)
	ctx := context.Background()

	week1 := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC) // a Monday
	week2 := week1.AddDate(0, 0, 7)
	end := week1.AddDate(0, 0, 14)

	first := []report.TimeSeriesPoint{
		weeklyPoint(t, week1, 100),
		weeklyPoint(t, week2, 250),
	}
	require.NoError(t, repo.ReplacePeriod(ctx, report.GranularityWeekly, week1, end, first))

	// Rebuilding the same window from the same facts lands the same rows
	second := []report.TimeSeriesPoint{
		weeklyPoint(t, week1, 100),
		weeklyPoint(t, week2, 250),
	}
	require.NoError(t, repo.ReplacePeriod(ctx, report.GranularityWeekly, week1, end, second))

	series, err := repo.FindSeries(ctx, report.TimeSeriesQuery{
		Metric:      report.MetricOrderedAmount,
		Granularity: report.GranularityWeekly,
		From:        week1,
		To:          end,
	})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.True(t, series[0].PeriodStart.Equal(week1), "ordered by period start")
	assert.True(t, series[0].Value.Equal(decimal.NewFromInt(100)))
	assert.True(t, series[1].Value.Equal(decimal.NewFromInt(250)))
}

func TestGormTimeSeriesRepository_ReplacePeriod_CorrectsBuckets(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormTimeSeriesRepository(db)
	ctx := context.Background()

	week1 := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	end := week1.AddDate(0, 0, 7)

	require.NoError(t, repo.ReplacePeriod(ctx, report.GranularityWeekly, week1, end,
		[]report.TimeSeriesPoint{weeklyPoint(t, week1, 100)}))

	// A late-arriving order changes the bucket total on rebuild
	require.NoError(t, repo.ReplacePeriod(ctx, report.GranularityWeekly, week1, end,
		[]report.TimeSeriesPoint{weeklyPoint(t, week1, 130)}))

	series, err := repo.FindSeries(ctx, report.TimeSeriesQuery{
		Metric:      report.MetricOrderedAmount,
		Granularity: report.GranularityWeekly,
		From:        week1,
		To:          end,
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.True(t, series[0].Value.Equal(decimal.NewFromInt(130)))
}

func TestGormTimeSeriesRepository_FindSeries_DimensionFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewGormTimeSeriesRepository(db)
	ctx := context.Background()

	week1 := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	end := week1.AddDate(0, 0, 7)
	accountID := uuid.New()

	total := weeklyPoint(t, week1, 500)
	perAccount := weeklyPoint(t, week1, 120)
	perAccount.AccountID = &accountID

	require.NoError(t, repo.ReplacePeriod(ctx, report.GranularityWeekly, week1, end,
		[]report.TimeSeriesPoint{total, perAccount}))

	// Nil dimensions select the total series, not all series
	series, err := repo.FindSeries(ctx, report.TimeSeriesQuery{
		Metric:      report.MetricOrderedAmount,
		Granularity: report.GranularityWeekly,
		From:        week1,
		To:          end,
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.True(t, series[0].Value.Equal(decimal.NewFromInt(500)))

	series, err = repo.FindSeries(ctx, report.TimeSeriesQuery{
		Metric:      report.MetricOrderedAmount,
		Granularity: report.GranularityWeekly,
		From:        week1,
		To:          end,
		AccountID:   &accountID,
	})
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.True(t, series[0].Value.Equal(decimal.NewFromInt(120)))
}
