package persistence

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/report"
)

// GormTimeSeriesRepository implements TimeSeriesRepository using GORM.
// ReplacePeriod is delete-and-rebuild: a rebuild of the same facts writes
// identical rows, so the operation is idempotent by construction.
type GormTimeSeriesRepository struct {
	db *gorm.DB
}

// NewGormTimeSeriesRepository creates a new GormTimeSeriesRepository
func NewGormTimeSeriesRepository(db *gorm.DB) *GormTimeSeriesRepository {
	return &GormTimeSeriesRepository{db: db}
}

// FindSeries returns points matching the query ordered by period start
func (r *GormTimeSeriesRepository) FindSeries(ctx context.Context, query report.TimeSeriesQuery) ([]report.TimeSeriesPoint, error) {
	q := r.db.WithContext(ctx).Model(&report.TimeSeriesPoint{})

	if query.Metric != "" {
		q = q.Where("metric = ?", query.Metric)
	}
	if query.Granularity != "" {
		q = q.Where("granularity = ?", query.Granularity)
	}
	if !query.From.IsZero() {
		q = q.Where("period_start >= ?", query.From)
	}
	if !query.To.IsZero() {
		q = q.Where("period_start < ?", query.To)
	}
	if query.AccountID != nil {
		q = q.Where("account_id = ?", *query.AccountID)
	} else {
		q = q.Where("account_id IS NULL")
	}
	if query.ProductID != nil {
		q = q.Where("product_id = ?", *query.ProductID)
	} else {
		q = q.Where("product_id IS NULL")
	}

	var points []report.TimeSeriesPoint
	if err := q.Order("period_start ASC").Find(&points).Error; err != nil {
		return nil, err
	}
	return points, nil
}

// ReplacePeriod atomically deletes all points of the granularity with
// PeriodStart in [start, end) and inserts the given points
func (r *GormTimeSeriesRepository) ReplacePeriod(ctx context.Context, granularity report.Granularity, start, end time.Time, points []report.TimeSeriesPoint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("granularity = ?", granularity).
			Where("period_start >= ? AND period_start < ?", start, end).
			Delete(&report.TimeSeriesPoint{}).Error; err != nil {
			return err
		}
		if len(points) == 0 {
			return nil
		}
		return translateWriteError(tx.CreateInBatches(points, 500).Error)
	})
}

// Ensure GormTimeSeriesRepository implements TimeSeriesRepository
var _ report.TimeSeriesRepository = (*GormTimeSeriesRepository)(nil)
