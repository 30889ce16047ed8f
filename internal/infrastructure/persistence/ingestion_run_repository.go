package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
)

// GormRunRepository implements RunRepository using GORM
type GormRunRepository struct {
	db *gorm.DB
}

// NewGormRunRepository creates a new GormRunRepository
func NewGormRunRepository(db *gorm.DB) *GormRunRepository {
	return &GormRunRepository{db: db}
}

// FindByID finds a run by its ID
func (r *GormRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*ingestion.IngestionRun, error) {
	var run ingestion.IngestionRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// FindByQuery finds runs matching the query, newest first
func (r *GormRunRepository) FindByQuery(ctx context.Context, query ingestion.RunQuery, filter shared.Filter) ([]ingestion.IngestionRun, error) {
	var runs []ingestion.IngestionRun
	q := r.applyQuery(r.db.WithContext(ctx).Model(&ingestion.IngestionRun{}), query)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		q = q.Offset(offset).Limit(filter.PageSize)
	}

	orderBy := ValidateSortField(filter.OrderBy, RunSortFields, "created_at")
	orderDir := ValidateSortOrder(filter.OrderDir)
	q = q.Order(orderBy + " " + orderDir)

	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// FindLatestBySource finds the most recent run for a source, nil when the
// source has never run
func (r *GormRunRepository) FindLatestBySource(ctx context.Context, sourceCode ingestion.SourceCode) (*ingestion.IngestionRun, error) {
	var run ingestion.IngestionRun
	if err := r.db.WithContext(ctx).
		Where("source_code = ?", sourceCode).
		Order("created_at DESC").
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// FindActiveBySource finds a pending or running run for a source, nil when
// the source is idle
func (r *GormRunRepository) FindActiveBySource(ctx context.Context, sourceCode ingestion.SourceCode) (*ingestion.IngestionRun, error) {
	var run ingestion.IngestionRun
	if err := r.db.WithContext(ctx).
		Where("source_code = ?", sourceCode).
		Where("status IN ?", []ingestion.RunStatus{ingestion.RunStatusPending, ingestion.RunStatusRunning}).
		Order("created_at DESC").
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// Save creates or updates a run
func (r *GormRunRepository) Save(ctx context.Context, run *ingestion.IngestionRun) error {
	return translateWriteError(r.db.WithContext(ctx).Save(run).Error)
}

// Count counts runs matching the query
func (r *GormRunRepository) Count(ctx context.Context, query ingestion.RunQuery) (int64, error) {
	var count int64
	q := r.applyQuery(r.db.WithContext(ctx).Model(&ingestion.IngestionRun{}), query)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *GormRunRepository) applyQuery(q *gorm.DB, query ingestion.RunQuery) *gorm.DB {
	if query.SourceCode != "" {
		q = q.Where("source_code = ?", query.SourceCode)
	}
	if query.Status != "" {
		q = q.Where("status = ?", query.Status)
	}
	if query.Trigger != "" {
		q = q.Where("trigger = ?", query.Trigger)
	}
	if !query.Since.IsZero() {
		q = q.Where("created_at >= ?", query.Since)
	}
	return q
}

// Ensure GormRunRepository implements RunRepository
var _ ingestion.RunRepository = (*GormRunRepository)(nil)
