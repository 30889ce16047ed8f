package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mezze/backend/internal/domain/ingestion"
	"github.com/mezze/backend/internal/domain/shared"
)

// reviewStates are the parking states an operator works through
var reviewStates = []ingestion.RecordState{
	ingestion.RecordStateNeedsReview,
	ingestion.RecordStateConflict,
}

// GormRecordRepository implements RecordRepository using GORM.
// FindBySourceRef answers (nil, nil) for a never-seen observation; the
// unique index on (source_code, source_ref) keeps one durable record per
// observation across runs.
type GormRecordRepository struct {
	db *gorm.DB
}

// NewGormRecordRepository creates a new GormRecordRepository
func NewGormRecordRepository(db *gorm.DB) *GormRecordRepository {
	return &GormRecordRepository{db: db}
}

// FindByID finds a record by its ID
func (r *GormRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*ingestion.Record, error) {
	var record ingestion.Record
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindBySourceRef finds the durable record for a dedup key
func (r *GormRecordRepository) FindBySourceRef(ctx context.Context, sourceCode ingestion.SourceCode, sourceRef string) (*ingestion.Record, error) {
	var record ingestion.Record
	if err := r.db.WithContext(ctx).
		Where("source_code = ? AND source_ref = ?", sourceCode, sourceRef).
		First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// FindByRun finds the records touched by a run
func (r *GormRecordRepository) FindByRun(ctx context.Context, runID uuid.UUID, filter shared.Filter) ([]ingestion.Record, error) {
	var records []ingestion.Record
	q := r.db.WithContext(ctx).
		Model(&ingestion.Record{}).
		Where("run_id = ?", runID)

	if state, ok := filter.Filters["state"]; ok {
		q = q.Where("state = ?", state)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		q = q.Offset(offset).Limit(filter.PageSize)
	}
	q = q.Order("source_ref ASC")

	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindInReview finds records waiting on an operator, oldest first
func (r *GormRecordRepository) FindInReview(ctx context.Context, query ingestion.ReviewQuery, filter shared.Filter) ([]ingestion.Record, error) {
	var records []ingestion.Record
	q := r.applyReviewQuery(r.db.WithContext(ctx).Model(&ingestion.Record{}), query, true)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		q = q.Offset(offset).Limit(filter.PageSize)
	}
	q = q.Order("updated_at ASC")

	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// CountInReview counts records waiting on an operator
func (r *GormRecordRepository) CountInReview(ctx context.Context, query ingestion.ReviewQuery) (int64, error) {
	var count int64
	q := r.applyReviewQuery(r.db.WithContext(ctx).Model(&ingestion.Record{}), query, true)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a record
func (r *GormRecordRepository) Save(ctx context.Context, record *ingestion.Record) error {
	return translateWriteError(r.db.WithContext(ctx).Save(record).Error)
}

// Count counts records matching the query
func (r *GormRecordRepository) Count(ctx context.Context, query ingestion.ReviewQuery) (int64, error) {
	var count int64
	q := r.applyReviewQuery(r.db.WithContext(ctx).Model(&ingestion.Record{}), query, false)
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// applyReviewQuery narrows by the query's set fields. When reviewOnly is
// set and the query names no state, the result is restricted to the
// parking states.
func (r *GormRecordRepository) applyReviewQuery(q *gorm.DB, query ingestion.ReviewQuery, reviewOnly bool) *gorm.DB {
	if query.SourceCode != "" {
		q = q.Where("source_code = ?", query.SourceCode)
	}
	if query.State != "" {
		q = q.Where("state = ?", query.State)
	} else if reviewOnly {
		q = q.Where("state IN ?", reviewStates)
	}
	if query.RunID != uuid.Nil {
		q = q.Where("run_id = ?", query.RunID)
	}
	return q
}

// Ensure GormRecordRepository implements RecordRepository
var _ ingestion.RecordRepository = (*GormRecordRepository)(nil)
