package repository

import (
	"context"

	"github.com/calvey/hauntex/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecordRepository persists image and text evidence records. Records are
// written by the orchestrator only; API consumers read committed state.
type RecordRepository struct {
	db *gorm.DB
}

// NewRecordRepository creates a RecordRepository bound to db.
func NewRecordRepository(db *gorm.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// UpsertImage creates or replaces an image record keyed by its content ID.
// Reprocessing the in-flight chunk after a crash overwrites in place.
func (r *RecordRepository) UpsertImage(ctx context.Context, rec *domain.ImageRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// UpsertText creates or replaces a text record keyed by its content ID.
func (r *RecordRepository) UpsertText(ctx context.Context, rec *domain.TextRecord) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(rec).Error
}

// GetImage retrieves an image record by ID.
func (r *RecordRepository) GetImage(ctx context.Context, id string) (*domain.ImageRecord, error) {
	var rec domain.ImageRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetText retrieves a text record by ID.
func (r *RecordRepository) GetText(ctx context.Context, id string) (*domain.TextRecord, error) {
	var rec domain.TextRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListProcessedImages returns image records with processed status, ordered
// by ID. Used to rebuild the in-memory similarity index at startup; only
// processed records ever reach the index.
func (r *RecordRepository) ListProcessedImages(ctx context.Context) ([]domain.ImageRecord, error) {
	var recs []domain.ImageRecord
	if err := r.db.WithContext(ctx).
		Where("status = ?", domain.RecordStatusProcessed).
		Order("id").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return recs, nil
}

// CountByStatus counts image records by status.
func (r *RecordRepository) CountByStatus(ctx context.Context, status domain.RecordStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ImageRecord{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
