package repository

import (
	"context"
	"time"

	"github.com/calvey/hauntex/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// JobRepository is the durable checkpoint store for batch jobs: the job row
// holds the committed cursor, the item_outcomes table is the append-only
// outcome log. Both survive process restarts and drive resume.
type JobRepository struct {
	db *gorm.DB
}

// NewJobRepository creates a JobRepository bound to db.
func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Create inserts a new batch job row.
func (r *JobRepository) Create(ctx context.Context, job *domain.BatchJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// Get retrieves a batch job by ID.
func (r *JobRepository) Get(ctx context.Context, id string) (*domain.BatchJob, error) {
	var job domain.BatchJob
	if err := r.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

// Update saves job fields (status, timestamps, mode tags).
func (r *JobRepository) Update(ctx context.Context, job *domain.BatchJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

// CommitChunk durably commits one finished chunk: the outcomes of every
// item in the chunk plus the advanced cursor, in a single transaction.
// Outcomes are upserted by (job_id, seq) so reprocessing the in-flight
// chunk after a crash is idempotent; item counts are recomputed from the
// outcome log rather than accumulated, for the same reason.
func (r *JobRepository) CommitChunk(ctx context.Context, jobID string, outcomes []domain.ItemOutcome, newCursor int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(outcomes) > 0 {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "job_id"}, {Name: "seq"}},
				UpdateAll: true,
			}).Create(&outcomes).Error; err != nil {
				return err
			}
		}

		var processed, failed int64
		if err := tx.Model(&domain.ItemOutcome{}).
			Where("job_id = ? AND status = ?", jobID, domain.RecordStatusProcessed).
			Count(&processed).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.ItemOutcome{}).
			Where("job_id = ? AND status = ?", jobID, domain.RecordStatusFailed).
			Count(&failed).Error; err != nil {
			return err
		}

		return tx.Model(&domain.BatchJob{}).
			Where("id = ?", jobID).
			Updates(map[string]interface{}{
				"cursor":          newCursor,
				"processed_items": processed,
				"failed_items":    failed,
				"updated_at":      time.Now(),
			}).Error
	})
}

// SetEmitCursor records how far the committed records have been handed to
// the emitter. Written after each chunk's records are delivered; on resume
// the span between emit cursor and cursor is re-delivered.
func (r *JobRepository) SetEmitCursor(ctx context.Context, jobID string, cursor int) error {
	return r.db.WithContext(ctx).Model(&domain.BatchJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"emit_cursor": cursor,
			"updated_at":  time.Now(),
		}).Error
}

// ListOutcomes returns a job's outcome log in item sequence order.
func (r *JobRepository) ListOutcomes(ctx context.Context, jobID string) ([]domain.ItemOutcome, error) {
	var outcomes []domain.ItemOutcome
	if err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("seq").
		Find(&outcomes).Error; err != nil {
		return nil, err
	}
	return outcomes, nil
}

// CountOutcomes counts a job's outcomes by status.
func (r *JobRepository) CountOutcomes(ctx context.Context, jobID string, status domain.RecordStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.ItemOutcome{}).
		Where("job_id = ? AND status = ?", jobID, status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
