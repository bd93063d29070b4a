package domain

import "time"

// JobStatus represents the status of a batch job.
// Values include JobStatusPending, JobStatusRunning, JobStatusCompleted,
// JobStatusPartiallyFailed, and JobStatusAborted.
type JobStatus string

const (
	JobStatusPending         JobStatus = "pending"
	JobStatusRunning         JobStatus = "running"
	JobStatusCompleted       JobStatus = "completed"
	JobStatusPartiallyFailed JobStatus = "partially-failed"
	JobStatusAborted         JobStatus = "aborted"
)

// BatchJob represents a chunked processing run over an ordered item list.
// Cursor marks the index of the first item not yet covered by a committed
// chunk; it only advances after every item in a chunk reached a terminal
// status. EmitCursor trails it, marking how far the committed records have
// been handed to the emitter; a gap between the two at load time means a
// crash interrupted emission and those records must be re-delivered.
type BatchJob struct {
	ID             string     `gorm:"type:text;primaryKey" json:"id"`
	Status         JobStatus  `gorm:"type:text;default:pending;index:idx_batch_jobs_status" json:"status"`
	ChunkSize      int        `gorm:"default:200" json:"chunk_size"`
	Cursor         int        `gorm:"default:0" json:"cursor"`
	EmitCursor     int        `gorm:"default:0" json:"emit_cursor"`
	TotalItems     int        `gorm:"default:0" json:"total_items"`
	ProcessedItems int        `gorm:"default:0" json:"processed_items"`
	FailedItems    int        `gorm:"default:0" json:"failed_items"`
	GeoMode        string     `gorm:"type:text" json:"geo_mode"`
	MetadataMode   string     `gorm:"type:text" json:"metadata_mode"`
	EmitMode       string     `gorm:"type:text" json:"emit_mode"`
	Error          string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for BatchJob.
func (BatchJob) TableName() string {
	return "batch_jobs"
}

// ItemOutcome is one entry of a job's append-only outcome log. Outcomes are
// keyed by (job_id, seq) so reprocessing the in-flight chunk after a crash
// overwrites instead of duplicating.
type ItemOutcome struct {
	JobID     string       `gorm:"type:text;primaryKey" json:"job_id"`
	Seq       int          `gorm:"primaryKey;autoIncrement:false" json:"seq"`
	ItemID    string       `gorm:"type:text;not null" json:"item_id"`
	Kind      string       `gorm:"type:text" json:"kind"`
	Status    RecordStatus `gorm:"type:text" json:"status"`
	Reason    string       `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// TableName returns the database table name for ItemOutcome.
func (ItemOutcome) TableName() string {
	return "item_outcomes"
}
