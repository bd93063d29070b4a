package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/calvey/hauntex/internal/domain"
	"github.com/calvey/hauntex/internal/emitter"
	"github.com/calvey/hauntex/internal/feature"
	"github.com/calvey/hauntex/internal/geo"
	"github.com/calvey/hauntex/internal/index"
	"github.com/calvey/hauntex/internal/logger"
	"github.com/calvey/hauntex/internal/metadata"
	"github.com/calvey/hauntex/internal/repository"
	"github.com/google/uuid"
)

const (
	defaultChunkSize   = 200
	defaultItemTimeout = 5 * time.Second
)

// Options tunes the orchestrator. Zero values fall back to defaults.
type Options struct {
	ChunkSize   int
	ItemTimeout time.Duration
}

// Orchestrator runs batch jobs over ordered item lists: items are processed
// sequentially in chunks, each finished chunk is committed in one
// transaction (outcomes plus advanced cursor), and committed records are
// handed to the emitter. A crash loses at most the in-flight chunk; resume
// re-enters at the committed cursor and reprocesses idempotently.
type Orchestrator struct {
	jobs    *repository.JobRepository
	records *repository.RecordRepository
	idx     index.Index
	meta    *metadata.Parser
	geo     geo.Parser
	emit    *emitter.Emitter

	chunkSize   int
	itemTimeout time.Duration
	log         *logger.Logger
}

// New wires an orchestrator from its components. The geo parser, metadata
// parser, and emitter arrive with their modes already decided by the
// startup probes; the orchestrator never re-probes mid-run.
func New(jobs *repository.JobRepository, records *repository.RecordRepository, idx index.Index,
	meta *metadata.Parser, geoParser geo.Parser, emit *emitter.Emitter,
	opts Options, log *logger.Logger) *Orchestrator {

	if opts.ChunkSize <= 0 {
		opts.ChunkSize = defaultChunkSize
	}
	if opts.ItemTimeout <= 0 {
		opts.ItemTimeout = defaultItemTimeout
	}

	return &Orchestrator{
		jobs:        jobs,
		records:     records,
		idx:         idx,
		meta:        meta,
		geo:         geoParser,
		emit:        emit,
		chunkSize:   opts.ChunkSize,
		itemTimeout: opts.ItemTimeout,
		log:         log.WithField(logger.FieldComponent, "orchestrator"),
	}
}

// Summary is the final report of a run, including which degraded modes were
// active so partial results are never mistaken for complete ones.
type Summary struct {
	JobID          string           `json:"job_id"`
	Status         domain.JobStatus `json:"status"`
	TotalItems     int              `json:"total_items"`
	ProcessedItems int              `json:"processed_items"`
	FailedItems    int              `json:"failed_items"`
	GeoMode        string           `json:"geo_mode"`
	MetadataMode   string           `json:"metadata_mode"`
	EmitMode       string           `json:"emit_mode"`
	Duration       time.Duration    `json:"duration"`
}

// StartJob creates a new job row and runs it to a terminal status. An empty
// id gets a generated one.
func (o *Orchestrator) StartJob(ctx context.Context, id string, items []Item) (*Summary, error) {
	if id == "" {
		id = uuid.New().String()
	}

	job := &domain.BatchJob{
		ID:         id,
		Status:     domain.JobStatusPending,
		ChunkSize:  o.chunkSize,
		TotalItems: len(items),
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job %s: %w", id, err)
	}
	return o.Run(ctx, job, items)
}

// Resume continues an interrupted job from its committed cursor. The item
// list must be the same one the job was started with; items before the
// cursor are never reprocessed.
func (o *Orchestrator) Resume(ctx context.Context, jobID string, items []Item) (*Summary, error) {
	job, err := o.jobs.Get(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	if job.TotalItems > 0 && job.TotalItems != len(items) {
		return nil, fmt.Errorf("job %s was started with %d items, got %d", jobID, job.TotalItems, len(items))
	}
	return o.Run(ctx, job, items)
}

// Run drives the job from its current cursor to a terminal status.
// Cancellation is honored between chunks only; a cancel mid-chunk is
// deferred until the chunk's items settle, then the job stops with its
// committed cursor intact. Only persistence failure aborts.
func (o *Orchestrator) Run(ctx context.Context, job *domain.BatchJob, items []Item) (*Summary, error) {
	if job.Status != domain.JobStatusPending && job.Status != domain.JobStatusRunning {
		return nil, fmt.Errorf("job %s is %s and cannot run", job.ID, job.Status)
	}
	if job.Cursor > len(items) {
		return nil, fmt.Errorf("job %s cursor %d is beyond the %d-item list", job.ID, job.Cursor, len(items))
	}

	chunk := job.ChunkSize
	if chunk <= 0 {
		chunk = o.chunkSize
	}

	log := o.log.WithField(logger.FieldJobID, job.ID)
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return o.summarize(job, started), err
	}

	job.Status = domain.JobStatusRunning
	job.TotalItems = len(items)
	job.GeoMode = string(o.geo.Mode())
	job.MetadataMode = string(o.meta.Mode())
	job.EmitMode = string(o.emit.Mode())
	if job.StartedAt == nil {
		job.StartedAt = &started
	}
	if err := o.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		return o.summarize(job, started), o.abort(ctx, job, fmt.Errorf("failed to persist job start: %w", err))
	}

	// A crash between a chunk commit and its emission leaves the emit
	// cursor behind the committed cursor; close that gap before taking on
	// new items so no committed record is ever dropped.
	if err := o.reemitPending(context.WithoutCancel(ctx), job, log); err != nil {
		return o.summarize(job, started), o.abort(ctx, job, err)
	}

	log.WithFields(logger.Fields{
		"total_items":   job.TotalItems,
		"cursor":        job.Cursor,
		"chunk_size":    chunk,
		"geo_mode":      job.GeoMode,
		"metadata_mode": job.MetadataMode,
		"emit_mode":     job.EmitMode,
	}).Info("Batch job running")

	for start := job.Cursor; start < len(items); {
		if err := ctx.Err(); err != nil {
			log.WithField("cursor", start).Warn("Batch job interrupted; committed cursor preserved for resume")
			return o.summarize(job, started), err
		}

		end := min(start+chunk, len(items))

		// The in-flight chunk always settles before cancellation takes
		// effect, so the outcome log never holds half a chunk.
		workCtx := context.WithoutCancel(ctx)

		outcomes := make([]domain.ItemOutcome, 0, end-start)
		emitted := make([]*domain.SearchRecord, 0, end-start)
		for seq := start; seq < end; seq++ {
			outcome, rec, err := o.processItem(workCtx, job, seq, items[seq])
			if err != nil {
				return o.summarize(job, started), o.abort(workCtx, job, err)
			}
			outcomes = append(outcomes, outcome)
			if rec != nil {
				emitted = append(emitted, rec)
			}
		}

		if err := o.jobs.CommitChunk(workCtx, job.ID, outcomes, end); err != nil {
			return o.summarize(job, started), o.abort(workCtx, job, fmt.Errorf("chunk commit failed: %w", err))
		}
		job.Cursor = end

		for _, rec := range emitted {
			if err := o.emit.Emit(workCtx, rec); err != nil {
				return o.summarize(job, started), o.abort(workCtx, job, err)
			}
		}
		if err := o.jobs.SetEmitCursor(workCtx, job.ID, end); err != nil {
			return o.summarize(job, started), o.abort(workCtx, job, fmt.Errorf("failed to persist emit cursor: %w", err))
		}
		job.EmitCursor = end

		log.WithFields(logger.Fields{
			logger.FieldChunk: fmt.Sprintf("%d-%d", start, end),
			logger.FieldCount: end - start,
		}).Debug("Chunk committed")
		start = end
	}

	return o.finish(ctx, job, started)
}

// reemitPending re-delivers committed records that never reached the
// emitter. Outcomes in [emit cursor, cursor) are rebuilt from the record
// tables; delivery is keyed by record ID, so repeating it converges.
func (o *Orchestrator) reemitPending(ctx context.Context, job *domain.BatchJob, log *logger.Logger) error {
	if job.EmitCursor >= job.Cursor {
		return nil
	}

	outcomes, err := o.jobs.ListOutcomes(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("failed to load outcome log: %w", err)
	}

	var count int
	for _, out := range outcomes {
		if out.Seq < job.EmitCursor || out.Seq >= job.Cursor {
			continue
		}
		var rec *domain.SearchRecord
		switch out.Kind {
		case KindText:
			tr, err := o.records.GetText(ctx, out.ItemID)
			if err != nil {
				return fmt.Errorf("failed to load text record %s for re-emit: %w", out.ItemID, err)
			}
			rec = domain.SearchRecordFromText(tr)
		default:
			ir, err := o.records.GetImage(ctx, out.ItemID)
			if err != nil {
				return fmt.Errorf("failed to load image record %s for re-emit: %w", out.ItemID, err)
			}
			rec = domain.SearchRecordFromImage(ir)
		}
		if err := o.emit.Emit(ctx, rec); err != nil {
			return err
		}
		count++
	}

	if err := o.jobs.SetEmitCursor(ctx, job.ID, job.Cursor); err != nil {
		return fmt.Errorf("failed to persist emit cursor: %w", err)
	}
	job.EmitCursor = job.Cursor

	log.WithField(logger.FieldCount, count).Info("Re-emitted committed records left behind by an interrupted run")
	return nil
}

// finish reloads committed counts and records the terminal status. Every
// item is already terminal here, so a late cancel must not derail it.
func (o *Orchestrator) finish(ctx context.Context, job *domain.BatchJob, started time.Time) (*Summary, error) {
	ctx = context.WithoutCancel(ctx)
	fresh, err := o.jobs.Get(ctx, job.ID)
	if err != nil {
		return o.summarize(job, started), o.abort(ctx, job, fmt.Errorf("failed to reload job counts: %w", err))
	}
	job.ProcessedItems = fresh.ProcessedItems
	job.FailedItems = fresh.FailedItems

	if job.FailedItems > 0 {
		job.Status = domain.JobStatusPartiallyFailed
	} else {
		job.Status = domain.JobStatusCompleted
	}
	now := time.Now()
	job.CompletedAt = &now
	if err := o.jobs.Update(ctx, job); err != nil {
		return o.summarize(job, started), o.abort(ctx, job, fmt.Errorf("failed to persist terminal status: %w", err))
	}

	summary := o.summarize(job, started)
	o.log.WithFields(logger.Fields{
		logger.FieldJobID:      job.ID,
		logger.FieldStatus:     string(job.Status),
		"total_items":          summary.TotalItems,
		"processed_items":      summary.ProcessedItems,
		"failed_items":         summary.FailedItems,
		"geo_mode":             summary.GeoMode,
		"metadata_mode":        summary.MetadataMode,
		"emit_mode":            summary.EmitMode,
		logger.FieldDurationMs: summary.Duration.Milliseconds(),
	}).Info("Batch job finished")
	return summary, nil
}

// abort records the aborted status and returns the cause. The cause is
// persisted on the job row so an operator can tell a storage failure from
// an index rejection without the process logs.
func (o *Orchestrator) abort(ctx context.Context, job *domain.BatchJob, cause error) error {
	now := time.Now()
	job.Status = domain.JobStatusAborted
	job.Error = cause.Error()
	job.CompletedAt = &now
	if err := o.jobs.Update(context.WithoutCancel(ctx), job); err != nil {
		o.log.WithField(logger.FieldJobID, job.ID).WithError(err).Error("Failed to record aborted status")
	}
	o.log.WithField(logger.FieldJobID, job.ID).WithError(cause).Error("Batch job aborted")
	return cause
}

func (o *Orchestrator) summarize(job *domain.BatchJob, started time.Time) *Summary {
	return &Summary{
		JobID:          job.ID,
		Status:         job.Status,
		TotalItems:     job.TotalItems,
		ProcessedItems: job.ProcessedItems,
		FailedItems:    job.FailedItems,
		GeoMode:        job.GeoMode,
		MetadataMode:   job.MetadataMode,
		EmitMode:       job.EmitMode,
		Duration:       time.Since(started),
	}
}

// processItem brings one item to a terminal status. Item-level problems
// (unreadable input, backend timeouts) are captured in the outcome; only
// persistence failures return an error.
func (o *Orchestrator) processItem(ctx context.Context, job *domain.BatchJob, seq int, item Item) (domain.ItemOutcome, *domain.SearchRecord, error) {
	itemCtx, cancel := context.WithTimeout(ctx, o.itemTimeout)
	defer cancel()

	outcome := domain.ItemOutcome{
		JobID: job.ID,
		Seq:   seq,
		Kind:  item.Kind,
	}

	switch item.Kind {
	case KindImage:
		rec, err := o.processImage(itemCtx, job, item)
		if err != nil {
			return outcome, nil, err
		}
		outcome.ItemID = rec.ID
		outcome.Status = rec.Status
		outcome.Reason = rec.FailReason
		return outcome, domain.SearchRecordFromImage(rec), nil

	case KindText:
		rec, err := o.processText(itemCtx, job, item)
		if err != nil {
			return outcome, nil, err
		}
		outcome.ItemID = rec.ID
		outcome.Status = rec.Status
		outcome.Reason = rec.FailReason
		return outcome, domain.SearchRecordFromText(rec), nil

	default:
		return outcome, nil, fmt.Errorf("unknown item kind %q at seq %d", item.Kind, seq)
	}
}

// processImage extracts, enriches, indexes, and persists one image. Failed
// items still get a persisted record so nothing is silently dropped.
func (o *Orchestrator) processImage(ctx context.Context, job *domain.BatchJob, item Item) (*domain.ImageRecord, error) {
	rec := &domain.ImageRecord{
		JobID:  job.ID,
		Path:   item.Path,
		Status: domain.RecordStatusProcessed,
	}

	data, err := os.ReadFile(item.Path)
	if err != nil {
		rec.ID = feature.HashText(item.Path)
		o.failRecord(rec, domain.FailReasonUnreadable, err)
		return rec, o.records.UpsertImage(ctx, rec)
	}

	ext, err := feature.Extract(data)
	if err != nil {
		rec.ID = feature.HashText(string(data))
		reason := domain.FailReasonUnreadable
		if errors.Is(err, feature.ErrUnsupportedFormat) {
			reason = domain.FailReasonUnsupportedFormat
		}
		o.failRecord(rec, reason, err)
		return rec, o.records.UpsertImage(ctx, rec)
	}
	rec.ID = ext.ID
	rec.Descriptor = ext.Descriptor

	meta, partial, err := o.meta.Parse(ctx, item.Path, data)
	if err != nil {
		o.failRecord(rec, failReason(err), err)
		rec.Descriptor = nil
		return rec, o.records.UpsertImage(ctx, rec)
	}
	rec.Metadata = meta
	rec.MetadataPartial = partial

	if err := o.idx.Insert(ctx, rec.ID, rec.Descriptor); err != nil {
		if errors.Is(err, index.ErrDimensionMismatch) {
			return nil, fmt.Errorf("index rejected descriptor for %s: %w", rec.ID, err)
		}
		o.failRecord(rec, failReason(err), err)
		rec.Descriptor = nil
		return rec, o.records.UpsertImage(ctx, rec)
	}

	return rec, o.records.UpsertImage(ctx, rec)
}

// processText runs place extraction over one description and persists it.
func (o *Orchestrator) processText(ctx context.Context, job *domain.BatchJob, item Item) (*domain.TextRecord, error) {
	rec := &domain.TextRecord{
		ID:     feature.HashText(item.Text),
		JobID:  job.ID,
		Text:   item.Text,
		Status: domain.RecordStatusProcessed,
	}

	if strings.TrimSpace(item.Text) == "" {
		rec.Status = domain.RecordStatusFailed
		rec.FailReason = domain.FailReasonEmptyText
		return rec, o.records.UpsertText(ctx, rec)
	}

	mentions, err := o.geo.Extract(ctx, item.Text)
	if err != nil {
		o.failText(rec, failReason(err), err)
		return rec, o.records.UpsertText(ctx, rec)
	}
	rec.Mentions = mentions

	return rec, o.records.UpsertText(ctx, rec)
}

func (o *Orchestrator) failRecord(rec *domain.ImageRecord, reason string, err error) {
	rec.Status = domain.RecordStatusFailed
	rec.FailReason = reason
	o.log.WithFields(logger.Fields{
		logger.FieldItemID: rec.ID,
		"path":             rec.Path,
		"reason":           reason,
	}).WithError(err).Warn("Image item failed")
}

func (o *Orchestrator) failText(rec *domain.TextRecord, reason string, err error) {
	rec.Status = domain.RecordStatusFailed
	rec.FailReason = reason
	o.log.WithFields(logger.Fields{
		logger.FieldItemID: rec.ID,
		"reason":           reason,
	}).WithError(err).Warn("Text item failed")
}

// failReason classifies a backend error: timeouts get the stable
// backend-timeout reason, anything else keeps its message.
func failReason(err error) string {
	if isTimeout(err) {
		return domain.FailReasonBackendTimeout
	}
	return err.Error()
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
