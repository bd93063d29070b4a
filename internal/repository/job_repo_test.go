package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/calvey/hauntex/internal/config"
	"github.com/calvey/hauntex/internal/domain"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:          "sqlite",
		Path:            filepath.Join(t.TempDir(), "test.db"),
		MaxIdleConns:    1,
		MaxOpenConns:    1,
		ConnMaxLifetime: time.Hour,
		AutoMigrate:     true,
	})
	if err != nil {
		t.Fatalf("Failed to init test database: %v", err)
	}
	return db
}

// TestCommitChunkAdvancesCursor verifies one commit durably stores the
// chunk's outcomes and the new cursor.
func TestCommitChunkAdvancesCursor(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testDB(t))

	job := &domain.BatchJob{ID: "job-1", Status: domain.JobStatusRunning, ChunkSize: 2, TotalItems: 4}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	outcomes := []domain.ItemOutcome{
		{JobID: "job-1", Seq: 0, ItemID: "a", Kind: "image", Status: domain.RecordStatusProcessed},
		{JobID: "job-1", Seq: 1, ItemID: "b", Kind: "image", Status: domain.RecordStatusFailed, Reason: "unreadable"},
	}
	if err := repo.CommitChunk(ctx, "job-1", outcomes, 2); err != nil {
		t.Fatalf("CommitChunk failed: %v", err)
	}

	got, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Cursor != 2 {
		t.Errorf("Expected cursor 2, got %d", got.Cursor)
	}
	if got.ProcessedItems != 1 || got.FailedItems != 1 {
		t.Errorf("Expected counts 1/1, got %d/%d", got.ProcessedItems, got.FailedItems)
	}

	log, err := repo.ListOutcomes(ctx, "job-1")
	if err != nil {
		t.Fatalf("ListOutcomes failed: %v", err)
	}
	if len(log) != 2 || log[0].Seq != 0 || log[1].Seq != 1 {
		t.Fatalf("Expected outcomes in sequence order, got %+v", log)
	}
	if log[1].Reason != "unreadable" {
		t.Errorf("Expected failure reason preserved, got %q", log[1].Reason)
	}
}

// TestCommitChunkIdempotent verifies recommitting the in-flight chunk after
// a crash overwrites outcomes instead of double-counting.
func TestCommitChunkIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testDB(t))

	job := &domain.BatchJob{ID: "job-1", Status: domain.JobStatusRunning, ChunkSize: 2, TotalItems: 2}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	outcomes := []domain.ItemOutcome{
		{JobID: "job-1", Seq: 0, ItemID: "a", Kind: "image", Status: domain.RecordStatusProcessed},
		{JobID: "job-1", Seq: 1, ItemID: "b", Kind: "image", Status: domain.RecordStatusProcessed},
	}

	for i := 0; i < 3; i++ {
		if err := repo.CommitChunk(ctx, "job-1", outcomes, 2); err != nil {
			t.Fatalf("CommitChunk run %d failed: %v", i, err)
		}
	}

	got, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ProcessedItems != 2 || got.FailedItems != 0 {
		t.Errorf("Repeated commits must not double-count: got %d/%d", got.ProcessedItems, got.FailedItems)
	}

	log, err := repo.ListOutcomes(ctx, "job-1")
	if err != nil {
		t.Fatalf("ListOutcomes failed: %v", err)
	}
	if len(log) != 2 {
		t.Errorf("Expected 2 outcomes after repeated commits, got %d", len(log))
	}
}

// TestCommitChunkReprocessChangesStatus verifies a reprocessed item's new
// outcome replaces the old one.
func TestCommitChunkReprocessChangesStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewJobRepository(testDB(t))

	job := &domain.BatchJob{ID: "job-1", Status: domain.JobStatusRunning, ChunkSize: 1, TotalItems: 1}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	first := []domain.ItemOutcome{
		{JobID: "job-1", Seq: 0, ItemID: "a", Kind: "text", Status: domain.RecordStatusFailed, Reason: "backend-timeout"},
	}
	if err := repo.CommitChunk(ctx, "job-1", first, 1); err != nil {
		t.Fatalf("CommitChunk failed: %v", err)
	}

	second := []domain.ItemOutcome{
		{JobID: "job-1", Seq: 0, ItemID: "a", Kind: "text", Status: domain.RecordStatusProcessed},
	}
	if err := repo.CommitChunk(ctx, "job-1", second, 1); err != nil {
		t.Fatalf("CommitChunk failed: %v", err)
	}

	got, err := repo.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ProcessedItems != 1 || got.FailedItems != 0 {
		t.Errorf("Expected counts recomputed to 1/0, got %d/%d", got.ProcessedItems, got.FailedItems)
	}
}

// TestRecordRepositoryUpsert verifies image upserts converge on one row per
// content identity.
func TestRecordRepositoryUpsert(t *testing.T) {
	ctx := context.Background()
	repo := NewRecordRepository(testDB(t))

	rec := &domain.ImageRecord{
		ID:     "abc123",
		JobID:  "job-1",
		Path:   "/evidence/one.png",
		Status: domain.RecordStatusProcessed,
		Metadata: domain.MetadataMap{
			"format": "png",
		},
	}
	if err := repo.UpsertImage(ctx, rec); err != nil {
		t.Fatalf("UpsertImage failed: %v", err)
	}

	rec.Path = "/evidence/renamed.png"
	if err := repo.UpsertImage(ctx, rec); err != nil {
		t.Fatalf("UpsertImage failed: %v", err)
	}

	got, err := repo.GetImage(ctx, "abc123")
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if got.Path != "/evidence/renamed.png" {
		t.Errorf("Expected upsert to update path, got %s", got.Path)
	}

	count, err := repo.CountByStatus(ctx, domain.RecordStatusProcessed)
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected 1 processed record, got %d", count)
	}
}
