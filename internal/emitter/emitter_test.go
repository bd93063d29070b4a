package emitter

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/calvey/hauntex/internal/domain"
	"github.com/calvey/hauntex/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&logger.Config{Level: "error", Format: "text", Output: io.Discard})
}

func testRecord(id string) *domain.SearchRecord {
	return &domain.SearchRecord{
		ID:            id,
		Descriptor:    []float32{0.5, 0.5},
		Metadata:      map[string]interface{}{"format": "png"},
		PlaceMentions: []domain.SearchPlace{},
		Status:        domain.SearchStatusProcessed,
	}
}

// fakeBackend records indexed documents and serves probe and index checks.
type fakeBackend struct {
	mu   sync.Mutex
	docs map[string]domain.SearchRecord
}

func newFakeBackend() (*fakeBackend, *httptest.Server) {
	fb := &fakeBackend{docs: map[string]domain.SearchRecord{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodHead:
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut:
			var rec domain.SearchRecord
			if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			fb.mu.Lock()
			fb.docs[rec.ID] = rec
			fb.mu.Unlock()
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return fb, srv
}

func (f *fakeBackend) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.docs)
}

// TestFallbackStoreRoundTrip verifies records survive append, read-back,
// and truncation in order.
func TestFallbackStoreRoundTrip(t *testing.T) {
	store := NewFallbackStore(filepath.Join(t.TempDir(), "fallback.jsonl"))

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Append(testRecord(id)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	for i, id := range []string{"a", "b", "c"} {
		if records[i].ID != id {
			t.Errorf("Record %d: expected %s, got %s", i, id, records[i].ID)
		}
	}
	if records[0].Status != domain.SearchStatusProcessed {
		t.Errorf("Status did not round-trip: %s", records[0].Status)
	}

	if err := store.Truncate(); err != nil {
		t.Fatalf("Truncate failed: %v", err)
	}
	records, err = store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll after truncate failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty store after truncate, got %d records", len(records))
	}
}

// TestFallbackStoreMissingFile verifies a never-written store reads as
// empty and truncates without error.
func TestFallbackStoreMissingFile(t *testing.T) {
	store := NewFallbackStore(filepath.Join(t.TempDir(), "never-written.jsonl"))

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty store, got %d records", len(records))
	}
	if err := store.Truncate(); err != nil {
		t.Errorf("Truncate of missing store should not fail: %v", err)
	}
}

// TestSelectUnreachableBackend verifies a failed probe selects fallback
// mode and Emit lands records in the store.
func TestSelectUnreachableBackend(t *testing.T) {
	backend := NewBackend("http://127.0.0.1:1", "haunted_places", 100*time.Millisecond)
	store := NewFallbackStore(filepath.Join(t.TempDir(), "fallback.jsonl"))

	em := Select(context.Background(), backend, store, testLogger())
	if em.Mode() != ModeFallback {
		t.Fatalf("Unreachable backend should select fallback mode, got %s", em.Mode())
	}

	if err := em.Emit(context.Background(), testRecord("r1")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "r1" {
		t.Fatalf("Expected r1 in fallback store, got %+v", records)
	}
}

// TestEmitBackendMode verifies backend mode delivers directly and keeps the
// fallback store empty.
func TestEmitBackendMode(t *testing.T) {
	fb, srv := newFakeBackend()
	defer srv.Close()

	backend := NewBackend(srv.URL, "haunted_places", time.Second)
	store := NewFallbackStore(filepath.Join(t.TempDir(), "fallback.jsonl"))

	em := Select(context.Background(), backend, store, testLogger())
	if em.Mode() != ModeBackend {
		t.Fatalf("Reachable backend should select backend mode, got %s", em.Mode())
	}

	if err := em.Emit(context.Background(), testRecord("r1")); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if fb.count() != 1 {
		t.Errorf("Expected 1 indexed document, got %d", fb.count())
	}
	records, _ := store.ReadAll()
	if len(records) != 0 {
		t.Errorf("Fallback store should stay empty in backend mode, got %d", len(records))
	}
}

// TestEmitDivertsOnBackendError verifies a mid-run backend failure diverts
// the record to the fallback store instead of dropping it.
func TestEmitDivertsOnBackendError(t *testing.T) {
	fb, srv := newFakeBackend()
	backend := NewBackend(srv.URL, "haunted_places", time.Second)
	store := NewFallbackStore(filepath.Join(t.TempDir(), "fallback.jsonl"))

	em := Select(context.Background(), backend, store, testLogger())
	if em.Mode() != ModeBackend {
		t.Fatalf("Expected backend mode, got %s", em.Mode())
	}

	// Backend dies mid-run
	srv.Close()

	if err := em.Emit(context.Background(), testRecord("r2")); err != nil {
		t.Fatalf("Emit should divert, not fail: %v", err)
	}
	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "r2" {
		t.Fatalf("Expected diverted record r2, got %+v", records)
	}
	if fb.count() != 0 {
		t.Errorf("Dead backend should hold no documents, got %d", fb.count())
	}
}

// TestReplay verifies stored records stream into the backend unchanged and
// the store is truncated on success.
func TestReplay(t *testing.T) {
	fb, srv := newFakeBackend()
	defer srv.Close()

	backend := NewBackend(srv.URL, "haunted_places", time.Second)
	store := NewFallbackStore(filepath.Join(t.TempDir(), "fallback.jsonl"))
	for _, id := range []string{"a", "b"} {
		if err := store.Append(testRecord(id)); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	em := New(backend, store, ModeBackend, testLogger())
	count, err := em.Replay(context.Background())
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 replayed records, got %d", count)
	}
	if fb.count() != 2 {
		t.Errorf("Expected 2 documents in backend, got %d", fb.count())
	}

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Store should be truncated after replay, got %d records", len(records))
	}
}

// TestReplayUnreachableBackend verifies replay keeps the store intact when
// the backend is still down.
func TestReplayUnreachableBackend(t *testing.T) {
	backend := NewBackend("http://127.0.0.1:1", "haunted_places", 100*time.Millisecond)
	store := NewFallbackStore(filepath.Join(t.TempDir(), "fallback.jsonl"))
	if err := store.Append(testRecord("a")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	em := New(backend, store, ModeFallback, testLogger())
	if _, err := em.Replay(context.Background()); err == nil {
		t.Fatal("Expected replay to fail against unreachable backend")
	}

	records, err := store.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Failed replay must not truncate the store, got %d records", len(records))
	}
}
