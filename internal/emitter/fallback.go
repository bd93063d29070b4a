package emitter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/calvey/hauntex/internal/domain"
)

// FallbackStore is the durable local store used when the search backend is
// unreachable: one JSON record per line, in the same schema the backend
// accepts, so a later replay can stream it into the backend unchanged.
type FallbackStore struct {
	mu   sync.Mutex
	path string
}

// NewFallbackStore creates a store writing to path.
func NewFallbackStore(path string) *FallbackStore {
	return &FallbackStore{path: path}
}

// Path returns the store's file path.
func (s *FallbackStore) Path() string {
	return s.path
}

// Append durably appends one record. A failure here is a persistence
// failure and aborts the job.
func (s *FallbackStore) Append(rec *domain.SearchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create fallback directory: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open fallback store: %w", err)
	}
	defer f.Close()

	line, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}
	line = append(line, '\n')

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append record %s: %w", rec.ID, err)
	}
	return f.Sync()
}

// ReadAll returns every stored record in append order. A missing file
// means an empty store.
func (s *FallbackStore) ReadAll() ([]domain.SearchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.SearchRecord{}, nil
		}
		return nil, fmt.Errorf("failed to open fallback store: %w", err)
	}
	defer f.Close()

	records := []domain.SearchRecord{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.SearchRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("corrupt fallback store entry: %w", err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fallback store: %w", err)
	}
	return records, nil
}

// Truncate clears the store after a successful replay.
func (s *FallbackStore) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to truncate fallback store: %w", err)
	}
	return nil
}
