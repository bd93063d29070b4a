package emitter

import (
	"context"
	"fmt"

	"github.com/calvey/hauntex/internal/domain"
	"github.com/calvey/hauntex/internal/logger"
)

// Mode is the emission strategy, decided once at startup.
type Mode string

const (
	// ModeBackend sends records to the search backend directly.
	ModeBackend Mode = "backend"

	// ModeFallback appends records to the local fallback store.
	ModeFallback Mode = "fallback"
)

// Emitter converts committed records into the search backend schema and
// delivers them either to the backend or to the durable local fallback
// store. No record is silently dropped: backend errors mid-run divert the
// record to the fallback store for a later replay.
type Emitter struct {
	backend  *Backend
	fallback *FallbackStore
	mode     Mode
	log      *logger.Logger
}

// New creates an emitter in the given mode.
func New(backend *Backend, fallback *FallbackStore, mode Mode, log *logger.Logger) *Emitter {
	return &Emitter{
		backend:  backend,
		fallback: fallback,
		mode:     mode,
		log:      log,
	}
}

// Select probes the search backend once and returns an emitter in backend
// or fallback mode accordingly.
func Select(ctx context.Context, backend *Backend, fallback *FallbackStore, log *logger.Logger) *Emitter {
	mode := ModeFallback
	if backend.Probe(ctx) {
		if err := backend.EnsureIndex(ctx); err != nil {
			log.WithError(err).Warn("Search backend reachable but index setup failed, using fallback store")
		} else {
			mode = ModeBackend
		}
	}
	return New(backend, fallback, mode, log)
}

// Mode reports the emission strategy decided at startup.
func (e *Emitter) Mode() Mode {
	return e.mode
}

// Emit delivers one record. Only a fallback-store write failure propagates;
// that is a persistence failure and fatal for the job.
func (e *Emitter) Emit(ctx context.Context, rec *domain.SearchRecord) error {
	if e.mode == ModeBackend {
		if err := e.backend.Index(ctx, rec); err == nil {
			return nil
		} else {
			e.log.WithFields(logger.Fields{
				"record_id": rec.ID,
				"backend":   "search",
			}).WithError(err).Warn("Backend emit failed, diverting record to fallback store")
		}
	}
	if err := e.fallback.Append(rec); err != nil {
		return fmt.Errorf("fallback store append failed: %w", err)
	}
	return nil
}

// Replay streams the fallback store into the backend and truncates it on
// full success. Safe to run repeatedly; records are keyed by ID so the
// backend state converges.
func (e *Emitter) Replay(ctx context.Context) (int, error) {
	records, err := e.fallback.ReadAll()
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	if !e.backend.Probe(ctx) {
		return 0, fmt.Errorf("search backend unreachable, cannot replay %d records", len(records))
	}
	if err := e.backend.EnsureIndex(ctx); err != nil {
		return 0, err
	}

	for i := range records {
		if err := e.backend.Index(ctx, &records[i]); err != nil {
			return i, fmt.Errorf("replay stopped at record %d of %d: %w", i, len(records), err)
		}
	}

	if err := e.fallback.Truncate(); err != nil {
		return len(records), err
	}

	e.log.WithField("count", len(records)).Info("Replayed fallback store into search backend")
	return len(records), nil
}
