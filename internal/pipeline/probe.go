package pipeline

import (
	"context"

	"github.com/calvey/hauntex/internal/config"
	"github.com/calvey/hauntex/internal/emitter"
	"github.com/calvey/hauntex/internal/feature"
	"github.com/calvey/hauntex/internal/geo"
	"github.com/calvey/hauntex/internal/index"
	"github.com/calvey/hauntex/internal/logger"
	"github.com/calvey/hauntex/internal/metadata"
)

// Capabilities holds the strategy choices made by the startup probes. Each
// optional backend is probed exactly once; the chosen strategies apply for
// the whole run and are recorded on the job so results carry their mode.
type Capabilities struct {
	Geo      geo.Parser
	Metadata *metadata.Parser
	Emitter  *emitter.Emitter
}

// Detect probes the geo backend, the metadata service, and the search
// backend, and returns components with their modes fixed.
func Detect(ctx context.Context, cfg *config.Config, log *logger.Logger) *Capabilities {
	caps := &Capabilities{}

	model := geo.NewModelParser(cfg.Geo.BaseURL, cfg.Geo.Timeout)
	if model.Probe(ctx) {
		caps.Geo = model
	} else {
		log.WithField(logger.FieldBackend, cfg.Geo.BaseURL).
			Warn("Geo backend unreachable, using heuristic place resolution")
		caps.Geo = geo.NewHeuristicParser()
	}

	caps.Metadata = metadata.Select(ctx, cfg.Metadata.BaseURL, cfg.Metadata.Timeout)
	if caps.Metadata.Mode() == metadata.ModeDegraded {
		log.WithField(logger.FieldBackend, cfg.Metadata.BaseURL).
			Warn("Metadata service unreachable, using degraded filesystem metadata")
	}

	backend := emitter.NewBackend(cfg.Search.BackendURL, cfg.Search.Index, cfg.Search.Timeout)
	fallback := emitter.NewFallbackStore(cfg.Search.FallbackPath)
	caps.Emitter = emitter.Select(ctx, backend, fallback, log)
	if caps.Emitter.Mode() == emitter.ModeFallback {
		log.WithFields(logger.Fields{
			logger.FieldBackend: cfg.Search.BackendURL,
			"fallback_path":     cfg.Search.FallbackPath,
		}).Warn("Search backend unreachable, emitting to local fallback store")
	}

	log.WithFields(logger.Fields{
		"geo_mode":      string(caps.Geo.Mode()),
		"metadata_mode": string(caps.Metadata.Mode()),
		"emit_mode":     string(caps.Emitter.Mode()),
	}).Info("Startup probes complete")

	return caps
}

// SelectIndex returns the similarity index to use: the remote collection
// when configured and reachable, the in-memory linear index otherwise.
func SelectIndex(ctx context.Context, cfg *config.Config, log *logger.Logger) index.Index {
	if !cfg.Qdrant.Enabled {
		return index.NewMemoryIndex(feature.DescriptorLength)
	}

	q, err := index.NewQdrantIndex(&index.QdrantConfig{
		Host:       cfg.Qdrant.Host,
		Port:       cfg.Qdrant.Port,
		Collection: cfg.Qdrant.Collection,
		APIKey:     cfg.Qdrant.APIKey,
		UseTLS:     cfg.Qdrant.UseTLS,
		Dimension:  feature.DescriptorLength,
	})
	if err != nil {
		log.WithError(err).Warn("Remote index unavailable, using in-memory index")
		return index.NewMemoryIndex(feature.DescriptorLength)
	}
	if err := q.EnsureCollection(ctx); err != nil {
		log.WithError(err).Warn("Remote index collection setup failed, using in-memory index")
		_ = q.Close()
		return index.NewMemoryIndex(feature.DescriptorLength)
	}

	log.WithFields(logger.Fields{
		"host":       cfg.Qdrant.Host,
		"collection": cfg.Qdrant.Collection,
	}).Info("Using remote similarity index")
	return q
}
