package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/calvey/hauntex/internal/config"
	"github.com/calvey/hauntex/internal/logger"
	"github.com/calvey/hauntex/internal/pipeline"
	"github.com/calvey/hauntex/internal/repository"
)

func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "hauntex-ingest",
	})
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Parse command line flags
	dir := flag.String("dir", "", "Directory of image files to ingest")
	textFile := flag.String("text-file", "", "File of descriptions to ingest, one per line")
	jobID := flag.String("job", "", "Resume an interrupted job by ID")
	chunkSize := flag.Int("chunk", 0, "Chunk size override (default from config)")
	replay := flag.Bool("replay", false, "Replay the fallback store into the search backend and exit")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown: the in-flight chunk settles, then the job
	// stops with its committed cursor intact.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	// Probe optional backends once; strategies are fixed for the whole run
	caps := pipeline.Detect(ctx, cfg, appLogger)

	if *replay {
		count, err := caps.Emitter.Replay(ctx)
		if err != nil {
			appLogger.WithError(err).Fatal("Replay failed")
		}
		appLogger.WithField("count", count).Info("Replay completed")
		return
	}

	if *dir == "" && *textFile == "" {
		appLogger.Fatal("Nothing to ingest: provide -dir and/or -text-file")
	}

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	jobRepo := repository.NewJobRepository(db)
	recordRepo := repository.NewRecordRepository(db)

	idx := pipeline.SelectIndex(ctx, cfg, appLogger)

	// Build the ordered item list: images first, then descriptions. The
	// order is deterministic so a resumed job sees the same sequence.
	var items []pipeline.Item
	if *dir != "" {
		imageItems, err := pipeline.CollectImages(*dir)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to collect images")
		}
		items = append(items, imageItems...)
	}
	if *textFile != "" {
		texts, err := readLines(*textFile)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to read text file")
		}
		items = append(items, pipeline.TextItems(texts)...)
	}

	appLogger.WithFields(logger.Fields{
		"items":     len(items),
		"dir":       *dir,
		"text_file": *textFile,
	}).Info("Starting ingestion")

	orch := pipeline.New(jobRepo, recordRepo, idx, caps.Metadata, caps.Geo, caps.Emitter,
		pipeline.Options{
			ChunkSize:   chunkOrDefault(*chunkSize, cfg.Ingest.ChunkSize),
			ItemTimeout: cfg.Ingest.ItemTimeout,
		}, appLogger)

	var summary *pipeline.Summary
	if *jobID != "" {
		summary, err = orch.Resume(ctx, *jobID, items)
	} else {
		summary, err = orch.StartJob(ctx, "", items)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && summary != nil {
			appLogger.WithField(logger.FieldJobID, summary.JobID).
				Warn("Ingestion interrupted; resume with -job")
			return
		}
		appLogger.WithError(err).Fatal("Ingestion failed")
	}

	appLogger.WithFields(logger.Fields{
		logger.FieldJobID:  summary.JobID,
		logger.FieldStatus: string(summary.Status),
		"total":            summary.TotalItems,
		"processed":        summary.ProcessedItems,
		"failed":           summary.FailedItems,
		"geo_mode":         summary.GeoMode,
		"metadata_mode":    summary.MetadataMode,
		"emit_mode":        summary.EmitMode,
	}).Info("Ingestion completed")
}

func chunkOrDefault(override, fallback int) int {
	if override > 0 {
		return override
	}
	return fallback
}

// readLines returns the non-blank lines of a text file.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
