// Package scheduler coordinates the twice-daily registry refresh: fetch the
// dictionary and row feeds, run the ingestion pipeline, publish the new
// snapshot and persist it. A staleness monitor warns when no batch has
// completed for over 25 hours.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/NikSht/help-drugix/interfaces"
	"github.com/NikSht/help-drugix/logging"
	"github.com/NikSht/help-drugix/metrics"
	"github.com/NikSht/help-drugix/registry/dictionary"
	"github.com/NikSht/help-drugix/registry/ingest"
	"github.com/NikSht/help-drugix/store"
	"github.com/go-co-op/gocron"
)

// Scheduler runs ingestion batches on a fixed schedule using injected
// dependencies.
type Scheduler struct {
	dataStore interfaces.DataStore
	parser    interfaces.FeedParser
	pipeline  *ingest.Pipeline
	db        *store.Store
	scheduler *gocron.Scheduler
}

// New creates a scheduler with injected dependencies. db may be nil when
// snapshot persistence is disabled.
func New(dataStore interfaces.DataStore, parser interfaces.FeedParser, pipeline *ingest.Pipeline, db *store.Store) *Scheduler {
	return &Scheduler{
		dataStore: dataStore,
		parser:    parser,
		pipeline:  pipeline,
		db:        db,
		scheduler: gocron.NewScheduler(time.Local),
	}
}

// Start performs the initial batch and schedules refreshes at 06:00 and
// 18:00 daily.
func (s *Scheduler) Start() error {
	// Initial load
	if err := s.runBatch(); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	// Schedule updates at 06:00 and 18:00 daily
	_, err := s.scheduler.Every(1).Days().At("06:00;18:00").Do(func() {
		if err := s.runBatch(); err != nil {
			logging.Error("Failed to update data", "error", err)
		}
	})

	if err != nil {
		logging.Error("Failed to schedule updates", "error", err)
		return fmt.Errorf("failed to schedule updates: %w", err)
	}

	s.scheduler.StartAsync()

	// Start staleness monitoring
	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// runBatch performs one complete ingestion batch. The previously committed
// dataset stays published if anything fails before the final swap.
func (s *Scheduler) runBatch() error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting registry update", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	// Dictionaries reload only at batch boundaries. A conflict in either
	// dictionary aborts the whole batch.
	innRows, formRows, err := s.parser.ParseDictionaries()
	if err != nil {
		logging.Error("Failed to parse dictionaries", "error", err)
		return fmt.Errorf("failed to parse dictionaries: %w", err)
	}

	dict, err := dictionary.NewStore(innRows, formRows)
	if err != nil {
		logging.Error("Dictionary load rejected", "error", err)
		return fmt.Errorf("dictionary load rejected: %w", err)
	}

	rows, err := s.parser.ParseAll()
	if err != nil {
		logging.Error("Failed to parse registry feeds", "error", err)
		return fmt.Errorf("failed to parse registry feeds: %w", err)
	}

	report, snapshot := s.pipeline.Run(context.Background(), dict, rows)

	// Atomic swap of the published dataset
	s.dataStore.UpdateData(snapshot.Bundles, snapshot.Order, report.Violations, report.Quarantined)

	s.observe(report, snapshot.ProductCount)

	if s.db != nil {
		if err := s.db.SaveSnapshot(snapshot, report); err != nil {
			// The in-memory dataset is already live; persistence failure
			// only affects the exported copy.
			logging.Error("Failed to persist snapshot", "error", err, "batch_id", report.BatchID)
		}
	}

	elapsed := time.Since(start)
	logging.Info("Registry update completed",
		"batch_id", report.BatchID,
		"duration", elapsed.String(),
		"rows", report.Rows,
		"created", report.Created,
		"updated", report.Updated,
		"noops", report.Noops,
		"quarantined", len(report.Quarantined),
		"violations", len(report.Violations),
		"products", snapshot.ProductCount)

	return nil
}

// observe records batch outcomes into Prometheus.
func (s *Scheduler) observe(report *ingest.Report, productCount int) {
	metrics.IngestRowsTotal.WithLabelValues("created").Add(float64(report.Created))
	metrics.IngestRowsTotal.WithLabelValues("updated").Add(float64(report.Updated))
	metrics.IngestRowsTotal.WithLabelValues("noop").Add(float64(report.Noops))
	metrics.IngestQuarantinedTotal.Add(float64(len(report.Quarantined)))
	metrics.IngestBatchDuration.Observe(report.Duration.Seconds())
	metrics.CommittedProducts.Set(float64(productCount))

	metrics.CheckViolations.Reset()
	for _, v := range report.Violations {
		metrics.CheckViolations.WithLabelValues(string(v.Kind)).Inc()
	}
}

// startHealthMonitoring monitors the freshness of the committed dataset
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for range ticker.C {
			lastUpdate := s.dataStore.GetLastUpdated()
			if time.Since(lastUpdate) > 25*time.Hour {
				logging.Warn("Data hasn't been updated in over 25 hours")
			}
		}
	}()
}

// CalculateNextUpdate returns the next scheduled refresh time (06:00 or
// 18:00 local).
func CalculateNextUpdate() time.Time {
	now := time.Now()
	six := time.Date(now.Year(), now.Month(), now.Day(), 6, 0, 0, 0, now.Location())
	eighteen := time.Date(now.Year(), now.Month(), now.Day(), 18, 0, 0, 0, now.Location())

	switch {
	case now.Before(six):
		return six
	case now.Before(eighteen):
		return eighteen
	default:
		return six.Add(24 * time.Hour)
	}
}
