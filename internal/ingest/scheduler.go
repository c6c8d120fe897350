package ingest

import (
	"context"
	"log/slog"
	"time"
)

// Scheduler periodically drives a full fan-out ingestion run. It mirrors
// the cron collaborator of the hosted deployment for self-hosted runs.
type Scheduler struct {
	orch     *Orchestrator
	interval time.Duration
	logger   *slog.Logger
	done     chan struct{}
}

// NewScheduler creates a scheduler driving orch every interval.
func NewScheduler(orch *Orchestrator, interval time.Duration) *Scheduler {
	return &Scheduler{
		orch:     orch,
		interval: interval,
		logger:   slog.Default(),
		done:     make(chan struct{}),
	}
}

// RunOnce executes a single full ingestion run.
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	s.logger.Info("scheduled ingestion run starting")
	start := time.Now()
	summary := s.orch.RunAll(ctx)
	s.logger.Info("scheduled ingestion run finished",
		"duration", time.Since(start),
		"articles", summary.ArticlesGenerated,
		"errors", summary.ErrorsEncountered)
	return summary
}

// Start begins the scheduler loop: one run immediately, then one per
// interval. Blocks until ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-s.done:
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// Stop stops the scheduler loop.
func (s *Scheduler) Stop() {
	close(s.done)
}
