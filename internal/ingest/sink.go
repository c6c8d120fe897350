package ingest

import (
	"context"
	"log/slog"

	"github.com/pulsewire/ingest/internal/store"
)

// errorLogCategory tags pipeline failures in the error log table.
const errorLogCategory = "article_generation"

// StoreSink writes error log entries to the store with a no-throw
// contract: its own failures are logged and dropped so they can never
// mask the original error or abort a run.
type StoreSink struct {
	store  *store.Store
	logger *slog.Logger
}

// NewStoreSink creates an error sink backed by the store.
func NewStoreSink(s *store.Store) *StoreSink {
	return &StoreSink{store: s, logger: slog.Default()}
}

// Error records one pipeline failure. It never returns an error.
func (s *StoreSink) Error(ctx context.Context, message string, details map[string]any) {
	if err := s.store.InsertErrorLog(ctx, "error", errorLogCategory, message, details); err != nil {
		s.logger.Warn("error log write failed", "error", err, "original", message)
	}
}
