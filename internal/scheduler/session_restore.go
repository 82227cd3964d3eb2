package scheduler

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/linkdeck/internal/importer"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

// SessionLoader reads the saved import review.
type SessionLoader interface {
	LoadSession(ctx context.Context) (*importer.SessionSnapshot, error)
	DeleteSession(ctx context.Context) error
}

// SessionRestorer puts a review interrupted by a restart back into Preview.
type SessionRestorer struct {
	store      SessionLoader
	controller *importer.Controller
	logger     logger.Logger
}

// NewSessionRestorer creates a new restorer
func NewSessionRestorer(store SessionLoader, c *importer.Controller, log logger.Logger) *SessionRestorer {
	return &SessionRestorer{
		store:      store,
		controller: c,
		logger:     log,
	}
}

// Restore loads the saved snapshot, if any. A snapshot that cannot be
// restored is discarded so it does not block every later start.
func (sr *SessionRestorer) Restore(ctx context.Context) (bool, error) {
	snap, err := sr.store.LoadSession(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load import session: %w", err)
	}
	if snap == nil {
		sr.logger.Info("no saved import session")
		return false, nil
	}

	if err := sr.controller.Restore(*snap); err != nil {
		sr.logger.Warn("discarding unrestorable import session",
			logger.String("session_id", snap.ID),
			logger.Error(err))
		if derr := sr.store.DeleteSession(ctx); derr != nil {
			sr.logger.Warn("failed to delete import session", logger.Error(derr))
		}
		return false, nil
	}

	sr.logger.Info("import session restored from redis",
		logger.String("session_id", snap.ID),
		logger.Int("candidates", len(snap.Candidates)))
	return true, nil
}
