package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/index"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

// CatalogSource reads the whole persisted catalog.
type CatalogSource interface {
	Snapshot(ctx context.Context) ([]domain.Section, map[string][]domain.Link, error)
}

// CatalogRefresher keeps the in-memory index in step with the store:
// once on start, then on every tick and every trigger.
type CatalogRefresher struct {
	source   CatalogSource
	index    *index.MemoryIndex
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	trigger  chan struct{}
}

// NewCatalogRefresher creates a refresher. interval <= 0 disables the ticker.
func NewCatalogRefresher(
	source CatalogSource,
	idx *index.MemoryIndex,
	log logger.Logger,
	interval time.Duration,
) *CatalogRefresher {
	return &CatalogRefresher{
		source:   source,
		index:    idx,
		logger:   log,
		interval: interval,
		stopCh:   make(chan struct{}),
		trigger:  make(chan struct{}, 1),
	}
}

// Trigger asks for a refresh. It returns false when one is already
// pending; the pending refresh covers this request too.
func (cr *CatalogRefresher) Trigger() bool {
	select {
	case cr.trigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start loads the catalog and begins the refresh loop.
func (cr *CatalogRefresher) Start(ctx context.Context) error {
	if err := cr.Refresh(ctx); err != nil {
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	go func() {
		var tick <-chan time.Time
		if cr.interval > 0 {
			ticker := time.NewTicker(cr.interval)
			defer ticker.Stop()
			tick = ticker.C
		}

		for {
			select {
			case <-tick:
				cr.refreshLogged(ctx)
			case <-cr.trigger:
				cr.logger.Info("catalog refresh triggered")
				cr.refreshLogged(ctx)
			case <-cr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop ends the refresh loop.
func (cr *CatalogRefresher) Stop() {
	close(cr.stopCh)
}

// Refresh replaces the index with the stored catalog.
func (cr *CatalogRefresher) Refresh(ctx context.Context) error {
	sections, links, err := cr.source.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read catalog: %w", err)
	}

	cr.index.Replace(sections, links)

	s, l := cr.index.Counts()
	cr.logger.Info("catalog refreshed",
		logger.Int("sections", s),
		logger.Int("links", l))
	return nil
}

func (cr *CatalogRefresher) refreshLogged(ctx context.Context) {
	if err := cr.Refresh(ctx); err != nil {
		// Keep serving the previous copy
		cr.logger.Error("failed to refresh catalog", logger.Error(err))
	}
}
