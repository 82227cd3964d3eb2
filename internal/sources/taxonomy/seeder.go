package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/id"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

// Store is what seeding needs from the catalog.
type Store interface {
	EnsureSection(ctx context.Context, title string, visible bool, source string) (domain.Section, bool, error)
	UpdateSection(ctx context.Context, sectionID string, visible bool, source string) (*domain.Section, error)
	AddLink(ctx context.Context, scope domain.DedupScope, link *domain.Link) error
}

// Result counts what a seeding run changed.
type Result struct {
	SectionsCreated int
	LinksAdded      int
	LinksExisting   int
	LinksSkipped    int // invalid in the file
}

// Seeder applies the taxonomy file to the catalog. Running it again is a
// no-op apart from visibility changes made in the file.
type Seeder struct {
	loader *Loader
	mapper *Mapper
	store  Store
	scope  domain.DedupScope
	logger logger.Logger
}

// NewSeeder creates a seeder for filePath
func NewSeeder(filePath string, store Store, scope domain.DedupScope, log logger.Logger) *Seeder {
	return &Seeder{
		loader: NewLoader(filePath),
		mapper: NewMapper(),
		store:  store,
		scope:  scope,
		logger: log,
	}
}

// Seed loads the file and writes it.
func (s *Seeder) Seed(ctx context.Context) (Result, error) {
	file, err := s.loader.Load()
	if err != nil {
		return Result{}, err
	}
	seeds, skipped, err := s.mapper.Map(file)
	if err != nil {
		return Result{}, err
	}

	res, err := s.Apply(ctx, seeds)
	res.LinksSkipped += skipped
	if err != nil {
		return res, err
	}

	s.logger.Info("taxonomy seeded",
		logger.Int("sections", len(seeds)),
		logger.Int("sections_created", res.SectionsCreated),
		logger.Int("links_added", res.LinksAdded),
		logger.Int("links_existing", res.LinksExisting),
		logger.Int("links_skipped", res.LinksSkipped))
	return res, nil
}

// Apply writes seeds in order. Storage errors stop the run; duplicate
// links are expected on every restart and only counted.
func (s *Seeder) Apply(ctx context.Context, seeds []Seed) (Result, error) {
	var res Result

	for _, seed := range seeds {
		section, created, err := s.store.EnsureSection(ctx, seed.Title, seed.Visible, domain.SourceTaxonomy)
		if err != nil {
			return res, fmt.Errorf("failed to ensure section %q: %w", seed.Title, err)
		}
		if created {
			res.SectionsCreated++
		} else if _, err := s.store.UpdateSection(ctx, section.ID, seed.Visible, domain.SourceTaxonomy); err != nil {
			return res, fmt.Errorf("failed to update section %q: %w", seed.Title, err)
		}

		for _, c := range seed.Links {
			linkID, err := id.Link()
			if err != nil {
				return res, err
			}
			link := c.ToLink(linkID, section.ID)
			link.Sources = []string{domain.SourceTaxonomy}
			link.CreatedAt = time.Now().UTC()

			err = s.store.AddLink(ctx, s.scope, link)
			switch {
			case errors.Is(err, domain.ErrDuplicateLink):
				res.LinksExisting++
			case err != nil:
				return res, fmt.Errorf("failed to add seed link %s: %w", c.URL, err)
			default:
				res.LinksAdded++
			}
		}
	}

	return res, nil
}
