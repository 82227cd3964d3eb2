package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/id"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

// Catalog is the storage boundary of the pipeline. Implementations must be
// safe against concurrent writers: CreateSection is idempotent by title and
// AddLink refuses a URL already present in scope with domain.ErrDuplicateLink.
type Catalog interface {
	ListSections(ctx context.Context) ([]domain.Section, error)
	// CreateSection returns the section titled title, creating it when
	// missing. created is false when it already existed.
	CreateSection(ctx context.Context, title string) (section domain.Section, created bool, err error)
	HasLink(ctx context.Context, scope domain.DedupScope, sectionID, url string) (bool, error)
	AddLink(ctx context.Context, scope domain.DedupScope, link *domain.Link) error
}

// ExecutorConfig tunes per-item persistence.
type ExecutorConfig struct {
	Scope      domain.DedupScope
	Attempts   uint          // tries per storage call, >= 1
	RetryDelay time.Duration // first backoff delay
}

// Executor commits approved candidates into the catalog.
type Executor struct {
	catalog Catalog
	cfg     ExecutorConfig
	log     logger.Logger
}

func NewExecutor(c Catalog, cfg ExecutorConfig, log logger.Logger) *Executor {
	if cfg.Scope == "" {
		cfg.Scope = domain.DedupScopeSection
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 1
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Executor{catalog: c, cfg: cfg, log: log}
}

// resolved is where one label lands, or why it cannot land anywhere.
type resolved struct {
	sectionID string
	err       error
}

// Commit persists selected under mapping.
//
// Sections are created once per distinct title, in label order, before any
// link is written. Each candidate is then deduplicated and written on its
// own; its failure is reported in the result and does not stop the batch.
// Errors: *EmptySelectionError before any storage call,
// *CommitTransportError when sections cannot be read or created, or when
// every selected link failed on storage so nothing landed.
func (e *Executor) Commit(ctx context.Context, selected []domain.LinkCandidate, mapping domain.SectionMapping) (*domain.ImportResult, error) {
	if len(selected) == 0 {
		return nil, &EmptySelectionError{}
	}

	sections, err := e.catalog.ListSections(ctx)
	if err != nil {
		return nil, &CommitTransportError{Op: "list sections", Err: err}
	}

	result := &domain.ImportResult{
		CreatedSections: []domain.Section{},
		Items:           make([]domain.ItemResult, 0, len(selected)),
	}

	targets, err := e.resolveSections(ctx, selected, mapping, sections, result)
	if err != nil {
		return nil, err
	}

	var (
		storageFailures int
		lastStorageErr  error
	)
	for i, c := range selected {
		item, storageErr := e.commitOne(ctx, i, c, targets[c.SuggestedSection])
		if storageErr != nil {
			storageFailures++
			lastStorageErr = storageErr
		}
		switch item.Status {
		case domain.ItemImported:
			result.Imported++
		case domain.ItemDuplicate:
			result.Skipped++
		case domain.ItemFailed:
			result.Failed++
		}
		result.Items = append(result.Items, item)
	}

	if storageFailures == len(selected) {
		e.log.Error("import commit wrote nothing", logger.Int("failed", storageFailures), logger.Error(lastStorageErr))
		return nil, &CommitTransportError{Op: "write links", Err: lastStorageErr}
	}

	result.Summary = commitSummary(result)

	e.log.Info("import committed",
		logger.Int("imported", result.Imported),
		logger.Int("skipped", result.Skipped),
		logger.Int("failed", result.Failed),
		logger.Int("created_sections", result.Created()),
	)

	return result, nil
}

func (e *Executor) resolveSections(
	ctx context.Context,
	selected []domain.LinkCandidate,
	mapping domain.SectionMapping,
	sections []domain.Section,
	result *domain.ImportResult,
) (map[string]resolved, error) {
	known := make(map[string]struct{}, len(sections))
	for _, s := range sections {
		known[s.ID] = struct{}{}
	}

	targets := make(map[string]resolved)
	byTitle := make(map[string]string) // folded title -> section ID, this commit only

	for _, label := range Labels(selected) {
		target, ok := mapping[label]
		if !ok {
			target = domain.NewSection(label)
		}

		if !target.CreateNew {
			if _, exists := known[target.SectionID]; !exists {
				targets[label] = resolved{err: fmt.Errorf("%w: %s", domain.ErrSectionNotFound, target.SectionID)}
				continue
			}
			targets[label] = resolved{sectionID: target.SectionID}
			continue
		}

		title := strings.TrimSpace(target.Title)
		if title == "" {
			title = label
		}
		key := domain.FoldTitle(title)
		if sid, done := byTitle[key]; done {
			targets[label] = resolved{sectionID: sid}
			continue
		}

		var (
			section domain.Section
			created bool
		)
		err := e.retry(ctx, func() error {
			var err error
			section, created, err = e.catalog.CreateSection(ctx, title)
			return err
		})
		if err != nil {
			e.log.Error("section creation failed", logger.String("title", title), logger.Error(err))
			return nil, &CommitTransportError{Op: "create section " + title, Err: err}
		}

		byTitle[key] = section.ID
		targets[label] = resolved{sectionID: section.ID}
		if created {
			result.CreatedSections = append(result.CreatedSections, section)
			e.log.Info("section created", logger.String("section_id", section.ID), logger.String("title", section.Title))
		}
	}

	return targets, nil
}

// commitOne writes one candidate. storageErr is set when the item failed
// because the catalog could not be written, as opposed to a bad candidate
// or an unknown section.
func (e *Executor) commitOne(ctx context.Context, idx int, c domain.LinkCandidate, target resolved) (item domain.ItemResult, storageErr error) {
	item = domain.ItemResult{Title: c.Title, URL: c.URL, SectionID: target.sectionID}

	fail := func(err error) domain.ItemResult {
		perr := &PerCandidateImportError{Index: idx, URL: c.URL, Err: err}
		e.log.Warn("candidate not imported", logger.Error(perr))
		item.Status = domain.ItemFailed
		item.Reason = err.Error()
		return item
	}

	if target.err != nil {
		return fail(target.err), nil
	}

	c, err := NormalizeCandidate(c)
	if err != nil {
		return fail(err), nil
	}
	item.URL = c.URL

	linkID, err := id.Link()
	if err != nil {
		return fail(err), nil
	}
	link := c.ToLink(linkID, target.sectionID)
	link.CreatedAt = time.Now().UTC()

	err = e.retry(ctx, func() error {
		dup, err := e.catalog.HasLink(ctx, e.cfg.Scope, target.sectionID, link.URL)
		if err != nil {
			return err
		}
		if dup {
			return domain.ErrDuplicateLink
		}
		return e.catalog.AddLink(ctx, e.cfg.Scope, link)
	})

	switch {
	case errors.Is(err, domain.ErrDuplicateLink):
		item.Status = domain.ItemDuplicate
		return item, nil
	case errors.Is(err, domain.ErrSectionNotFound):
		return fail(err), nil
	case err != nil:
		return fail(err), err
	}

	item.Status = domain.ItemImported
	item.LinkID = link.ID
	return item, nil
}

// retry repeats fn on transient errors. Duplicates and missing sections are
// final answers, not failures.
func (e *Executor) retry(ctx context.Context, fn func() error) error {
	return retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(e.cfg.Attempts),
		retry.Delay(e.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, domain.ErrDuplicateLink) && !errors.Is(err, domain.ErrSectionNotFound)
		}),
	)
}

func commitSummary(r *domain.ImportResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Imported %s", plural(r.Imported, "link", "links"))
	if r.Skipped > 0 {
		fmt.Fprintf(&b, ", skipped %s", plural(r.Skipped, "duplicate", "duplicates"))
	}
	if n := r.Created(); n > 0 {
		titles := make([]string, 0, n)
		for _, s := range r.CreatedSections {
			titles = append(titles, s.Title)
		}
		fmt.Fprintf(&b, ", created %s (%s)", plural(n, "section", "sections"), strings.Join(titles, ", "))
	}
	if r.Failed > 0 {
		fmt.Fprintf(&b, "; %d failed", r.Failed)
	}
	b.WriteString(".")
	return b.String()
}
