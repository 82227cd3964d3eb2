package importer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
)

func newTestExecutor(cat Catalog, scope domain.DedupScope) *Executor {
	return NewExecutor(cat, ExecutorConfig{Scope: scope, Attempts: 3, RetryDelay: time.Millisecond}, nil)
}

func TestCommit_AwesomeToolIntoExistingSection(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s-tools", Title: "Tools", Visible: true})
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	sel := []domain.LinkCandidate{candidate("Awesome Tool", "https://example.com/tool", "Tools")}
	res, err := ex.Commit(context.Background(), sel, domain.SectionMapping{"Tools": domain.ExistingSection("s-tools")})
	require.NoError(t, err)

	assert.Equal(t, 0, res.Created())
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 0, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "Imported 1 link.", res.Summary)

	links := cat.Links()
	require.Len(t, links, 1)
	assert.Equal(t, "s-tools", links[0].SectionID)
	assert.Equal(t, "Awesome Tool", links[0].Title)
	assert.Equal(t, []string{domain.SourceImport}, links[0].Sources)
}

func TestCommit_EmptySelectionMakesNoStorageCall(t *testing.T) {
	cat := newFakeCatalog()
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(), nil, domain.SectionMapping{})

	var target *EmptySelectionError
	require.ErrorAs(t, err, &target)
	assert.Nil(t, res)
	assert.Zero(t, cat.Calls())
}

func TestCommit_CreatesEachNewSectionOnce(t *testing.T) {
	cat := newFakeCatalog()
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	sel := []domain.LinkCandidate{
		candidate("A", "https://a.io", "Video Tools"),
		candidate("B", "https://b.io", "Video Tools"),
		candidate("C", "https://c.io", "Video Tools"),
		// a second label pointing at the same new title
		candidate("D", "https://d.io", "video tools"),
	}
	mapping := domain.SectionMapping{
		"Video Tools": domain.NewSection("Video Tools"),
		"video tools": domain.NewSection("Video Tools"),
	}

	res, err := ex.Commit(context.Background(), sel, mapping)
	require.NoError(t, err)

	assert.Equal(t, 1, cat.SectionsTitled("Video Tools"))
	require.Len(t, res.CreatedSections, 1)
	assert.Equal(t, "Video Tools", res.CreatedSections[0].Title)
	assert.Equal(t, 4, res.Imported)
	for _, l := range cat.Links() {
		assert.Equal(t, res.CreatedSections[0].ID, l.SectionID)
	}
	assert.Equal(t, "Imported 4 links, created 1 section (Video Tools).", res.Summary)
}

func TestCommit_RecommitIsSkippedAsDuplicate(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s-tools", Title: "Tools"})
	ex := newTestExecutor(cat, domain.DedupScopeSection)
	sel := []domain.LinkCandidate{candidate("Awesome Tool", "https://example.com/tool", "Tools")}
	mapping := domain.SectionMapping{"Tools": domain.ExistingSection("s-tools")}

	first, err := ex.Commit(context.Background(), sel, mapping)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Imported)

	// same link written slightly differently
	sel[0].URL = "https://EXAMPLE.com/tool/"
	second, err := ex.Commit(context.Background(), sel, mapping)
	require.NoError(t, err)

	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, domain.ItemDuplicate, second.Items[0].Status)
	assert.Len(t, cat.Links(), 1)
}

func TestCommit_DedupScope(t *testing.T) {
	sections := []domain.Section{{ID: "s-a", Title: "A"}, {ID: "s-b", Title: "B"}}
	existing := &domain.Link{ID: "lnk-1", SectionID: "s-a", URL: "https://shared.io"}

	tests := []struct {
		scope        domain.DedupScope
		wantImported int
	}{
		{domain.DedupScopeSection, 1},
		{domain.DedupScopeCatalog, 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.scope), func(t *testing.T) {
			cat := newFakeCatalog(sections...)
			cat.links = append(cat.links, existing)
			ex := newTestExecutor(cat, tt.scope)

			res, err := ex.Commit(context.Background(),
				[]domain.LinkCandidate{candidate("Shared", "https://shared.io", "B")},
				domain.SectionMapping{"B": domain.ExistingSection("s-b")})
			require.NoError(t, err)
			assert.Equal(t, tt.wantImported, res.Imported)
			assert.Equal(t, 1-tt.wantImported, res.Skipped)
		})
	}
}

func TestCommit_DuplicateInsideOneBatch(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s", Title: "T"})
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(), []domain.LinkCandidate{
		candidate("One", "https://same.io", "T"),
		candidate("Two", "https://same.io/", "T"),
	}, domain.SectionMapping{"T": domain.ExistingSection("s")})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 1, res.Skipped)
}

func TestCommit_PerCandidateFailureIsIsolated(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s", Title: "T"})
	cat.addErr["https://broken.io"] = errStoreDown
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(), []domain.LinkCandidate{
		candidate("Before", "https://before.io", "T"),
		candidate("Broken", "https://broken.io", "T"),
		candidate("After", "https://after.io", "T"),
	}, domain.SectionMapping{"T": domain.ExistingSection("s")})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, domain.ItemImported, res.Items[0].Status)
	assert.Equal(t, domain.ItemFailed, res.Items[1].Status)
	assert.Contains(t, res.Items[1].Reason, "connection refused")
	assert.Equal(t, domain.ItemImported, res.Items[2].Status)
	assert.Len(t, cat.Links(), 2)
	assert.Equal(t, "Imported 2 links; 1 failed.", res.Summary)
}

func TestCommit_EveryWriteFailingIsTransportError(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s", Title: "T"})
	cat.addErr["https://one.io"] = errStoreDown
	cat.addErr["https://two.io"] = errStoreDown
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(), []domain.LinkCandidate{
		candidate("One", "https://one.io", "T"),
		candidate("Two", "https://two.io", "T"),
	}, domain.SectionMapping{"T": domain.ExistingSection("s")})

	var target *CommitTransportError
	require.ErrorAs(t, err, &target)
	assert.Equal(t, "write links", target.Op)
	assert.True(t, errors.Is(err, errStoreDown))
	assert.Nil(t, res)
}

func TestCommit_StorageAndCandidateFailuresStayPerItem(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s", Title: "T"})
	cat.addErr["https://one.io"] = errStoreDown
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(), []domain.LinkCandidate{
		candidate("One", "https://one.io", "T"),
		candidate("Gone", "https://gone.io", "Deleted"),
	}, domain.SectionMapping{
		"T":       domain.ExistingSection("s"),
		"Deleted": domain.ExistingSection("s-deleted"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Failed)
	assert.Zero(t, res.Imported)
}

// flakyCatalog fails the first AddLink calls, then delegates.
type flakyCatalog struct {
	*fakeCatalog
	failures int
}

func (f *flakyCatalog) AddLink(ctx context.Context, scope domain.DedupScope, link *domain.Link) error {
	if f.failures > 0 {
		f.failures--
		return errStoreDown
	}
	return f.fakeCatalog.AddLink(ctx, scope, link)
}

func TestCommit_RetriesTransientErrors(t *testing.T) {
	cat := &flakyCatalog{fakeCatalog: newFakeCatalog(domain.Section{ID: "s", Title: "T"}), failures: 2}
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(),
		[]domain.LinkCandidate{candidate("X", "https://x.io", "T")},
		domain.SectionMapping{"T": domain.ExistingSection("s")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
}

func TestCommit_UnknownSectionFailsOnlyItsCandidates(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s", Title: "T"})
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(), []domain.LinkCandidate{
		candidate("Gone", "https://gone.io", "Deleted"),
		candidate("Ok", "https://ok.io", "T"),
	}, domain.SectionMapping{
		"Deleted": domain.ExistingSection("s-deleted"),
		"T":       domain.ExistingSection("s"),
	})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, res.Imported)
	assert.Contains(t, res.Items[0].Reason, domain.ErrSectionNotFound.Error())
}

func TestCommit_StorageUnavailable(t *testing.T) {
	t.Run("listing sections", func(t *testing.T) {
		cat := newFakeCatalog()
		cat.listErr = errStoreDown
		ex := newTestExecutor(cat, domain.DedupScopeSection)

		res, err := ex.Commit(context.Background(),
			[]domain.LinkCandidate{candidate("X", "https://x.io", "T")},
			domain.SectionMapping{"T": domain.NewSection("T")})

		var target *CommitTransportError
		require.ErrorAs(t, err, &target)
		assert.True(t, errors.Is(err, errStoreDown))
		assert.True(t, IsRetryable(err))
		assert.Nil(t, res)
	})

	t.Run("creating a section", func(t *testing.T) {
		cat := newFakeCatalog()
		cat.createErr = errStoreDown
		ex := newTestExecutor(cat, domain.DedupScopeSection)

		res, err := ex.Commit(context.Background(),
			[]domain.LinkCandidate{candidate("X", "https://x.io", "T")},
			domain.SectionMapping{"T": domain.NewSection("T")})

		var target *CommitTransportError
		require.ErrorAs(t, err, &target)
		assert.Nil(t, res)
		assert.Empty(t, cat.Links())
	})
}

func TestCommit_ExistingTitleIsNotRecreated(t *testing.T) {
	cat := newFakeCatalog(domain.Section{ID: "s-video", Title: "Video Tools"})
	ex := newTestExecutor(cat, domain.DedupScopeSection)

	res, err := ex.Commit(context.Background(),
		[]domain.LinkCandidate{candidate("X", "https://x.io", "video tools")},
		domain.SectionMapping{"video tools": domain.NewSection("video tools")})
	require.NoError(t, err)

	assert.Empty(t, res.CreatedSections)
	assert.Equal(t, "s-video", cat.Links()[0].SectionID)
}
