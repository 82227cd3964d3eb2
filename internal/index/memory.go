package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
)

// SectionView is a section with its links, as served to visitors.
type SectionView struct {
	domain.Section
	Links []domain.Link `json:"links"`
}

// MemoryIndex is the in-memory copy of the catalog that visitor reads are
// served from. It is replaced wholesale on every refresh.
type MemoryIndex struct {
	mu          sync.RWMutex
	sections    []domain.Section         // display order
	links       map[string][]domain.Link // section ID -> links in insertion order
	linkCount   int
	lastRefresh time.Time
}

// NewMemoryIndex creates an empty index
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		sections: []domain.Section{},
		links:    make(map[string][]domain.Link),
	}
}

// Replace swaps the whole catalog. Links of sections not in sections are
// dropped.
func (idx *MemoryIndex) Replace(sections []domain.Section, links map[string][]domain.Link) {
	secs := append([]domain.Section(nil), sections...)
	byID := make(map[string][]domain.Link, len(secs))
	count := 0
	for _, s := range secs {
		ls := append([]domain.Link(nil), links[s.ID]...)
		byID[s.ID] = ls
		count += len(ls)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.sections = secs
	idx.links = byID
	idx.linkCount = count
	idx.lastRefresh = time.Now()
}

// Catalog returns the visible sections with their links, in display order.
func (idx *MemoryIndex) Catalog() []SectionView {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	views := make([]SectionView, 0, len(idx.sections))
	for _, s := range idx.sections {
		if !s.Visible {
			continue
		}
		views = append(views, SectionView{
			Section: s,
			Links:   append([]domain.Link{}, idx.links[s.ID]...),
		})
	}
	return views
}

// Sections returns every section, hidden ones included.
func (idx *MemoryIndex) Sections() []domain.Section {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return append([]domain.Section{}, idx.sections...)
}

// LinksBySection returns the links of one section.
func (idx *MemoryIndex) LinksBySection(sectionID string) ([]domain.Link, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	ls, ok := idx.links[sectionID]
	if !ok {
		return nil, false
	}
	return append([]domain.Link{}, ls...), true
}

// Search ranks the links of visible sections against q, best first.
// limit <= 0 returns every match.
func (idx *MemoryIndex) Search(q string, limit int) []*domain.LinkMatch {
	idx.mu.RLock()
	candidates := make([]*domain.Link, 0, idx.linkCount)
	for _, s := range idx.sections {
		if !s.Visible {
			continue
		}
		for i := range idx.links[s.ID] {
			l := idx.links[s.ID][i]
			candidates = append(candidates, &l)
		}
	}
	idx.mu.RUnlock()

	matches := domain.RankLinks(q, candidates)
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Counts returns the number of sections and links held.
func (idx *MemoryIndex) Counts() (sections, links int) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return len(idx.sections), idx.linkCount
}

// LastRefresh returns when the index was last replaced.
func (idx *MemoryIndex) LastRefresh() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return idx.lastRefresh
}
