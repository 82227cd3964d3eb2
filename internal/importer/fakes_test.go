package importer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
)

var errStoreDown = errors.New("connection refused")

type fakeCompleter struct {
	mu     sync.Mutex
	out    string
	err    error
	calls  int
	inputs []string
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.inputs = append(f.inputs, user)
	if f.err != nil {
		return "", f.err
	}
	return f.out, nil
}

func (f *fakeCompleter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeCatalog is an in-memory Catalog that counts every call.
type fakeCatalog struct {
	mu       sync.Mutex
	sections []domain.Section
	links    []*domain.Link
	calls    int
	nextID   int

	listErr   error
	createErr error
	// addErr fails AddLink for these URLs.
	addErr map[string]error
}

func newFakeCatalog(sections ...domain.Section) *fakeCatalog {
	return &fakeCatalog{sections: sections, addErr: map[string]error{}}
}

func (f *fakeCatalog) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeCatalog) ListSections(ctx context.Context) ([]domain.Section, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Section(nil), f.sections...), nil
}

func (f *fakeCatalog) CreateSection(ctx context.Context, title string) (domain.Section, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.createErr != nil {
		return domain.Section{}, false, f.createErr
	}
	for _, s := range f.sections {
		if domain.FoldTitle(s.Title) == domain.FoldTitle(title) {
			return s, false, nil
		}
	}
	f.nextID++
	s := domain.Section{ID: fmt.Sprintf("sec-%d", f.nextID), Title: title, Visible: true}
	f.sections = append(f.sections, s)
	return s, true, nil
}

func (f *fakeCatalog) HasLink(ctx context.Context, scope domain.DedupScope, sectionID, url string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.hasLocked(scope, sectionID, url), nil
}

func (f *fakeCatalog) hasLocked(scope domain.DedupScope, sectionID, url string) bool {
	key, _ := domain.DedupKey(url)
	for _, l := range f.links {
		if scope == domain.DedupScopeSection && l.SectionID != sectionID {
			continue
		}
		if k, _ := domain.DedupKey(l.URL); k == key {
			return true
		}
	}
	return false
}

func (f *fakeCatalog) AddLink(ctx context.Context, scope domain.DedupScope, link *domain.Link) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.addErr[link.URL]; err != nil {
		return err
	}
	if f.hasLocked(scope, link.SectionID, link.URL) {
		return domain.ErrDuplicateLink
	}
	cp := *link
	f.links = append(f.links, &cp)
	return nil
}

func (f *fakeCatalog) Links() []*domain.Link {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Link(nil), f.links...)
}

func (f *fakeCatalog) SectionsTitled(title string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.sections {
		if s.Title == title {
			n++
		}
	}
	return n
}

type memSessionStore struct {
	mu      sync.Mutex
	snap    *SessionSnapshot
	saves   int
	deletes int
	err     error
}

func (m *memSessionStore) SaveSession(ctx context.Context, snap SessionSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saves++
	m.snap = &snap
	return nil
}

func (m *memSessionStore) LoadSession(ctx context.Context) (*SessionSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snap, m.err
}

func (m *memSessionStore) DeleteSession(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	m.snap = nil
	return m.err
}

func candidate(title, url, label string) domain.LinkCandidate {
	return domain.LinkCandidate{Title: title, URL: url, SuggestedSection: label}.WithDefaults()
}
