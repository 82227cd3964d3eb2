package importer

import (
	"strings"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
)

// MatchQuality ranks how well a section title fits a suggested label.
type MatchQuality int

const (
	NoMatch MatchQuality = iota
	ContainsMatch
	ExactMatch
)

// Matcher compares a suggested label with an existing section title.
type Matcher func(label, title string) MatchQuality

// ContainmentMatcher compares case-insensitively with whitespace collapsed.
// Equal strings are an exact match; containment in either direction is a
// containment match, both directions ranking the same.
func ContainmentMatcher(label, title string) MatchQuality {
	l, t := domain.FoldTitle(label), domain.FoldTitle(title)
	if l == "" || t == "" {
		return NoMatch
	}
	switch {
	case l == t:
		return ExactMatch
	case strings.Contains(l, t), strings.Contains(t, l):
		return ContainsMatch
	}
	return NoMatch
}

// Reconciler seeds a SectionMapping from suggested labels.
type Reconciler struct {
	match Matcher
}

// NewReconciler uses ContainmentMatcher when m is nil.
func NewReconciler(m Matcher) *Reconciler {
	if m == nil {
		m = ContainmentMatcher
	}
	return &Reconciler{match: m}
}

// Reconcile maps every distinct label to the best existing section, or to
// a new section titled after the label. Exact matches beat containment;
// among equal matches the first section in the list wins. Pure.
func (r *Reconciler) Reconcile(candidates []domain.LinkCandidate, sections []domain.Section) domain.SectionMapping {
	mapping := make(domain.SectionMapping)
	for _, label := range Labels(candidates) {
		mapping[label] = r.Resolve(label, sections)
	}
	return mapping
}

// Resolve maps one label.
func (r *Reconciler) Resolve(label string, sections []domain.Section) domain.MappingTarget {
	best, bestQ := -1, NoMatch
	for i, s := range sections {
		q := r.match(label, s.Title)
		if q > bestQ {
			best, bestQ = i, q
			if q == ExactMatch {
				break
			}
		}
	}
	if best < 0 {
		return domain.NewSection(label)
	}
	return domain.ExistingSection(sections[best].ID)
}

// Labels returns the distinct suggested labels in first-seen order.
func Labels(candidates []domain.LinkCandidate) []string {
	seen := make(map[string]struct{}, len(candidates))
	labels := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.SuggestedSection]; ok {
			continue
		}
		seen[c.SuggestedSection] = struct{}{}
		labels = append(labels, c.SuggestedSection)
	}
	return labels
}
