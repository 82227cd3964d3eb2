package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
)

// Field names one editable candidate field.
type Field string

const (
	FieldTitle            Field = "title"
	FieldSubtitle         Field = "subtitle"
	FieldURL              Field = "url"
	FieldIconName         Field = "icon_name"
	FieldColor            Field = "color"
	FieldSuggestedSection Field = "suggested_section"
	FieldTag              Field = "tag"
)

// NoEditing is the editing index when no candidate is open for editing.
const NoEditing = -1

// Session is the review state of one import: candidates, selection, section
// mapping and the candidate currently open for editing.
//
// Session is not safe for concurrent use; the Controller serializes access.
type Session struct {
	id        string
	rawText   string
	createdAt time.Time

	candidates []domain.LinkCandidate
	selected   []bool // parallel to candidates
	mapping    domain.SectionMapping
	editing    int

	// sections is the catalog as read at extraction time, used to seed
	// mappings for labels introduced by edits.
	sections []domain.Section
	dropped  int
	summary  string
}

// NewSession starts a review with every candidate selected.
func NewSession(rawText string, ex *Extraction, mapping domain.SectionMapping, sections []domain.Section) *Session {
	s := &Session{
		id:         uuid.NewString(),
		rawText:    rawText,
		createdAt:  time.Now(),
		candidates: append([]domain.LinkCandidate(nil), ex.Candidates...),
		selected:   make([]bool, len(ex.Candidates)),
		mapping:    mapping.Clone(),
		editing:    NoEditing,
		sections:   append([]domain.Section(nil), sections...),
		dropped:    ex.Dropped,
		summary:    ex.Summary,
	}
	s.SelectAll()
	return s
}

func (s *Session) ID() string      { return s.id }
func (s *Session) RawText() string { return s.rawText }
func (s *Session) Len() int        { return len(s.candidates) }
func (s *Session) Editing() int    { return s.editing }
func (s *Session) Dropped() int    { return s.dropped }
func (s *Session) Summary() string { return s.summary }

// Sections is the catalog snapshot taken at extraction time.
func (s *Session) Sections() []domain.Section {
	return append([]domain.Section(nil), s.sections...)
}

func (s *Session) check(idx int) error {
	if idx < 0 || idx >= len(s.candidates) {
		return &IndexError{Index: idx, Len: len(s.candidates)}
	}
	return nil
}

// Candidate returns a copy of the candidate at idx.
func (s *Session) Candidate(idx int) (domain.LinkCandidate, error) {
	if err := s.check(idx); err != nil {
		return domain.LinkCandidate{}, err
	}
	return s.candidates[idx], nil
}

// Candidates returns a copy of the full list.
func (s *Session) Candidates() []domain.LinkCandidate {
	return append([]domain.LinkCandidate(nil), s.candidates...)
}

// ─────────────────────────────
// Selection
// ─────────────────────────────

func (s *Session) Select(idx int) error {
	if err := s.check(idx); err != nil {
		return err
	}
	s.selected[idx] = true
	return nil
}

func (s *Session) Deselect(idx int) error {
	if err := s.check(idx); err != nil {
		return err
	}
	s.selected[idx] = false
	return nil
}

func (s *Session) SelectAll() {
	for i := range s.selected {
		s.selected[i] = true
	}
}

func (s *Session) SelectNone() {
	for i := range s.selected {
		s.selected[i] = false
	}
}

func (s *Session) IsSelected(idx int) bool {
	return idx >= 0 && idx < len(s.selected) && s.selected[idx]
}

// SelectedIndices returns the selected positions in ascending order.
func (s *Session) SelectedIndices() []int {
	out := make([]int, 0, len(s.selected))
	for i, ok := range s.selected {
		if ok {
			out = append(out, i)
		}
	}
	return out
}

// ─────────────────────────────
// Edits
// ─────────────────────────────

// Edit sets one field of one candidate. Title and URL edits are validated
// and the URL is normalized; other fields get their defaults when cleared.
// Selection and mapping are untouched.
func (s *Session) Edit(idx int, field Field, value string) error {
	if err := s.check(idx); err != nil {
		return err
	}

	c := s.candidates[idx]
	switch field {
	case FieldTitle:
		c.Title = value
	case FieldSubtitle:
		c.Subtitle = value
	case FieldURL:
		c.URL = value
	case FieldIconName:
		c.IconName = value
	case FieldColor:
		v := strings.TrimSpace(value)
		if v != "" && !domain.IsHexColor(v) {
			return &InvalidEditError{Field: string(field), Reason: "must be a #rgb or #rrggbb color"}
		}
		c.Color = v
	case FieldSuggestedSection:
		c.SuggestedSection = value
	case FieldTag:
		c.Tag = domain.Tag(value)
	default:
		return &InvalidEditError{Field: string(field), Reason: "unknown field"}
	}

	c, err := NormalizeCandidate(c)
	if err != nil {
		return err
	}
	s.candidates[idx] = c
	return nil
}

// Add appends a candidate, selected, and returns its index.
func (s *Session) Add(c domain.LinkCandidate) (int, error) {
	c, err := NormalizeCandidate(c)
	if err != nil {
		return 0, err
	}
	s.candidates = append(s.candidates, c)
	s.selected = append(s.selected, true)
	return len(s.candidates) - 1, nil
}

// Remove deletes the candidate at idx. Later selected indices shift down by
// one and the editing index follows its candidate, or is cleared when it
// pointed at the removed one.
func (s *Session) Remove(idx int) error {
	if err := s.check(idx); err != nil {
		return err
	}

	s.candidates = append(s.candidates[:idx], s.candidates[idx+1:]...)
	s.selected = append(s.selected[:idx], s.selected[idx+1:]...)

	switch {
	case s.editing == idx:
		s.editing = NoEditing
	case s.editing > idx:
		s.editing--
	}
	return nil
}

func (s *Session) BeginEdit(idx int) error {
	if err := s.check(idx); err != nil {
		return err
	}
	s.editing = idx
	return nil
}

func (s *Session) EndEdit() {
	s.editing = NoEditing
}

// ─────────────────────────────
// Mapping
// ─────────────────────────────

// SetMapping overrides the target of one label present in the list.
// A create-new target without a title is titled after the label.
func (s *Session) SetMapping(label string, target domain.MappingTarget) error {
	if !s.hasLabel(label) {
		return &InvalidEditError{Field: "label", Reason: fmt.Sprintf("%q is not used by any candidate", label)}
	}

	if target.CreateNew {
		target.SectionID = ""
		target.Title = strings.TrimSpace(target.Title)
		if target.Title == "" {
			target.Title = label
		}
	} else {
		target.Title = ""
		if strings.TrimSpace(target.SectionID) == "" {
			return &InvalidEditError{Field: "section_id", Reason: "must not be empty"}
		}
	}

	s.mapping[label] = target
	return nil
}

// Mapping returns a copy of the mapping as edited so far.
func (s *Session) Mapping() domain.SectionMapping {
	return s.mapping.Clone()
}

// seedMissing maps labels that have no mapping yet (introduced by an edit
// or an added candidate). Existing entries are never re-reconciled.
func (s *Session) seedMissing(r *Reconciler) {
	for _, label := range Labels(s.candidates) {
		if _, ok := s.mapping[label]; ok {
			continue
		}
		s.mapping[label] = r.Resolve(label, s.sections)
	}
}

func (s *Session) hasLabel(label string) bool {
	for _, c := range s.candidates {
		if c.SuggestedSection == label {
			return true
		}
	}
	return false
}

// ─────────────────────────────
// Derived views
// ─────────────────────────────

// GroupItem is one candidate inside a group, with its list position.
type GroupItem struct {
	Index     int                  `json:"index"`
	Candidate domain.LinkCandidate `json:"candidate"`
	Selected  bool                 `json:"selected"`
}

// Group is the candidates sharing one suggested label.
type Group struct {
	Label  string               `json:"label"`
	Target domain.MappingTarget `json:"target"`
	Items  []GroupItem          `json:"items"`
}

// Groups groups candidates by label, labels in first-seen order and
// candidates in list order. Computed on every call.
func (s *Session) Groups() []Group {
	groups := make([]Group, 0)
	pos := make(map[string]int)
	for i, c := range s.candidates {
		g, ok := pos[c.SuggestedSection]
		if !ok {
			target, mapped := s.mapping[c.SuggestedSection]
			if !mapped {
				target = domain.NewSection(c.SuggestedSection)
			}
			groups = append(groups, Group{Label: c.SuggestedSection, Target: target})
			g = len(groups) - 1
			pos[c.SuggestedSection] = g
		}
		groups[g].Items = append(groups[g].Items, GroupItem{Index: i, Candidate: c, Selected: s.selected[i]})
	}
	return groups
}

// Selected returns copies of the selected candidates in list order.
func (s *Session) Selected() []domain.LinkCandidate {
	out := make([]domain.LinkCandidate, 0, len(s.candidates))
	for i, c := range s.candidates {
		if s.selected[i] {
			out = append(out, c)
		}
	}
	return out
}

// ResolvedMapping returns exactly one target per label among the selected
// candidates. Unmapped labels become new sections.
func (s *Session) ResolvedMapping() domain.SectionMapping {
	out := make(domain.SectionMapping)
	for _, label := range Labels(s.Selected()) {
		if t, ok := s.mapping[label]; ok {
			out[label] = t
			continue
		}
		out[label] = domain.NewSection(label)
	}
	return out
}

// ─────────────────────────────
// Persistence
// ─────────────────────────────

// SessionSnapshot is the serializable form of a Session.
type SessionSnapshot struct {
	ID         string                 `json:"id"`
	RawText    string                 `json:"raw_text"`
	CreatedAt  time.Time              `json:"created_at"`
	Candidates []domain.LinkCandidate `json:"candidates"`
	Selected   []int                  `json:"selected"`
	Mapping    domain.SectionMapping  `json:"mapping"`
	Editing    int                    `json:"editing"`
	Sections   []domain.Section       `json:"sections"`
	Dropped    int                    `json:"dropped"`
	Summary    string                 `json:"summary"`
}

// Snapshot captures the full review state.
func (s *Session) Snapshot() SessionSnapshot {
	return SessionSnapshot{
		ID:         s.id,
		RawText:    s.rawText,
		CreatedAt:  s.createdAt,
		Candidates: s.Candidates(),
		Selected:   s.SelectedIndices(),
		Mapping:    s.Mapping(),
		Editing:    s.editing,
		Sections:   s.Sections(),
		Dropped:    s.dropped,
		Summary:    s.summary,
	}
}

// RestoreSession rebuilds a Session from a snapshot, rejecting snapshots
// whose indices do not fit the candidate list.
func RestoreSession(snap SessionSnapshot) (*Session, error) {
	n := len(snap.Candidates)
	if n == 0 {
		return nil, fmt.Errorf("restore session %s: no candidates", snap.ID)
	}

	selected := make([]bool, n)
	for _, idx := range snap.Selected {
		if idx < 0 || idx >= n {
			return nil, fmt.Errorf("restore session %s: selected index %d out of range", snap.ID, idx)
		}
		selected[idx] = true
	}

	editing := snap.Editing
	if editing < NoEditing || editing >= n {
		editing = NoEditing
	}

	mapping := snap.Mapping.Clone()
	if mapping == nil {
		mapping = make(domain.SectionMapping)
	}

	id := snap.ID
	if id == "" {
		id = uuid.NewString()
	}

	return &Session{
		id:         id,
		rawText:    snap.RawText,
		createdAt:  snap.CreatedAt,
		candidates: append([]domain.LinkCandidate(nil), snap.Candidates...),
		selected:   selected,
		mapping:    mapping,
		editing:    editing,
		sections:   append([]domain.Section(nil), snap.Sections...),
		dropped:    snap.Dropped,
		summary:    snap.Summary,
	}, nil
}
