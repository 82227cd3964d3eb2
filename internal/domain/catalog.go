package domain

import (
	"errors"
	"strings"
	"time"
)

// SourceImport and SourceTaxonomy tag where a catalog entry came from.
const (
	SourceImport   = "import"
	SourceTaxonomy = "taxonomy"
)

var (
	ErrDuplicateLink   = errors.New("link already exists")
	ErrSectionNotFound = errors.New("section not found")
)

// DedupScope decides where a URL must be unique.
type DedupScope string

const (
	DedupScopeSection DedupScope = "section"
	DedupScopeCatalog DedupScope = "catalog"
)

// Section is a persistent grouping of links.
//
// Sections are created ahead of time by an administrator (taxonomy file)
// or on the fly by an import commit. The title is unique once normalized.
type Section struct {
	// ─────────────────────────────
	// Identity (immutable)
	// ─────────────────────────────

	// ID is the stable identifier, ex: sec-V1StGXR8_Z5jdHi6B
	ID string `json:"id"`

	// ─────────────────────────────
	// Display
	// ─────────────────────────────

	// Title is the display title, ex: "AI Tools"
	Title string `json:"title"`

	// Visible hides the section from visitors when false.
	// Hidden sections still receive imported links.
	Visible bool `json:"visible"`

	// ─────────────────────────────
	// Provenance & metadata
	// ─────────────────────────────

	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link is a committed catalog entry.
type Link struct {
	ID        string `json:"id"`
	SectionID string `json:"section_id"`

	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	URL      string `json:"url"`
	IconName string `json:"icon_name"`
	Color    string `json:"color"`
	Tag      Tag    `json:"tag,omitempty"`

	Sources   []string  `json:"sources,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FoldTitle is the comparison form of a section title: lower-cased with
// whitespace collapsed. Two titles with the same fold are the same section.
func FoldTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
