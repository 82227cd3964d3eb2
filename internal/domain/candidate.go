package domain

import (
	"regexp"
	"strings"
)

const (
	DefaultIconName = "link"
	DefaultColor    = "#64748b"
	DefaultSection  = "Uncategorized"
)

// Tag is an optional pricing/status label. Unknown values are kept as is.
type Tag string

const (
	TagFree       Tag = "free"
	TagPaid       Tag = "paid"
	TagFreemium   Tag = "freemium"
	TagBeta       Tag = "beta"
	TagOpenSource Tag = "open-source"
)

// Known reports whether t is one of the labels the catalog renders specially.
func (t Tag) Known() bool {
	switch t {
	case TagFree, TagPaid, TagFreemium, TagBeta, TagOpenSource:
		return true
	}
	return false
}

// LinkCandidate is an extracted link awaiting operator review.
type LinkCandidate struct {
	Title            string `json:"title" validate:"required,max=200"`
	Subtitle         string `json:"subtitle" validate:"max=500"`
	URL              string `json:"url" validate:"required,max=2048"`
	IconName         string `json:"icon_name" validate:"max=64"`
	Color            string `json:"color" validate:"max=16"`
	SuggestedSection string `json:"suggested_section" validate:"max=120"`
	Tag              Tag    `json:"tag,omitempty" validate:"max=32"`
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// IsHexColor accepts #rgb and #rrggbb.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// WithDefaults trims every field and fills in icon, color and section
// defaults. The URL is left untouched; see NormalizeURL.
func (c LinkCandidate) WithDefaults() LinkCandidate {
	c.Title = strings.TrimSpace(c.Title)
	c.Subtitle = strings.TrimSpace(c.Subtitle)
	c.URL = strings.TrimSpace(c.URL)
	c.IconName = strings.TrimSpace(c.IconName)
	c.Color = strings.TrimSpace(c.Color)
	c.SuggestedSection = strings.TrimSpace(c.SuggestedSection)
	c.Tag = Tag(strings.ToLower(strings.TrimSpace(string(c.Tag))))

	if c.IconName == "" {
		c.IconName = DefaultIconName
	}
	if !IsHexColor(c.Color) {
		c.Color = DefaultColor
	}
	if c.SuggestedSection == "" {
		c.SuggestedSection = DefaultSection
	}
	return c
}

// ToLink builds the catalog entry for a candidate placed in sectionID.
func (c LinkCandidate) ToLink(id, sectionID string) *Link {
	return &Link{
		ID:        id,
		SectionID: sectionID,
		Title:     c.Title,
		Subtitle:  c.Subtitle,
		URL:       c.URL,
		IconName:  c.IconName,
		Color:     c.Color,
		Tag:       c.Tag,
		Sources:   []string{SourceImport},
	}
}
