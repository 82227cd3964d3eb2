package importer

import (
	"errors"
	"sort"
	"strings"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/validation"
)

var candidateValidator = validation.New()

// rawCandidate is one extracted record before validation. Optional fields
// may arrive as null.
type rawCandidate struct {
	Title            string  `json:"title"`
	Subtitle         *string `json:"subtitle"`
	URL              string  `json:"url"`
	IconName         *string `json:"icon_name"`
	Color            *string `json:"color"`
	SuggestedSection *string `json:"suggested_section"`
	Tag              *string `json:"tag"`
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r rawCandidate) candidate() domain.LinkCandidate {
	return domain.LinkCandidate{
		Title:            r.Title,
		Subtitle:         deref(r.Subtitle),
		URL:              r.URL,
		IconName:         deref(r.IconName),
		Color:            deref(r.Color),
		SuggestedSection: deref(r.SuggestedSection),
		Tag:              domain.Tag(deref(r.Tag)),
	}
}

// NormalizeCandidate trims, applies defaults and repairs the URL. It fails
// when the title is empty, the URL cannot be made absolute http(s) or a
// field is longer than LinkCandidate allows.
func NormalizeCandidate(c domain.LinkCandidate) (domain.LinkCandidate, error) {
	c = c.WithDefaults()

	if c.Title == "" {
		return c, &InvalidEditError{Field: "title", Reason: "must not be empty"}
	}

	u, err := domain.NormalizeURL(c.URL)
	if err != nil {
		return c, &InvalidEditError{Field: "url", Reason: strings.TrimPrefix(err.Error(), domain.ErrInvalidURL.Error()+": ")}
	}
	c.URL = u

	if err := candidateValidator.Validate(c); err != nil {
		return c, invalidField(err)
	}

	return c, nil
}

// invalidField reports the first failing field by name.
func invalidField(err error) *InvalidEditError {
	var fe *validation.FieldsError
	if !errors.As(err, &fe) || len(fe.Fields) == 0 {
		return &InvalidEditError{Field: "candidate", Reason: err.Error()}
	}
	names := make([]string, 0, len(fe.Fields))
	for name := range fe.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return &InvalidEditError{Field: names[0], Reason: fe.Fields[names[0]]}
}

// normalizeAll keeps the valid records in order and counts the others.
func normalizeAll(raws []rawCandidate) ([]domain.LinkCandidate, int) {
	out := make([]domain.LinkCandidate, 0, len(raws))
	dropped := 0
	for _, r := range raws {
		c, err := NormalizeCandidate(r.candidate())
		if err != nil {
			dropped++
			continue
		}
		out = append(out, c)
	}
	return out, dropped
}
