package taxonomy

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/importer"
)

// Seed is a section ready to be written, with its normalized links.
type Seed struct {
	Title   string
	Visible bool
	Links   []domain.LinkCandidate
}

// Mapper turns a taxonomy file into seeds.
type Mapper struct{}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{}
}

// Map validates the file. Sections without a title are an error; links that
// cannot be normalized are skipped and counted. Sections repeating an
// earlier title (case and spacing ignored) are merged into it.
func (m *Mapper) Map(file File) (seeds []Seed, skipped int, err error) {
	byTitle := make(map[string]int, len(file))

	for i, entry := range file {
		title := strings.Join(strings.Fields(entry.Title), " ")
		if title == "" {
			return nil, 0, fmt.Errorf("taxonomy section %d has no title", i+1)
		}

		visible := true
		if entry.Visible != nil {
			visible = *entry.Visible
		}

		pos, seen := byTitle[domain.FoldTitle(title)]
		if !seen {
			pos = len(seeds)
			byTitle[domain.FoldTitle(title)] = pos
			seeds = append(seeds, Seed{Title: title, Visible: visible})
		}

		for _, ls := range entry.Links {
			c, err := importer.NormalizeCandidate(domain.LinkCandidate{
				Title:            ls.Title,
				Subtitle:         ls.Subtitle,
				URL:              ls.URL,
				IconName:         ls.Icon,
				Color:            ls.Color,
				Tag:              domain.Tag(ls.Tag),
				SuggestedSection: title,
			})
			if err != nil {
				skipped++
				continue
			}
			seeds[pos].Links = append(seeds[pos].Links, c)
		}
	}

	return seeds, skipped, nil
}
