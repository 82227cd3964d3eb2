package domain

// ItemStatus is the outcome of one candidate in a commit.
type ItemStatus string

const (
	ItemImported  ItemStatus = "imported"
	ItemDuplicate ItemStatus = "duplicate"
	ItemFailed    ItemStatus = "failed"
)

// ItemResult records what happened to one selected candidate.
type ItemResult struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"`
	SectionID string     `json:"section_id,omitempty"`
	LinkID    string     `json:"link_id,omitempty"`
	Status    ItemStatus `json:"status"`
	Reason    string     `json:"reason,omitempty"`
}

// ImportResult is the immutable record of a finished commit.
type ImportResult struct {
	Imported        int          `json:"imported"`
	Skipped         int          `json:"skipped"`
	Failed          int          `json:"failed"`
	CreatedSections []Section    `json:"created_sections"`
	Items           []ItemResult `json:"items"`
	Summary         string       `json:"summary"`
}

// Created is the number of sections created by the commit.
func (r *ImportResult) Created() int {
	return len(r.CreatedSections)
}
