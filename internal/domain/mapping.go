package domain

// MappingTarget is where one suggested label goes at commit time: either an
// existing section or a new section created with Title.
type MappingTarget struct {
	SectionID string `json:"section_id,omitempty"`
	CreateNew bool   `json:"create_new"`
	Title     string `json:"title,omitempty"`
}

// ExistingSection targets a section that already exists.
func ExistingSection(id string) MappingTarget {
	return MappingTarget{SectionID: id}
}

// NewSection targets a section to be created at commit time.
func NewSection(title string) MappingTarget {
	return MappingTarget{CreateNew: true, Title: title}
}

// SectionMapping maps a suggested section label to its target.
type SectionMapping map[string]MappingTarget

// Clone returns an independent copy.
func (m SectionMapping) Clone() SectionMapping {
	out := make(SectionMapping, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
