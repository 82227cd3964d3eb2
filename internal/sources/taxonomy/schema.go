package taxonomy

// File is the taxonomy file: a YAML list of sections.
//
//	- title: AI Tools
//	  visible: true
//	  links:
//	    - title: Claude
//	      url: https://claude.ai
//	      tag: freemium
type File []SectionSpec

// SectionSpec describes one administrator-managed section.
type SectionSpec struct {
	Title   string     `yaml:"title"`
	Visible *bool      `yaml:"visible,omitempty"` // defaults to true
	Links   []LinkSpec `yaml:"links,omitempty"`
}

// LinkSpec is a seed link.
type LinkSpec struct {
	Title    string `yaml:"title"`
	Subtitle string `yaml:"subtitle,omitempty"`
	URL      string `yaml:"url"`
	Icon     string `yaml:"icon,omitempty"`
	Color    string `yaml:"color,omitempty"`
	Tag      string `yaml:"tag,omitempty"`
}
