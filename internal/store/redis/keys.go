package redis

const (
	// KeyPrefixSection is the prefix for section keys
	KeyPrefixSection = "linkdeck:section:"
	// KeyPrefixLink is the prefix for link keys
	KeyPrefixLink = "linkdeck:link:"
	// KeySectionOrder lists section IDs in display order
	KeySectionOrder = "linkdeck:sections:order"
	// KeySectionTitles maps folded titles to section IDs
	KeySectionTitles = "linkdeck:sections:titles"
	// KeyCatalogURLs maps dedup keys to link IDs across the whole catalog
	KeyCatalogURLs = "linkdeck:urls"
	// KeyImportSession holds the saved import review
	KeyImportSession = "linkdeck:import:session"
)

// SectionKey returns the Redis key for a section by ID
func SectionKey(id string) string {
	return KeyPrefixSection + id
}

// SectionLinksKey returns the key of the ordered link ID list of a section
func SectionLinksKey(sectionID string) string {
	return KeyPrefixSection + sectionID + ":links"
}

// SectionURLsKey returns the key of the dedup index of a section
func SectionURLsKey(sectionID string) string {
	return KeyPrefixSection + sectionID + ":urls"
}

// LinkKey returns the Redis key for a link by ID
func LinkKey(id string) string {
	return KeyPrefixLink + id
}
