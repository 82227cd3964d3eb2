package domain

import "testing"

func TestLinkCandidate_WithDefaults(t *testing.T) {
	c := LinkCandidate{
		Title:    "  Awesome Tool ",
		URL:      " https://example.com/tool ",
		Color:    "blue",
		Tag:      " Beta ",
		IconName: "",
	}.WithDefaults()

	if c.Title != "Awesome Tool" {
		t.Errorf("Title = %q", c.Title)
	}
	if c.URL != "https://example.com/tool" {
		t.Errorf("URL = %q", c.URL)
	}
	if c.IconName != DefaultIconName {
		t.Errorf("IconName = %q, want %q", c.IconName, DefaultIconName)
	}
	if c.Color != DefaultColor {
		t.Errorf("Color = %q, want %q", c.Color, DefaultColor)
	}
	if c.SuggestedSection != DefaultSection {
		t.Errorf("SuggestedSection = %q, want %q", c.SuggestedSection, DefaultSection)
	}
	if c.Tag != TagBeta {
		t.Errorf("Tag = %q, want %q", c.Tag, TagBeta)
	}
}

func TestLinkCandidate_WithDefaultsKeepsValidValues(t *testing.T) {
	c := LinkCandidate{
		Title:            "Figma",
		URL:              "https://figma.com",
		IconName:         "pen-tool",
		Color:            "#F24E1E",
		SuggestedSection: "Design",
		Tag:              "lifetime-deal",
	}.WithDefaults()

	if c.IconName != "pen-tool" || c.Color != "#F24E1E" || c.SuggestedSection != "Design" {
		t.Errorf("valid values were replaced: %+v", c)
	}
	if c.Tag != "lifetime-deal" || c.Tag.Known() {
		t.Errorf("unknown tag should pass through as opaque, got %q", c.Tag)
	}
}

func TestIsHexColor(t *testing.T) {
	for _, ok := range []string{"#fff", "#FFFFFF", "#64748b"} {
		if !IsHexColor(ok) {
			t.Errorf("IsHexColor(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "fff", "#ffff", "#ggg", "red"} {
		if IsHexColor(bad) {
			t.Errorf("IsHexColor(%q) = true", bad)
		}
	}
}
