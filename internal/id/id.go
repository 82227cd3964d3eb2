package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for catalog identifiers.
const (
	PrefixSection = "sec"
	PrefixLink    = "lnk"
)

// Generate returns prefix-nanoid, ex: "sec-V1StGXR8_Z5jdHi6B-myT".
func Generate(prefix string) (string, error) {
	id, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + id, nil
}

// MustGenerate is like Generate but panics when the system has no entropy.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}

// Section returns a fresh section identifier.
func Section() (string, error) { return Generate(PrefixSection) }

// Link returns a fresh link identifier.
func Link() (string, error) { return Generate(PrefixLink) }
