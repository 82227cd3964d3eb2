package taxonomy

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Loader reads a taxonomy file from disk.
type Loader struct {
	filePath string
}

// NewLoader creates a new taxonomy loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads and parses the file. Unknown keys are rejected so a typo in
// "visible" does not silently publish a section.
func (l *Loader) Load() (File, error) {
	f, err := os.Open(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy file: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return File{}, nil
		}
		return nil, fmt.Errorf("failed to parse taxonomy yaml: %w", err)
	}

	return file, nil
}
