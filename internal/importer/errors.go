package importer

import (
	"errors"
	"fmt"
)

// EmptyInputError: nothing to extract from.
type EmptyInputError struct{}

func (e *EmptyInputError) Error() string   { return "import: no text supplied" }
func (e *EmptyInputError) Retryable() bool { return false }

// ExtractionTransportError: the extraction service could not be reached or
// failed to answer. Re-submitting the same text may succeed.
type ExtractionTransportError struct {
	Err error
}

func (e *ExtractionTransportError) Error() string {
	return fmt.Sprintf("import: extraction service unavailable: %v", e.Err)
}
func (e *ExtractionTransportError) Unwrap() error   { return e.Err }
func (e *ExtractionTransportError) Retryable() bool { return true }

// ExtractionFormatError: the service answered but the output is not a
// list of link records.
type ExtractionFormatError struct {
	Reason string
	Err    error
}

func (e *ExtractionFormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("import: unusable extraction output: %s: %v", e.Reason, e.Err)
	}
	return "import: unusable extraction output: " + e.Reason
}
func (e *ExtractionFormatError) Unwrap() error   { return e.Err }
func (e *ExtractionFormatError) Retryable() bool { return false }

// NoCandidatesError: extraction worked but produced no usable link.
type NoCandidatesError struct {
	// Dropped counts records discarded for a missing title or invalid URL.
	Dropped int
}

func (e *NoCandidatesError) Error() string {
	if e.Dropped > 0 {
		return fmt.Sprintf("import: no valid links found (%d dropped)", e.Dropped)
	}
	return "import: no links found"
}
func (e *NoCandidatesError) Retryable() bool { return false }

// EmptySelectionError: commit requested with nothing selected.
type EmptySelectionError struct{}

func (e *EmptySelectionError) Error() string   { return "import: no candidate selected" }
func (e *EmptySelectionError) Retryable() bool { return false }

// CommitTransportError: the catalog store is unavailable. Nothing was
// recorded as an ImportResult and the review state is intact.
type CommitTransportError struct {
	Op  string
	Err error
}

func (e *CommitTransportError) Error() string {
	return fmt.Sprintf("import: catalog unavailable during %s: %v", e.Op, e.Err)
}
func (e *CommitTransportError) Unwrap() error   { return e.Err }
func (e *CommitTransportError) Retryable() bool { return true }

// PerCandidateImportError is one failed item inside a commit. It is
// reported in ImportResult.Items and never aborts the batch.
type PerCandidateImportError struct {
	Index int
	URL   string
	Err   error
}

func (e *PerCandidateImportError) Error() string {
	return fmt.Sprintf("import: candidate %d (%s): %v", e.Index, e.URL, e.Err)
}
func (e *PerCandidateImportError) Unwrap() error   { return e.Err }
func (e *PerCandidateImportError) Retryable() bool { return true }

// CatalogUnavailableError: the section list could not be read before
// extraction, so no mapping can be proposed.
type CatalogUnavailableError struct {
	Err error
}

func (e *CatalogUnavailableError) Error() string {
	return fmt.Sprintf("import: cannot read sections: %v", e.Err)
}
func (e *CatalogUnavailableError) Unwrap() error   { return e.Err }
func (e *CatalogUnavailableError) Retryable() bool { return true }

// InvalidTransitionError: the action is not allowed in the current state.
type InvalidTransitionError struct {
	State  State
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("import: cannot %s while %s", e.Action, e.State)
}
func (e *InvalidTransitionError) Retryable() bool { return false }

// IndexError: a candidate index outside the current list.
type IndexError struct {
	Index int
	Len   int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("import: candidate index %d out of range [0,%d)", e.Index, e.Len)
}
func (e *IndexError) Retryable() bool { return false }

// InvalidEditError: an edit or added candidate that would break the
// candidate invariants (empty title, unusable URL, unknown field).
type InvalidEditError struct {
	Field  string
	Reason string
}

func (e *InvalidEditError) Error() string {
	return fmt.Sprintf("import: invalid %s: %s", e.Field, e.Reason)
}
func (e *InvalidEditError) Retryable() bool { return false }

// UnsupportedUploadError: an uploaded file that is not text.
type UnsupportedUploadError struct {
	Name   string
	Reason string
}

func (e *UnsupportedUploadError) Error() string {
	return fmt.Sprintf("import: cannot read %q: %s", e.Name, e.Reason)
}
func (e *UnsupportedUploadError) Retryable() bool { return false }

// IsRetryable reports whether repeating the same action may succeed.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Kind is a stable machine name for an import error, "" for foreign errors.
func Kind(err error) string {
	var (
		emptyInput *EmptyInputError
		transport  *ExtractionTransportError
		format     *ExtractionFormatError
		noCands    *NoCandidatesError
		emptySel   *EmptySelectionError
		commit     *CommitTransportError
		perCand    *PerCandidateImportError
		catalog    *CatalogUnavailableError
		transition *InvalidTransitionError
		index      *IndexError
		edit       *InvalidEditError
		upload     *UnsupportedUploadError
	)
	switch {
	case errors.As(err, &emptyInput):
		return "empty_input"
	case errors.As(err, &transport):
		return "extraction_transport"
	case errors.As(err, &format):
		return "extraction_format"
	case errors.As(err, &noCands):
		return "no_candidates"
	case errors.As(err, &emptySel):
		return "empty_selection"
	case errors.As(err, &commit):
		return "commit_transport"
	case errors.As(err, &perCand):
		return "candidate_failed"
	case errors.As(err, &catalog):
		return "catalog_unavailable"
	case errors.As(err, &transition):
		return "invalid_transition"
	case errors.As(err, &index):
		return "invalid_index"
	case errors.As(err, &edit):
		return "invalid_edit"
	case errors.As(err, &upload):
		return "unsupported_upload"
	}
	return ""
}

// OperatorMessage turns an error into guidance for the operator. It never
// exposes raw model output or provider names.
func OperatorMessage(err error) string {
	if err == nil {
		return ""
	}

	var (
		noCands    *NoCandidatesError
		transition *InvalidTransitionError
		index      *IndexError
		edit       *InvalidEditError
		upload     *UnsupportedUploadError
	)

	switch Kind(err) {
	case "empty_input":
		return "Paste some text or upload a file before extracting."
	case "extraction_transport":
		return "The extraction service is unavailable right now. Your text is kept; try again in a moment."
	case "extraction_format":
		return "The extraction service returned something that is not a list of links. Try again, or trim the text to the part that contains the links."
	case "no_candidates":
		errors.As(err, &noCands)
		if noCands.Dropped > 0 {
			return fmt.Sprintf("No usable links were found (%d entries had no title or no valid URL). Paste text containing full URLs.", noCands.Dropped)
		}
		return "No links were found. Paste text containing URLs."
	case "empty_selection":
		return "Select at least one link to import."
	case "commit_transport", "catalog_unavailable":
		return "The catalog is unavailable right now. Nothing was lost; try again in a moment."
	case "invalid_transition":
		errors.As(err, &transition)
		return fmt.Sprintf("That action is not available while the import is %s.", transition.State)
	case "invalid_index":
		errors.As(err, &index)
		return fmt.Sprintf("Candidate %d no longer exists; the list has %d entries.", index.Index, index.Len)
	case "invalid_edit":
		errors.As(err, &edit)
		return fmt.Sprintf("Invalid %s: %s.", edit.Field, edit.Reason)
	case "unsupported_upload":
		errors.As(err, &upload)
		return fmt.Sprintf("File %q cannot be used: %s.", upload.Name, upload.Reason)
	case "candidate_failed":
		return "This link could not be saved."
	}
	return "Unexpected error."
}
