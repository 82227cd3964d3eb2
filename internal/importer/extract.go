package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

// Completer is the extraction service boundary: one system prompt and one
// user message in, the model's text out.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

const candidatesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["title", "url"],
    "properties": {
      "title":             {"type": "string"},
      "url":               {"type": "string"},
      "subtitle":          {"type": ["string", "null"]},
      "icon_name":         {"type": ["string", "null"]},
      "color":             {"type": ["string", "null"]},
      "suggested_section": {"type": ["string", "null"]},
      "tag":               {"type": ["string", "null"]}
    }
  }
}`

const extractionPrompt = `You extract links from text pasted by a site administrator.

Return ONLY a JSON array (no markdown, no commentary). Each element is an object:
{
  "title": string, short name of the tool or site (required),
  "subtitle": string or null, one short sentence describing it,
  "url": string, the absolute URL exactly as written in the text (required),
  "icon_name": string or null, a lucide icon name that fits (ex: "video", "code", "book"),
  "color": string or null, an accent color as #rrggbb,
  "suggested_section": string or null, a short category label (ex: "AI Tools", "Design"),
  "tag": string or null, one of "free", "paid", "freemium", "beta", "open-source" when the text says so
}

Rules:
- One element per distinct URL found in the text.
- Never invent URLs. Skip entries without a URL.
- Keep titles and descriptions in the language of the text.
- If no link is present, return [].`

var candidatesValidator = mustCompileSchema("candidates.json", candidatesSchema)

func mustCompileSchema(name, schema string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(schema)); err != nil {
		panic(fmt.Sprintf("load %s: %v", name, err))
	}
	s, err := compiler.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("compile %s: %v", name, err))
	}
	return s
}

// Extraction is a successful extract call.
type Extraction struct {
	Candidates []domain.LinkCandidate
	// Dropped counts records without a usable title or URL.
	Dropped int
	// Truncated is set when the input exceeded the character limit.
	Truncated bool
	Summary   string
}

// Extractor turns raw text into validated link candidates.
type Extractor struct {
	completer Completer
	maxChars  int
	log       logger.Logger
}

// NewExtractor builds an Extractor. maxChars <= 0 disables truncation.
func NewExtractor(c Completer, maxChars int, log logger.Logger) *Extractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &Extractor{completer: c, maxChars: maxChars, log: log}
}

// Extract issues one completion request and validates the answer.
//
// Errors: *EmptyInputError, *ExtractionTransportError,
// *ExtractionFormatError, *NoCandidatesError.
func (e *Extractor) Extract(ctx context.Context, rawText string) (*Extraction, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return nil, &EmptyInputError{}
	}

	text, truncated := truncateRunes(text, e.maxChars)
	if truncated {
		e.log.Warn("extraction input truncated", logger.Int("max_chars", e.maxChars))
	}

	out, err := e.completer.Complete(ctx, extractionPrompt, text)
	if err != nil {
		return nil, &ExtractionTransportError{Err: err}
	}

	raws, err := decodeCandidates(out)
	if err != nil {
		e.log.Warn("extraction output rejected", logger.Error(err), logger.Int("output_len", len(out)))
		return nil, err
	}

	candidates, dropped := normalizeAll(raws)
	if len(candidates) == 0 {
		return nil, &NoCandidatesError{Dropped: dropped}
	}

	e.log.Info("extraction done",
		logger.Int("candidates", len(candidates)),
		logger.Int("dropped", dropped),
		logger.Bool("truncated", truncated),
	)

	return &Extraction{
		Candidates: candidates,
		Dropped:    dropped,
		Truncated:  truncated,
		Summary:    extractionSummary(candidates, dropped, truncated),
	}, nil
}

// decodeCandidates parses model output into raw records. Anything that is
// not a JSON array of objects with string title and url is rejected whole.
func decodeCandidates(content string) ([]rawCandidate, error) {
	doc, err := parseStructuredJSON(content)
	if err != nil {
		return nil, &ExtractionFormatError{Reason: "not JSON", Err: err}
	}

	// Some models wrap the array: {"links": [...]}
	if obj, ok := doc.(map[string]any); ok {
		if inner, ok := obj["links"].([]any); ok {
			doc = inner
		}
	}

	if err := candidatesValidator.Validate(doc); err != nil {
		return nil, &ExtractionFormatError{Reason: "does not match the link schema", Err: err}
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return nil, &ExtractionFormatError{Reason: "re-encode", Err: err}
	}
	var raws []rawCandidate
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, &ExtractionFormatError{Reason: "decode records", Err: err}
	}
	return raws, nil
}

// parseStructuredJSON decodes model output, tolerating markdown code fences
// and surrounding prose.
func parseStructuredJSON(content string) (any, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty output")
	}

	candidates := []string{content}
	if stripped := stripCodeFences(content); stripped != "" && stripped != content {
		candidates = append(candidates, stripped)
	}
	if extracted := extractJSONCandidate(content); extracted != "" && extracted != content {
		candidates = append(candidates, extracted)
	}

	for _, candidate := range candidates {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
			return parsed, nil
		}
	}

	return nil, errors.New("no JSON value found")
}

func stripCodeFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return ""
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop first fence line.
	lines = lines[1:]
	// Drop trailing fence if present.
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// extractJSONCandidate returns the widest [...] or {...} span, whichever
// opens first.
func extractJSONCandidate(content string) string {
	trimmed := strings.TrimSpace(content)

	objectStart := strings.Index(trimmed, "{")
	arrayStart := strings.Index(trimmed, "[")

	start, closeChar := -1, ""
	switch {
	case arrayStart >= 0 && (objectStart < 0 || arrayStart < objectStart):
		start, closeChar = arrayStart, "]"
	case objectStart >= 0:
		start, closeChar = objectStart, "}"
	default:
		return ""
	}

	end := strings.LastIndex(trimmed, closeChar)
	if end < start {
		return ""
	}
	return strings.TrimSpace(trimmed[start : end+1])
}

func truncateRunes(s string, max int) (string, bool) {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s, false
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i], true
		}
		n++
	}
	return s, false
}

func extractionSummary(cands []domain.LinkCandidate, dropped int, truncated bool) string {
	labels := Labels(cands)

	var b strings.Builder
	fmt.Fprintf(&b, "Found %s in %s", plural(len(cands), "link", "links"), plural(len(labels), "category", "categories"))
	if dropped > 0 {
		fmt.Fprintf(&b, ", %d without a title or valid URL ignored", dropped)
	}
	b.WriteString(".")
	if truncated {
		b.WriteString(" The text was too long and only its beginning was read.")
	}
	return b.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return fmt.Sprintf("%d %s", n, many)
}
