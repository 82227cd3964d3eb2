package handlers

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/linkdeck/internal/domain"
	"github.com/MrSnakeDoc/linkdeck/internal/httpserver/deps"
	"github.com/MrSnakeDoc/linkdeck/internal/importer"
	"github.com/MrSnakeDoc/linkdeck/internal/logger"
)

// maxJSONBody caps every JSON admin body except extraction.
const maxJSONBody = 64 << 10

// maxUploadFiles caps the number of files in one extraction request.
const maxUploadFiles = 8

// ImportView returns the current review.
func ImportView(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

type extractRequest struct {
	Text string `json:"text"`
}

// ImportExtract submits pasted text, and optionally files, for extraction.
// It accepts JSON {"text": ...} or multipart with a "text" field and
// "files" parts.
func ImportExtract(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text, uploads, err := readSubmission(w, r, d.MaxUploadBytes)
		if err != nil {
			writeError(w, d.Importer, err)
			return
		}

		raw, err := importer.ComposeSubmission(text, uploads)
		if err != nil {
			writeError(w, d.Importer, err)
			return
		}

		d.Logger.Info("import extraction requested",
			logger.Int("chars", len(raw)),
			logger.Int("files", len(uploads)))

		if err := d.Importer.Submit(r.Context(), raw); err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

func readSubmission(w http.ResponseWriter, r *http.Request, maxFile int64) (string, []importer.Upload, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req extractRequest
		if err := decodeJSON(w, r, maxFile+maxJSONBody, &req); err != nil {
			return "", nil, err
		}
		return req.Text, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFile*maxUploadFiles+maxJSONBody)
	if err := r.ParseMultipartForm(maxFile); err != nil {
		return "", nil, &badRequest{msg: "invalid multipart body: " + err.Error()}
	}

	files := r.MultipartForm.File["files"]
	if len(files) > maxUploadFiles {
		return "", nil, &badRequest{msg: fmt.Sprintf("at most %d files per request", maxUploadFiles)}
	}

	uploads := make([]importer.Upload, 0, len(files))
	for _, fh := range files {
		if fh.Size > maxFile {
			return "", nil, &importer.UnsupportedUploadError{
				Name:   fh.Filename,
				Reason: fmt.Sprintf("larger than %d bytes", maxFile),
			}
		}
		f, err := fh.Open()
		if err != nil {
			return "", nil, &badRequest{msg: "cannot open upload " + fh.Filename}
		}
		data, err := io.ReadAll(io.LimitReader(f, maxFile+1))
		_ = f.Close()
		if err != nil {
			return "", nil, &badRequest{msg: "cannot read upload " + fh.Filename}
		}
		uploads = append(uploads, importer.Upload{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}

	return r.FormValue("text"), uploads, nil
}

type selectionRequest struct {
	Action string `json:"action" validate:"required,oneof=select deselect all none"`
	Index  *int   `json:"index"`
}

// ImportSelection toggles one candidate, or all of them.
func ImportSelection(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionRequest
		if err := decode(w, r, d, &req); err != nil {
			writeError(w, d.Importer, err)
			return
		}

		ctx := r.Context()
		var err error
		switch req.Action {
		case "all":
			err = d.Importer.SelectAll(ctx)
		case "none":
			err = d.Importer.SelectNone(ctx)
		default:
			if req.Index == nil {
				err = &badRequest{msg: "index is required for " + req.Action}
				break
			}
			if req.Action == "select" {
				err = d.Importer.Select(ctx, *req.Index)
			} else {
				err = d.Importer.Deselect(ctx, *req.Index)
			}
		}
		if err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

type addCandidateResponse struct {
	Index int           `json:"index"`
	View  importer.View `json:"view"`
}

// ImportAddCandidate appends a manually entered link.
func ImportAddCandidate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req domain.LinkCandidate
		if err := decode(w, r, d, &req); err != nil {
			writeError(w, d.Importer, err)
			return
		}

		idx, err := d.Importer.AddCandidate(r.Context(), req)
		if err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusCreated, addCandidateResponse{Index: idx, View: d.Importer.View()})
	}
}

type editRequest struct {
	Field string  `json:"field" validate:"required"`
	Value *string `json:"value" validate:"required"`
}

// ImportEditCandidate changes one field of one candidate.
func ImportEditCandidate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := indexParam(r)
		if err != nil {
			writeError(w, d.Importer, err)
			return
		}
		var req editRequest
		if err := decode(w, r, d, &req); err != nil {
			writeError(w, d.Importer, err)
			return
		}

		if err := d.Importer.Edit(r.Context(), idx, importer.Field(req.Field), *req.Value); err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

// ImportRemoveCandidate deletes one candidate from the review.
func ImportRemoveCandidate(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := indexParam(r)
		if err != nil {
			writeError(w, d.Importer, err)
			return
		}
		if err := d.Importer.Remove(r.Context(), idx); err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

type editingRequest struct {
	Index *int `json:"index" validate:"required"`
}

// ImportEditing opens a candidate for editing; index -1 closes editing.
func ImportEditing(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editingRequest
		if err := decode(w, r, d, &req); err != nil {
			writeError(w, d.Importer, err)
			return
		}
		if err := d.Importer.SetEditing(r.Context(), *req.Index); err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

type mappingRequest struct {
	Label     string `json:"label" validate:"required"`
	SectionID string `json:"section_id" validate:"required_without=CreateNew"`
	CreateNew bool   `json:"create_new"`
	Title     string `json:"title" validate:"max=120"`
}

// ImportMapping points a suggested label at an existing or new section.
func ImportMapping(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mappingRequest
		if err := decode(w, r, d, &req); err != nil {
			writeError(w, d.Importer, err)
			return
		}

		target := domain.ExistingSection(req.SectionID)
		if req.CreateNew {
			target = domain.NewSection(req.Title)
		}
		if err := d.Importer.SetMapping(r.Context(), req.Label, target); err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

// ImportCommit writes the selection to the catalog.
func ImportCommit(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := d.Importer.Commit(r.Context())
		if err != nil {
			writeError(w, d.Importer, err)
			return
		}
		d.Logger.Info("import committed via endpoint", logger.String("summary", res.Summary))
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

// ImportReset discards the review and returns to an empty input.
func ImportReset(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Importer.Reset(r.Context()); err != nil {
			writeError(w, d.Importer, err)
			return
		}
		writeJSON(w, http.StatusOK, d.Importer.View())
	}
}

// decode reads and validates a small JSON body.
func decode(w http.ResponseWriter, r *http.Request, d deps.Deps, dst any) error {
	if err := decodeJSON(w, r, maxJSONBody, dst); err != nil {
		return err
	}
	return d.Validator.Validate(dst)
}

func indexParam(r *http.Request) (int, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "index"))
	idx, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &badRequest{msg: fmt.Sprintf("invalid candidate index %q", raw)}
	}
	return idx, nil
}

