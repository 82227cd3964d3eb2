package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/linkdeck/internal/importer"
	"github.com/MrSnakeDoc/linkdeck/internal/validation"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the body of every failed admin call. Message is written
// for the operator.
type errorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Retryable bool              `json:"retryable"`
	State     importer.State    `json:"state,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// badRequest is a malformed body, not a pipeline error.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	var (
		transition *importer.InvalidTransitionError
		index      *importer.IndexError
		fields     *validation.FieldsError
		bad        *badRequest
	)
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest
	case errors.As(err, &fields):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.As(err, &index):
		return http.StatusNotFound
	}

	switch importer.Kind(err) {
	case "extraction_transport", "commit_transport", "catalog_unavailable":
		return http.StatusServiceUnavailable
	case "":
		return http.StatusInternalServerError
	}
	return http.StatusUnprocessableEntity
}

func writeError(w http.ResponseWriter, c *importer.Controller, err error) {
	resp := errorResponse{
		Error:     importer.Kind(err),
		Message:   importer.OperatorMessage(err),
		Retryable: importer.IsRetryable(err),
	}
	if c != nil {
		resp.State = c.State()
	}

	var (
		fields *validation.FieldsError
		bad    *badRequest
	)
	switch {
	case errors.As(err, &fields):
		resp.Error = "invalid_request"
		resp.Message = err.Error()
		resp.Fields = fields.Fields
	case errors.As(err, &bad):
		resp.Error = "invalid_request"
		resp.Message = bad.msg
	case resp.Error == "":
		resp.Error = "internal"
		resp.Message = "Something went wrong. Try again, and check the server logs if it keeps failing."
	}

	writeJSON(w, statusFor(err), resp)
}

// decodeJSON reads a single JSON object of at most limit bytes, rejecting
// unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &badRequest{msg: "invalid JSON body: " + err.Error()}
	}
	if dec.More() {
		return &badRequest{msg: "invalid JSON body: trailing data"}
	}
	return nil
}
