package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"keshi/internal/core"
)

// Request bodies are tiny JSON documents; anything bigger is abuse.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error   string `json:"error"`
	Records int    `json:"records,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeError maps the domain error taxonomy onto HTTP statuses. Anything
// outside the taxonomy is a storage failure and stays opaque to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var inUse *core.CourseInUseError
	if errors.As(err, &inUse) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:   inUse.Error(),
			Records: inUse.Records,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, core.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"method", r.Method, "url", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// decodeJSON reads the request body into v, rejecting unknown fields and
// oversized payloads.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	// A trailing second document is malformed input, not extra data to skip.
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	_, _ = io.Copy(io.Discard, r.Body)
	return nil
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: message})
}

// sanitizeInput trims whitespace and strips control characters except tab,
// newline, and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
