package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matthewbaird/reviewsummary/internal/labeldoc"
	"github.com/matthewbaird/reviewsummary/internal/labelstore"
	"github.com/matthewbaird/reviewsummary/internal/summary"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON encode error: %v", err)
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes a request body of at most maxBytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes)).Decode(v)
}

// writeDecodeError answers a body that could not be decoded.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeError(w, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE",
			fmt.Sprintf("request body exceeds %s", humanize.IBytes(uint64(tooBig.Limit))))
		return
	}
	writeError(w, http.StatusBadRequest, "MALFORMED_INPUT", "invalid request body: "+err.Error())
}

// parseUUID extracts and validates a UUID path parameter.
func parseUUID(w http.ResponseWriter, r *http.Request, paramName string) (uuid.UUID, bool) {
	raw := chi.URLParam(r, paramName)
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "invalid UUID: "+raw)
		return uuid.Nil, false
	}
	return id, true
}

// Pagination holds parsed pagination parameters.
type Pagination struct {
	Limit  int
	Offset int
}

// parsePagination extracts page_size and offset from query params.
func parsePagination(r *http.Request) Pagination {
	p := Pagination{Limit: 20, Offset: 0}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.Limit = n
		}
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			p.Offset = n
		}
	}
	return p
}

// errorToHTTP maps store, document and render errors to HTTP responses.
func errorToHTTP(w http.ResponseWriter, err error) {
	var mie *summary.MalformedInputError
	switch {
	case errors.As(err, &mie):
		writeError(w, http.StatusBadRequest, "MALFORMED_INPUT", err.Error())
	case errors.Is(err, labeldoc.ErrUnknownFormat):
		writeError(w, http.StatusBadRequest, "UNKNOWN_FORMAT", err.Error())
	case errors.Is(err, summary.ErrNoData):
		writeError(w, http.StatusUnprocessableEntity, "NO_DATA", err.Error())
	case errors.Is(err, labelstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, labelstore.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "DOCUMENT_TOO_LARGE", err.Error())
	case errors.Is(err, labelstore.ErrVersionConflict):
		writeError(w, http.StatusConflict, "VERSION_CONFLICT", err.Error())
	case errors.Is(err, labelstore.ErrInvalidName):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	default:
		log.Printf("internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}

// rawOrNil turns an absent JSON field into a nil render input.
func rawOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
