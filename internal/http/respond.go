package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/taskforge/api/internal/authz"
	"github.com/taskforge/api/internal/domain"
	"github.com/taskforge/api/internal/repository"
)

// page is the envelope for paginated listings.
type page struct {
	Count   int `json:"count"`
	Limit   int `json:"limit"`
	Offset  int `json:"offset"`
	Results any `json:"results"`
}

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writePage sends a paginated listing envelope.
func writePage(w http.ResponseWriter, count, limit, offset int, results any) {
	writeJSON(w, http.StatusOK, page{Count: count, Limit: limit, Offset: offset, Results: results})
}

// writeServiceError maps service failures onto HTTP statuses: denied access
// is 403, absent rows 404, rejected input 400, anything else 500.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
