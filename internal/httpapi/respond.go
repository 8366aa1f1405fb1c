// ABOUTME: JSON response helpers and the single apperr-to-status mapping
// ABOUTME: Upstream failures are logged with their cause and shown as a generic message

package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/picco-crm/picco/internal/apperr"
	"github.com/picco-crm/picco/internal/store"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

func init() {
	// Front-ends read money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to a status and writes the error body.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindUpstream {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
		return
	}
	writeJSON(w, statusFor(e.Kind), errorBody{Error: e.Message, Details: e.Details})
}

// decodeJSON reads a bounded JSON body into dst. Malformed bodies are
// validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Validation("request body too large")
	}
	if errors.Is(err, io.EOF) {
		return apperr.Validation("request body required")
	}
	return apperr.Wrap(apperr.KindValidation, "invalid request body", err)
}

// storeError translates store sentinels for the named entity.
func storeError(err error, entity string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound(entity + " not found")
	case errors.Is(err, store.ErrInUse):
		return apperr.Conflict(entity + " is referenced by existing orders")
	default:
		return apperr.Upstream(entity+" storage failed", err)
	}
}
