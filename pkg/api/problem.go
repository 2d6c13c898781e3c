package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"orderflow/pkg/order"
	"orderflow/pkg/route"
)

// ProblemDetail represents an RFC 7807 Problem Details response.
type ProblemDetail struct {
	Type     string         `json:"type"`
	Title    string         `json:"title"`
	Status   int            `json:"status"`
	Detail   string         `json:"detail,omitempty"`
	Instance string         `json:"instance,omitempty"`
	Extra    map[string]any `json:"extensions,omitempty"`
}

const (
	typeValidation       = "/problems/validation-error"
	typeBadRequest       = "/problems/bad-request"
	typeNotFound         = "/problems/not-found"
	typeMethodNotAllowed = "/problems/method-not-allowed"
	typeConflict         = "/problems/conflict"
	typeInternal         = "/problems/internal-error"
)

// problemFor maps a core error onto its HTTP representation.
func problemFor(err error) ProblemDetail {
	var methodErr *route.MethodError
	switch {
	case errors.As(err, &methodErr):
		return ProblemDetail{
			Type:   typeMethodNotAllowed,
			Title:  "Method Not Allowed",
			Status: http.StatusMethodNotAllowed,
			Detail: err.Error(),
			Extra:  map[string]any{"allowed": methodErr.Allowed},
		}
	case errors.Is(err, route.ErrMalformedRequest):
		return ProblemDetail{Type: typeBadRequest, Title: "Bad Request", Status: http.StatusBadRequest, Detail: err.Error()}
	case errors.Is(err, order.ErrValidation):
		return ProblemDetail{Type: typeValidation, Title: "Validation Error", Status: http.StatusBadRequest, Detail: err.Error()}
	case errors.Is(err, order.ErrNotFound):
		return ProblemDetail{Type: typeNotFound, Title: "Resource Not Found", Status: http.StatusNotFound, Detail: err.Error()}
	case errors.Is(err, order.ErrInvalidState):
		return ProblemDetail{Type: typeConflict, Title: "Conflict", Status: http.StatusConflict, Detail: err.Error()}
	default:
		return ProblemDetail{Type: typeInternal, Title: "Internal Server Error", Status: http.StatusInternalServerError}
	}
}

// writeError renders err as application/problem+json. Internal errors are
// logged; their detail never reaches the client.
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	p := problemFor(err)
	p.Instance = r.URL.Path
	if p.Status >= http.StatusInternalServerError {
		a.log.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	if allowed, ok := p.Extra["allowed"].([]string); ok {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeProblem(w, p)
}

func writeProblem(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
