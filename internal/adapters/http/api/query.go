package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultMaxQueryBytes = 64 << 10

// QueryHandler runs ad-hoc read-only SQL.
type QueryHandler struct {
	deps     QueryDependencies
	maxBytes int64
}

// NewQueryHandler creates a new query handler. Bodies above maxBytes are
// rejected.
func NewQueryHandler(deps QueryDependencies, maxBytes int64) *QueryHandler {
	if maxBytes <= 0 {
		maxBytes = defaultMaxQueryBytes
	}
	return &QueryHandler{deps: deps, maxBytes: maxBytes}
}

type queryRequest struct {
	SQL string `json:"sql"`
}

// HandleQuery handles POST /query requests.
func (h *QueryHandler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req queryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBytes)).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing sql", ErrBadRequest))
		return
	}
	res, err := h.deps.Query(r.Context(), req.SQL)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
