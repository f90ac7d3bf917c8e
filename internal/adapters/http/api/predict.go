package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/scholar/internal/domain/risk"
)

// PredictHandler serves risk predictions.
type PredictHandler struct {
	deps PredictDependencies
}

// NewPredictHandler creates a new predict handler.
func NewPredictHandler(deps PredictDependencies) *PredictHandler {
	return &PredictHandler{deps: deps}
}

// featuresRequest is the body of POST /predict/features.
type featuresRequest struct {
	AverageMark    *float64 `json:"average_mark"`
	Attendance     *float64 `json:"attendance_pct"`
	SubjectsFailed *int     `json:"subjects_failed"`
}

func (f featuresRequest) validate() error {
	switch {
	case f.AverageMark == nil:
		return fmt.Errorf("%w: missing average_mark", ErrBadRequest)
	case f.Attendance == nil:
		return fmt.Errorf("%w: missing attendance_pct", ErrBadRequest)
	case f.SubjectsFailed == nil:
		return fmt.Errorf("%w: missing subjects_failed", ErrBadRequest)
	case *f.SubjectsFailed < 0:
		return fmt.Errorf("%w: negative subjects_failed", ErrBadRequest)
	}
	return nil
}

// HandleGetPrediction handles GET /predict/{id} and POST /predict/features.
func (h *PredictHandler) HandleGetPrediction(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/predict/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}

	if r.Method == http.MethodPost && id == "features" {
		h.handleFeatures(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	p, err := h.deps.Predict(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PredictHandler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req featuresRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	p, err := h.deps.PredictFeatures(r.Context(), risk.NewVector(*req.AverageMark, *req.Attendance, *req.SubjectsFailed))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
