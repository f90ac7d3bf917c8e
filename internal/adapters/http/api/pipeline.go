package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/scholar/internal/adapters/source"
	"github.com/okian/scholar/internal/domain/risk"
)

// PipelineHandler triggers refresh and retraining and describes the model.
type PipelineHandler struct {
	deps PipelineDependencies
}

// NewPipelineHandler creates a new pipeline handler.
func NewPipelineHandler(deps PipelineDependencies) *PipelineHandler {
	return &PipelineHandler{deps: deps}
}

type refreshResponse struct {
	Status  string        `json:"status"`
	Sources source.Report `json:"sources"`
}

// retrainRequest overrides the default training configuration. Absent
// fields keep their defaults.
type retrainRequest struct {
	LearningRate    *float64 `json:"learning_rate"`
	MaxIterations   *int     `json:"max_iterations"`
	L2              *float64 `json:"l2"`
	ValidationRatio *float64 `json:"validation_ratio"`
	Seed            *int64   `json:"seed"`
	Threshold       *float64 `json:"threshold"`
}

func (q retrainRequest) apply(cfg risk.Config) (risk.Config, error) {
	if q.LearningRate != nil {
		if *q.LearningRate <= 0 {
			return cfg, fmt.Errorf("%w: learning_rate must be positive", ErrBadRequest)
		}
		cfg.LearningRate = *q.LearningRate
	}
	if q.MaxIterations != nil {
		if *q.MaxIterations < 1 {
			return cfg, fmt.Errorf("%w: max_iterations must be at least 1", ErrBadRequest)
		}
		cfg.MaxIterations = *q.MaxIterations
	}
	if q.L2 != nil {
		if *q.L2 < 0 {
			return cfg, fmt.Errorf("%w: l2 must not be negative", ErrBadRequest)
		}
		cfg.L2 = *q.L2
	}
	if q.ValidationRatio != nil {
		if *q.ValidationRatio < 0 || *q.ValidationRatio >= 1 {
			return cfg, fmt.Errorf("%w: validation_ratio must be in [0, 1)", ErrBadRequest)
		}
		cfg.ValidationRatio = *q.ValidationRatio
	}
	if q.Seed != nil {
		cfg.Seed = *q.Seed
	}
	if q.Threshold != nil {
		if *q.Threshold <= 0 || *q.Threshold >= 1 {
			return cfg, fmt.Errorf("%w: threshold must be in (0, 1)", ErrBadRequest)
		}
		cfg.Threshold = *q.Threshold
	}
	return cfg, nil
}

type modelResponse struct {
	ID             string          `json:"id"`
	SchemaVersion  string          `json:"schema_version"`
	Schema         []string        `json:"schema"`
	Threshold      float64         `json:"threshold"`
	TrainedAt      time.Time       `json:"trained_at"`
	Iterations     int             `json:"iterations"`
	TrainSize      int             `json:"train_size"`
	ValidationSize int             `json:"validation_size"`
	DatasetHash    string          `json:"dataset_hash"`
	Evaluation     risk.Evaluation `json:"evaluation"`
}

func describe(m *risk.Model) modelResponse {
	return modelResponse{
		ID:             m.ID,
		SchemaVersion:  m.SchemaVersion,
		Schema:         m.Schema,
		Threshold:      m.Threshold,
		TrainedAt:      m.TrainedAt,
		Iterations:     m.Iterations,
		TrainSize:      m.TrainSize,
		ValidationSize: m.ValidationSize,
		DatasetHash:    m.DatasetHash,
		Evaluation:     m.Evaluation,
	}
}

// HandleRefresh handles POST /refresh requests.
func (h *PipelineHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	rep, err := h.deps.Refresh(r.Context())
	if err != nil {
		status, code := classify(err)
		writeJSON(w, status, errorResponse{Code: code, Message: err.Error(), Sources: rep})
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Status: "published", Sources: rep})
}

// HandleRetrain handles POST /retrain with an optional JSON body of overrides.
func (h *PipelineHandler) HandleRetrain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req retrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %v", ErrBadRequest, err))
		return
	}
	cfg, err := req.apply(h.deps.RiskConfig())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	m, err := h.deps.Retrain(r.Context(), cfg)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(m))
}

// HandleGetModel handles GET /model requests.
func (h *PipelineHandler) HandleGetModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	m := h.deps.Model()
	if m == nil {
		writeError(w, http.StatusNotFound, "no_model", nil)
		return
	}
	writeJSON(w, http.StatusOK, describe(m))
}

// HandleGetModelByID handles GET /model/{id} requests.
func (h *PipelineHandler) HandleGetModelByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/model/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	m, err := h.deps.ModelByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, describe(m))
}
