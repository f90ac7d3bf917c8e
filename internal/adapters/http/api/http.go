// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/okian/scholar/internal/adapters/source"
	"github.com/okian/scholar/internal/adapters/sqlview"
	"github.com/okian/scholar/internal/domain/cohort"
	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/risk"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RecordDependencies
	PredictDependencies
	PipelineDependencies
	QueryDependencies
	ReportDependencies
	StatsProvider
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	recordsHandler  *RecordsHandler
	predictHandler  *PredictHandler
	pipelineHandler *PipelineHandler
	queryHandler    *QueryHandler
	reportHandler   *ReportHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxQueryBytes int64) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(deps),
		recordsHandler:  NewRecordsHandler(deps),
		predictHandler:  NewPredictHandler(deps),
		pipelineHandler: NewPipelineHandler(deps),
		queryHandler:    NewQueryHandler(deps, maxQueryBytes),
		reportHandler:   NewReportHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/records", MetricsMiddleware(s.recordsHandler.HandleGetRecords, "records"))
	mux.HandleFunc("/records/", MetricsMiddleware(s.recordsHandler.HandleGetRecord, "record"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.recordsHandler.HandleGetMetrics, "metrics"))
	mux.HandleFunc("/predict/", MetricsMiddleware(s.predictHandler.HandleGetPrediction, "predict"))
	mux.HandleFunc("/refresh", MetricsMiddleware(s.pipelineHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("/retrain", MetricsMiddleware(s.pipelineHandler.HandleRetrain, "retrain"))
	mux.HandleFunc("/model", MetricsMiddleware(s.pipelineHandler.HandleGetModel, "model"))
	mux.HandleFunc("/model/", MetricsMiddleware(s.pipelineHandler.HandleGetModelByID, "model_by_id"))
	mux.HandleFunc("/query", MetricsMiddleware(s.queryHandler.HandleQuery, "query"))
	mux.HandleFunc("/reports/at-risk.xlsx", MetricsMiddleware(s.reportHandler.HandleAtRisk, "report"))
}

// RecordDependencies reads canonical records and cohort metrics.
type RecordDependencies interface {
	Records(ctx context.Context, f cohort.Filter) ([]model.StudentRecord, error)
	Record(ctx context.Context, id string) (model.StudentRecord, error)
	Metrics(ctx context.Context, f cohort.Filter) (cohort.Metrics, error)
}

// PredictDependencies classifies students.
type PredictDependencies interface {
	Predict(ctx context.Context, id string) (model.Prediction, error)
	PredictFeatures(ctx context.Context, v risk.Vector) (model.Prediction, error)
}

// PipelineDependencies re-runs ingestion and training.
type PipelineDependencies interface {
	Refresh(ctx context.Context) (source.Report, error)
	Retrain(ctx context.Context, cfg risk.Config) (*risk.Model, error)
	RiskConfig() risk.Config
	Model() *risk.Model
	ModelByID(ctx context.Context, id string) (*risk.Model, error)
}

// QueryDependencies runs read-only SQL.
type QueryDependencies interface {
	Query(ctx context.Context, q string) (sqlview.Result, error)
}

// ReportDependencies renders the at-risk workbook.
type ReportDependencies interface {
	AtRiskReport(ctx context.Context, w io.Writer) error
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Sources is the load report of a failed refresh.
	Sources source.Report `json:"sources,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeDomainError translates pipeline error kinds to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrSchemaMismatch):
		return http.StatusUnprocessableEntity, "schema_mismatch"
	case errors.Is(err, model.ErrCannotPredict):
		return http.StatusUnprocessableEntity, "cannot_predict"
	case errors.Is(err, model.ErrTraining):
		return http.StatusUnprocessableEntity, "training_failed"
	case errors.Is(err, model.ErrNoUsableRecords):
		return http.StatusUnprocessableEntity, "no_usable_records"
	case errors.Is(err, sqlview.ErrNotReadOnly):
		return http.StatusBadRequest, "not_read_only"
	case errors.Is(err, sqlview.ErrQuery):
		return http.StatusBadRequest, "query_failed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func filterFrom(r *http.Request) cohort.Filter {
	return cohort.Filter{Department: r.URL.Query().Get("department")}
}
