// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scholar/internal/adapters/artifact"
	"github.com/okian/scholar/internal/adapters/report"
	"github.com/okian/scholar/internal/adapters/repository"
	"github.com/okian/scholar/internal/adapters/source"
	"github.com/okian/scholar/internal/adapters/sqlview"
	"github.com/okian/scholar/internal/domain/cohort"
	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/reconcile"
	"github.com/okian/scholar/internal/domain/risk"
	"github.com/okian/scholar/pkg/logger"
	"github.com/okian/scholar/pkg/metrics"
)

// Loader reads the configured sources.
type Loader interface {
	Load(ctx context.Context, sources []source.Source) (model.Batch, source.Report, error)
}

// Reconciler merges a batch into a canonical dataset.
type Reconciler interface {
	Reconcile(ctx context.Context, batch model.Batch) (*reconcile.Dataset, reconcile.Report, error)
}

// Service runs the ingestion pipeline and answers queries over its latest
// published result. Readers never block; Refresh and Retrain are serialized.
type Service struct {
	sources    []source.Source
	loader     Loader
	reconciler Reconciler
	artifacts  artifact.Store
	store      *repository.SnapshotStore[State]

	riskCfg       risk.Config
	topN          int
	lowAttendance float64
	maxQueryRows  int
	trainOnStart  bool

	// restored is consumed by the first successful refresh.
	restored *risk.Model
	started  atomic.Bool

	logger logger.Logger
}

// New constructs a Service reading sources.
func New(sources []source.Source, opts ...Option) *Service {
	s := defaults()
	s.sources = sources
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Component("service")
	}
	if s.loader == nil {
		s.loader = source.NewLoader(source.WithLogger(s.logger.Named("source")))
	}
	if s.reconciler == nil {
		s.reconciler = reconcile.New(reconcile.WithLogger(s.logger.Named("reconcile")))
	}
	s.store = repository.NewSnapshotStore[State]()
	return s
}

// Start restores the last saved model, runs the first refresh and, when
// configured and no model was restored, trains one.
func (s *Service) Start(ctx context.Context) error {
	if s.started.Load() {
		return nil
	}
	s.logger.Info(ctx, "starting scholar service", logger.Int("sources", len(s.sources)))

	m, err := s.artifacts.Load(ctx)
	switch {
	case err == nil:
		s.restored = m
		s.logger.Info(ctx, "restored risk model", logger.String("model_id", m.ID),
			logger.String("trained_at", m.TrainedAt.Format(time.RFC3339)))
	case errors.Is(err, artifact.ErrNotFound):
		s.logger.Info(ctx, "no saved risk model")
	default:
		s.logger.Warn(ctx, "failed to restore risk model", logger.Error(err))
		metrics.RecordErrorByComponent("artifact", "load")
	}

	if _, err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("initial refresh: %w", err)
	}

	if s.trainOnStart && s.Model() == nil {
		if _, err := s.Retrain(ctx, s.riskCfg); err != nil {
			// the service still serves records and metrics without a model
			s.logger.Warn(ctx, "initial training failed", logger.Error(err))
		}
	}
	s.started.Store(true)
	return nil
}

// Stop marks the service stopped. Published state stays readable.
func (s *Service) Stop() {
	if s.started.CompareAndSwap(true, false) {
		s.logger.Info(context.Background(), "scholar service stopped")
	}
}

// state returns the current published state.
func (s *Service) state() (*State, error) {
	st, err := s.store.Value()
	if err != nil {
		return nil, ErrNotReady
	}
	return st, nil
}

// Refresh re-runs load and reconcile and publishes a new state. It keeps the
// current model and never retrains. On failure the previous state stays.
func (s *Service) Refresh(ctx context.Context) (source.Report, error) {
	start := time.Now()
	var loadReport source.Report

	snap, err := s.store.Update(ctx, func(cur *State) (*State, error) {
		batch, lr, err := s.loader.Load(ctx, s.sources)
		loadReport = lr
		if err != nil {
			return nil, err
		}
		ds, rr, err := s.reconciler.Reconcile(ctx, batch)
		if err != nil {
			return nil, err
		}
		ds.Version = uuid.NewString()

		var m *risk.Model
		switch {
		case cur != nil:
			m = cur.Model
		case s.restored != nil:
			m, s.restored = s.restored, nil
		}
		return newState(ds, lr, rr, m), nil
	})
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordRefresh("failure", ms)
		metrics.RecordErrorByComponent("service", "refresh")
		s.logger.Error(ctx, "refresh failed, keeping previous state", logger.Error(err))
		return loadReport, err
	}

	metrics.RecordRefresh("success", ms)
	st := snap.Value
	s.logger.Info(ctx, "dataset published",
		logger.String("version", st.Dataset.Version),
		logger.Int("records", st.Dataset.Len()),
		logger.Int("accepted_rows", loadReport.Accepted()),
		logger.Strings("failed_sources", loadReport.Failed()),
		logger.Duration("took", time.Since(start)))
	return loadReport, nil
}

// Retrain trains a model on the current dataset and publishes it. On failure
// the previous model keeps serving. Successful models are saved to the
// artifact store.
func (s *Service) Retrain(ctx context.Context, cfg risk.Config) (*risk.Model, error) {
	start := time.Now()

	snap, err := s.store.Update(ctx, func(cur *State) (*State, error) {
		if cur == nil {
			return nil, ErrNotReady
		}
		m, err := risk.Train(ctx, cur.Dataset, cfg)
		if err != nil {
			return nil, err
		}
		// saved under the writer lock so artifacts follow publish order
		if err := s.artifacts.Save(ctx, m); err != nil {
			metrics.RecordErrorByComponent("artifact", "save")
			s.logger.Warn(ctx, "failed to save risk model", logger.String("model_id", m.ID), logger.Error(err))
		}
		return cur.withModel(m), nil
	})
	ms := float64(time.Since(start).Microseconds()) / 1000
	if err != nil {
		metrics.RecordTraining("failure", ms)
		s.logger.Warn(ctx, "retrain failed, previous model kept", logger.Error(err))
		return nil, err
	}

	m := snap.Value.Model
	metrics.RecordTraining("success", ms)
	metrics.UpdateModelEvaluation(m.Evaluation.Accuracy, m.Evaluation.Precision, m.Evaluation.Recall)
	s.logger.Info(ctx, "risk model trained",
		logger.String("model_id", m.ID),
		logger.Int("train_size", m.TrainSize),
		logger.Int("validation_size", m.ValidationSize),
		logger.Float64("accuracy", m.Evaluation.Accuracy),
		logger.Float64("f1", m.Evaluation.F1),
		logger.Bool("holdout", m.Evaluation.Holdout),
		logger.Int("iterations", m.Iterations))
	return m, nil
}

// RiskConfig returns the default training configuration.
func (s *Service) RiskConfig() risk.Config { return s.riskCfg }

// Model returns the serving model, or nil.
func (s *Service) Model() *risk.Model {
	st, err := s.state()
	if err != nil {
		return nil
	}
	return st.Model
}

// ModelByID returns the serving model or, when the artifact store keeps a
// history, a superseded one.
func (s *Service) ModelByID(ctx context.Context, id string) (*risk.Model, error) {
	const op = "ModelByID"
	if m := s.Model(); m != nil && m.ID == id {
		return m, nil
	}
	notFound := model.NewError(model.StageService, op, model.ErrNotFound, id, "unknown model")
	archive, ok := s.artifacts.(artifact.Archive)
	if !ok {
		return nil, notFound
	}
	m, err := archive.LoadByID(ctx, id)
	if errors.Is(err, artifact.ErrNotFound) {
		return nil, notFound
	}
	if err != nil {
		metrics.RecordErrorByComponent("artifact", "load_by_id")
		return nil, model.WrapError(model.StageService, op, model.ErrUnavailable, id, "artifact store", err)
	}
	return m, nil
}

// Dataset returns the published dataset.
func (s *Service) Dataset() (*reconcile.Dataset, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}
	return st.Dataset, nil
}

// Reports returns the load and reconcile reports of the published state.
func (s *Service) Reports() (source.Report, reconcile.Report, error) {
	st, err := s.state()
	if err != nil {
		return nil, reconcile.Report{}, err
	}
	return st.LoadReport, st.ReconcileReport, nil
}

// Records returns the canonical records matching f.
func (s *Service) Records(_ context.Context, f cohort.Filter) ([]model.StudentRecord, error) {
	st, err := s.state()
	if err != nil {
		return nil, err
	}
	return st.Dataset.Filter(f.Department), nil
}

// Record returns one canonical record.
func (s *Service) Record(_ context.Context, id string) (model.StudentRecord, error) {
	const op = "Record"
	st, err := s.state()
	if err != nil {
		return model.StudentRecord{}, err
	}
	rec, ok := st.Dataset.Lookup(id)
	if !ok {
		return model.StudentRecord{}, model.NewError(model.StageService, op, model.ErrNotFound, id, "unknown student")
	}
	return rec, nil
}

// Metrics returns cohort metrics for f, computed once per published state.
func (s *Service) Metrics(_ context.Context, f cohort.Filter) (cohort.Metrics, error) {
	st, err := s.state()
	if err != nil {
		return cohort.Metrics{}, err
	}
	if v, ok := st.metrics.Load(f); ok {
		metrics.RecordMetricsComputed(true)
		return v.(cohort.Metrics), nil
	}
	m := cohort.Compute(st.Dataset, f,
		cohort.WithTopN(s.topN),
		cohort.WithLowAttendanceThreshold(s.lowAttendance))
	metrics.RecordMetricsComputed(false)
	// Only filters naming a published department are cached so the map
	// stays bounded by the dataset, not by request input.
	if !cacheable(st, f) {
		return m, nil
	}
	v, _ := st.metrics.LoadOrStore(f, m)
	return v.(cohort.Metrics), nil
}

func cacheable(st *State, f cohort.Filter) bool {
	if f.Department == "" {
		return true
	}
	deps := st.Dataset.Departments()
	i := sort.SearchStrings(deps, f.Department)
	return i < len(deps) && deps[i] == f.Department
}

// Predict classifies one student with the serving model.
func (s *Service) Predict(ctx context.Context, id string) (model.Prediction, error) {
	const op = "Predict"
	st, err := s.state()
	if err != nil {
		return model.Prediction{}, err
	}
	if st.Model == nil {
		metrics.RecordPrediction("no_model")
		return model.Prediction{}, model.WrapError(model.StageService, op, model.ErrCannotPredict, id, "no model", ErrNoModel)
	}
	if v, ok := st.predictions.Load(id); ok {
		metrics.RecordPrediction("cached")
		return v.(model.Prediction), nil
	}
	rec, ok := st.Dataset.Lookup(id)
	if !ok {
		metrics.RecordPrediction("not_found")
		return model.Prediction{}, model.NewError(model.StageService, op, model.ErrNotFound, id, "unknown student")
	}
	p, err := st.Model.Predict(rec)
	if err != nil {
		metrics.RecordPrediction("error")
		s.logger.Debug(ctx, "prediction refused", logger.String("id", id), logger.Error(err))
		return model.Prediction{}, err
	}
	st.predictions.Store(id, p)
	metrics.RecordPrediction("success")
	return p, nil
}

// PredictFeatures scores an ad-hoc feature vector with the serving model.
func (s *Service) PredictFeatures(_ context.Context, v risk.Vector) (model.Prediction, error) {
	const op = "PredictFeatures"
	m := s.Model()
	if m == nil {
		return model.Prediction{}, model.WrapError(model.StageService, op, model.ErrCannotPredict, "", "no model", ErrNoModel)
	}
	p, atRisk, err := m.PredictVector(v)
	if err != nil {
		metrics.RecordPrediction("error")
		return model.Prediction{}, err
	}
	metrics.RecordPrediction("adhoc")
	return model.Prediction{Probability: p, AtRisk: atRisk, ModelID: m.ID}, nil
}

// Query runs a read-only SQL statement over the published dataset.
func (s *Service) Query(ctx context.Context, q string) (sqlview.Result, error) {
	st, err := s.state()
	if err != nil {
		return sqlview.Result{}, err
	}
	v, err := sqlview.Open(ctx, st.Dataset, sqlview.WithMaxRows(s.maxQueryRows))
	if err != nil {
		metrics.RecordErrorByComponent("sqlview", "open")
		return sqlview.Result{}, err
	}
	defer func() { _ = v.Close() }()
	return v.Query(ctx, q)
}

// AtRiskReport writes a workbook of students with low attendance or a
// positive risk prediction.
func (s *Service) AtRiskReport(ctx context.Context, w io.Writer) error {
	st, err := s.state()
	if err != nil {
		return err
	}
	m, err := s.Metrics(ctx, cohort.Filter{})
	if err != nil {
		return err
	}

	var rows []report.Row
	for _, rec := range st.Dataset.Records {
		row := report.Row{ID: rec.ID, Department: rec.Department, SubjectsFailed: rec.SubjectsFailed()}
		if !rec.MissingMarks {
			v := rec.AverageMark
			row.AverageMark = &v
		}
		if !rec.MissingAttendance {
			v := rec.Attendance
			row.Attendance = &v
			if v < s.lowAttendance {
				row.Reasons = append(row.Reasons, "attendance below "+strconv.FormatFloat(s.lowAttendance, 'f', -1, 64))
			}
		}
		if st.Model != nil {
			if p, err := s.Predict(ctx, rec.ID); err == nil {
				prob := p.Probability
				row.Probability = &prob
				row.AtRisk = p.AtRisk
				if p.AtRisk {
					row.Reasons = append(row.Reasons, "predicted at risk")
				}
			}
		}
		if len(row.Reasons) > 0 {
			rows = append(rows, row)
		}
	}

	summary := report.Summary{
		GeneratedAt:            time.Now(),
		DatasetVersion:         st.Dataset.Version,
		Records:                st.Dataset.Len(),
		PassRate:               formatStatistic(m.PassRate.Value, m.PassRate.Defined),
		LowAttendanceThreshold: s.lowAttendance,
	}
	if st.Model != nil {
		summary.ModelID = st.Model.ID
	}
	return report.Write(w, rows, summary)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	stats := map[string]interface{}{
		"started": s.started.Load(),
		"sources": len(s.sources),
	}
	snap := s.store.Load()
	if snap == nil {
		return stats
	}
	st := snap.Value
	stats["stateSeq"] = snap.Seq
	stats["stateVersion"] = snap.Version
	stats["publishedAt"] = snap.PublishedAt
	stats["datasetVersion"] = st.Dataset.Version
	stats["datasetHash"] = st.Dataset.Hash
	stats["records"] = st.Dataset.Len()
	stats["subjects"] = st.Dataset.Subjects
	stats["departments"] = st.Dataset.Departments()
	stats["missingMarks"] = st.ReconcileReport.MissingMarks
	stats["missingAttendance"] = st.ReconcileReport.MissingAttendance
	stats["conflicts"] = len(st.ReconcileReport.Conflicts)
	stats["duplicateIds"] = len(st.ReconcileReport.DuplicateIDs)
	stats["acceptedRows"] = st.LoadReport.Accepted()
	stats["failedSources"] = st.LoadReport.Failed()
	if st.Model != nil {
		stats["modelId"] = st.Model.ID
		stats["modelTrainedAt"] = st.Model.TrainedAt
		stats["modelAccuracy"] = st.Model.Evaluation.Accuracy
	}
	return stats
}

func formatStatistic(v float64, defined bool) string {
	if !defined {
		return "undefined"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
