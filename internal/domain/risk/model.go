package risk

import (
	"fmt"
	"time"

	"github.com/okian/scholar/internal/domain/model"
)

// Model is a trained classifier. It is immutable once returned by Train.
type Model struct {
	ID             string     `json:"id"`
	SchemaVersion  string     `json:"schema_version"`
	Schema         []string   `json:"schema"`
	Weights        []float64  `json:"weights"`
	Bias           float64    `json:"bias"`
	Mean           []float64  `json:"mean"`
	Std            []float64  `json:"std"`
	Config         Config     `json:"config"`
	Evaluation     Evaluation `json:"evaluation"`
	Threshold      float64    `json:"threshold"`
	TrainedAt      time.Time  `json:"trained_at"`
	Iterations     int        `json:"iterations"`
	TrainSize      int        `json:"train_size"`
	ValidationSize int        `json:"validation_size"`
	DatasetHash    string     `json:"dataset_hash"`
}

// Validate checks that the parameter vectors agree with the schema.
func (m *Model) Validate() error {
	d := len(m.Schema)
	if d == 0 || len(m.Weights) != d || len(m.Mean) != d || len(m.Std) != d {
		return fmt.Errorf("%w: schema has %d features, weights %d, mean %d, std %d",
			model.ErrSchemaMismatch, d, len(m.Weights), len(m.Mean), len(m.Std))
	}
	for j, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("%w: zero std for %s", model.ErrSchemaMismatch, m.Schema[j])
		}
	}
	if m.Threshold <= 0 || m.Threshold >= 1 {
		return fmt.Errorf("%w: threshold %g outside (0, 1)", model.ErrSchemaMismatch, m.Threshold)
	}
	return nil
}

// Predict scores one canonical record.
func (m *Model) Predict(rec model.StudentRecord) (model.Prediction, error) {
	v, err := Extract(rec)
	if err != nil {
		return model.Prediction{}, err
	}
	p, atRisk, err := m.score(rec.ID, v)
	if err != nil {
		return model.Prediction{}, err
	}
	return model.Prediction{ID: rec.ID, Probability: p, AtRisk: atRisk, ModelID: m.ID}, nil
}

// PredictVector scores an ad-hoc feature vector.
func (m *Model) PredictVector(v Vector) (float64, bool, error) {
	return m.score("", v)
}

func (m *Model) score(id string, v Vector) (float64, bool, error) {
	if !sameSchema(v.Features, m.Schema) || len(v.Values) != len(m.Schema) {
		return 0, false, model.WrapError(model.StageRisk, "Predict", model.ErrCannotPredict, id,
			"feature schema differs from the trained model",
			&model.SchemaMismatchError{ID: id, Expected: m.Schema, Actual: v.Features})
	}
	p := m.probability(v.Values)
	return p, p >= m.Threshold, nil
}

// probability normalizes raw values with the training statistics.
func (m *Model) probability(raw []float64) float64 {
	z := m.Bias
	for j, v := range raw {
		z += m.Weights[j] * (v - m.Mean[j]) / m.Std[j]
	}
	return sigmoid(z)
}
