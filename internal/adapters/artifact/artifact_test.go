package artifact_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okian/scholar/internal/adapters/artifact"
	"github.com/okian/scholar/internal/domain/risk"
)

func sampleModel() *risk.Model {
	return &risk.Model{
		ID:            "m-1",
		SchemaVersion: risk.SchemaVersion,
		Schema:        risk.Schema(),
		Weights:       []float64{-1.5, -0.8, 2.1},
		Bias:          -0.3,
		Mean:          []float64{60, 82, 0.4},
		Std:           []float64{15, 9, 0.7},
		Config:        risk.DefaultConfig(),
		Threshold:     0.5,
		TrainedAt:     time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Evaluation:    risk.Evaluation{Accuracy: 0.9, Support: 10, Holdout: true},
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := artifact.NewFileStore(filepath.Join(t.TempDir(), "nested", "model.json"))

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, artifact.ErrNotFound)

	want := sampleModel()
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	p, atRisk, err := got.PredictVector(risk.NewVector(30, 60, 2))
	require.NoError(t, err)
	assert.True(t, atRisk)
	assert.Greater(t, p, 0.5)
}

func TestFileStoreOverwrite(t *testing.T) {
	ctx := context.Background()
	s := artifact.NewFileStore(filepath.Join(t.TempDir(), "model.json"))

	first := sampleModel()
	require.NoError(t, s.Save(ctx, first))
	second := sampleModel()
	second.ID = "m-2"
	require.NoError(t, s.Save(ctx, second))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m-2", got.ID)

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")
}

func TestFileStoreRejectsIncompatibleArtifacts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	cases := map[string]string{
		"format":  `{"format_version": 99, "model": {}}`,
		"schema":  `{"format_version": 1, "model": {"schema_version": "v0", "schema": ["a"], "weights": [1], "mean": [0], "std": [1], "threshold": 0.5}}`,
		"weights": `{"format_version": 1, "model": {"schema_version": "v1", "schema": ["average_mark", "attendance_pct", "subjects_failed"], "weights": [1], "mean": [0], "std": [1], "threshold": 0.5}}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".json")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := artifact.NewFileStore(path).Load(ctx)
			assert.ErrorIs(t, err, artifact.ErrIncompatible)
		})
	}

	path := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	_, err := artifact.NewFileStore(path).Load(ctx)
	assert.ErrorIs(t, err, artifact.ErrSerialization)
}

func TestFileStoreSaveNil(t *testing.T) {
	s := artifact.NewFileStore(filepath.Join(t.TempDir(), "model.json"))
	assert.ErrorIs(t, s.Save(context.Background(), nil), artifact.ErrSerialization)
}

func TestNopStore(t *testing.T) {
	var s artifact.Store = artifact.NopStore{}
	require.NoError(t, s.Save(context.Background(), sampleModel()))
	_, err := s.Load(context.Background())
	assert.ErrorIs(t, err, artifact.ErrNotFound)
}

func TestRedisStoreUnavailable(t *testing.T) {
	cfg := artifact.DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 200 * time.Millisecond

	_, err := artifact.NewRedisStore(context.Background(), cfg)
	assert.ErrorIs(t, err, artifact.ErrUnavailable)
}
