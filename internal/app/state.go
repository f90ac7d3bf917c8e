package service

import (
	"sync"
	"time"

	"github.com/okian/scholar/internal/adapters/source"
	"github.com/okian/scholar/internal/domain/reconcile"
	"github.com/okian/scholar/internal/domain/risk"
)

// State is one published pipeline result. Everything reachable from it is
// read-only; the caches are owned by the state and die with it.
type State struct {
	Dataset         *reconcile.Dataset
	LoadReport      source.Report
	ReconcileReport reconcile.Report
	Model           *risk.Model
	RefreshedAt     time.Time

	metrics     *sync.Map // cohort.Filter -> cohort.Metrics
	predictions *sync.Map // student id -> model.Prediction
}

func newState(ds *reconcile.Dataset, lr source.Report, rr reconcile.Report, m *risk.Model) *State {
	return &State{
		Dataset:         ds,
		LoadReport:      lr,
		ReconcileReport: rr,
		Model:           m,
		RefreshedAt:     time.Now().UTC(),
		metrics:         &sync.Map{},
		predictions:     &sync.Map{},
	}
}

// withModel returns a copy serving m. Metrics do not depend on the model
// and keep their cache; predictions start empty.
func (st *State) withModel(m *risk.Model) *State {
	next := *st
	next.Model = m
	next.predictions = &sync.Map{}
	return &next
}
