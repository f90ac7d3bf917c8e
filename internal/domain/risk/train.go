package risk

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/okian/scholar/internal/domain/model"
	"github.com/okian/scholar/internal/domain/reconcile"
)

const ctxCheckEvery = 100

// Train fits a logistic regression on the complete records of ds. Label 1
// means the student failed overall.
func Train(ctx context.Context, ds *reconcile.Dataset, cfg Config) (*Model, error) {
	const op = "Train"
	cfg = cfg.withDefaults()

	var (
		x      [][]float64
		y      []int
		counts [2]int
	)
	for _, rec := range ds.Filter("") {
		v, err := Extract(rec)
		if err != nil {
			continue
		}
		x = append(x, v.Values)
		l := label(rec)
		y = append(y, l)
		counts[l]++
	}

	if len(x) < cfg.MinSamples {
		return nil, model.WrapError(model.StageRisk, op, model.ErrTraining, "",
			fmt.Sprintf("%d complete records, need %d", len(x), cfg.MinSamples), ErrInsufficientSamples)
	}
	if counts[0] == 0 || counts[1] == 0 {
		return nil, model.WrapError(model.StageRisk, op, model.ErrTraining, "",
			fmt.Sprintf("passed=%d failed=%d", counts[0], counts[1]), ErrSingleClass)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	trainIdx, valIdx := stratifiedSplit(y, cfg.ValidationRatio, rng)

	xTrain := pick(x, trainIdx)
	yTrain := pickInt(y, trainIdx)
	sc := fitScaler(xTrain)
	for i := range xTrain {
		xTrain[i] = sc.transform(xTrain[i])
	}

	w, b, iters, err := descend(ctx, xTrain, yTrain, cfg)
	if err != nil {
		return nil, err
	}

	m := &Model{
		ID:             uuid.NewString(),
		SchemaVersion:  SchemaVersion,
		Schema:         Schema(),
		Weights:        w,
		Bias:           b,
		Mean:           sc.Mean,
		Std:            sc.Std,
		Config:         cfg,
		Threshold:      cfg.Threshold,
		TrainedAt:      time.Now().UTC(),
		Iterations:     iters,
		TrainSize:      len(trainIdx),
		ValidationSize: len(valIdx),
		DatasetHash:    ds.Hash,
	}

	evalIdx, holdout := valIdx, true
	if len(valIdx) == 0 {
		evalIdx, holdout = trainIdx, false
	}
	yTrue := make([]int, len(evalIdx))
	yPred := make([]int, len(evalIdx))
	for k, i := range evalIdx {
		yTrue[k] = y[i]
		if m.probability(x[i]) >= m.Threshold {
			yPred[k] = 1
		}
	}
	m.Evaluation = evaluate(yTrue, yPred)
	m.Evaluation.Holdout = holdout
	return m, nil
}

// descend runs full-batch gradient descent on L2-regularized cross-entropy
// and stops once the loss improves by less than cfg.Tolerance.
func descend(ctx context.Context, x [][]float64, y []int, cfg Config) ([]float64, float64, int, error) {
	n, d := len(x), len(x[0])
	w := make([]float64, d)
	b := 0.0
	grad := make([]float64, d)
	prev := math.Inf(1)

	iter := 0
	for iter < cfg.MaxIterations {
		if iter%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, iter, err
			}
		}
		iter++

		for j := range grad {
			grad[j] = 0
		}
		gb, loss := 0.0, 0.0
		for i := 0; i < n; i++ {
			p := sigmoid(dot(w, x[i]) + b)
			diff := p - float64(y[i])
			for j := 0; j < d; j++ {
				grad[j] += diff * x[i][j]
			}
			gb += diff
			loss += crossEntropy(p, y[i])
		}
		reg := 0.0
		for j := 0; j < d; j++ {
			grad[j] = grad[j]/float64(n) + cfg.L2*w[j]
			reg += w[j] * w[j]
		}
		loss = loss/float64(n) + cfg.L2*reg/2

		if prev-loss < cfg.Tolerance {
			break
		}
		prev = loss

		for j := 0; j < d; j++ {
			w[j] -= cfg.LearningRate * grad[j]
		}
		b -= cfg.LearningRate * gb / float64(n)
	}
	return w, b, iter, nil
}

func crossEntropy(p float64, y int) float64 {
	const eps = 1e-15
	p = math.Min(math.Max(p, eps), 1-eps)
	if y == 1 {
		return -math.Log(p)
	}
	return -math.Log(1 - p)
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func pick(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for k, i := range idx {
		out[k] = append([]float64(nil), x[i]...)
	}
	return out
}

func pickInt(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}
