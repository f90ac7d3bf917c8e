package risk

// Evaluation holds binary classification metrics with "at risk" as the positive class.
type Evaluation struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	TN        int     `json:"tn"`
	FN        int     `json:"fn"`
	// Holdout is false when the metrics were computed on the training split.
	Holdout bool `json:"holdout"`
}

// evaluate scores predictions against labels. Ratios with an empty
// denominator are 0.
func evaluate(yTrue, yPred []int) Evaluation {
	var e Evaluation
	for i := range yTrue {
		switch {
		case yTrue[i] == 1 && yPred[i] == 1:
			e.TP++
		case yTrue[i] == 0 && yPred[i] == 1:
			e.FP++
		case yTrue[i] == 0 && yPred[i] == 0:
			e.TN++
		default:
			e.FN++
		}
	}
	e.Support = len(yTrue)
	e.Accuracy = ratio(e.TP+e.TN, e.Support)
	e.Precision = ratio(e.TP, e.TP+e.FP)
	e.Recall = ratio(e.TP, e.TP+e.FN)
	if e.Precision+e.Recall > 0 {
		e.F1 = 2 * e.Precision * e.Recall / (e.Precision + e.Recall)
	}
	return e
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
