package risk

import "math"

// scaler standardizes columns to zero mean and unit variance.
type scaler struct {
	Mean []float64
	Std  []float64
}

// fitScaler computes column statistics. A zero standard deviation becomes 1
// so constant columns pass through centred.
func fitScaler(x [][]float64) scaler {
	cols := len(x[0])
	s := scaler{Mean: make([]float64, cols), Std: make([]float64, cols)}
	n := float64(len(x))
	for j := 0; j < cols; j++ {
		for i := range x {
			s.Mean[j] += x[i][j]
		}
		s.Mean[j] /= n
		v := 0.0
		for i := range x {
			d := x[i][j] - s.Mean[j]
			v += d * d
		}
		s.Std[j] = math.Sqrt(v / n)
		if s.Std[j] == 0 {
			s.Std[j] = 1
		}
	}
	return s
}

func (s scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out
}
