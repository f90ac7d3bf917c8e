package cohort

import (
	"math"
	"sort"

	"github.com/okian/scholar/internal/domain/types"
)

func mean(x []float64) types.Statistic {
	if len(x) == 0 {
		return types.Undefined("no values")
	}
	sum := 0.0
	for _, v := range x {
		sum += v
	}
	return types.Defined(sum / float64(len(x)))
}

func median(x []float64) types.Statistic {
	n := len(x)
	if n == 0 {
		return types.Undefined("no values")
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	if n%2 == 1 {
		return types.Defined(s[n/2])
	}
	return types.Defined((s[n/2-1] + s[n/2]) / 2)
}

// rate is passed/total, undefined for an empty denominator.
func rate(passed, total int) types.Statistic {
	if total == 0 {
		return types.Undefined("no records with marks")
	}
	return types.Defined(float64(passed) / float64(total))
}

// pearson returns the correlation coefficient of x and y, which must have
// equal length. It is undefined below two points or with zero variance.
func pearson(x, y []float64) types.Statistic {
	n := len(x)
	if n < 2 {
		return types.Undefined("fewer than two complete records")
	}
	mx, my := mean(x).Value, mean(y).Value
	var sxy, sxx, syy float64
	for i := 0; i < n; i++ {
		dx, dy := x[i]-mx, y[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return types.Undefined("zero variance")
	}
	r := sxy / math.Sqrt(sxx*syy)
	// rounding can push |r| slightly past 1
	return types.Defined(math.Max(-1, math.Min(1, r)))
}
