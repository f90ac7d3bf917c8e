package risk

import (
	"math"
	"math/rand"
)

// stratifiedSplit partitions sample indices into train and validation sets,
// keeping the class ratio. Each class keeps at least one training sample.
func stratifiedSplit(labels []int, ratio float64, rng *rand.Rand) (train, val []int) {
	byClass := [2][]int{}
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	for _, idx := range byClass {
		n := len(idx)
		if n == 0 {
			continue
		}
		nVal := int(math.Round(ratio * float64(n)))
		if nVal > n-1 {
			nVal = n - 1
		}
		perm := rng.Perm(n)
		for k, p := range perm {
			if k < nVal {
				val = append(val, idx[p])
			} else {
				train = append(train, idx[p])
			}
		}
	}
	return train, val
}
