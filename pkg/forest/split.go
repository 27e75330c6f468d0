package forest

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
)

// TrainTestSplit shuffles row indices 0..n-1 with a seeded stream and
// holds out ceil(n*testFraction) of them.
func TrainTestSplit(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	if n < 2 {
		return nil, nil, fmt.Errorf("%w: need at least 2 rows to split, got %d", ErrEmptyData, n)
	}
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0, 1), got %v", testFraction)
	}
	nTest := int(math.Ceil(float64(n) * testFraction))
	if nTest >= n {
		nTest = n - 1
	}
	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// Subset selects rows of x and y by index.
func Subset(x [][]float64, y []float64, idx []int) ([][]float64, []float64) {
	xs := make([][]float64, len(idx))
	ys := make([]float64, len(idx))
	for i, r := range idx {
		xs[i] = x[r]
		ys[i] = y[r]
	}
	return xs, ys
}

// MeanAbsoluteError returns the mean of |want - got|.
func MeanAbsoluteError(want, got []float64) (float64, error) {
	if len(want) != len(got) {
		return 0, fmt.Errorf("%w: %d targets, %d predictions", ErrDimensionMismatch, len(want), len(got))
	}
	if len(want) == 0 {
		return 0, ErrEmptyData
	}
	return floats.Distance(want, got, 1) / float64(len(want)), nil
}
