// Package forest implements a bootstrap-aggregated forest of CART
// regression trees.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

var (
	// ErrEmptyData is returned when there is nothing to fit.
	ErrEmptyData = errors.New("no training rows")
	// ErrDimensionMismatch is returned for ragged input or a prediction
	// vector of the wrong width.
	ErrDimensionMismatch = errors.New("feature dimension mismatch")
)

// Config controls forest fitting.
type Config struct {
	Trees           int
	Seed            uint64
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxDepth        int // 0 grows until leaves are pure or too small
	Workers         int // 0 uses GOMAXPROCS
}

// DefaultConfig returns 100 fully grown trees.
func DefaultConfig() Config {
	return Config{Trees: 100, Seed: 42, MinSamplesSplit: 2, MinSamplesLeaf: 1}
}

func (c Config) withDefaults() Config {
	if c.Trees <= 0 {
		c.Trees = 100
	}
	if c.MinSamplesSplit < 2 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf < 1 {
		c.MinSamplesLeaf = 1
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	return c
}

// Forest is a fitted regression forest. It is read-only after Fit.
type Forest struct {
	trees       []*Tree
	nFeatures   int
	importances []float64
}

// Fit grows cfg.Trees trees in parallel. Tree i bootstraps its rows from
// a stream seeded by (cfg.Seed, i), so the result does not depend on
// scheduling.
func Fit(ctx context.Context, x [][]float64, y []float64, cfg Config) (*Forest, error) {
	if len(x) == 0 {
		return nil, ErrEmptyData
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%w: %d rows, %d targets", ErrDimensionMismatch, len(x), len(y))
	}
	nFeatures := len(x[0])
	if nFeatures == 0 {
		return nil, fmt.Errorf("%w: zero features", ErrDimensionMismatch)
	}
	for i, row := range x {
		if len(row) != nFeatures {
			return nil, fmt.Errorf("%w: row %d has %d features, want %d", ErrDimensionMismatch, i, len(row), nFeatures)
		}
	}

	cfg = cfg.withDefaults()
	params := treeParams{
		minSplit: cfg.MinSamplesSplit,
		minLeaf:  cfg.MinSamplesLeaf,
		maxDepth: cfg.MaxDepth,
	}

	trees := make([]*Tree, cfg.Trees)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(i)))
			trees[i] = fitTree(x, y, bootstrap(len(x), rng), params)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Forest{
		trees:       trees,
		nFeatures:   nFeatures,
		importances: aggregateImportances(trees, nFeatures),
	}, nil
}

// aggregateImportances normalises each tree's impurity decreases, averages
// them across trees and normalises the result to sum to 1. A forest
// without any split spreads importance evenly.
func aggregateImportances(trees []*Tree, nFeatures int) []float64 {
	total := make([]float64, nFeatures)
	for _, t := range trees {
		s := floats.Sum(t.importances)
		if s <= 0 {
			continue
		}
		floats.AddScaled(total, 1/s, t.importances)
	}
	s := floats.Sum(total)
	if s <= 0 {
		for i := range total {
			total[i] = 1 / float64(nFeatures)
		}
		return total
	}
	floats.Scale(1/s, total)
	return total
}

// Predict averages the predictions of every tree.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(x) != f.nFeatures {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrDimensionMismatch, len(x), f.nFeatures)
	}
	var sum float64
	for _, t := range f.trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.trees)), nil
}

// PredictBatch predicts every row of x.
func (f *Forest) PredictBatch(x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i, row := range x {
		p, err := f.Predict(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

// Importances returns the normalised mean decrease in impurity per feature.
func (f *Forest) Importances() []float64 {
	out := make([]float64, len(f.importances))
	copy(out, f.importances)
	return out
}

// NumTrees returns the number of trees.
func (f *Forest) NumTrees() int { return len(f.trees) }

// NumFeatures returns the input width.
func (f *Forest) NumFeatures() int { return f.nFeatures }

// Stats describes the shape of the fitted trees.
type Stats struct {
	Trees     int     `json:"trees"`
	MaxDepth  int     `json:"max_depth"`
	AvgLeaves float64 `json:"avg_leaves"`
}

// Stats reports tree depth and leaf counts.
func (f *Forest) Stats() Stats {
	s := Stats{Trees: len(f.trees)}
	var leaves int
	for _, t := range f.trees {
		s.MaxDepth = max(s.MaxDepth, t.Depth())
		leaves += t.Leaves()
	}
	if len(f.trees) > 0 {
		s.AvgLeaves = float64(leaves) / float64(len(f.trees))
	}
	return s
}
