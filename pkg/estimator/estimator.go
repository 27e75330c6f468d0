// Package estimator trains the car emissions model on the synthetic table
// and serves predictions from it.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/co2mcp/pkg/forest"
	"github.com/NERVsystems/co2mcp/pkg/monitoring"
	"github.com/NERVsystems/co2mcp/pkg/schema"
	"github.com/NERVsystems/co2mcp/pkg/synth"
	"github.com/NERVsystems/co2mcp/pkg/tracing"
)

// ErrFeatureVectorMismatch is returned when a vector's columns differ from
// the columns the model was trained on.
var ErrFeatureVectorMismatch = errors.New("feature vector does not match training columns")

// Config controls training.
type Config struct {
	Trees        int
	Seed         uint64
	TestFraction float64
	Workers      int
}

// DefaultConfig returns 100 trees, seed 42 and a 20% hold-out.
func DefaultConfig() Config {
	return Config{Trees: 100, Seed: 42, TestFraction: 0.2}
}

// Model is a trained estimator. It is immutable and safe for concurrent use.
type Model struct {
	forest       *forest.Forest
	columns      []string
	trainSamples int
	testSamples  int
	seed         uint64
	trainedAt    time.Time
	holdoutMAE   float64
}

// Info describes a trained model.
type Info struct {
	Trees         int       `json:"trees"`
	TrainSamples  int       `json:"train_samples"`
	TestSamples   int       `json:"test_samples"`
	Seed          uint64    `json:"seed"`
	Columns       []string  `json:"columns"`
	SchemaVersion int       `json:"schema_version"`
	MaxDepth      int       `json:"max_depth"`
	AvgLeaves     float64   `json:"avg_leaves"`
	TrainedAt     time.Time `json:"trained_at"`
}

// Train fits a forest on a shuffled split of table and scores it on the
// held-out rows. The hold-out error is logged and exported as a metric.
func Train(ctx context.Context, table *synth.Table, cfg Config) (*Model, error) {
	if table == nil || table.Len() == 0 {
		return nil, fmt.Errorf("train: %w", forest.ErrEmptyData)
	}
	if cfg.Trees <= 0 {
		cfg.Trees = DefaultConfig().Trees
	}
	if cfg.TestFraction == 0 {
		cfg.TestFraction = DefaultConfig().TestFraction
	}

	ctx, span := tracing.StartSpan(ctx, "estimator.train", trace.WithAttributes(
		tracing.ModelAttributes(cfg.Trees, table.Len(), schema.NumFeatures(), cfg.Seed)...,
	))
	defer span.End()

	logger := slog.Default().With("component", "estimator")
	start := time.Now()
	fail := func(stage string, err error) (*Model, error) {
		tracing.RecordError(ctx, err, trace.WithAttributes(tracing.ErrorAttributes(stage, err)...))
		tracing.SetStatus(ctx, codes.Error, stage+" failed")
		return nil, fmt.Errorf("train: %s: %w", stage, err)
	}

	x, y := table.Matrix()
	trainIdx, testIdx, err := forest.TrainTestSplit(len(x), cfg.TestFraction, cfg.Seed)
	if err != nil {
		return fail("split", err)
	}
	xTrain, yTrain := forest.Subset(x, y, trainIdx)
	xTest, yTest := forest.Subset(x, y, testIdx)

	f, err := forest.Fit(ctx, xTrain, yTrain, forest.Config{
		Trees:           cfg.Trees,
		Seed:            cfg.Seed,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Workers:         cfg.Workers,
	})
	if err != nil {
		return fail("fit", err)
	}

	pred, err := f.PredictBatch(xTest)
	if err != nil {
		return fail("score", err)
	}
	mae, err := forest.MeanAbsoluteError(yTest, pred)
	if err != nil {
		return fail("score", err)
	}

	m := &Model{
		forest:       f,
		columns:      schema.Columns(),
		trainSamples: len(trainIdx),
		testSamples:  len(testIdx),
		seed:         cfg.Seed,
		trainedAt:    time.Now(),
		holdoutMAE:   mae,
	}

	elapsed := time.Since(start)
	monitoring.RecordModelTrained(elapsed, f.NumTrees(), mae)
	span.SetAttributes(attribute.Float64(tracing.AttrModelMAE, mae))
	span.SetStatus(codes.Ok, "")
	logger.Info("model trained",
		"trees", f.NumTrees(),
		"train_samples", m.trainSamples,
		"test_samples", m.testSamples,
		"holdout_mae_kg", mae,
		"duration", elapsed,
	)
	return m, nil
}

// TrainDefault generates the reference table and trains on it.
func TrainDefault(ctx context.Context) (*Model, error) {
	table, err := synth.Generate(synth.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return Train(ctx, table, DefaultConfig())
}

// Columns returns the training-time column order.
func (m *Model) Columns() []string { return slices.Clone(m.columns) }

// Info reports the model's shape and provenance.
func (m *Model) Info() Info {
	st := m.forest.Stats()
	return Info{
		Trees:         m.forest.NumTrees(),
		TrainSamples:  m.trainSamples,
		TestSamples:   m.testSamples,
		Seed:          m.seed,
		Columns:       m.Columns(),
		SchemaVersion: schema.Version,
		MaxDepth:      st.MaxDepth,
		AvgLeaves:     st.AvgLeaves,
		TrainedAt:     m.trainedAt,
	}
}

// Predict estimates total trip emissions in kg. Divide by the number of
// travelers for a per-person figure.
func (m *Model) Predict(t schema.Trip) (float64, error) {
	v, err := schema.Encode(t)
	if err != nil {
		return 0, err
	}
	co2, err := m.PredictVector(v)
	if err != nil {
		return 0, err
	}
	monitoring.RecordPrediction(t.VehicleType.String(), t.Season.String())
	return co2, nil
}

// PredictVector estimates emissions for a pre-encoded vector. The vector's
// columns must equal the training columns in content and order.
func (m *Model) PredictVector(v schema.Vector) (float64, error) {
	if !slices.Equal(v.Columns, m.columns) || len(v.Values) != len(m.columns) {
		return 0, fmt.Errorf("%w: got columns %v with %d values, want %v",
			ErrFeatureVectorMismatch, v.Columns, len(v.Values), m.columns)
	}
	co2, err := m.forest.Predict(v.Values)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFeatureVectorMismatch, err)
	}
	return co2, nil
}

// Importance is one feature's share of the model's impurity reduction.
type Importance struct {
	Feature string  `json:"feature"`
	Score   float64 `json:"score"`
}

// FeatureImportances returns scores in [0, 1] summing to 1, highest first.
// Ties keep column order.
func (m *Model) FeatureImportances() []Importance {
	scores := m.forest.Importances()
	out := make([]Importance, len(scores))
	for i, s := range scores {
		out[i] = Importance{Feature: m.columns[i], Score: s}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
