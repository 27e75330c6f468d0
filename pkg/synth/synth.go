// Package synth generates the seeded synthetic car trip table the
// emissions estimator is trained on.
package synth

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/NERVsystems/co2mcp/pkg/schema"
)

// Generation constants.
const (
	MinDistanceKm   = 10.0
	MaxDistanceKm   = 1000.0
	BaseKgPerKm     = 0.17
	AgeIncrement    = 0.01
	TrafficIncrease = 0.05
	NoiseStdDev     = 5.0
)

// ErrInvalidConfig is returned for a non-positive sample count.
var ErrInvalidConfig = errors.New("invalid generator config")

// Config controls table generation.
type Config struct {
	Seed    uint64
	Samples int
}

// DefaultConfig returns the reference seed and sample count.
func DefaultConfig() Config {
	return Config{Seed: 42, Samples: 1000}
}

// Sample is one training row.
type Sample struct {
	schema.Trip
	CO2Kg float64 `json:"co2_kg"`
}

// ExpectedCO2 returns the noise-free emissions of a trip under the
// generating model.
func ExpectedCO2(t schema.Trip) float64 {
	ageFactor := 1 + AgeIncrement*float64(t.VehicleAgeYears)
	trafficFactor := 1 + TrafficIncrease*float64(t.TrafficLevel-1)
	return t.DistanceKm * BaseKgPerKm * ageFactor * t.VehicleType.Factor() * t.Season.Factor() * trafficFactor
}

// Generate draws cfg.Samples rows from a single stream seeded by cfg.Seed.
// Each feature is drawn for all rows before the next feature, followed by
// the noise terms. Targets are not clamped, so a short trip can end up
// with negative emissions.
func Generate(cfg Config) (*Table, error) {
	if cfg.Samples <= 0 {
		return nil, fmt.Errorf("%w: samples must be positive, got %d", ErrInvalidConfig, cfg.Samples)
	}
	n := cfg.Samples
	src := rand.NewPCG(cfg.Seed, cfg.Seed)
	rng := rand.New(src)

	rows := make([]Sample, n)

	distance := distuv.Uniform{Min: MinDistanceKm, Max: MaxDistanceKm, Src: src}
	for i := range rows {
		rows[i].DistanceKm = distance.Rand()
	}
	for i := range rows {
		rows[i].VehicleAgeYears = schema.MinVehicleAge + rng.IntN(schema.MaxVehicleAge-schema.MinVehicleAge+1)
	}

	types := schema.VehicleTypes()
	typeDist := distuv.NewCategorical(uniformWeights(len(types)), src)
	for i := range rows {
		rows[i].VehicleType = types[int(typeDist.Rand())]
	}

	seasons := schema.Seasons()
	seasonDist := distuv.NewCategorical(uniformWeights(len(seasons)), src)
	for i := range rows {
		rows[i].Season = seasons[int(seasonDist.Rand())]
	}

	for i := range rows {
		rows[i].TrafficLevel = schema.MinTraffic + rng.IntN(schema.MaxTraffic-schema.MinTraffic+1)
	}

	noise := distuv.Normal{Mu: 0, Sigma: NoiseStdDev, Src: src}
	for i := range rows {
		rows[i].CO2Kg = ExpectedCO2(rows[i].Trip) + noise.Rand()
	}

	return newTable(rows), nil
}

func uniformWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
