package estimator

import (
	"fmt"

	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/schema"
)

// Effect of a trip attribute on predicted emissions.
const (
	EffectIncreases = "increases"
	EffectReduces   = "reduces"
	EffectNeutral   = "neutral"
)

// Influence explains how one trip attribute moves the prediction.
type Influence struct {
	Factor string `json:"factor"`
	Value  string `json:"value"`
	Effect string `json:"effect"`
}

// Influences describes the direction each car attribute pushes emissions
// under the generating model.
func Influences(t schema.Trip) []Influence {
	effect := func(raises bool, otherwise string) string {
		if raises {
			return EffectIncreases
		}
		return otherwise
	}
	return []Influence{
		{
			Factor: "vehicle_type",
			Value:  t.VehicleType.String(),
			Effect: effect(t.VehicleType == schema.SUV || t.VehicleType == schema.Luxury, EffectReduces),
		},
		{
			Factor: "vehicle_age",
			Value:  fmt.Sprintf("%d years", t.VehicleAgeYears),
			Effect: effect(t.VehicleAgeYears > 5, EffectNeutral),
		},
		{
			Factor: "season",
			Value:  t.Season.String(),
			Effect: effect(t.Season == schema.Winter || t.Season == schema.Autumn, EffectReduces),
		},
		{
			Factor: "traffic_level",
			Value:  fmt.Sprintf("%d/10", t.TrafficLevel),
			Effect: effect(t.TrafficLevel > 5, EffectNeutral),
		},
	}
}

// Comparison sets the model's estimate for a car trip against the
// baseline per-person figure.
type Comparison struct {
	Trip                schema.Trip  `json:"trip"`
	Travelers           int          `json:"travelers"`
	BaselinePerPersonKg float64      `json:"baseline_per_person_kg"`
	ModelTotalKg        float64      `json:"model_total_kg"`
	ModelPerPersonKg    float64      `json:"model_per_person_kg"`
	DifferenceKg        float64      `json:"difference_kg"`
	PercentDifference   float64      `json:"percent_difference"`
	Direction           string       `json:"direction"`
	Influences          []Influence  `json:"influences"`
	Importances         []Importance `json:"importances"`
}

// Compare predicts t, splits it across travelers and reports the signed
// difference to the baseline. Percent difference is relative to the
// baseline and zero when the baseline is zero.
func (m *Model) Compare(t schema.Trip, travelers int, baselinePerPersonKg float64) (Comparison, error) {
	if travelers < 1 {
		return Comparison{}, fmt.Errorf("%w: got %d", emissions.ErrInvalidTravelerCount, travelers)
	}
	total, err := m.Predict(t)
	if err != nil {
		return Comparison{}, err
	}
	perPerson := total / float64(travelers)
	diff := perPerson - baselinePerPersonKg

	c := Comparison{
		Trip:                t,
		Travelers:           travelers,
		BaselinePerPersonKg: baselinePerPersonKg,
		ModelTotalKg:        total,
		ModelPerPersonKg:    perPerson,
		DifferenceKg:        diff,
		Direction:           "lower",
		Influences:          Influences(t),
		Importances:         m.FeatureImportances(),
	}
	if diff > 0 {
		c.Direction = "higher"
	}
	if baselinePerPersonKg != 0 {
		c.PercentDifference = diff / baselinePerPersonKg * 100
	}
	return c, nil
}
