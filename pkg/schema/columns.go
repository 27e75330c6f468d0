package schema

import (
	"errors"
	"fmt"
	"slices"
)

// Column names. Numeric features come first, then one-hot indicators for
// every vehicle class and season in declaration order.
const (
	ColDistance     = "distance"
	ColVehicleAge   = "vehicle_age"
	ColTrafficLevel = "traffic_level"
)

// ErrColumnMismatch is returned when a vector's columns differ from Columns.
var ErrColumnMismatch = errors.New("feature columns do not match schema")

var columns = buildColumns()

func buildColumns() []string {
	cols := []string{ColDistance, ColVehicleAge, ColTrafficLevel}
	for _, v := range VehicleTypes() {
		cols = append(cols, VehicleTypeColumn(v))
	}
	for _, s := range Seasons() {
		cols = append(cols, SeasonColumn(s))
	}
	return cols
}

// VehicleTypeColumn names the one-hot column for v.
func VehicleTypeColumn(v VehicleType) string { return "vehicle_type_" + v.String() }

// SeasonColumn names the one-hot column for s.
func SeasonColumn(s Season) string { return "season_" + s.String() }

// Columns returns a copy of the fixed column order.
func Columns() []string { return slices.Clone(columns) }

// NumFeatures is the length of every encoded vector.
func NumFeatures() int { return len(columns) }

// Vector is an encoded trip. Columns names each entry of Values.
type Vector struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// Encode turns a trip into a feature vector in schema order. The matching
// one-hot column is 1 and the others are 0.
func Encode(t Trip) (Vector, error) {
	if err := t.Validate(); err != nil {
		return Vector{}, err
	}
	return Vector{Columns: Columns(), Values: Values(t)}, nil
}

// Values encodes t without validation. Unknown categories leave every
// indicator of their group at zero.
func Values(t Trip) []float64 {
	x := make([]float64, len(columns))
	x[0] = t.DistanceKm
	x[1] = float64(t.VehicleAgeYears)
	x[2] = float64(t.TrafficLevel)
	for i, v := range VehicleTypes() {
		if v == t.VehicleType {
			x[3+i] = 1
		}
	}
	for i, s := range Seasons() {
		if s == t.Season {
			x[7+i] = 1
		}
	}
	return x
}

// Check verifies that v carries exactly the schema columns in order and
// one value per column.
func Check(v Vector) error {
	if !slices.Equal(v.Columns, columns) {
		return fmt.Errorf("%w: got %v, want %v", ErrColumnMismatch, v.Columns, columns)
	}
	if len(v.Values) != len(columns) {
		return fmt.Errorf("%w: %d values for %d columns", ErrColumnMismatch, len(v.Values), len(columns))
	}
	return nil
}
