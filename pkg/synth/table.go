package synth

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/NERVsystems/co2mcp/pkg/schema"
)

// Table is a generated training set.
type Table struct {
	Samples []Sample

	// PresentVehicleTypes and PresentSeasons list the categories that
	// occur at least once, in schema order.
	PresentVehicleTypes []schema.VehicleType
	PresentSeasons      []schema.Season
}

func newTable(rows []Sample) *Table {
	t := &Table{Samples: rows}
	seenType := make(map[schema.VehicleType]bool)
	seenSeason := make(map[schema.Season]bool)
	for _, r := range rows {
		seenType[r.VehicleType] = true
		seenSeason[r.Season] = true
	}
	for _, v := range schema.VehicleTypes() {
		if seenType[v] {
			t.PresentVehicleTypes = append(t.PresentVehicleTypes, v)
		}
	}
	for _, s := range schema.Seasons() {
		if seenSeason[s] {
			t.PresentSeasons = append(t.PresentSeasons, s)
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Samples) }

// Columns returns the feature column order used by Matrix.
func (t *Table) Columns() []string { return schema.Columns() }

// PresentColumns lists the one-hot columns whose category occurs in the
// table, in schema order.
func (t *Table) PresentColumns() []string {
	var cols []string
	for _, v := range t.PresentVehicleTypes {
		cols = append(cols, schema.VehicleTypeColumn(v))
	}
	for _, s := range t.PresentSeasons {
		cols = append(cols, schema.SeasonColumn(s))
	}
	return cols
}

// Matrix encodes every row. x[i] follows Columns and y[i] is the target.
func (t *Table) Matrix() (x [][]float64, y []float64) {
	x = make([][]float64, len(t.Samples))
	y = make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		x[i] = schema.Values(s.Trip)
		y[i] = s.CO2Kg
	}
	return x, y
}

// ColumnStats summarises one numeric column.
type ColumnStats struct {
	Mean     float64 `json:"mean"`
	Variance float64 `json:"variance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Summary holds per-column statistics and category counts.
type Summary struct {
	Samples      int            `json:"samples"`
	Distance     ColumnStats    `json:"distance_km"`
	VehicleAge   ColumnStats    `json:"vehicle_age_years"`
	TrafficLevel ColumnStats    `json:"traffic_level"`
	CO2          ColumnStats    `json:"co2_kg"`
	VehicleTypes map[string]int `json:"vehicle_types"`
	Seasons      map[string]int `json:"seasons"`
	NegativeCO2  int            `json:"negative_co2"`
}

func columnStats(v []float64) ColumnStats {
	mean, variance := stat.MeanVariance(v, nil)
	return ColumnStats{Mean: mean, Variance: variance, Min: floats.Min(v), Max: floats.Max(v)}
}

// Summary computes mean, variance and range of the numeric columns.
func (t *Table) Summary() Summary {
	n := len(t.Samples)
	dist := make([]float64, n)
	age := make([]float64, n)
	traffic := make([]float64, n)
	co2 := make([]float64, n)
	s := Summary{
		Samples:      n,
		VehicleTypes: make(map[string]int),
		Seasons:      make(map[string]int),
	}
	for i, r := range t.Samples {
		dist[i] = r.DistanceKm
		age[i] = float64(r.VehicleAgeYears)
		traffic[i] = float64(r.TrafficLevel)
		co2[i] = r.CO2Kg
		s.VehicleTypes[r.VehicleType.String()]++
		s.Seasons[r.Season.String()]++
		if r.CO2Kg < 0 {
			s.NegativeCO2++
		}
	}
	if n == 0 {
		return s
	}
	s.Distance = columnStats(dist)
	s.VehicleAge = columnStats(age)
	s.TrafficLevel = columnStats(traffic)
	s.CO2 = columnStats(co2)
	return s
}

// WriteCSV writes the table with a header row in raw form, not one-hot.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"distance", "vehicle_age", "vehicle_type", "season", "traffic_level", "co2_kg"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, s := range t.Samples {
		rec := []string{
			strconv.FormatFloat(s.DistanceKm, 'f', 4, 64),
			strconv.Itoa(s.VehicleAgeYears),
			s.VehicleType.String(),
			s.Season.String(),
			strconv.Itoa(s.TrafficLevel),
			strconv.FormatFloat(s.CO2Kg, 'f', 4, 64),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
