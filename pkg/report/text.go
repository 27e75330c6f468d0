// Package report renders trip comparisons as text tables and charts.
package report

import (
	"fmt"
	"io"
	"maps"
	"math"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/synth"
	"github.com/NERVsystems/co2mcp/pkg/trip"
)

// WriteRows writes one line per mode.
func WriteRows(w io.Writer, rows []emissions.Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Mode\tDistance (km)\tCO2 per person (kg)\tTotal CO2 (kg)\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t\n", r.Mode, r.DistanceKm, r.CO2PerPersonKg, r.TotalCO2Kg)
	}
	return tw.Flush()
}

// WriteTrip writes a complete trip comparison.
func WriteTrip(w io.Writer, res *trip.Result) error {
	fmt.Fprintf(w, "From: %s (%.5f, %.5f)\n", res.From.Name, res.From.Location.Latitude, res.From.Location.Longitude)
	fmt.Fprintf(w, "To:   %s (%.5f, %.5f)\n", res.To.Name, res.To.Location.Latitude, res.To.Location.Longitude)
	fmt.Fprintf(w, "Direct distance: %.2f km, travelers: %d\n\n", res.DirectDistanceKm, res.Travelers)

	if err := WriteRows(w, res.Rows); err != nil {
		return err
	}

	if s := res.Savings; s != nil {
		fmt.Fprintf(w, "\n%s instead of %s saves %.2f kg CO2 per person (%.1f%%).\n",
			s.Lowest.Mode, s.Highest.Mode, s.SavingsKg, s.PercentReduction)
	}

	if len(res.Equivalents) > 0 {
		fmt.Fprintln(w, "\nEquivalents per person:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		for _, e := range res.Equivalents {
			fmt.Fprintf(tw, "  %s\t%.2f trees for a year\t%.1f days of average emissions\n", e.Mode, e.TreesPerYear, e.PersonDays)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if res.Model != nil {
		fmt.Fprintln(w)
		if err := WriteComparison(w, *res.Model); err != nil {
			return err
		}
	}
	for _, n := range res.Notices {
		fmt.Fprintf(w, "\nNote: %s\n", n)
	}

	fmt.Fprintln(w, "\nTips:")
	for _, tip := range res.Tips {
		fmt.Fprintf(w, "  - %s\n", tip)
	}
	return nil
}

// WriteComparison writes the model estimate against the baseline.
func WriteComparison(w io.Writer, c estimator.Comparison) error {
	fmt.Fprintf(w, "Model estimate (%s, %d years, %s, traffic %d/10): %.2f kg total, %.2f kg per person\n",
		c.Trip.VehicleType, c.Trip.VehicleAgeYears, c.Trip.Season, c.Trip.TrafficLevel,
		c.ModelTotalKg, c.ModelPerPersonKg)
	fmt.Fprintf(w, "That is %.2f kg (%.1f%%) %s than the baseline of %.2f kg per person.\n",
		math.Abs(c.DifferenceKg), math.Abs(c.PercentDifference), c.Direction, c.BaselinePerPersonKg)

	var raising []string
	for _, in := range c.Influences {
		if in.Effect == estimator.EffectIncreases {
			raising = append(raising, fmt.Sprintf("%s (%s)", in.Factor, in.Value))
		}
	}
	if len(raising) > 0 {
		fmt.Fprintf(w, "Raising emissions: %s\n", strings.Join(raising, ", "))
	}
	if len(c.Importances) > 0 {
		return WriteImportances(w, c.Importances)
	}
	return nil
}

// WriteImportances writes the feature ranking with a bar per feature.
func WriteImportances(w io.Writer, imps []estimator.Importance) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Feature\tImportance\t")
	for _, imp := range imps {
		bar := strings.Repeat("#", int(imp.Score*40+0.5))
		fmt.Fprintf(tw, "%s\t%.4f\t%s\n", imp.Feature, imp.Score, bar)
	}
	return tw.Flush()
}

// WriteSummary writes descriptive statistics of a training table.
func WriteSummary(w io.Writer, s synth.Summary) error {
	fmt.Fprintf(w, "Samples: %d (negative CO2 targets: %d)\n\n", s.Samples, s.NegativeCO2)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Column\tMean\tStd dev\tMin\tMax\t")
	for _, c := range []struct {
		name string
		st   synth.ColumnStats
	}{
		{"distance", s.Distance},
		{"vehicle_age", s.VehicleAge},
		{"traffic_level", s.TrafficLevel},
		{"co2_kg", s.CO2},
	} {
		fmt.Fprintf(tw, "%s\t%.2f\t%.2f\t%.2f\t%.2f\t\n", c.name, c.st.Mean, math.Sqrt(c.st.Variance), c.st.Min, c.st.Max)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nVehicle types: %s\n", counts(s.VehicleTypes))
	fmt.Fprintf(w, "Seasons:       %s\n", counts(s.Seasons))
	return nil
}

func counts(m map[string]int) string {
	parts := make([]string, 0, len(m))
	for _, k := range slices.Sorted(maps.Keys(m)) {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}
