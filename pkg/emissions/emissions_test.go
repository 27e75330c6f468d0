package emissions

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const tolerance = 1e-9

func TestEstimateScenarios(t *testing.T) {
	tests := []struct {
		name          string
		directKm      float64
		mode          Mode
		travelers     int
		wantDistance  float64
		wantTotal     float64
		wantPerPerson float64
	}{
		{"train 100km", 100, Train, 1, 130.0, 5.2, 5.2},
		{"plane 100km", 100, Plane, 1, 100.0, 24.0, 24.0},
		{"car 50km two travelers", 50, Car, 2, 60.0, 10.2, 5.1},
		{"bus 10km", 10, Bus, 1, 13.0, 0.91, 0.91},
		{"motorcycle zero distance", 0, Motorcycle, 3, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row, err := Estimate(tt.directKm, tt.mode, tt.travelers)
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}
			if math.Abs(row.DistanceKm-tt.wantDistance) > tolerance {
				t.Errorf("distance = %v, want %v", row.DistanceKm, tt.wantDistance)
			}
			if math.Abs(row.TotalCO2Kg-tt.wantTotal) > tolerance {
				t.Errorf("total = %v, want %v", row.TotalCO2Kg, tt.wantTotal)
			}
			if math.Abs(row.CO2PerPersonKg-tt.wantPerPerson) > tolerance {
				t.Errorf("per person = %v, want %v", row.CO2PerPersonKg, tt.wantPerPerson)
			}
		})
	}
}

func TestEstimateFormulaHoldsForAllModes(t *testing.T) {
	for _, m := range AllModes() {
		for _, km := range []float64{0, 1, 37.5, 812} {
			for travelers := 1; travelers <= 4; travelers++ {
				row, err := Estimate(km, m, travelers)
				if err != nil {
					t.Fatalf("%s: %v", m, err)
				}
				df, _ := DistanceFactor(m)
				ef, _ := EmissionFactor(m)
				if math.Abs(row.DistanceKm-km*df) > tolerance {
					t.Errorf("%s %vkm: distance %v != %v", m, km, row.DistanceKm, km*df)
				}
				if math.Abs(row.TotalCO2Kg-row.DistanceKm*ef) > tolerance {
					t.Errorf("%s %vkm: total %v != distance*factor", m, km, row.TotalCO2Kg)
				}
				if math.Abs(row.CO2PerPersonKg-row.TotalCO2Kg/float64(travelers)) > tolerance {
					t.Errorf("%s %vkm: per person %v != total/%d", m, km, row.CO2PerPersonKg, travelers)
				}
			}
		}
	}
}

func TestEstimateErrors(t *testing.T) {
	tests := []struct {
		name      string
		km        float64
		mode      Mode
		travelers int
		want      error
	}{
		{"zero travelers", 10, Car, 0, ErrInvalidTravelerCount},
		{"negative travelers", 10, Car, -2, ErrInvalidTravelerCount},
		{"negative distance", -1, Car, 1, ErrInvalidDistance},
		{"nan distance", math.NaN(), Car, 1, ErrInvalidDistance},
		{"zero mode", 10, Mode(0), 1, ErrUnknownTransportMode},
		{"out of range mode", 10, Mode(42), 1, ErrUnknownTransportMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Estimate(tt.km, tt.mode, tt.travelers)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompareKeepsOrder(t *testing.T) {
	modes := []Mode{Bus, Car, Train}
	rows, err := Compare(100, modes, 1)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]Mode, len(rows))
	for i, r := range rows {
		got[i] = r.Mode
	}
	if diff := cmp.Diff(modes, got); diff != "" {
		t.Errorf("mode order mismatch (-want +got):\n%s", diff)
	}

	if _, err := Compare(100, []Mode{Car, Mode(9)}, 1); !errors.Is(err, ErrUnknownTransportMode) {
		t.Errorf("expected unknown mode error, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in   string
		want Mode
	}{
		{"car", Car},
		{"Auto", Car},
		{" PLANE ", Plane},
		{"Flugzeug", Plane},
		{"zug", Train},
		{"rail", Train},
		{"Bus", Bus},
		{"Motorrad", Motorcycle},
		{"motorbike", Motorcycle},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if err != nil {
				t.Fatalf("ParseMode(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}

	if _, err := ParseMode("hovercraft"); !errors.Is(err, ErrUnknownTransportMode) {
		t.Errorf("expected ErrUnknownTransportMode, got %v", err)
	}
}

func TestParseModes(t *testing.T) {
	all, err := ParseModes(nil)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(AllModes(), all); diff != "" {
		t.Errorf("empty list should yield all modes (-want +got):\n%s", diff)
	}

	got, err := ParseModes([]string{"Zug", "car", "train"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]Mode{Train, Car}, got); diff != "" {
		t.Errorf("duplicates should collapse (-want +got):\n%s", diff)
	}
}

func TestModeJSON(t *testing.T) {
	data, err := json.Marshal(Row{Mode: Train, DistanceKm: 1})
	if err != nil {
		t.Fatal(err)
	}
	var back Row
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Mode != Train {
		t.Errorf("mode = %v, want train", back.Mode)
	}
	if _, err := json.Marshal(Row{Mode: Mode(0)}); err == nil {
		t.Error("expected error marshaling invalid mode")
	}
}

func TestFindSavings(t *testing.T) {
	rows, err := Compare(100, []Mode{Car, Plane, Train}, 1)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := FindSavings(rows)
	if !ok {
		t.Fatal("expected savings for three rows")
	}
	if s.Lowest.Mode != Train || s.Highest.Mode != Plane {
		t.Errorf("lowest=%v highest=%v, want train and plane", s.Lowest.Mode, s.Highest.Mode)
	}
	if math.Abs(s.SavingsKg-18.8) > tolerance {
		t.Errorf("savings = %v, want 18.8", s.SavingsKg)
	}
	if math.Abs(s.PercentReduction-18.8/24*100) > tolerance {
		t.Errorf("percent = %v", s.PercentReduction)
	}

	if _, ok := FindSavings(rows[:1]); ok {
		t.Error("single row should not produce savings")
	}
}

func TestEquivalents(t *testing.T) {
	rows := []Row{{Mode: Plane, CO2PerPersonKg: 42}}
	want := []Equivalent{{Mode: Plane, CO2Kg: 42, TreesPerYear: 2, PersonDays: 4.2}}
	if diff := cmp.Diff(want, Equivalents(rows), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Equivalents mismatch (-want +got):\n%s", diff)
	}
}

func TestTipsReturnsCopy(t *testing.T) {
	a := Tips()
	if len(a) != 5 {
		t.Fatalf("got %d tips, want 5", len(a))
	}
	a[0] = "mutated"
	if Tips()[0] == "mutated" {
		t.Error("Tips exposes internal slice")
	}
}
