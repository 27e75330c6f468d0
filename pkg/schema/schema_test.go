package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestColumnsFixedOrder(t *testing.T) {
	want := []string{
		"distance", "vehicle_age", "traffic_level",
		"vehicle_type_Compact", "vehicle_type_MidSize", "vehicle_type_SUV", "vehicle_type_Luxury",
		"season_Spring", "season_Summer", "season_Autumn", "season_Winter",
	}
	if diff := cmp.Diff(want, Columns()); diff != "" {
		t.Errorf("Columns mismatch (-want +got):\n%s", diff)
	}
	if NumFeatures() != len(want) {
		t.Errorf("NumFeatures = %d, want %d", NumFeatures(), len(want))
	}

	c := Columns()
	c[0] = "mutated"
	if Columns()[0] != "distance" {
		t.Error("Columns exposes internal slice")
	}
}

func TestEncode(t *testing.T) {
	v, err := Encode(Trip{DistanceKm: 120, VehicleAgeYears: 7, VehicleType: SUV, Season: Winter, TrafficLevel: 4})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{120, 7, 4, 0, 0, 1, 0, 0, 0, 0, 1}
	if diff := cmp.Diff(want, v.Values); diff != "" {
		t.Errorf("Values mismatch (-want +got):\n%s", diff)
	}
	if err := Check(v); err != nil {
		t.Errorf("Check on encoded vector: %v", err)
	}
}

func TestValuesUnknownCategoryIsAllZero(t *testing.T) {
	x := Values(Trip{DistanceKm: 1, TrafficLevel: 1})
	for i := 3; i < len(x); i++ {
		if x[i] != 0 {
			t.Errorf("column %s = %v, want 0", columns[i], x[i])
		}
	}
}

func TestCheckRejectsMismatch(t *testing.T) {
	good, _ := Encode(Trip{DistanceKm: 1, VehicleType: Compact, Season: Spring, TrafficLevel: 1})

	reordered := Vector{Columns: Columns(), Values: good.Values}
	reordered.Columns[0], reordered.Columns[1] = reordered.Columns[1], reordered.Columns[0]

	tests := []struct {
		name string
		v    Vector
	}{
		{"reordered", reordered},
		{"missing column", Vector{Columns: Columns()[:10], Values: good.Values[:10]}},
		{"extra column", Vector{Columns: append(Columns(), "color"), Values: append(good.Values, 1)}},
		{"short values", Vector{Columns: Columns(), Values: good.Values[:5]}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Check(tt.v); !errors.Is(err, ErrColumnMismatch) {
				t.Errorf("err = %v, want ErrColumnMismatch", err)
			}
		})
	}
}

func TestParse(t *testing.T) {
	vt := map[string]VehicleType{
		"compact": Compact, "Kleinwagen": Compact, "midsize": MidSize, "Mittelklasse": MidSize,
		"suv": SUV, "LUXURY": Luxury, "Luxusklasse": Luxury,
	}
	for in, want := range vt {
		got, err := ParseVehicleType(in)
		if err != nil || got != want {
			t.Errorf("ParseVehicleType(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	se := map[string]Season{
		"spring": Spring, "Frühling": Spring, "Sommer": Summer, "fall": Autumn, "Herbst": Autumn, "winter": Winter,
	}
	for in, want := range se {
		got, err := ParseSeason(in)
		if err != nil || got != want {
			t.Errorf("ParseSeason(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseVehicleType("tractor"); !errors.Is(err, ErrUnknownVehicleType) {
		t.Errorf("expected ErrUnknownVehicleType, got %v", err)
	}
	if _, err := ParseSeason("monsoon"); !errors.Is(err, ErrUnknownSeason) {
		t.Errorf("expected ErrUnknownSeason, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	ok := Trip{DistanceKm: 10, VehicleAgeYears: 3, VehicleType: MidSize, Season: Summer, TrafficLevel: 5}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid trip rejected: %v", err)
	}

	tests := []struct {
		name string
		mod  func(*Trip)
		want error
	}{
		{"negative distance", func(t *Trip) { t.DistanceKm = -1 }, ErrInvalidTrip},
		{"old car", func(t *Trip) { t.VehicleAgeYears = 21 }, ErrInvalidTrip},
		{"no traffic", func(t *Trip) { t.TrafficLevel = 0 }, ErrInvalidTrip},
		{"bad type", func(t *Trip) { t.VehicleType = 0 }, ErrUnknownVehicleType},
		{"bad season", func(t *Trip) { t.Season = 9 }, ErrUnknownSeason},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trip := ok
			tt.mod(&trip)
			if err := trip.Validate(); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestTripJSON(t *testing.T) {
	var trip Trip
	in := `{"distance_km": 80, "vehicle_age_years": 2, "vehicle_type": "Luxusklasse", "season": "autumn", "traffic_level": 9}`
	if err := json.Unmarshal([]byte(in), &trip); err != nil {
		t.Fatal(err)
	}
	if trip.VehicleType != Luxury || trip.Season != Autumn {
		t.Errorf("decoded %+v", trip)
	}
	out, err := json.Marshal(trip)
	if err != nil {
		t.Fatal(err)
	}
	if want := `{"distance_km":80,"vehicle_age_years":2,"vehicle_type":"Luxury","season":"Autumn","traffic_level":9}`; string(out) != want {
		t.Errorf("json = %s, want %s", out, want)
	}
}
