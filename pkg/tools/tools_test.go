package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/NERVsystems/co2mcp/pkg/core"
	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/geo"
	"github.com/NERVsystems/co2mcp/pkg/monitoring"
	"github.com/NERVsystems/co2mcp/pkg/osm"
	"github.com/NERVsystems/co2mcp/pkg/synth"
	"github.com/NERVsystems/co2mcp/pkg/trip"
)

func newRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// fakeSearcher resolves a fixed set of places.
type fakeSearcher struct {
	places map[string]geo.Location
	err    error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]osm.Place, error) {
	if f.err != nil {
		return nil, f.err
	}
	loc, ok := f.places[strings.ToLower(query)]
	if !ok {
		return nil, nil
	}
	return []osm.Place{{Name: query, DisplayName: query, Location: loc}}, nil
}

func (f *fakeSearcher) Geocode(ctx context.Context, query string) (osm.Place, error) {
	places, err := f.Search(ctx, query, 1)
	if err != nil {
		return osm.Place{}, err
	}
	if len(places) == 0 {
		return osm.Place{}, fmt.Errorf("%w: %q", osm.ErrNotFound, query)
	}
	return places[0], nil
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{places: map[string]geo.Location{
		"berlin":  {Latitude: 52.5170365, Longitude: 13.3888599},
		"münchen": {Latitude: 48.1371079, Longitude: 11.5753822},
	}}
}

var (
	modelOnce sync.Once
	model     *estimator.Model
	modelErr  error
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	modelOnce.Do(func() {
		table, err := synth.Generate(synth.Config{Seed: 3, Samples: 300})
		if err != nil {
			modelErr = err
			return
		}
		model, modelErr = estimator.Train(context.Background(), table, estimator.Config{Trees: 10, Seed: 3, TestFraction: 0.2})
	})
	if modelErr != nil {
		t.Fatalf("Train: %v", modelErr)
	}
	return NewRegistry(slog.Default(), model, newFakeSearcher())
}

func TestToolDefinitions(t *testing.T) {
	r := testRegistry(t)
	want := []string{
		"get_version",
		"compare_trip_emissions",
		"baseline_emissions",
		"predict_car_emissions",
		"feature_importance",
		"geocode_address",
		"geo_distance",
	}
	if diff := cmp.Diff(want, r.GetToolNames()); diff != "" {
		t.Errorf("tool names mismatch (-want +got):\n%s", diff)
	}
	for _, def := range r.GetToolDefinitions() {
		if def.Tool.Name != def.Name {
			t.Errorf("tool %q advertises name %q", def.Name, def.Tool.Name)
		}
		if def.Handler == nil {
			t.Errorf("tool %q has no handler", def.Name)
		}
		if def.Tool.Description == "" {
			t.Errorf("tool %q has no description", def.Name)
		}
	}
}

func TestRegisterToolsOnServer(t *testing.T) {
	r := testRegistry(t)
	var _ mcpserver.ToolHandlerFunc = r.wrapWithTracing("get_version", HandleGetVersion)

	srv := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(false))
	r.RegisterTools(srv)

	tools := srv.ListTools()
	if len(tools) != len(r.GetToolNames()) {
		t.Fatalf("registered %d tools, want %d", len(tools), len(r.GetToolNames()))
	}
	for _, name := range r.GetToolNames() {
		st, ok := tools[name]
		if !ok {
			t.Fatalf("tool %q not registered", name)
		}
		if st.Handler == nil {
			t.Errorf("tool %q registered without handler", name)
		}
	}
}

func TestBaselineEmissions(t *testing.T) {
	tests := []struct {
		name     string
		args     map[string]any
		wantCode core.ErrorCode
		wantRows int
	}{
		{"all modes", map[string]any{"distance_km": 100.0, "travelers": 2}, "", 5},
		{"string modes", map[string]any{"distance_km": 100.0, "modes": "car, Zug"}, "", 2},
		{"array modes", map[string]any{"distance_km": 100.0, "modes": []any{"plane"}}, "", 1},
		{"zero distance", map[string]any{"distance_km": 0.0}, "", 5},
		{"missing distance", map[string]any{}, core.ErrMissingParameter, 0},
		{"negative distance", map[string]any{"distance_km": -1.0}, core.ErrInvalidDistance, 0},
		{"zero travelers", map[string]any{"distance_km": 10.0, "travelers": 0}, core.ErrInvalidTravelerCount, 0},
		{"unknown mode", map[string]any{"distance_km": 10.0, "modes": []any{"teleport"}}, core.ErrUnknownTransportMode, 0},
		{"bad modes type", map[string]any{"distance_km": 10.0, "modes": 5}, core.ErrInvalidInput, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := HandleBaselineEmissions(context.Background(), newRequest("baseline_emissions", tt.args))
			if err != nil {
				t.Fatalf("unexpected Go error: %v", err)
			}
			if tt.wantCode != "" {
				AssertErrorCode(t, res, tt.wantCode)
				return
			}
			AssertSuccessResult(t, res, "baseline_emissions failed")
			var out BaselineOutput
			if err := ParseResultJSON(res, &out); err != nil {
				t.Fatal(err)
			}
			if len(out.Rows) != tt.wantRows {
				t.Errorf("got %d rows, want %d", len(out.Rows), tt.wantRows)
			}
		})
	}
}

func TestBaselineValues(t *testing.T) {
	res, _ := HandleBaselineEmissions(context.Background(), newRequest("baseline_emissions", map[string]any{
		"distance_km": 100.0,
		"modes":       []any{"car"},
		"travelers":   2,
	}))
	AssertSuccessResult(t, res, "baseline_emissions failed")
	var out BaselineOutput
	if err := ParseResultJSON(res, &out); err != nil {
		t.Fatal(err)
	}
	row := out.Rows[0]
	if row.Mode != emissions.Car {
		t.Fatalf("mode = %v, want car", row.Mode)
	}
	if math.Abs(row.DistanceKm-120) > 1e-9 || math.Abs(row.TotalCO2Kg-20.4) > 1e-9 || math.Abs(row.CO2PerPersonKg-10.2) > 1e-9 {
		t.Errorf("unexpected car row %+v", row)
	}
	if out.Savings != nil {
		t.Error("savings need two modes")
	}
}

func TestCompareTrip(t *testing.T) {
	r := testRegistry(t)
	res, err := r.HandleCompareTrip(context.Background(), newRequest("compare_trip_emissions", map[string]any{
		"from":          "Berlin",
		"to":            "München",
		"travelers":     2,
		"vehicle_type":  "SUV",
		"vehicle_age":   8,
		"season":        "Winter",
		"traffic_level": 7,
	}))
	if err != nil {
		t.Fatal(err)
	}
	AssertSuccessResult(t, res, "compare_trip_emissions failed")

	var out trip.Result
	if err := ParseResultJSON(res, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Rows) != 5 {
		t.Errorf("got %d rows, want 5", len(out.Rows))
	}
	if out.Model == nil {
		t.Fatal("expected model comparison")
	}
	if out.Savings == nil || out.Savings.Lowest.Mode != emissions.Train {
		t.Errorf("unexpected savings %+v", out.Savings)
	}
}

func TestCompareTripVehicleNotices(t *testing.T) {
	vehicle := map[string]any{
		"from":          "Berlin",
		"to":            "München",
		"vehicle_type":  "SUV",
		"vehicle_age":   8,
		"season":        "Winter",
		"traffic_level": 7,
	}
	tests := []struct {
		name     string
		registry *Registry
		modes    string
		want     string
	}{
		{"no car mode", testRegistry(t), "train,plane", trip.NoticeModelNeedsCar},
		{"no model", NewRegistry(slog.Default(), nil, newFakeSearcher()), "car", trip.NoticeModelUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{"modes": tt.modes}
			for k, v := range vehicle {
				args[k] = v
			}
			res, err := tt.registry.HandleCompareTrip(context.Background(), newRequest("compare_trip_emissions", args))
			if err != nil {
				t.Fatal(err)
			}
			AssertSuccessResult(t, res, "compare_trip_emissions failed")
			var out trip.Result
			if err := ParseResultJSON(res, &out); err != nil {
				t.Fatal(err)
			}
			if out.Model != nil {
				t.Error("unexpected model comparison")
			}
			if diff := cmp.Diff([]string{tt.want}, out.Notices); diff != "" {
				t.Errorf("notices mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCompareTripErrors(t *testing.T) {
	r := testRegistry(t)
	tests := []struct {
		name string
		args map[string]any
		want core.ErrorCode
	}{
		{"unknown start", map[string]any{"from": "Xyzzy", "to": "Berlin"}, core.ErrLocationNotFound},
		{"missing to", map[string]any{"from": "Berlin"}, core.ErrMissingParameter},
		{"partial vehicle", map[string]any{"from": "Berlin", "to": "München", "vehicle_type": "SUV"}, core.ErrInvalidVehicle},
		{"bad season", map[string]any{"from": "Berlin", "to": "München", "vehicle_type": "SUV", "vehicle_age": 2, "season": "monsoon", "traffic_level": 3}, core.ErrInvalidVehicle},
		{"bad travelers", map[string]any{"from": "Berlin", "to": "München", "travelers": -1}, core.ErrInvalidTravelerCount},
		{"vehicle out of range without car", map[string]any{"from": "Berlin", "to": "München", "modes": "train,plane", "vehicle_type": "SUV", "vehicle_age": 99, "season": "Winter", "traffic_level": 50}, core.ErrInvalidVehicle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.HandleCompareTrip(context.Background(), newRequest("compare_trip_emissions", tt.args))
			if err != nil {
				t.Fatal(err)
			}
			AssertErrorCode(t, res, tt.want)
		})
	}
}

func TestCompareTripGeocoderDown(t *testing.T) {
	fake := newFakeSearcher()
	fake.err = errors.New("dial tcp: connection refused")
	r := NewRegistry(slog.Default(), nil, fake)
	res, err := r.HandleCompareTrip(context.Background(), newRequest("compare_trip_emissions", map[string]any{
		"from": "Berlin",
		"to":   "München",
	}))
	if err != nil {
		t.Fatal(err)
	}
	AssertErrorCode(t, res, core.ErrComputationFailed)
}

func TestPredictCarEmissions(t *testing.T) {
	r := testRegistry(t)
	args := map[string]any{
		"distance_km":   250.0,
		"vehicle_type":  "Kleinwagen",
		"vehicle_age":   3,
		"season":        "Sommer",
		"traffic_level": 2,
		"travelers":     2,
	}
	res, err := r.HandlePredictCarEmissions(context.Background(), newRequest("predict_car_emissions", args))
	if err != nil {
		t.Fatal(err)
	}
	AssertSuccessResult(t, res, "predict_car_emissions failed")
	var out PredictOutput
	if err := ParseResultJSON(res, &out); err != nil {
		t.Fatal(err)
	}
	if out.CO2Kg <= 0 {
		t.Errorf("CO2Kg = %v, want positive", out.CO2Kg)
	}
	if out.PerPersonKg != out.CO2Kg/2 {
		t.Errorf("PerPersonKg = %v, want %v", out.PerPersonKg, out.CO2Kg/2)
	}
	if len(out.Influences) != 4 {
		t.Errorf("got %d influences, want 4", len(out.Influences))
	}

	args["vehicle_age"] = 25
	res, _ = r.HandlePredictCarEmissions(context.Background(), newRequest("predict_car_emissions", args))
	AssertErrorCode(t, res, core.ErrInvalidVehicle)
}

func TestModelToolsWithoutModel(t *testing.T) {
	r := NewRegistry(slog.Default(), nil, nil)
	res, _ := r.HandleFeatureImportance(context.Background(), newRequest("feature_importance", nil))
	AssertErrorCode(t, res, core.ErrServiceUnavailable)

	res, _ = r.HandlePredictCarEmissions(context.Background(), newRequest("predict_car_emissions", map[string]any{"distance_km": 1.0}))
	AssertErrorCode(t, res, core.ErrServiceUnavailable)
}

func TestFeatureImportance(t *testing.T) {
	r := testRegistry(t)
	res, _ := r.HandleFeatureImportance(context.Background(), newRequest("feature_importance", nil))
	AssertSuccessResult(t, res, "feature_importance failed")
	var out ImportanceOutput
	if err := ParseResultJSON(res, &out); err != nil {
		t.Fatal(err)
	}
	if len(out.Features) != len(out.Model.Columns) {
		t.Errorf("%d importances for %d columns", len(out.Features), len(out.Model.Columns))
	}
	var sum float64
	for i, f := range out.Features {
		sum += f.Score
		if i > 0 && f.Score > out.Features[i-1].Score {
			t.Errorf("importances not sorted at %d", i)
		}
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Errorf("importances sum to %v, want 1", sum)
	}
	if out.Features[0].Feature != "distance" {
		t.Errorf("top feature = %q, want distance", out.Features[0].Feature)
	}
}

func TestGeocodeAddress(t *testing.T) {
	r := testRegistry(t)
	tests := []struct {
		name       string
		address    string
		wantCode   core.ErrorCode
		wantFormat string
	}{
		{"place", "Berlin", "", ""},
		{"decimal coordinates", "52.52, 13.405", "", "decimal"},
		{"unknown", "Atlantis", core.ErrLocationNotFound, ""},
		{"empty", "  ", core.ErrEmptyParameter, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.HandleGeocodeAddress(context.Background(), newRequest("geocode_address", map[string]any{"address": tt.address}))
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantCode != "" {
				AssertErrorCode(t, res, tt.wantCode)
				return
			}
			AssertSuccessResult(t, res, "geocode_address failed")
			var out GeocodeAddressOutput
			if err := ParseResultJSON(res, &out); err != nil {
				t.Fatal(err)
			}
			if len(out.Results) != 1 {
				t.Fatalf("got %d results", len(out.Results))
			}
			if tt.wantFormat != "" && !strings.EqualFold(out.Format, tt.wantFormat) {
				t.Errorf("format = %q, want %q", out.Format, tt.wantFormat)
			}
		})
	}
}

func TestGeoDistance(t *testing.T) {
	tests := []struct {
		name     string
		from, to any
		wantKm   float64
		tol      float64
		wantCode core.ErrorCode
	}{
		{
			name:   "Zurich to Berlin",
			from:   map[string]any{"latitude": 47.3769, "longitude": 8.5417},
			to:     map[string]any{"latitude": 52.52, "longitude": 13.405},
			wantKm: 670,
			tol:    10,
		},
		{
			name:   "same point",
			from:   map[string]any{"latitude": 10.0, "longitude": 10.0},
			to:     map[string]any{"latitude": 10.0, "longitude": 10.0},
			wantKm: 0,
			tol:    1e-9,
		},
		{
			name:     "missing to",
			from:     map[string]any{"latitude": 10.0, "longitude": 10.0},
			wantCode: core.ErrMissingParameter,
		},
		{
			name:     "bad latitude",
			from:     map[string]any{"latitude": 91.0, "longitude": 10.0},
			to:       map[string]any{"latitude": 10.0, "longitude": 10.0},
			wantCode: core.ErrInvalidLatitude,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]any{"from": tt.from}
			if tt.to != nil {
				args["to"] = tt.to
			}
			res, err := HandleGeoDistance(context.Background(), newRequest("geo_distance", args))
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantCode != "" {
				AssertErrorCode(t, res, tt.wantCode)
				return
			}
			var out GeoDistanceOutput
			if err := ParseResultJSON(res, &out); err != nil {
				t.Fatal(err)
			}
			if math.Abs(out.DistanceKm-tt.wantKm) > tt.tol {
				t.Errorf("DistanceKm = %v, want %v±%v", out.DistanceKm, tt.wantKm, tt.tol)
			}
		})
	}
}

func TestGetVersion(t *testing.T) {
	res, err := HandleGetVersion(context.Background(), newRequest("get_version", nil))
	if err != nil {
		t.Fatal(err)
	}
	var out VersionInfo
	if err := ParseResultJSON(res, &out); err != nil {
		t.Fatal(err)
	}
	if out.Version == "" || out.GoVersion == "" {
		t.Errorf("incomplete version info %+v", out)
	}
}

func TestWrapWithTracingRecordsMetrics(t *testing.T) {
	r := NewRegistry(slog.Default(), nil, nil)
	ok := r.wrapWithTracing("test_tool_ok", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("{}"), nil
	})
	failing := r.wrapWithTracing("test_tool_fail", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return core.NewError(core.ErrInternalError, "boom").ToMCPResult(), nil
	})

	ok(context.Background(), newRequest("test_tool_ok", nil))
	failing(context.Background(), newRequest("test_tool_fail", nil))

	if got := testutil.ToFloat64(monitoring.MCPRequestsTotal.WithLabelValues("test_tool_ok", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(monitoring.MCPRequestsTotal.WithLabelValues("test_tool_fail", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}
