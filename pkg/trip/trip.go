// Package trip plans a journey between two places and compares the CO2
// footprint of the selected transport modes.
package trip

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/NERVsystems/co2mcp/pkg/coords"
	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/geo"
	"github.com/NERVsystems/co2mcp/pkg/monitoring"
	"github.com/NERVsystems/co2mcp/pkg/osm"
	"github.com/NERVsystems/co2mcp/pkg/schema"
	"github.com/NERVsystems/co2mcp/pkg/tracing"
)

var (
	// ErrLocationNotFound means an endpoint could not be resolved.
	ErrLocationNotFound = errors.New("location not found")

	// ErrComputationFailed means resolution or estimation failed for a
	// reason other than bad input.
	ErrComputationFailed = errors.New("trip computation failed")

	// ErrInvalidRequest means the request itself is malformed.
	ErrInvalidRequest = errors.New("invalid trip request")
)

// Notices explaining why requested vehicle details were not evaluated.
const (
	NoticeModelNeedsCar    = "The model comparison is only available for car trips; add car to the modes to use the vehicle details."
	NoticeModelUnavailable = "The emissions model is not loaded; the vehicle details were not evaluated."
)

// Endpoint sources.
const (
	SourceCoordinates = "coordinates"
	SourceGeocoder    = "geocoder"
)

// Geocoder resolves a free-form place name.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (osm.Place, error)
}

// VehicleDetails describes the car used for the journey. When present the
// car row is also estimated by the trained model.
type VehicleDetails struct {
	Type         schema.VehicleType `json:"vehicle_type"`
	AgeYears     int                `json:"vehicle_age_years"`
	Season       schema.Season      `json:"season"`
	TrafficLevel int                `json:"traffic_level"`
}

// Request is a trip calculation request.
type Request struct {
	From      string
	To        string
	Modes     []emissions.Mode
	Travelers int
	Vehicle   *VehicleDetails
}

// Endpoint is a resolved start or destination.
type Endpoint struct {
	Query    string       `json:"query"`
	Name     string       `json:"name"`
	Location geo.Location `json:"location"`
	Source   string       `json:"source"`
}

// Result is a complete trip calculation.
type Result struct {
	From             Endpoint               `json:"from"`
	To               Endpoint               `json:"to"`
	DirectDistanceKm float64                `json:"direct_distance_km"`
	Travelers        int                    `json:"travelers"`
	Rows             []emissions.Row        `json:"rows"`
	Savings          *emissions.Savings     `json:"savings,omitempty"`
	Equivalents      []emissions.Equivalent `json:"equivalents"`
	Tips             []string               `json:"tips"`
	Model            *estimator.Comparison  `json:"model,omitempty"`
	Notices          []string               `json:"notices,omitempty"`
}

// Planner resolves endpoints and runs the emissions calculations.
type Planner struct {
	geocoder Geocoder
	model    *estimator.Model
	logger   *slog.Logger
}

// NewPlanner creates a planner. model may be nil, in which case vehicle
// details are ignored.
func NewPlanner(geocoder Geocoder, model *estimator.Model) *Planner {
	return &Planner{
		geocoder: geocoder,
		model:    model,
		logger:   slog.Default().With("component", "trip"),
	}
}

// Model returns the planner's estimator, or nil.
func (p *Planner) Model() *estimator.Model { return p.model }

func (r Request) validate() error {
	if strings.TrimSpace(r.From) == "" || strings.TrimSpace(r.To) == "" {
		return fmt.Errorf("%w: start and destination are required", ErrInvalidRequest)
	}
	if r.Travelers < 1 {
		return fmt.Errorf("%w: got %d", emissions.ErrInvalidTravelerCount, r.Travelers)
	}
	if len(r.Modes) == 0 {
		return fmt.Errorf("%w: at least one transport mode is required", ErrInvalidRequest)
	}
	for _, m := range r.Modes {
		if !m.Valid() {
			return fmt.Errorf("%w: %d", emissions.ErrUnknownTransportMode, uint8(m))
		}
	}
	if v := r.Vehicle; v != nil {
		t := schema.Trip{VehicleAgeYears: v.AgeYears, VehicleType: v.Type, Season: v.Season, TrafficLevel: v.TrafficLevel}
		if err := t.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
	}
	return nil
}

// UsesModel reports whether the request asks for a model comparison the
// planner can make: vehicle details with car among the modes.
func (r Request) UsesModel() bool {
	return r.Vehicle != nil && slices.Contains(r.Modes, emissions.Car)
}

// Plan resolves both endpoints, measures the direct distance and estimates
// every requested mode. Nothing is computed when either endpoint cannot be
// resolved.
func (p *Planner) Plan(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "trip.plan", trace.WithAttributes(
		attribute.Int(tracing.AttrTripTravelers, req.Travelers),
		attribute.Int(tracing.AttrTripModes, len(req.Modes)),
	))
	defer span.End()

	res, err := p.plan(ctx, req)
	status := "success"
	switch {
	case err == nil:
	case errors.Is(err, ErrLocationNotFound):
		status = "not_found"
	case errors.Is(err, ErrComputationFailed):
		status = "error"
	default:
		status = "invalid"
	}
	monitoring.RecordTripCalculation(status)

	if err != nil {
		tracing.RecordError(ctx, err, trace.WithAttributes(tracing.ErrorAttributes(status, err)...))
		tracing.SetStatus(ctx, codes.Error, status)
		p.logger.Info("trip calculation failed", "from", req.From, "to", req.To, "status", status, "error", err)
		return nil, err
	}
	span.SetAttributes(attribute.Float64(tracing.AttrTripDistance, res.DirectDistanceKm))
	tracing.SetStatus(ctx, codes.Ok, "")
	p.logger.Info("trip calculated",
		"from", res.From.Name,
		"to", res.To.Name,
		"distance_km", res.DirectDistanceKm,
		"modes", len(res.Rows),
		"duration", time.Since(start))
	return res, nil
}

func (p *Planner) plan(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var from, to Endpoint
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		from, err = p.resolve(gctx, req.From)
		return err
	})
	g.Go(func() (err error) {
		to, err = p.resolve(gctx, req.To)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	direct := roundKm(geo.GeodesicKm(from.Location, to.Location))
	rows, err := emissions.Compare(direct, req.Modes, req.Travelers)
	if err != nil {
		return nil, err
	}

	res := &Result{
		From:             from,
		To:               to,
		DirectDistanceKm: direct,
		Travelers:        req.Travelers,
		Rows:             rows,
		Equivalents:      emissions.Equivalents(rows),
		Tips:             emissions.Tips(),
	}
	if s, ok := emissions.FindSavings(rows); ok {
		res.Savings = &s
	}

	switch {
	case req.Vehicle == nil:
	case !req.UsesModel():
		res.Notices = append(res.Notices, NoticeModelNeedsCar)
	case p.model == nil:
		res.Notices = append(res.Notices, NoticeModelUnavailable)
	default:
		car, _ := findRow(rows, emissions.Car)
		cmp, err := p.compareCar(car, req.Travelers, *req.Vehicle)
		if err != nil {
			return nil, err
		}
		res.Model = &cmp
	}
	return res, nil
}

func (p *Planner) compareCar(car emissions.Row, travelers int, v VehicleDetails) (estimator.Comparison, error) {
	t := schema.Trip{
		DistanceKm:      car.DistanceKm,
		VehicleAgeYears: v.AgeYears,
		VehicleType:     v.Type,
		Season:          v.Season,
		TrafficLevel:    v.TrafficLevel,
	}
	if err := t.Validate(); err != nil {
		return estimator.Comparison{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	cmp, err := p.model.Compare(t, travelers, car.CO2PerPersonKg)
	if err != nil {
		return estimator.Comparison{}, fmt.Errorf("%w: %w", ErrComputationFailed, err)
	}
	return cmp, nil
}

// resolve turns a query into a location. Coordinates in any supported
// notation bypass the geocoder.
func (p *Planner) resolve(ctx context.Context, query string) (Endpoint, error) {
	query = strings.TrimSpace(query)
	if coords.IsCoordinate(query) {
		if r, err := coords.Parse(query); err == nil {
			return Endpoint{
				Query:    query,
				Name:     fmt.Sprintf("%.6f, %.6f", r.Location.Latitude, r.Location.Longitude),
				Location: r.Location,
				Source:   SourceCoordinates,
			}, nil
		}
	}

	if p.geocoder == nil {
		return Endpoint{}, fmt.Errorf("%w: %q (no geocoder configured)", ErrLocationNotFound, query)
	}
	place, err := p.geocoder.Geocode(ctx, query)
	switch {
	case errors.Is(err, osm.ErrNotFound):
		return Endpoint{}, fmt.Errorf("%w: %q", ErrLocationNotFound, query)
	case err != nil:
		return Endpoint{}, fmt.Errorf("%w: geocode %q: %w", ErrComputationFailed, query, err)
	}
	name := place.DisplayName
	if name == "" {
		name = place.Name
	}
	return Endpoint{
		Query:    query,
		Name:     name,
		Location: place.Location,
		Source:   SourceGeocoder,
	}, nil
}

func findRow(rows []emissions.Row, m emissions.Mode) (emissions.Row, bool) {
	for _, r := range rows {
		if r.Mode == m {
			return r, true
		}
	}
	return emissions.Row{}, false
}

func roundKm(km float64) float64 {
	return math.Round(km*100) / 100
}
