package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/co2mcp/pkg/coords"
	"github.com/NERVsystems/co2mcp/pkg/core"
	"github.com/NERVsystems/co2mcp/pkg/geo"
	"github.com/NERVsystems/co2mcp/pkg/osm"
)

// MaxGeocodeResults caps the limit parameter of geocode_address.
const MaxGeocodeResults = 10

// GeocodeAddressInput defines the input parameters for geocode_address.
type GeocodeAddressInput struct {
	Address string `json:"address"`
	Limit   int    `json:"limit,omitempty"`
}

// GeocodeAddressOutput lists the matches for an address.
type GeocodeAddressOutput struct {
	Query   string      `json:"query"`
	Format  string      `json:"format,omitempty"`
	Results []osm.Place `json:"results"`
}

// GeocodeAddressTool returns a tool definition for geocoding.
func GeocodeAddressTool(description string) mcp.Tool {
	return mcp.NewTool("geocode_address",
		mcp.WithDescription(description),
		mcp.WithString("address",
			mcp.Required(),
			mcp.Description("Address, place name or coordinates, e.g. \"Brandenburger Tor, Berlin\" or \"33UUU9100019000\""),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of results (1-%d)", MaxGeocodeResults)),
			mcp.DefaultNumber(1),
		),
	)
}

// HandleGeocodeAddress resolves an address. Coordinate strings are parsed
// locally and never reach the geocoding service.
func (r *Registry) HandleGeocodeAddress(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("geocode_address", func(ctx context.Context, input GeocodeAddressInput, logger *slog.Logger) (any, error) {
		query := strings.TrimSpace(input.Address)
		if query == "" {
			return nil, core.NewValidationError(core.ErrEmptyParameter, "address must not be empty").
				WithGuidance("Provide a place name, street address or coordinates.")
		}
		limit := input.Limit
		if limit <= 0 {
			limit = 1
		}
		if limit > MaxGeocodeResults {
			limit = MaxGeocodeResults
		}

		if coords.IsCoordinate(query) {
			if p, err := coords.Parse(query); err == nil {
				logger.Debug("parsed coordinates locally", "format", p.Format)
				return GeocodeAddressOutput{
					Query:  query,
					Format: p.Format.String(),
					Results: []osm.Place{{
						DisplayName: fmt.Sprintf("%.6f, %.6f", p.Location.Latitude, p.Location.Longitude),
						Location:    p.Location,
					}},
				}, nil
			}
		}

		if r.searcher == nil {
			return nil, core.NewError(core.ErrServiceUnavailable, "no geocoding service configured").
				WithGuidance("Pass coordinates instead of a place name.")
		}
		places, err := r.searcher.Search(ctx, query, limit)
		if err != nil {
			return nil, err
		}
		if len(places) == 0 {
			return nil, core.NewError(core.ErrLocationNotFound, fmt.Sprintf("no results for %q", query)).
				WithGuidance(GuidanceLocationNotFound)
		}
		return GeocodeAddressOutput{Query: query, Results: places}, nil
	})(ctx, req)
}

// GeoDistanceInput defines the input parameters for geo_distance.
type GeoDistanceInput struct {
	From *geo.Location `json:"from"`
	To   *geo.Location `json:"to"`
}

// GeoDistanceOutput reports the distance on the WGS-84 ellipsoid and on a
// sphere for reference.
type GeoDistanceOutput struct {
	DistanceKm  float64 `json:"distance_km"`
	HaversineKm float64 `json:"haversine_km"`
}

// GeoDistanceTool returns a tool definition for calculating geographic distance.
func GeoDistanceTool(description string) mcp.Tool {
	return mcp.NewTool("geo_distance",
		mcp.WithDescription(description),
		mcp.WithObject("from",
			mcp.Required(),
			mcp.Description("The starting point as {latitude, longitude}"),
		),
		mcp.WithObject("to",
			mcp.Required(),
			mcp.Description("The ending point as {latitude, longitude}"),
		),
	)
}

// HandleGeoDistance implements geographic distance calculation.
func HandleGeoDistance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("geo_distance", func(ctx context.Context, input GeoDistanceInput, logger *slog.Logger) (any, error) {
		if input.From == nil {
			return nil, core.NewValidationError(core.ErrMissingParameter, "missing 'from' coordinates")
		}
		if input.To == nil {
			return nil, core.NewValidationError(core.ErrMissingParameter, "missing 'to' coordinates")
		}
		if err := core.ValidateCoords(input.From.Latitude, input.From.Longitude); err != nil {
			return nil, err
		}
		if err := core.ValidateCoords(input.To.Latitude, input.To.Longitude); err != nil {
			return nil, err
		}

		m := geo.HaversineDistance(input.From.Latitude, input.From.Longitude, input.To.Latitude, input.To.Longitude)
		return GeoDistanceOutput{
			DistanceKm:  geo.GeodesicKm(*input.From, *input.To),
			HaversineKm: m / 1000,
		}, nil
	})(ctx, req)
}
