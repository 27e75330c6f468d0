// Package tools provides the CO2 footprint MCP tool implementations.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/co2mcp/pkg/core"
	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/monitoring"
	"github.com/NERVsystems/co2mcp/pkg/osm"
	"github.com/NERVsystems/co2mcp/pkg/schema"
	"github.com/NERVsystems/co2mcp/pkg/tracing"
	"github.com/NERVsystems/co2mcp/pkg/trip"
)

// Handler is the signature of an MCP tool handler.
type Handler = func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// Searcher looks up places by name.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]osm.Place, error)
}

// Registry contains all tool definitions and the services they use.
type Registry struct {
	logger   *slog.Logger
	factory  *core.ToolFactory
	planner  *trip.Planner
	model    *estimator.Model
	searcher Searcher
}

// NewRegistry creates a tool registry. searcher may be nil, in which case
// only coordinate inputs resolve.
func NewRegistry(logger *slog.Logger, model *estimator.Model, searcher Searcher) *Registry {
	var geocoder trip.Geocoder
	if g, ok := searcher.(trip.Geocoder); ok {
		geocoder = g
	}
	return &Registry{
		logger:   logger,
		factory:  core.NewToolFactory(emissions.ModeNames(), schema.VehicleTypeNames(), schema.SeasonNames()),
		planner:  trip.NewPlanner(geocoder, model),
		model:    model,
		searcher: searcher,
	}
}

// ToolDefinition represents a CO2 MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     Handler
}

// GetToolDefinitions returns the list of all available tools.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	defs := []ToolDefinition{
		{
			Name:        "get_version",
			Description: "Get the version and build information of the CO2 MCP service",
			Handler:     HandleGetVersion,
		},

		// Emissions tools
		{
			Name:        "compare_trip_emissions",
			Description: "Compare the CO2 footprint of travelling between two places by car, plane, train, bus and motorcycle. Places may be names, addresses or coordinates. Optional car details add a machine-learning estimate for the car",
			Handler:     r.HandleCompareTrip,
		},
		{
			Name:        "baseline_emissions",
			Description: "Estimate CO2 per transport mode for a known direct distance in kilometers without geocoding",
			Handler:     HandleBaselineEmissions,
		},
		{
			Name:        "predict_car_emissions",
			Description: "Predict CO2 for a car trip from distance, vehicle type, vehicle age, season and traffic level using the trained model",
			Handler:     r.HandlePredictCarEmissions,
		},
		{
			Name:        "feature_importance",
			Description: "List the trained model's features ranked by importance",
			Handler:     r.HandleFeatureImportance,
		},

		// Geo tools
		{
			Name:        "geocode_address",
			Description: "Convert an address, place name or coordinate string (decimal, DMS, MGRS) to latitude and longitude",
			Handler:     r.HandleGeocodeAddress,
		},
		{
			Name:        "geo_distance",
			Description: "Calculate the geodesic distance in kilometers between two coordinates",
			Handler:     HandleGeoDistance,
		},
	}

	for i := range defs {
		defs[i].Tool = r.toolFor(defs[i].Name, defs[i].Description)
	}
	return defs
}

func (r *Registry) toolFor(name, description string) mcp.Tool {
	switch name {
	case "compare_trip_emissions":
		return r.factory.CreateTripTool(name, description)
	case "baseline_emissions":
		return r.factory.CreateDistanceTool(name, description)
	case "predict_car_emissions":
		return r.factory.CreateVehicleTool(name, description)
	case "geocode_address":
		return GeocodeAddressTool(description)
	case "geo_distance":
		return GeoDistanceTool(description)
	default:
		return r.factory.CreateBasicTool(name, description)
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, r.wrapWithTracing(def.Name, def.Handler))
	}
}

// wrapWithTracing wraps a tool handler with a span and request metrics.
func (r *Registry) wrapWithTracing(toolName string, handler Handler) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("mcp.tool.%s", toolName),
			trace.WithAttributes(
				attribute.String(tracing.AttrMCPToolName, toolName),
			),
		)
		defer span.End()

		startTime := time.Now()
		result, err := handler(ctx, req)
		duration := time.Since(startTime)

		status := tracing.StatusSuccess
		switch {
		case err != nil:
			status = tracing.StatusError
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case result != nil && result.IsError:
			status = tracing.StatusError
			span.SetStatus(codes.Error, "tool returned error result")
		default:
			span.SetStatus(codes.Ok, "")
		}
		monitoring.RecordMCPRequest(toolName, duration, status == tracing.StatusSuccess)

		resultSize := 0
		if result != nil && result.Content != nil {
			if data, marshalErr := json.Marshal(result.Content); marshalErr == nil {
				resultSize = len(data)
			}
		}

		span.SetAttributes(tracing.MCPToolAttributes(toolName, status, duration.Milliseconds(), resultSize)...)
		r.logger.Debug("tool execution traced",
			"tool", toolName,
			"duration_ms", duration.Milliseconds(),
			"status", status,
			"result_size", resultSize,
		)
		return result, err
	}
}

// GetToolNames returns a list of all tool names.
func (r *Registry) GetToolNames() []string {
	defs := r.GetToolDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}
