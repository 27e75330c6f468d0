package tools

import (
	"errors"

	"github.com/NERVsystems/co2mcp/pkg/core"
	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/osm"
	"github.com/NERVsystems/co2mcp/pkg/schema"
	"github.com/NERVsystems/co2mcp/pkg/trip"
)

// Guidance shown with common failures.
const (
	GuidanceLocationNotFound = "Check the spelling, add a city or country, or pass coordinates such as \"52.52, 13.40\"."
	GuidanceTravelers        = "Use a whole number of travelers of at least 1."
	GuidanceDistance         = "Use a distance in kilometers of zero or more."
	GuidanceVehicle          = "Provide vehicle_type, vehicle_age (0-20), season and traffic_level (1-10) together."
	GuidanceComputation      = "The calculation could not be completed. Please try again later."
)

// toMCPError maps domain errors onto MCP error codes. Errors already
// carrying a code keep it.
func toMCPError(err error) *core.MCPError {
	var mcpErr *core.MCPError

	switch {
	case errors.Is(err, trip.ErrLocationNotFound), errors.Is(err, osm.ErrNotFound):
		return core.NewError(core.ErrLocationNotFound, err.Error()).WithGuidance(GuidanceLocationNotFound)
	case errors.Is(err, trip.ErrComputationFailed):
		return core.NewError(core.ErrComputationFailed, err.Error()).WithGuidance(GuidanceComputation)
	case errors.Is(err, emissions.ErrInvalidTravelerCount):
		return core.NewValidationError(core.ErrInvalidTravelerCount, err.Error()).WithGuidance(GuidanceTravelers)
	case errors.Is(err, emissions.ErrInvalidDistance):
		return core.NewValidationError(core.ErrInvalidDistance, err.Error()).WithGuidance(GuidanceDistance)
	case errors.Is(err, emissions.ErrUnknownTransportMode):
		return core.NewValidationError(core.ErrUnknownTransportMode, err.Error()).
			WithSuggestions(emissions.ModeNames()...)
	case errors.Is(err, schema.ErrUnknownVehicleType):
		return core.NewValidationError(core.ErrInvalidVehicle, err.Error()).
			WithSuggestions(schema.VehicleTypeNames()...)
	case errors.Is(err, schema.ErrUnknownSeason):
		return core.NewValidationError(core.ErrInvalidVehicle, err.Error()).
			WithSuggestions(schema.SeasonNames()...)
	case errors.Is(err, schema.ErrInvalidTrip):
		return core.NewValidationError(core.ErrInvalidVehicle, err.Error()).WithGuidance(GuidanceVehicle)
	case errors.Is(err, estimator.ErrFeatureVectorMismatch):
		return core.NewError(core.ErrFeatureVectorMismatch, err.Error())
	case errors.Is(err, trip.ErrInvalidRequest):
		return core.NewValidationError(core.ErrInvalidInput, err.Error())
	case errors.As(err, &mcpErr):
		return mcpErr
	default:
		return core.NewError(core.ErrInternalError, err.Error()).WithGuidance(GuidanceComputation)
	}
}
