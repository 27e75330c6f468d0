package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/co2mcp/pkg/core"
	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/trip"
)

// CompareTripInput defines the input parameters for compare_trip_emissions.
type CompareTripInput struct {
	From      string   `json:"from"`
	To        string   `json:"to"`
	Modes     modeList `json:"modes,omitempty"`
	Travelers *int     `json:"travelers,omitempty"`
	vehicleInput
}

// HandleCompareTrip geocodes both places and compares every requested mode.
func (r *Registry) HandleCompareTrip(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("compare_trip_emissions", func(ctx context.Context, input CompareTripInput, logger *slog.Logger) (any, error) {
		if input.From == "" {
			return nil, core.NewValidationError(core.ErrMissingParameter, "from is required")
		}
		if input.To == "" {
			return nil, core.NewValidationError(core.ErrMissingParameter, "to is required")
		}
		modes, err := input.Modes.parse()
		if err != nil {
			return nil, err
		}

		request := trip.Request{
			From:      input.From,
			To:        input.To,
			Modes:     modes,
			Travelers: travelers(input.Travelers),
		}
		if !input.vehicleInput.empty() {
			d, err := input.vehicleInput.details()
			if err != nil {
				return nil, err
			}
			request.Vehicle = &d
		}

		logger.Debug("comparing trip", "from", input.From, "to", input.To, "modes", len(modes))
		return r.planner.Plan(ctx, request)
	})(ctx, req)
}

// BaselineInput defines the input parameters for baseline_emissions.
type BaselineInput struct {
	DistanceKm *float64 `json:"distance_km"`
	Modes      modeList `json:"modes,omitempty"`
	Travelers  *int     `json:"travelers,omitempty"`
}

// BaselineOutput is the per-mode estimate for a known distance.
type BaselineOutput struct {
	DirectDistanceKm float64                `json:"direct_distance_km"`
	Travelers        int                    `json:"travelers"`
	Rows             []emissions.Row        `json:"rows"`
	Savings          *emissions.Savings     `json:"savings,omitempty"`
	Equivalents      []emissions.Equivalent `json:"equivalents"`
}

// HandleBaselineEmissions applies the fixed emission factors to a distance.
func HandleBaselineEmissions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("baseline_emissions", func(ctx context.Context, input BaselineInput, logger *slog.Logger) (any, error) {
		if input.DistanceKm == nil {
			return nil, core.NewValidationError(core.ErrMissingParameter, "distance_km is required")
		}
		modes, err := input.Modes.parse()
		if err != nil {
			return nil, err
		}
		n := travelers(input.Travelers)
		rows, err := emissions.Compare(*input.DistanceKm, modes, n)
		if err != nil {
			return nil, err
		}

		out := BaselineOutput{
			DirectDistanceKm: *input.DistanceKm,
			Travelers:        n,
			Rows:             rows,
			Equivalents:      emissions.Equivalents(rows),
		}
		if s, ok := emissions.FindSavings(rows); ok {
			out.Savings = &s
		}
		return out, nil
	})(ctx, req)
}
