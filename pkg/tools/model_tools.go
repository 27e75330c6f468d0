package tools

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/co2mcp/pkg/core"
	"github.com/NERVsystems/co2mcp/pkg/estimator"
	"github.com/NERVsystems/co2mcp/pkg/schema"
)

var errNoModel = core.NewError(core.ErrServiceUnavailable, "the emissions model is not loaded").
	WithGuidance("Restart the server; the model is trained at startup.")

// PredictInput defines the input parameters for predict_car_emissions.
type PredictInput struct {
	DistanceKm *float64 `json:"distance_km"`
	Travelers  *int     `json:"travelers,omitempty"`
	vehicleInput
}

// PredictOutput is a single model prediction.
type PredictOutput struct {
	Trip        schema.Trip           `json:"trip"`
	Travelers   int                   `json:"travelers"`
	CO2Kg       float64               `json:"co2_kg"`
	PerPersonKg float64               `json:"co2_per_person_kg"`
	Influences  []estimator.Influence `json:"influences"`
}

// HandlePredictCarEmissions runs the trained model for one car trip.
func (r *Registry) HandlePredictCarEmissions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("predict_car_emissions", func(ctx context.Context, input PredictInput, logger *slog.Logger) (any, error) {
		if r.model == nil {
			return nil, errNoModel
		}
		if input.DistanceKm == nil {
			return nil, core.NewValidationError(core.ErrMissingParameter, "distance_km is required")
		}
		n := travelers(input.Travelers)
		if err := core.ValidateTravelers(n); err != nil {
			return nil, err
		}
		t, err := input.vehicleInput.toTrip(*input.DistanceKm)
		if err != nil {
			return nil, err
		}
		co2, err := r.model.Predict(t)
		if err != nil {
			return nil, err
		}
		logger.Debug("predicted", "distance_km", t.DistanceKm, "vehicle_type", t.VehicleType, "co2_kg", co2)
		return PredictOutput{
			Trip:        t,
			Travelers:   n,
			CO2Kg:       co2,
			PerPersonKg: co2 / float64(n),
			Influences:  estimator.Influences(t),
		}, nil
	})(ctx, req)
}

// ImportanceOutput lists feature importances with model details.
type ImportanceOutput struct {
	Features []estimator.Importance `json:"features"`
	Model    estimator.Info         `json:"model"`
}

// HandleFeatureImportance reports the model's feature ranking.
func (r *Registry) HandleFeatureImportance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := slog.Default().With("tool", "feature_importance")
	if r.model == nil {
		return errNoModel.ToMCPResult(), nil
	}
	return jsonResult(logger, ImportanceOutput{
		Features: r.model.FeatureImportances(),
		Model:    r.model.Info(),
	}), nil
}
