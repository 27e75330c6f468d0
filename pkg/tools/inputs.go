package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/NERVsystems/co2mcp/pkg/emissions"
	"github.com/NERVsystems/co2mcp/pkg/schema"
	"github.com/NERVsystems/co2mcp/pkg/trip"
)

// modeList accepts either a JSON array of mode names or a single
// comma-separated string.
type modeList []string

func (m *modeList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*m = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("modes must be an array of strings or a comma-separated string")
	}
	*m = nil
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*m = append(*m, part)
		}
	}
	return nil
}

func (m modeList) parse() ([]emissions.Mode, error) {
	return emissions.ParseModes(m)
}

// travelers returns the traveler count, defaulting to one when absent.
func travelers(n *int) int {
	if n == nil {
		return 1
	}
	return *n
}

// vehicleInput holds the optional car details shared by several tools.
type vehicleInput struct {
	VehicleType  string `json:"vehicle_type,omitempty"`
	VehicleAge   *int   `json:"vehicle_age,omitempty"`
	Season       string `json:"season,omitempty"`
	TrafficLevel *int   `json:"traffic_level,omitempty"`
}

func (v vehicleInput) empty() bool {
	return v.VehicleType == "" && v.VehicleAge == nil && v.Season == "" && v.TrafficLevel == nil
}

// details parses the car details. All four fields must be present.
func (v vehicleInput) details() (trip.VehicleDetails, error) {
	var missing []string
	if v.VehicleType == "" {
		missing = append(missing, "vehicle_type")
	}
	if v.VehicleAge == nil {
		missing = append(missing, "vehicle_age")
	}
	if v.Season == "" {
		missing = append(missing, "season")
	}
	if v.TrafficLevel == nil {
		missing = append(missing, "traffic_level")
	}
	if len(missing) > 0 {
		return trip.VehicleDetails{}, fmt.Errorf("%w: missing %s", schema.ErrInvalidTrip, strings.Join(missing, ", "))
	}

	vt, err := schema.ParseVehicleType(v.VehicleType)
	if err != nil {
		return trip.VehicleDetails{}, err
	}
	season, err := schema.ParseSeason(v.Season)
	if err != nil {
		return trip.VehicleDetails{}, err
	}
	return trip.VehicleDetails{
		Type:         vt,
		AgeYears:     *v.VehicleAge,
		Season:       season,
		TrafficLevel: *v.TrafficLevel,
	}, nil
}

// toTrip builds a validated model input for the given distance.
func (v vehicleInput) toTrip(distanceKm float64) (schema.Trip, error) {
	d, err := v.details()
	if err != nil {
		return schema.Trip{}, err
	}
	t := schema.Trip{
		DistanceKm:      distanceKm,
		VehicleAgeYears: d.AgeYears,
		VehicleType:     d.Type,
		Season:          d.Season,
		TrafficLevel:    d.TrafficLevel,
	}
	if err := t.Validate(); err != nil {
		return schema.Trip{}, err
	}
	return t, nil
}
