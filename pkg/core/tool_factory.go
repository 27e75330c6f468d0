package core

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolFactory builds tool definitions that share parameter conventions.
type ToolFactory struct {
	// Modes lists the transport mode names accepted by trip tools.
	Modes []string
	// VehicleTypes and Seasons list accepted vehicle detail values.
	VehicleTypes []string
	Seasons      []string
}

// NewToolFactory creates a factory advertising the given vocabularies.
func NewToolFactory(modes, vehicleTypes, seasons []string) *ToolFactory {
	return &ToolFactory{Modes: modes, VehicleTypes: vehicleTypes, Seasons: seasons}
}

// CreateBasicTool creates a tool with only a name and description.
func (f *ToolFactory) CreateBasicTool(name, description string) mcp.Tool {
	return mcp.NewTool(name, mcp.WithDescription(description))
}

// CreateTripTool creates a tool taking an origin, a destination, modes,
// a traveler count and optional car details.
func (f *ToolFactory) CreateTripTool(name, description string) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("from",
			mcp.Required(),
			mcp.Description("Origin as a place name, address or coordinate string"),
		),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Destination as a place name, address or coordinate string"),
		),
		mcp.WithArray("modes",
			mcp.Description(fmt.Sprintf("Transport modes to compare: %s. Defaults to all", strings.Join(f.Modes, ", "))),
		),
		mcp.WithNumber("travelers",
			mcp.Description("Number of people traveling together (at least 1)"),
			mcp.DefaultNumber(1),
		),
	}
	opts = append(opts, f.vehicleOptions(false)...)
	return mcp.NewTool(name, opts...)
}

// CreateDistanceTool creates a tool taking a direct distance instead of
// two locations.
func (f *ToolFactory) CreateDistanceTool(name, description string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithNumber("distance_km",
			mcp.Required(),
			mcp.Description("Direct distance in kilometers"),
		),
		mcp.WithArray("modes",
			mcp.Description(fmt.Sprintf("Transport modes: %s. Defaults to all", strings.Join(f.Modes, ", "))),
		),
		mcp.WithNumber("travelers",
			mcp.Description("Number of people traveling together (at least 1)"),
			mcp.DefaultNumber(1),
		),
	)
}

// CreateVehicleTool creates a tool whose car details are all required.
func (f *ToolFactory) CreateVehicleTool(name, description string) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithNumber("distance_km",
			mcp.Required(),
			mcp.Description("Road distance in kilometers"),
		),
		mcp.WithNumber("travelers",
			mcp.Description("Number of people sharing the car (at least 1)"),
			mcp.DefaultNumber(1),
		),
	}
	opts = append(opts, f.vehicleOptions(true)...)
	return mcp.NewTool(name, opts...)
}

func (f *ToolFactory) vehicleOptions(required bool) []mcp.ToolOption {
	prop := func(desc string) []mcp.PropertyOption {
		p := []mcp.PropertyOption{mcp.Description(desc)}
		if required {
			p = append(p, mcp.Required())
		}
		return p
	}
	return []mcp.ToolOption{
		mcp.WithString("vehicle_type", prop(fmt.Sprintf("Car class: %s", strings.Join(f.VehicleTypes, ", ")))...),
		mcp.WithNumber("vehicle_age", prop("Car age in years (0-20)")...),
		mcp.WithString("season", prop(fmt.Sprintf("Season of travel: %s", strings.Join(f.Seasons, ", ")))...),
		mcp.WithNumber("traffic_level", prop("Traffic intensity from 1 (free flow) to 10 (congested)")...),
	}
}
