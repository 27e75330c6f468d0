// Package schema defines the car trip features shared by the training set
// generator and the emissions estimator. Column order is fixed here and
// never discovered from data.
package schema

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
)

// Version identifies the column layout. Bump it when Columns changes.
const Version = 1

// Feature bounds.
const (
	MinVehicleAge = 0
	MaxVehicleAge = 20
	MinTraffic    = 1
	MaxTraffic    = 10
)

var (
	// ErrUnknownVehicleType is returned for unrecognised vehicle classes.
	ErrUnknownVehicleType = errors.New("unknown vehicle type")
	// ErrUnknownSeason is returned for unrecognised seasons.
	ErrUnknownSeason = errors.New("unknown season")
	// ErrInvalidTrip is returned when a numeric feature is out of range.
	ErrInvalidTrip = errors.New("invalid trip features")
)

// VehicleType is a car class.
type VehicleType uint8

// Vehicle classes.
const (
	Compact VehicleType = iota + 1
	MidSize
	SUV
	Luxury
)

// Season is the season of travel.
type Season uint8

// Seasons.
const (
	Spring Season = iota + 1
	Summer
	Autumn
	Winter
)

type label struct {
	name    string
	german  string
	factor  float64
	aliases []string
}

var vehicleTypes = map[VehicleType]label{
	Compact: {name: "Compact", german: "Kleinwagen", factor: 0.8, aliases: []string{"small"}},
	MidSize: {name: "MidSize", german: "Mittelklasse", factor: 1.0, aliases: []string{"mid-size", "mid_size", "medium"}},
	SUV:     {name: "SUV", german: "SUV", factor: 1.4},
	Luxury:  {name: "Luxury", german: "Luxusklasse", factor: 1.6},
}

var seasons = map[Season]label{
	Spring: {name: "Spring", german: "Frühling", factor: 1.0, aliases: []string{"fruehling"}},
	Summer: {name: "Summer", german: "Sommer", factor: 0.95},
	Autumn: {name: "Autumn", german: "Herbst", factor: 1.05, aliases: []string{"fall"}},
	Winter: {name: "Winter", german: "Winter", factor: 1.15},
}

// VehicleTypes returns all vehicle classes in column order.
func VehicleTypes() []VehicleType { return []VehicleType{Compact, MidSize, SUV, Luxury} }

// Seasons returns all seasons in column order.
func Seasons() []Season { return []Season{Spring, Summer, Autumn, Winter} }

func (v VehicleType) String() string {
	if l, ok := vehicleTypes[v]; ok {
		return l.name
	}
	return fmt.Sprintf("VehicleType(%d)", uint8(v))
}

// Valid reports whether v is a defined vehicle class.
func (v VehicleType) Valid() bool {
	_, ok := vehicleTypes[v]
	return ok
}

// GermanLabel returns the German display label.
func (v VehicleType) GermanLabel() string { return vehicleTypes[v].german }

// Factor is the emission multiplier applied by the training set generator.
func (v VehicleType) Factor() float64 { return vehicleTypes[v].factor }

// MarshalText encodes v by name.
func (v VehicleType) MarshalText() ([]byte, error) {
	if !v.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVehicleType, uint8(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText decodes an English or German vehicle class name.
func (v *VehicleType) UnmarshalText(text []byte) error {
	parsed, err := ParseVehicleType(string(text))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (s Season) String() string {
	if l, ok := seasons[s]; ok {
		return l.name
	}
	return fmt.Sprintf("Season(%d)", uint8(s))
}

// Valid reports whether s is a defined season.
func (s Season) Valid() bool {
	_, ok := seasons[s]
	return ok
}

// GermanLabel returns the German display label.
func (s Season) GermanLabel() string { return seasons[s].german }

// Factor is the emission multiplier applied by the training set generator.
func (s Season) Factor() float64 { return seasons[s].factor }

// MarshalText encodes s by name.
func (s Season) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSeason, uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes an English or German season name.
func (s *Season) UnmarshalText(text []byte) error {
	parsed, err := ParseSeason(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func matches(key string, l label) bool {
	if key == strings.ToLower(l.name) || key == strings.ToLower(l.german) {
		return true
	}
	return slices.Contains(l.aliases, key)
}

// ParseVehicleType resolves an English or German vehicle class name.
func ParseVehicleType(s string) (VehicleType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, v := range VehicleTypes() {
		if matches(key, vehicleTypes[v]) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVehicleType, s)
}

// ParseSeason resolves an English or German season name.
func ParseSeason(s string) (Season, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, v := range Seasons() {
		if matches(key, seasons[v]) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownSeason, s)
}

// VehicleTypeNames returns the English vehicle class names in column order.
func VehicleTypeNames() []string {
	out := make([]string, 0, 4)
	for _, v := range VehicleTypes() {
		out = append(out, v.String())
	}
	return out
}

// SeasonNames returns the English season names in column order.
func SeasonNames() []string {
	out := make([]string, 0, 4)
	for _, s := range Seasons() {
		out = append(out, s.String())
	}
	return out
}

// Trip holds the features of a single car journey.
type Trip struct {
	DistanceKm      float64     `json:"distance_km"`
	VehicleAgeYears int         `json:"vehicle_age_years"`
	VehicleType     VehicleType `json:"vehicle_type"`
	Season          Season      `json:"season"`
	TrafficLevel    int         `json:"traffic_level"`
}

// Validate checks categorical values and numeric ranges.
func (t Trip) Validate() error {
	switch {
	case math.IsNaN(t.DistanceKm) || t.DistanceKm < 0:
		return fmt.Errorf("%w: distance %v km", ErrInvalidTrip, t.DistanceKm)
	case t.VehicleAgeYears < MinVehicleAge || t.VehicleAgeYears > MaxVehicleAge:
		return fmt.Errorf("%w: vehicle age %d outside [%d, %d]", ErrInvalidTrip, t.VehicleAgeYears, MinVehicleAge, MaxVehicleAge)
	case t.TrafficLevel < MinTraffic || t.TrafficLevel > MaxTraffic:
		return fmt.Errorf("%w: traffic level %d outside [%d, %d]", ErrInvalidTrip, t.TrafficLevel, MinTraffic, MaxTraffic)
	case !t.VehicleType.Valid():
		return fmt.Errorf("%w: %d", ErrUnknownVehicleType, uint8(t.VehicleType))
	case !t.Season.Valid():
		return fmt.Errorf("%w: %d", ErrUnknownSeason, uint8(t.Season))
	}
	return nil
}
