// Package emissions implements the distance-and-factor baseline used to
// compare trip emissions across transport modes.
package emissions

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrInvalidTravelerCount is returned when fewer than one person travels.
	ErrInvalidTravelerCount = errors.New("number of travelers must be at least 1")
	// ErrInvalidDistance is returned for negative or NaN distances.
	ErrInvalidDistance = errors.New("distance must be a non-negative number")
	// ErrUnknownTransportMode is returned for a Mode outside the defined set.
	ErrUnknownTransportMode = errors.New("unknown transport mode")
)

// Mode is a transport mode.
type Mode uint8

// Transport modes. The zero value is not a valid mode.
const (
	Car Mode = iota + 1
	Plane
	Train
	Bus
	Motorcycle
)

type modeFactors struct {
	name    string
	german  string
	detour  float64 // travelled distance per direct kilometer
	kgPerKm float64
	aliases []string
}

var modeTable = map[Mode]modeFactors{
	Car:        {name: "car", german: "Auto", detour: 1.2, kgPerKm: 0.17, aliases: []string{"auto", "automobile"}},
	Plane:      {name: "plane", german: "Flugzeug", detour: 1.0, kgPerKm: 0.24, aliases: []string{"flight", "airplane", "flugzeug"}},
	Train:      {name: "train", german: "Zug", detour: 1.3, kgPerKm: 0.04, aliases: []string{"rail", "zug", "bahn"}},
	Bus:        {name: "bus", german: "Bus", detour: 1.3, kgPerKm: 0.07, aliases: []string{"coach"}},
	Motorcycle: {name: "motorcycle", german: "Motorrad", detour: 1.2, kgPerKm: 0.11, aliases: []string{"motorbike", "motorrad"}},
}

// AllModes returns every transport mode in display order.
func AllModes() []Mode {
	return []Mode{Car, Plane, Train, Bus, Motorcycle}
}

// ModeNames returns the English names of all modes.
func ModeNames() []string {
	modes := AllModes()
	names := make([]string, len(modes))
	for i, m := range modes {
		names[i] = m.String()
	}
	return names
}

// Valid reports whether m is one of the defined modes.
func (m Mode) Valid() bool {
	_, ok := modeTable[m]
	return ok
}

func (m Mode) String() string {
	if f, ok := modeTable[m]; ok {
		return f.name
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// GermanLabel returns the German display label for m.
func (m Mode) GermanLabel() string {
	return modeTable[m].german
}

// MarshalText encodes m by name.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTransportMode, uint8(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes an English or German mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMode resolves a mode name case-insensitively. German labels and a
// few common synonyms are accepted.
func ParseMode(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, m := range AllModes() {
		f := modeTable[m]
		if key == f.name || key == strings.ToLower(f.german) {
			return m, nil
		}
		for _, a := range f.aliases {
			if key == a {
				return m, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTransportMode, s)
}

// ParseModes resolves a list of names, preserving order and dropping
// duplicates. An empty list yields all modes.
func ParseModes(names []string) ([]Mode, error) {
	if len(names) == 0 {
		return AllModes(), nil
	}
	seen := make(map[Mode]bool, len(names))
	modes := make([]Mode, 0, len(names))
	for _, n := range names {
		m, err := ParseMode(n)
		if err != nil {
			return nil, err
		}
		if !seen[m] {
			seen[m] = true
			modes = append(modes, m)
		}
	}
	return modes, nil
}

// DistanceFactor returns the ratio of travelled to direct distance for m.
func DistanceFactor(m Mode) (float64, error) {
	f, ok := modeTable[m]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTransportMode, uint8(m))
	}
	return f.detour, nil
}

// EmissionFactor returns kg of CO2 emitted per travelled kilometer for m.
func EmissionFactor(m Mode) (float64, error) {
	f, ok := modeTable[m]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownTransportMode, uint8(m))
	}
	return f.kgPerKm, nil
}

// Row is the baseline estimate for one mode.
type Row struct {
	Mode           Mode    `json:"mode"`
	DistanceKm     float64 `json:"distance_km"`
	CO2PerPersonKg float64 `json:"co2_per_person_kg"`
	TotalCO2Kg     float64 `json:"total_co2_kg"`
}

// Estimate applies the mode's distance and emission factors to a direct
// distance and splits the total across travelers.
func Estimate(directKm float64, mode Mode, travelers int) (Row, error) {
	if travelers < 1 {
		return Row{}, fmt.Errorf("%w: got %d", ErrInvalidTravelerCount, travelers)
	}
	if directKm < 0 || math.IsNaN(directKm) {
		return Row{}, fmt.Errorf("%w: got %v", ErrInvalidDistance, directKm)
	}
	f, ok := modeTable[mode]
	if !ok {
		return Row{}, fmt.Errorf("%w: %d", ErrUnknownTransportMode, uint8(mode))
	}

	distance := directKm * f.detour
	total := distance * f.kgPerKm
	return Row{
		Mode:           mode,
		DistanceKm:     distance,
		CO2PerPersonKg: total / float64(travelers),
		TotalCO2Kg:     total,
	}, nil
}

// Compare estimates every mode in order.
func Compare(directKm float64, modes []Mode, travelers int) ([]Row, error) {
	rows := make([]Row, 0, len(modes))
	for _, m := range modes {
		row, err := Estimate(directKm, m, travelers)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
