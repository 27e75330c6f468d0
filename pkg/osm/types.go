package osm

import (
	"fmt"
	"strconv"

	"github.com/NERVsystems/co2mcp/pkg/geo"
)

// Place is a geocoding match.
type Place struct {
	ID          int64        `json:"id,omitempty"`
	Name        string       `json:"name,omitempty"`
	DisplayName string       `json:"display_name"`
	Location    geo.Location `json:"location"`
	Class       string       `json:"class,omitempty"`
	Type        string       `json:"type,omitempty"`
	Importance  float64      `json:"importance,omitempty"`
}

// nominatimPlace is one element of a Nominatim jsonv2 search response.
// Coordinates arrive as strings.
type nominatimPlace struct {
	PlaceID     int64   `json:"place_id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Category    string  `json:"category"`
	Class       string  `json:"class"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

func (n nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(n.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse latitude %q: %w", n.Lat, err)
	}
	lon, err := strconv.ParseFloat(n.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parse longitude %q: %w", n.Lon, err)
	}
	loc := geo.Location{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		return Place{}, fmt.Errorf("coordinates out of range: %v,%v", lat, lon)
	}
	class := n.Class
	if class == "" {
		class = n.Category
	}
	return Place{
		ID:          n.PlaceID,
		Name:        n.Name,
		DisplayName: n.DisplayName,
		Location:    loc,
		Class:       class,
		Type:        n.Type,
		Importance:  n.Importance,
	}, nil
}
