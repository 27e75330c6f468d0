package core

import (
	"fmt"
	"math"
)

// ValidateCoords checks that latitude and longitude are in range.
func ValidateCoords(lat, lon float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return NewValidationError(ErrInvalidLatitude,
			fmt.Sprintf("Latitude must be between -90 and 90, got %f", lat))
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return NewValidationError(ErrInvalidLongitude,
			fmt.Sprintf("Longitude must be between -180 and 180, got %f", lon))
	}
	return nil
}

// ValidateTravelers checks that a party has at least one traveler.
func ValidateTravelers(n int) error {
	if n < 1 {
		return NewValidationError(ErrInvalidTravelerCount,
			fmt.Sprintf("Number of travelers must be at least 1, got %d", n))
	}
	return nil
}
