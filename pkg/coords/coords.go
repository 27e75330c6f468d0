// Package coords recognises trip endpoints that are already coordinates,
// so they can skip geocoding.
//
// Supported formats:
//   - Decimal degrees: "47.3769, 8.5417" or "47.3769 8.5417"
//   - DMS: 47°22'37"N 8°32'30"E
//   - MGRS: 32TMT6559047580
package coords

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/akhenakh/mgrs"

	"github.com/NERVsystems/co2mcp/pkg/geo"
)

// Format identifies how a coordinate string was written.
type Format int

const (
	FormatUnknown Format = iota
	FormatDecimal
	FormatDMS
	FormatMGRS
)

func (f Format) String() string {
	switch f {
	case FormatDecimal:
		return "decimal"
	case FormatDMS:
		return "dms"
	case FormatMGRS:
		return "mgrs"
	default:
		return "unknown"
	}
}

// ParseResult is a parsed coordinate with the format it was detected as.
type ParseResult struct {
	Location geo.Location
	Format   Format
	Original string
}

var (
	decimalRegex = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*[,\s]\s*(-?\d+(?:\.\d+)?)$`)
	dmsRegex     = regexp.MustCompile(`(?i)^(\d+)[°d\s]+(\d+)['′m\s]+(\d+(?:\.\d+)?)["″s]?\s*([NS])[\s,]+(\d+)[°d\s]+(\d+)['′m\s]+(\d+(?:\.\d+)?)["″s]?\s*([EW])$`)
	mgrsRegex    = regexp.MustCompile(`(?i)^(\d{1,2})([C-HJ-NP-X])([A-HJ-NP-Z]{2})(\d{2,10})$`)
)

// Parse detects the format of input and converts it to decimal degrees.
func Parse(input string) (*ParseResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty coordinate string")
	}

	switch DetectFormat(input) {
	case FormatMGRS:
		return ParseMGRS(input)
	case FormatDMS:
		return ParseDMS(input)
	case FormatDecimal:
		return ParseDecimal(input)
	}
	return nil, fmt.Errorf("unrecognized coordinate format: %q", input)
}

// IsCoordinate reports whether input looks like a coordinate in any
// supported format.
func IsCoordinate(input string) bool {
	return DetectFormat(input) != FormatUnknown
}

// DetectFormat returns the coordinate format of input without converting it.
func DetectFormat(input string) Format {
	input = strings.TrimSpace(input)
	switch {
	case input == "":
		return FormatUnknown
	case mgrsRegex.MatchString(strings.ReplaceAll(input, " ", "")):
		return FormatMGRS
	case dmsRegex.MatchString(input):
		return FormatDMS
	case decimalRegex.MatchString(input):
		return FormatDecimal
	}
	return FormatUnknown
}

// ParseDecimal parses "lat, lon" or "lat lon" in decimal degrees.
func ParseDecimal(input string) (*ParseResult, error) {
	input = strings.TrimSpace(input)
	m := decimalRegex.FindStringSubmatch(input)
	if m == nil {
		return nil, fmt.Errorf("invalid decimal format: %q", input)
	}

	lat, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude %q: %w", m[1], err)
	}
	lon, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude %q: %w", m[2], err)
	}

	loc := geo.Location{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		return nil, fmt.Errorf("coordinates out of range: %f, %f", lat, lon)
	}
	return &ParseResult{Location: loc, Format: FormatDecimal, Original: input}, nil
}

// ParseDMS parses degrees, minutes and seconds with hemisphere letters.
func ParseDMS(input string) (*ParseResult, error) {
	input = strings.TrimSpace(input)
	m := dmsRegex.FindStringSubmatch(input)
	if m == nil {
		return nil, fmt.Errorf("invalid DMS format: %q", input)
	}

	lat, err := dmsToDecimal(m[1], m[2], m[3], 90)
	if err != nil {
		return nil, fmt.Errorf("invalid latitude: %w", err)
	}
	lon, err := dmsToDecimal(m[5], m[6], m[7], 180)
	if err != nil {
		return nil, fmt.Errorf("invalid longitude: %w", err)
	}
	if strings.EqualFold(m[4], "S") {
		lat = -lat
	}
	if strings.EqualFold(m[8], "W") {
		lon = -lon
	}

	return &ParseResult{
		Location: geo.Location{Latitude: lat, Longitude: lon},
		Format:   FormatDMS,
		Original: input,
	}, nil
}

func dmsToDecimal(degStr, minStr, secStr string, maxDeg float64) (float64, error) {
	deg, _ := strconv.ParseFloat(degStr, 64)
	min, _ := strconv.ParseFloat(minStr, 64)
	sec, _ := strconv.ParseFloat(secStr, 64)
	if deg > maxDeg || min >= 60 || sec >= 60 {
		return 0, fmt.Errorf("%s°%s'%s\" out of range", degStr, minStr, secStr)
	}
	v := deg + min/60 + sec/3600
	if v > maxDeg {
		return 0, fmt.Errorf("%f exceeds %f", v, maxDeg)
	}
	return v, nil
}

// ParseMGRS parses a Military Grid Reference System string.
func ParseMGRS(input string) (*ParseResult, error) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(input), " ", ""))
	if !mgrsRegex.MatchString(normalized) {
		return nil, fmt.Errorf("invalid MGRS format: %q", input)
	}

	lat, lon, err := mgrs.MGRSToLatLng(normalized)
	if err != nil {
		return nil, fmt.Errorf("MGRS conversion failed: %w", err)
	}

	loc := geo.Location{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		return nil, fmt.Errorf("MGRS conversion produced invalid coordinates: %f, %f", lat, lon)
	}
	return &ParseResult{Location: loc, Format: FormatMGRS, Original: input}, nil
}
