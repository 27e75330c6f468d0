package coords

import (
	"math"
	"testing"
)

const tolerance = 0.0001

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		input string
		want  Format
	}{
		{"47.3769, 8.5417", FormatDecimal},
		{"47.3769 8.5417", FormatDecimal},
		{"-33.8688,151.2093", FormatDecimal},
		{`47°22'37"N 8°32'30"E`, FormatDMS},
		{"47d22m37sN 8d32m30sE", FormatDMS},
		{"32TMT6559047580", FormatMGRS},
		{"Zürich, Schweiz", FormatUnknown},
		{"Berlin", FormatUnknown},
		{"", FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := DetectFormat(tt.input); got != tt.want {
				t.Errorf("DetectFormat(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseDecimal(t *testing.T) {
	r, err := Parse("52.5200, 13.4050")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Format != FormatDecimal {
		t.Errorf("format = %v, want decimal", r.Format)
	}
	if math.Abs(r.Location.Latitude-52.52) > tolerance || math.Abs(r.Location.Longitude-13.405) > tolerance {
		t.Errorf("location = %+v", r.Location)
	}

	if _, err := Parse("95.0, 13.0"); err == nil {
		t.Error("expected out-of-range latitude to fail")
	}
}

func TestParseDMS(t *testing.T) {
	r, err := Parse(`33°52'8"S 151°12'33"E`)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	wantLat := -(33 + 52.0/60 + 8.0/3600)
	wantLon := 151 + 12.0/60 + 33.0/3600
	if math.Abs(r.Location.Latitude-wantLat) > tolerance {
		t.Errorf("lat = %f, want %f", r.Location.Latitude, wantLat)
	}
	if math.Abs(r.Location.Longitude-wantLon) > tolerance {
		t.Errorf("lon = %f, want %f", r.Location.Longitude, wantLon)
	}

	if _, err := ParseDMS(`47°75'00"N 8°00'00"E`); err == nil {
		t.Error("expected minutes >= 60 to fail")
	}
}

func TestParseMGRS(t *testing.T) {
	r, err := Parse("32TMT6559047580")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Format != FormatMGRS {
		t.Errorf("format = %v, want mgrs", r.Format)
	}
	// Zone 32T covers northern Switzerland.
	if r.Location.Latitude < 40 || r.Location.Latitude > 56 {
		t.Errorf("lat = %f, outside band T", r.Location.Latitude)
	}
	if r.Location.Longitude < 6 || r.Location.Longitude > 12 {
		t.Errorf("lon = %f, outside zone 32", r.Location.Longitude)
	}
}

func TestParseUnknown(t *testing.T) {
	if _, err := Parse("Berlin, Deutschland"); err == nil {
		t.Error("expected place name to be rejected")
	}
	if IsCoordinate("Berlin") {
		t.Error("IsCoordinate(Berlin) = true")
	}
}
