package monitoring

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordMCPRequest(t *testing.T) {
	MCPRequestsTotal.Reset()

	RecordMCPRequest("compare_trip_emissions", 100*time.Millisecond, true)
	RecordMCPRequest("compare_trip_emissions", 200*time.Millisecond, false)

	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("compare_trip_emissions", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(MCPRequestsTotal.WithLabelValues("compare_trip_emissions", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestRecordExternalServiceRequest(t *testing.T) {
	ExternalServiceRequestsTotal.Reset()

	RecordExternalServiceRequest("nominatim", "search", 500*time.Millisecond, true)
	RecordExternalServiceRequest("nominatim", "search", 300*time.Millisecond, false)

	if got := testutil.ToFloat64(ExternalServiceRequestsTotal.WithLabelValues("nominatim", "search", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ExternalServiceRequestsTotal.WithLabelValues("nominatim", "search", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestCacheMetrics(t *testing.T) {
	CacheHits.Reset()
	CacheMisses.Reset()
	CacheSize.Reset()

	RecordCacheHit("geocode")
	RecordCacheHit("geocode")
	RecordCacheMiss("geocode")
	UpdateCacheSize("geocode", 17)

	if got := testutil.ToFloat64(CacheHits.WithLabelValues("geocode")); got != 2 {
		t.Errorf("hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("geocode")); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CacheSize.WithLabelValues("geocode")); got != 17 {
		t.Errorf("size = %v, want 17", got)
	}
}

func TestRateLimitMetrics(t *testing.T) {
	RateLimitExceeded.Reset()
	RecordRateLimitExceeded("nominatim")
	RecordRateLimitWait("nominatim", 250*time.Millisecond)

	if got := testutil.ToFloat64(RateLimitExceeded.WithLabelValues("nominatim")); got != 1 {
		t.Errorf("rate limit exceeded = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(RateLimitWaitTime); n == 0 {
		t.Error("expected rate limit wait observations")
	}
}

func TestModelMetrics(t *testing.T) {
	PredictionsTotal.Reset()

	RecordModelTrained(1500*time.Millisecond, 100, 4.2)
	RecordPrediction("SUV", "Winter")

	if got := testutil.ToFloat64(ModelTrees); got != 100 {
		t.Errorf("trees = %v, want 100", got)
	}
	if got := testutil.ToFloat64(ModelHoldoutMAE); got != 4.2 {
		t.Errorf("mae = %v, want 4.2", got)
	}
	if got := testutil.ToFloat64(PredictionsTotal.WithLabelValues("SUV", "Winter")); got != 1 {
		t.Errorf("predictions = %v, want 1", got)
	}
}

func TestTripAndErrorMetrics(t *testing.T) {
	TripCalculationsTotal.Reset()
	ErrorsTotal.Reset()

	RecordTripCalculation("location_not_found")
	RecordError("trip", "geocode")

	if got := testutil.ToFloat64(TripCalculationsTotal.WithLabelValues("location_not_found")); got != 1 {
		t.Errorf("trip calculations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(ErrorsTotal.WithLabelValues("trip", "geocode")); got != 1 {
		t.Errorf("errors = %v, want 1", got)
	}
}
