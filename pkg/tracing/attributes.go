package tracing

import "go.opentelemetry.io/otel/attribute"

// Attribute keys
const (
	// MCP tool attributes
	AttrMCPToolName     = "mcp.tool.name"
	AttrMCPToolStatus   = "mcp.tool.status"
	AttrMCPToolDuration = "mcp.tool.duration_ms"
	AttrMCPResultSize   = "mcp.tool.result_size"

	// External service attributes
	AttrServiceName      = "co2.service.name"
	AttrServiceOperation = "co2.service.operation"
	AttrServiceURL       = "co2.service.url"
	AttrServiceStatus    = "co2.service.status"

	// Cache attributes
	AttrCacheType = "co2.cache.type"
	AttrCacheHit  = "co2.cache.hit"
	AttrCacheKey  = "co2.cache.key"

	// Rate limiting attributes
	AttrRateLimitService = "co2.ratelimit.service"
	AttrRateLimitWaitMs  = "co2.ratelimit.wait_ms"

	// Model attributes
	AttrModelTrees    = "co2.model.trees"
	AttrModelSamples  = "co2.model.samples"
	AttrModelSeed     = "co2.model.seed"
	AttrModelFeatures = "co2.model.features"
	AttrModelMAE      = "co2.model.holdout_mae"

	// Trip attributes
	AttrTripModes     = "co2.trip.modes"
	AttrTripTravelers = "co2.trip.travelers"
	AttrTripDistance  = "co2.trip.distance_km"

	// HTTP attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPStatusCode = "http.status_code"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess     = "success"
	StatusError       = "error"
	StatusTimeout     = "timeout"
	StatusRateLimited = "rate_limited"
)

// Service names
const (
	ServiceNominatim = "nominatim"
)

// Cache types
const (
	CacheTypeGeocode = "geocode"
)

// MCPToolAttributes returns attributes for an MCP tool execution.
func MCPToolAttributes(toolName string, status string, durationMs int64, resultSize int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrMCPToolName, toolName),
		attribute.String(AttrMCPToolStatus, status),
		attribute.Int64(AttrMCPToolDuration, durationMs),
		attribute.Int(AttrMCPResultSize, resultSize),
	}
}

// ServiceAttributes returns attributes for an external service call.
func ServiceAttributes(service, operation, url string, status int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrServiceName, service),
		attribute.String(AttrServiceOperation, operation),
		attribute.String(AttrServiceURL, url),
		attribute.Int(AttrServiceStatus, status),
	}
}

// CacheAttributes returns attributes for a cache lookup.
func CacheAttributes(cacheType string, hit bool, key string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrCacheType, cacheType),
		attribute.Bool(AttrCacheHit, hit),
		attribute.String(AttrCacheKey, key),
	}
}

// ModelAttributes returns attributes describing a training run.
func ModelAttributes(trees, samples, features int, seed uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrModelTrees, trees),
		attribute.Int(AttrModelSamples, samples),
		attribute.Int(AttrModelFeatures, features),
		attribute.Int64(AttrModelSeed, int64(seed)),
	}
}

// ErrorAttributes returns attributes classifying err, or nil.
func ErrorAttributes(errorType string, err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, errorType),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
