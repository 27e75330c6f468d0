// Package core provides shared utilities for the co2mcp tools.
package core

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorCode is the machine-readable code carried by tool errors.
type ErrorCode string

const (
	// Request validation
	ErrInvalidInput         ErrorCode = "INVALID_INPUT"
	ErrInvalidLatitude      ErrorCode = "INVALID_LATITUDE"
	ErrInvalidLongitude     ErrorCode = "INVALID_LONGITUDE"
	ErrInvalidDistance      ErrorCode = "INVALID_DISTANCE"
	ErrInvalidTravelerCount ErrorCode = "INVALID_TRAVELER_COUNT"
	ErrUnknownTransportMode ErrorCode = "UNKNOWN_TRANSPORT_MODE"
	ErrInvalidVehicle       ErrorCode = "INVALID_VEHICLE"
	ErrEmptyParameter       ErrorCode = "EMPTY_PARAMETER"
	ErrMissingParameter     ErrorCode = "MISSING_PARAMETER"

	// Geocoding service
	ErrServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrServiceTimeout     ErrorCode = "SERVICE_TIMEOUT"
	ErrRateLimit          ErrorCode = "RATE_LIMIT"
	ErrNetworkError       ErrorCode = "NETWORK_ERROR"
	ErrLocationNotFound   ErrorCode = "LOCATION_NOT_FOUND"
	ErrParseError         ErrorCode = "PARSE_ERROR"

	// Emissions and model
	ErrFeatureVectorMismatch ErrorCode = "FEATURE_VECTOR_MISMATCH"
	ErrComputationFailed     ErrorCode = "COMPUTATION_FAILED"
	ErrInternalError         ErrorCode = "INTERNAL_ERROR"
)

// MCPError is the JSON error payload returned by the tools.
type MCPError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Guidance    string   `json:"guidance,omitempty"`
}

func (e MCPError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s. %s", e.Code, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates an MCPError with the given code and message.
func NewError(code ErrorCode, message string) *MCPError {
	return &MCPError{
		Code:    string(code),
		Message: message,
	}
}

// WithGuidance sets the hint shown to the caller.
func (e *MCPError) WithGuidance(guidance string) *MCPError {
	e.Guidance = guidance
	return e
}

// WithSuggestions appends accepted values, such as mode names.
func (e *MCPError) WithSuggestions(suggestions ...string) *MCPError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// ToMCPResult converts the error to an MCP tool result.
func (e *MCPError) ToMCPResult() *mcp.CallToolResult {
	errorJSON, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ERROR: %s - %s", e.Code, e.Message))
	}
	return mcp.NewToolResultError(string(errorJSON))
}

// ServiceError maps an upstream HTTP status onto an error code.
// Coordinates bypass geocoding, so most guidance suggests them.
func ServiceError(service string, statusCode int, message string) *MCPError {
	var code ErrorCode
	var guidance string

	switch statusCode {
	case http.StatusTooManyRequests:
		code = ErrRateLimit
		guidance = "The geocoder allows about one lookup per second. Wait briefly, or pass coordinates such as \"48.85, 2.35\"."
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		code = ErrServiceTimeout
		guidance = "The geocoder did not answer in time. Retry, or pass coordinates instead of place names."
	case http.StatusBadRequest:
		code = ErrInvalidInput
		guidance = "The geocoder rejected the place name. Shorten it to a city and country."
	case http.StatusServiceUnavailable:
		code = ErrServiceUnavailable
		guidance = "The geocoder is down. Emission figures still work when both ends are given as coordinates."
	default:
		code = ErrServiceUnavailable
		if statusCode >= 500 {
			code = ErrInternalError
		}
		guidance = "The geocoder failed. Pass coordinates instead of place names, or retry later."
	}

	return NewError(code, fmt.Sprintf("%s returned %d: %s", service, statusCode, message)).
		WithGuidance(guidance)
}

// NewValidationError creates an error for rejected tool arguments.
func NewValidationError(code ErrorCode, message string) *MCPError {
	return NewError(code, message).
		WithGuidance("Correct the highlighted argument and call the tool again.")
}
