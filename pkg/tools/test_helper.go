package tools

import (
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/co2mcp/pkg/core"
)

// IsErrorResult checks if a CallToolResult represents an error.
func IsErrorResult(result *mcp.CallToolResult) bool {
	return result != nil && result.IsError
}

// AssertErrorResult checks that a result is an error result and fails the test if not.
func AssertErrorResult(t *testing.T, result *mcp.CallToolResult, message string) {
	t.Helper()
	if !IsErrorResult(result) {
		t.Error(message)
	}
}

// AssertSuccessResult checks that a result is a success result and fails the test if not.
func AssertSuccessResult(t *testing.T, result *mcp.CallToolResult, message string) {
	t.Helper()
	if IsErrorResult(result) {
		t.Errorf("%s. Got error: %s", message, resultText(result))
	}
}

// AssertErrorCode checks that a result is an error result carrying code.
func AssertErrorCode(t *testing.T, result *mcp.CallToolResult, code core.ErrorCode) {
	t.Helper()
	if !IsErrorResult(result) {
		t.Fatalf("expected %s error, got success: %s", code, resultText(result))
	}
	var e core.MCPError
	if err := ParseResultJSON(result, &e); err != nil {
		t.Fatalf("error result is not JSON: %v", err)
	}
	if e.Code != string(code) {
		t.Errorf("error code = %s, want %s (%s)", e.Code, code, e.Message)
	}
}

// ParseResultJSON parses the JSON content from a CallToolResult.
func ParseResultJSON(result *mcp.CallToolResult, out any) error {
	return json.Unmarshal([]byte(resultText(result)), out)
}

func resultText(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}
