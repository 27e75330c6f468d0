package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/co2mcp/pkg/core"
)

// InputParser decodes request arguments into a strongly typed struct.
func InputParser[T any](req mcp.CallToolRequest) (T, *mcp.CallToolResult, error) {
	var input T

	inputJSON, err := json.Marshal(req.GetArguments())
	if err != nil {
		return input, core.NewValidationError(core.ErrInvalidInput, fmt.Sprintf("Invalid input format: %v", err)).ToMCPResult(), err
	}
	if err := json.Unmarshal(inputJSON, &input); err != nil {
		return input, core.NewValidationError(core.ErrInvalidInput, fmt.Sprintf("Failed to parse input: %v", err)).ToMCPResult(), err
	}
	return input, nil, nil
}

// WithParsedInput handles request parsing, error mapping and result
// encoding around a typed handler.
func WithParsedInput[T any](
	handlerName string,
	handler func(ctx context.Context, input T, logger *slog.Logger) (any, error),
) Handler {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := slog.Default().With("tool", handlerName)

		input, errResult, err := InputParser[T](req)
		if err != nil {
			logger.Warn("failed to parse input", "error", err)
			return errResult, nil
		}

		result, err := handler(ctx, input, logger)
		if err != nil {
			mcpErr := toMCPError(err)
			logger.Warn("handler error", "code", mcpErr.Code, "error", err)
			return mcpErr.ToMCPResult(), nil
		}

		return jsonResult(logger, result), nil
	}
}

func jsonResult(logger *slog.Logger, v any) *mcp.CallToolResult {
	resultBytes, err := json.Marshal(v)
	if err != nil {
		logger.Error("failed to marshal result", "error", err)
		return ErrorResponse("Failed to generate result")
	}
	return mcp.NewToolResultText(string(resultBytes))
}

// ErrorResponse creates an internal error result with a plain message.
func ErrorResponse(message string) *mcp.CallToolResult {
	return core.NewError(core.ErrInternalError, message).ToMCPResult()
}
