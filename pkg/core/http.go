package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/NERVsystems/co2mcp/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RetryOptions configures retry behavior for HTTP requests
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// BeforeAttempt, when set, runs before every attempt including the
	// first. An error aborts the request.
	BeforeAttempt func(ctx context.Context) error
}

// DefaultRetryOptions is the retry policy of the geocoder.
var DefaultRetryOptions = RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 500 * time.Millisecond,
	MaxDelay:     10 * time.Second,
	Multiplier:   2.0,
}

// DefaultClient is the shared outbound HTTP client.
var DefaultClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	},
}

// retryable reports whether a response status is worth another attempt.
// Client errors other than 429 will not change on retry.
func retryable(status int) bool {
	if status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		return true
	}
	return status >= 500
}

// WithRetry performs a body-less HTTP request with exponential backoff.
// It returns the first 200 response; the caller closes its body.
func WithRetry(ctx context.Context, req *http.Request, client *http.Client, options RetryOptions) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody {
		return nil, NewError(ErrInternalError, "cannot retry request with non-nil body")
	}
	if client == nil {
		client = DefaultClient
	}
	if options.MaxAttempts < 1 {
		options.MaxAttempts = 1
	}

	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("http.request %s %s", req.Method, req.URL.Host),
		trace.WithAttributes(
			attribute.String(tracing.AttrHTTPMethod, req.Method),
			attribute.String("http.url", req.URL.String()),
			attribute.Int("http.retry.max_attempts", options.MaxAttempts),
		),
	)
	defer span.End()

	logger := slog.Default().With("url", req.URL.String(), "method", req.Method)

	var lastErr error
	delay := options.InitialDelay
	attempts := 0

	for attempt := 0; attempt < options.MaxAttempts; attempt++ {
		if attempt > 0 {
			tracing.AddEvent(ctx, "retry_attempt", trace.WithAttributes(
				attribute.Int("attempt", attempt+1),
				attribute.Int64("delay_ms", delay.Milliseconds()),
			))
			logger.Info("retrying request", "attempt", attempt+1, "delay", delay, "last_error", lastErr)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				span.SetStatus(codes.Error, "request cancelled")
				return nil, ctx.Err()
			}

			delay = time.Duration(float64(delay) * options.Multiplier)
			if delay > options.MaxDelay {
				delay = options.MaxDelay
			}
		}
		if options.BeforeAttempt != nil {
			if err := options.BeforeAttempt(ctx); err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "before attempt failed")
				return nil, err
			}
		}
		attempts++

		resp, err := client.Do(req.Clone(ctx))
		if err == nil && resp.StatusCode == http.StatusOK {
			span.SetAttributes(
				attribute.Int(tracing.AttrHTTPStatusCode, resp.StatusCode),
				attribute.Int("http.retry.attempts", attempts),
			)
			span.SetStatus(codes.Ok, "")
			logger.Debug("request successful", "status", resp.StatusCode, "attempts", attempts)
			return resp, nil
		}

		if err != nil {
			if ctx.Err() != nil {
				span.SetStatus(codes.Error, "request cancelled")
				return nil, ctx.Err()
			}
			lastErr = err
			logger.Warn("request failed", "error", err, "attempt", attempt+1)
			continue
		}

		resp.Body.Close()
		lastErr = ServiceError(req.URL.Host, resp.StatusCode, http.StatusText(resp.StatusCode))
		logger.Warn("request returned error status", "status", resp.StatusCode, "attempt", attempt+1)
		if !retryable(resp.StatusCode) {
			break
		}
	}

	span.RecordError(lastErr)
	span.SetStatus(codes.Error, "request failed")
	span.SetAttributes(attribute.Int("http.retry.attempts", attempts))

	if mcpErr, ok := lastErr.(*MCPError); ok {
		return nil, mcpErr
	}
	return nil, NewError(ErrNetworkError, fmt.Sprintf("request failed after %d attempts: %v", attempts, lastErr)).
		WithGuidance("The geocoder could not be reached. Pass coordinates instead of place names, or retry later.")
}
