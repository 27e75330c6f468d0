// Package osm resolves place names to coordinates through the Nominatim
// geocoding service.
package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/co2mcp/pkg/core"
	"github.com/NERVsystems/co2mcp/pkg/tracing"
)

const (
	// NominatimBaseURL is the public Nominatim instance.
	NominatimBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultUserAgent identifies this application as Nominatim's usage
	// policy requires.
	DefaultUserAgent = "co2_footprint_tracker"

	// DefaultTimeout bounds a single geocoding request.
	DefaultTimeout = 5 * time.Second
)

// ErrNotFound is returned when the geocoder has no match for a query.
var ErrNotFound = errors.New("location not found")

// Options configures a Geocoder. Zero values select defaults.
type Options struct {
	BaseURL           string
	UserAgent         string
	Language          string
	RequestsPerSecond float64
	Burst             int
	CacheSize         int
	CacheTTL          time.Duration
	Timeout           time.Duration
	Retry             *core.RetryOptions
	HTTPClient        *http.Client
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = NominatimBaseURL
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = DefaultUserAgent
	}
	if o.RequestsPerSecond <= 0 {
		o.RequestsPerSecond = 1
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 1024
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 24 * time.Hour
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retry == nil {
		r := core.DefaultRetryOptions
		o.Retry = &r
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return o
}

type cacheEntry struct {
	places  []Place
	expires time.Time
}

// Geocoder is a rate-limited, caching Nominatim client. It is safe for
// concurrent use.
type Geocoder struct {
	opts    Options
	limiter *rate.Limiter
	cache   *lru.Cache[string, cacheEntry]
	logger  *slog.Logger
}

// NewGeocoder creates a geocoder with the given options.
func NewGeocoder(opts Options) (*Geocoder, error) {
	opts = opts.withDefaults()
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid geocoder base URL %q: %w", opts.BaseURL, err)
	}
	cache, err := lru.New[string, cacheEntry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("create geocode cache: %w", err)
	}
	return &Geocoder{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		cache:   cache,
		logger:  slog.Default().With("component", "geocoder"),
	}, nil
}

// BaseURL returns the service endpoint.
func (g *Geocoder) BaseURL() string { return g.opts.BaseURL }

// UserAgent returns the User-Agent sent with every request.
func (g *Geocoder) UserAgent() string { return g.opts.UserAgent }

// CacheLen returns the number of cached queries.
func (g *Geocoder) CacheLen() int { return g.cache.Len() }

func (g *Geocoder) waitForRateLimit(ctx context.Context) error {
	if g.limiter.Allow() {
		return nil
	}
	start := time.Now()
	tracing.AddEvent(ctx, "rate_limit_wait", trace.WithAttributes(
		attribute.String(tracing.AttrRateLimitService, tracing.ServiceNominatim),
	))
	err := g.limiter.Wait(ctx)
	wait := time.Since(start)
	tracing.SetAttributes(ctx, attribute.Int64(tracing.AttrRateLimitWaitMs, wait.Milliseconds()))
	notifyRateLimit(tracing.ServiceNominatim, wait)
	return err
}

// get performs a rate-limited GET with retries and decodes the JSON body.
func (g *Geocoder) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout*time.Duration(max(g.opts.Retry.MaxAttempts, 1)))
	defer cancel()

	endpoint := g.opts.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	notifyRequest(tracing.ServiceNominatim, operation)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", g.UserAgent())
	req.Header.Set("Accept", "application/json")

	retry := *g.opts.Retry
	retry.BeforeAttempt = func(ctx context.Context) error {
		if err := g.waitForRateLimit(ctx); err != nil {
			notifyError(tracing.ServiceNominatim, "rate_limit_wait_error")
			return err
		}
		return nil
	}

	start := time.Now()
	resp, err := core.WithRetry(ctx, req, g.opts.HTTPClient, retry)
	duration := time.Since(start)
	if err != nil {
		notifyResponse(tracing.ServiceNominatim, operation, duration, false)
		notifyError(tracing.ServiceNominatim, "request_error")
		return err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			notifyResponse(tracing.ServiceNominatim, operation, duration, false)
			notifyError(tracing.ServiceNominatim, "decode_error")
			return core.NewError(core.ErrParseError, fmt.Sprintf("decode %s response: %v", operation, err))
		}
	}
	notifyResponse(tracing.ServiceNominatim, operation, duration, true)
	return nil
}

// Search returns up to limit matches for query, best first. Results,
// including empty ones, are cached by normalised query.
func (g *Geocoder) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, core.NewValidationError(core.ErrEmptyParameter, "query must not be empty")
	}
	if limit <= 0 {
		limit = 1
	}
	key := fmt.Sprintf("%d|%s", limit, strings.ToLower(query))

	ctx, span := tracing.StartSpan(ctx, "nominatim.search", trace.WithAttributes(
		tracing.ServiceAttributes(tracing.ServiceNominatim, "search", g.opts.BaseURL, 0)...,
	))
	defer span.End()

	if e, ok := g.cache.Get(key); ok && time.Now().Before(e.expires) {
		span.SetAttributes(tracing.CacheAttributes(tracing.CacheTypeGeocode, true, key)...)
		notifyCache(true, g.cache.Len())
		return clonePlaces(e.places), nil
	}
	span.SetAttributes(tracing.CacheAttributes(tracing.CacheTypeGeocode, false, key)...)
	notifyCache(false, g.cache.Len())

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", fmt.Sprint(limit))
	if g.opts.Language != "" {
		params.Set("accept-language", g.opts.Language)
	}

	var raw []nominatimPlace
	if err := g.get(ctx, "search", "/search", params, &raw); err != nil {
		tracing.RecordError(ctx, err, trace.WithAttributes(tracing.ErrorAttributes("search", err)...))
		tracing.SetStatus(ctx, codes.Error, "search failed")
		g.logger.Warn("geocode request failed", "query", query, "error", err)
		return nil, err
	}

	places := make([]Place, 0, len(raw))
	for _, r := range raw {
		p, err := r.toPlace()
		if err != nil {
			g.logger.Debug("skipping malformed result", "query", query, "error", err)
			continue
		}
		places = append(places, p)
	}

	g.cache.Add(key, cacheEntry{places: places, expires: time.Now().Add(g.opts.CacheTTL)})
	span.SetAttributes(attribute.Int("geocode.results", len(places)))
	tracing.SetStatus(ctx, codes.Ok, "")
	g.logger.Debug("geocoded", "query", query, "results", len(places))
	return clonePlaces(places), nil
}

// Geocode returns the best match for query or ErrNotFound.
func (g *Geocoder) Geocode(ctx context.Context, query string) (Place, error) {
	places, err := g.Search(ctx, query, 1)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return places[0], nil
}

// CheckHealth queries the Nominatim status endpoint.
func (g *Geocoder) CheckHealth(ctx context.Context) error {
	var status struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	params := url.Values{}
	params.Set("format", "json")
	if err := g.get(ctx, "status", "/status", params, &status); err != nil {
		return fmt.Errorf("nominatim health check failed: %w", err)
	}
	if status.Status != 0 {
		return fmt.Errorf("nominatim reports status %d: %s", status.Status, status.Message)
	}
	return nil
}

func clonePlaces(p []Place) []Place {
	out := make([]Place, len(p))
	copy(out, p)
	return out
}
