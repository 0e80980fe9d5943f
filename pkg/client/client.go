// Package client is a Go client for the read-only wildfire aggregate API
// ("focos"): KPIs, choropleths, rankings, series, bounds, overlays, points
// and the filter catalog.
package client

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/focosview/focosview/pkg/errors"
)

const Version = "0.1.0"

// Logger defines the logging interface used by the Client
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// noopLogger is a no-op implementation of Logger
type noopLogger struct{}

func (noopLogger) Debugf(format string, args ...interface{}) {}
func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

// ResponseCache stores raw response bodies of static lookups keyed by
// request path and query.
type ResponseCache interface {
	GetBody(ctx context.Context, key string) ([]byte, bool, error)
	SetBody(ctx context.Context, key string, body []byte) error
}

// RequestObserver receives one call per finished HTTP attempt. statusCode is
// 0 when the request never got a response.
type RequestObserver interface {
	ObserveRequest(path string, statusCode int, duration time.Duration)
}

// Client is the aggregate API client
type Client struct {
	baseURL      string
	httpClient   *http.Client
	userAgent    string
	logger       Logger
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
	cache        ResponseCache
	observer     RequestObserver

	aggregates     *AggregatesClient
	aggregatesOnce sync.Once
	geo            *GeoClient
	geoOnce        sync.Once
	catalog        *CatalogClient
	catalogOnce    sync.Once
}

// APIError represents a non-2xx response. Detail carries the FastAPI
// "detail" field, or the raw body when it is not JSON.
type APIError struct {
	StatusCode int    `json:"status_code"`
	Path       string `json:"path"`
	Detail     string `json:"detail"`
	RequestID  string `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d %s", e.StatusCode, e.Detail)
}

func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (e *APIError) IsServerError() bool {
	return e.StatusCode >= 500 && e.StatusCode < 600
}

// IsGeometrySourceMissing reports whether the backend has no geometry table
// configured for the requested entity.
func (e *APIError) IsGeometrySourceMissing() bool {
	return strings.Contains(e.Detail, "geometry source not configured")
}

// IsGeometryNotFound reports whether the backend found no geometry for the key.
func (e *APIError) IsGeometryNotFound() bool {
	return strings.Contains(e.Detail, "geometry not found")
}

// IsCanceled reports whether err stems from a cancelled context. Cancellation
// is how superseded requests end and is never a user-facing failure.
func IsCanceled(err error) bool {
	return err != nil && (stderrors.Is(err, context.Canceled) || errors.IsCancelled(err))
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// NewClient creates a new aggregate API client
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.ErrInvalidConfig
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid baseURL: %v", errors.ErrInvalidConfig, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("%w: baseURL scheme must be http or https", errors.ErrInvalidConfig)
	}

	baseURL = strings.TrimSuffix(baseURL, "/")

	c := &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		userAgent:    fmt.Sprintf("focosview-go/%s", Version),
		logger:       &noopLogger{},
		retryMax:     2,
		retryWaitMin: 200 * time.Millisecond,
		retryWaitMax: 2 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// BaseURL returns the normalised API root.
func (c *Client) BaseURL() string { return c.baseURL }

// Aggregates returns the aggregates sub-client (lazy initialization, thread-safe)
func (c *Client) Aggregates() *AggregatesClient {
	c.aggregatesOnce.Do(func() {
		c.aggregates = &AggregatesClient{client: c}
	})
	return c.aggregates
}

// Geo returns the geometry sub-client (lazy initialization, thread-safe)
func (c *Client) Geo() *GeoClient {
	c.geoOnce.Do(func() {
		c.geo = &GeoClient{client: c}
	})
	return c.geo
}

// Catalog returns the filter catalog sub-client (lazy initialization, thread-safe)
func (c *Client) Catalog() *CatalogClient {
	c.catalogOnce.Do(func() {
		c.catalog = &CatalogClient{client: c}
	})
	return c.catalog
}

// query collects request parameters, dropping empty values.
type query url.Values

func newQuery() query { return query(url.Values{}) }

func (q query) set(key, value string) query {
	if value = strings.TrimSpace(value); value != "" {
		url.Values(q).Set(key, value)
	}
	return q
}

func (q query) setInt(key string, v int) query {
	if v > 0 {
		url.Values(q).Set(key, strconv.Itoa(v))
	}
	return q
}

func (q query) encode() string { return url.Values(q).Encode() }

// get performs a GET with retry logic and decodes the JSON body into result.
func (c *Client) get(ctx context.Context, path string, q query, result interface{}) error {
	body, err := c.do(ctx, path, q)
	if err != nil {
		return err
	}
	return decode(body, result)
}

// getCached is get backed by the response cache when one is configured.
// Cache failures degrade to a live request.
func (c *Client) getCached(ctx context.Context, path string, q query, result interface{}) error {
	if c.cache == nil {
		return c.get(ctx, path, q, result)
	}
	key := path + "?" + q.encode()
	if body, ok, err := c.cache.GetBody(ctx, key); err != nil {
		c.logger.Errorf("cache get %s: %v", key, err)
	} else if ok {
		c.logger.Debugf("cache hit %s", key)
		return decode(body, result)
	}

	body, err := c.do(ctx, path, q)
	if err != nil {
		return err
	}
	if err := decode(body, result); err != nil {
		return err
	}
	if err := c.cache.SetBody(ctx, key, body); err != nil {
		c.logger.Errorf("cache set %s: %v", key, err)
	}
	return nil
}

func decode(body []byte, result interface{}) error {
	if result == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal response")
	}
	return nil
}

// do performs an HTTP GET with retry logic and returns the raw body.
func (c *Client) do(ctx context.Context, path string, q query) ([]byte, error) {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	fullURL := c.baseURL + path
	if encoded := q.encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	var lastErr error
	for attempt := 0; attempt <= c.retryMax; attempt++ {
		if attempt > 0 {
			backoff := c.calculateBackoff(attempt)
			c.logger.Debugf("Retry attempt %d after %v", attempt, backoff)

			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		requestID := uuid.New().String()
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("X-Request-ID", requestID)

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		duration := time.Since(start)

		if err != nil {
			c.observe(path, 0, duration)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Errorf("Request failed: %v", err)
			lastErr = err
			if c.shouldRetry(ctx, nil, err) {
				continue
			}
			return nil, err
		}

		c.observe(path, resp.StatusCode, duration)
		c.logger.Debugf("GET %s %d (%v)", path, resp.StatusCode, duration)

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("failed to read response body: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := resp.Header.Get("Retry-After")
			if retryAfter != "" {
				if seconds, err := strconv.Atoi(retryAfter); err == nil && attempt < c.retryMax {
					c.logger.Infof("Rate limited, retrying after %d seconds", seconds)
					select {
					case <-time.After(time.Duration(seconds) * time.Second):
						continue
					case <-ctx.Done():
						return nil, ctx.Err()
					}
				}
			}
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				Path:       path,
				RequestID:  requestID,
				Detail:     parseDetail(respBody),
			}
			lastErr = apiErr
			if c.shouldRetry(ctx, resp, nil) {
				continue
			}
			return nil, apiErr
		}

		return respBody, nil
	}

	return nil, lastErr
}

// parseDetail extracts the FastAPI {"detail": ...} message. Non-string
// details (validation error lists) are kept as their JSON text.
func parseDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var msg string
	if err := json.Unmarshal(envelope.Detail, &msg); err == nil {
		return msg
	}
	return string(envelope.Detail)
}

func (c *Client) observe(path string, statusCode int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveRequest(path, statusCode, d)
	}
}

func (c *Client) shouldRetry(ctx context.Context, resp *http.Response, err error) bool {
	// A cancelled request is superseded, never retried.
	if ctx.Err() != nil {
		return false
	}

	if err != nil {
		return true
	}

	if resp != nil && resp.StatusCode >= 500 && resp.StatusCode < 600 {
		return true
	}

	return false
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.retryWaitMin * time.Duration(1<<uint(attempt-1))
	if backoff > c.retryWaitMax {
		backoff = c.retryWaitMax
	}

	// jitter: 0-25% of backoff
	if quarter := int64(backoff / 4); quarter > 0 {
		backoff += time.Duration(rand.Int63n(quarter))
	}
	return backoff
}
