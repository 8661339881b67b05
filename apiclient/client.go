// Package apiclient is the cached HTTP fetch primitive shared by the query
// and report flows. It never renders anything: failures come back as
// *models.APIError and the caller decides how to show them.
package apiclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"nbme-dashboard-go/db"
	"nbme-dashboard-go/metrics"
	"nbme-dashboard-go/models"
)

// Client issues GET requests against the exam-results API.
type Client struct {
	baseURL string
	http    *http.Client
	cache   db.CacheStore
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithCache replaces the default in-memory cache.
func WithCache(store db.CacheStore) Option {
	return func(c *Client) { c.cache = store }
}

// WithMetrics enables Prometheus accounting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for baseURL (e.g. https://host/api).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		cache:   db.NewMemoryStore(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the request URL for endpoint without its query string.
func (c *Client) URL(endpoint string) string {
	return c.baseURL + "/" + strings.TrimLeft(endpoint, "/")
}

// Fetch returns the parsed body of GET {base}/{endpoint}?{params}.
// Identical (endpoint, params) pairs are served from cache after the first
// successful response; failures are not cached.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values) (Payload, error) {
	key := fingerprint(endpoint, params)

	body, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		// A broken cache only costs a network round trip.
		c.logger.Warn("fetch cache unavailable", zap.String("endpoint", endpoint), zap.Error(err))
	}
	if ok {
		c.metrics.CacheHit(endpoint)
		c.logger.Debug("fetch cache hit", zap.String("endpoint", endpoint))
		return decode(endpoint, body)
	}

	// The shared request outlives any single caller; the http.Client
	// timeout bounds it.
	flight := c.group.DoChan(key, func() (any, error) {
		return c.get(context.WithoutCancel(ctx), endpoint, params)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return Payload{}, &models.APIError{Endpoint: endpoint, Message: ctx.Err().Error()}
	case res = <-flight:
	}
	if res.Err != nil {
		return Payload{}, res.Err
	}
	body = res.Val.([]byte)
	if res.Shared {
		c.logger.Debug("fetch shared with in-flight request", zap.String("endpoint", endpoint))
	}

	payload, err := decode(endpoint, body)
	if err != nil {
		return Payload{}, err
	}
	if err := c.cache.Set(ctx, key, body); err != nil {
		c.logger.Warn("fetch cache write failed", zap.String("endpoint", endpoint), zap.Error(err))
	}
	return payload, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	target := c.URL(endpoint)
	if len(params) > 0 {
		target += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveUpstream(endpoint, 0, time.Since(start))
		c.logger.Error("upstream request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, &models.APIError{Endpoint: endpoint, Message: transportMessage(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.metrics.ObserveUpstream(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &models.APIError{Endpoint: endpoint, Message: transportMessage(err)}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &models.APIError{
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Message:  serverMessage(body),
		}
		c.logger.Warn("upstream returned error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return nil, apiErr
	}

	c.logger.Debug("upstream request ok",
		zap.String("endpoint", endpoint),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}

// serverMessage extracts the "error" field of an error body.
func serverMessage(body []byte) string {
	var envelope struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.UnknownErrorMessage
	}
	if msg, ok := models.ValueText(envelope.Error); ok && msg != "" {
		return msg
	}
	return models.UnknownErrorMessage
}

func transportMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// fingerprint identifies a request. url.Values.Encode sorts by key, so
// equal mappings share one cache entry whatever their insertion order.
func fingerprint(endpoint string, params url.Values) string {
	sum := sha256.Sum256([]byte(strings.Trim(endpoint, "/") + "?" + params.Encode()))
	return hex.EncodeToString(sum[:])
}
