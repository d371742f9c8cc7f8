package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/yichenlu/sensereader/pkg/errs"
)

// ConnectorSettings are the retry and timeout knobs every connector exposes
type ConnectorSettings struct {
	TimeoutMs        int     `json:"timeout_ms"`
	MaxRetries       int     `json:"max_retries"`
	BackoffInitialMs int     `json:"backoff_initial_ms"`
	BackoffFactor    float64 `json:"backoff_factor"`
}

// DefaultConnectorSettings mirror the device fan-out defaults
func DefaultConnectorSettings() ConnectorSettings {
	return ConnectorSettings{
		TimeoutMs:        2000,
		MaxRetries:       2,
		BackoffInitialMs: 200,
		BackoffFactor:    2.0,
	}
}

// Connector is the uniform interface for external service access
type Connector interface {
	Name() string
	Connect(ctx context.Context) error
	Disconnect() error
	Settings() ConnectorSettings
}

// HTTPConnector wraps an http.Client with connector-level retries and
// timeouts. Retries apply only to transient failures; callers signalling a
// permanent error through errs kinds are not retried.
type HTTPConnector struct {
	name     string
	client   *http.Client
	settings ConnectorSettings
}

// NewHTTPConnector creates an HTTP connector
func NewHTTPConnector(name string, settings ConnectorSettings) *HTTPConnector {
	if settings.TimeoutMs <= 0 {
		settings = DefaultConnectorSettings()
	}
	return &HTTPConnector{
		name: name,
		client: &http.Client{
			Timeout: time.Duration(settings.TimeoutMs) * time.Millisecond,
		},
		settings: settings,
	}
}

func (c *HTTPConnector) Name() string                { return c.name }
func (c *HTTPConnector) Connect(context.Context) error { return nil }
func (c *HTTPConnector) Disconnect() error           { return nil }
func (c *HTTPConnector) Settings() ConnectorSettings { return c.settings }

// Post sends body to url and returns the response bytes. Transient errors
// are retried with exponential backoff per the connector settings.
func (c *HTTPConnector) Post(ctx context.Context, url, contentType string, body []byte) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
}

// Get fetches url and returns the response bytes
func (c *HTTPConnector) Get(ctx context.Context, url string) ([]byte, error) {
	return c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	})
}

func (c *HTTPConnector) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	backoff := time.Duration(c.settings.BackoffInitialMs) * time.Millisecond

	var lastErr error
	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, errs.Wrap(errs.Timeout, "connector deadline elapsed", ctx.Err())
			case <-time.After(backoff):
			}
			backoff = time.Duration(float64(backoff) * c.settings.BackoffFactor)
		}

		req, err := build()
		if err != nil {
			return nil, errs.Wrap(errs.Internal, "failed to build request", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = errs.Wrap(errs.UpstreamUnavailable, "request failed", err)
			continue
		}

		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = errs.Wrap(errs.UpstreamUnavailable, "failed to read response", err)
			continue
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return data, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, errs.Newf(errs.Unauthorized, "%s: upstream rejected credentials", c.name)
		case resp.StatusCode >= 400 && resp.StatusCode < 500:
			return nil, errs.Newf(errs.InvalidArgument, "%s: upstream returned %d", c.name, resp.StatusCode)
		default:
			lastErr = errs.Newf(errs.UpstreamUnavailable, "%s: upstream returned %d", c.name, resp.StatusCode)
		}
	}

	if lastErr == nil {
		lastErr = errs.Newf(errs.UpstreamUnavailable, "%s: request failed", c.name)
	}
	return nil, fmt.Errorf("connector %s exhausted retries: %w", c.name, lastErr)
}
