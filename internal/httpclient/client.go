// Package httpclient provides the HTTP client used by API sources
package httpclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout is used when no timeout is configured
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize bounds how much of a response body is read
	MaxResponseSize = 100 * 1024 * 1024

	// UserAgent identifies the catalog sync engine to remote APIs
	UserAgent = "thv-catalog-sync"
)

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client fetches documents over HTTP
type Client interface {
	// Get fetches url and returns the response body
	Get(ctx context.Context, url string) ([]byte, error)
}

type defaultClient struct {
	client *http.Client
}

// NewDefaultClient creates a client with the given timeout. A zero timeout uses DefaultTimeout.
func NewDefaultClient(timeout time.Duration) Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &defaultClient{client: &http.Client{Timeout: timeout}}
}

func (c *defaultClient) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, NewHTTPError(resp.StatusCode, url, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
