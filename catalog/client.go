// Package catalog talks to the library catalog website: a thin HTTP client
// plus a walker that turns listing and detail pages into records.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// Client issues GET requests against the catalog. The underlying resty
// client is created lazily on first use and can be released with Close; a
// later call recreates it.
type Client struct {
	baseURL   string
	origin    string
	userAgent string
	timeout   time.Duration

	mu   sync.Mutex
	http *resty.Client
}

// NewClient validates the base URL and prepares a client. No connection is
// opened until the first fetch.
func NewClient(baseURL, userAgent string, timeout time.Duration) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	return &Client{
		baseURL:   baseURL,
		origin:    parsed.Scheme + "://" + parsed.Host,
		userAgent: userAgent,
		timeout:   timeout,
	}, nil
}

// BaseURL returns the configured catalog listing URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Origin returns the scheme://host prefix used to absolutize relative hrefs.
func (c *Client) Origin() string {
	return c.origin
}

func (c *Client) session() *resty.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http == nil {
		client := resty.New()
		client.SetHeader("user-agent", c.userAgent)
		client.SetTimeout(c.timeout)
		c.http = client
	}
	return c.http
}

// HTTPClient exposes the underlying http.Client, primarily so tests can
// attach a mock transport.
func (c *Client) HTTPClient() *http.Client {
	return c.session().GetClient()
}

// FetchText GETs rawURL and returns the decoded body. A transport failure or
// a non-2xx status yields a NetworkError; nothing is retried.
func (c *Client) FetchText(ctx context.Context, rawURL string) (string, error) {
	res, err := c.session().R().SetContext(ctx).Get(rawURL)
	if err != nil {
		return "", &NetworkError{URL: rawURL, Err: err}
	}
	if !res.IsSuccess() {
		return "", &NetworkError{URL: rawURL, StatusCode: res.StatusCode()}
	}
	return res.String(), nil
}

// Close releases idle connections. The client is recreated on the next
// fetch, so Close is safe at any point.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.http != nil {
		c.http.GetClient().CloseIdleConnections()
		c.http = nil
	}
}
