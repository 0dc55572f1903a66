// Package scryfall is a rate-limited client for the Scryfall card API.
package scryfall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public Scryfall API endpoint.
	DefaultBaseURL = "https://api.scryfall.com"

	rateLimitDelay = 100 * time.Millisecond // Scryfall asks for 10 req/sec
	requestTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 16 * time.Second
)

// Client represents a Scryfall API client with rate limiting.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	rateLimiter    *rate.Limiter
	userAgent      string
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithRateLimit sets the minimum delay between requests.
func WithRateLimit(every time.Duration) Option {
	return func(c *Client) {
		c.rateLimiter = rate.NewLimiter(rate.Every(every), 1)
	}
}

// WithRetryBackoff sets the exponential backoff bounds used between retries.
func WithRetryBackoff(initial, maxInterval time.Duration) Option {
	return func(c *Client) {
		c.initialBackoff = initial
		c.maxBackoff = maxInterval
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a new Scryfall API client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		rateLimiter:    rate.NewLimiter(rate.Every(rateLimitDelay), 1),
		userAgent:      "MTG-Upgrade-Advisor/1.0",
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// GetCardByName retrieves a card by exact name. Either face of a
// double-faced card matches.
func (c *Client) GetCardByName(ctx context.Context, name string) (*Card, error) {
	endpoint := c.baseURL + "/cards/named?" + url.Values{"exact": {name}}.Encode()

	var card Card
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &card); err != nil {
		return nil, fmt.Errorf("failed to get card %q: %w", name, err)
	}
	return &card, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialBackoff
	b.MaxInterval = c.maxBackoff
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, maxRetries), ctx)
}

// doRequest performs an HTTP request with rate limiting and retry logic.
// Network errors, 429 and 5xx responses are retried; everything else is final.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body []byte, result any) error {
	var lastErr error

	operation := func() error {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limiter error: %w", err))
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			lastErr = fmt.Errorf("HTTP request failed: %w", err)
			return lastErr
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %w", err)
			return lastErr
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.Unmarshal(data, result); err != nil {
				return backoff.Permanent(fmt.Errorf("failed to parse JSON response: %w", err))
			}
			return nil

		case resp.StatusCode == http.StatusNotFound:
			return backoff.Permanent(&NotFoundError{URL: endpoint})

		case resp.StatusCode == http.StatusTooManyRequests:
			lastErr = fmt.Errorf("rate limited (HTTP 429)")
			return lastErr

		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("server error (HTTP %d)", resp.StatusCode)
			return lastErr

		default:
			var apiErr APIError
			if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Details != "" {
				return backoff.Permanent(&apiErr)
			}
			return backoff.Permanent(fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(data)))
		}
	}

	err := backoff.Retry(operation, c.newBackOff(ctx))
	if err != nil && lastErr != nil && err == lastErr {
		return fmt.Errorf("max retries exceeded: %w", err)
	}
	return err
}
