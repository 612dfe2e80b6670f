// Package steam talks to the Steam Web API, the Steam store, and the Steam
// community site.
//
// Every outbound call goes through one Limiter, so the process never issues
// two Steam calls closer together than the configured interval. Calls are
// never retried: a non-200 status or an undecodable body is an
// apperror.ErrUpstream and ends the run.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/StarterX4/steamlinuxchecker/internal/apperror"
)

const (
	DefaultAPIURL       = "https://api.steampowered.com"
	DefaultStoreURL     = "https://store.steampowered.com"
	DefaultCommunityURL = "https://steamcommunity.com"

	defaultTimeout = 10 * time.Second
)

// Client is a rate-limited Steam client.
type Client struct {
	apiKey     string
	httpClient *http.Client
	limiter    *Limiter
	logger     *slog.Logger

	apiURL       string
	storeURL     string
	communityURL string
}

// Option customises a Client.
type Option func(*Client)

// WithLimiter replaces the default limiter (DefaultCallInterval, real clock).
func WithLimiter(l *Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithBaseURLs points the client at other hosts. Empty values keep the
// defaults. Tests use it to aim every call at an httptest server.
func WithBaseURLs(api, store, community string) Option {
	return func(c *Client) {
		if api != "" {
			c.apiURL = api
		}
		if store != "" {
			c.storeURL = store
		}
		if community != "" {
			c.communityURL = community
		}
	}
}

// NewClient creates a client authenticating Web API calls with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		httpClient:   &http.Client{Timeout: defaultTimeout},
		limiter:      NewLimiter(DefaultCallInterval, clockwork.NewRealClock()),
		logger:       slog.Default(),
		apiURL:       DefaultAPIURL,
		storeURL:     DefaultStoreURL,
		communityURL: DefaultCommunityURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// keyed adds the API key to a Web API query.
func (c *Client) keyed(query url.Values) url.Values {
	query.Set("key", c.apiKey)
	return query
}

// fetchJSON GETs endpoint and decodes the JSON body into dst.
//
// The endpoint is logged without its query, so the API key never reaches
// the logs or an error message.
func (c *Client) fetchJSON(ctx context.Context, endpoint string, query url.Values, dst any) error {
	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		return apperror.Upstream(fmt.Sprintf("steam: malformed JSON from %s: %v", endpoint, err))
	}
	return nil
}

// fetchPage GETs endpoint and returns the body as text.
func (c *Client) fetchPage(ctx context.Context, endpoint string, query url.Values) (string, error) {
	body, err := c.get(ctx, endpoint, query)
	if err != nil {
		return "", err
	}
	defer body.Close()

	b, err := io.ReadAll(body)
	if err != nil {
		return "", apperror.Upstream(fmt.Sprintf("steam: reading %s: %v", endpoint, err))
	}
	return string(b), nil
}

// get waits for a call slot and issues the request. On success the caller
// owns the returned body.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("steam: waiting to call %s: %w", endpoint, err)
	}

	target := endpoint
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("steam: creating request for %s: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error repeats the full URL, key included.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, apperror.Upstream(fmt.Sprintf("steam: GET %s: %v", endpoint, err))
	}

	c.logger.Debug("steam call",
		slog.String("endpoint", endpoint),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, apperror.Upstream(fmt.Sprintf("steam: GET %s: status %d", endpoint, resp.StatusCode))
	}
	return resp.Body, nil
}
