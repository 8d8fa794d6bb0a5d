// Package transport provides the authenticated HTTP client shared by the
// remote task system clients.
package transport

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentstation/tasklink/pkg/constants"
	"github.com/agentstation/tasklink/pkg/errors"
	"github.com/agentstation/tasklink/pkg/logging"
)

// Config configures a Client.
type Config struct {
	System  string // short system name used in errors and logs
	BaseURL string
	Token   string
	Auth    Authenticator
	Timeout time.Duration
	HTTP    *http.Client // optional, overrides Timeout
}

// Client performs authenticated JSON requests against one remote system.
type Client struct {
	system  string
	baseURL *url.URL
	token   string
	http    *http.Client
	auth    Authenticator
}

// New creates a Client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.NewConfigError(cfg.System, "base_url is required", nil)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
	if err != nil {
		return nil, errors.NewConfigError(cfg.System, "invalid base_url", err)
	}

	auth := cfg.Auth
	if auth == nil {
		auth = &BearerAuth{}
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = constants.DefaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		system:  cfg.System,
		baseURL: base,
		token:   cfg.Token,
		http:    httpClient,
		auth:    auth,
	}, nil
}

// System returns the configured system name.
func (c *Client) System() string {
	return c.system
}

// URL resolves a relative path against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Do performs a request with authentication and JSON headers applied.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		c.auth.Apply(req, c.token)
	}
	req.Header.Set("Accept", "application/json")
	if req.Method == http.MethodPost || req.Method == http.MethodPut || req.Method == http.MethodPatch {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

// GetJSON performs a GET request and decodes the JSON response into target.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, target any) error {
	endpoint := c.URL(path, query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.WrapAPI(c.system, 0, err)
	}

	start := time.Now()
	resp, err := c.Do(req)
	if err != nil {
		return &errors.APIError{System: c.system, Endpoint: path, Message: err.Error(), Err: err}
	}

	logging.FromContext(ctx).Debug().
		Str("system", c.system).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Remote request")

	return DecodeResponse(c.system, path, resp, target)
}
