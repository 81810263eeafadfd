// Package apiclient talks to the remote Assessment and Proctoring REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxErrorBody = 64 << 10

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. https://exam.example.com/api/v1.
	BaseURL string
	// Token is sent as a bearer token. Empty sends no Authorization header.
	Token string
	// Timeout bounds each request.
	Timeout time.Duration
	// MaxRPS caps outbound requests per second (0 = unlimited).
	MaxRPS float64
	// HTTPClient replaces the default client; Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client is a JSON client for the exam API. Safe for concurrent use.
type Client struct {
	baseURL    *url.URL
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// New creates a Client. The token, if any, is inspected (not verified) so an
// expired or soon-expiring credential shows up in the logs at startup.
func New(opts Options, log zerolog.Logger) (*Client, error) {
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}

	c := &Client{
		baseURL:    base,
		token:      opts.Token,
		httpClient: hc,
		log:        log.With().Str("component", "api_client").Str("api", base.Host).Logger(),
	}
	if opts.MaxRPS > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.MaxRPS), 1)
	}

	if opts.Token != "" {
		c.logTokenInfo(opts.Token)
	}
	return c, nil
}

func (c *Client) logTokenInfo(token string) {
	info, err := InspectToken(token)
	if err != nil {
		c.log.Warn().Err(err).Msg("API token is not a readable JWT")
		return
	}
	evt := c.log.Info().Str("subject", info.Subject)
	if !info.ExpiresAt.IsZero() {
		left := time.Until(info.ExpiresAt)
		if left <= 0 {
			c.log.Warn().Str("subject", info.Subject).Time("expired_at", info.ExpiresAt).Msg("API token has expired")
			return
		}
		if left < time.Hour {
			c.log.Warn().Str("subject", info.Subject).Dur("expires_in", left).Msg("API token expires soon")
			return
		}
		evt = evt.Time("expires_at", info.ExpiresAt)
	}
	evt.Msg("API token loaded")
}

// call describes one request.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	// attemptRoute marks routes that answer 404 when the attempt is not active.
	attemptRoute bool
}

// do sends the request and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, r call, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	u := c.baseURL.JoinPath(r.path)
	if len(r.query) > 0 {
		u.RawQuery = r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		payload, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.method, r.path, err)
	}
	defer resp.Body.Close()

	c.log.Debug().
		Str("method", r.method).
		Str("path", r.path).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("API call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return newAPIError(r, resp.StatusCode, raw)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}
