// Package client is a thin wrapper the CLI uses to call the dnsqd lookup
// API over TCP or a Unix domain socket. It returns the DTOs from pkg/api
// so callers get typed results instead of generic maps.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lc/dnsq/internal/buildinfo"
	"github.com/lc/dnsq/internal/socket"
	"github.com/lc/dnsq/pkg/api"
)

// ErrBadEndpoint is returned by New for an endpoint it cannot dial.
var ErrBadEndpoint = errors.New("bad endpoint")

// StatusError is a response with a non-2xx HTTP status. The request
// reached the server but never produced an envelope.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return "server returned " + e.Status
}

// Client holds an http.Client wired to the daemon.
type Client struct {
	hc    *http.Client
	base  string
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithTimeout bounds every request end to end.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.hc.Timeout = d
	}
}

// New returns a Client for endpoint: an http(s) base URL, or unix:/path
// for a Unix domain socket.
func New(endpoint string, opts ...Option) (*Client, error) {
	c := &Client{hc: &http.Client{}}

	if path, ok := socket.SplitAddr(endpoint); ok {
		if path == "" {
			return nil, fmt.Errorf("%w: empty socket path", ErrBadEndpoint)
		}
		dial := func(ctx context.Context, _, _ string) (net.Conn, error) {
			return socket.DialContext(ctx, path)
		}
		c.hc.Transport = &http.Transport{DialContext: dial}
		c.base = "http://unix"
	} else {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadEndpoint, err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrBadEndpoint, endpoint)
		}
		c.base = strings.TrimRight(endpoint, "/")
	}

	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// --------------------------- commands ------------------------------

// Query runs a standard lookup.
func (c *Client) Query(ctx context.Context, req api.QueryRequest) (*api.Result, error) {
	return c.Lookup(ctx, api.PathQuery, req)
}

// QueryDNSSEC runs a DNSSEC lookup.
func (c *Client) QueryDNSSEC(ctx context.Context, req api.QueryRequest) (*api.Result, error) {
	return c.Lookup(ctx, api.PathQueryDNSSEC, req)
}

// Lookup posts req to path. A non-success envelope comes back as
// *api.AppError; a non-2xx status as *StatusError; anything else is a
// transport error.
func (c *Client) Lookup(ctx context.Context, path string, req api.QueryRequest) (*api.Result, error) {
	var env struct {
		Code string          `json:"code"`
		Msg  string          `json:"msg"`
		Data json.RawMessage `json:"data"`
	}
	if err := c.post(ctx, path, req, &env); err != nil {
		return nil, err
	}
	if env.Code != api.CodeOK {
		return nil, &api.AppError{Code: env.Code, Msg: env.Msg}
	}

	res := &api.Result{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, res); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return res, nil
}

// Status retrieves uptime, lookup count and version of the daemon.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var out api.StatusResponse
	err := c.get(ctx, api.PathStatus, &out)
	return out, err
}

// --------------------------- HTTP helpers --------------------------

func (c *Client) post(ctx context.Context, path string, payload, v any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, v)
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req, v)
}

func (c *Client) do(req *http.Request, v any) error {
	req.Header.Set("User-Agent", buildinfo.UserAgent())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
