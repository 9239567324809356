package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/geopost/geopost-cli/internal/debug"
)

// DefaultWorkers bounds how many SendAsync requests run at once.
const DefaultWorkers = 4

// SecretLookup returns the client secret stored for a post.
// Implementations return an error wrapping ErrNoClientSecret when none exists.
type SecretLookup interface {
	ClientSecret(ctx context.Context, postID int) (string, error)
}

// SecretSaver persists the client secret returned when a post is created.
type SecretSaver interface {
	SaveClientSecret(ctx context.Context, postID int, secret string) error
}

// Config is everything a Client needs. It is passed explicitly; there is no
// process-wide configuration.
type Config struct {
	BaseURL        string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	UserAgent      string
	Workers        int

	// Username and Password authenticate user-scoped calls.
	Username string
	Password string

	Secrets     SecretLookup
	SecretSaver SecretSaver
	MediaHook   MediaHook

	// RoundTripper replaces the network stack (tests, proxies).
	RoundTripper http.RoundTripper
}

// Client is the geopost API client. It is safe for concurrent use.
type Client struct {
	baseURL     string
	userAgent   string
	credentials *BasicAuth
	transport   *Transport
	dispatcher  *Dispatcher
	secrets     SecretLookup
	secretSaver SecretSaver
	mediaHook   MediaHook
}

// Compile-time interface implementation checks
var (
	_ Sender       = (*Client)(nil)
	_ AsyncSender  = (*Client)(nil)
	_ RouteBuilder = (*Client)(nil)
)

// New creates a client from cfg.
func New(cfg Config) *Client {
	c := &Client{
		baseURL:   strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/"),
		userAgent: cfg.UserAgent,
		transport: NewTransport(TransportConfig{
			ConnectTimeout: cfg.ConnectTimeout,
			ReadTimeout:    cfg.ReadTimeout,
			RoundTripper:   cfg.RoundTripper,
		}),
		secrets:     cfg.Secrets,
		secretSaver: cfg.SecretSaver,
		mediaHook:   cfg.MediaHook,
	}
	if cfg.Username != "" || cfg.Password != "" {
		c.credentials = &BasicAuth{Username: cfg.Username, Password: cfg.Password}
	}
	c.dispatcher = NewDispatcher(cfg.Workers)
	return c
}

// BaseURL returns the configured server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Username returns the configured account name, if any.
func (c *Client) Username() string {
	if c.credentials == nil {
		return ""
	}
	return c.credentials.Username
}

// Send performs req synchronously. It never panics on network faults and
// never retries: every result is an Outcome.
func (c *Client) Send(ctx context.Context, req *Request) Outcome {
	if req == nil {
		return connectionFailure(&TransportError{Err: fmt.Errorf("nil request")})
	}
	start := time.Now()

	httpReq, err := c.buildHTTPRequest(ctx, req)
	if err != nil {
		return connectionFailure(&TransportError{Method: string(req.Method), URL: redactURL(req.Route), Err: err})
	}
	target := redactURL(httpReq.URL.String())

	raw, err := c.transport.Do(ctx, httpReq)
	if err != nil {
		if debug.IsEnabled(ctx) {
			slog.Debug("request failed", "method", req.Method, "url", target, "duration", time.Since(start), "error", err)
		}
		transportErr, ok := err.(*TransportError)
		if !ok {
			transportErr = &TransportError{Method: string(req.Method), URL: target, Err: err}
		}
		return connectionFailure(transportErr)
	}

	resp := DecodeResponse(raw, req.Shape, c.mediaHook)
	if debug.IsEnabled(ctx) {
		slog.Debug("request complete",
			"method", req.Method,
			"url", target,
			"status", resp.StatusCode,
			"bytes", len(raw.Body),
			"shape", req.Shape,
			"duration", time.Since(start))
	}
	return classify(string(req.Method), target, resp)
}

// BuildURL returns the absolute URL req would be sent to, query included.
func (c *Client) BuildURL(req *Request) (string, error) {
	u, err := c.resolveURL(req.Route)
	if err != nil {
		return "", err
	}
	if req.Method == MethodGet {
		query, err := encodeQuery(req.Params)
		if err != nil {
			return "", err
		}
		appendQuery(u, query)
	}
	return u.String(), nil
}

// URL joins a route onto the base URL.
func (c *Client) URL(route string) string {
	if isAbsoluteURL(route) {
		return route
	}
	return c.baseURL + NormalizeRoute(route)
}

func (c *Client) resolveURL(route string) (*url.URL, error) {
	if c.baseURL == "" && !isAbsoluteURL(route) {
		return nil, fmt.Errorf("base URL not configured")
	}
	u, err := url.Parse(c.URL(route))
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL %q: scheme must be http or https", redactURL(u.String()))
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid URL %q: missing host", redactURL(u.String()))
	}
	return u, nil
}

func (c *Client) buildHTTPRequest(ctx context.Context, req *Request) (*http.Request, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	target, err := c.BuildURL(req)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	var contentType string
	if req.Method != MethodGet && req.Params.Len() > 0 {
		encoded, err := EncodeMultipart(req.Params)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded.Data)
		contentType = encoded.ContentType()
	}

	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for name, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(name, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Shape == ShapeJSON {
		httpReq.Header.Set("Accept", "application/json")
	} else {
		httpReq.Header.Set("Accept", "*/*")
	}
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}
	if httpReq.Header.Get("X-Request-Id") == "" {
		httpReq.Header.Set("X-Request-Id", uuid.NewString())
	}
	if req.Auth != nil {
		httpReq.SetBasicAuth(req.Auth.Username, req.Auth.Password)
	}
	if req.ClientSecret != "" {
		httpReq.Header.Set("Client-Secret", req.ClientSecret)
	}
	return httpReq, nil
}

// encodeQuery renders params as name=value pairs joined by '&', in
// insertion order. An empty set yields "".
func encodeQuery(params *Params) (string, error) {
	fields := params.Fields()
	if len(fields) == 0 {
		return "", nil
	}
	pairs := make([]string, 0, len(fields))
	for _, f := range fields {
		value, err := formatValue(f.Value)
		if err != nil {
			return "", fmt.Errorf("failed to encode query parameter %s: %w", f.Name, err)
		}
		pairs = append(pairs, url.QueryEscape(f.Name)+"="+url.QueryEscape(value))
	}
	return strings.Join(pairs, "&"), nil
}

func appendQuery(u *url.URL, query string) {
	if query == "" {
		return
	}
	if u.RawQuery == "" {
		u.RawQuery = query
		return
	}
	u.RawQuery += "&" + query
}

// userAuth returns the configured credentials or ErrNoCredentials.
func (c *Client) userAuth() (*BasicAuth, error) {
	if c.credentials == nil || c.credentials.Username == "" || c.credentials.Password == "" {
		return nil, ErrNoCredentials
	}
	auth := *c.credentials
	return &auth, nil
}
