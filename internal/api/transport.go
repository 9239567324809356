package api

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultReadTimeout    = 10 * time.Second
)

// TransportConfig bounds how long a single exchange may take.
type TransportConfig struct {
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	// RoundTripper replaces the network stack. Timeouts only apply to the
	// default stack, except the body read timeout which always applies.
	RoundTripper http.RoundTripper
}

// RawResult is what the transport read back before any decoding.
type RawResult struct {
	StatusCode    int
	StatusMessage string
	Header        http.Header
	Body          []byte
}

// Transport performs one blocking HTTP exchange per call. Redirects are
// never followed so callers see the real status.
type Transport struct {
	client      *http.Client
	readTimeout time.Duration
}

// NewTransport builds a Transport from cfg, filling in default timeouts.
func NewTransport(cfg TransportConfig) *Transport {
	connect := cfg.ConnectTimeout
	if connect <= 0 {
		connect = DefaultConnectTimeout
	}
	read := cfg.ReadTimeout
	if read <= 0 {
		read = DefaultReadTimeout
	}

	rt := cfg.RoundTripper
	if rt == nil {
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			baseTransport = &http.Transport{}
		}
		transport := baseTransport.Clone()
		transport.DialContext = (&net.Dialer{
			Timeout:   connect,
			KeepAlive: 30 * time.Second,
		}).DialContext
		transport.TLSHandshakeTimeout = connect
		transport.ResponseHeaderTimeout = read
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		} else {
			transport.TLSClientConfig = transport.TLSClientConfig.Clone()
		}
		transport.TLSClientConfig.MinVersion = tls.VersionTLS12
		rt = transport
	}

	return &Transport{
		client: &http.Client{
			Transport: rt,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		readTimeout: read,
	}
}

// Do sends req and reads the whole response, error bodies included.
// Every failure to complete the exchange is a *TransportError.
func (t *Transport) Do(ctx context.Context, req *http.Request) (*RawResult, error) {
	resp, err := t.client.Do(req.WithContext(ctx))
	if err != nil {
		return nil, &TransportError{Method: req.Method, URL: redactURL(req.URL.String()), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := readBody(resp.Body, t.readTimeout)
	if err != nil {
		return nil, &TransportError{
			Method: req.Method,
			URL:    redactURL(req.URL.String()),
			Err:    fmt.Errorf("failed to read response: %w", err),
		}
	}

	return &RawResult{
		StatusCode:    resp.StatusCode,
		StatusMessage: statusMessage(resp),
		Header:        resp.Header,
		Body:          body,
	}, nil
}

// readTimeoutError reports a stalled response body.
type readTimeoutError struct {
	after time.Duration
}

func (e *readTimeoutError) Error() string {
	return fmt.Sprintf("no data received for %s", e.after)
}

func (e *readTimeoutError) Timeout() bool   { return true }
func (e *readTimeoutError) Temporary() bool { return true }

var _ net.Error = (*readTimeoutError)(nil)

type progressReader struct {
	r      io.Reader
	onRead func()
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.onRead()
	}
	return n, err
}

// readBody drains body, closing it early when no bytes arrive within idle.
func readBody(body io.ReadCloser, idle time.Duration) ([]byte, error) {
	var timedOut atomic.Bool
	timer := time.AfterFunc(idle, func() {
		timedOut.Store(true)
		_ = body.Close()
	})
	defer timer.Stop()

	data, err := io.ReadAll(&progressReader{r: body, onRead: func() { timer.Reset(idle) }})
	if err != nil {
		if timedOut.Load() {
			return nil, &readTimeoutError{after: idle}
		}
		return nil, err
	}
	return data, nil
}

// statusMessage strips the numeric code from resp.Status ("404 Not Found" -> "Not Found").
func statusMessage(resp *http.Response) string {
	msg := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}

// redactURL drops userinfo so credentials never end up in errors or logs.
func redactURL(raw string) string {
	i := strings.Index(raw, "://")
	if i < 0 {
		return raw
	}
	rest := raw[i+3:]
	at := strings.Index(rest, "@")
	slash := strings.Index(rest, "/")
	if at < 0 || (slash >= 0 && at > slash) {
		return raw
	}
	return raw[:i+3] + rest[at+1:]
}
