package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is one of the HTTP methods the server exposes.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodDelete Method = http.MethodDelete
)

// ParseMethod validates a method name, case-insensitively.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	if !m.valid() {
		return "", fmt.Errorf("invalid HTTP method %q: must be one of GET, POST, DELETE", s)
	}
	return m, nil
}

func (m Method) valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodDelete:
		return true
	default:
		return false
	}
}

// BasicAuth holds credentials sent as "Authorization: Basic ...".
type BasicAuth struct {
	Username string
	Password string
}

// Request is one outbound call. Route is either a path relative to the
// configured base URL or an absolute http(s) URL (e.g. a media_file link).
// A Request handed to SendAsync is snapshotted; later edits do not affect it.
type Request struct {
	Method       Method
	Route        string
	Params       *Params
	Header       http.Header
	Shape        Shape
	Auth         *BasicAuth
	ClientSecret string
}

// NewRequest validates method and parameters and returns a JSON-shaped request.
func NewRequest(method Method, route string, params *Params) (*Request, error) {
	req := &Request{
		Method: method,
		Route:  route,
		Params: params.Clone(),
		Header: make(http.Header),
		Shape:  ShapeJSON,
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return req, nil
}

// WithBasicAuth attaches username/password credentials.
func (r *Request) WithBasicAuth(username, password string) *Request {
	r.Auth = &BasicAuth{Username: username, Password: password}
	return r
}

// WithClientSecret attaches the Client-Secret header proving ownership.
func (r *Request) WithClientSecret(secret string) *Request {
	r.ClientSecret = secret
	return r
}

// WithShape selects how the response body is decoded.
func (r *Request) WithShape(shape Shape) *Request {
	r.Shape = shape
	return r
}

// WithHeader sets an extra request header.
func (r *Request) WithHeader(name, value string) *Request {
	if r.Header == nil {
		r.Header = make(http.Header)
	}
	r.Header.Set(name, value)
	return r
}

// Clone returns a deep copy safe to hand to another goroutine.
func (r *Request) Clone() *Request {
	c := *r
	c.Params = r.Params.Clone()
	c.Header = r.Header.Clone()
	if r.Auth != nil {
		auth := *r.Auth
		c.Auth = &auth
	}
	return &c
}

func (r *Request) validate() error {
	if !r.Method.valid() {
		return fmt.Errorf("invalid HTTP method %q: must be one of GET, POST, DELETE", r.Method)
	}
	if strings.TrimSpace(r.Route) == "" {
		return fmt.Errorf("request route is required")
	}
	if r.Method == MethodGet && r.Params.HasFiles() {
		return fmt.Errorf("GET requests cannot carry file parameters")
	}
	return validateParams(r.Params)
}
