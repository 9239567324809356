package api

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNoClientSecret means no stored secret proves ownership of a post.
	ErrNoClientSecret = errors.New("no client secret stored for this post")
	// ErrNoCredentials means a user-scoped call was made without a username/password.
	ErrNoCredentials = errors.New("username and password are required")

	errEmptyBody = errors.New("response has no body")
)

// TransportError means the server could not be reached or the exchange
// could not be completed: DNS, refused connection, timeout, TLS, bad URL.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("connection failed: %v", e.Err)
	}
	return fmt.Sprintf("%s %s: connection failed: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a connect or read timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// ServerError means the server answered with a status outside 200-299.
type ServerError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Detail     string
	RequestID  string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Detail)
}

// Code maps the status to a machine-readable error code.
func (e *ServerError) Code() ErrorCode {
	return ErrorCodeFromStatus(e.StatusCode)
}

// DecodeError means a body was required but missing or malformed.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("unexpected API response: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("unexpected API response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func missingField(field string) *DecodeError {
	return &DecodeError{Field: field, Err: errors.New("missing required field")}
}

// IsTransportError checks if the error is a connection failure.
func IsTransportError(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}

// IsServerError checks if the error is a non-2xx server response.
func IsServerError(err error) bool {
	var e *ServerError
	return errors.As(err, &e)
}

// IsDecodeError checks if the error is an unusable response body.
func IsDecodeError(err error) bool {
	var e *DecodeError
	return errors.As(err, &e)
}

// IsNotFoundError checks if the server reported 404.
func IsNotFoundError(err error) bool {
	var e *ServerError
	return errors.As(err, &e) && e.StatusCode == 404
}

// IsAuthError checks if the server rejected the credentials.
func IsAuthError(err error) bool {
	var e *ServerError
	return errors.As(err, &e) && (e.StatusCode == 401 || e.StatusCode == 403)
}
