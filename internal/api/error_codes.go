package api

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// ErrorCode represents machine-readable error codes for scripted callers.
type ErrorCode string

const (
	// ErrBadRequest indicates a malformed request (HTTP 400).
	ErrBadRequest ErrorCode = "bad_request"
	// ErrUnauthorized indicates authentication is required or failed (HTTP 401).
	ErrUnauthorized ErrorCode = "unauthorized"
	// ErrForbidden indicates the caller may not touch the resource (HTTP 403),
	// e.g. a wrong client secret.
	ErrForbidden ErrorCode = "forbidden"
	// ErrNotFound indicates the requested resource does not exist (HTTP 404).
	ErrNotFound ErrorCode = "not_found"
	// ErrConflict indicates a conflict with current state (HTTP 409).
	ErrConflict ErrorCode = "conflict"
	// ErrRateLimited indicates too many requests (HTTP 429).
	ErrRateLimited ErrorCode = "rate_limited"
	// ErrServerError indicates an internal server error (HTTP 5xx).
	ErrServerError ErrorCode = "server_error"
	// ErrRedirect indicates an unfollowed redirect (HTTP 3xx).
	ErrRedirect ErrorCode = "redirect"
	// ErrConnection indicates the server could not be reached.
	ErrConnection ErrorCode = "connection_failed"
	// ErrTimeout indicates the request timed out.
	ErrTimeout ErrorCode = "timeout"
	// ErrDecode indicates the response body was missing or malformed.
	ErrDecode ErrorCode = "decode_failed"
	// ErrValidation indicates the request was rejected before sending.
	ErrValidation ErrorCode = "validation_failed"
	// ErrUnknown indicates an unknown or unclassified error.
	ErrUnknown ErrorCode = "unknown"
)

// IsRetryable returns true if errors with this code may succeed when the
// caller tries again. The client itself never retries.
func (c ErrorCode) IsRetryable() bool {
	switch c {
	case ErrRateLimited, ErrServerError, ErrTimeout, ErrConnection:
		return true
	default:
		return false
	}
}

// Suggestion returns a human-readable suggestion for resolving this error.
func (c ErrorCode) Suggestion() string {
	switch c {
	case ErrUnauthorized:
		return "Run 'geopost auth login' to store valid credentials"
	case ErrForbidden:
		return "Only the device that created a post holds its client secret"
	case ErrNotFound:
		return "Verify the resource ID exists"
	case ErrRateLimited:
		return "Wait a moment and try again"
	case ErrBadRequest, ErrValidation:
		return "Check the input values"
	case ErrConflict:
		return "The resource state may have changed; refresh and try again"
	case ErrServerError:
		return "The server encountered an error; try again later"
	case ErrRedirect:
		return "Check the configured base URL (redirects are not followed)"
	case ErrConnection:
		return "Check your network connection and try again"
	case ErrTimeout:
		return "The request timed out; check connectivity or raise --read-timeout"
	case ErrDecode:
		return "The server reply was incomplete; try again"
	default:
		return ""
	}
}

// ErrorCodeFromStatus maps an HTTP status code to an ErrorCode.
func ErrorCodeFromStatus(statusCode int) ErrorCode {
	switch statusCode {
	case 400:
		return ErrBadRequest
	case 401:
		return ErrUnauthorized
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	case 409:
		return ErrConflict
	case 429:
		return ErrRateLimited
	default:
		switch {
		case statusCode >= 300 && statusCode < 400:
			return ErrRedirect
		case statusCode >= 500 && statusCode < 600:
			return ErrServerError
		}
		return ErrUnknown
	}
}

// StructuredError provides machine-readable error information.
type StructuredError struct {
	Code       ErrorCode      `json:"code"`
	Message    string         `json:"message"`
	Retryable  bool           `json:"retryable"`
	Suggestion string         `json:"suggestion,omitempty"`
	Context    map[string]any `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *StructuredError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// MarshalJSON implements custom JSON marshaling.
func (e *StructuredError) MarshalJSON() ([]byte, error) {
	type Alias StructuredError
	return json.Marshal((*Alias)(e))
}

// NewStructuredError creates a StructuredError from an ErrorCode and message.
func NewStructuredError(code ErrorCode, message string) *StructuredError {
	return &StructuredError{
		Code:       code,
		Message:    message,
		Retryable:  code.IsRetryable(),
		Suggestion: code.Suggestion(),
	}
}

// StructuredErrorFromError converts any error to a StructuredError.
func StructuredErrorFromError(err error) *StructuredError {
	if err == nil {
		return nil
	}

	var se *StructuredError
	if errors.As(err, &se) {
		return se
	}

	var serverErr *ServerError
	if errors.As(err, &serverErr) {
		structured := NewStructuredError(serverErr.Code(), serverErr.Detail)
		structured.Context = map[string]any{"status_code": serverErr.StatusCode}
		if serverErr.RequestID != "" {
			structured.Context["request_id"] = serverErr.RequestID
		}
		return structured
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		code := ErrConnection
		if transportErr.Timeout() {
			code = ErrTimeout
		}
		return NewStructuredError(code, transportErr.Error())
	}

	var decodeErr *DecodeError
	if errors.As(err, &decodeErr) {
		return NewStructuredError(ErrDecode, decodeErr.Error())
	}

	var nameErr *InvalidFieldNameError
	if errors.As(err, &nameErr) {
		return NewStructuredError(ErrValidation, nameErr.Error())
	}

	if errors.Is(err, ErrNoClientSecret) {
		return NewStructuredError(ErrForbidden, err.Error())
	}

	return NewStructuredError(ErrUnknown, err.Error())
}
