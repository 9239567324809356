package api

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodeFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{400, ErrBadRequest},
		{401, ErrUnauthorized},
		{403, ErrForbidden},
		{404, ErrNotFound},
		{409, ErrConflict},
		{429, ErrRateLimited},
		{301, ErrRedirect},
		{500, ErrServerError},
		{503, ErrServerError},
		{418, ErrUnknown},
	}
	for _, tt := range tests {
		if got := ErrorCodeFromStatus(tt.status); got != tt.want {
			t.Errorf("ErrorCodeFromStatus(%d) = %s, want %s", tt.status, got, tt.want)
		}
	}
}

func TestStructuredErrorFromError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      ErrorCode
		retryable bool
	}{
		{"server 404", &ServerError{StatusCode: 404, Detail: "Not found."}, ErrNotFound, false},
		{"server 503 wrapped", fmt.Errorf("list: %w", &ServerError{StatusCode: 503}), ErrServerError, true},
		{"timeout", &TransportError{Err: context.DeadlineExceeded}, ErrTimeout, true},
		{"refused", &TransportError{Err: errors.New("connection refused")}, ErrConnection, true},
		{"decode", missingField("id"), ErrDecode, false},
		{"bad name", &InvalidFieldNameError{Kind: "name", Name: `"`}, ErrValidation, false},
		{"no secret", fmt.Errorf("post 3: %w", ErrNoClientSecret), ErrForbidden, false},
		{"other", errors.New("boom"), ErrUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := StructuredErrorFromError(tt.err)
			if se.Code != tt.code {
				t.Errorf("Code = %s, want %s", se.Code, tt.code)
			}
			if se.Retryable != tt.retryable {
				t.Errorf("Retryable = %v, want %v", se.Retryable, tt.retryable)
			}
		})
	}

	if StructuredErrorFromError(nil) != nil {
		t.Error("nil error must map to nil")
	}
}

func TestServerErrorContext(t *testing.T) {
	se := StructuredErrorFromError(&ServerError{StatusCode: 400, Detail: "bad lat", RequestID: "r-1"})
	if se.Message != "bad lat" {
		t.Errorf("Message = %q", se.Message)
	}
	if se.Context["status_code"] != 400 || se.Context["request_id"] != "r-1" {
		t.Errorf("Context = %v", se.Context)
	}
}

func TestErrorPredicates(t *testing.T) {
	notFound := fmt.Errorf("get: %w", &ServerError{StatusCode: 404})
	if !IsServerError(notFound) || !IsNotFoundError(notFound) || IsAuthError(notFound) {
		t.Error("404 predicates wrong")
	}
	if !IsAuthError(&ServerError{StatusCode: 401}) {
		t.Error("401 should be an auth error")
	}
	if !IsTransportError(&TransportError{Err: errors.New("x")}) || IsServerError(&TransportError{}) {
		t.Error("transport predicates wrong")
	}
	if (&ServerError{StatusCode: 500, Detail: "oops"}).Error() != "server error (status 500): oops" {
		t.Error("unexpected ServerError message")
	}
}
