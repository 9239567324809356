package api

import "fmt"

// OutcomeKind separates "server said yes", "server said no" and
// "server could not be reached".
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeServerError
	OutcomeConnectionFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeServerError:
		return "server_error"
	case OutcomeConnectionFailure:
		return "connection_failure"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the result of sending one request, delivered as data.
// Response is nil for connection failures.
type Outcome struct {
	Kind     OutcomeKind
	Response *Response
	err      error
}

// IsSuccess reports a 2xx response.
func (o Outcome) IsSuccess() bool { return o.Kind == OutcomeSuccess }

// IsServerError reports a response with a non-2xx status.
func (o Outcome) IsServerError() bool { return o.Kind == OutcomeServerError }

// IsConnectionFailure reports that no response was received.
func (o Outcome) IsConnectionFailure() bool { return o.Kind == OutcomeConnectionFailure }

// Err returns nil on success, a *ServerError or a *TransportError otherwise.
func (o Outcome) Err() error {
	return o.err
}

// ErrorDetail returns the server-provided detail text of a server error.
func (o Outcome) ErrorDetail() (string, bool) {
	if o.Kind != OutcomeServerError || o.Response == nil {
		return "", false
	}
	return o.Response.ErrorDetail()
}

func connectionFailure(err *TransportError) Outcome {
	return Outcome{Kind: OutcomeConnectionFailure, err: err}
}

// classify turns a decoded response into a success or server-error outcome.
func classify(method, url string, resp *Response) Outcome {
	if !resp.IsError() {
		return Outcome{Kind: OutcomeSuccess, Response: resp}
	}
	return Outcome{
		Kind:     OutcomeServerError,
		Response: resp,
		err: &ServerError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Status:     resp.StatusMessage,
			Detail:     resp.ErrorMessage(),
			RequestID:  resp.RequestID(),
		},
	}
}
