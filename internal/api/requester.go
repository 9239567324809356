package api

import "context"

// RouteBuilder resolves routes against the configured base URL.
// It is separate from Sender so that path construction can be tested
// without a network.
type RouteBuilder interface {
	// URL joins route onto the base URL.
	// Example: URL("/api/posts/7") -> "https://geo.example.com/api/posts/7/"
	URL(route string) string

	// BuildURL returns the full target of req, query string included.
	BuildURL(req *Request) (string, error)
}

// Sender performs one request and reports the result as an Outcome.
type Sender interface {
	Send(ctx context.Context, req *Request) Outcome
}

// AsyncSender dispatches a request in the background. The callback is
// invoked exactly once through deliverer unless the call is cancelled
// before it starts.
type AsyncSender interface {
	SendAsync(ctx context.Context, req *Request, deliverer Deliverer, callback func(Outcome)) *Call
}

// Requester is the surface the resource services depend on.
//
// Example usage in tests:
//
//	type stubSender struct{ outcome Outcome }
//	func (s stubSender) Send(context.Context, *Request) Outcome { return s.outcome }
type Requester interface {
	RouteBuilder
	Sender
}
