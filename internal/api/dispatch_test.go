package api

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

// Scenario F: SendAsync returns before the exchange completes and the
// callback fires exactly once on the caller's loop.
func TestSendAsyncReturnsImmediately(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"id": 1}`))
	})

	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts, 1), nil)
	loop := NewLoop()
	var calls atomic.Int32
	var got Outcome

	start := time.Now()
	call := client.SendAsync(context.Background(), req, loop, func(o Outcome) {
		calls.Add(1)
		got = o
	})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("SendAsync blocked for %s", elapsed)
	}
	if calls.Load() != 0 {
		t.Fatal("callback ran before the response arrived")
	}

	close(release)
	<-call.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	_ = loop.Run(ctx)

	if calls.Load() != 1 {
		t.Fatalf("callback invoked %d times, want 1", calls.Load())
	}
	if !got.IsSuccess() {
		t.Errorf("expected success, got %s: %v", got.Kind, got.Err())
	}
	if call.Cancel() {
		t.Error("Cancel() after completion must report false")
	}
}

func TestSendAsyncSnapshotsRequest(t *testing.T) {
	release := make(chan struct{})
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		if r.URL.RawQuery != "lat=1" {
			t.Errorf("request mutated after dispatch: %q", r.URL.RawQuery)
		}
	})

	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts), NewParams().Set("lat", 1))
	call := client.SendAsync(context.Background(), req, nil, func(Outcome) {})
	req.Params.Set("lat", 99)
	req.Route = "/api/elsewhere/"
	close(release)
	<-call.Done()
}

func TestCallCancelBeforeStart(t *testing.T) {
	release := make(chan struct{})
	var hits atomic.Int32
	backend, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
	})
	client := New(Config{BaseURL: backend.BaseURL(), Workers: 1})

	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts), nil)
	var first, second atomic.Int32
	firstCall := client.SendAsync(context.Background(), req, nil, func(Outcome) { first.Add(1) })

	// Wait until the only worker is busy with the first call.
	deadline := time.Now().Add(2 * time.Second)
	for hits.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hits.Load() != 1 {
		t.Fatal("first call never reached the server")
	}

	secondCall := client.SendAsync(context.Background(), req, nil, func(Outcome) { second.Add(1) })
	if !secondCall.Cancel() {
		t.Fatal("Cancel() on a queued call must report true")
	}
	if firstCall.Cancel() {
		t.Error("Cancel() on a running call must report false")
	}

	close(release)
	client.Wait()

	if first.Load() != 1 {
		t.Errorf("first callback invoked %d times, want 1", first.Load())
	}
	if second.Load() != 0 {
		t.Errorf("cancelled callback invoked %d times", second.Load())
	}
	if hits.Load() != 1 {
		t.Errorf("server saw %d requests, want 1", hits.Load())
	}
	if !secondCall.Cancelled() {
		t.Error("Cancelled() = false")
	}
}

func TestSendAsyncConnectionFailureIsDelivered(t *testing.T) {
	client := New(Config{
		BaseURL: "https://geo.example.com",
		RoundTripper: roundTripperFunc(func(*http.Request) (*http.Response, error) {
			return nil, context.DeadlineExceeded
		}),
	})
	req, _ := NewRequest(MethodGet, ResourcePath(ResourcePosts), nil)

	results := make(chan Outcome, 2)
	client.SendAsync(context.Background(), req, nil, func(o Outcome) { results <- o })
	client.Wait()

	select {
	case o := <-results:
		if !o.IsConnectionFailure() {
			t.Errorf("expected connection failure, got %s", o.Kind)
		}
	default:
		t.Fatal("callback not invoked")
	}
	if len(results) != 0 {
		t.Error("callback invoked more than once")
	}
}

func TestLoopRunsInOrder(t *testing.T) {
	loop := NewLoop()
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		loop.Deliver(func() { order = append(order, i) })
	}
	if loop.Pending() != 5 {
		t.Fatalf("Pending() = %d", loop.Pending())
	}

	ctx, cancel := context.WithCancel(context.Background())
	loop.Deliver(cancel)
	if err := loop.Run(ctx); err != context.Canceled {
		t.Fatalf("Run() error = %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v", order)
		}
	}
	if len(order) != 5 {
		t.Fatalf("order = %v", order)
	}
}

func TestDelivererFunc(t *testing.T) {
	var ran bool
	d := DelivererFunc(func(fn func()) { fn() })
	d.Deliver(func() { ran = true })
	if !ran {
		t.Error("DelivererFunc did not run the callback")
	}
}
