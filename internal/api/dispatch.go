package api

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/geopost/geopost-cli/internal/debug"
)

const (
	callPending int32 = iota
	callRunning
	callCancelled
	callDone
)

// Call is a handle to a request dispatched with SendAsync.
type Call struct {
	state  atomic.Int32
	stop   context.CancelFunc
	done   chan struct{}
	method Method
	route  string
}

// Cancel prevents the call from starting. It reports true when the call
// had not started yet; the callback will then never be invoked. A call that
// is already on the wire is left to complete or time out.
func (c *Call) Cancel() bool {
	if c.state.CompareAndSwap(callPending, callCancelled) {
		c.stop()
		return true
	}
	return false
}

// Cancelled reports whether Cancel won the race against the worker.
func (c *Call) Cancelled() bool {
	return c.state.Load() == callCancelled
}

// Done is closed once the call has finished or was cancelled. For a finished
// call the callback has been handed to the deliverer, not necessarily run.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Dispatcher runs blocking sends on a bounded set of goroutines.
type Dispatcher struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewDispatcher returns a dispatcher allowing workers concurrent sends.
func NewDispatcher(workers int) *Dispatcher {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Dispatcher{sem: semaphore.NewWeighted(int64(workers))}
}

// Dispatch starts fn in the background and returns immediately. fn receives
// a context that is detached from cancellation so an in-flight exchange is
// never torn down halfway.
func (d *Dispatcher) Dispatch(ctx context.Context, method Method, route string, fn func(ctx context.Context)) *Call {
	acquireCtx, stop := context.WithCancel(ctx)
	call := &Call{
		stop:   stop,
		done:   make(chan struct{}),
		method: method,
		route:  route,
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer close(call.done)
		defer stop()

		if err := d.sem.Acquire(acquireCtx, 1); err != nil {
			// Cancelled (or the parent context ended) while queued.
			call.state.CompareAndSwap(callPending, callCancelled)
			if debug.IsEnabled(ctx) {
				slog.Debug("dispatch skipped", "method", method, "route", route, "reason", err)
			}
			return
		}
		defer d.sem.Release(1)

		if !call.state.CompareAndSwap(callPending, callRunning) {
			return
		}
		fn(context.WithoutCancel(ctx))
		call.state.Store(callDone)
	}()
	return call
}

// Wait blocks until every dispatched call has finished or been cancelled.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// SendAsync snapshots req, sends it on a worker and hands the Outcome to
// callback through deliverer. It never blocks on the network. A nil
// deliverer runs the callback on the worker goroutine.
func (c *Client) SendAsync(ctx context.Context, req *Request, deliverer Deliverer, callback func(Outcome)) *Call {
	if deliverer == nil {
		deliverer = InlineDeliverer{}
	}
	var snapshot *Request
	var method Method
	var route string
	if req != nil {
		snapshot = req.Clone()
		method, route = snapshot.Method, snapshot.Route
	}
	return c.dispatcher.Dispatch(ctx, method, route, func(ctx context.Context) {
		outcome := c.Send(ctx, snapshot)
		if callback == nil {
			return
		}
		deliverer.Deliver(func() { callback(outcome) })
	})
}

// Wait blocks until all SendAsync calls made on c have been dispatched.
func (c *Client) Wait() {
	c.dispatcher.Wait()
}
