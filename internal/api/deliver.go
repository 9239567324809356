package api

import (
	"context"
	"sync"
)

// Deliverer runs completion callbacks on a context chosen by the caller.
type Deliverer interface {
	Deliver(fn func())
}

// InlineDeliverer runs callbacks directly on the worker goroutine.
type InlineDeliverer struct{}

func (InlineDeliverer) Deliver(fn func()) { fn() }

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(fn func())

func (f DelivererFunc) Deliver(fn func()) { f(fn) }

// Loop is a single-goroutine callback queue. Workers enqueue with Deliver
// and the goroutine that owns the loop runs callbacks in Run, one at a time
// and in arrival order. Deliver never blocks.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	notify chan struct{}
}

// NewLoop returns an empty loop.
func NewLoop() *Loop {
	return &Loop{notify: make(chan struct{}, 1)}
}

// Deliver enqueues fn for the loop goroutine.
func (l *Loop) Deliver(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.notify <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Run executes queued callbacks on the calling goroutine until ctx is done.
// Callbacks still queued when ctx ends are left for the next Run.
func (l *Loop) Run(ctx context.Context) error {
	for {
		for {
			fn, ok := l.next()
			if !ok {
				break
			}
			fn()
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.notify:
		}
	}
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn, true
}
