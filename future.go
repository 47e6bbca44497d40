package tetraxr

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Dispatcher is a goroutine-safe queue of callbacks that are run on the render thread.
// Work finishing on other goroutines (image decoding, file loading) posts its GPU-facing
// follow-up here; Renderer.DrawViews and Renderer.Poll drain it.
type Dispatcher struct {
	mu    sync.Mutex
	queue []func()
}

// NewDispatcher returns a new, empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Post queues fn to be run by the next Drain call.
func (d *Dispatcher) Post(fn func()) {
	d.mu.Lock()
	d.queue = append(d.queue, fn)
	d.mu.Unlock()
}

// Pending returns the number of queued callbacks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Drain runs queued callbacks until the queue is empty, including any callbacks posted
// while draining. It returns how many callbacks were run.
func (d *Dispatcher) Drain() int {

	ran := 0

	for {

		d.mu.Lock()
		queue := d.queue
		d.queue = nil
		d.mu.Unlock()

		if len(queue) == 0 {
			return ran
		}

		for _, fn := range queue {
			fn()
			ran++
		}

	}

}

// Awaiter is anything that can be waited on for completion.
type Awaiter interface {
	Await(ctx context.Context) error
	Ready() bool
	// OnSettle calls fn with the outcome once settled, on the settling goroutine, or
	// straight away if it already has.
	OnSettle(fn func(err error))
}

// Future is a value of type T that becomes available at some point, or fails.
// A Future settles exactly once.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	settled   bool
	value     T
	err       error
	callbacks []func()
}

// NewFuture returns a new pending Future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future that has already resolved to value.
func Resolved[T any](value T) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(value)
	return f
}

// Rejected returns a Future that has already failed with err.
func Rejected[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Reject(err)
	return f
}

// Go runs fn on a new goroutine and returns a Future for its result.
func Go[T any](fn func() (T, error)) *Future[T] {
	f := NewFuture[T]()
	go func() {
		value, err := fn()
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(value)
	}()
	return f
}

// Resolve settles the Future with value. It returns false if the Future had already settled.
func (f *Future[T]) Resolve(value T) bool {
	return f.settle(value, nil)
}

// Reject settles the Future with err. It returns false if the Future had already settled.
func (f *Future[T]) Reject(err error) bool {
	var zero T
	return f.settle(zero, err)
}

func (f *Future[T]) settle(value T, err error) bool {

	f.mu.Lock()

	if f.settled {
		f.mu.Unlock()
		return false
	}

	f.settled = true
	f.value = value
	f.err = err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)

	f.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}

	return true

}

// Ready returns true once the Future has settled, successfully or not.
func (f *Future[T]) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settled
}

// Done returns a channel that is closed once the Future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result returns the Future's value and error without blocking. ok is false if the
// Future hasn't settled yet.
func (f *Future[T]) Result() (value T, err error, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err, f.settled
}

// Wait blocks until the Future settles or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		value, err, _ := f.Result()
		return value, err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Await blocks until the Future settles or ctx is done, returning only the error.
func (f *Future[T]) Await(ctx context.Context) error {
	_, err := f.Wait(ctx)
	return err
}

// Then registers fn to be called with the Future's outcome once it settles. If dispatcher
// is non-nil, fn is posted to it (and so runs on the render thread); otherwise fn runs
// on whichever goroutine settles the Future, or immediately if it has already settled.
func (f *Future[T]) Then(dispatcher *Dispatcher, fn func(T, error)) {

	call := func() {
		value, err, _ := f.Result()
		if dispatcher != nil {
			dispatcher.Post(func() { fn(value, err) })
		} else {
			fn(value, err)
		}
	}

	f.mu.Lock()
	if !f.settled {
		f.callbacks = append(f.callbacks, call)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	call()

}

// OnSettle calls fn with the Future's error once it settles. fn runs on the goroutine
// that settles the Future, or immediately if it already has; use Then to get back onto
// the render thread.
func (f *Future[T]) OnSettle(fn func(err error)) {
	f.Then(nil, func(_ T, err error) { fn(err) })
}

// All waits for every awaiter to complete, returning the first error encountered.
func All(ctx context.Context, awaiters ...Awaiter) error {

	group, groupCtx := errgroup.WithContext(ctx)

	for _, a := range awaiters {
		a := a
		group.Go(func() error {
			return a.Await(groupCtx)
		})
	}

	return group.Wait()

}

// AllReady returns true if every awaiter has settled.
func AllReady(awaiters ...Awaiter) bool {
	for _, a := range awaiters {
		if !a.Ready() {
			return false
		}
	}
	return true
}

// Join returns a Future that resolves to value once every awaiter has completed, or
// fails with the first error. No goroutine is started; the join settles on whichever
// goroutine settles its last awaiter, and synchronously if they all already have.
func Join[T any](value T, awaiters ...Awaiter) *Future[T] {

	joined := NewFuture[T]()

	var mu sync.Mutex
	remaining := len(awaiters)

	if remaining == 0 {
		joined.Resolve(value)
		return joined
	}

	for _, a := range awaiters {
		a.OnSettle(func(err error) {
			if err != nil {
				joined.Reject(err)
				return
			}
			mu.Lock()
			remaining--
			last := remaining == 0
			mu.Unlock()
			if last {
				joined.Resolve(value)
			}
		})
	}

	return joined

}
