package resource

import (
	"context"
	"reflect"
	"sync"
)

// Pollable is implemented by values whose completion can be observed
// without blocking.
type Pollable interface {
	// Ready returns true once the value has completed.
	Ready() bool
	// Block waits until the value completes or ctx is canceled.
	Block(ctx context.Context)
	// Done returns a channel closed on completion.
	Done() <-chan struct{}
}

// Future is the result of an asynchronous resource operation. It resolves
// exactly once. Dropping a Future abandons only the wait; use Cancel to
// interrupt the operation itself.
type Future[T any] struct {
	done   chan struct{}
	val    T
	err    error
	once   sync.Once
	mu     sync.Mutex
	cancel func()
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a Future that has already completed.
func Resolved[T any](v T, err error) *Future[T] {
	f := newFuture[T]()
	f.resolve(v, err)
	return f
}

func (f *Future[T]) resolve(v T, err error) {
	f.once.Do(func() {
		f.val = v
		f.err = err
		close(f.done)
	})
}

// await blocks until resolution. Only used for replies the worker always sends.
func (f *Future[T]) await() (T, error) {
	<-f.done
	return f.val, f.err
}

func (f *Future[T]) setCancel(fn func()) {
	f.mu.Lock()
	f.cancel = fn
	f.mu.Unlock()
}

func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *Future[T]) Done() <-chan struct{} { return f.done }

func (f *Future[T]) Block(ctx context.Context) {
	select {
	case <-f.done:
	case <-ctx.Done():
	}
}

// Poll returns the result if the future has completed. ready is false while
// the operation is still pending.
func (f *Future[T]) Poll() (v T, ready bool, err error) {
	if !f.Ready() {
		return v, false, nil
	}
	return f.val, true, f.err
}

// Wait blocks until the future resolves or ctx is done. A done ctx does not
// cancel the underlying operation.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel interrupts the operation if it supports interruption. It is a no-op
// once the future has resolved.
func (f *Future[T]) Cancel() {
	f.mu.Lock()
	fn := f.cancel
	f.mu.Unlock()
	if fn != nil && !f.Ready() {
		fn()
	}
}

// Then returns a Future resolving to fn applied to f's value.
// fn is not called when f fails.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	if f.Ready() {
		v, err := f.val, f.err
		if err != nil {
			var zero U
			return Resolved(zero, err)
		}
		u, err := fn(v)
		return Resolved(u, err)
	}
	out := newFuture[U]()
	out.setCancel(f.Cancel)
	go func() {
		<-f.done
		if f.err != nil {
			var zero U
			out.resolve(zero, f.err)
			return
		}
		out.resolve(fn(f.val))
	}()
	return out
}

// Poll blocks until at least one pollable is ready or ctx is done, and
// returns the indices of all ready pollables.
func Poll(ctx context.Context, ps ...Pollable) []int {
	ready := readyIndices(ps)
	if len(ready) > 0 || len(ps) == 0 {
		return ready
	}

	cases := make([]reflect.SelectCase, 0, len(ps)+1)
	cases = append(cases, reflect.SelectCase{
		Dir:  reflect.SelectRecv,
		Chan: reflect.ValueOf(ctx.Done()),
	})
	for _, p := range ps {
		cases = append(cases, reflect.SelectCase{
			Dir:  reflect.SelectRecv,
			Chan: reflect.ValueOf(p.Done()),
		})
	}
	reflect.Select(cases)
	return readyIndices(ps)
}

func readyIndices(ps []Pollable) []int {
	var ready []int
	for i, p := range ps {
		if p.Ready() {
			ready = append(ready, i)
		}
	}
	return ready
}
