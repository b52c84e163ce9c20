// Package future provides a small Future/Promise pair used to await work that
// completes on another goroutine.
package future

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"go.uber.org/atomic"
)

// ErrPanicRecovery is wrapped by the error of a future whose producer panicked.
var ErrPanicRecovery = errors.New("recovered from panic")

// Result holds the outcome of an asynchronous computation.
type Result[T any] struct {
	Value T
	Error error
}

// Get returns the value and error as a Go-style pair.
func (r Result[T]) Get() (T, error) { //nolint:ireturn
	if r.Error != nil {
		var zero T

		return zero, r.Error
	}

	return r.Value, nil
}

// Future is the read-only side of an asynchronous computation.
//
// A Future is completed exactly once by its Promise. Any number of goroutines
// may wait on it, and callbacks registered before or after completion are
// invoked exactly once.
type Future[T any] struct {
	once        sync.Once
	mu          sync.Mutex
	resultReady chan struct{}
	result      Result[T]
	completed   *atomic.Bool

	successCallbacks []func(T)
	errorCallbacks   []func(error)
	resultCallbacks  []func(Result[T])
}

// New creates a linked Future and Promise.
func New[T any]() (*Future[T], *Promise[T]) {
	fut := &Future[T]{
		resultReady: make(chan struct{}),
		completed:   atomic.NewBool(false),
	}

	return fut, &Promise[T]{future: fut}
}

// Go runs fn on a new goroutine and returns a Future for its result.
// A panic inside fn completes the future with an error wrapping ErrPanicRecovery.
func Go[T any](fn func() (T, error)) *Future[T] {
	fut, promise := New[T]()

	go func() {
		defer recoverInto(promise)

		promise.Complete(fn())
	}()

	return fut
}

// GoContext is like Go but passes ctx to fn.
func GoContext[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	if ctx == nil {
		ctx = context.Background()
	}

	return Go(func() (T, error) {
		return fn(ctx)
	})
}

// Completed returns a future that is already fulfilled with the given result.
func Completed[T any](value T, err error) *Future[T] {
	fut, promise := New[T]()
	promise.Complete(value, err)

	return fut
}

// Await blocks until the future is completed.
func (f *Future[T]) Await() (T, error) { //nolint:ireturn
	<-f.resultReady

	return f.result.Get()
}

// AwaitContext blocks until the future is completed or ctx is done. When ctx
// wins, the underlying computation keeps running; only the wait is abandoned.
func (f *Future[T]) AwaitContext(ctx context.Context) (T, error) { //nolint:ireturn
	select {
	case <-f.resultReady:
		return f.result.Get()
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err()
	}
}

// Done returns a channel that is closed once the future completes.
func (f *Future[T]) Done() <-chan struct{} {
	return f.resultReady
}

// IsDone reports whether the future has completed.
func (f *Future[T]) IsDone() bool {
	return f.completed.Load()
}

// OnSuccess registers a callback invoked with the value if the future succeeds.
func (f *Future[T]) OnSuccess(callback func(T)) *Future[T] {
	if f.register(func() { f.successCallbacks = append(f.successCallbacks, callback) }) {
		return f
	}

	if f.result.Error == nil {
		invokeCallback("OnSuccess", callback, f.result.Value)
	}

	return f
}

// OnError registers a callback invoked with the error if the future fails.
func (f *Future[T]) OnError(callback func(error)) *Future[T] {
	if f.register(func() { f.errorCallbacks = append(f.errorCallbacks, callback) }) {
		return f
	}

	if f.result.Error != nil {
		invokeCallback("OnError", callback, f.result.Error)
	}

	return f
}

// OnResult registers a callback invoked with the result, whatever it is.
func (f *Future[T]) OnResult(callback func(Result[T])) *Future[T] {
	if f.register(func() { f.resultCallbacks = append(f.resultCallbacks, callback) }) {
		return f
	}

	invokeCallback("OnResult", callback, f.result)

	return f
}

// register stores a callback while the future is pending. It returns false
// if the future already completed, in which case the caller invokes directly.
func (f *Future[T]) register(add func()) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.resultReady:
		return false
	default:
		add()

		return true
	}
}

func recoverInto[T any](promise *Promise[T]) {
	if r := recover(); r != nil {
		promise.Failure(panicError(r, debug.Stack()))
	}
}

func panicError(r any, stack []byte) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w\nstack trace:\n%s", ErrPanicRecovery, err, string(stack))
	}

	return fmt.Errorf("%w: %v\nstack trace:\n%s", ErrPanicRecovery, r, string(stack))
}
