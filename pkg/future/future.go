package future

import (
	"context"
	"sync"

	"github.com/hanfei1991/rcmanager/pkg/errors"
)

// Future is the eventual result of a request handled by another goroutine.
// It is completed exactly once, later completions are ignored.
type Future[T any] struct {
	once sync.Once
	done chan struct{}

	val T
	err error
}

// New creates an uncompleted Future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Ready creates an already completed Future.
func Ready[T any](val T, err error) *Future[T] {
	f := New[T]()
	f.Complete(val, err)
	return f
}

// Failed creates a Future completed with err.
func Failed[T any](err error) *Future[T] {
	var zero T
	return Ready(zero, err)
}

// Complete sets the result. It reports whether this call was the one that
// completed the Future.
func (f *Future[T]) Complete(val T, err error) bool {
	completed := false
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
		completed = true
	})
	return completed
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result. Canceling ctx stops the wait, not the request.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, errors.Trace(ctx.Err())
	}
}

// TryGet returns the result if it is already available.
func (f *Future[T]) TryGet() (val T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}
