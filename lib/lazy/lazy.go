// Package lazy provides a thread-safe, lazily initialized value.
//
// A Value runs its constructor on the first call to Get. Concurrent callers wait for
// that construction instead of running their own (double-checked locking). A failed
// construction is not cached: the next Get tries again, so a store client that could not
// be opened because its endpoint was down is retried on the next operation.
package lazy

import (
	"context"
	"sync"
	"sync/atomic"
)

// Value holds a lazily constructed value of type T.
type Value[T any] struct {
	mu   sync.Mutex
	ptr  atomic.Pointer[T]
	init func(ctx context.Context) (T, error)
}

// New creates a Value that is constructed by init on first use.
func New[T any](init func(ctx context.Context) (T, error)) *Value[T] {
	return &Value[T]{init: init}
}

// Get returns the value, constructing it if necessary.
func (v *Value[T]) Get(ctx context.Context) (T, error) {
	if p := v.ptr.Load(); p != nil {
		return *p, nil
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if p := v.ptr.Load(); p != nil {
		return *p, nil
	}

	val, err := v.init(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	v.ptr.Store(&val)
	return val, nil
}

// Peek returns the value if it was already constructed, without constructing it.
func (v *Value[T]) Peek() (T, bool) {
	if p := v.ptr.Load(); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}

// Reset drops the constructed value and returns it, so the caller can release it.
// The next Get constructs a new value.
func (v *Value[T]) Reset() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p := v.ptr.Swap(nil); p != nil {
		return *p, true
	}
	var zero T
	return zero, false
}
