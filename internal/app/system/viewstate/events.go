package viewstate

import (
	"context"
	"sync"
)

// Events is a fire-once queue for operation outcomes. Each emitted value is
// handed to exactly one receive and then forgotten, so a result is never
// replayed to a later observer. Emit never blocks.
type Events[T any] struct {
	mu     sync.Mutex
	queue  []T
	signal chan struct{}
}

// NewEvents returns an empty queue.
func NewEvents[T any]() *Events[T] {
	return &Events[T]{signal: make(chan struct{}, 1)}
}

// Emit appends v to the queue.
func (e *Events[T]) Emit(v T) {
	e.mu.Lock()
	e.queue = append(e.queue, v)
	e.mu.Unlock()

	select {
	case e.signal <- struct{}{}:
	default:
	}
}

// Next waits for the oldest pending value and consumes it.
func (e *Events[T]) Next(ctx context.Context) (T, error) {
	for {
		if v, ok := e.TryNext(); ok {
			return v, nil
		}
		select {
		case <-e.signal:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryNext consumes the oldest pending value if there is one.
func (e *Events[T]) TryNext() (T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var zero T
	if len(e.queue) == 0 {
		return zero, false
	}
	v := e.queue[0]
	e.queue[0] = zero
	e.queue = e.queue[1:]
	return v, true
}

// Drain consumes and returns everything pending.
func (e *Events[T]) Drain() []T {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := e.queue
	e.queue = nil
	return out
}

// Pending reports how many values are waiting.
func (e *Events[T]) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}
