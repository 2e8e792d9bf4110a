// Package viewstate holds the primitives screen holders are built from:
// observable state, fire-once event queues and a per-screen task scope.
package viewstate

import "sync"

// State is an observable value. Readers either poll Value or Subscribe and
// receive updates. Delivery is latest-wins: a slow subscriber skips
// intermediate values and only ever sees the newest one.
type State[T any] struct {
	mu   sync.Mutex
	v    T
	subs map[int]chan T
	next int
}

// NewState returns a State holding initial.
func NewState[T any](initial T) *State[T] {
	return &State[T]{v: initial, subs: make(map[int]chan T)}
}

// Value returns the current value.
func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

// Set replaces the value and notifies subscribers.
func (s *State[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.v = v
	for _, ch := range s.subs {
		offer(ch, v)
	}
}

// Subscribe returns a channel that immediately carries the current value and
// then every later one (latest-wins). The returned func unsubscribes and
// closes the channel; it is safe to call more than once.
func (s *State[T]) Subscribe() (<-chan T, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, 1)
	id := s.next
	s.next++
	s.subs[id] = ch
	ch <- s.v

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs, id)
			close(ch)
		})
	}
}

// offer replaces whatever is pending in ch with v. Only Set writes to
// subscriber channels and it holds the lock, so the send cannot block.
func offer[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
