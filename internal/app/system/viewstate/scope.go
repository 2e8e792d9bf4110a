package viewstate

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Scope bounds the background work of one screen. Tasks launched on it see a
// context that is canceled by Close, and Close waits for them to return.
// Once closed, Launch refuses new work and Publish drops late results.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *zap.Logger

	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewScope derives a scope from parent. Canceling parent cancels the scope's
// tasks but does not close it.
func NewScope(parent context.Context, logger *zap.Logger) *Scope {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel, log: logger}
}

// Context returns the scope's context.
func (s *Scope) Context() context.Context { return s.ctx }

// Launch runs fn on its own goroutine. It returns false without running fn
// when the scope is already closed.
func (s *Scope) Launch(fn func(ctx context.Context)) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("scope task panicked", zap.Any("panic", r))
			}
		}()
		fn(s.ctx)
	}()
	return true
}

// Publish runs fn unless the scope is closed. Holders route every state or
// event update through Publish so nothing lands after the screen is gone.
func (s *Scope) Publish(fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn()
	return true
}

// Wait blocks until every launched task has returned.
func (s *Scope) Wait() { s.wg.Wait() }

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close cancels pending work and waits for it. Safe to call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
