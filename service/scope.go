package service

import (
	"context"
	"sync"
	"time"
)

// Scope bounds the lifetime of the asynchronous work started by a view. Once
// closed, pending timers are stopped, contexts handed to callbacks are
// cancelled, and components drop results that arrive late.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	wg     sync.WaitGroup
}

func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{
		ctx:    ctx,
		cancel: cancel,
		timers: make(map[*time.Timer]struct{}),
	}
}

// Context returns the scope context. It is cancelled by Close.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Alive reports whether the scope has not been closed.
func (s *Scope) Alive() bool {
	return s.ctx.Err() == nil
}

// Go runs fn in a goroutine tracked by the scope. It is a no-op once the
// scope is closed.
func (s *Scope) Go(fn func(ctx context.Context)) {
	if !s.Alive() {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// After runs fn once after d, unless the scope is closed first.
func (s *Scope) After(d time.Duration, fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.Alive() {
		return
	}

	s.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d, func() {
		defer s.wg.Done()
		s.mu.Lock()
		delete(s.timers, t)
		s.mu.Unlock()
		if s.Alive() {
			fn(s.ctx)
		}
	})
	s.timers[t] = struct{}{}
}

// Wait blocks until every goroutine and timer started through the scope has
// finished or been stopped.
func (s *Scope) Wait() {
	s.wg.Wait()
}

// Close cancels the scope and stops timers that have not fired yet. It does
// not wait for running callbacks; call Wait for that.
func (s *Scope) Close() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	for t := range s.timers {
		if t.Stop() {
			s.wg.Done()
		}
		delete(s.timers, t)
	}
}
