package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrWaitTimeout is returned when a bounded wait expires
var ErrWaitTimeout = errors.New("wait timed out")

// Scope is the lifetime of one connected player. Waits started under a scope
// are abandoned when it closes, and their continuations are discarded.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc

	readyOnce sync.Once
	ready     chan struct{}
}

// NewScope creates a scope that also ends with parent
func NewScope(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel, ready: make(chan struct{})}
}

// Context returns the scope's context
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Close ends the scope. Safe to call more than once.
func (s *Scope) Close() {
	s.cancel()
}

// Alive reports whether the scope is still open
func (s *Scope) Alive() bool {
	return s.ctx.Err() == nil
}

// MarkReady signals that the player's avatar finished loading
func (s *Scope) MarkReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// IsReady reports whether MarkReady was called
func (s *Scope) IsReady() bool {
	select {
	case <-s.ready:
		return true
	default:
		return false
	}
}

// Sleep waits for d or until the scope ends
func (s *Scope) Sleep(d time.Duration) error {
	if d <= 0 {
		return s.ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// WaitReady blocks until the avatar is ready, the scope ends, or timeout
// passes. A non-positive timeout waits without a bound.
func (s *Scope) WaitReady(timeout time.Duration) error {
	var expired <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		expired = t.C
	}
	select {
	case <-s.ready:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	case <-expired:
		return ErrWaitTimeout
	}
}

// Poster runs a function on the arena goroutine under its lock
type Poster interface {
	Post(fn func())
}

// Await runs wait in the background and, if it succeeds while the scope is
// still open, posts then back to the arena. A cancelled scope drops then
// silently; any other failure is logged and drops it too.
func Await(p Poster, s *Scope, what string, wait func(*Scope) error, then func()) {
	go func() {
		err := wait(s)
		switch {
		case errors.Is(err, context.Canceled):
			return
		case err != nil:
			log.Error().Err(err).Str("wait", what).Msg("wait abandoned")
			return
		}
		p.Post(func() {
			if !s.Alive() {
				return
			}
			then()
		})
	}()
}
