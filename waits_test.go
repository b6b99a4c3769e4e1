package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanPoster collects posted continuations for the test goroutine to run
type chanPoster struct {
	posts chan func()
}

func newChanPoster() *chanPoster {
	return &chanPoster{posts: make(chan func(), 8)}
}

func (p *chanPoster) Post(fn func()) { p.posts <- fn }

func (p *chanPoster) next(t *testing.T) func() {
	t.Helper()
	select {
	case fn := <-p.posts:
		return fn
	case <-time.After(2 * time.Second):
		t.Fatal("nothing posted")
		return nil
	}
}

func (p *chanPoster) none(t *testing.T, within time.Duration) {
	t.Helper()
	select {
	case <-p.posts:
		t.Fatal("unexpected post")
	case <-time.After(within):
	}
}

func TestScopeWaitReady(t *testing.T) {
	s := NewScope(context.Background())
	assert.False(t, s.IsReady())

	go func() {
		time.Sleep(10 * time.Millisecond)
		s.MarkReady()
		s.MarkReady()
	}()
	require.NoError(t, s.WaitReady(time.Second))
	assert.True(t, s.IsReady())
}

func TestScopeWaitReadyTimeout(t *testing.T) {
	s := NewScope(context.Background())
	err := s.WaitReady(20 * time.Millisecond)
	assert.True(t, errors.Is(err, ErrWaitTimeout))
}

func TestScopeCancelledByParent(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	s := NewScope(parent)
	cancel()

	assert.False(t, s.Alive())
	assert.True(t, errors.Is(s.Sleep(time.Second), context.Canceled))
	assert.True(t, errors.Is(s.WaitReady(time.Second), context.Canceled))
}

func TestAwaitPostsOnSuccess(t *testing.T) {
	p := newChanPoster()
	s := NewScope(context.Background())
	ran := false

	Await(p, s, "test", func(s *Scope) error { return s.Sleep(5 * time.Millisecond) }, func() { ran = true })
	p.next(t)()
	assert.True(t, ran)
}

func TestAwaitDropsAfterClose(t *testing.T) {
	p := newChanPoster()
	s := NewScope(context.Background())
	ran := false

	Await(p, s, "test", func(s *Scope) error { return s.WaitReady(time.Second) }, func() { ran = true })
	s.Close()
	p.none(t, 50*time.Millisecond)
	assert.False(t, ran)
}

func TestAwaitDropsOnTimeout(t *testing.T) {
	p := newChanPoster()
	s := NewScope(context.Background())

	Await(p, s, "test", func(s *Scope) error { return s.WaitReady(10 * time.Millisecond) }, func() {
		t.Error("continuation must not run after a timeout")
	})
	p.none(t, 60*time.Millisecond)
}

func TestAwaitSkipsContinuationWhenScopeEndsBeforeRun(t *testing.T) {
	p := newChanPoster()
	s := NewScope(context.Background())
	ran := false

	Await(p, s, "test", func(*Scope) error { return nil }, func() { ran = true })
	fn := p.next(t)
	s.Close()
	fn()
	assert.False(t, ran)
}
