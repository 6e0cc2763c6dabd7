package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrPoolClosed is returned when work is submitted after Close.
	ErrPoolClosed = errors.New("workerpool: pool is closed")
)

// Pool bounds how many inherently blocking operations may run at once,
// keeping them off the caller's goroutine so the orchestration loop is
// never stalled by CPU-heavy parsing or a slow mail transport.
type Pool struct {
	sem    chan struct{}
	done   chan struct{}
	closed bool
	mu     sync.Mutex
	wg     sync.WaitGroup
}

// New creates a pool allowing up to size concurrent operations.
// A minimum size of 1 is enforced.
func New(size int) *Pool {
	return &Pool{
		sem:  make(chan struct{}, max(size, 1)),
		done: make(chan struct{}),
	}
}

// Do runs fn on the pool and waits for its result. It blocks until a
// slot is free, the context is cancelled, or the pool is closed. A
// panic inside fn is recovered and returned as an error so one bad
// payload cannot take the process down.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	if err := p.submit(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("workerpool: panic in task: %v", r)
			}
		}()
		result <- fn()
	}); err != nil {
		return err
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		// The task keeps running to completion on its slot; only the
		// caller stops waiting.
		return ctx.Err()
	}
}

// Close stops accepting work and waits for in-flight tasks to finish.
// It is safe to call multiple times.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.wg.Wait()
}

// Run executes fn on the pool and returns the value it produced.
// Like (*Pool).Do it blocks for a slot and stops waiting when the
// context is cancelled; the result travels through a dedicated channel
// so an abandoned task cannot race the caller.
func Run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	type outcome struct {
		value T
		err   error
	}

	var zero T
	result := make(chan outcome, 1)
	err := p.submit(ctx, func() {
		defer func() {
			if r := recover(); r != nil {
				result <- outcome{err: fmt.Errorf("workerpool: panic in task: %v", r)}
			}
		}()
		v, err := fn()
		result <- outcome{value: v, err: err}
	})
	if err != nil {
		return zero, err
	}

	select {
	case out := <-result:
		return out.value, out.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// submit schedules raw work on a slot, blocking until one is available.
func (p *Pool) submit(ctx context.Context, run func()) error {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.done:
		return ErrPoolClosed
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.sem
		return ErrPoolClosed
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer func() { <-p.sem }()
		run()
	}()
	return nil
}
