package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
	"go.uber.org/zap"
)

// ErrClosed is returned when work is submitted to a closed Loop.
var ErrClosed = errors.New("dispatch loop is closed")

// Loop runs functions sequentially on one dedicated goroutine.
type Loop struct {
	name   string
	logger *zap.Logger

	mu     sync.Mutex
	tasks  []func()
	closed bool
	signal chan struct{} // buffered, size 1; coalesces wake-ups

	gid  atomic.Int64
	done chan struct{}
}

// NewLoop starts a new loop goroutine. name is used in log entries.
func NewLoop(name string, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		name:   name,
		logger: logger.With(zap.String("loop", name)),
		tasks:  make([]func(), 0, 64),
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

// Run queues work for execution on the loop. It never blocks and never runs work inline.
// Work submitted after Close is dropped.
func (l *Loop) Run(work func()) {
	if err := l.enqueue(work); err != nil {
		l.logger.Debug("Dropping work", zap.Error(err))
	}
}

// RunCommandChain lets a Loop serve as an asyncmap scheduler.
func (l *Loop) RunCommandChain(work func()) { l.Run(work) }

// RunMapChanges lets a Loop serve as an asyncmap scheduler.
func (l *Loop) RunMapChanges(work func()) { l.Run(work) }

// Sync runs work on the loop and waits for it to return. Called from the loop goroutine
// itself, it runs work inline instead of deadlocking.
func (l *Loop) Sync(ctx context.Context, work func()) error {
	if l.InLoop() {
		work()
		return nil
	}

	finished := make(chan struct{})
	if err := l.enqueue(func() {
		defer close(finished)
		work()
	}); err != nil {
		return err
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Idle waits until nothing is queued or running. Work that reschedules itself keeps the
// loop busy, so Idle returns only once such chains have settled.
func (l *Loop) Idle(ctx context.Context) error {
	if l.InLoop() {
		return fmt.Errorf("dispatch loop %s: Idle called from inside the loop", l.name)
	}
	for {
		if err := l.Sync(ctx, func() {}); err != nil {
			return err
		}
		if l.Pending() == 0 {
			return nil
		}
	}
}

// Pending returns the number of queued tasks, not counting the one running.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tasks)
}

// InLoop reports whether the caller is running on the loop goroutine.
func (l *Loop) InLoop() bool {
	return goid.Get() == l.gid.Load()
}

// Close stops accepting work, runs what is already queued and waits for the goroutine to
// exit or ctx to expire.
func (l *Loop) Close(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		close(l.signal)
	}
	l.mu.Unlock()

	if l.InLoop() {
		return nil
	}
	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Loop) enqueue(work func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	l.tasks = append(l.tasks, work)

	select {
	case l.signal <- struct{}{}:
	default:
	}
	return nil
}

func (l *Loop) next() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.tasks) == 0 {
		return nil, false
	}
	work := l.tasks[0]
	l.tasks[0] = nil
	if len(l.tasks) == 1 {
		l.tasks = l.tasks[:0]
	} else {
		l.tasks = l.tasks[1:]
	}
	return work, true
}

func (l *Loop) run() {
	defer close(l.done)
	l.gid.Store(goid.Get())

	for {
		for work, ok := l.next(); ok; work, ok = l.next() {
			l.execute(work)
		}
		if _, open := <-l.signal; !open {
			// drain what was queued before Close
			for work, ok := l.next(); ok; work, ok = l.next() {
				l.execute(work)
			}
			return
		}
	}
}

func (l *Loop) execute(work func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Task panicked", zap.Any("panic", r), zap.Stack("stack"))
		}
	}()
	work()
}
