package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolClosed is returned by Submit after a pool has begun shutting down.
var ErrPoolClosed = errors.New("pool: closed")

// ErrCancelled is reported by a task handle whose unit was cancelled before
// it started running.
var ErrCancelled = errors.New("pool: task cancelled")

var taskSeq atomic.Uint64

// Task is the handle of one submitted unit of work. It is created once per
// submission and reports completion, failure, and cancellation.
type Task struct {
	fn        func(context.Context) error
	createdAt time.Time
	seq       uint64

	done chan struct{}

	mu        sync.Mutex
	err       error
	cancel    context.CancelFunc
	cancelled bool
	completed bool
}

// NewTask creates a task around the given unit of work.
func NewTask(fn func(context.Context) error) *Task {
	return &Task{
		fn:        fn,
		createdAt: time.Now(),
		seq:       taskSeq.Add(1),
		done:      make(chan struct{}),
	}
}

// CreatedAt returns the task creation timestamp.
func (t *Task) CreatedAt() time.Time {
	return t.createdAt
}

// Done returns a channel closed when the task has completed, failed, or been
// discarded after cancellation.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task outcome. It is only meaningful once Done is closed.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Cancelled reports whether Cancel was called before the task completed.
func (t *Task) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Cancel requests cancellation. A task that has not started yet will never
// run; a running task has its context cancelled, relying on the unit to
// observe it (best-effort, not guaranteed pre-emption).
func (t *Task) Cancel() {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the task completes or ctx is done, returning the task
// outcome or the context error.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// execute runs the unit on the given worker context. Cancellation requested
// before this point discards the unit without running it.
func (t *Task) execute(ctx context.Context) {
	t.mu.Lock()
	if t.cancelled {
		t.err = ErrCancelled
		t.completed = true
		t.mu.Unlock()
		close(t.done)
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.mu.Unlock()

	err := t.safeRun(runCtx)
	cancel()

	t.mu.Lock()
	t.err = err
	t.completed = true
	t.cancel = nil
	t.mu.Unlock()
	close(t.done)
}

// discard completes the task with ErrCancelled without running it. Used when
// a pool drops its backlog during forced shutdown.
func (t *Task) discard() {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.cancelled = true
	t.completed = true
	t.err = ErrCancelled
	t.mu.Unlock()
	close(t.done)
}

func (t *Task) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pool: unit panicked: %v", r)
		}
	}()
	return t.fn(ctx)
}

// Future is a result-bearing handle over a Task.
type Future[T any] struct {
	task  *Task
	mu    sync.Mutex
	value T
}

// NewFuture creates a future around a result-producing unit of work.
func NewFuture[T any](fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{}
	f.task = NewTask(func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		f.mu.Lock()
		f.value = v
		f.mu.Unlock()
		return nil
	})
	return f
}

// Task returns the underlying task handle.
func (f *Future[T]) Task() *Task {
	return f.task
}

// Result blocks until the unit completes or ctx is done, returning the
// produced value or the failure.
func (f *Future[T]) Result(ctx context.Context) (T, error) {
	if err := f.task.Wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, nil
}
