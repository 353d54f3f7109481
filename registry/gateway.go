package registry

import (
	"context"
	"time"

	skerrors "github.com/jvilloa/servicekit/errors"
	"github.com/jvilloa/servicekit/metrics"
	"github.com/jvilloa/servicekit/pool"
	"github.com/jvilloa/servicekit/session"
)

// Run is the gateway to the service subsystem for code outside it. The unit
// is wrapped under a clone of sess (the caller's original is never mutated)
// and submitted to the shared pool. With waitFor false it returns
// immediately; otherwise it blocks until completion, bounded by timeout when
// timeout is positive. On deadline expiry the pending unit is cancelled and
// a call_timeout error is returned; any other failure is wrapped as an
// execution error with the cause preserved.
func (r *Registry) Run(fn func(context.Context) error, sess *session.Session, waitFor bool, timeout time.Duration) error {
	task, err := r.submitShared(session.Wrap(cloneOrGuest(sess), nil, fn))
	if err != nil {
		return err
	}
	if !waitFor {
		return nil
	}
	return r.await(task, "service run", timeout)
}

// Call executes a result-producing unit on the registry's shared pool and
// blocks for the result with the same deadline semantics as Run.
func Call[T any](r *Registry, fn func(context.Context) (T, error), sess *session.Session, timeout time.Duration) (T, error) {
	var out T
	wrapped := session.Wrap(cloneOrGuest(sess), nil, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})

	task, err := r.submitShared(wrapped)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := r.await(task, "service call", timeout); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func (r *Registry) submitShared(fn func(context.Context) error) (*pool.Task, error) {
	task := pool.NewTask(fn)
	if err := r.shared.Submit(task); err != nil {
		return nil, skerrors.Execution("shared pool rejected unit", err)
	}
	return task, nil
}

// await blocks for task completion. A non-positive timeout means an
// unbounded wait.
func (r *Registry) await(task *pool.Task, op string, timeout time.Duration) error {
	if timeout <= 0 {
		if err := task.Wait(context.Background()); err != nil {
			return skerrors.Execution(op+" failed", err)
		}
		return nil
	}

	select {
	case <-task.Done():
		if err := task.Err(); err != nil {
			return skerrors.Execution(op+" failed", err)
		}
		return nil
	case <-r.clock.After(timeout):
		task.Cancel()
		metrics.CallTimeoutsTotal.Inc()
		return skerrors.CallTimeout(op+" timed out", context.DeadlineExceeded)
	}
}

func cloneOrGuest(s *session.Session) *session.Session {
	if s == nil {
		s = session.Guest()
	}
	return s.Clone()
}
