package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	skerrors "github.com/jvilloa/servicekit/errors"
	"github.com/jvilloa/servicekit/session"
)

func TestRun_FireAndForget(t *testing.T) {
	reg := newTestRegistry()

	done := make(chan struct{})
	err := reg.Run(func(ctx context.Context) error {
		close(done)
		return nil
	}, nil, false, 0)
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unit never executed")
	}
}

func TestRun_BlocksUntilCompletion(t *testing.T) {
	reg := newTestRegistry()

	var ran bool
	err := reg.Run(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		ran = true
		return nil
	}, nil, true, 0)

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestRun_ExecutionFailureWrapped(t *testing.T) {
	reg := newTestRegistry()

	cause := errors.New("disk full")
	err := reg.Run(func(ctx context.Context) error {
		return cause
	}, nil, true, 0)

	assert.True(t, skerrors.IsKind(err, skerrors.KindExecution))
	assert.ErrorIs(t, err, cause)
}

func TestRun_TimeoutCancelsUnit(t *testing.T) {
	reg := newTestRegistry()

	started := make(chan struct{})
	finished := make(chan struct{})
	err := reg.Run(func(ctx context.Context) error {
		close(started)
		defer close(finished)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
			return nil
		}
	}, nil, true, 50*time.Millisecond)

	assert.True(t, skerrors.IsKind(err, skerrors.KindCallTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	<-started
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("cancellation never reached the unit")
	}
}

func TestRun_SessionCloneShieldsCaller(t *testing.T) {
	reg := newTestRegistry()

	sess := session.New("alice")
	sess.Set("tenant", "acme")

	err := reg.Run(func(ctx context.Context) error {
		session.FromContext(ctx).Set("tenant", "mutated")
		return nil
	}, sess, true, 0)
	require.NoError(t, err)

	tenant, _ := sess.Get("tenant")
	assert.Equal(t, "acme", tenant)
}

func TestRun_NilSessionRunsAsGuest(t *testing.T) {
	reg := newTestRegistry()

	var guest bool
	err := reg.Run(func(ctx context.Context) error {
		guest = session.FromContext(ctx).IsGuest()
		return nil
	}, nil, true, 0)

	require.NoError(t, err)
	assert.True(t, guest)
}

func TestRun_RejectedAfterShutdown(t *testing.T) {
	reg := newTestRegistry()
	reg.Shutdown()

	err := reg.Run(func(ctx context.Context) error { return nil }, nil, false, 0)
	assert.True(t, skerrors.IsKind(err, skerrors.KindExecution))
}

func TestCall_DeliversValue(t *testing.T) {
	reg := newTestRegistry()

	sess := session.New("alice")
	sess.Set("tenant", "acme")

	v, err := Call(reg, func(ctx context.Context) (string, error) {
		tenant, _ := session.FromContext(ctx).Get("tenant")
		return tenant.(string), nil
	}, sess, 0)

	require.NoError(t, err)
	assert.Equal(t, "acme", v)
}

func TestCall_FailureReturnsZeroValue(t *testing.T) {
	reg := newTestRegistry()

	v, err := Call(reg, func(ctx context.Context) (int, error) {
		return 42, errors.New("boom")
	}, nil, 0)

	assert.True(t, skerrors.IsKind(err, skerrors.KindExecution))
	assert.Zero(t, v)
}

func TestCall_Timeout(t *testing.T) {
	reg := newTestRegistry()

	_, err := Call(reg, func(ctx context.Context) (int, error) {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(2 * time.Second):
			return 1, nil
		}
	}, nil, 50*time.Millisecond)

	assert.True(t, skerrors.IsKind(err, skerrors.KindCallTimeout))
}
