package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvilloa/servicekit/config"
	skerrors "github.com/jvilloa/servicekit/errors"
	"github.com/jvilloa/servicekit/pool"
	"github.com/jvilloa/servicekit/registry"
	"github.com/jvilloa/servicekit/session"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.PoolCoreSize = 1
	cfg.PoolMaxSize = 4
	cfg.PoolKeepAlive = 50 * time.Millisecond
	cfg.ShutdownTimeout = 200 * time.Millisecond
	cfg.ShutdownGraceDelay = 10 * time.Millisecond
	return cfg
}

func newTestRegistry() *registry.Registry {
	return registry.New(testConfig(), clockwork.NewRealClock())
}

func TestNew_EmptyNameFails(t *testing.T) {
	_, err := New(newTestRegistry(), "", 1)
	assert.True(t, skerrors.IsKind(err, skerrors.KindInvalidConstruction))
}

func TestNew_NilRegistryFails(t *testing.T) {
	_, err := New(nil, "net", 1)
	assert.True(t, skerrors.IsKind(err, skerrors.KindInvalidConstruction))
}

func TestNew_RegistersService(t *testing.T) {
	reg := newTestRegistry()

	svc, err := New(reg, "net", 1)
	require.NoError(t, err)

	assert.Equal(t, "net", svc.Name())
	assert.Equal(t, 1, svc.Priority())
	assert.True(t, reg.Exists("net"))
}

func TestNew_DuplicateNameFailsAndFirstSurvives(t *testing.T) {
	reg := newTestRegistry()

	first, err := New(reg, "net", 1)
	require.NoError(t, err)

	_, err = New(reg, "net", 2)
	assert.True(t, skerrors.IsKind(err, skerrors.KindDuplicateRegistration))

	// The original registration keeps working.
	assert.True(t, reg.Exists("net"))
	task, err := first.Fork(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))
}

func TestNew_InitHookRunsAfterRegistration(t *testing.T) {
	reg := newTestRegistry()

	var visibleDuringInit bool
	_, err := New(reg, "net", 1, WithInit(func() error {
		visibleDuringInit = reg.Exists("net")
		return nil
	}))
	require.NoError(t, err)
	assert.True(t, visibleDuringInit)
}

func TestNew_InitHookFailureSurfaces(t *testing.T) {
	_, err := New(newTestRegistry(), "net", 1, WithInit(func() error {
		return errors.New("no socket")
	}))
	assert.True(t, skerrors.IsKind(err, skerrors.KindInvalidConstruction))
}

func TestNew_PerTaskModelSelectedByConfig(t *testing.T) {
	cfg := testConfig()
	cfg.PoolPerTask = true
	reg := registry.New(cfg, clockwork.NewRealClock())

	svc, err := New(reg, "net", 1)
	require.NoError(t, err)

	assert.IsType(t, &pool.PerTask{}, svc.DefaultPool())
}

func TestFork_PropagatesSubmitterSession(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	sess := session.New("alice")
	sess.Set("tenant", "acme")
	ctx := session.With(context.Background(), sess)

	var seenID uuid.UUID
	var seenTenant any
	task, err := svc.Fork(ctx, func(taskCtx context.Context) error {
		current := session.FromContext(taskCtx)
		seenID = current.ID()
		seenTenant, _ = current.Get("tenant")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))

	assert.Equal(t, sess.ID(), seenID)
	assert.Equal(t, "acme", seenTenant)
}

func TestFork_GuestSessionWhenUnbound(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	var seen *session.Session
	task, err := svc.Fork(context.Background(), func(taskCtx context.Context) error {
		seen = session.FromContext(taskCtx)
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))

	assert.True(t, seen.IsGuest())
}

func TestFork_NoSessionLeaksAcrossUnits(t *testing.T) {
	cfg := testConfig()
	cfg.PoolCoreSize = 1
	cfg.PoolMaxSize = 1 // both units run on the same worker
	reg := registry.New(cfg, clockwork.NewRealClock())
	svc, err := New(reg, "net", 1)
	require.NoError(t, err)

	sess := session.New("alice")
	sess.Set("secret", "s3cret")
	first, err := svc.Fork(session.With(context.Background(), sess), func(taskCtx context.Context) error {
		return errors.New("unit failed")
	})
	require.NoError(t, err)
	<-first.Done()

	var seen *session.Session
	var leaked bool
	second, err := svc.Fork(context.Background(), func(taskCtx context.Context) error {
		seen = session.FromContext(taskCtx)
		_, leaked = seen.Get("secret")
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, second.Wait(context.Background()))

	assert.True(t, seen.IsGuest())
	assert.False(t, leaked)
}

func TestFork_InvokerPropertiesSnapshotAtSubmission(t *testing.T) {
	cfg := testConfig()
	cfg.PoolCoreSize = 1
	cfg.PoolMaxSize = 1
	reg := registry.New(cfg, clockwork.NewRealClock())
	svc, err := New(reg, "net", 1)
	require.NoError(t, err)

	release := make(chan struct{})
	blocker, err := svc.Fork(context.Background(), func(taskCtx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	sess := session.New("alice")
	sess.Set("phase", "submit")
	ctx := session.With(context.Background(), sess)

	var seenPhase any
	queued, err := svc.Fork(ctx, func(taskCtx context.Context) error {
		seenPhase, _ = session.FromContext(taskCtx).Get("phase")
		return nil
	})
	require.NoError(t, err)

	// Mutated after submission but before execution: the merged snapshot
	// still carries the submission-time value until the session overrides it.
	sess.Set("phase", "late")

	close(release)
	require.NoError(t, blocker.Wait(context.Background()))
	require.NoError(t, queued.Wait(context.Background()))

	assert.Equal(t, "submit", seenPhase)
}

func TestForkIn_RegistersAuxiliaryPoolOnce(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	p1 := pool.NewBounded("net.io", 1, 2, time.Minute)
	p2 := pool.NewBounded("net.io.other", 1, 2, time.Minute)
	defer p1.Kill()
	defer p2.Kill()

	task, err := svc.ForkIn(context.Background(), "io", p1, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))

	// Second registration under the same name reuses the first pool.
	task, err = svc.ForkIn(context.Background(), "io", p2, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))

	aux := svc.AuxiliaryPools()
	require.Len(t, aux, 1)
	assert.Same(t, pool.Pool(p1), aux[0])
}

func TestForkIn_EmptyNameIsUsageFailure(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	p := pool.NewBounded("net.io", 1, 2, time.Minute)
	defer p.Kill()

	_, err = svc.ForkIn(context.Background(), "", p, func(ctx context.Context) error { return nil })
	assert.True(t, skerrors.IsKind(err, skerrors.KindValidation))
}

func TestForkIn_NilPoolFallsBackToDefault(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	task, err := svc.ForkIn(context.Background(), "ignored", nil, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	require.NoError(t, task.Wait(context.Background()))

	assert.Empty(t, svc.AuxiliaryPools())
}

func TestCall_DeliversResultUnderSession(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	sess := session.New("alice")
	sess.Set("tenant", "acme")
	ctx := session.With(context.Background(), sess)

	fut, err := Call(svc, ctx, func(taskCtx context.Context) (string, error) {
		tenant, _ := session.FromContext(taskCtx).Get("tenant")
		return tenant.(string), nil
	})
	require.NoError(t, err)

	v, err := fut.Result(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "acme", v)
}

func TestTerminatePool_GivesUpOnUninterruptibleUnit(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	p := pool.NewBounded("net.stuck", 1, 1, time.Minute)
	started := make(chan struct{})
	stuck := pool.NewTask(func(ctx context.Context) error {
		close(started)
		time.Sleep(2 * time.Second)
		return nil
	})
	require.NoError(t, p.Submit(stuck))
	<-started

	start := time.Now()
	ok := svc.TerminatePool(p)
	elapsed := time.Since(start)

	assert.False(t, ok)
	// Two phases of the configured 200ms timeout plus polling slack.
	assert.Less(t, elapsed, time.Second)

	require.NoError(t, stuck.Wait(context.Background()))
}

func TestShutdownStage_DefaultsToNoop(t *testing.T) {
	svc, err := New(newTestRegistry(), "net", 1)
	require.NoError(t, err)

	assert.NoError(t, svc.ShutdownStage(registry.StageStart))
	assert.NoError(t, svc.ShutdownStage(registry.StageEnd))
}

func TestShutdownStage_DelegatesToHook(t *testing.T) {
	var stages []registry.Stage
	svc, err := New(newTestRegistry(), "net", 1, WithShutdownHook(func(stage registry.Stage) error {
		stages = append(stages, stage)
		return nil
	}))
	require.NoError(t, err)

	require.NoError(t, svc.ShutdownStage(registry.StageStart))
	require.NoError(t, svc.ShutdownStage(registry.StageEnd))
	assert.Equal(t, []registry.Stage{registry.StageStart, registry.StageEnd}, stages)
}
