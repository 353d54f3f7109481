package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/jvilloa/servicekit/config"
	skerrors "github.com/jvilloa/servicekit/errors"
	"github.com/jvilloa/servicekit/pool"
	"github.com/jvilloa/servicekit/registry"
	"github.com/jvilloa/servicekit/session"
)

// Base is the common implementation of a service: a unique name, a shutdown
// priority, one default pool, and a lazily populated map of named auxiliary
// pools. Concrete services embed Base and implement Handler.
type Base struct {
	name     string
	priority int
	reg      *registry.Registry
	cfg      *config.Config
	clock    clockwork.Clock

	defaultPool pool.Pool

	mu       sync.Mutex
	auxPools map[string]pool.Pool

	initHook     func() error
	shutdownHook func(stage registry.Stage) error
}

type options struct {
	cfg          *config.Config
	clock        clockwork.Clock
	initHook     func() error
	shutdownHook func(stage registry.Stage) error
	logBinding   bool
}

// Option customizes service construction.
type Option func(*options)

// WithConfig overrides the configuration the service pools are sized from.
// The default is the owning registry's configuration.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithClock replaces the service clock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithInit sets the post-construction hook, invoked once after the service
// is visible in the registry.
func WithInit(fn func() error) Option {
	return func(o *options) { o.initHook = fn }
}

// WithShutdownHook sets the two-stage custom shutdown hook. Failures are
// caught and counted by the registry during global shutdown.
func WithShutdownHook(fn func(stage registry.Stage) error) Option {
	return func(o *options) { o.shutdownHook = fn }
}

// AsLogService binds the service as the registry's logging collaborator
// instead of registering it normally. The registry shuts it down last.
func AsLogService() Option {
	return func(o *options) { o.logBinding = true }
}

// New constructs a service base: it validates the name, creates the default
// pool from configuration, registers the service with the registry (or binds
// it as the log service), and finally runs the init hook. A duplicate name
// fails construction and leaves the earlier registration untouched.
func New(reg *registry.Registry, name string, priority int, opts ...Option) (*Base, error) {
	if name == "" {
		return nil, skerrors.InvalidConstruction("service name must not be empty")
	}
	if reg == nil {
		return nil, skerrors.InvalidConstruction("service requires a registry")
	}

	o := &options{cfg: reg.Config(), clock: reg.Clock()}
	for _, opt := range opts {
		opt(o)
	}

	if !o.logBinding && reg.Exists(name) {
		return nil, skerrors.DuplicateRegistration(name)
	}

	b := &Base{
		name:         name,
		priority:     priority,
		reg:          reg,
		cfg:          o.cfg,
		clock:        o.clock,
		auxPools:     make(map[string]pool.Pool),
		initHook:     o.initHook,
		shutdownHook: o.shutdownHook,
	}
	b.defaultPool = b.newPool(name + ".default")

	if o.logBinding {
		reg.BindLogService(b)
	} else if err := reg.Register(b); err != nil {
		b.defaultPool.Shutdown()
		return nil, err
	}

	if b.initHook != nil {
		if err := b.initHook(); err != nil {
			return nil, skerrors.InvalidConstruction("service init hook failed").WithContext("service", name).WithContext("cause", err.Error())
		}
	}
	return b, nil
}

// newPool creates a pool using the configured sizing and concurrency model.
func (b *Base) newPool(name string) pool.Pool {
	if b.cfg.PoolPerTask {
		slog.Debug("Using per-task execution model", "pool", name)
		return pool.NewPerTask(name)
	}
	return pool.NewBounded(name, b.cfg.PoolCoreSize, b.cfg.PoolMaxSize, b.cfg.PoolKeepAlive, pool.WithClock(b.clock))
}

// Name returns the service name. Implements registry.Member.
func (b *Base) Name() string {
	return b.name
}

// Priority returns the shutdown priority (higher shuts down earlier).
// Implements registry.Member.
func (b *Base) Priority() int {
	return b.priority
}

// Registry returns the registry the service belongs to.
func (b *Base) Registry() *registry.Registry {
	return b.reg
}

// DefaultPool implements registry.Member.
func (b *Base) DefaultPool() pool.Pool {
	return b.defaultPool
}

// AuxiliaryPools implements registry.Member.
func (b *Base) AuxiliaryPools() []pool.Pool {
	b.mu.Lock()
	defer b.mu.Unlock()
	pools := make([]pool.Pool, 0, len(b.auxPools))
	for _, p := range b.auxPools {
		pools = append(pools, p)
	}
	return pools
}

// ShutdownStage implements registry.Member by delegating to the configured
// hook; the default is a no-op.
func (b *Base) ShutdownStage(stage registry.Stage) error {
	if b.shutdownHook == nil {
		return nil
	}
	return b.shutdownHook(stage)
}

// Fork submits a unit to the default pool for asynchronous execution under
// the submitting context's session (guest if none is bound). Properties on
// that session at submission time are visible inside the unit.
func (b *Base) Fork(ctx context.Context, fn func(context.Context) error) (*pool.Task, error) {
	return b.fork(ctx, b.defaultPool, fn)
}

// ForkIn is Fork on a named auxiliary pool. The pool is registered on first
// use; later calls with the same name reuse the first pool registered under
// it, and the supplied instance is ignored.
func (b *Base) ForkIn(ctx context.Context, poolName string, p pool.Pool, fn func(context.Context) error) (*pool.Task, error) {
	target, err := b.registerAuxPool(poolName, p)
	if err != nil {
		return nil, err
	}
	return b.fork(ctx, target, fn)
}

func (b *Base) fork(ctx context.Context, p pool.Pool, fn func(context.Context) error) (*pool.Task, error) {
	sess, invokerProps := session.Capture(ctx)
	task := pool.NewTask(session.Wrap(sess, invokerProps, fn))
	if err := p.Submit(task); err != nil {
		return nil, skerrors.Execution("pool rejected unit", err).WithContext("service", b.name).WithContext("pool", p.Name())
	}
	return task, nil
}

// registerAuxPool performs the mutex-guarded insert-if-absent registration:
// the first registration under a name wins and the pool stays until global
// shutdown.
func (b *Base) registerAuxPool(name string, p pool.Pool) (pool.Pool, error) {
	if p == nil || p == b.defaultPool {
		return b.defaultPool, nil
	}
	if name == "" {
		return nil, skerrors.Validation("auxiliary pool name must not be empty").WithContext("service", b.name)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.auxPools[name]; ok {
		return existing, nil
	}
	b.auxPools[name] = p
	return p, nil
}

// TerminatePool applies the two-phase termination protocol with the
// configured shutdown timeout. It returns false when the pool survived both
// phases; the caller proceeds regardless.
func (b *Base) TerminatePool(p pool.Pool) bool {
	return pool.Terminate(b.clock, p, b.cfg.ShutdownTimeout)
}

// Call submits a result-producing unit to the service's default pool under
// the submitting context's session and returns its future.
func Call[T any](b *Base, ctx context.Context, fn func(context.Context) (T, error)) (*pool.Future[T], error) {
	sess, invokerProps := session.Capture(ctx)
	fut := pool.NewFuture(func(taskCtx context.Context) (T, error) {
		var out T
		err := session.Wrap(sess, invokerProps, func(innerCtx context.Context) error {
			v, err := fn(innerCtx)
			if err != nil {
				return err
			}
			out = v
			return nil
		})(taskCtx)
		return out, err
	})
	if err := b.defaultPool.Submit(fut.Task()); err != nil {
		return nil, skerrors.Execution("pool rejected unit", err).WithContext("service", b.name)
	}
	return fut, nil
}
