package registry

import (
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/jvilloa/servicekit/config"
	skerrors "github.com/jvilloa/servicekit/errors"
	"github.com/jvilloa/servicekit/pool"
)

// Stage marks a sub-phase within a single service's custom shutdown
// sequence.
type Stage string

const (
	// StageStart runs before the service's auxiliary pools are terminated.
	StageStart Stage = "start"
	// StageEnd runs after the auxiliary pools, before the default pool.
	StageEnd Stage = "end"
)

// Member is the view the registry has of a service. The service package
// provides the canonical implementation.
type Member interface {
	Name() string
	Priority() int
	// ShutdownStage is the service's custom shutdown hook. Failures are
	// caught and counted by the registry, never propagated.
	ShutdownStage(stage Stage) error
	DefaultPool() pool.Pool
	AuxiliaryPools() []pool.Pool
}

type entry struct {
	member  Member
	ordinal int
}

// Registry is the process-wide directory of constructed services and the
// orchestrator of global shutdown.
type Registry struct {
	cfg   *config.Config
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	ordinal int
	logSvc  Member

	shared pool.Pool

	shutdownOnce sync.Once
	failures     int

	exit func(code int)
}

// New creates a registry with its shared pool sized from cfg.
func New(cfg *config.Config, clock clockwork.Clock) *Registry {
	var shared pool.Pool
	if cfg.SharedPoolPerTask {
		shared = pool.NewPerTask("registry.shared")
	} else {
		shared = pool.NewBounded("registry.shared",
			cfg.SharedPoolCoreSize, cfg.SharedPoolMaxSize, cfg.SharedPoolKeepAlive,
			pool.WithClock(clock))
	}
	return &Registry{
		cfg:     cfg,
		clock:   clock,
		entries: make(map[string]*entry),
		shared:  shared,
		exit:    os.Exit,
	}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load registry configuration, using defaults", "error", err)
		cfg = config.Default()
	}
	return New(cfg, clockwork.NewRealClock())
})

// Default returns the process-wide registry, created on first access.
func Default() *Registry {
	return defaultRegistry()
}

// Register inserts a service into the directory. The name must be unique for
// the process lifetime; entries are never removed.
func (r *Registry) Register(m Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.entries[m.Name()]; taken {
		return skerrors.DuplicateRegistration(m.Name())
	}
	r.entries[m.Name()] = &entry{member: m, ordinal: r.ordinal}
	r.ordinal++
	slog.Info("Service registered", "service", m.Name(), "priority", m.Priority())
	return nil
}

// Exists reports whether a service name is already registered.
func (r *Registry) Exists(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, taken := r.entries[name]
	return taken
}

// BindLogService installs the logging collaborator. It bypasses normal
// registration so the registry can shut it down last.
func (r *Registry) BindLogService(m Member) {
	r.mu.Lock()
	r.logSvc = m
	r.mu.Unlock()
	slog.Info("Log service bound", "service", m.Name())
}

// LogService returns the bound logging collaborator, or nil.
func (r *Registry) LogService() Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.logSvc
}

// SharedPool returns the pool used by the Run and Call gateways.
func (r *Registry) SharedPool() pool.Pool {
	return r.shared
}

// Config returns the configuration the registry was built with.
func (r *Registry) Config() *config.Config {
	return r.cfg
}

// Clock returns the registry clock.
func (r *Registry) Clock() clockwork.Clock {
	return r.clock
}

// SetExitFunc replaces the process termination policy invoked by Terminate.
// The default is os.Exit.
func (r *Registry) SetExitFunc(exit func(code int)) {
	r.mu.Lock()
	r.exit = exit
	r.mu.Unlock()
}

// Terminate runs the global shutdown sequence and then ends the process with
// an exit status equal to the number of stage failures (zero = clean). No
// caller observes a return from it under the default exit policy.
func (r *Registry) Terminate() {
	failures := r.Shutdown()
	r.mu.Lock()
	exit := r.exit
	r.mu.Unlock()
	exit(failures)
}

// HandleSignals triggers Terminate on SIGINT or SIGTERM.
func (r *Registry) HandleSignals() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Shutdown signal received")
		r.Terminate()
	}()
}

// sortedMembers returns all registered services ordered by priority
// descending, with the insertion ordinal as a deterministic tie-break.
func (r *Registry) sortedMembers() []Member {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].member.Priority() != entries[j].member.Priority() {
			return entries[i].member.Priority() > entries[j].member.Priority()
		}
		return entries[i].ordinal < entries[j].ordinal
	})

	members := make([]Member, len(entries))
	for i, e := range entries {
		members[i] = e.member
	}
	return members
}
