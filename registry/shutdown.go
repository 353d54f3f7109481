package registry

import (
	"fmt"
	"log/slog"

	skerrors "github.com/jvilloa/servicekit/errors"
	"github.com/jvilloa/servicekit/metrics"
	"github.com/jvilloa/servicekit/pool"
)

// Shutdown runs the global shutdown sequence exactly once and returns the
// number of stage failures encountered. Re-entrant or concurrent triggers
// block until the first run completes and observe its result.
//
// The sequence, per service in priority order: START hook, auxiliary pool
// termination, END hook, default pool termination. Hook failures are caught
// and counted, never aborting the loop. The shared pool goes after the last
// ordinary service; the logging service goes last, after a grace delay, so
// in-flight shutdown logging stays available until the very end.
func (r *Registry) Shutdown() int {
	r.shutdownOnce.Do(func() {
		r.failures = r.runShutdown()
	})
	return r.failures
}

func (r *Registry) runShutdown() int {
	slog.Info("Starting global shutdown")
	failures := 0

	for _, m := range r.sortedMembers() {
		slog.Info("Shutting down service", "service", m.Name(), "priority", m.Priority())
		failures += r.runStageHook(m, StageStart)

		for _, aux := range m.AuxiliaryPools() {
			r.terminatePool(m.Name(), aux)
		}

		failures += r.runStageHook(m, StageEnd)
		r.terminatePool(m.Name(), m.DefaultPool())
	}

	r.terminatePool("registry", r.shared)

	r.clock.Sleep(r.cfg.ShutdownGraceDelay)

	r.mu.Lock()
	logSvc := r.logSvc
	r.mu.Unlock()
	if logSvc != nil {
		slog.Info("Shutting down log service", "service", logSvc.Name())
		failures += r.runStageHook(logSvc, StageStart)
		for _, aux := range logSvc.AuxiliaryPools() {
			r.terminatePool(logSvc.Name(), aux)
		}
		r.terminatePool(logSvc.Name(), logSvc.DefaultPool())
		failures += r.runStageHook(logSvc, StageEnd)
	}

	slog.Info("Global shutdown complete", "failures", failures)
	return failures
}

// runStageHook invokes a service's custom shutdown hook, converting any
// failure or panic into a counted stage failure.
func (r *Registry) runStageHook(m Member, stage Stage) int {
	if err := callStageHook(m, stage); err != nil {
		wrapped := skerrors.ShutdownStage(m.Name(), string(stage), err)
		slog.Error("Shutdown stage hook failed", "service", m.Name(), "stage", string(stage), "error", wrapped)
		metrics.ShutdownStageFailuresTotal.Inc()
		return 1
	}
	return 0
}

func callStageHook(m Member, stage Stage) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("shutdown hook panicked: %v", rec)
		}
	}()
	return m.ShutdownStage(stage)
}

func (r *Registry) terminatePool(owner string, p pool.Pool) {
	if p == nil {
		return
	}
	if !pool.Terminate(r.clock, p, r.cfg.ShutdownTimeout) {
		slog.Warn("Pool did not terminate within both shutdown phases", "service", owner, "pool", p.Name())
	}
}
