package pool

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jvilloa/servicekit/metrics"
)

const pollInterval = 50 * time.Millisecond

// Terminate applies the two-phase termination protocol to a pool.
//
// Phase one requests graceful shutdown and polls for full termination up to
// timeout. Phase two, entered only when phase one did not finish in time,
// force-cancels outstanding and queued work and polls again up to the same
// timeout. If the pool still has not terminated after both phases, Terminate
// gives up and returns false; leaked workers are an accepted risk, not a
// fatal error.
func Terminate(clock clockwork.Clock, p Pool, timeout time.Duration) bool {
	p.Shutdown()
	if awaitTermination(clock, p, timeout) {
		return true
	}

	p.Kill()
	if awaitTermination(clock, p, timeout) {
		return true
	}

	metrics.PoolTerminationTimeoutsTotal.Inc()
	return false
}

func awaitTermination(clock clockwork.Clock, p Pool, timeout time.Duration) bool {
	deadline := clock.Now().Add(timeout)
	for {
		if p.Terminated() {
			return true
		}
		if !clock.Now().Before(deadline) {
			return false
		}
		clock.Sleep(pollInterval)
	}
}
