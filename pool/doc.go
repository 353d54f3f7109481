// Package pool implements the worker pools of the service substrate.
//
// Two models are provided behind the Pool interface: Bounded, an elastic
// pool with core size, max size, idle keep-alive, and an unbounded backlog;
// and PerTask, which gives every submitted unit its own goroutine with no
// shared limits. Terminate implements the two-phase (graceful, then forced)
// termination protocol used during global shutdown.
package pool
