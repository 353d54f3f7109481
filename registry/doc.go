// Package registry implements the process-wide service directory and the
// global shutdown orchestrator.
//
// Every constructed service registers here (the logging service is bound
// through a dedicated slot instead). Shutdown visits services in priority
// order, runs their two-stage hooks, and terminates their pools with the
// two-phase protocol; the logging service goes last, after a grace delay, so
// shutdown progress can still be recorded. Process termination is an
// injectable policy whose exit status equals the number of stage failures.
package registry
