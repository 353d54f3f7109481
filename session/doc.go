// Package session implements ambient caller-context propagation for the
// service substrate.
//
// A Session is a cloneable property bag identifying the caller of a unit of
// work. Pools install a Carrier per worker; work wrappers bind the captured
// session to the executing worker's carrier for exactly the duration of the
// unit and always clear it afterwards. Inside a unit the current session is
// read from the context; code with no bound session sees the guest session.
package session
