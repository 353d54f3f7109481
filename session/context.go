package session

import (
	"context"
	"sync"
)

type sessionKey struct{}

type carrierKey struct{}

// With returns a context carrying the given session.
func With(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// Bound extracts the session bound to ctx, returning (nil, false) if none.
func Bound(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// FromContext returns the session for the current execution context: the
// session bound to ctx, else the session bound to the worker's carrier,
// else the guest session. It never returns nil.
func FromContext(ctx context.Context) *Session {
	if s, ok := Bound(ctx); ok {
		return s
	}
	if c, ok := CarrierFromContext(ctx); ok {
		if s := c.Current(); s != nil {
			return s
		}
	}
	return guest
}

// Carrier is a per-worker slot holding at most one active session. Pools
// create one carrier per worker; wrappers bind the captured session before a
// unit runs and clear it unconditionally afterwards, so no session ever
// leaks onto a worker that later executes unrelated work.
type Carrier struct {
	mu      sync.Mutex
	current *Session
}

// NewCarrier returns an unbound carrier.
func NewCarrier() *Carrier {
	return &Carrier{}
}

// Bind attaches a session to the carrier.
func (c *Carrier) Bind(s *Session) {
	c.mu.Lock()
	c.current = s
	c.mu.Unlock()
}

// Clear detaches any bound session.
func (c *Carrier) Clear() {
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

// Current returns the bound session, or nil if the carrier is unbound.
func (c *Carrier) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// WithCarrier returns a context carrying the worker's carrier.
func WithCarrier(ctx context.Context, c *Carrier) context.Context {
	return context.WithValue(ctx, carrierKey{}, c)
}

// CarrierFromContext extracts the worker carrier from ctx.
func CarrierFromContext(ctx context.Context) (*Carrier, bool) {
	c, ok := ctx.Value(carrierKey{}).(*Carrier)
	return c, ok && c != nil
}
