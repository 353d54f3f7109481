package session

import "context"

// Capture snapshots the submitting context at fork time: the current session
// (guest if none is bound) and a copy of its properties, the "invoker
// properties" merged into the session when the unit later executes.
func Capture(ctx context.Context) (*Session, map[string]any) {
	s := FromContext(ctx)
	return s, s.Properties()
}

// Wrap decorates a unit of work so that sess is the current session while
// the unit runs. Immediately before the unit executes, sess is bound to the
// executing worker's carrier and the invoker properties are merged into it;
// the carrier binding is cleared on every exit path, including failure.
func Wrap(sess *Session, invokerProps map[string]any, fn func(context.Context) error) func(context.Context) error {
	if sess == nil {
		sess = guest
	}
	return func(ctx context.Context) error {
		if c, ok := CarrierFromContext(ctx); ok {
			c.Bind(sess)
			defer c.Clear()
		}
		sess.Merge(invokerProps)
		return fn(With(ctx, sess))
	}
}
