package session

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the identity and property bag attached to a unit of work for
// its entire asynchronous lifetime. All methods are safe for concurrent use.
type Session struct {
	id   uuid.UUID
	name string

	mu    sync.RWMutex
	props map[string]any
}

// New creates a session with a fresh identity and an empty property bag.
func New(name string) *Session {
	return &Session{
		id:    uuid.New(),
		name:  name,
		props: make(map[string]any),
	}
}

// guest is the process-wide anonymous session, used whenever no session is
// bound to the calling context.
var guest = &Session{
	id:    uuid.Nil,
	name:  "guest",
	props: make(map[string]any),
}

// Guest returns the anonymous session singleton.
func Guest() *Session {
	return guest
}

// ID returns the session identity.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Name returns the session display name.
func (s *Session) Name() string {
	return s.name
}

// IsGuest reports whether s carries the anonymous guest identity. Guest-ness
// follows the identity, not the instance, so clones of the guest session are
// still guests.
func (s *Session) IsGuest() bool {
	return s.id == uuid.Nil
}

// Get returns the property stored under key.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.props[key]
	return v, ok
}

// Set stores a property under key.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.props[key] = value
}

// Properties returns a snapshot copy of the property bag. Mutating the
// returned map does not affect the session.
func (s *Session) Properties() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot := make(map[string]any, len(s.props))
	for k, v := range s.props {
		snapshot[k] = v
	}
	return snapshot
}

// Merge copies every entry of props into the session's property bag,
// overwriting existing keys.
func (s *Session) Merge(props map[string]any) {
	if len(props) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range props {
		s.props[k] = v
	}
}

// Clone returns an independent copy of the session. The clone keeps the
// identity but owns its property bag: mutations on either side never affect
// the other. Nested map[string]any and []any values are copied recursively.
func (s *Session) Clone() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	props := make(map[string]any, len(s.props))
	for k, v := range s.props {
		props[k] = deepCopyValue(v)
	}
	return &Session{
		id:    s.id,
		name:  s.name,
		props: props,
	}
}

func deepCopyValue(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, nested := range typed {
			out[k] = deepCopyValue(nested)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, nested := range typed {
			out[i] = deepCopyValue(nested)
		}
		return out
	default:
		return v
	}
}
