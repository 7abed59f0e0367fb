package hub

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Registry owns the set of live sessions. All mutation goes through
// Register/Unregister; iteration snapshots the table so callers never
// hold the lock while touching a transport.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
	}
}

// Register creates a session for the connection and stores it. Session
// ids are never reused while the process is alive.
func (r *Registry) Register(conn *websocket.Conn, remoteAddr string) *Session {
	s := newSession(conn, remoteAddr)
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Unregister closes the session's transport and removes the entry.
// Unregistering an absent id is a no-op.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if ok {
		s.close()
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// ForEach calls fn for every live session in unspecified order. The
// snapshot is taken under the read lock; fn runs outside it, so a
// session may be unregistered concurrently.
func (r *Registry) ForEach(fn func(*Session)) {
	r.mu.RLock()
	snapshot := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		snapshot = append(snapshot, s)
	}
	r.mu.RUnlock()

	for _, s := range snapshot {
		fn(s)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Counts returns the number of registered sessions and the number of
// distinct remote hosts among them.
func (r *Registry) Counts() (connections, online int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hosts := make(map[string]struct{}, len(r.sessions))
	for _, s := range r.sessions {
		hosts[s.RemoteAddr] = struct{}{}
	}
	return len(r.sessions), len(hosts)
}
