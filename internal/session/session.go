package session

import (
	"time"
)

// TryAcquire attempts to acquire the processing lock.
// Returns true if acquired, false if already processing.
func (s *Session) TryAcquire() bool {
	return s.processing.TryLock()
}

// Release releases the processing lock.
func (s *Session) Release() {
	s.processing.Unlock()
}

func (s *Session) touch() {
	s.touched.Store(time.Now().UnixNano())
}

func (s *Session) lastUsed() time.Time {
	return time.Unix(0, s.touched.Load())
}

func NewRegistry() *Registry {
	return &Registry{
		clients:  make(map[string]Client),
		sessions: make(map[string]*Session),
	}
}

// Register adds a live client. A previous client with the same id is
// closed and returned.
func (r *Registry) Register(c Client) Client {
	r.mu.Lock()
	prev, ok := r.clients[c.ID()]
	r.clients[c.ID()] = c
	r.mu.Unlock()

	if ok && prev != c {
		prev.Close()
		return prev
	}
	return nil
}

// Unregister removes c if it is still the registered client for its id.
func (r *Registry) Unregister(c Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.clients[c.ID()]; ok && cur == c {
		delete(r.clients, c.ID())
		return true
	}
	return false
}

func (r *Registry) Client(id string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.clients[id]
	return c, ok
}

// Clients returns a snapshot of the live clients.
func (r *Registry) Clients() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast queues data on every live client and returns how many accepted it.
func (r *Registry) Broadcast(data []byte) int {
	delivered := 0
	for _, c := range r.Clients() {
		if c.Send(data) {
			delivered++
		}
	}
	return delivered
}

func (r *Registry) Get(sessionID string) *Session {
	r.mu.RLock()

	sess, ok := r.sessions[sessionID]
	r.mu.RUnlock()

	if ok {
		return sess
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sess, ok = r.sessions[sessionID]; ok {
		return sess
	}

	sess = &Session{}
	sess.touch()
	r.sessions[sessionID] = sess

	return sess
}

// Lock blocks until the caller holds the session's processing lock and
// returns the matching unlock.
func (r *Registry) Lock(sessionID string) func() {
	for {
		sess := r.Get(sessionID)
		sess.processing.Lock()

		// Prune may have dropped the entry while we waited.
		r.mu.RLock()
		cur := r.sessions[sessionID]
		r.mu.RUnlock()

		if cur == sess {
			sess.touch()
			return func() {
				sess.touch()
				sess.processing.Unlock()
			}
		}
		sess.processing.Unlock()
	}
}

// Forget drops the session entry for a closed conversation.
func (r *Registry) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
}

// Prune drops idle sessions that are not processing and returns how many went.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if !sess.lastUsed().Before(cutoff) {
			continue
		}
		if !sess.TryAcquire() {
			continue
		}
		delete(r.sessions, id)
		sess.Release()
		removed++
	}
	return removed
}

// Sessions returns the number of tracked sessions.
func (r *Registry) Sessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
