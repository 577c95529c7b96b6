package conversation

import (
	"context"
	"sync"
	"time"
)

type memorySession struct {
	turns   []Turn
	touched time.Time
}

// MemoryStore keeps history in process memory. It is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	max      int
	sessions map[string]*memorySession
	now      func() time.Time
}

func NewMemoryStore(maxTurns int) *MemoryStore {
	return &MemoryStore{
		max:      normalizeMax(maxTurns),
		sessions: make(map[string]*memorySession),
		now:      time.Now,
	}
}

func (s *MemoryStore) Append(ctx context.Context, sessionID string, turn Turn) error {
	if err := validate(sessionID, turn); err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		sess = &memorySession{turns: make([]Turn, 0, s.max+1)}
		s.sessions[sessionID] = sess
	}

	sess.turns = append(sess.turns, turn)
	if len(sess.turns) > s.max {
		// shift in place so the backing array does not grow without bound
		n := copy(sess.turns, sess.turns[len(sess.turns)-s.max:])
		sess.turns = sess.turns[:n]
	}
	sess.touched = s.now()

	return nil
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) ([]Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil
	}

	copied := make([]Turn, len(sess.turns))
	copy(copied, sess.turns)

	return copied, nil
}

func (s *MemoryStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	cutoff := s.now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if sess.touched.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of sessions with history.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) Close() error {
	return nil
}
