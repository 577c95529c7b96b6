package session

import (
	"sync"
	"sync/atomic"
)

// Client is a live connection that can be pushed envelopes.
type Client interface {
	ID() string
	// Send queues data without blocking. It reports false when the
	// client is closed or its queue is full.
	Send(data []byte) bool
	Close()
}

// Session serializes the chat turns of one conversation.
type Session struct {
	processing sync.Mutex
	touched    atomic.Int64
}

type Registry struct {
	mu       sync.RWMutex
	clients  map[string]Client
	sessions map[string]*Session
}
