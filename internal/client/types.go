package client

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/protocol"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNotConnected = errors.New("websocket not connected")
	// ErrDuplicateRequest rejects a pending request whose id was reused.
	ErrDuplicateRequest = errors.New("message id reused before reply")
)

// TimeoutError rejects a single request that got no reply in time.
type TimeoutError struct {
	MessageID string
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no reply to %s after %s", e.MessageID, e.After)
}

// TransportError rejects requests whose connection failed underneath them.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type Reply struct {
	MessageID string
	Message   string
	Mood      mood.Mood
	// Fallback marks a canned answer, only reported over HTTP.
	Fallback bool
}

type result struct {
	reply Reply
	err   error
}

// Pending is a request awaiting its reply.
type Pending struct {
	ID        string
	CreatedAt time.Time
	resultCh  chan result
	resolved  bool
}

// Correlator pairs outbound chat requests with the replies that carry the
// same message id.
type Correlator struct {
	pending map[string]*Pending
	mu      sync.Mutex
	timeout time.Duration
}

type Config struct {
	// BaseURL is the server root, e.g. http://localhost:5000.
	BaseURL string
	Timeout time.Duration
	// SessionID resumes a previous conversation when the server allows it.
	SessionID string
}

// Client talks to the server over the websocket when it is open and over
// the HTTP fallback otherwise.
type Client struct {
	cfg        Config
	corr       *Correlator
	dialer     *websocket.Dialer
	httpClient *http.Client

	mu        sync.Mutex
	ws        *websocket.Conn
	clientID  string
	sessionID string
	bus       *Bus
	cb        callbacks

	writeMu sync.Mutex
}

// callbacks are read by the socket reader; Client.mu guards them.
type callbacks struct {
	typing      func()
	system      func(protocol.System)
	environment func(protocol.EnvironmentChange)
	disconnect  func(error)
}
