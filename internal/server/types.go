package server

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v5"

	"github.com/bowerhall/bubble/internal/budget"
	"github.com/bowerhall/bubble/internal/companion"
	"github.com/bowerhall/bubble/internal/environment"
	"github.com/bowerhall/bubble/internal/session"
	"github.com/bowerhall/bubble/internal/store"
)

type Config struct {
	Port string
	// PingInterval is the period of the liveness sweep.
	PingInterval time.Duration
	// Resume keeps a conversation across reconnects of the same client id.
	Resume bool
}

type Server struct {
	cfg       Config
	service   *companion.Service
	registry  *session.Registry
	store     *store.Store
	catalogue *environment.Catalogue
	budget    *budget.Tracker
	hub       *Hub
	echo      *echo.Echo
	upgrader  websocket.Upgrader
	started   time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// Hub owns the connected sockets: liveness sweeps and broadcasts.
type Hub struct {
	registry *session.Registry
	interval time.Duration
}

// conn is one websocket client. Writes go through the send queue and are
// drained by a single writer goroutine.
type conn struct {
	id    string
	ws    *websocket.Conn
	send  chan []byte
	done  chan struct{}
	alive atomic.Bool
	once  sync.Once
}
