package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendQueueSize  = 64
	chatQueueSize  = 16
	maxSessionID   = 128
)

func newConn(id string, ws *websocket.Conn) *conn {
	c := &conn{
		id:   id,
		ws:   ws,
		send: make(chan []byte, sendQueueSize),
		done: make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

func (c *conn) ID() string { return c.id }

func (c *conn) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	case <-c.done:
		return false
	default:
		logger.Warn("send queue full, dropping message", "client", c.id)
		return false
	}
}

func (c *conn) Close() {
	c.once.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

func (c *conn) ping() error {
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (c *conn) sendMessage(m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		logger.Error("encode failed", "client", c.id, "type", m.Kind(), "error", err)
		return
	}
	c.Send(data)
}

func (c *conn) writeLoop() {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("write failed", "client", c.id, "error", err)
				c.Close()
				return
			}
		}
	}
}

// clientID picks the id of a new socket. With resume enabled a client may
// reclaim its previous id, and with it the conversation history.
func (s *Server) clientID(r *http.Request) string {
	if s.cfg.Resume {
		if id := r.URL.Query().Get("session"); id != "" && len(id) <= maxSessionID {
			return id
		}
	}
	return uuid.NewString()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	c := newConn(s.clientID(r), ws)
	s.registry.Register(c)
	logger.Info("client connected", "client", c.id, "clients", s.registry.Count())

	go c.writeLoop()
	c.sendMessage(protocol.System{Message: protocol.MsgConnected, ClientID: c.id})

	ctx, cancel := context.WithCancel(r.Context())

	chats := make(chan protocol.ChatRequest, chatQueueSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for req := range chats {
			if ctx.Err() != nil {
				continue
			}
			s.answer(ctx, c, req)
		}
	}()

	s.readLoop(ctx, c, chats)

	cancel()
	close(chats)
	wg.Wait()

	current := s.registry.Unregister(c)
	c.Close()

	if current && !s.cfg.Resume {
		s.service.EndSession(context.Background(), c.id)
	}
	logger.Info("client disconnected", "client", c.id, "clients", s.registry.Count())
}

// readLoop dispatches inbound frames until the socket fails. Chat turns are
// queued for the connection's worker so pongs keep flowing while a reply
// is generated.
func (s *Server) readLoop(ctx context.Context, c *conn, chats chan<- protocol.ChatRequest) {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("read failed", "client", c.id, "error", err)
			}
			return
		}

		msg, err := protocol.DecodeClient(data)
		if err != nil {
			logger.Debug("invalid message", "client", c.id, "error", err)
			c.sendMessage(protocol.System{Error: protocol.MsgInvalid})
			continue
		}

		switch m := msg.(type) {
		case protocol.ChatRequest:
			select {
			case chats <- m:
			case <-ctx.Done():
				return
			}
		case protocol.MoodUpdate:
			md, _ := mood.Parse(m.Mood)
			if err := s.service.RecordMood(ctx, c.id, md); err != nil {
				logger.Warn("record mood failed", "client", c.id, "error", err)
			}
			c.sendMessage(protocol.System{Message: protocol.MsgMoodReceived})
		case protocol.EnvironmentChange:
			n := s.hub.Broadcast(protocol.EnvironmentChange{Environment: m.Environment, ChangedBy: c.id})
			logger.Debug("environment changed", "client", c.id, "environment", m.Environment, "recipients", n)
		}
	}
}

func (s *Server) answer(ctx context.Context, c *conn, req protocol.ChatRequest) {
	c.sendMessage(protocol.System{Status: protocol.StatusTyping})

	resp, err := s.service.Respond(ctx, c.id, req.Message)
	if err != nil {
		c.sendMessage(protocol.System{Error: protocol.MsgInvalid})
		return
	}

	c.sendMessage(protocol.ChatReply{
		Message:   resp.Message,
		Mood:      resp.Mood.String(),
		MessageID: req.MessageID,
	})
}
