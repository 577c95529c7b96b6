// Package client is the companion's client side: it correlates chat
// requests with replies, falls back to HTTP when the socket is down and
// fans assistant moods out to presentation observers.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/protocol"
)

const writeWait = 10 * time.Second

func New(cfg Config) *Client {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		cfg:        cfg,
		corr:       NewCorrelator(cfg.Timeout),
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		httpClient: &http.Client{Timeout: cfg.Timeout},
		sessionID:  cfg.SessionID,
	}
}

func (c *Client) OnTyping(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb.typing = fn
}

func (c *Client) OnSystem(fn func(protocol.System)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb.system = fn
}

func (c *Client) OnEnvironment(fn func(protocol.EnvironmentChange)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb.environment = fn
}

func (c *Client) OnDisconnect(fn func(error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cb.disconnect = fn
}

func (c *Client) callbacks() callbacks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cb
}

// SetBus publishes every assistant reply to b.
func (c *Client) SetBus(b *Bus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bus = b
}

func (c *Client) Correlator() *Correlator {
	return c.corr
}

func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if c.cfg.SessionID != "" {
		u.RawQuery = url.Values{"session": {c.cfg.SessionID}}.Encode()
	}
	return u.String(), nil
}

// Connect opens the websocket and waits for the server greeting.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := c.wsURL()
	if err != nil {
		return err
	}

	ws, _, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return &TransportError{Err: err}
	}

	ws.SetReadDeadline(time.Now().Add(writeWait))
	_, data, err := ws.ReadMessage()
	if err != nil {
		ws.Close()
		return &TransportError{Err: fmt.Errorf("read greeting: %w", err)}
	}
	ws.SetReadDeadline(time.Time{})

	greeting, err := protocol.DecodeServer(data)
	if err != nil {
		ws.Close()
		return &TransportError{Err: fmt.Errorf("decode greeting: %w", err)}
	}
	sys, ok := greeting.(protocol.System)
	if !ok || sys.ClientID == "" {
		ws.Close()
		return &TransportError{Err: errors.New("server did not send a client id")}
	}

	c.mu.Lock()
	c.ws = ws
	c.clientID = sys.ClientID
	c.mu.Unlock()

	logger.Debug("websocket connected", "client", sys.ClientID)

	go c.readLoop(ws)
	return nil
}

// Open reports whether the websocket is usable.
func (c *Client) Open() bool {
	return c.conn() != nil
}

func (c *Client) conn() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws
}

func (c *Client) ClientID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clientID
}

// SessionID is the HTTP fallback token, empty until the first fallback
// reply.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) Close() error {
	c.mu.Lock()
	ws := c.ws
	c.ws = nil
	c.mu.Unlock()

	if ws == nil {
		return nil
	}

	c.writeMu.Lock()
	ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	return ws.Close()
}

// Send delivers one chat message and waits for its reply. The websocket is
// used when open, otherwise the HTTP fallback.
func (c *Client) Send(ctx context.Context, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyMessage
	}

	var (
		reply Reply
		err   error
	)
	if ws := c.conn(); ws != nil {
		reply, err = c.sendWS(ctx, ws, text)
	} else {
		reply, err = c.sendHTTP(ctx, text)
	}
	if err != nil {
		return Reply{}, err
	}

	c.mu.Lock()
	bus := c.bus
	c.mu.Unlock()
	if bus != nil {
		bus.Publish(Message{Role: RoleAssistant, Text: reply.Message, Mood: reply.Mood})
	}
	return reply, nil
}

// sendWS writes the request and waits for its reply. A failed write drops
// the socket and retries the message over HTTP.
func (c *Client) sendWS(ctx context.Context, ws *websocket.Conn, text string) (Reply, error) {
	id := "msg_" + uuid.NewString()
	p := c.corr.Start(id)

	if err := c.writeConn(ws, protocol.ChatRequest{Message: text, MessageID: id}); err != nil {
		c.corr.Cancel(id)
		c.drop(ws)
		logger.Debug("websocket write failed, using http", "error", err)
		return c.sendHTTP(ctx, text)
	}
	return c.corr.Wait(ctx, p)
}

// drop forgets ws if it is still the current socket and closes it. The
// reader, if running, then reports the disconnect.
func (c *Client) drop(ws *websocket.Conn) {
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.mu.Unlock()
	ws.Close()
}

// Cancel abandons a pending websocket request.
func (c *Client) Cancel(messageID string) bool {
	return c.corr.Cancel(messageID)
}

func (c *Client) SendMood(m mood.Mood) error {
	return c.write(protocol.MoodUpdate{Mood: m.String()})
}

func (c *Client) ChangeEnvironment(id string) error {
	return c.write(protocol.EnvironmentChange{Environment: id})
}

func (c *Client) write(m protocol.Message) error {
	ws := c.conn()
	if ws == nil {
		return ErrNotConnected
	}
	return c.writeConn(ws, m)
}

func (c *Client) writeConn(ws *websocket.Conn, m protocol.Message) error {
	data, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) readLoop(ws *websocket.Conn) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			c.disconnected(ws, err)
			return
		}

		msg, err := protocol.DecodeServer(data)
		if err != nil {
			logger.Debug("ignoring malformed server message", "error", err)
			continue
		}

		cb := c.callbacks()

		switch m := msg.(type) {
		case protocol.ChatReply:
			md, ok := mood.Parse(m.Mood)
			if !ok {
				md = mood.Neutral
			}
			if !c.corr.Resolve(Reply{MessageID: m.MessageID, Message: m.Message, Mood: md}) {
				logger.Debug("reply without pending request", "id", m.MessageID)
			}
		case protocol.System:
			if m.Status == protocol.StatusTyping {
				if cb.typing != nil {
					cb.typing()
				}
				continue
			}
			if cb.system != nil {
				cb.system(m)
			}
		case protocol.EnvironmentChange:
			if cb.environment != nil {
				cb.environment(m)
			}
		}
	}
}

// disconnected drops the socket and fails everything still waiting on it.
func (c *Client) disconnected(ws *websocket.Conn, err error) {
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.mu.Unlock()
	ws.Close()

	if n := c.corr.RejectAll(err); n > 0 {
		logger.Debug("rejected pending requests", "count", n, "error", err)
	}
	if cb := c.callbacks(); cb.disconnect != nil {
		cb.disconnect(err)
	}
}

func (c *Client) sendHTTP(ctx context.Context, text string) (Reply, error) {
	body, err := json.Marshal(protocol.ProcessRequest{Message: text, SessionID: c.SessionID()})
	if err != nil {
		return Reply{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/interactions/process", bytes.NewReader(body))
	if err != nil {
		return Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return Reply{}, &TimeoutError{MessageID: "http", After: c.cfg.Timeout}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Reply{}, ctxErr
		}
		return Reply{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e protocol.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&e)
		return Reply{}, &TransportError{Err: fmt.Errorf("status %d: %s", resp.StatusCode, e.Error)}
	}

	var out protocol.ProcessResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Reply{}, &TransportError{Err: fmt.Errorf("decode response: %w", err)}
	}

	c.mu.Lock()
	c.sessionID = out.SessionID
	c.mu.Unlock()

	md, ok := mood.Parse(out.Mood)
	if !ok {
		md = mood.Neutral
	}
	return Reply{Message: out.Response, Mood: md, Fallback: out.Fallback}, nil
}
