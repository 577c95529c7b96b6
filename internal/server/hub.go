package server

import (
	"context"
	"time"

	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/protocol"
	"github.com/bowerhall/bubble/internal/session"
)

func NewHub(registry *session.Registry, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Hub{registry: registry, interval: interval}
}

// Run sweeps for dead connections until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := h.Sweep(); n > 0 {
				logger.Info("terminated unresponsive clients", "count", n)
			}
		}
	}
}

// Sweep terminates every socket that has not answered since the previous
// sweep and pings the rest. It returns the number terminated.
func (h *Hub) Sweep() int {
	terminated := 0
	for _, client := range h.registry.Clients() {
		c, ok := client.(*conn)
		if !ok {
			continue
		}

		if !c.alive.Swap(false) {
			logger.Debug("client missed ping", "client", c.id)
			c.Close()
			terminated++
			continue
		}

		if err := c.ping(); err != nil {
			logger.Debug("ping failed", "client", c.id, "error", err)
			c.Close()
			terminated++
		}
	}
	return terminated
}

// Broadcast sends m to every connected client and returns how many
// accepted it.
func (h *Hub) Broadcast(m protocol.Message) int {
	data, err := protocol.Encode(m)
	if err != nil {
		logger.Error("encode broadcast failed", "type", m.Kind(), "error", err)
		return 0
	}
	return h.registry.Broadcast(data)
}

// Notify pushes a system message to every connected client.
func (h *Hub) Notify(message string) int {
	return h.Broadcast(protocol.System{Message: message})
}

// Clients reports the number of connected sockets.
func (h *Hub) Clients() int {
	return h.registry.Count()
}
