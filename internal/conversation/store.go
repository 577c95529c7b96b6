// Package conversation keeps the bounded per-session buffer of recent
// chat turns that is replayed to the language model.
package conversation

import (
	"context"
	"fmt"
	"time"
)

// DefaultMaxTurns is the number of turns kept per session.
const DefaultMaxTurns = 10

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is a per-session FIFO of turns. Append evicts the oldest turns
// once a session holds more than the configured maximum. Sessions never
// see each other's turns.
type Store interface {
	Append(ctx context.Context, sessionID string, turn Turn) error
	Get(ctx context.Context, sessionID string) ([]Turn, error)
	Clear(ctx context.Context, sessionID string) error
	// Sweep drops sessions not touched for longer than maxIdle and
	// reports how many stored entries went with them.
	Sweep(ctx context.Context, maxIdle time.Duration) (int, error)
	Close() error
}

type Driver string

const (
	DriverMemory Driver = "memory"
	DriverSQLite Driver = "sqlite"
	DriverRedis  Driver = "redis"
)

// Previous returns the history without the newest turn, which is the
// in-flight user message sent to the model separately.
func Previous(turns []Turn) []Turn {
	if len(turns) == 0 {
		return nil
	}
	return turns[:len(turns)-1]
}

func trim(turns []Turn, max int) []Turn {
	if len(turns) > max {
		turns = turns[len(turns)-max:]
	}
	return turns
}

func normalizeMax(max int) int {
	if max <= 0 {
		return DefaultMaxTurns
	}
	return max
}

func validate(sessionID string, turn Turn) error {
	if sessionID == "" {
		return fmt.Errorf("empty session id")
	}
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return fmt.Errorf("invalid role %q", turn.Role)
	}
	return nil
}
