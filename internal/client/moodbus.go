package client

import (
	"sync"

	"github.com/bowerhall/bubble/internal/mood"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a chat line as shown to the user. Mood is empty unless the
// sender stated one.
type Message struct {
	Role string
	Text string
	Mood mood.Mood
}

type Transition struct {
	From mood.Mood
	To   mood.Mood
}

// Bus tracks the current assistant mood and tells observers when it
// changes.
type Bus struct {
	mu        sync.Mutex
	current   mood.Mood
	observers []func(Transition)

	// serializes deliveries so observers see transitions in order
	notifyMu sync.Mutex
}

func NewBus(initial mood.Mood) *Bus {
	if !initial.Valid() {
		initial = mood.Neutral
	}
	return &Bus{current: initial}
}

func (b *Bus) Current() mood.Mood {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Subscribe registers fn for every future transition.
func (b *Bus) Subscribe(fn func(Transition)) {
	b.mu.Lock()
	b.observers = append(b.observers, fn)
	b.mu.Unlock()
}

// Publish feeds a chat message to the bus. Only assistant messages with
// an explicit mood can move it; it reports whether a transition fired.
func (b *Bus) Publish(m Message) bool {
	if m.Role != RoleAssistant || m.Mood == "" {
		return false
	}
	next, ok := mood.Parse(m.Mood.String())
	if !ok {
		return false
	}

	b.notifyMu.Lock()
	defer b.notifyMu.Unlock()

	b.mu.Lock()
	if next == b.current {
		b.mu.Unlock()
		return false
	}
	t := Transition{From: b.current, To: next}
	b.current = next
	observers := append([]func(Transition){}, b.observers...)
	b.mu.Unlock()

	for _, fn := range observers {
		fn(t)
	}
	return true
}
