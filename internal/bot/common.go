package bot

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bowerhall/bubble/internal/logger"
)

const greeting = "Hi, I'm Bubble. I'm here to listen whenever you want to talk. Send /reset any time to start our conversation over."

// resetWords start a fresh conversation. Keep this list minimal to avoid
// false positives.
var resetWords = []string{"/reset", "reset", "start over", "new conversation"}

func isResetCommand(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	return slices.Contains(resetWords, lower)
}

// reply turns one inbound chat line into the bridge's answer.
func reply(ctx context.Context, r Responder, sessionID, text string) string {
	text = strings.TrimSpace(text)

	switch {
	case text == "":
		return ""
	case text == "/start":
		return greeting
	case isResetCommand(text):
		r.EndSession(ctx, sessionID)
		logger.Info("conversation reset", "session", sessionID)
		return "Okay, let's start fresh. How are you feeling right now?"
	}

	resp, err := r.Respond(ctx, sessionID, text)
	if err != nil {
		logger.Error("respond failed", "session", sessionID, "error", err)
		return "Something went wrong."
	}

	return formatReply(resp.Message, resp.Mood.String())
}

func formatReply(message, mood string) string {
	if mood == "" {
		return message
	}
	return fmt.Sprintf("%s\n\n(mood: %s)", message, mood)
}

func (c *chatSet[K]) add(id K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chats == nil {
		c.chats = make(map[K]struct{})
	}
	c.chats[id] = struct{}{}
}

func (c *chatSet[K]) remove(id K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.chats, id)
}

func (c *chatSet[K]) list() []K {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]K, 0, len(c.chats))
	for id := range c.chats {
		out = append(out, id)
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}

	return s[:max] + "..."
}
