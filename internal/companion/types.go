package companion

import (
	"context"
	"errors"
	"time"

	"github.com/bowerhall/bubble/internal/alerts"
	"github.com/bowerhall/bubble/internal/budget"
	"github.com/bowerhall/bubble/internal/conversation"
	"github.com/bowerhall/bubble/internal/llm"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/session"
)

var (
	ErrEmptyReply      = errors.New("empty completion")
	ErrBudgetExhausted = errors.New("daily token budget exhausted")
	ErrEmptyMessage    = errors.New("message is required")
	ErrNoSession       = errors.New("session id is required")
)

// InferenceError wraps any failure to obtain a usable model reply.
type InferenceError struct {
	Provider string
	Err      error
}

func (e *InferenceError) Error() string {
	return "inference failed (" + e.Provider + "): " + e.Err.Error()
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

type Reply struct {
	Message string
	Mood    mood.Mood
}

// Inferrer produces a reply to userMessage given the earlier turns.
type Inferrer interface {
	Infer(ctx context.Context, userMessage string, previous []conversation.Turn) (Reply, error)
}

// MoodRecorder persists moods reported by clients.
type MoodRecorder interface {
	RecordMood(ctx context.Context, sessionID string, m mood.Mood, value int) error
}

type Gateway struct {
	llm          llm.LLM
	classifier   mood.Classifier
	systemPrompt string
	opts         llm.Options
	timeout      time.Duration
	budget       *budget.Tracker
	alerts       *alerts.Alerter
}

// Response is what a caller shows the user. Fallback marks a canned reply.
type Response struct {
	Message  string
	Mood     mood.Mood
	Fallback bool
}

type Service struct {
	gateway    Inferrer
	history    conversation.Store
	sessions   *session.Registry
	bank       *mood.Bank
	classifier mood.Classifier
	recorder   MoodRecorder
}
