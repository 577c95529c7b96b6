package llm

import (
	"context"
	"time"
)

type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
	// Timeout bounds a single completion request, retries included.
	Timeout time.Duration
}

type Message struct {
	Role    string
	Content string
}

// Options tune a single completion.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// DefaultOptions keeps replies short and moderately varied.
var DefaultOptions = Options{Temperature: 0.7, MaxTokens: 250}

type ChatResponse struct {
	Content    string
	StopReason string
	Usage      *Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type LLM interface {
	Chat(ctx context.Context, systemPrompt string, messages []Message, opts Options) (*ChatResponse, error)
	Provider() string
	Model() string
}
