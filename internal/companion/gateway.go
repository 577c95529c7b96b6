package companion

import (
	"context"
	"strings"
	"time"

	"github.com/bowerhall/bubble/internal/alerts"
	"github.com/bowerhall/bubble/internal/budget"
	"github.com/bowerhall/bubble/internal/conversation"
	"github.com/bowerhall/bubble/internal/llm"
	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/mood"
)

const defaultTimeout = 30 * time.Second

func NewGateway(model llm.LLM, persona string, opts llm.Options) *Gateway {
	if persona == "" {
		persona = defaultPersona
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = llm.DefaultOptions.MaxTokens
	}

	return &Gateway{
		llm:          model,
		classifier:   mood.NewKeywordClassifier(),
		systemPrompt: persona,
		opts:         opts,
		timeout:      defaultTimeout,
	}
}

func (g *Gateway) SetBudget(b *budget.Tracker) {
	g.budget = b
}

func (g *Gateway) SetAlerter(a *alerts.Alerter) {
	g.alerts = a
}

func (g *Gateway) SetClassifier(c mood.Classifier) {
	g.classifier = c
}

// SetTimeout bounds each completion. Zero keeps the default.
func (g *Gateway) SetTimeout(d time.Duration) {
	if d > 0 {
		g.timeout = d
	}
}

// Infer asks the model for a reply and tags it with the mood of the reply text.
// Every failure comes back as an *InferenceError.
func (g *Gateway) Infer(ctx context.Context, userMessage string, previous []conversation.Turn) (Reply, error) {
	if g.budget.Exhausted() {
		return Reply{}, g.fail(ErrBudgetExhausted)
	}

	messages := make([]llm.Message, 0, len(previous)+1)
	for _, turn := range previous {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Text})
	}
	messages = append(messages, llm.Message{Role: conversation.RoleUser, Content: userMessage})

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.llm.Chat(ctx, g.systemPrompt, messages, g.opts)
	if err != nil {
		return Reply{}, g.fail(err)
	}

	logger.Debug("llm response", "provider", g.llm.Provider(), "chars", len(resp.Content), "elapsed", time.Since(start))

	if resp.Usage != nil {
		g.budget.Record(ctx, g.llm.Provider(), g.llm.Model(), resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	text := strings.TrimSpace(resp.Content)
	if text == "" {
		return Reply{}, g.fail(ErrEmptyReply)
	}

	return Reply{Message: text, Mood: g.classifier.Classify(text)}, nil
}

func (g *Gateway) fail(err error) error {
	g.alerts.Warn("llm", "inference failed", err)
	return &InferenceError{Provider: g.llm.Provider(), Err: err}
}
