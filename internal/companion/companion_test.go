package companion

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bowerhall/bubble/internal/budget"
	"github.com/bowerhall/bubble/internal/conversation"
	"github.com/bowerhall/bubble/internal/llm"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/session"
)

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	err      error
	usage    *llm.Usage
	delay    time.Duration
	calls    int
	system   string
	messages []llm.Message
	opts     llm.Options
	active   atomic.Int32
	overlap  atomic.Bool
}

func (f *fakeLLM) Chat(ctx context.Context, system string, messages []llm.Message, opts llm.Options) (*llm.ChatResponse, error) {
	if f.active.Add(1) > 1 {
		f.overlap.Store(true)
	}
	defer f.active.Add(-1)

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.system = system
	f.messages = messages
	f.opts = opts

	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.reply, Usage: f.usage}, nil
}

func (f *fakeLLM) Provider() string { return "fake" }
func (f *fakeLLM) Model() string    { return "fake-1" }

func newService(model llm.LLM) (*Service, conversation.Store) {
	history := conversation.NewMemoryStore(conversation.DefaultMaxTurns)
	gw := NewGateway(model, "", llm.DefaultOptions)
	return NewService(gw, history, session.NewRegistry(), nil), history
}

func TestGatewayInfer(t *testing.T) {
	model := &fakeLLM{reply: "  That sounds so peaceful.  "}
	gw := NewGateway(model, "be gentle", llm.Options{Temperature: 0.7, MaxTokens: 250})

	previous := []conversation.Turn{
		{Role: conversation.RoleUser, Text: "hi"},
		{Role: conversation.RoleAssistant, Text: "hello"},
	}

	reply, err := gw.Infer(context.Background(), "I went for a walk", previous)
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}

	if reply.Message != "That sounds so peaceful." {
		t.Errorf("expected trimmed reply, got %q", reply.Message)
	}
	if reply.Mood != mood.Calm {
		t.Errorf("expected mood classified from reply text, got %s", reply.Mood)
	}

	if model.system != "be gentle" {
		t.Errorf("expected persona as system prompt, got %q", model.system)
	}
	if model.opts.MaxTokens != 250 || model.opts.Temperature != 0.7 {
		t.Errorf("unexpected options %+v", model.opts)
	}
	if len(model.messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(model.messages))
	}
	if model.messages[2].Role != "user" || model.messages[2].Content != "I went for a walk" {
		t.Errorf("expected user message last, got %+v", model.messages[2])
	}
}

func TestGatewayDefaultPersona(t *testing.T) {
	model := &fakeLLM{reply: "ok"}
	gw := NewGateway(model, "", llm.DefaultOptions)
	gw.Infer(context.Background(), "hi", nil)

	if model.system != defaultPersona {
		t.Error("expected default persona when none configured")
	}
}

func TestGatewayFailures(t *testing.T) {
	tests := []struct {
		name  string
		model *fakeLLM
		want  error
	}{
		{"provider error", &fakeLLM{err: errors.New("connection refused")}, nil},
		{"empty reply", &fakeLLM{reply: "   "}, ErrEmptyReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewGateway(tt.model, "", llm.DefaultOptions)
			_, err := gw.Infer(context.Background(), "hello", nil)

			var inferErr *InferenceError
			if !errors.As(err, &inferErr) {
				t.Fatalf("expected InferenceError, got %v", err)
			}
			if inferErr.Provider != "fake" {
				t.Errorf("expected provider fake, got %s", inferErr.Provider)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGatewayBudgetExhausted(t *testing.T) {
	model := &fakeLLM{reply: "fine", usage: &llm.Usage{PromptTokens: 80, CompletionTokens: 40, TotalTokens: 120}}
	gw := NewGateway(model, "", llm.DefaultOptions)
	gw.SetBudget(budget.NewTracker(budget.Config{DailyLimit: 100}, nil, nil))

	if _, err := gw.Infer(context.Background(), "hi", nil); err != nil {
		t.Fatalf("first Infer: %v", err)
	}

	_, err := gw.Infer(context.Background(), "hi again", nil)
	if !errors.Is(err, ErrBudgetExhausted) {
		t.Fatalf("expected ErrBudgetExhausted, got %v", err)
	}
	if model.calls != 1 {
		t.Errorf("expected model not called once budget exhausted, got %d calls", model.calls)
	}
}

func TestServiceRespond(t *testing.T) {
	model := &fakeLLM{reply: "I'm happy to hear that!"}
	svc, history := newService(model)
	ctx := context.Background()

	resp, err := svc.Respond(ctx, "s1", "I got the job")
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resp.Fallback {
		t.Error("expected a model reply, not a fallback")
	}
	if resp.Mood != mood.Happy {
		t.Errorf("expected happy, got %s", resp.Mood)
	}

	turns, _ := history.Get(ctx, "s1")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
	if turns[0].Role != conversation.RoleUser || turns[1].Role != conversation.RoleAssistant {
		t.Errorf("unexpected roles %s, %s", turns[0].Role, turns[1].Role)
	}

	// second turn replays the first exchange but not the in-flight message twice
	svc.Respond(ctx, "s1", "thanks")
	if len(model.messages) != 3 {
		t.Fatalf("expected 2 previous turns plus current, got %d", len(model.messages))
	}
	if model.messages[0].Content != "I got the job" || model.messages[2].Content != "thanks" {
		t.Errorf("unexpected replay %+v", model.messages)
	}
}

func TestServiceRespondFallback(t *testing.T) {
	model := &fakeLLM{err: errors.New("upstream timeout")}
	svc, history := newService(model)
	ctx := context.Background()

	resp, err := svc.Respond(ctx, "s1", "I feel so anxious today")
	if err != nil {
		t.Fatalf("Respond must not surface inference errors, got %v", err)
	}
	if !resp.Fallback {
		t.Error("expected fallback indicator")
	}
	if resp.Mood != mood.Anxious {
		t.Errorf("expected mood of the input text, got %s", resp.Mood)
	}
	if resp.Message == "" {
		t.Fatal("expected non-empty fallback message")
	}
	if !slices.Contains(mood.NewBank(nil).Responses(mood.Anxious), resp.Message) {
		t.Errorf("expected reply from the anxious bank, got %q", resp.Message)
	}

	turns, _ := history.Get(ctx, "s1")
	if len(turns) != 2 || turns[1].Text != resp.Message {
		t.Errorf("expected fallback reply stored as assistant turn, got %+v", turns)
	}
}

func TestServiceRespondValidation(t *testing.T) {
	svc, _ := newService(&fakeLLM{reply: "hi"})

	if _, err := svc.Respond(context.Background(), "", "hello"); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
	if _, err := svc.Respond(context.Background(), "s1", "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("expected ErrEmptyMessage, got %v", err)
	}
}

func TestServiceSerializesSession(t *testing.T) {
	model := &fakeLLM{reply: "ok", delay: 5 * time.Millisecond}
	svc, history := newService(model)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Respond(ctx, "same", "hello")
		}()
	}
	wg.Wait()

	if model.overlap.Load() {
		t.Error("expected at most one in-flight inference per session")
	}

	turns, _ := history.Get(ctx, "same")
	for i := 0; i+1 < len(turns); i += 2 {
		if turns[i].Role != conversation.RoleUser || turns[i+1].Role != conversation.RoleAssistant {
			t.Fatalf("expected alternating turns, got %+v", turns)
		}
	}
}

func TestServiceEndSession(t *testing.T) {
	svc, history := newService(&fakeLLM{reply: "ok"})
	ctx := context.Background()

	svc.Respond(ctx, "s1", "hello")
	svc.EndSession(ctx, "s1")

	turns, _ := history.Get(ctx, "s1")
	if len(turns) != 0 {
		t.Errorf("expected history cleared, got %d turns", len(turns))
	}
}

type fakeRecorder struct {
	sessionID string
	mood      mood.Mood
	value     int
}

func (f *fakeRecorder) RecordMood(ctx context.Context, sessionID string, m mood.Mood, value int) error {
	f.sessionID, f.mood, f.value = sessionID, m, value
	return nil
}

func TestServiceRecordMood(t *testing.T) {
	svc, _ := newService(&fakeLLM{})

	// no recorder configured
	if err := svc.RecordMood(context.Background(), "s1", mood.Calm); err != nil {
		t.Fatalf("RecordMood without recorder: %v", err)
	}

	rec := &fakeRecorder{}
	svc.SetMoodRecorder(rec)
	svc.RecordMood(context.Background(), "s1", mood.Calm)

	if rec.sessionID != "s1" || rec.mood != mood.Calm || rec.value != mood.Value(mood.Calm) {
		t.Errorf("unexpected recorded mood %+v", rec)
	}
}

func TestLoadPersona(t *testing.T) {
	if LoadPersona("") != defaultPersona {
		t.Error("expected default persona for empty path")
	}
	if LoadPersona(filepath.Join(t.TempDir(), "missing.md")) != defaultPersona {
		t.Error("expected default persona for missing file")
	}

	path := filepath.Join(t.TempDir(), "persona.md")
	os.WriteFile(path, []byte("  You are Pip.\n"), 0o644)
	if got := LoadPersona(path); got != "You are Pip." {
		t.Errorf("expected file persona, got %q", got)
	}
}
