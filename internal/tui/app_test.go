package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bowerhall/bubble/internal/client"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/protocol"
)

type fakeBackend struct {
	reply client.Reply
	err   error
	sent  []string
	moods []mood.Mood
	envs  []string
}

func (f *fakeBackend) Send(ctx context.Context, text string) (client.Reply, error) {
	f.sent = append(f.sent, text)
	return f.reply, f.err
}

func (f *fakeBackend) SendMood(m mood.Mood) error {
	f.moods = append(f.moods, m)
	return nil
}

func (f *fakeBackend) ChangeEnvironment(id string) error {
	f.envs = append(f.envs, id)
	return nil
}

func enter(t *testing.T, m model, text string) (model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(model), cmd
}

func drain(m model) []tea.Msg {
	var out []tea.Msg
	for {
		select {
		case msg := <-m.events:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func lastEntry(m model) entry {
	return m.log[len(m.log)-1]
}

func TestSubmitAndReply(t *testing.T) {
	backend := &fakeBackend{reply: client.Reply{MessageID: "msg_1", Message: "I'm here with you.", Mood: mood.Calm}}
	m := newModel(context.Background(), backend, true)

	m, cmd := enter(t, m, "  had a long day  ")
	if cmd == nil {
		t.Fatal("expected a send command")
	}
	if !m.sending {
		t.Error("expected sending state")
	}
	if e := lastEntry(m); e.Role != roleUser || e.Text != "had a long day" {
		t.Errorf("last entry = %+v", e)
	}
	if m.input.Value() != "" {
		t.Error("input not cleared")
	}

	msg := sendCmd(m.ctx, backend, "had a long day")()
	updated, _ := m.Update(msg)
	m = updated.(model)

	if m.sending {
		t.Error("still sending after reply")
	}
	if e := lastEntry(m); e.Role != roleAssistant || e.Mood != mood.Calm {
		t.Errorf("last entry = %+v", e)
	}
	if len(backend.sent) != 1 || backend.sent[0] != "had a long day" {
		t.Errorf("sent = %v", backend.sent)
	}

	events := drain(m)
	if len(events) != 1 {
		t.Fatalf("events = %+v", events)
	}
	mm, ok := events[0].(moodMsg)
	if !ok || mm.transition.To != mood.Calm {
		t.Fatalf("expected mood transition, got %+v", events[0])
	}

	updated, _ = m.Update(mm)
	m = updated.(model)
	if m.mood != mood.Calm || !strings.Contains(m.View(), client.AvatarExpression(mood.Calm).Face) {
		t.Error("header does not show the new mood")
	}
}

func TestSubmitIgnoredWhileSending(t *testing.T) {
	m := newModel(context.Background(), &fakeBackend{}, true)
	m, _ = enter(t, m, "first")
	entries := len(m.log)

	m, cmd := enter(t, m, "second")
	if cmd != nil || len(m.log) != entries {
		t.Error("second message accepted while a reply is pending")
	}
}

func TestReplyError(t *testing.T) {
	backend := &fakeBackend{err: errors.New("server unreachable")}
	m := newModel(context.Background(), backend, false)
	m, _ = enter(t, m, "hello")

	updated, _ := m.Update(sendCmd(m.ctx, backend, "hello")())
	m = updated.(model)

	if m.sending || m.errMsg != "server unreachable" {
		t.Errorf("sending=%v err=%q", m.sending, m.errMsg)
	}
	if !strings.Contains(m.View(), "server unreachable") {
		t.Error("error not rendered")
	}
}

func TestBreathingOfferOncePerDistress(t *testing.T) {
	backend := &fakeBackend{reply: client.Reply{Message: "That sounds scary.", Mood: mood.Anxious}}
	m := newModel(context.Background(), backend, true)

	m, _ = enter(t, m, "I'm so anxious about tomorrow")
	updated, _ := m.Update(sendCmd(m.ctx, backend, "")())
	m = updated.(model)

	var offers []offerMsg
	for _, msg := range drain(m) {
		if o, ok := msg.(offerMsg); ok {
			offers = append(offers, o)
		}
	}
	if len(offers) != 1 || offers[0].prompt != client.BreathingPrompt {
		t.Fatalf("offers = %+v", offers)
	}

	updated, _ = m.Update(offers[0])
	m = updated.(model)
	if e := lastEntry(m); e.Role != roleNotice || e.Text != client.BreathingPrompt {
		t.Errorf("last entry = %+v", e)
	}
}

func TestCommands(t *testing.T) {
	backend := &fakeBackend{}
	m := newModel(context.Background(), backend, true)

	m, _ = enter(t, m, "/env ocean")
	m, _ = enter(t, m, "/mood sad")
	m, _ = enter(t, m, "/mood ecstatic")

	if len(backend.envs) != 1 || backend.envs[0] != "ocean" {
		t.Errorf("environments = %v", backend.envs)
	}
	if len(backend.moods) != 1 || backend.moods[0] != mood.Sad {
		t.Errorf("moods = %v", backend.moods)
	}
	if !strings.Contains(m.errMsg, "ecstatic") {
		t.Errorf("err = %q", m.errMsg)
	}
	if len(backend.sent) != 0 || m.sending {
		t.Error("commands should not reach the companion")
	}

	_, cmd := enter(t, m, "/quit")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}

func TestServerEvents(t *testing.T) {
	m := newModel(context.Background(), &fakeBackend{}, true)

	steps := []tea.Msg{
		typingMsg{},
		systemMsg{protocol.System{Message: "Reminder: drink water"}},
		environmentMsg{protocol.EnvironmentChange{Environment: "rain", ChangedBy: "other"}},
		disconnectMsg{errors.New("closed")},
	}
	for _, msg := range steps {
		updated, _ := m.Update(msg)
		m = updated.(model)
	}

	if !m.typing {
		t.Error("typing indicator not set")
	}
	if m.environment != "rain" || m.online {
		t.Errorf("environment=%q online=%v", m.environment, m.online)
	}

	var texts []string
	for _, e := range m.log {
		texts = append(texts, e.Text)
	}
	joined := strings.Join(texts, "\n")
	for _, want := range []string{"Reminder: drink water", "rain", "Connection lost"} {
		if !strings.Contains(joined, want) {
			t.Errorf("log missing %q", want)
		}
	}
}

func TestQuitKey(t *testing.T) {
	m := newModel(context.Background(), &fakeBackend{}, true)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected QuitMsg")
	}
}
