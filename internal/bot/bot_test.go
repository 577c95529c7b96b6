package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/bowerhall/bubble/internal/companion"
	"github.com/bowerhall/bubble/internal/mood"
)

type fakeResponder struct {
	resp  companion.Response
	err   error
	got   []string
	ended []string
}

func (f *fakeResponder) Respond(ctx context.Context, sessionID, text string) (companion.Response, error) {
	f.got = append(f.got, sessionID+"|"+text)
	return f.resp, f.err
}

func (f *fakeResponder) EndSession(ctx context.Context, sessionID string) {
	f.ended = append(f.ended, sessionID)
}

func TestReply(t *testing.T) {
	r := &fakeResponder{resp: companion.Response{Message: "That sounds hard.", Mood: mood.Sad}}

	got := reply(context.Background(), r, "telegram:42", "  I lost my job  ")
	if got != "That sounds hard.\n\n(mood: sad)" {
		t.Errorf("reply = %q", got)
	}
	if len(r.got) != 1 || r.got[0] != "telegram:42|I lost my job" {
		t.Errorf("responder saw %v", r.got)
	}
}

func TestReplyCommands(t *testing.T) {
	r := &fakeResponder{}
	ctx := context.Background()

	if got := reply(ctx, r, "discord:1", "   "); got != "" {
		t.Errorf("blank input replied %q", got)
	}
	if got := reply(ctx, r, "discord:1", "/start"); got != greeting {
		t.Errorf("start replied %q", got)
	}
	if got := reply(ctx, r, "discord:1", "Start Over"); !strings.Contains(got, "fresh") {
		t.Errorf("reset replied %q", got)
	}
	if len(r.ended) != 1 || r.ended[0] != "discord:1" {
		t.Errorf("ended sessions = %v", r.ended)
	}
	if len(r.got) != 0 {
		t.Errorf("commands reached the responder: %v", r.got)
	}
}

func TestReplyError(t *testing.T) {
	r := &fakeResponder{err: errors.New("boom")}
	if got := reply(context.Background(), r, "telegram:1", "hi"); got != "Something went wrong." {
		t.Errorf("reply = %q", got)
	}
}

func TestIsResetCommand(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"/reset", true},
		{"  RESET ", true},
		{"new conversation", true},
		{"please reset my password", false},
		{"hello", false},
	}

	for _, tt := range tests {
		if got := isResetCommand(tt.text); got != tt.want {
			t.Errorf("isResetCommand(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestChatSet(t *testing.T) {
	var c chatSet[int64]
	c.add(1)
	c.add(2)
	c.add(1)
	c.remove(2)

	if got := c.list(); len(got) != 1 || got[0] != 1 {
		t.Errorf("list = %v", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello world", 5); got != "hello..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("hi", 5); got != "hi" {
		t.Errorf("truncate = %q", got)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Config{Provider: "irc"}, &fakeResponder{}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
