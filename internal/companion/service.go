package companion

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bowerhall/bubble/internal/conversation"
	"github.com/bowerhall/bubble/internal/logger"
	"github.com/bowerhall/bubble/internal/mood"
	"github.com/bowerhall/bubble/internal/session"
)

func NewService(gateway Inferrer, history conversation.Store, sessions *session.Registry, bank *mood.Bank) *Service {
	if bank == nil {
		bank = mood.NewBank(nil)
	}
	if sessions == nil {
		sessions = session.NewRegistry()
	}

	return &Service{
		gateway:    gateway,
		history:    history,
		sessions:   sessions,
		bank:       bank,
		classifier: mood.NewKeywordClassifier(),
	}
}

func (s *Service) SetMoodRecorder(r MoodRecorder) {
	s.recorder = r
}

// SetClassifier replaces the classifier used to tag fallback replies.
func (s *Service) SetClassifier(c mood.Classifier) {
	s.classifier = c
}

func (s *Service) Sessions() *session.Registry {
	return s.sessions
}

// Respond runs one chat turn for sessionID. Turns of the same session
// never overlap. Model failures are answered from the fallback bank, so
// the only errors returned are for empty input.
func (s *Service) Respond(ctx context.Context, sessionID, text string) (Response, error) {
	if sessionID == "" {
		return Response{}, ErrNoSession
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Response{}, ErrEmptyMessage
	}

	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	logger.Debug("message received", "session", sessionID)

	s.append(ctx, sessionID, conversation.RoleUser, text)

	turns, err := s.history.Get(ctx, sessionID)
	if err != nil {
		logger.Warn("history read failed, continuing without context", "session", sessionID, "error", err)
		turns = nil
	}

	reply, err := s.gateway.Infer(ctx, text, conversation.Previous(turns))
	resp := Response{Message: reply.Message, Mood: reply.Mood}
	if err != nil {
		var inferErr *InferenceError
		if !errors.As(err, &inferErr) {
			logger.Warn("unexpected gateway error", "session", sessionID, "error", err)
		}
		logger.Info("using fallback reply", "session", sessionID, "error", err)

		m := s.classifier.Classify(text)
		resp = Response{Message: s.bank.Pick(m), Mood: m, Fallback: true}
	}

	s.append(ctx, sessionID, conversation.RoleAssistant, resp.Message)

	return resp, nil
}

func (s *Service) append(ctx context.Context, sessionID, role, text string) {
	turn := conversation.Turn{Role: role, Text: text, CreatedAt: time.Now()}
	if err := s.history.Append(ctx, sessionID, turn); err != nil {
		logger.Warn("history append failed", "session", sessionID, "role", role, "error", err)
	}
}

// RecordMood stores a client-reported mood when a recorder is configured.
func (s *Service) RecordMood(ctx context.Context, sessionID string, m mood.Mood) error {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.RecordMood(ctx, sessionID, m, mood.Value(m))
}

// History returns the stored turns of sessionID.
func (s *Service) History(ctx context.Context, sessionID string) ([]conversation.Turn, error) {
	return s.history.Get(ctx, sessionID)
}

// EndSession discards the history and lock of a closed conversation.
func (s *Service) EndSession(ctx context.Context, sessionID string) {
	if err := s.history.Clear(ctx, sessionID); err != nil {
		logger.Warn("history clear failed", "session", sessionID, "error", err)
	}
	s.sessions.Forget(sessionID)
}

// Sweep drops conversations idle longer than maxIdle.
func (s *Service) Sweep(ctx context.Context, maxIdle time.Duration) (int, error) {
	pruned := s.sessions.Prune(maxIdle)
	removed, err := s.history.Sweep(ctx, maxIdle)
	if err != nil {
		return removed, err
	}
	logger.Debug("idle sweep", "sessions", pruned, "history", removed)
	return removed, nil
}
