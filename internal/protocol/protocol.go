// Package protocol defines the JSON envelope exchanged over the /ws socket
// and the HTTP fallback payloads. Every envelope decodes into exactly one
// statically typed variant; anything else is a validation error.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bowerhall/bubble/internal/mood"
)

type Type string

const (
	TypeChat        Type = "chat"
	TypeMood        Type = "mood"
	TypeEnvironment Type = "environment"
	TypeSystem      Type = "system"
)

// StatusTyping is sent while a reply is being generated.
const StatusTyping = "typing"

// Well-known system messages.
const (
	MsgConnected    = "Connected to Bubble WebSocket Server"
	MsgMoodReceived = "Mood update received"
	MsgInvalid      = "Invalid message format"
)

var ErrValidation = errors.New("invalid message format")

// ValidationError describes why an envelope was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid message format: " + e.Reason
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Message is one of the payload variants below.
type Message interface {
	Kind() Type
}

// ChatRequest is sent by a client.
type ChatRequest struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
}

// ChatReply answers the ChatRequest with the same MessageID.
type ChatReply struct {
	Message   string `json:"message"`
	Mood      string `json:"mood"`
	MessageID string `json:"messageId"`
}

type MoodUpdate struct {
	Mood string `json:"mood"`
}

type EnvironmentChange struct {
	Environment string `json:"environment"`
	ChangedBy   string `json:"changedBy,omitempty"`
}

// System carries connect notices, typing status, acks and errors.
type System struct {
	Message  string `json:"message,omitempty"`
	ClientID string `json:"clientId,omitempty"`
	Status   string `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
}

func (ChatRequest) Kind() Type       { return TypeChat }
func (ChatReply) Kind() Type         { return TypeChat }
func (MoodUpdate) Kind() Type        { return TypeMood }
func (EnvironmentChange) Kind() Type { return TypeEnvironment }
func (System) Kind() Type            { return TypeSystem }

// Encode wraps a variant in its envelope.
func Encode(m Message) ([]byte, error) {
	payload, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return json.Marshal(Envelope{Type: m.Kind(), Payload: payload})
}

func parse(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, invalid("bad json: %v", err)
	}
	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return env, invalid("missing payload")
	}
	return env, nil
}

func decodePayload(env Envelope, v any) error {
	if err := json.Unmarshal(env.Payload, v); err != nil {
		return invalid("bad %s payload: %v", env.Type, err)
	}
	return nil
}

// DecodeClient parses an envelope sent from a client to the server.
func DecodeClient(data []byte) (Message, error) {
	env, err := parse(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeChat:
		var m ChatRequest
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		if strings.TrimSpace(m.Message) == "" {
			return nil, invalid("chat message is required")
		}
		if m.MessageID == "" {
			return nil, invalid("chat messageId is required")
		}
		return m, nil
	case TypeMood:
		var m MoodUpdate
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		md, ok := mood.Parse(m.Mood)
		if !ok {
			return nil, invalid("unknown mood %q", m.Mood)
		}
		m.Mood = md.String()
		return m, nil
	case TypeEnvironment:
		var m EnvironmentChange
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		if m.Environment == "" {
			return nil, invalid("environment is required")
		}
		return m, nil
	default:
		return nil, invalid("unsupported type %q", env.Type)
	}
}

// DecodeServer parses an envelope sent from the server to a client.
func DecodeServer(data []byte) (Message, error) {
	env, err := parse(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case TypeChat:
		var m ChatReply
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		if m.MessageID == "" {
			return nil, invalid("chat messageId is required")
		}
		return m, nil
	case TypeSystem:
		var m System
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	case TypeEnvironment:
		var m EnvironmentChange
		if err := decodePayload(env, &m); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, invalid("unsupported type %q", env.Type)
	}
}

// ProcessRequest is the HTTP fallback request body.
type ProcessRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// ProcessResponse is the HTTP fallback reply. Fallback marks a canned answer.
type ProcessResponse struct {
	Response  string `json:"response"`
	Mood      string `json:"mood"`
	SessionID string `json:"sessionId"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// ErrorResponse is the body of every 4xx/5xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
}
