package bot

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bowerhall/bubble/internal/companion"
)

// Bot relays a chat platform into the companion.
type Bot interface {
	Name() string
	Start(ctx context.Context) error
	// Notify pushes message to every chat that has talked to the bot and
	// returns how many received it.
	Notify(message string) int
}

// Responder is the part of the companion service a bridge needs.
type Responder interface {
	Respond(ctx context.Context, sessionID, text string) (companion.Response, error)
	EndSession(ctx context.Context, sessionID string)
}

type Config struct {
	Provider string
	Token    string
}

// chatSet remembers the chats seen by a bridge.
type chatSet[K comparable] struct {
	mu    sync.Mutex
	chats map[K]struct{}
}

type telegram struct {
	api       *tgbotapi.BotAPI
	responder Responder
	chats     chatSet[int64]
}

type discord struct {
	session   *discordgo.Session
	responder Responder
	chats     chatSet[string]
	ctx       context.Context
}
