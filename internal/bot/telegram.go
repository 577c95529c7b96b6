package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/bowerhall/bubble/internal/logger"
)

func newTelegram(token string, responder Responder) (Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	return &telegram{api: api, responder: responder}, nil
}

func (t *telegram) Name() string { return "telegram" }

func (t *telegram) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := t.api.GetUpdatesChan(u)
	defer t.api.StopReceivingUpdates()

	logger.Info("telegram bridge started", "bot", t.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			go t.handleMessage(ctx, update.Message)
		}
	}
}

func (t *telegram) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	sessionID := fmt.Sprintf("telegram:%d", chatID)
	logger.Info("message received", "session", sessionID, "text", truncate(msg.Text, 50))

	if isResetCommand(msg.Text) {
		t.chats.remove(chatID)
	} else {
		t.chats.add(chatID)
	}

	if _, err := t.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.Debug("typing action failed", "error", err)
	}

	response := reply(ctx, t.responder, sessionID, msg.Text)
	if response == "" {
		return
	}

	out := tgbotapi.NewMessage(chatID, response)
	out.ReplyToMessageID = msg.MessageID

	if _, err := t.api.Send(out); err != nil {
		logger.Error("send failed", "error", err)
	} else {
		logger.Info("reply sent", "chars", len(response))
	}
}

func (t *telegram) Notify(message string) int {
	sent := 0
	for _, chatID := range t.chats.list() {
		if _, err := t.api.Send(tgbotapi.NewMessage(chatID, message)); err != nil {
			logger.Error("proactive send failed", "error", err, "chatID", chatID)
			continue
		}
		sent++
	}
	return sent
}
