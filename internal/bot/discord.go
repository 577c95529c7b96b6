package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/bowerhall/bubble/internal/logger"
)

func newDiscord(token string, responder Responder) (Bot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages | discordgo.IntentsMessageContent

	d := &discord{
		session:   session,
		responder: responder,
		ctx:       context.Background(),
	}

	session.AddHandler(d.handleMessage)

	return d, nil
}

func (d *discord) Name() string { return "discord" }

func (d *discord) Start(ctx context.Context) error {
	d.ctx = ctx

	if err := d.session.Open(); err != nil {
		return err
	}
	logger.Info("discord bridge started")

	<-ctx.Done()
	return d.session.Close()
}

func (d *discord) Notify(message string) int {
	sent := 0
	for _, channelID := range d.chats.list() {
		if _, err := d.session.ChannelMessageSend(channelID, message); err != nil {
			logger.Error("discord send failed", "error", err, "channelID", channelID)
			continue
		}
		sent++
	}
	return sent
}

func (d *discord) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}

	sessionID := fmt.Sprintf("discord:%s", m.ChannelID)
	logger.Info("message received", "session", sessionID, "text", truncate(m.Content, 50))

	if isResetCommand(m.Content) {
		d.chats.remove(m.ChannelID)
	} else {
		d.chats.add(m.ChannelID)
	}

	if err := s.ChannelTyping(m.ChannelID); err != nil {
		logger.Debug("typing indicator failed", "error", err)
	}

	response := reply(d.ctx, d.responder, sessionID, m.Content)
	if response == "" {
		return
	}

	if _, err := s.ChannelMessageSendReply(m.ChannelID, response, m.Reference()); err != nil {
		logger.Error("discord reply failed", "error", err)
	} else {
		logger.Info("reply sent", "chars", len(response))
	}
}
