package bot

import "fmt"

func New(cfg Config, responder Responder) (Bot, error) {
	switch cfg.Provider {
	case "telegram":
		return NewTelegram(cfg.Token, responder)
	case "discord":
		return NewDiscord(cfg.Token, responder)
	default:
		return nil, fmt.Errorf("unknown bot provider: %s", cfg.Provider)
	}
}

func NewTelegram(token string, responder Responder) (Bot, error) {
	return newTelegram(token, responder)
}

func NewDiscord(token string, responder Responder) (Bot, error) {
	return newDiscord(token, responder)
}
