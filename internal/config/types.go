package config

import "time"

type Config struct {
	Port         string
	DBPath       string
	PersonaPath  string
	Environments string
	Timezone     string
	LLM          LLMConfig
	History      HistoryConfig
	Session      SessionConfig
	Budget       BudgetConfig
	Storage      StorageConfig
	Bots         MultiBot
	Alerts       AlertConfig
}

type LLMConfig struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

type HistoryConfig struct {
	Driver   string
	MaxTurns int
	IdleTTL  time.Duration
	RedisURL string
}

type SessionConfig struct {
	PingInterval time.Duration
	Resume       bool
}

type BudgetConfig struct {
	Enabled    bool
	DailyLimit int
	WarnAt     float64
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Schedule  string
	Keep      int
}

type BotInstance struct {
	Enabled bool
	Token   string
}

type MultiBot struct {
	Telegram BotInstance
	Discord  BotInstance
}

type AlertConfig struct {
	Cooldown time.Duration
}
