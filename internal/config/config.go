package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bowerhall/bubble/internal/llm"
	"github.com/bowerhall/bubble/internal/logger"
)

func Load() (*Config, error) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	dbPath := os.Getenv("BUBBLE_DB")
	if dbPath == "" {
		dbPath = "bubble.db"
	}

	timezone := os.Getenv("TZ")
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, fmt.Errorf("invalid TZ %q: %w", timezone, err)
	}

	llmConfig, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	historyConfig, err := loadHistoryConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:         port,
		DBPath:       dbPath,
		PersonaPath:  os.Getenv("BUBBLE_PERSONA"),
		Environments: os.Getenv("BUBBLE_ENVIRONMENTS"),
		Timezone:     timezone,
		LLM:          llmConfig,
		History:      historyConfig,
		Session:      loadSessionConfig(),
		Budget:       loadBudgetConfig(),
		Storage:      loadStorageConfig(),
		Bots:         loadMultiBotConfig(),
		Alerts: AlertConfig{
			Cooldown: durationEnv("ALERT_COOLDOWN", 10*time.Minute),
		},
	}, nil
}

func loadStorageConfig() StorageConfig {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "minio:9000"
	}

	accessKey := os.Getenv("MINIO_ACCESS_KEY")
	secretKey := os.Getenv("MINIO_SECRET_KEY")

	schedule := os.Getenv("BACKUP_SCHEDULE")
	if schedule == "" {
		schedule = "0 3 * * *"
	}

	keep := 7
	if n, err := strconv.Atoi(os.Getenv("BACKUP_KEEP")); err == nil && n > 0 {
		keep = n
	}

	return StorageConfig{
		Enabled:   accessKey != "" && secretKey != "",
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
		UseSSL:    os.Getenv("MINIO_USE_SSL") == "true",
		Bucket:    os.Getenv("MINIO_BUCKET"),
		Schedule:  schedule,
		Keep:      keep,
	}
}

func loadBudgetConfig() BudgetConfig {
	enabled := os.Getenv("BUDGET_ENABLED") == "true"

	dailyLimit := 100000 // default 100k tokens
	if limit, err := strconv.Atoi(os.Getenv("BUDGET_DAILY_LIMIT")); err == nil && limit > 0 {
		dailyLimit = limit
	}

	warnAt := 0.8 // default 80%
	if warn, err := strconv.ParseFloat(os.Getenv("BUDGET_WARN_AT"), 64); err == nil && warn > 0 && warn < 1 {
		warnAt = warn
	}

	return BudgetConfig{
		Enabled:    enabled,
		DailyLimit: dailyLimit,
		WarnAt:     warnAt,
	}
}

func loadMultiBotConfig() MultiBot {
	telegramToken := os.Getenv("TELEGRAM_TOKEN")
	discordToken := os.Getenv("DISCORD_TOKEN")

	return MultiBot{
		Telegram: BotInstance{
			Enabled: telegramToken != "",
			Token:   telegramToken,
		},
		Discord: BotInstance{
			Enabled: discordToken != "",
			Token:   discordToken,
		},
	}
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		PingInterval: durationEnv("PING_INTERVAL", 30*time.Second),
		Resume:       os.Getenv("SESSION_RESUME") == "true",
	}
}

func loadHistoryConfig() (HistoryConfig, error) {
	driver := os.Getenv("HISTORY_DRIVER")
	if driver == "" {
		driver = "memory"
	}

	switch driver {
	case "memory", "sqlite":
	case "redis":
		if os.Getenv("REDIS_URL") == "" {
			return HistoryConfig{}, fmt.Errorf("REDIS_URL not set")
		}
	default:
		return HistoryConfig{}, fmt.Errorf("unknown HISTORY_DRIVER: %s", driver)
	}

	maxTurns := 10
	if n, err := strconv.Atoi(os.Getenv("HISTORY_MAX")); err == nil && n > 0 {
		maxTurns = n
	}

	return HistoryConfig{
		Driver:   driver,
		MaxTurns: maxTurns,
		IdleTTL:  durationEnv("HISTORY_IDLE_TTL", 24*time.Hour),
		RedisURL: os.Getenv("REDIS_URL"),
	}, nil
}

func loadLLMConfig() (LLMConfig, error) {
	provider := os.Getenv("LLM_PROVIDER")
	if provider == "" {
		provider = "openai"
	}

	if !llm.IsKnownProvider(provider) {
		return LLMConfig{}, fmt.Errorf("unknown provider: %s", provider)
	}

	// a missing key is not fatal: every reply falls back to the response bank
	apiKey := getAPIKey(provider, "LLM")
	if apiKey == "" {
		logger.Warn("no api key configured, replies will use fallbacks", "provider", provider, "env", EnvKeyForProvider(provider))
	}

	temperature := 0.7
	if t, err := strconv.ParseFloat(os.Getenv("LLM_TEMPERATURE"), 64); err == nil && t >= 0 && t <= 2 {
		temperature = t
	}

	maxTokens := 250
	if n, err := strconv.Atoi(os.Getenv("LLM_MAX_TOKENS")); err == nil && n > 0 {
		maxTokens = n
	}

	return LLMConfig{
		Provider:    provider,
		APIKey:      apiKey,
		Model:       os.Getenv("LLM_MODEL"),
		BaseURL:     os.Getenv("LLM_BASE_URL"),
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Timeout:     durationEnv("LLM_TIMEOUT", 30*time.Second),
	}, nil
}

func getAPIKey(provider, prefix string) string {
	if key := os.Getenv(prefix + "_API_KEY"); key != "" {
		return key
	}

	if provider == "ollama" {
		return "ollama"
	}
	return os.Getenv(EnvKeyForProvider(provider))
}

// EnvKeyForProvider names the provider-specific API key variable.
func EnvKeyForProvider(provider string) string {
	switch provider {
	case "claude":
		return "ANTHROPIC_API_KEY"
	case "ollama":
		return ""
	default:
		return strings.ToUpper(provider) + "_API_KEY"
	}
}

func durationEnv(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}
