package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BUBBLE_DB", "BUBBLE_PERSONA", "BUBBLE_ENVIRONMENTS", "TZ",
		"LLM_PROVIDER", "LLM_MODEL", "LLM_BASE_URL", "LLM_API_KEY",
		"LLM_TEMPERATURE", "LLM_MAX_TOKENS", "LLM_TIMEOUT",
		"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY",
		"HISTORY_DRIVER", "HISTORY_MAX", "HISTORY_IDLE_TTL", "REDIS_URL",
		"PING_INTERVAL", "SESSION_RESUME",
		"BUDGET_ENABLED", "BUDGET_DAILY_LIMIT", "BUDGET_WARN_AT",
		"MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET",
		"BACKUP_SCHEDULE", "BACKUP_KEEP",
		"TELEGRAM_TOKEN", "DISCORD_TOKEN", "ALERT_COOLDOWN",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "5000" {
		t.Errorf("port = %s, want 5000", cfg.Port)
	}
	if cfg.DBPath != "bubble.db" {
		t.Errorf("db = %s, want bubble.db", cfg.DBPath)
	}
	if cfg.Timezone != "UTC" {
		t.Errorf("timezone = %s, want UTC", cfg.Timezone)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %s, want openai", cfg.LLM.Provider)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("expected empty api key, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Temperature != 0.7 || cfg.LLM.MaxTokens != 250 {
		t.Errorf("unexpected options: %v %d", cfg.LLM.Temperature, cfg.LLM.MaxTokens)
	}
	if cfg.LLM.Timeout != 30*time.Second {
		t.Errorf("timeout = %v", cfg.LLM.Timeout)
	}
	if cfg.History.Driver != "memory" || cfg.History.MaxTurns != 10 {
		t.Errorf("unexpected history config: %+v", cfg.History)
	}
	if cfg.History.IdleTTL != 24*time.Hour {
		t.Errorf("idle ttl = %v", cfg.History.IdleTTL)
	}
	if cfg.Session.PingInterval != 30*time.Second || cfg.Session.Resume {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if cfg.Budget.Enabled || cfg.Budget.DailyLimit != 100000 {
		t.Errorf("unexpected budget config: %+v", cfg.Budget)
	}
	if cfg.Storage.Enabled {
		t.Error("storage should be disabled without credentials")
	}
	if cfg.Bots.Telegram.Enabled || cfg.Bots.Discord.Enabled {
		t.Error("bots should be disabled without tokens")
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8080")
	t.Setenv("LLM_PROVIDER", "claude")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("LLM_MAX_TOKENS", "400")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("HISTORY_DRIVER", "sqlite")
	t.Setenv("HISTORY_MAX", "8")
	t.Setenv("PING_INTERVAL", "10s")
	t.Setenv("SESSION_RESUME", "true")
	t.Setenv("MINIO_ACCESS_KEY", "a")
	t.Setenv("MINIO_SECRET_KEY", "b")
	t.Setenv("BACKUP_KEEP", "3")
	t.Setenv("TELEGRAM_TOKEN", "tg")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("port = %s", cfg.Port)
	}
	if cfg.LLM.APIKey != "sk-ant" {
		t.Errorf("api key = %q, want sk-ant", cfg.LLM.APIKey)
	}
	if cfg.LLM.Temperature != 0.2 || cfg.LLM.MaxTokens != 400 || cfg.LLM.Timeout != 5*time.Second {
		t.Errorf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.History.Driver != "sqlite" || cfg.History.MaxTurns != 8 {
		t.Errorf("unexpected history config: %+v", cfg.History)
	}
	if cfg.Session.PingInterval != 10*time.Second || !cfg.Session.Resume {
		t.Errorf("unexpected session config: %+v", cfg.Session)
	}
	if !cfg.Storage.Enabled || cfg.Storage.Keep != 3 {
		t.Errorf("unexpected storage config: %+v", cfg.Storage)
	}
	if !cfg.Bots.Telegram.Enabled || cfg.Bots.Discord.Enabled {
		t.Errorf("unexpected bots: %+v", cfg.Bots)
	}
}

func TestLoadPrefersGenericKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_API_KEY", "generic")
	t.Setenv("OPENAI_API_KEY", "specific")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.APIKey != "generic" {
		t.Errorf("api key = %q, want generic", cfg.LLM.APIKey)
	}
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown provider", map[string]string{"LLM_PROVIDER": "nope"}},
		{"unknown history driver", map[string]string{"HISTORY_DRIVER": "etcd"}},
		{"redis without url", map[string]string{"HISTORY_DRIVER": "redis"}},
		{"bad timezone", map[string]string{"TZ": "Mars/Olympus"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestInvalidNumbersKeepDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_TEMPERATURE", "hot")
	t.Setenv("HISTORY_MAX", "-1")
	t.Setenv("PING_INTERVAL", "soon")
	t.Setenv("BUDGET_WARN_AT", "1.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LLM.Temperature != 0.7 {
		t.Errorf("temperature = %v", cfg.LLM.Temperature)
	}
	if cfg.History.MaxTurns != 10 {
		t.Errorf("max turns = %d", cfg.History.MaxTurns)
	}
	if cfg.Session.PingInterval != 30*time.Second {
		t.Errorf("ping interval = %v", cfg.Session.PingInterval)
	}
	if cfg.Budget.WarnAt != 0.8 {
		t.Errorf("warn at = %v", cfg.Budget.WarnAt)
	}
}

func TestEnvKeyForProvider(t *testing.T) {
	tests := []struct {
		provider string
		want     string
	}{
		{"claude", "ANTHROPIC_API_KEY"},
		{"openai", "OPENAI_API_KEY"},
		{"gemini", "GEMINI_API_KEY"},
		{"groq", "GROQ_API_KEY"},
		{"ollama", ""},
	}

	for _, tt := range tests {
		got := EnvKeyForProvider(tt.provider)
		if got != tt.want {
			t.Errorf("EnvKeyForProvider(%s) = %s, want %s", tt.provider, got, tt.want)
		}
	}
}
