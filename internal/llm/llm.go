package llm

import (
	"fmt"
	"strings"
	"time"
)

const (
	maxRetries = 3
	baseDelay  = 500 * time.Millisecond
)

// OpenAI-compatible providers and their base URLs
var openAICompatibleProviders = map[string]string{
	"mistral":    "https://api.mistral.ai/v1",
	"groq":       "https://api.groq.com/openai/v1",
	"together":   "https://api.together.xyz/v1",
	"deepseek":   "https://api.deepseek.com/v1",
	"fireworks":  "https://api.fireworks.ai/inference/v1",
	"perplexity": "https://api.perplexity.ai",
}

func New(cfg Config) (LLM, error) {
	switch cfg.Provider {
	case "", "openai":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}

		model := cfg.Model
		if model == "" {
			model = "gpt-3.5-turbo"
		}

		return newOpenAICompatible("openai", cfg.APIKey, baseURL, model, cfg.Timeout), nil
	case "claude":
		return newClaude(cfg.APIKey, cfg.Model, cfg.BaseURL), nil
	case "gemini":
		return newGemini(cfg.APIKey, cfg.Model)
	case "ollama":
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}

		model := cfg.Model
		if model == "" {
			model = "llama3.2"
		}

		// Ollama's OpenAI-compatible endpoint
		return newOpenAICompatible("ollama", "ollama", strings.TrimSuffix(baseURL, "/")+"/v1", model, cfg.Timeout), nil
	default:
		if baseURL, ok := openAICompatibleProviders[cfg.Provider]; ok {
			if cfg.BaseURL != "" {
				baseURL = cfg.BaseURL
			}
			return newOpenAICompatible(cfg.Provider, cfg.APIKey, baseURL, cfg.Model, cfg.Timeout), nil
		}
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// KnownProviders returns all known provider IDs
func KnownProviders() []string {
	providers := []string{"openai", "claude", "gemini", "ollama"}
	for p := range openAICompatibleProviders {
		providers = append(providers, p)
	}
	return providers
}

// IsKnownProvider checks if a provider is recognized
func IsKnownProvider(provider string) bool {
	switch provider {
	case "openai", "claude", "gemini", "ollama":
		return true
	default:
		_, ok := openAICompatibleProviders[provider]
		return ok
	}
}

func isRetryableStatus(code int) bool {
	return code == 429 || code == 529 || code == 503 || code == 502 || code == 500
}
