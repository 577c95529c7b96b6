package budget

import "strings"

type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// per million tokens
var pricing = map[string]ModelPricing{
	"gpt-3.5-turbo": {0.50, 1.50},
	"gpt-4o":        {2.50, 10.00},
	"gpt-4o-mini":   {0.15, 0.60},

	"claude-3-5-haiku-latest":  {0.80, 4.00},
	"claude-sonnet-4-20250514": {3.00, 15.00},

	"gemini-2.0-flash": {0.10, 0.40},
	"gemini-1.5-flash": {0.075, 0.30},
}

func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := pricing[model]
	if !ok {
		// local ollama tags look like name:size
		if strings.HasPrefix(model, "ollama/") || strings.Contains(model, ":") {
			return 0
		}
		// unknown model, conservative estimate
		p = ModelPricing{5.00, 15.00}
	}

	return float64(inputTokens)/1_000_000*p.InputPerMillion + float64(outputTokens)/1_000_000*p.OutputPerMillion
}
