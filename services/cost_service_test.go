// services/cost_service_test.go
package services_test

import (
	"math"
	"testing"

	"github.com/brandlens/brandlens-workflows/services"
)

func TestCalculateCost(t *testing.T) {
	costService := services.NewCostService()

	tests := []struct {
		name         string
		provider     string
		model        string
		inputTokens  int
		outputTokens int
		webSearch    bool
		want         float64
	}{
		{
			name:         "gpt-4.1 without web search",
			provider:     "openai",
			model:        "gpt-4.1",
			inputTokens:  1_000_000,
			outputTokens: 1_000_000,
			want:         15.00,
		},
		{
			name:         "sonar with web search",
			provider:     "perplexity",
			model:        "sonar",
			inputTokens:  500_000,
			outputTokens: 500_000,
			webSearch:    true,
			want:         0.5 + 0.5 + 0.008,
		},
		{
			name:         "claude sonnet",
			provider:     "anthropic",
			model:        "claude-sonnet-4-20250514",
			inputTokens:  100_000,
			outputTokens: 10_000,
			want:         0.30 + 0.15,
		},
		{
			name:         "unknown model falls back to gpt-4.1 pricing",
			provider:     "openai",
			model:        "mystery-model",
			inputTokens:  1_000_000,
			outputTokens: 0,
			want:         3.00,
		},
		{
			name:     "zero tokens",
			provider: "openai",
			model:    "gpt-4.1",
			want:     0,
		},
		{
			name:        "openai web search surcharge",
			provider:    "openai",
			model:       "gpt-4.1",
			inputTokens: 0,
			webSearch:   true,
			want:        0.035,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := costService.CalculateCost(tt.provider, tt.model, tt.inputTokens, tt.outputTokens, tt.webSearch)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CalculateCost() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateCostMonotonicInTokens(t *testing.T) {
	costService := services.NewCostService()

	small := costService.CalculateCost("openai", "gpt-4.1", 1_000, 1_000, false)
	large := costService.CalculateCost("openai", "gpt-4.1", 100_000, 100_000, false)

	if large <= small {
		t.Errorf("Expected cost to grow with tokens: %v vs %v", small, large)
	}
}
