package testutil

import (
	"fmt"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/models"
)

// SampleConfig returns a test configuration
func SampleConfig() *config.Config {
	return &config.Config{
		OpenAIAPIKey:     "test-openai-key",
		AnthropicAPIKey:  "test-anthropic-key",
		PerplexityAPIKey: "test-perplexity-key",
		Providers:        []string{"openai", "anthropic", "perplexity"},
		Pipeline: config.PipelineConfig{
			BatchSize:          10,
			StaggerMs:          1500,
			InterBatchDelayMs:  10000,
			RetryDefaultWaitMs: 60000,
		},
	}
}

// SamplePrompts returns n test prompts with sequential ids
func SamplePrompts(n int) []models.Prompt {
	prompts := make([]models.Prompt, n)
	for i := range prompts {
		prompts[i] = models.Prompt{
			ID:   fmt.Sprintf("prompt-%d", i+1),
			Text: sampleQuestion(i),
		}
	}
	return prompts
}

func sampleQuestion(i int) string {
	questions := []string{
		"What are the best observability platforms?",
		"Which CRM should a small business pick?",
		"What tools do teams use for incident response?",
	}
	return questions[i%len(questions)]
}

// SampleProviderList returns descriptors for two test providers
func SampleProviderList() []models.ProviderDescriptor {
	return []models.ProviderDescriptor{
		{ID: "p1", Name: "Provider One", Capabilities: models.ProviderCapabilities{WebSearch: true}},
		{ID: "p2", Name: "Provider Two"},
	}
}
