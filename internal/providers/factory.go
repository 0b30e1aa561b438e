package providers

import (
	"fmt"
	"strings"

	"github.com/brandlens/brandlens-workflows/internal/config"
	anthropicprovider "github.com/brandlens/brandlens-workflows/internal/providers/anthropic"
	openaiprovider "github.com/brandlens/brandlens-workflows/internal/providers/openai"
	perplexityprovider "github.com/brandlens/brandlens-workflows/internal/providers/perplexity"
	"github.com/brandlens/brandlens-workflows/services"
)

// NewProvider creates the appropriate AI provider for a provider id. Model
// names are accepted too ("claude-sonnet-4", "gpt-4.1", "sonar") so operators
// can pin a specific model per provider through PROVIDERS.
func NewProvider(providerID string, cfg *config.Config, costService services.CostService) (AIProvider, error) {
	id := strings.ToLower(providerID)

	if id == "openai" || strings.Contains(id, "gpt") {
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key is empty in config")
		}
		model := ""
		if id != "openai" {
			model = providerID
		}
		return openaiprovider.NewProvider(cfg, model, costService), nil
	}

	if id == "anthropic" || strings.Contains(id, "claude") || strings.Contains(id, "sonnet") ||
		strings.Contains(id, "opus") || strings.Contains(id, "haiku") {
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key is empty in config")
		}
		model := ""
		if id != "anthropic" {
			model = providerID
		}
		return anthropicprovider.NewProvider(cfg, model, costService), nil
	}

	if id == "perplexity" || strings.Contains(id, "sonar") {
		if cfg.PerplexityAPIKey == "" {
			return nil, fmt.Errorf("Perplexity API key is empty in config")
		}
		model := ""
		if id != "perplexity" {
			model = providerID
		}
		return perplexityprovider.NewProvider(cfg, model, costService), nil
	}

	return nil, fmt.Errorf("unsupported provider: %s", providerID)
}
