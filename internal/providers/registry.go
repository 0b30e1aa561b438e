package providers

import (
	"fmt"
	"strings"

	"github.com/brandlens/brandlens-workflows/internal/models"
)

// knownProviders is the process-wide provider catalog. Order in a run comes
// from configuration, not from this table.
var knownProviders = map[string]models.ProviderDescriptor{
	"openai": {
		ID:           "openai",
		Name:         "OpenAI",
		Capabilities: models.ProviderCapabilities{WebSearch: true},
	},
	"anthropic": {
		ID:           "anthropic",
		Name:         "Anthropic",
		Capabilities: models.ProviderCapabilities{WebSearch: false},
	},
	"perplexity": {
		ID:           "perplexity",
		Name:         "Perplexity",
		Capabilities: models.ProviderCapabilities{WebSearch: true},
	},
}

// ListConfigured resolves the configured provider ids into descriptors,
// preserving configuration order. The order matters: it is the stagger order
// and the result order for every prompt in a run. An empty list is valid here;
// the pipeline rejects it before doing any work.
func ListConfigured(ids []string) ([]models.ProviderDescriptor, error) {
	descriptors := make([]models.ProviderDescriptor, 0, len(ids))
	for _, id := range ids {
		descriptor, ok := knownProviders[strings.ToLower(id)]
		if !ok {
			return nil, fmt.Errorf("unknown provider id: %q", id)
		}
		descriptors = append(descriptors, descriptor)
	}
	return descriptors, nil
}

// IsKnown reports whether an id is in the provider catalog.
func IsKnown(id string) bool {
	_, ok := knownProviders[strings.ToLower(id)]
	return ok
}
