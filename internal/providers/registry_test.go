package providers_test

import (
	"testing"

	"github.com/brandlens/brandlens-workflows/internal/providers"
)

func TestListConfiguredPreservesOrder(t *testing.T) {
	descriptors, err := providers.ListConfigured([]string{"perplexity", "openai", "anthropic"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"perplexity", "openai", "anthropic"}
	if len(descriptors) != len(want) {
		t.Fatalf("Expected %d descriptors, got %d", len(want), len(descriptors))
	}
	for i, id := range want {
		if descriptors[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, descriptors[i].ID)
		}
	}
}

func TestListConfiguredCapabilities(t *testing.T) {
	descriptors, err := providers.ListConfigured([]string{"openai", "anthropic", "perplexity"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	webSearch := map[string]bool{}
	for _, d := range descriptors {
		webSearch[d.ID] = d.Capabilities.WebSearch
	}

	if !webSearch["openai"] {
		t.Error("Expected openai to support web search")
	}
	if webSearch["anthropic"] {
		t.Error("Expected anthropic to not support web search")
	}
	if !webSearch["perplexity"] {
		t.Error("Expected perplexity to support web search")
	}
}

func TestListConfiguredRejectsUnknownID(t *testing.T) {
	if _, err := providers.ListConfigured([]string{"openai", "copilot"}); err == nil {
		t.Error("Expected error for unknown provider id")
	}
}

func TestListConfiguredIsCaseInsensitive(t *testing.T) {
	descriptors, err := providers.ListConfigured([]string{"OpenAI"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if descriptors[0].ID != "openai" {
		t.Errorf("Expected canonical id openai, got %s", descriptors[0].ID)
	}
}

func TestIsKnown(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"openai", true},
		{"Anthropic", true},
		{"perplexity", true},
		{"gemini", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := providers.IsKnown(tt.id); got != tt.want {
			t.Errorf("IsKnown(%q) = %t, want %t", tt.id, got, tt.want)
		}
	}
}
