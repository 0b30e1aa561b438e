package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
	"github.com/brandlens/brandlens-workflows/services"
)

const defaultModel = "sonar"

// Provider implements the AIProvider interface for Perplexity. There is no
// official Go SDK, so this talks to the chat completions API directly.
type Provider struct {
	BaseURL     string
	apiKey      string
	model       string
	costService services.CostService
	httpClient  *http.Client
}

// NewProvider creates a new Perplexity provider
func NewProvider(cfg *config.Config, model string, costService services.CostService) *Provider {
	if model == "" {
		model = defaultModel
	}

	return &Provider{
		BaseURL:     "https://api.perplexity.ai",
		apiKey:      cfg.PerplexityAPIKey,
		model:       model,
		costService: costService,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

func (p *Provider) GetProviderName() string {
	return "perplexity"
}

// SupportsWebSearch returns true; Perplexity always answers from live search
func (p *Provider) SupportsWebSearch() bool {
	return true
}

// Chat completions request/response structures
type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID            string         `json:"id"`
	Model         string         `json:"model"`
	Citations     []string       `json:"citations,omitempty"`
	SearchResults []searchResult `json:"search_results,omitempty"`
	Choices       []chatChoice   `json:"choices"`
	Usage         chatUsage      `json:"usage"`
}

type searchResult struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date,omitempty"`
}

type chatChoice struct {
	Index   int `json:"index"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	FinishReason string `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (p *Provider) Invoke(ctx context.Context, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: "Answer the question the way you would for any user researching the topic. Be specific about companies and products."},
			{Role: "user", Content: promptText},
		},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", p.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &common.ProviderError{
			Provider:   p.GetProviderName(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Message:    fmt.Sprintf("Perplexity API returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("failed to decode response: %v", err)}
	}

	if len(chatResp.Choices) == 0 {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: "no choices in Perplexity response"}
	}

	raw := &common.RawResponse{
		Response:     chatResp.Choices[0].Message.Content,
		Citations:    p.collectCitations(&chatResp),
		Sources:      p.collectSources(&chatResp),
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
		Cost:         p.costService.CalculateCost(p.GetProviderName(), p.model, chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens, true),
	}

	return raw, nil
}

// collectCitations merges the bare citation URL list with the richer
// search_results entries, preferring titles when both carry the same URL.
func (p *Provider) collectCitations(resp *chatResponse) []common.RawCitation {
	titles := make(map[string]string, len(resp.SearchResults))
	for _, sr := range resp.SearchResults {
		titles[sr.URL] = sr.Title
	}

	seen := make(map[string]bool)
	var citations []common.RawCitation
	for _, url := range resp.Citations {
		if url == "" || seen[url] {
			continue
		}
		seen[url] = true
		citations = append(citations, common.RawCitation{
			URL:   url,
			Title: titles[url],
		})
	}
	for _, sr := range resp.SearchResults {
		if sr.URL == "" || seen[sr.URL] {
			continue
		}
		seen[sr.URL] = true
		citations = append(citations, common.RawCitation{
			URL:   sr.URL,
			Title: sr.Title,
		})
	}
	return citations
}

func (p *Provider) collectSources(resp *chatResponse) []common.RawSource {
	var sources []common.RawSource
	for _, sr := range resp.SearchResults {
		if sr.URL == "" {
			continue
		}
		sources = append(sources, common.RawSource{
			URL:   sr.URL,
			Title: sr.Title,
		})
	}
	return sources
}
