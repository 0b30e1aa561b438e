package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
	"github.com/brandlens/brandlens-workflows/services"
)

// Invoker resolves provider ids to adapters and fills in mention data the
// provider did not tag itself. It is the pipeline's view of the provider
// layer: one call per (prompt, provider), failures always *common.ProviderError.
type Invoker struct {
	cfg            *config.Config
	costService    services.CostService
	extractService services.ExtractService

	mu       sync.Mutex
	adapters map[string]AIProvider
}

// NewInvoker builds the provider invoker. extractService may be nil, in which
// case untagged answers pass through without enrichment.
func NewInvoker(cfg *config.Config, costService services.CostService, extractService services.ExtractService) *Invoker {
	return &Invoker{
		cfg:            cfg,
		costService:    costService,
		extractService: extractService,
		adapters:       make(map[string]AIProvider),
	}
}

func (v *Invoker) Invoke(ctx context.Context, providerID string, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	adapter, err := v.adapterFor(providerID)
	if err != nil {
		return nil, &common.ProviderError{Provider: providerID, Message: err.Error()}
	}

	raw, err := adapter.Invoke(ctx, promptText, opts)
	if err != nil {
		return nil, err
	}

	v.enrichMentions(ctx, promptText, raw, opts)
	tagRawCitations(raw, opts)

	return raw, nil
}

func (v *Invoker) adapterFor(providerID string) (AIProvider, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if adapter, ok := v.adapters[providerID]; ok {
		return adapter, nil
	}
	adapter, err := NewProvider(providerID, v.cfg, v.costService)
	if err != nil {
		return nil, err
	}
	v.adapters[providerID] = adapter
	return adapter, nil
}

// mentionSentimentScores maps extraction sentiment labels to chart scores.
var mentionSentimentScores = map[string]float64{
	"positive": 80,
	"neutral":  50,
	"negative": 20,
	"mixed":    50,
}

// enrichMentions runs the extraction model over answers that came back as
// plain text (web-search providers return prose, not the structured
// envelope). Extraction failures are logged and swallowed: a response without
// mention tags is still a valid response.
func (v *Invoker) enrichMentions(ctx context.Context, promptText string, raw *common.RawResponse, opts common.InvokeOptions) {
	if v.extractService == nil || raw == nil {
		return
	}
	if raw.BrandMentioned || len(raw.Competitors) > 0 {
		return
	}
	responseText := raw.Response
	if responseText == "" {
		responseText = raw.Text
	}
	if responseText == "" {
		return
	}

	extracted, err := v.extractService.ExtractCompanyMentions(ctx, promptText, responseText, opts.BrandName, opts.Competitors)
	if err != nil {
		fmt.Printf("[ProviderInvoker] ⚠️ Mention extraction failed, keeping untagged response: %v\n", err)
		return
	}

	if extracted.TargetCompany != nil {
		raw.BrandMentioned = true
		if extracted.TargetCompany.Rank > 0 {
			rank := extracted.TargetCompany.Rank
			raw.BrandPosition = &rank
		}
		if raw.Sentiment == "" {
			raw.Sentiment = extracted.TargetCompany.TextSentiment
		}
	}

	for _, competitor := range extracted.Competitors {
		entry := common.RawCompetitor{Name: competitor.Name}
		if competitor.Rank > 0 {
			rank := competitor.Rank
			entry.Position = &rank
		}
		if score, ok := mentionSentimentScores[strings.ToLower(competitor.TextSentiment)]; ok {
			entry.SentimentScore = &score
		}
		raw.Competitors = append(raw.Competitors, entry)
	}

	raw.InputTokens += extracted.InputTokens
	raw.OutputTokens += extracted.OutputTokens
	raw.Cost += extracted.ExtractionCost
}

// tagRawCitations fills MentionedCompanies on untagged citations by matching
// watched company names against the citation's visible text. Citations a
// provider tagged itself are left alone.
func tagRawCitations(raw *common.RawResponse, opts common.InvokeOptions) {
	if raw == nil || len(raw.Citations) == 0 {
		return
	}
	watched := append([]string{opts.BrandName}, opts.Competitors...)

	for i, citation := range raw.Citations {
		if len(citation.MentionedCompanies) > 0 {
			continue
		}
		haystack := strings.ToLower(citation.Title + " " + citation.URL + " " + citation.Source + " " + citation.Domain)
		var companies []string
		for _, name := range watched {
			if name != "" && strings.Contains(haystack, strings.ToLower(name)) {
				companies = append(companies, name)
			}
		}
		raw.Citations[i].MentionedCompanies = companies
	}
}
