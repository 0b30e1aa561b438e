package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
	"github.com/brandlens/brandlens-workflows/services"
)

const defaultModel = "claude-sonnet-4-20250514"

// Provider implements the AIProvider interface for Anthropic
type Provider struct {
	client      *anthropic.Client
	model       string
	costService services.CostService
}

// NewProvider creates a new Anthropic provider
func NewProvider(cfg *config.Config, model string, costService services.CostService) *Provider {
	client := anthropic.NewClient(
		option.WithAPIKey(cfg.AnthropicAPIKey),
	)

	if model == "" {
		model = defaultModel
	}

	return &Provider{
		client:      &client,
		model:       model,
		costService: costService,
	}
}

func (p *Provider) GetProviderName() string {
	return "anthropic"
}

// SupportsWebSearch returns false; Anthropic answers from model knowledge here
func (p *Provider) SupportsWebSearch() bool {
	return false
}

func (p *Provider) Invoke(ctx context.Context, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	prompt := common.BuildMonitorPrompt(promptText, opts.BrandName, opts.Competitors)

	messages := []anthropic.MessageParam{{
		Content: []anthropic.ContentBlockParamUnion{{
			OfText: &anthropic.TextBlockParam{Text: prompt},
		}},
		Role: anthropic.MessageParamRoleUser,
	}}

	response, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   2000,
		Messages:    messages,
		Temperature: anthropic.Float(0.7),
	})
	if err != nil {
		return nil, p.wrapError(err)
	}

	fullResponse := p.extractResponseText(*response)

	raw := p.convertAnswer(fullResponse)
	raw.InputTokens = int(response.Usage.InputTokens)
	raw.OutputTokens = int(response.Usage.OutputTokens)
	raw.Cost = p.costService.CalculateCost(p.GetProviderName(), p.model, raw.InputTokens, raw.OutputTokens, false)

	return raw, nil
}

// convertAnswer maps the structured envelope into the raw payload; if the
// model ignored the JSON instructions, the verbatim text is kept so the run
// still produces a usable response.
func (p *Provider) convertAnswer(fullResponse string) *common.RawResponse {
	envelope, ok := common.ParseAnswerEnvelope(fullResponse)
	if !ok {
		fmt.Printf("[AnthropicProvider] ⚠️ Response was not valid envelope JSON, keeping raw text\n")
		return &common.RawResponse{Response: fullResponse}
	}
	return envelope.ToRawResponse(nil, nil)
}

func (p *Provider) extractResponseText(response anthropic.Message) string {
	var textParts []string

	for _, block := range response.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			textParts = append(textParts, variant.Text)
		}
	}

	return strings.Join(textParts, "")
}

// wrapError converts SDK failures into *common.ProviderError, preserving the
// status code and response headers the retry layer reads.
func (p *Provider) wrapError(err error) error {
	providerErr := &common.ProviderError{
		Provider: p.GetProviderName(),
		Message:  err.Error(),
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		providerErr.StatusCode = apiErr.StatusCode
		if apiErr.Response != nil {
			providerErr.Header = apiErr.Response.Header
		}
	}
	if providerErr.Header == nil {
		providerErr.Header = http.Header{}
	}

	return providerErr
}
