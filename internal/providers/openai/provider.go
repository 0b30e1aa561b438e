package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
	"github.com/brandlens/brandlens-workflows/services"
)

const (
	defaultModel = "gpt-4.1"
	responsesURL = "https://api.openai.com/v1/responses"
)

// Provider implements the AIProvider interface for OpenAI
type Provider struct {
	client      *openai.Client
	httpClient  *http.Client
	model       string
	apiKey      string
	costService services.CostService
}

// NewProvider creates a new OpenAI provider
func NewProvider(cfg *config.Config, model string, costService services.CostService) *Provider {
	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIAPIKey),
	)

	if model == "" {
		model = defaultModel
	}

	return &Provider{
		client:      &client,
		httpClient:  &http.Client{},
		model:       model,
		apiKey:      cfg.OpenAIAPIKey,
		costService: costService,
	}
}

func (p *Provider) GetProviderName() string {
	return "openai"
}

func (p *Provider) SupportsWebSearch() bool {
	return true
}

// answerEnvelope mirrors common.AnswerEnvelope with schema descriptions for
// strict structured outputs.
type answerEnvelope struct {
	Answer         string              `json:"answer" jsonschema_description:"The full answer to the question"`
	BrandMentioned bool                `json:"brand_mentioned" jsonschema_description:"Whether the target brand appears in the answer"`
	BrandPosition  *int                `json:"brand_position" jsonschema_description:"Order of first mention of the target brand, null if absent"`
	Sentiment      string              `json:"sentiment" jsonschema:"enum=positive,enum=neutral,enum=negative,enum=mixed" jsonschema_description:"Sentiment toward the target brand"`
	Confidence     string              `json:"confidence" jsonschema:"enum=high,enum=medium,enum=low" jsonschema_description:"Confidence in the answer accuracy"`
	Competitors    []competitorEntry   `json:"competitors" jsonschema_description:"Watched competitors that appear in the answer"`
	Rankings       []common.RawRanking `json:"rankings" jsonschema_description:"Ordered list entries when the answer ranks companies"`
}

type competitorEntry struct {
	Name           string   `json:"name" jsonschema_description:"Competitor name as listed in the prompt"`
	Position       *int     `json:"position" jsonschema_description:"Order of first mention, null if unclear"`
	SentimentScore *float64 `json:"sentiment_score" jsonschema_description:"Sentiment toward this competitor, 0-100"`
}

// Generate the JSON schema at initialization time
var answerEnvelopeSchema = generateSchema[answerEnvelope]()

func generateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func (p *Provider) Invoke(ctx context.Context, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	if opts.WebSearch {
		return p.runWebSearch(ctx, promptText)
	}
	return p.runStructured(ctx, promptText, opts)
}

// runStructured asks for the answer envelope through strict structured outputs.
func (p *Provider) runStructured(ctx context.Context, promptText string, opts common.InvokeOptions) (*common.RawResponse, error) {
	prompt := common.BuildMonitorPrompt(promptText, opts.BrandName, opts.Competitors)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "monitor_answer",
		Description: openai.String("Structured answer with brand and competitor mention reporting"),
		Schema:      answerEnvelopeSchema,
		Strict:      openai.Bool(true),
	}

	response, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a helpful assistant that provides accurate, comprehensive answers to industry questions."),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(p.model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(2000),
	})
	if err != nil {
		return nil, p.wrapError(err)
	}

	if len(response.Choices) == 0 {
		return nil, &common.ProviderError{
			Provider: p.GetProviderName(),
			Message:  "no response choices returned",
		}
	}

	envelope, ok := common.ParseAnswerEnvelope(response.Choices[0].Message.Content)
	if !ok {
		// Strict mode should make this unreachable, but never fail the run on it
		envelope = &common.AnswerEnvelope{Answer: response.Choices[0].Message.Content}
	}

	raw := envelope.ToRawResponse(nil, nil)
	raw.InputTokens = int(response.Usage.PromptTokens)
	raw.OutputTokens = int(response.Usage.CompletionTokens)
	raw.Cost = p.costService.CalculateCost(p.GetProviderName(), p.model, raw.InputTokens, raw.OutputTokens, false)

	return raw, nil
}

// Web search request/response structures for the OpenAI responses API
type webSearchRequest struct {
	Model string          `json:"model"`
	Tools []webSearchTool `json:"tools"`
	Input string          `json:"input"`
}

type webSearchTool struct {
	Type string `json:"type"`
}

type webSearchResponse struct {
	ID     string                `json:"id"`
	Object string                `json:"object"`
	Status string                `json:"status"`
	Output []webSearchOutputItem `json:"output"`
	Usage  webSearchUsage        `json:"usage"`
}

type webSearchOutputItem struct {
	ID      string             `json:"id"`
	Type    string             `json:"type"`
	Status  string             `json:"status,omitempty"`
	Content []webSearchContent `json:"content,omitempty"`
}

type webSearchContent struct {
	Type        string                `json:"type"`
	Text        string                `json:"text,omitempty"`
	Annotations []webSearchAnnotation `json:"annotations,omitempty"`
}

type webSearchAnnotation struct {
	Type       string `json:"type"`
	StartIndex int    `json:"start_index"`
	EndIndex   int    `json:"end_index"`
	Title      string `json:"title,omitempty"`
	URL        string `json:"url,omitempty"`
}

type webSearchUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// runWebSearch uses OpenAI's web search API directly. The answer is free text;
// url_citation annotations become the raw citation list and mention tagging
// happens downstream.
func (p *Provider) runWebSearch(ctx context.Context, promptText string) (*common.RawResponse, error) {
	requestBody := webSearchRequest{
		Model: p.model,
		Tools: []webSearchTool{{Type: "web_search_preview"}},
		Input: promptText,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", responsesURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("failed to create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("web search request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, &common.ProviderError{
			Provider:   p.GetProviderName(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Message:    fmt.Sprintf("web search API returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var webResp webSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&webResp); err != nil {
		return nil, &common.ProviderError{Provider: p.GetProviderName(), Message: fmt.Sprintf("failed to decode web search response: %v", err)}
	}

	responseText := ""
	var citations []common.RawCitation
	for _, output := range webResp.Output {
		if output.Type != "message" {
			continue
		}
		for _, content := range output.Content {
			if content.Type != "output_text" {
				continue
			}
			if responseText == "" {
				responseText = content.Text
			}
			for _, annotation := range content.Annotations {
				if annotation.Type == "url_citation" && annotation.URL != "" {
					citations = append(citations, common.RawCitation{
						URL:   annotation.URL,
						Title: annotation.Title,
					})
				}
			}
		}
	}

	if responseText == "" {
		return nil, &common.ProviderError{
			Provider: p.GetProviderName(),
			Message:  "no message content found in web search response",
		}
	}

	return &common.RawResponse{
		Response:     responseText,
		Citations:    citations,
		InputTokens:  webResp.Usage.InputTokens,
		OutputTokens: webResp.Usage.OutputTokens,
		Cost:         p.costService.CalculateCost(p.GetProviderName(), p.model, webResp.Usage.InputTokens, webResp.Usage.OutputTokens, true),
	}, nil
}

func (p *Provider) wrapError(err error) error {
	providerErr := &common.ProviderError{
		Provider: p.GetProviderName(),
		Message:  err.Error(),
	}

	var apiErr *openai.Error
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
