// services/extract_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/brandlens/brandlens-workflows/internal/config"
)

const extractionModel = "gpt-4.1-mini"

type extractService struct {
	cfg          *config.Config
	openAIClient *openai.Client
	costService  CostService
}

// NewExtractService creates the mention-extraction service. It runs a small
// structured-output model over provider answers that came back without
// mention tags.
func NewExtractService(cfg *config.Config) ExtractService {
	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIAPIKey),
	)

	return &extractService{
		cfg:          cfg,
		openAIClient: &client,
		costService:  NewCostService(),
	}
}

// ExtractResponse represents the structured output from OpenAI
type ExtractResponse struct {
	TargetCompany *CompanyExtract  `json:"target_company" jsonschema_description:"The target brand if mentioned in the response, null if not mentioned"`
	Competitors   []CompanyExtract `json:"competitors" jsonschema_description:"Watched competitors mentioned in the response"`
}

// Generate the JSON schema at initialization time
var ExtractResponseSchema = GenerateSchema[ExtractResponse]()

func (s *extractService) ExtractCompanyMentions(ctx context.Context, question string, response string, brandName string, competitors []string) (*ExtractResult, error) {
	prompt := s.buildExtractionPrompt(question, response, brandName, competitors)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "company_extraction",
		Description: openai.String("Extract brand and competitor mentions from an AI answer"),
		Schema:      ExtractResponseSchema,
		Strict:      openai.Bool(true),
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a brand-monitoring analyst. Extract company mentions accurately and comprehensively."),
			openai.UserMessage(prompt),
		},
		Model: openai.ChatModel(extractionModel),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
		},
		Temperature: openai.Float(0.1), // keep low for consistency in extraction
	}

	chatResponse, err := s.openAIClient.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("extraction call failed: %w", err)
	}

	if len(chatResponse.Choices) == 0 {
		return nil, fmt.Errorf("no extraction choices returned")
	}

	var extracted ExtractResponse
	if err := json.Unmarshal([]byte(chatResponse.Choices[0].Message.Content), &extracted); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w", err)
	}

	inputTokens := int(chatResponse.Usage.PromptTokens)
	outputTokens := int(chatResponse.Usage.CompletionTokens)

	return &ExtractResult{
		TargetCompany:  extracted.TargetCompany,
		Competitors:    extracted.Competitors,
		InputTokens:    inputTokens,
		OutputTokens:   outputTokens,
		ExtractionCost: s.costService.CalculateCost("openai", extractionModel, inputTokens, outputTokens, false),
		Timestamp:      time.Now().UTC(),
	}, nil
}

func (s *extractService) buildExtractionPrompt(question, response, brandName string, competitors []string) string {
	competitorList := "none"
	if len(competitors) > 0 {
		competitorList = strings.Join(competitors, ", ")
	}

	return fmt.Sprintf(`An AI assistant was asked the question below and gave the answer below. Identify every mention of the target brand and of the watched competitors.

Target brand: %s
Watched competitors: %s

For each mentioned company report:
- name: exactly as listed above
- rank: order of first appearance in the answer (1 = first)
- mentioned_text: the sentence(s) mentioning the company
- text_sentiment: positive, negative, neutral or mixed

Only report companies from the lists above. If the target brand is absent, return null for target_company.

Question:
%s

Answer:
%s`, brandName, competitorList, question, response)
}
