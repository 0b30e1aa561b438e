// services/interfaces.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/invopop/jsonschema"

	"github.com/brandlens/brandlens-workflows/internal/models"
)

// CostService calculates the dollar cost of provider calls
type CostService interface {
	CalculateCost(provider, model string, inputTokens, outputTokens int, webSearch bool) float64
}

// ExtractService pulls company mentions out of untagged provider answers
type ExtractService interface {
	ExtractCompanyMentions(ctx context.Context, question string, response string, brandName string, competitors []string) (*ExtractResult, error)
}

// ExtractResult is the outcome of one mention-extraction call
type ExtractResult struct {
	TargetCompany  *CompanyExtract  `json:"target_company"` // nil if not mentioned
	Competitors    []CompanyExtract `json:"competitors"`
	InputTokens    int              `json:"input_tokens"`
	OutputTokens   int              `json:"output_tokens"`
	ExtractionCost float64          `json:"extraction_cost"`
	Timestamp      time.Time        `json:"timestamp"`
}

// CompanyExtract represents a company mentioned in a response
type CompanyExtract struct {
	Name          string `json:"name"`
	Rank          int    `json:"rank"`           // Order of appearance (1 = first mentioned)
	MentionedText string `json:"mentioned_text"` // All text mentioning this company
	TextSentiment string `json:"text_sentiment"` // positive, negative, neutral, mixed
}

// SaveResultsInput is the whole-run write handed to the persistence adapter.
// PromptResults always replaces the stored value; the analysis/metrics fields
// replace theirs when non-nil.
type SaveResultsInput struct {
	PromptResults      []models.PromptResult
	CitationAnalysis   *models.CitationAnalysis
	CompetitiveMetrics *models.CompetitiveMetrics
	LastRunAt          time.Time
}

// AnalysisService is the persistence adapter for Analysis records
type AnalysisService interface {
	GetLatestAnalysis(ctx context.Context, userID string) (*models.Analysis, error)
	GetAnalysis(ctx context.Context, analysisID uuid.UUID) (*models.Analysis, error)
	CreateAnalysis(ctx context.Context, analysis *models.Analysis) error
	SaveResults(ctx context.Context, analysisID uuid.UUID, input SaveResultsInput) error
	AddPrompt(ctx context.Context, analysisID uuid.UUID, prompt models.Prompt) error
	RemovePrompt(ctx context.Context, analysisID uuid.UUID, promptID string) error
	AddCompetitor(ctx context.Context, analysisID uuid.UUID, name string) error
	RemoveCompetitor(ctx context.Context, analysisID uuid.UUID, name string) error
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// FirecrawlScrapeResult defines the structure of a successful scrape response
type FirecrawlScrapeResult struct {
	Success bool `json:"success"`
	Data    struct {
		Content   string `json:"content"`  // older field for markdown
		Markdown  string `json:"markdown"` // newer field for markdown
		HTML      string `json:"html"`
		SourceURL string `json:"sourceURL"`
		Title     string `json:"title"`
	} `json:"data"`
}

// FirecrawlService defines the interface for interacting with the Firecrawl API
type FirecrawlService interface {
	ScrapeURL(ctx context.Context, urlToScrape string) (*FirecrawlScrapeResult, error)
}

// IngestionService indexes scraped brand site content for the dashboard
type IngestionService interface {
	IndexCompanySite(ctx context.Context, analysisID uuid.UUID, companyURL string) error
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	var zero T
	schema := reflector.Reflect(zero)

	result := map[string]interface{}{
		"type":       "object",
		"properties": schema.Properties,
		"required":   schema.Required,
	}

	if schema.AdditionalProperties != nil {
		result["additionalProperties"] = false
	}

	return result
}
