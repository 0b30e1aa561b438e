// internal/models/models.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PromptCategory classifies the intent of a monitoring prompt.
type PromptCategory string

const (
	CategoryRanking         PromptCategory = "ranking"
	CategoryComparison      PromptCategory = "comparison"
	CategoryAlternatives    PromptCategory = "alternatives"
	CategoryRecommendations PromptCategory = "recommendations"
)

// Prompt is a single industry question sent to every configured provider.
// Prompts are immutable once created and owned by an Analysis.
type Prompt struct {
	ID       string         `json:"id"`
	Text     string         `json:"text"`
	TopicID  *string        `json:"topic_id,omitempty"`
	Category PromptCategory `json:"category,omitempty"`
}

// Topic groups prompts on the dashboard side.
type Topic struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProviderCapabilities describes what a provider can do for a run.
type ProviderCapabilities struct {
	WebSearch bool `json:"web_search"`
}

// ProviderDescriptor is the process-wide configuration entry for one AI provider.
// Read-only during a run.
type ProviderDescriptor struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Capabilities ProviderCapabilities `json:"capabilities"`
}

// Source is a web source a provider consulted while answering.
type Source struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
}

// Citation is a source URL returned alongside an answer, tagged with the
// companies the cited page mentions.
type Citation struct {
	URL                string   `json:"url"`
	Title              string   `json:"title,omitempty"`
	Source             string   `json:"source,omitempty"`
	MentionedCompanies []string `json:"mentioned_companies"`
}

// CompetitorMention records one competitor surfacing in a provider answer.
type CompetitorMention struct {
	Name           string   `json:"name"`
	Position       *int     `json:"position,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
}

// Ranking is one entry of an ordered list a provider produced ("top N X").
type Ranking struct {
	Position int    `json:"position"`
	Company  string `json:"company"`
	Reason   string `json:"reason,omitempty"`
}

// Sentiment labels returned by providers.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentMixed    Sentiment = "mixed"
)

// ProviderResult is the canonical per-(prompt, provider) record produced by
// normalization. Exactly one of Response/Error is meaningful: an error entry
// carries an empty response and a populated Error, and never aborts a run.
// Optional slices are nil (absent in JSON) rather than empty.
type ProviderResult struct {
	Provider       string              `json:"provider"`
	Response       string              `json:"response"`
	Sources        []Source            `json:"sources,omitempty"`
	Citations      []Citation          `json:"citations,omitempty"`
	BrandMentioned bool                `json:"brand_mentioned"`
	BrandPosition  *int                `json:"brand_position,omitempty"`
	Sentiment      Sentiment           `json:"sentiment,omitempty"`
	SentimentScore *int                `json:"sentiment_score,omitempty"`
	Confidence     *float64            `json:"confidence,omitempty"`
	Competitors    []CompetitorMention `json:"competitors,omitempty"`
	Rankings       []Ranking           `json:"rankings,omitempty"`
	Timestamp      time.Time           `json:"timestamp"`
	Error          string              `json:"error,omitempty"`
}

// PromptResult holds one ProviderResult per configured provider for a prompt,
// in configured provider order.
type PromptResult struct {
	PromptID string           `json:"prompt_id"`
	Prompt   string           `json:"prompt"`
	TopicID  *string          `json:"topic_id,omitempty"`
	Results  []ProviderResult `json:"results"`
}

// PartyCitations aggregates the citations attributed to one company.
type PartyCitations struct {
	TotalCitations int        `json:"total_citations"`
	TopDomains     []string   `json:"top_domains"`
	Sources        []Citation `json:"sources"`
}

// TopSource is one domain in the citation frequency ranking.
type TopSource struct {
	URL                string   `json:"url"`
	Domain             string   `json:"domain"`
	Title              string   `json:"title,omitempty"`
	Frequency          int      `json:"frequency"`
	Providers          []string `json:"providers"`
	MentionedCompanies []string `json:"mentioned_companies"`
}

// CitationAnalysis is the aggregate view over one run's citations. It is
// recomputed in full on every run, never merged incrementally.
type CitationAnalysis struct {
	TotalSources        int                       `json:"total_sources"`
	BrandCitations      PartyCitations            `json:"brand_citations"`
	CompetitorCitations map[string]PartyCitations `json:"competitor_citations"`
	TopSources          []TopSource               `json:"top_sources"`
}

// CitationGap is the mention-count difference between the leading competitor
// and the brand. LeadingCompetitor is set only when some competitor's count
// exceeds the brand's.
type CitationGap struct {
	LeadingCompetitor string `json:"leading_competitor,omitempty"`
	Gap               int    `json:"gap"`
}

// CompetitiveMetrics holds the derived visibility metrics for a run.
// ShareOfVoice is keyed by company name (brand included) and sums to ~100
// whenever any party was mentioned at all.
type CompetitiveMetrics struct {
	ShareOfVoice map[string]float64 `json:"share_of_voice"`
	CitationGap  CitationGap        `json:"citation_gap"`
}

// Analysis is the persisted monitoring record for one user. PromptResults,
// CitationAnalysis and CompetitiveMetrics are overwritten wholesale on every
// pipeline run; Prompts/Topics/Competitors mutate incrementally.
type Analysis struct {
	AnalysisID         uuid.UUID           `json:"analysis_id" db:"analysis_id"`
	UserID             string              `json:"user_id" db:"user_id"`
	CompanyName        string              `json:"company_name" db:"company_name"`
	CompanyURL         string              `json:"company_url,omitempty" db:"company_url"`
	Competitors        []string            `json:"competitors"`
	Topics             []Topic             `json:"topics,omitempty"`
	Prompts            []Prompt            `json:"prompts"`
	PromptResults      []PromptResult      `json:"prompt_results,omitempty"`
	CitationAnalysis   *CitationAnalysis   `json:"citation_analysis,omitempty"`
	CompetitiveMetrics *CompetitiveMetrics `json:"competitive_metrics,omitempty"`
	LastRunAt          *time.Time          `json:"last_run_at,omitempty" db:"last_run_at"`
	CreatedAt          time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at" db:"updated_at"`
}

// RunUsage accumulates token and dollar cost across one pipeline run.
type RunUsage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalCost    float64 `json:"total_cost"`
}
