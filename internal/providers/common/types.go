package common

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// InvokeOptions carries the brand context for one provider call. Read-only
// for the duration of a run.
type InvokeOptions struct {
	BrandName   string
	Competitors []string
	WebSearch   bool
}

// RawResponse is the provider-specific payload every adapter produces before
// normalization. Providers fill whichever fields their API exposes; the
// normalizer owns the fallback rules (URL vs URI, Snippet vs Text, ...), so
// alternate spellings are kept side by side here instead of being collapsed
// inside each adapter.
type RawResponse struct {
	Response       string          `json:"response,omitempty"`
	Text           string          `json:"text,omitempty"`
	Sources        []RawSource     `json:"sources,omitempty"`
	Citations      []RawCitation   `json:"citations,omitempty"`
	BrandMentioned bool            `json:"brand_mentioned,omitempty"`
	BrandPosition  *int            `json:"brand_position,omitempty"`
	Sentiment      string          `json:"sentiment,omitempty"`
	SentimentScore *int            `json:"sentiment_score,omitempty"`
	Confidence     *float64        `json:"confidence,omitempty"`
	Competitors    []RawCompetitor `json:"competitors,omitempty"`
	Rankings       []RawRanking    `json:"rankings,omitempty"`
	InputTokens    int             `json:"input_tokens,omitempty"`
	OutputTokens   int             `json:"output_tokens,omitempty"`
	Cost           float64         `json:"cost,omitempty"`
}

// RawSource is a consulted web source as a provider reports it.
type RawSource struct {
	URL     string `json:"url,omitempty"`
	URI     string `json:"uri,omitempty"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`
	Text    string `json:"text,omitempty"`
}

// RawCitation is a cited URL as a provider reports it.
type RawCitation struct {
	URL                string   `json:"url,omitempty"`
	Title              string   `json:"title,omitempty"`
	Source             string   `json:"source,omitempty"`
	Domain             string   `json:"domain,omitempty"`
	MentionedCompanies []string `json:"mentioned_companies,omitempty"`
}

// RawCompetitor decodes either a bare company-name string or a full object.
// Providers that return plain name lists and providers that return scored
// objects both land here.
type RawCompetitor struct {
	Name           string   `json:"name,omitempty"`
	Company        string   `json:"company,omitempty"`
	Position       *int     `json:"position,omitempty"`
	SentimentScore *float64 `json:"sentiment_score,omitempty"`
	Sentiment      *float64 `json:"sentiment,omitempty"`
}

func (c *RawCompetitor) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*c = RawCompetitor{Name: name}
		return nil
	}

	type rawCompetitor RawCompetitor
	var obj rawCompetitor
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*c = RawCompetitor(obj)
	return nil
}

// RawRanking is one entry of an ordered list in a provider answer.
type RawRanking struct {
	Position int    `json:"position"`
	Company  string `json:"company"`
	Reason   string `json:"reason,omitempty"`
}

// ProviderError is the failure type every adapter returns. Header carries the
// provider's response headers when available so the retry layer can read
// retry-after and rate-limit-reset hints.
type ProviderError struct {
	Provider   string
	StatusCode int
	Header     http.Header
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// RetryAfterHeader and RateLimitResetHeader are the header fields the retry
// layer inspects on a ProviderError.
const (
	RetryAfterHeader     = "Retry-After"
	RateLimitResetHeader = "X-Ratelimit-Reset"
)
