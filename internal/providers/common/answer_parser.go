package common

import (
	"encoding/json"
	"strings"
)

// AnswerEnvelope is the JSON object chat providers are prompted to return for
// monitoring questions. Providers that cannot guarantee structured output fall
// back to the raw text when this fails to parse.
type AnswerEnvelope struct {
	Answer         string          `json:"answer"`
	BrandMentioned bool            `json:"brand_mentioned"`
	BrandPosition  *int            `json:"brand_position"`
	Sentiment      string          `json:"sentiment"`
	Confidence     string          `json:"confidence"`
	Competitors    []RawCompetitor `json:"competitors"`
	Rankings       []RawRanking    `json:"rankings"`
}

// ParseAnswerEnvelope extracts the structured answer object from a model
// response. Models frequently wrap JSON in markdown fences or prepend prose,
// so the parser trims fences and falls back to the outermost brace pair.
func ParseAnswerEnvelope(raw string) (*AnswerEnvelope, bool) {
	candidate := StripCodeFences(raw)

	var envelope AnswerEnvelope
	if err := json.Unmarshal([]byte(candidate), &envelope); err == nil {
		return &envelope, true
	}

	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &envelope); err != nil {
		return nil, false
	}
	return &envelope, true
}

// StripCodeFences removes a surrounding ```json ... ``` block if present.
func StripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// ConfidenceScore maps the envelope's confidence label to a 0-1 score.
func ConfidenceScore(label string) *float64 {
	var score float64
	switch strings.ToLower(label) {
	case "high":
		score = 0.9
	case "medium":
		score = 0.6
	case "low":
		score = 0.3
	default:
		return nil
	}
	return &score
}

// ToRawResponse converts a parsed envelope plus the provider's cited URLs into
// the canonical raw payload handed to the normalizer.
func (e *AnswerEnvelope) ToRawResponse(citations []RawCitation, sources []RawSource) *RawResponse {
	return &RawResponse{
		Response:       e.Answer,
		Sources:        sources,
		Citations:      citations,
		BrandMentioned: e.BrandMentioned,
		BrandPosition:  e.BrandPosition,
		Sentiment:      e.Sentiment,
		Confidence:     ConfidenceScore(e.Confidence),
		Competitors:    e.Competitors,
		Rankings:       e.Rankings,
	}
}
