package pipeline

import (
	"strings"
	"time"

	"github.com/brandlens/brandlens-workflows/internal/models"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
)

// sentimentScores maps provider sentiment labels to the 0-100 score the
// dashboard charts. Unknown labels score neutral.
var sentimentScores = map[models.Sentiment]int{
	models.SentimentPositive: 80,
	models.SentimentNeutral:  50,
	models.SentimentNegative: 20,
	models.SentimentMixed:    50,
}

// Normalize maps a provider-specific payload into the canonical per-call
// record. It is total: any partial or malformed payload still produces a
// well-formed result, with optional fields left absent rather than empty.
func Normalize(raw *common.RawResponse, providerName string) models.ProviderResult {
	result := models.ProviderResult{
		Provider:  providerName,
		Timestamp: time.Now().UTC(),
	}
	if raw == nil {
		return result
	}

	result.Response = raw.Response
	if result.Response == "" {
		result.Response = raw.Text
	}

	result.Sources = normalizeSources(raw.Sources)
	result.Citations = normalizeCitations(raw.Citations)
	result.Competitors = normalizeCompetitors(raw.Competitors)
	result.Rankings = normalizeRankings(raw.Rankings)

	result.BrandMentioned = raw.BrandMentioned
	result.BrandPosition = raw.BrandPosition
	result.Confidence = raw.Confidence

	label := models.Sentiment(strings.ToLower(raw.Sentiment))
	if _, known := sentimentScores[label]; known {
		result.Sentiment = label
	}
	switch {
	case raw.SentimentScore != nil:
		result.SentimentScore = raw.SentimentScore
	case raw.Sentiment != "":
		score, known := sentimentScores[label]
		if !known {
			score = 50
		}
		result.SentimentScore = &score
	}

	return result
}

// NormalizeError produces the error entry for a failed provider call. Error
// entries keep their slot in the result array so a bad provider never shifts
// or hides another provider's result.
func NormalizeError(err error, providerName string) models.ProviderResult {
	return models.ProviderResult{
		Provider:  providerName,
		Error:     err.Error(),
		Timestamp: time.Now().UTC(),
	}
}

func normalizeSources(raw []common.RawSource) []models.Source {
	if len(raw) == 0 {
		return nil
	}
	sources := make([]models.Source, 0, len(raw))
	for _, s := range raw {
		url := s.URL
		if url == "" {
			url = s.URI
		}
		snippet := s.Snippet
		if snippet == "" {
			snippet = s.Text
		}
		sources = append(sources, models.Source{
			URL:     url,
			Title:   s.Title,
			Snippet: snippet,
		})
	}
	return sources
}

func normalizeCitations(raw []common.RawCitation) []models.Citation {
	if len(raw) == 0 {
		return nil
	}
	citations := make([]models.Citation, 0, len(raw))
	for _, c := range raw {
		source := c.Source
		if source == "" {
			source = c.Domain
		}
		mentioned := c.MentionedCompanies
		if mentioned == nil {
			mentioned = []string{}
		}
		citations = append(citations, models.Citation{
			URL:                c.URL,
			Title:              c.Title,
			Source:             source,
			MentionedCompanies: mentioned,
		})
	}
	return citations
}

func normalizeCompetitors(raw []common.RawCompetitor) []models.CompetitorMention {
	if len(raw) == 0 {
		return nil
	}
	competitors := make([]models.CompetitorMention, 0, len(raw))
	for _, comp := range raw {
		name := comp.Name
		if name == "" {
			name = comp.Company
		}
		score := comp.SentimentScore
		if score == nil {
			score = comp.Sentiment
		}
		competitors = append(competitors, models.CompetitorMention{
			Name:           name,
			Position:       comp.Position,
			SentimentScore: score,
		})
	}
	return competitors
}

func normalizeRankings(raw []common.RawRanking) []models.Ranking {
	if len(raw) == 0 {
		return nil
	}
	rankings := make([]models.Ranking, 0, len(raw))
	for _, r := range raw {
		rankings = append(rankings, models.Ranking{
			Position: r.Position,
			Company:  r.Company,
			Reason:   r.Reason,
		})
	}
	return rankings
}
