package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/brandlens/brandlens-workflows/internal/providers/common"
	"github.com/brandlens/brandlens-workflows/services"
)

type stubExtractService struct {
	result *services.ExtractResult
	err    error
	calls  int
}

func (s *stubExtractService) ExtractCompanyMentions(ctx context.Context, question, response, brandName string, competitors []string) (*services.ExtractResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestEnrichMentionsFillsUntaggedResponse(t *testing.T) {
	extract := &stubExtractService{
		result: &services.ExtractResult{
			TargetCompany: &services.CompanyExtract{Name: "Acme", Rank: 1, TextSentiment: "positive"},
			Competitors: []services.CompanyExtract{
				{Name: "Globex", Rank: 2, TextSentiment: "negative"},
				{Name: "Initech", Rank: 3, TextSentiment: "enthusiastic"},
			},
			InputTokens:    50,
			OutputTokens:   20,
			ExtractionCost: 0.001,
			Timestamp:      time.Now().UTC(),
		},
	}
	v := &Invoker{extractService: extract}

	raw := &common.RawResponse{Response: "Acme and Globex both offer this.", InputTokens: 100, OutputTokens: 200}
	v.enrichMentions(context.Background(), "question", raw, common.InvokeOptions{BrandName: "Acme", Competitors: []string{"Globex", "Initech"}})

	if !raw.BrandMentioned {
		t.Error("Expected brand mentioned after extraction")
	}
	if raw.BrandPosition == nil || *raw.BrandPosition != 1 {
		t.Error("Expected brand position from extraction rank")
	}
	if raw.Sentiment != "positive" {
		t.Errorf("Expected sentiment positive, got %q", raw.Sentiment)
	}
	if len(raw.Competitors) != 2 {
		t.Fatalf("Expected 2 competitors, got %d", len(raw.Competitors))
	}
	if raw.Competitors[0].SentimentScore == nil || *raw.Competitors[0].SentimentScore != 20 {
		t.Errorf("Expected negative sentiment score 20, got %+v", raw.Competitors[0].SentimentScore)
	}
	if raw.Competitors[1].SentimentScore != nil {
		t.Error("Expected no score for unknown sentiment label")
	}
	if raw.InputTokens != 150 || raw.OutputTokens != 220 {
		t.Errorf("Expected extraction tokens added, got %d/%d", raw.InputTokens, raw.OutputTokens)
	}
}

func TestEnrichMentionsSkipsTaggedResponse(t *testing.T) {
	extract := &stubExtractService{}
	v := &Invoker{extractService: extract}

	raw := &common.RawResponse{Response: "answer", BrandMentioned: true}
	v.enrichMentions(context.Background(), "question", raw, common.InvokeOptions{BrandName: "Acme"})

	if extract.calls != 0 {
		t.Errorf("Expected no extraction for tagged response, got %d calls", extract.calls)
	}
}

func TestEnrichMentionsSwallowsExtractionErrors(t *testing.T) {
	extract := &stubExtractService{err: errors.New("model unavailable")}
	v := &Invoker{extractService: extract}

	raw := &common.RawResponse{Response: "answer"}
	v.enrichMentions(context.Background(), "question", raw, common.InvokeOptions{BrandName: "Acme"})

	if raw.BrandMentioned {
		t.Error("Expected response left untagged after extraction failure")
	}
	if extract.calls != 1 {
		t.Errorf("Expected one extraction attempt, got %d", extract.calls)
	}
}

func TestTagRawCitations(t *testing.T) {
	raw := &common.RawResponse{
		Citations: []common.RawCitation{
			{URL: "https://acme.example/review", Title: "Acme review"},
			{URL: "https://neutral.example"},
			{URL: "https://tagged.example", MentionedCompanies: []string{"Globex"}},
		},
	}

	tagRawCitations(raw, common.InvokeOptions{BrandName: "Acme", Competitors: []string{"Globex"}})

	if len(raw.Citations[0].MentionedCompanies) != 1 || raw.Citations[0].MentionedCompanies[0] != "Acme" {
		t.Errorf("Expected Acme tag, got %v", raw.Citations[0].MentionedCompanies)
	}
	if len(raw.Citations[1].MentionedCompanies) != 0 {
		t.Errorf("Expected no tags, got %v", raw.Citations[1].MentionedCompanies)
	}
	if len(raw.Citations[2].MentionedCompanies) != 1 || raw.Citations[2].MentionedCompanies[0] != "Globex" {
		t.Errorf("Expected existing tags preserved, got %v", raw.Citations[2].MentionedCompanies)
	}
}
