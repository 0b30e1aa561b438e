package analysis_test

import (
	"math"
	"testing"

	"github.com/brandlens/brandlens-workflows/internal/analysis"
	"github.com/brandlens/brandlens-workflows/internal/models"
)

func citation(url string, mentioned ...string) models.Citation {
	if mentioned == nil {
		mentioned = []string{}
	}
	return models.Citation{URL: url, MentionedCompanies: mentioned}
}

func promptResult(results ...models.ProviderResult) models.PromptResult {
	return models.PromptResult{PromptID: "q1", Prompt: "question", Results: results}
}

func TestAnalyzeAttribution(t *testing.T) {
	results := []models.PromptResult{
		promptResult(models.ProviderResult{
			Provider: "openai",
			Citations: []models.Citation{
				citation("https://reviews.example/a", "Acme"),
				citation("https://reviews.example/b", "Globex"),
				citation("https://news.example/c", "acme", "Globex"),
				citation("https://blog.example/d"),
			},
		}),
	}

	out := analysis.Analyze(results, "Acme", []string{"Globex", "Initech"})

	if out.TotalSources != 4 {
		t.Errorf("Expected 4 distinct sources, got %d", out.TotalSources)
	}
	// Case-insensitive, non-exclusive: the shared citation counts for both.
	if out.BrandCitations.TotalCitations != 2 {
		t.Errorf("Expected 2 brand citations, got %d", out.BrandCitations.TotalCitations)
	}
	if got := out.CompetitorCitations["Globex"].TotalCitations; got != 2 {
		t.Errorf("Expected 2 Globex citations, got %d", got)
	}
	if got := out.CompetitorCitations["Initech"].TotalCitations; got != 0 {
		t.Errorf("Expected 0 Initech citations, got %d", got)
	}
}

func TestAnalyzeSkipsErrorEntries(t *testing.T) {
	results := []models.PromptResult{
		promptResult(
			models.ProviderResult{
				Provider: "openai",
				Error:    "status 500",
				Citations: []models.Citation{
					citation("https://ghost.example", "Acme"),
				},
			},
			models.ProviderResult{
				Provider:  "anthropic",
				Citations: []models.Citation{citation("https://real.example", "Acme")},
			},
		),
	}

	out := analysis.Analyze(results, "Acme", nil)

	if out.TotalSources != 1 {
		t.Errorf("Expected error entry to be skipped, got %d sources", out.TotalSources)
	}
	if out.BrandCitations.TotalCitations != 1 {
		t.Errorf("Expected 1 brand citation, got %d", out.BrandCitations.TotalCitations)
	}
}

func TestAnalyzeDeduplicatesPartySources(t *testing.T) {
	results := []models.PromptResult{
		promptResult(
			models.ProviderResult{
				Provider:  "openai",
				Citations: []models.Citation{citation("https://reviews.example/a", "Acme")},
			},
			models.ProviderResult{
				Provider:  "anthropic",
				Citations: []models.Citation{citation("https://reviews.example/a", "Acme")},
			},
		),
	}

	out := analysis.Analyze(results, "Acme", nil)

	// Both references count, the URL appears once in the source list.
	if out.BrandCitations.TotalCitations != 2 {
		t.Errorf("Expected 2 citation references, got %d", out.BrandCitations.TotalCitations)
	}
	if len(out.BrandCitations.Sources) != 1 {
		t.Errorf("Expected 1 deduplicated source, got %d", len(out.BrandCitations.Sources))
	}
	if out.TotalSources != 1 {
		t.Errorf("Expected 1 distinct URL, got %d", out.TotalSources)
	}
}

func TestAnalyzeTopSources(t *testing.T) {
	results := []models.PromptResult{
		promptResult(
			models.ProviderResult{
				Provider: "openai",
				Citations: []models.Citation{
					citation("https://www.reviews.example/a", "Acme"),
					citation("https://reviews.example/b", "Globex"),
					citation("https://news.example/x"),
				},
			},
			models.ProviderResult{
				Provider: "perplexity",
				Citations: []models.Citation{
					citation("https://reviews.example/c"),
					citation("https://blog.example/y"),
				},
			},
		),
	}

	out := analysis.Analyze(results, "Acme", []string{"Globex"})

	if len(out.TopSources) != 3 {
		t.Fatalf("Expected 3 domains, got %d", len(out.TopSources))
	}
	top := out.TopSources[0]
	if top.Domain != "reviews.example" {
		t.Errorf("Expected reviews.example to rank first, got %s", top.Domain)
	}
	if top.Frequency != 3 {
		t.Errorf("Expected frequency 3, got %d", top.Frequency)
	}
	if len(top.Providers) != 2 {
		t.Errorf("Expected both providers on the top domain, got %v", top.Providers)
	}
	if len(top.MentionedCompanies) != 2 {
		t.Errorf("Expected both companies on the top domain, got %v", top.MentionedCompanies)
	}

	// news.example and blog.example tie at 1; first observed wins.
	if out.TopSources[1].Domain != "news.example" || out.TopSources[2].Domain != "blog.example" {
		t.Errorf("Expected first-seen tie-break, got %s then %s", out.TopSources[1].Domain, out.TopSources[2].Domain)
	}
}

func TestAnalyzeExcludesSearchProxiesFromTopSources(t *testing.T) {
	proxyURL := "https://vertexaisearch.cloud.google.com/grounding-api-redirect/abc123"
	results := []models.PromptResult{
		promptResult(models.ProviderResult{
			Provider: "openai",
			Citations: []models.Citation{
				citation(proxyURL, "Acme"),
				citation("https://real.example/page", "Acme"),
			},
		}),
	}

	out := analysis.Analyze(results, "Acme", nil)

	// Proxy URLs still count as sources and attributions, but never rank.
	if out.TotalSources != 2 {
		t.Errorf("Expected 2 distinct URLs, got %d", out.TotalSources)
	}
	if out.BrandCitations.TotalCitations != 2 {
		t.Errorf("Expected 2 brand citations, got %d", out.BrandCitations.TotalCitations)
	}
	if len(out.TopSources) != 1 || out.TopSources[0].Domain != "real.example" {
		t.Errorf("Expected only real.example in top sources, got %v", out.TopSources)
	}
}

func TestAnalyzeEmptyRun(t *testing.T) {
	out := analysis.Analyze(nil, "Acme", []string{"Globex"})

	if out.TotalSources != 0 {
		t.Errorf("Expected 0 sources, got %d", out.TotalSources)
	}
	if out.BrandCitations.Sources == nil || out.BrandCitations.TopDomains == nil {
		t.Error("Expected empty slices, not nil, in brand citations")
	}
	if out.TopSources == nil {
		t.Error("Expected empty top sources slice, not nil")
	}
	if _, ok := out.CompetitorCitations["Globex"]; !ok {
		t.Error("Expected an entry for every watched competitor")
	}
}

func TestComputeMetricsShareOfVoice(t *testing.T) {
	citationAnalysis := models.CitationAnalysis{
		BrandCitations: models.PartyCitations{TotalCitations: 5},
		CompetitorCitations: map[string]models.PartyCitations{
			"Globex":  {TotalCitations: 3},
			"Initech": {TotalCitations: 1},
		},
	}

	metrics := analysis.ComputeMetrics(citationAnalysis, "Acme", []string{"Globex", "Initech"})

	sum := 0.0
	for _, share := range metrics.ShareOfVoice {
		sum += share
	}
	if math.Abs(sum-100) > 0.2 {
		t.Errorf("Expected shares to sum to ~100, got %.2f", sum)
	}
	if got := metrics.ShareOfVoice["Acme"]; got != 55.6 {
		t.Errorf("Expected Acme share 55.6, got %.1f", got)
	}
	if got := metrics.ShareOfVoice["Globex"]; got != 33.3 {
		t.Errorf("Expected Globex share 33.3, got %.1f", got)
	}

	if metrics.CitationGap.Gap != 0 || metrics.CitationGap.LeadingCompetitor != "" {
		t.Errorf("Expected no citation gap when the brand leads, got %+v", metrics.CitationGap)
	}
}

func TestComputeMetricsCitationGap(t *testing.T) {
	citationAnalysis := models.CitationAnalysis{
		BrandCitations: models.PartyCitations{TotalCitations: 2},
		CompetitorCitations: map[string]models.PartyCitations{
			"Globex":  {TotalCitations: 7},
			"Initech": {TotalCitations: 4},
		},
	}

	metrics := analysis.ComputeMetrics(citationAnalysis, "Acme", []string{"Globex", "Initech"})

	if metrics.CitationGap.LeadingCompetitor != "Globex" {
		t.Errorf("Expected Globex to lead, got %q", metrics.CitationGap.LeadingCompetitor)
	}
	if metrics.CitationGap.Gap != 5 {
		t.Errorf("Expected gap of 5, got %d", metrics.CitationGap.Gap)
	}
}

func TestComputeMetricsNoCitations(t *testing.T) {
	citationAnalysis := models.CitationAnalysis{
		CompetitorCitations: map[string]models.PartyCitations{"Globex": {}},
	}

	metrics := analysis.ComputeMetrics(citationAnalysis, "Acme", []string{"Globex"})

	if metrics.ShareOfVoice["Acme"] != 0 || metrics.ShareOfVoice["Globex"] != 0 {
		t.Errorf("Expected all-zero shares, got %v", metrics.ShareOfVoice)
	}
	if metrics.CitationGap.Gap != 0 {
		t.Errorf("Expected zero gap, got %d", metrics.CitationGap.Gap)
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	results := []models.PromptResult{
		promptResult(models.ProviderResult{
			Provider: "openai",
			Citations: []models.Citation{
				citation("https://reviews.example/a", "Acme"),
				citation("https://news.example/b", "Globex"),
			},
		}),
	}

	first := analysis.Analyze(results, "Acme", []string{"Globex"})
	second := analysis.Analyze(results, "Acme", []string{"Globex"})

	if first.TotalSources != second.TotalSources ||
		first.BrandCitations.TotalCitations != second.BrandCitations.TotalCitations ||
		len(first.TopSources) != len(second.TopSources) {
		t.Error("Expected identical aggregates across repeated runs over the same input")
	}
}

func TestTagCitationMentions(t *testing.T) {
	citations := []models.Citation{
		{URL: "https://acme.example/pricing", Title: "Acme pricing", MentionedCompanies: []string{}},
		{URL: "https://neutral.example", Title: "Industry overview", MentionedCompanies: []string{}},
		{URL: "https://tagged.example", MentionedCompanies: []string{"Globex"}},
	}

	tagged := analysis.TagCitationMentions(citations, "Acme", []string{"Globex"})

	if len(tagged[0].MentionedCompanies) != 1 || tagged[0].MentionedCompanies[0] != "Acme" {
		t.Errorf("Expected Acme tag from title/URL match, got %v", tagged[0].MentionedCompanies)
	}
	if len(tagged[1].MentionedCompanies) != 0 {
		t.Errorf("Expected no tags for neutral citation, got %v", tagged[1].MentionedCompanies)
	}
	if len(tagged[2].MentionedCompanies) != 1 || tagged[2].MentionedCompanies[0] != "Globex" {
		t.Errorf("Expected existing tags to be preserved, got %v", tagged[2].MentionedCompanies)
	}
}

func TestDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.reviews.example/a/b", "reviews.example"},
		{"https://News.Example/path", "news.example"},
		{"http://blog.example", "blog.example"},
		{"://missing-scheme", ""},
	}

	for _, tt := range tests {
		if got := analysis.Domain(tt.url); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
