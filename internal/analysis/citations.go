// Package analysis turns a run's normalized results into the citation and
// share-of-voice aggregates the dashboard renders.
package analysis

import (
	"math"
	"net/url"
	"sort"
	"strings"

	"github.com/brandlens/brandlens-workflows/internal/models"
)

// searchProxyHosts are answer-engine plumbing, not real citation targets.
// Sources on these hosts are excluded from top-source ranking.
var searchProxyHosts = map[string]bool{
	"vertexaisearch.cloud.google.com": true,
	"www.bing.com":                    true,
}

const topDomainLimit = 5

// Analyze scans normalized results for citations, attributes each citation to
// the brand and/or competitors by case-insensitive name membership, and builds
// the per-source frequency tables. It is a pure function over its inputs and
// recomputes the full aggregate every run.
func Analyze(results []models.PromptResult, brandName string, competitorNames []string) models.CitationAnalysis {
	out := models.CitationAnalysis{
		BrandCitations:      newPartyCitations(),
		CompetitorCitations: make(map[string]models.PartyCitations, len(competitorNames)),
		TopSources:          []models.TopSource{},
	}
	for _, name := range competitorNames {
		out.CompetitorCitations[name] = newPartyCitations()
	}

	seenURLs := make(map[string]bool)
	brand := &partyAccumulator{}
	competitors := make(map[string]*partyAccumulator, len(competitorNames))
	for _, name := range competitorNames {
		competitors[name] = &partyAccumulator{}
	}
	domains := newDomainTable()

	for _, promptResult := range results {
		for _, result := range promptResult.Results {
			if result.Error != "" || len(result.Citations) == 0 {
				continue
			}
			for _, citation := range result.Citations {
				if citation.URL != "" {
					seenURLs[citation.URL] = true
				}

				// Attribution is a membership test per party, not an
				// exclusive classification: one citation can count for the
				// brand and several competitors at once.
				if mentionsCompany(citation.MentionedCompanies, brandName) {
					brand.add(citation)
				}
				for _, name := range competitorNames {
					if mentionsCompany(citation.MentionedCompanies, name) {
						competitors[name].add(citation)
					}
				}

				domains.observe(citation, result.Provider)
			}
		}
	}

	out.TotalSources = len(seenURLs)
	out.BrandCitations = brand.finish()
	for _, name := range competitorNames {
		out.CompetitorCitations[name] = competitors[name].finish()
	}
	out.TopSources = domains.ranked()

	return out
}

// ComputeMetrics derives share of voice and the citation gap from a citation
// analysis. Share-of-voice percentages over brand plus competitors sum to
// ~100 whenever anyone was mentioned, and are all zero otherwise.
func ComputeMetrics(citationAnalysis models.CitationAnalysis, brandName string, competitorNames []string) models.CompetitiveMetrics {
	brandCount := citationAnalysis.BrandCitations.TotalCitations

	total := brandCount
	counts := make(map[string]int, len(competitorNames))
	for _, name := range competitorNames {
		counts[name] = citationAnalysis.CompetitorCitations[name].TotalCitations
		total += counts[name]
	}

	shareOfVoice := make(map[string]float64, len(competitorNames)+1)
	shareOfVoice[brandName] = percentage(brandCount, total)
	for _, name := range competitorNames {
		shareOfVoice[name] = percentage(counts[name], total)
	}

	gap := models.CitationGap{}
	topCount := 0
	for _, name := range competitorNames {
		if counts[name] > topCount {
			topCount = counts[name]
			if counts[name] > brandCount {
				gap.LeadingCompetitor = name
			}
		}
	}
	if topCount > brandCount {
		gap.Gap = topCount - brandCount
	}

	return models.CompetitiveMetrics{
		ShareOfVoice: shareOfVoice,
		CitationGap:  gap,
	}
}

// TagCitationMentions fills in MentionedCompanies for citations a provider
// returned untagged, by matching watched company names against the citation's
// title, URL and source text. Already-tagged citations are left alone.
func TagCitationMentions(citations []models.Citation, brandName string, competitorNames []string) []models.Citation {
	watched := append([]string{brandName}, competitorNames...)
	tagged := make([]models.Citation, len(citations))
	for i, citation := range citations {
		tagged[i] = citation
		if len(citation.MentionedCompanies) > 0 {
			continue
		}
		haystack := strings.ToLower(citation.Title + " " + citation.URL + " " + citation.Source)
		var companies []string
		for _, name := range watched {
			if name != "" && strings.Contains(haystack, strings.ToLower(name)) {
				companies = append(companies, name)
			}
		}
		if companies == nil {
			companies = []string{}
		}
		tagged[i].MentionedCompanies = companies
	}
	return tagged
}

func mentionsCompany(mentioned []string, name string) bool {
	for _, company := range mentioned {
		if strings.EqualFold(strings.TrimSpace(company), name) {
			return true
		}
	}
	return false
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(count)/float64(total)*1000) / 10
}

// Domain extracts the registrable host of a URL, without the www prefix.
// Unparseable URLs report an empty domain.
func Domain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// isSearchProxy matches the full host, before www stripping, so proxy
// subdomains are caught exactly as providers emit them.
func isSearchProxy(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return searchProxyHosts[strings.ToLower(parsed.Hostname())]
}

// partyAccumulator gathers the citations attributed to one company.
type partyAccumulator struct {
	sources      []models.Citation
	seenURLs     map[string]bool
	domainCounts map[string]int
	domainOrder  []string
	total        int
}

func (a *partyAccumulator) add(citation models.Citation) {
	a.total++
	if a.seenURLs == nil {
		a.seenURLs = make(map[string]bool)
		a.domainCounts = make(map[string]int)
	}
	if citation.URL != "" && !a.seenURLs[citation.URL] {
		a.seenURLs[citation.URL] = true
		a.sources = append(a.sources, citation)
	}
	if domain := Domain(citation.URL); domain != "" {
		if a.domainCounts[domain] == 0 {
			a.domainOrder = append(a.domainOrder, domain)
		}
		a.domainCounts[domain]++
	}
}

func (a *partyAccumulator) finish() models.PartyCitations {
	party := newPartyCitations()
	party.TotalCitations = a.total
	if a.sources != nil {
		party.Sources = a.sources
	}

	order := append([]string(nil), a.domainOrder...)
	sort.SliceStable(order, func(i, j int) bool {
		return a.domainCounts[order[i]] > a.domainCounts[order[j]]
	})
	if len(order) > topDomainLimit {
		order = order[:topDomainLimit]
	}
	party.TopDomains = append(party.TopDomains, order...)

	return party
}

func newPartyCitations() models.PartyCitations {
	return models.PartyCitations{
		TopDomains: []string{},
		Sources:    []models.Citation{},
	}
}

// domainTable groups citations by domain for the top-source ranking.
type domainTable struct {
	entries map[string]*domainEntry
	order   []string
}

type domainEntry struct {
	url       string
	domain    string
	title     string
	frequency int
	providers map[string]bool
	companies map[string]bool
	provOrder []string
	compOrder []string
}

func newDomainTable() *domainTable {
	return &domainTable{entries: make(map[string]*domainEntry)}
}

func (t *domainTable) observe(citation models.Citation, provider string) {
	if citation.URL == "" || isSearchProxy(citation.URL) {
		return
	}
	domain := Domain(citation.URL)
	if domain == "" {
		return
	}

	entry, ok := t.entries[domain]
	if !ok {
		entry = &domainEntry{
			url:       citation.URL,
			domain:    domain,
			title:     citation.Title,
			providers: make(map[string]bool),
			companies: make(map[string]bool),
		}
		t.entries[domain] = entry
		t.order = append(t.order, domain)
	}
	entry.frequency++
	if provider != "" && !entry.providers[provider] {
		entry.providers[provider] = true
		entry.provOrder = append(entry.provOrder, provider)
	}
	for _, company := range citation.MentionedCompanies {
		if company != "" && !entry.companies[company] {
			entry.companies[company] = true
			entry.compOrder = append(entry.compOrder, company)
		}
	}
}

// ranked returns domains sorted by descending reference count, ties broken by
// first-seen order.
func (t *domainTable) ranked() []models.TopSource {
	order := append([]string(nil), t.order...)
	sort.SliceStable(order, func(i, j int) bool {
		return t.entries[order[i]].frequency > t.entries[order[j]].frequency
	})

	top := make([]models.TopSource, 0, len(order))
	for _, domain := range order {
		entry := t.entries[domain]
		top = append(top, models.TopSource{
			URL:                entry.url,
			Domain:             entry.domain,
			Title:              entry.title,
			Frequency:          entry.frequency,
			Providers:          append([]string{}, entry.provOrder...),
			MentionedCompanies: append([]string{}, entry.compOrder...),
		})
	}
	return top
}
