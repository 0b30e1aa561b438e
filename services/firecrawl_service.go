// services/firecrawl_service.go
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/brandlens/brandlens-workflows/internal/config"
)

type firecrawlService struct {
	client *http.Client
	cfg    *config.Config
}

// NewFirecrawlService creates a new FirecrawlService instance.
func NewFirecrawlService(cfg *config.Config) FirecrawlService {
	return &firecrawlService{
		client: &http.Client{},
		cfg:    cfg,
	}
}

// ScrapeURL calls the Firecrawl /scrape endpoint for a single URL.
func (s *firecrawlService) ScrapeURL(ctx context.Context, urlToScrape string) (*FirecrawlScrapeResult, error) {
	requestBody, err := json.Marshal(map[string]string{
		"url": urlToScrape,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal firecrawl request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.Firecrawl.BaseURL+"/scrape", bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create firecrawl request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Firecrawl.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("firecrawl returned non-200 status: %s", resp.Status)
	}

	var result FirecrawlScrapeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode firecrawl response: %w", err)
	}

	// The API sometimes returns markdown in 'content', sometimes in 'markdown'.
	if result.Data.Markdown == "" && result.Data.Content != "" {
		result.Data.Markdown = result.Data.Content
	}

	return &result, nil
}
