// services/analysis_service.go
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/brandlens/brandlens-workflows/internal/database"
	"github.com/brandlens/brandlens-workflows/internal/models"
)

type analysisService struct {
	repo *database.AnalysisRepo
}

// NewAnalysisService creates the persistence adapter over the analyses table.
func NewAnalysisService(repo *database.AnalysisRepo) AnalysisService {
	return &analysisService{repo: repo}
}

func (s *analysisService) GetLatestAnalysis(ctx context.Context, userID string) (*models.Analysis, error) {
	return s.repo.GetLatestByUser(ctx, userID)
}

func (s *analysisService) GetAnalysis(ctx context.Context, analysisID uuid.UUID) (*models.Analysis, error) {
	return s.repo.GetByID(ctx, analysisID)
}

func (s *analysisService) CreateAnalysis(ctx context.Context, analysis *models.Analysis) error {
	if analysis.AnalysisID == uuid.Nil {
		analysis.AnalysisID = uuid.New()
	}
	return s.repo.Create(ctx, analysis)
}

// SaveResults merges a completed run into the stored analysis: the current
// row is read, the run's fields replace theirs wholesale, and the row is
// written back. There is no version check; concurrent runs for the same user
// race and the last writer wins, which is an accepted gap since the whole run
// writes exactly once at the end.
func (s *analysisService) SaveResults(ctx context.Context, analysisID uuid.UUID, input SaveResultsInput) error {
	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("failed to load analysis for merge: %w", err)
	}

	analysis.PromptResults = input.PromptResults
	if input.CitationAnalysis != nil {
		analysis.CitationAnalysis = input.CitationAnalysis
	}
	if input.CompetitiveMetrics != nil {
		analysis.CompetitiveMetrics = input.CompetitiveMetrics
	}
	lastRunAt := input.LastRunAt
	analysis.LastRunAt = &lastRunAt

	if err := s.repo.Update(ctx, analysis); err != nil {
		return fmt.Errorf("failed to save analysis results: %w", err)
	}

	fmt.Printf("[AnalysisService] 💾 Saved run for analysis %s: %d prompt results\n",
		analysisID, len(input.PromptResults))
	return nil
}

func (s *analysisService) AddPrompt(ctx context.Context, analysisID uuid.UUID, prompt models.Prompt) error {
	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return err
	}

	for _, existing := range analysis.Prompts {
		if existing.ID == prompt.ID {
			return fmt.Errorf("prompt %s already exists in analysis %s", prompt.ID, analysisID)
		}
	}
	analysis.Prompts = append(analysis.Prompts, prompt)

	return s.repo.Update(ctx, analysis)
}

func (s *analysisService) RemovePrompt(ctx context.Context, analysisID uuid.UUID, promptID string) error {
	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return err
	}

	kept := analysis.Prompts[:0]
	found := false
	for _, prompt := range analysis.Prompts {
		if prompt.ID == promptID {
			found = true
			continue
		}
		kept = append(kept, prompt)
	}
	if !found {
		return fmt.Errorf("prompt %s not found in analysis %s", promptID, analysisID)
	}
	analysis.Prompts = kept

	return s.repo.Update(ctx, analysis)
}

func (s *analysisService) AddCompetitor(ctx context.Context, analysisID uuid.UUID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("competitor name is empty")
	}

	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return err
	}

	for _, existing := range analysis.Competitors {
		if strings.EqualFold(existing, name) {
			return fmt.Errorf("competitor %q already tracked in analysis %s", name, analysisID)
		}
	}
	analysis.Competitors = append(analysis.Competitors, name)

	return s.repo.Update(ctx, analysis)
}

func (s *analysisService) RemoveCompetitor(ctx context.Context, analysisID uuid.UUID, name string) error {
	analysis, err := s.repo.GetByID(ctx, analysisID)
	if err != nil {
		return err
	}

	kept := analysis.Competitors[:0]
	found := false
	for _, existing := range analysis.Competitors {
		if strings.EqualFold(existing, name) {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return fmt.Errorf("competitor %q not found in analysis %s", name, analysisID)
	}
	analysis.Competitors = kept

	return s.repo.Update(ctx, analysis)
}

func (s *analysisService) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListActiveUserIDs(ctx)
}
