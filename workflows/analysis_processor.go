// workflows/analysis_processor.go
package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/brandlens/brandlens-workflows/internal/analysis"
	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/models"
	"github.com/brandlens/brandlens-workflows/internal/pipeline"
	"github.com/brandlens/brandlens-workflows/internal/providers"
	"github.com/brandlens/brandlens-workflows/services"
)

// AnalysisProcessEvent triggers a full monitoring run for one analysis.
type AnalysisProcessEvent struct {
	AnalysisID  string `json:"analysis_id"`
	TriggeredBy string `json:"triggered_by"`
	UserID      string `json:"user_id,omitempty"`
}

type AnalysisProcessor struct {
	analysisService services.AnalysisService
	scheduler       *pipeline.Scheduler
	client          inngestgo.Client
	cfg             *config.Config
}

func NewAnalysisProcessor(
	analysisService services.AnalysisService,
	invoker pipeline.Invoker,
	cfg *config.Config,
) *AnalysisProcessor {
	retryWait := time.Duration(cfg.Pipeline.RetryDefaultWaitMs) * time.Millisecond
	retrying := pipeline.NewRetryInvoker(invoker, retryWait)
	return &AnalysisProcessor{
		analysisService: analysisService,
		scheduler:       pipeline.NewScheduler(retrying, cfg.Pipeline),
		cfg:             cfg,
	}
}

func (p *AnalysisProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// ProcessAnalysis is the full brand-monitoring pipeline: load the analysis,
// run every prompt against every configured provider, compute citation
// analytics, and persist the run.
func (p *AnalysisProcessor) ProcessAnalysis() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-analysis",
			Name:    "Process Analysis - Full Brand Monitoring Pipeline",
			Retries: inngestgo.IntPtr(3),
		},
		inngestgo.EventTrigger("analysis.process", nil),
		func(ctx context.Context, input inngestgo.Input[AnalysisProcessEvent]) (any, error) {
			analysisID, err := uuid.Parse(input.Event.Data.AnalysisID)
			if err != nil {
				return nil, fmt.Errorf("invalid analysis id %q: %w", input.Event.Data.AnalysisID, err)
			}
			fmt.Printf("[ProcessAnalysis] Starting monitoring pipeline for analysis: %s\n", analysisID)

			// Step 1: Load the analysis record
			record, err := step.Run(ctx, "load-analysis", func(ctx context.Context) (*models.Analysis, error) {
				record, err := p.analysisService.GetAnalysis(ctx, analysisID)
				if err != nil {
					return nil, fmt.Errorf("failed to load analysis: %w", err)
				}
				fmt.Printf("[ProcessAnalysis] Loaded analysis for %s: %d prompts, %d competitors\n",
					record.CompanyName, len(record.Prompts), len(record.Competitors))
				return record, nil
			})
			if err != nil {
				return nil, fmt.Errorf("step 'load-analysis' failed: %w", err)
			}

			// Step 2: Resolve the configured provider list
			providerList, err := step.Run(ctx, "resolve-providers", func(ctx context.Context) ([]models.ProviderDescriptor, error) {
				return providers.ListConfigured(p.cfg.Providers)
			})
			if err != nil {
				return nil, fmt.Errorf("step 'resolve-providers' failed: %w", err)
			}

			// Step 3: Fan the prompt matrix out across providers
			promptResults, err := step.Run(ctx, "run-prompt-matrix", func(ctx context.Context) ([]models.PromptResult, error) {
				return p.scheduler.Run(ctx, record.Prompts, providerList, pipeline.RunContext{
					CompanyName: record.CompanyName,
					Competitors: record.Competitors,
				})
			})
			if err != nil {
				reportPipelineFailure("process-analysis", analysisID.String(), record.CompanyName, "prompt matrix failed", err)
				return nil, fmt.Errorf("step 'run-prompt-matrix' failed: %w", err)
			}

			// Step 4: Aggregate citations and competitive metrics
			type runAnalytics struct {
				Citations *models.CitationAnalysis   `json:"citations"`
				Metrics   *models.CompetitiveMetrics `json:"metrics"`
			}
			analytics, err := step.Run(ctx, "analyze-citations", func(ctx context.Context) (*runAnalytics, error) {
				citations := analysis.Analyze(promptResults, record.CompanyName, record.Competitors)
				metrics := analysis.ComputeMetrics(citations, record.CompanyName, record.Competitors)
				fmt.Printf("[ProcessAnalysis] 📊 %d sources, %d brand citations\n",
					citations.TotalSources, citations.BrandCitations.TotalCitations)
				return &runAnalytics{Citations: &citations, Metrics: &metrics}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("step 'analyze-citations' failed: %w", err)
			}

			// Step 5: Persist the run
			completedAt := time.Now().UTC()
			_, err = step.Run(ctx, "save-results", func(ctx context.Context) (interface{}, error) {
				saveErr := p.analysisService.SaveResults(ctx, analysisID, services.SaveResultsInput{
					PromptResults:      promptResults,
					CitationAnalysis:   analytics.Citations,
					CompetitiveMetrics: analytics.Metrics,
					LastRunAt:          completedAt,
				})
				if saveErr != nil {
					return nil, saveErr
				}
				return map[string]interface{}{"saved_prompt_results": len(promptResults)}, nil
			})
			if err != nil {
				reportPipelineFailure("process-analysis", analysisID.String(), record.CompanyName, "persist failed", err)
				return nil, fmt.Errorf("step 'save-results' failed: %w", err)
			}

			fmt.Printf("[ProcessAnalysis] ✅ COMPLETED: Monitoring pipeline for analysis %s\n", analysisID)

			return map[string]interface{}{
				"analysis_id":    analysisID.String(),
				"company_name":   record.CompanyName,
				"status":         "completed",
				"prompt_results": len(promptResults),
				"providers":      len(providerList),
				"total_sources":  analytics.Citations.TotalSources,
				"completed_at":   completedAt,
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Errorf("failed to create ProcessAnalysis function: %w", err))
	}
	return fn
}
