// workflows/onboarding_processor.go
package workflows

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/brandlens/brandlens-workflows/services"
)

// AnalysisCreatedEvent fires when a user finishes onboarding a new analysis.
type AnalysisCreatedEvent struct {
	AnalysisID string `json:"analysis_id"`
	UserID     string `json:"user_id"`
}

// OnboardingProcessor indexes the brand's site content and kicks off the
// first monitoring run for a freshly created analysis.
type OnboardingProcessor struct {
	analysisService  services.AnalysisService
	ingestionService services.IngestionService
	client           inngestgo.Client
}

func NewOnboardingProcessor(
	analysisService services.AnalysisService,
	ingestionService services.IngestionService,
) *OnboardingProcessor {
	return &OnboardingProcessor{
		analysisService:  analysisService,
		ingestionService: ingestionService,
	}
}

func (p *OnboardingProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

func (p *OnboardingProcessor) ProcessNewAnalysis() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:      "process-new-analysis",
			Name:    "Process New Analysis - Onboarding Pipeline",
			Retries: inngestgo.IntPtr(2),
		},
		inngestgo.EventTrigger("analysis.created", nil),
		func(ctx context.Context, input inngestgo.Input[AnalysisCreatedEvent]) (any, error) {
			analysisID, err := uuid.Parse(input.Event.Data.AnalysisID)
			if err != nil {
				return nil, fmt.Errorf("invalid analysis id %q: %w", input.Event.Data.AnalysisID, err)
			}
			fmt.Printf("[ProcessNewAnalysis] Onboarding analysis: %s\n", analysisID)

			// Step 1: Index the brand site for the dashboard's content search.
			// Indexing failures are reported but never block the first run.
			_, err = step.Run(ctx, "index-company-site", func(ctx context.Context) (interface{}, error) {
				record, err := p.analysisService.GetAnalysis(ctx, analysisID)
				if err != nil {
					return nil, err
				}
				if record.CompanyURL == "" {
					return map[string]interface{}{"status": "skipped", "message": "no company URL"}, nil
				}
				if err := p.ingestionService.IndexCompanySite(ctx, analysisID, record.CompanyURL); err != nil {
					fmt.Printf("[ProcessNewAnalysis] ⚠️ Site indexing failed: %v\n", err)
					return map[string]interface{}{"status": "failed", "error": err.Error()}, nil
				}
				return map[string]interface{}{"status": "indexed"}, nil
			})
			if err != nil {
				return nil, fmt.Errorf("step 'index-company-site' failed: %w", err)
			}

			// Step 2: Kick off the first monitoring run
			_, err = step.Run(ctx, "trigger-first-run", func(ctx context.Context) (interface{}, error) {
				evt := inngestgo.Event{
					Name: "analysis.process",
					Data: map[string]interface{}{
						"analysis_id":  analysisID.String(),
						"user_id":      input.Event.Data.UserID,
						"triggered_by": "onboarding",
					},
				}
				return p.client.Send(ctx, evt)
			})
			if err != nil {
				return nil, fmt.Errorf("step 'trigger-first-run' failed: %w", err)
			}

			fmt.Printf("[ProcessNewAnalysis] ✅ Onboarding complete for analysis %s\n", analysisID)
			return map[string]interface{}{
				"analysis_id": analysisID.String(),
				"status":      "completed",
			}, nil
		},
	)
	if err != nil {
		panic(fmt.Errorf("failed to create ProcessNewAnalysis function: %w", err))
	}
	return fn
}
