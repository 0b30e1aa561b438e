// workflows/scheduled_processor.go
package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inngest/inngestgo"
	"github.com/inngest/inngestgo/step"

	"github.com/brandlens/brandlens-workflows/internal/database"
	"github.com/brandlens/brandlens-workflows/services"
)

type ScheduledProcessor struct {
	analysisService services.AnalysisService
	client          inngestgo.Client
}

func NewScheduledProcessor(analysisService services.AnalysisService) *ScheduledProcessor {
	return &ScheduledProcessor{
		analysisService: analysisService,
	}
}

func (p *ScheduledProcessor) SetClient(client inngestgo.Client) {
	p.client = client
}

// DailyAnalysisProcessor re-runs the latest analysis of every active user once
// a day. Each trigger is its own idempotent step, so a failed sweep only
// retries the sends that did not complete.
func (p *ScheduledProcessor) DailyAnalysisProcessor() inngestgo.ServableFunction {
	fn, err := inngestgo.CreateFunction(
		p.client,
		inngestgo.FunctionOpts{
			ID:   "daily-analysis-processor",
			Name: "Daily Analysis Processor - Scheduled Monitoring Sweep",
		},
		inngestgo.CronTrigger("0 2 * * *"), // Every day at 2 AM UTC
		func(ctx context.Context, input inngestgo.Input[any]) (any, error) {
			now := time.Now()

			// Step 1: Find every user with at least one analysis
			userIDs, err := step.Run(ctx, "list-active-users", func(ctx context.Context) ([]string, error) {
				return p.analysisService.ListActiveUserIDs(ctx)
			})
			if err != nil {
				return nil, fmt.Errorf("failed to list active users: %w", err)
			}

			if len(userIDs) == 0 {
				return map[string]interface{}{
					"execution_date": now.Format("2006-01-02"),
					"total_users":    0,
					"message":        "No active analyses to re-run",
				}, nil
			}

			// Step 2: Trigger a run for each user's latest analysis
			triggered := 0
			for _, userID := range userIDs {
				stepName := fmt.Sprintf("trigger-analysis-%s", userID)

				_, err := step.Run(ctx, stepName, func(ctx context.Context) (interface{}, error) {
					record, err := p.analysisService.GetLatestAnalysis(ctx, userID)
					if err != nil {
						if errors.Is(err, database.ErrAnalysisNotFound) {
							return nil, nil
						}
						return nil, err
					}
					evt := inngestgo.Event{
						Name: "analysis.process",
						Data: map[string]interface{}{
							"analysis_id":  record.AnalysisID.String(),
							"user_id":      userID,
							"triggered_by": "automatic_scheduler",
						},
					}
					return p.client.Send(ctx, evt)
				})
				if err != nil {
					// Keep sweeping; one user's failure should not block the rest.
					fmt.Printf("[DailyAnalysisProcessor] ⚠️ Failed to trigger run for user %s: %v\n", userID, err)
					continue
				}
				triggered++
			}

			return map[string]interface{}{
				"execution_date": now.Format("2006-01-02"),
				"total_users":    len(userIDs),
				"runs_triggered": triggered,
				"message":        fmt.Sprintf("Triggered %d monitoring runs", triggered),
			}, nil
		},
	)
	if err != nil {
		fmt.Printf("Failed to create daily analysis processor function: %v\n", err)
	}
	return fn
}
