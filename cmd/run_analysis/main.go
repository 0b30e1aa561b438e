package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/brandlens/brandlens-workflows/internal/analysis"
	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/database"
	"github.com/brandlens/brandlens-workflows/internal/pipeline"
	"github.com/brandlens/brandlens-workflows/internal/providers"
	"github.com/brandlens/brandlens-workflows/services"
)

// Runs the full monitoring pipeline for one analysis directly, without the
// event queue. Useful for local debugging and one-off re-runs.
func main() {
	analysisIDFlag := flag.String("analysis", "", "analysis id to run (required)")
	dryRun := flag.Bool("dry-run", false, "run the pipeline but do not persist results")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			log.Printf("Note: No .env or dev.env file loaded: %v", err)
		}
	}

	if *analysisIDFlag == "" {
		log.Fatal("usage: run_analysis -analysis <uuid> [-dry-run]")
	}
	analysisID, err := uuid.Parse(*analysisIDFlag)
	if err != nil {
		log.Fatalf("Invalid analysis id: %v", err)
	}

	cfg := config.Load()
	ctx := context.Background()

	db, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	repo := database.NewAnalysisRepo(db)
	analysisService := services.NewAnalysisService(repo)
	costService := services.NewCostService()
	extractService := services.NewExtractService(cfg)
	invoker := providers.NewInvoker(cfg, costService, extractService)

	record, err := analysisService.GetAnalysis(ctx, analysisID)
	if err != nil {
		log.Fatalf("Failed to load analysis: %v", err)
	}
	fmt.Printf("Loaded analysis for %s: %d prompts, %d competitors\n",
		record.CompanyName, len(record.Prompts), len(record.Competitors))

	providerList, err := providers.ListConfigured(cfg.Providers)
	if err != nil {
		log.Fatalf("Invalid provider configuration: %v", err)
	}

	retryWait := time.Duration(cfg.Pipeline.RetryDefaultWaitMs) * time.Millisecond
	scheduler := pipeline.NewScheduler(pipeline.NewRetryInvoker(invoker, retryWait), cfg.Pipeline)

	start := time.Now()
	promptResults, err := scheduler.Run(ctx, record.Prompts, providerList, pipeline.RunContext{
		CompanyName: record.CompanyName,
		Competitors: record.Competitors,
	})
	if err != nil {
		log.Fatalf("Pipeline run failed: %v", err)
	}
	fmt.Printf("Pipeline completed in %v: %d prompt results\n", time.Since(start), len(promptResults))

	citations := analysis.Analyze(promptResults, record.CompanyName, record.Competitors)
	metrics := analysis.ComputeMetrics(citations, record.CompanyName, record.Competitors)

	blob, _ := json.MarshalIndent(map[string]interface{}{
		"citation_analysis":   citations,
		"competitive_metrics": metrics,
	}, "", "  ")
	fmt.Println(string(blob))

	if *dryRun {
		fmt.Println("Dry run, skipping persistence")
		return
	}

	err = analysisService.SaveResults(ctx, analysisID, services.SaveResultsInput{
		PromptResults:      promptResults,
		CitationAnalysis:   &citations,
		CompetitiveMetrics: &metrics,
		LastRunAt:          time.Now().UTC(),
	})
	if err != nil {
		log.Fatalf("Failed to save results: %v", err)
	}
	fmt.Println("✅ Results saved")
}
