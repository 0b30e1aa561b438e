package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/providers"
	"github.com/brandlens/brandlens-workflows/internal/providers/common"
	"github.com/brandlens/brandlens-workflows/services"
)

func main() {
	fmt.Println("🧪 AI Provider Test Script")

	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️  No .env file found, using environment variables")
	} else {
		fmt.Println("✅ Loaded .env file")
	}
	fmt.Println()

	cfg := config.Load()
	costService := services.NewCostService()

	opts := common.InvokeOptions{
		BrandName:   envOr("TEST_BRAND", "Acme Analytics"),
		Competitors: []string{"DataDog", "New Relic"},
	}
	promptText := envOr("TEST_PROMPT", "What are the best observability platforms for a mid-size SaaS company?")

	fmt.Println("📋 Test Configuration:")
	fmt.Printf("  - Brand: %s\n", opts.BrandName)
	fmt.Printf("  - Competitors: %v\n", opts.Competitors)
	fmt.Printf("  - Prompt: %s\n", promptText)
	fmt.Println()

	ids := cfg.Providers
	if len(os.Args) > 1 {
		ids = os.Args[1:]
	}

	for _, id := range ids {
		testProvider(id, cfg, costService, promptText, opts)
	}
}

func testProvider(providerID string, cfg *config.Config, costService services.CostService, promptText string, opts common.InvokeOptions) {
	fmt.Printf("\n🎯 Testing Provider: %s\n", providerID)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	provider, err := providers.NewProvider(providerID, cfg, costService)
	if err != nil {
		fmt.Printf("❌ Failed to create provider: %v\n", err)
		return
	}

	fmt.Printf("✅ Provider created: %s\n", provider.GetProviderName())
	fmt.Printf("   - SupportsWebSearch: %t\n", provider.SupportsWebSearch())

	opts.WebSearch = provider.SupportsWebSearch()

	start := time.Now()
	raw, err := provider.Invoke(ctx, promptText, opts)
	if err != nil {
		fmt.Printf("❌ Invoke failed after %v: %v\n", time.Since(start), err)
		return
	}
	fmt.Printf("✅ Invoke completed in %v\n", time.Since(start))
	fmt.Printf("   - Brand mentioned: %t\n", raw.BrandMentioned)
	fmt.Printf("   - Competitors: %d\n", len(raw.Competitors))
	fmt.Printf("   - Citations: %d, Sources: %d\n", len(raw.Citations), len(raw.Sources))
	fmt.Printf("   - Tokens: %d in / %d out, cost $%.4f\n", raw.InputTokens, raw.OutputTokens, raw.Cost)

	if os.Getenv("TEST_VERBOSE") != "" {
		blob, _ := json.MarshalIndent(raw, "", "  ")
		fmt.Println(string(blob))
	}
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
