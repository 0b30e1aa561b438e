// main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/inngest/inngestgo"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/qdrant/go-client/qdrant"
	"github.com/typesense/typesense-go/v2/typesense"
	typesenseapi "github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/brandlens/brandlens-workflows/internal/config"
	"github.com/brandlens/brandlens-workflows/internal/database"
	"github.com/brandlens/brandlens-workflows/internal/providers"
	"github.com/brandlens/brandlens-workflows/services"
	"github.com/brandlens/brandlens-workflows/workflows"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("dev.env"); err != nil {
			log.Printf("Note: No .env or dev.env file loaded: %v", err)
		} else {
			log.Printf("Loaded dev.env file for local development")
		}
	} else {
		log.Printf("Loaded .env file")
	}

	cfg := config.Load()

	log.Printf("Environment: %s", cfg.Environment)
	log.Printf("Port: %s", cfg.Port)
	log.Printf("Database Host: %s", cfg.Database.Host)
	log.Printf("Database Name: %s", cfg.Database.Name)
	log.Printf("Providers: %s", strings.Join(cfg.Providers, ", "))

	if cfg.OpenAIAPIKey == "" {
		log.Printf("WARNING: OpenAI API key not loaded!")
	}
	if cfg.AnthropicAPIKey == "" {
		log.Printf("WARNING: Anthropic API key not loaded!")
	}
	if cfg.PerplexityAPIKey == "" {
		log.Printf("WARNING: Perplexity API key not loaded!")
	}

	ctx := context.Background()
	db, err := database.NewClient(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Printf("Successfully connected to database")

	if err := database.EnsureSchema(ctx, db); err != nil {
		log.Fatalf("Failed to ensure database schema: %v", err)
	}

	if cfg.Environment == "development" || cfg.Environment == "" {
		os.Unsetenv("INNGEST_SIGNING_KEY")
		cfg.InngestSigningKey = ""
		log.Printf("Running in development mode - signing key verification disabled")
	}

	log.Println("Attempting to initialize Qdrant client...")
	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host: cfg.Qdrant.Host,
		Port: cfg.Qdrant.Port,
	})
	if err != nil {
		log.Fatalf("Failed to create Qdrant client: %v", err)
	}

	err = qdrantClient.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: services.QdrantSiteCollection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     1536,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		log.Fatalf("Failed to create Qdrant collection: %v", err)
	}
	log.Printf("Qdrant collection %q is ready", services.QdrantSiteCollection)

	log.Println("Attempting to initialize Typesense client...")
	typesenseClient := typesense.NewClient(
		typesense.WithServer(fmt.Sprintf("http://%s:%d", cfg.Typesense.Host, cfg.Typesense.Port)),
		typesense.WithAPIKey(cfg.Typesense.APIKey),
	)

	facet := true
	sort := true
	defaultSortField := "created_at"
	chunksSchema := &typesenseapi.CollectionSchema{
		Name: services.TypesenseChunksCollection,
		Fields: []typesenseapi.Field{
			{Name: "id", Type: "string"},
			{Name: "content", Type: "string"},
			{Name: "source_page_url", Type: "string", Facet: &facet},
			{Name: "page_title", Type: "string", Facet: &facet},
			{Name: "analysis_id", Type: "string", Facet: &facet},
			{Name: "created_at", Type: "int64", Sort: &sort},
		},
		DefaultSortingField: &defaultSortField,
	}
	_, err = typesenseClient.Collections().Create(ctx, chunksSchema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		log.Fatalf("Failed to create Typesense collection: %v", err)
	}
	log.Printf("Typesense collection %q is ready", services.TypesenseChunksCollection)

	// Initialize services
	repo := database.NewAnalysisRepo(db)
	analysisService := services.NewAnalysisService(repo)
	costService := services.NewCostService()
	extractService := services.NewExtractService(cfg)
	firecrawlService := services.NewFirecrawlService(cfg)
	ingestionService := services.NewIngestionService(qdrantClient, typesenseClient, firecrawlService, cfg)
	invoker := providers.NewInvoker(cfg, costService, extractService)
	log.Printf("Services initialized")

	client, err := inngestgo.NewClient(
		inngestgo.ClientOpts{
			AppID:    "brandlens-workflows",
			EventKey: inngestgo.StrPtr(cfg.InngestEventKey),
			Env:      inngestgo.StrPtr(cfg.Environment),
		},
	)
	if err != nil {
		log.Fatalf("Failed to create Inngest client: %v", err)
	}

	log.Printf("Initializing and registering workflows...")

	analysisProcessor := workflows.NewAnalysisProcessor(analysisService, invoker, cfg)
	analysisProcessor.SetClient(client)
	analysisProcessor.ProcessAnalysis()

	scheduledProcessor := workflows.NewScheduledProcessor(analysisService)
	scheduledProcessor.SetClient(client)
	scheduledProcessor.DailyAnalysisProcessor()

	onboardingProcessor := workflows.NewOnboardingProcessor(analysisService, ingestionService)
	onboardingProcessor.SetClient(client)
	onboardingProcessor.ProcessNewAnalysis()

	log.Printf("All processors initialized and functions registered")

	h := client.Serve()
	mux := http.NewServeMux()
	mux.Handle("/api/inngest", h)

	// Root endpoint for ALB health check
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"service":"brandlens-workflows","status":"running"}`))
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	mux.HandleFunc("/test/trigger-analysis", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		analysisID := r.URL.Query().Get("analysis_id")
		if analysisID == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"analysis_id query parameter is required"}`))
			return
		}
		evt := inngestgo.Event{
			Name: "analysis.process",
			Data: map[string]interface{}{"analysis_id": analysisID, "triggered_by": "manual_test"},
		}
		result, err := client.Send(r.Context(), evt)
		if err != nil {
			log.Printf("Failed to send test event: %v", err)
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(fmt.Sprintf(`{"error":"Failed to send event: %v"}`, err)))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(fmt.Sprintf(`{"status":"success","event_id":"%s"}`, result)))
	})

	port := cfg.Port
	log.Printf("Starting BrandLens Workflows service on port %s", port)
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		log.Fatal(err)
	}
}
