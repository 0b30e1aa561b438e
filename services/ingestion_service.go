// services/ingestion_service.go
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/qdrant/go-client/qdrant"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"

	"github.com/brandlens/brandlens-workflows/internal/config"
)

const (
	// QdrantSiteCollection is the vector collection for scraped brand sites.
	QdrantSiteCollection = "brand_site_content"
	// TypesenseChunksCollection is the keyword index for the same chunks.
	TypesenseChunksCollection = "site_chunks"

	embeddingModel = openai.EmbeddingModelTextEmbedding3Small
)

type ingestionService struct {
	qdrantClient    *qdrant.Client
	typesenseClient *typesense.Client
	openAIClient    *openai.Client
	firecrawl       FirecrawlService
	cfg             *config.Config
}

// NewIngestionService creates the service that indexes a brand's site content
// into the vector store and keyword index used by the dashboard.
func NewIngestionService(
	qdrantClient *qdrant.Client,
	typesenseClient *typesense.Client,
	firecrawl FirecrawlService,
	cfg *config.Config,
) IngestionService {
	client := openai.NewClient(
		option.WithAPIKey(cfg.OpenAIAPIKey),
	)
	return &ingestionService{
		qdrantClient:    qdrantClient,
		typesenseClient: typesenseClient,
		openAIClient:    &client,
		firecrawl:       firecrawl,
		cfg:             cfg,
	}
}

// IndexCompanySite scrapes the brand's site, chunks the markdown, embeds the
// chunks and upserts them into Qdrant and Typesense under the analysis id.
func (s *ingestionService) IndexCompanySite(ctx context.Context, analysisID uuid.UUID, companyURL string) error {
	fmt.Printf("[IngestionService] Starting site indexing for analysis %s: %s\n", analysisID, companyURL)

	scraped, err := s.firecrawl.ScrapeURL(ctx, companyURL)
	if err != nil {
		return fmt.Errorf("failed to scrape %s: %w", companyURL, err)
	}

	chunks := chunkMarkdown(scraped.Data.Markdown)
	if len(chunks) == 0 {
		fmt.Printf("[IngestionService] No content to index for %s\n", companyURL)
		return nil
	}

	vectors, err := s.createEmbeddings(ctx, chunks)
	if err != nil {
		return fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}

	if err := s.upsertToQdrant(ctx, analysisID, scraped.Data.Title, companyURL, chunks, vectors); err != nil {
		return fmt.Errorf("failed to index in qdrant: %w", err)
	}
	if err := s.upsertToTypesense(ctx, analysisID, scraped.Data.Title, companyURL, chunks); err != nil {
		return fmt.Errorf("failed to index in typesense: %w", err)
	}

	fmt.Printf("[IngestionService] ✅ Indexed %d chunks for analysis %s\n", len(chunks), analysisID)
	return nil
}

func (s *ingestionService) createEmbeddings(ctx context.Context, chunks []string) ([][]float32, error) {
	resp, err := s.openAIClient.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: chunks,
		},
		Model: embeddingModel,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(chunks) {
		return nil, fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(resp.Data), len(chunks))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, item := range resp.Data {
		vector := make([]float32, len(item.Embedding))
		for j, v := range item.Embedding {
			vector[j] = float32(v)
		}
		vectors[i] = vector
	}
	return vectors, nil
}

func (s *ingestionService) upsertToQdrant(ctx context.Context, analysisID uuid.UUID, title, sourceURL string, chunks []string, vectors [][]float32) error {
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		payload := qdrant.NewValueMap(map[string]any{
			"text":        chunk,
			"source_url":  sourceURL,
			"page_title":  title,
			"analysis_id": analysisID.String(),
		})
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.New().String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: payload,
		}
	}

	waitUpsert := true
	_, err := s.qdrantClient.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: QdrantSiteCollection,
		Points:         points,
		Wait:           &waitUpsert,
	})
	return err
}

func (s *ingestionService) upsertToTypesense(ctx context.Context, analysisID uuid.UUID, title, sourceURL string, chunks []string) error {
	docs := make([]interface{}, len(chunks))
	now := time.Now().Unix()
	for i, chunk := range chunks {
		docs[i] = map[string]interface{}{
			"id":              uuid.New().String(),
			"content":         chunk,
			"source_page_url": sourceURL,
			"page_title":      title,
			"analysis_id":     analysisID.String(),
			"created_at":      now,
		}
	}

	action := "upsert"
	_, err := s.typesenseClient.Collection(TypesenseChunksCollection).Documents().Import(ctx, docs, &api.ImportDocumentsParams{Action: &action})
	return err
}

// chunkMarkdown splits markdown by headings first, then enforces a character
// ceiling so every chunk stays well inside the embedding token limit.
func chunkMarkdown(text string) []string {
	// ~4 chars per token keeps 8000 chars far below the 8192-token ceiling.
	const maxChunkSize = 8000

	var finalChunks []string
	for _, chunk := range splitByHeadings(text) {
		if len(chunk) <= maxChunkSize {
			finalChunks = append(finalChunks, chunk)
			continue
		}
		for i := 0; i < len(chunk); i += maxChunkSize {
			end := i + maxChunkSize
			if end > len(chunk) {
				end = len(chunk)
			}
			finalChunks = append(finalChunks, chunk[i:end])
		}
	}
	return finalChunks
}

var headingPattern = regexp.MustCompile(`(?m)^(#{1,3}\s.*)$`)

func splitByHeadings(markdown string) []string {
	indexes := headingPattern.FindAllStringIndex(markdown, -1)
	var chunks []string

	if len(indexes) == 0 {
		if trimmed := strings.TrimSpace(markdown); trimmed != "" {
			chunks = append(chunks, trimmed)
		}
		return chunks
	}

	if indexes[0][0] > 0 {
		if first := strings.TrimSpace(markdown[:indexes[0][0]]); first != "" {
			chunks = append(chunks, first)
		}
	}

	for i, index := range indexes {
		end := len(markdown)
		if i < len(indexes)-1 {
			end = indexes[i+1][0]
		}
		if chunk := strings.TrimSpace(markdown[index[0]:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
	}
	return chunks
}
