// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

// QdrantConfig holds the vector store connection settings
type QdrantConfig struct {
	Host string
	Port int
}

// TypesenseConfig holds the keyword index connection settings
type TypesenseConfig struct {
	Host   string
	Port   int
	APIKey string
}

// FirecrawlConfig holds the scraping service settings
type FirecrawlConfig struct {
	BaseURL string
	APIKey  string
}

// PipelineConfig holds the tuning knobs for the prompt-execution pipeline.
// The defaults match the production dashboard behavior; every knob is
// overridable through the environment.
type PipelineConfig struct {
	BatchSize          int // prompts processed concurrently per batch
	StaggerMs          int // per-provider start offset within a prompt
	InterBatchDelayMs  int // cooldown between batches
	RetryDefaultWaitMs int // backoff when a rate-limited provider gives no hint
	ProviderRPM        int // optional per-provider request limit, 0 = disabled
}

type Config struct {
	Port              string
	Environment       string
	InngestEventKey   string
	InngestSigningKey string
	OpenAIAPIKey      string
	AnthropicAPIKey   string
	PerplexityAPIKey  string
	DatabaseURL       string
	Providers         []string // enabled provider ids, in run order
	Database          DatabaseConfig
	Pipeline          PipelineConfig
	Qdrant            QdrantConfig
	Typesense         TypesenseConfig
	Firecrawl         FirecrawlConfig
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

func Load() *Config {
	config := &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		InngestEventKey:   os.Getenv("INNGEST_EVENT_KEY"),
		InngestSigningKey: os.Getenv("INNGEST_SIGNING_KEY"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		PerplexityAPIKey:  os.Getenv("PERPLEXITY_API_KEY"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		Providers:         parseProviderList(getEnv("PROVIDERS", "openai,anthropic,perplexity")),
	}

	// Parse database configuration
	dbConfig, err := parseDatabaseConfig()
	if err != nil {
		// If DATABASE_URL parsing fails, try individual env vars as fallback
		dbConfig = DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "brandlens"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		}
	}
	config.Database = dbConfig

	config.Pipeline = PipelineConfig{
		BatchSize:          getEnvInt("PIPELINE_BATCH_SIZE", 10),
		StaggerMs:          getEnvInt("PIPELINE_STAGGER_MS", 1500),
		InterBatchDelayMs:  getEnvInt("PIPELINE_BATCH_DELAY_MS", 10000),
		RetryDefaultWaitMs: getEnvInt("PIPELINE_RETRY_DEFAULT_WAIT_MS", 60000),
		ProviderRPM:        getEnvInt("PROVIDER_RPM", 0),
	}

	config.Qdrant = QdrantConfig{
		Host: getEnv("QDRANT_HOST", "qdrant"),
		Port: getEnvInt("QDRANT_PORT", 6334),
	}
	config.Typesense = TypesenseConfig{
		Host:   getEnv("TYPESENSE_HOST", "typesense"),
		Port:   getEnvInt("TYPESENSE_PORT", 8108),
		APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
	}
	config.Firecrawl = FirecrawlConfig{
		BaseURL: getEnv("FIRECRAWL_API_URL", "https://api.firecrawl.dev/v0"),
		APIKey:  os.Getenv("FIRECRAWL_API_KEY"),
	}

	return config
}

func parseProviderList(raw string) []string {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		if id := strings.TrimSpace(strings.ToLower(part)); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func parseDatabaseConfig() (DatabaseConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL not set")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	config := DatabaseConfig{
		Host:            parsedURL.Hostname(),
		Port:            5432, // default
		User:            parsedURL.User.Username(),
		Name:            strings.TrimPrefix(parsedURL.Path, "/"),
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
	}

	if password, ok := parsedURL.User.Password(); ok {
		config.Password = password
	}

	if parsedURL.Port() != "" {
		if port, err := strconv.Atoi(parsedURL.Port()); err == nil {
			config.Port = port
		}
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
