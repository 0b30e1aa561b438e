// internal/database/client.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/brandlens/brandlens-workflows/internal/config"
)

// NewClient connects to Postgres with the pool settings from config.
func NewClient(ctx context.Context, cfg config.DatabaseConfig) (*sqlx.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode,
	)

	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

const analysesSchema = `
CREATE TABLE IF NOT EXISTS analyses (
    analysis_id         UUID PRIMARY KEY,
    user_id             TEXT NOT NULL,
    company_name        TEXT NOT NULL,
    company_url         TEXT NOT NULL DEFAULT '',
    competitors         JSONB NOT NULL DEFAULT '[]',
    topics              JSONB NOT NULL DEFAULT '[]',
    prompts             JSONB NOT NULL DEFAULT '[]',
    prompt_results      JSONB,
    citation_analysis   JSONB,
    competitive_metrics JSONB,
    last_run_at         TIMESTAMPTZ,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_analyses_user_created ON analyses (user_id, created_at DESC);
`

// EnsureSchema creates the analyses table when it does not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, analysesSchema); err != nil {
		return fmt.Errorf("failed to ensure analyses schema: %w", err)
	}
	return nil
}
