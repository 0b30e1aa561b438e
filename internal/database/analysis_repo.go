// internal/database/analysis_repo.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/brandlens/brandlens-workflows/internal/models"
)

// ErrAnalysisNotFound is returned when no matching analysis row exists.
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisRepo stores Analysis records. The result/analysis fields are jsonb
// blobs written wholesale; there is no row versioning, so concurrent writers
// for the same analysis are last-writer-wins.
type AnalysisRepo struct {
	db *sqlx.DB
}

func NewAnalysisRepo(db *sqlx.DB) *AnalysisRepo {
	return &AnalysisRepo{db: db}
}

type analysisRow struct {
	AnalysisID         uuid.UUID      `db:"analysis_id"`
	UserID             string         `db:"user_id"`
	CompanyName        string         `db:"company_name"`
	CompanyURL         string         `db:"company_url"`
	Competitors        []byte         `db:"competitors"`
	Topics             []byte         `db:"topics"`
	Prompts            []byte         `db:"prompts"`
	PromptResults      []byte         `db:"prompt_results"`
	CitationAnalysis   []byte         `db:"citation_analysis"`
	CompetitiveMetrics []byte         `db:"competitive_metrics"`
	LastRunAt          *time.Time     `db:"last_run_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

// Create inserts a new analysis row.
func (r *AnalysisRepo) Create(ctx context.Context, analysis *models.Analysis) error {
	row, err := toRow(analysis)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO analyses (
			analysis_id, user_id, company_name, company_url,
			competitors, topics, prompts,
			prompt_results, citation_analysis, competitive_metrics,
			last_run_at, created_at, updated_at
		) VALUES (
			:analysis_id, :user_id, :company_name, :company_url,
			:competitors, :topics, :prompts,
			:prompt_results, :citation_analysis, :competitive_metrics,
			:last_run_at, now(), now()
		)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

// GetLatestByUser returns the most recently created analysis for a user, or
// ErrAnalysisNotFound when the user has none.
func (r *AnalysisRepo) GetLatestByUser(ctx context.Context, userID string) (*models.Analysis, error) {
	var row analysisRow
	const query = `SELECT * FROM analyses WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`
	if err := r.db.GetContext(ctx, &row, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to load latest analysis for user %s: %w", userID, err)
	}
	return fromRow(&row)
}

// GetByID loads one analysis.
func (r *AnalysisRepo) GetByID(ctx context.Context, analysisID uuid.UUID) (*models.Analysis, error) {
	var row analysisRow
	const query = `SELECT * FROM analyses WHERE analysis_id = $1`
	if err := r.db.GetContext(ctx, &row, query, analysisID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAnalysisNotFound
		}
		return nil, fmt.Errorf("failed to load analysis %s: %w", analysisID, err)
	}
	return fromRow(&row)
}

// Update rewrites every mutable field of an analysis row. Callers do
// read-modify-write; the last writer wins.
func (r *AnalysisRepo) Update(ctx context.Context, analysis *models.Analysis) error {
	row, err := toRow(analysis)
	if err != nil {
		return err
	}

	const query = `
		UPDATE analyses SET
			company_name = :company_name,
			company_url = :company_url,
			competitors = :competitors,
			topics = :topics,
			prompts = :prompts,
			prompt_results = :prompt_results,
			citation_analysis = :citation_analysis,
			competitive_metrics = :competitive_metrics,
			last_run_at = :last_run_at,
			updated_at = now()
		WHERE analysis_id = :analysis_id`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update analysis %s: %w", analysis.AnalysisID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

// ListActiveUserIDs returns every user with at least one analysis, for the
// scheduled re-run sweep.
func (r *AnalysisRepo) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	var userIDs []string
	const query = `SELECT DISTINCT user_id FROM analyses ORDER BY user_id`
	if err := r.db.SelectContext(ctx, &userIDs, query); err != nil {
		return nil, fmt.Errorf("failed to list analysis users: %w", err)
	}
	return userIDs, nil
}

func toRow(analysis *models.Analysis) (*analysisRow, error) {
	row := &analysisRow{
		AnalysisID:  analysis.AnalysisID,
		UserID:      analysis.UserID,
		CompanyName: analysis.CompanyName,
		CompanyURL:  analysis.CompanyURL,
		LastRunAt:   analysis.LastRunAt,
	}

	var err error
	if row.Competitors, err = marshalOrEmptyList(analysis.Competitors); err != nil {
		return nil, err
	}
	if row.Topics, err = marshalOrEmptyList(analysis.Topics); err != nil {
		return nil, err
	}
	if row.Prompts, err = marshalOrEmptyList(analysis.Prompts); err != nil {
		return nil, err
	}
	if analysis.PromptResults != nil {
		if row.PromptResults, err = json.Marshal(analysis.PromptResults); err != nil {
			return nil, fmt.Errorf("failed to marshal prompt results: %w", err)
		}
	}
	if analysis.CitationAnalysis != nil {
		if row.CitationAnalysis, err = json.Marshal(analysis.CitationAnalysis); err != nil {
			return nil, fmt.Errorf("failed to marshal citation analysis: %w", err)
		}
	}
	if analysis.CompetitiveMetrics != nil {
		if row.CompetitiveMetrics, err = json.Marshal(analysis.CompetitiveMetrics); err != nil {
			return nil, fmt.Errorf("failed to marshal competitive metrics: %w", err)
		}
	}

	return row, nil
}

func fromRow(row *analysisRow) (*models.Analysis, error) {
	analysis := &models.Analysis{
		AnalysisID:  row.AnalysisID,
		UserID:      row.UserID,
		CompanyName: row.CompanyName,
		CompanyURL:  row.CompanyURL,
		LastRunAt:   row.LastRunAt,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}

	if err := json.Unmarshal(row.Competitors, &analysis.Competitors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal competitors: %w", err)
	}
	if err := json.Unmarshal(row.Topics, &analysis.Topics); err != nil {
		return nil, fmt.Errorf("failed to unmarshal topics: %w", err)
	}
	if err := json.Unmarshal(row.Prompts, &analysis.Prompts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prompts: %w", err)
	}
	if len(row.PromptResults) > 0 {
		if err := json.Unmarshal(row.PromptResults, &analysis.PromptResults); err != nil {
			return nil, fmt.Errorf("failed to unmarshal prompt results: %w", err)
		}
	}
	if len(row.CitationAnalysis) > 0 {
		if err := json.Unmarshal(row.CitationAnalysis, &analysis.CitationAnalysis); err != nil {
			return nil, fmt.Errorf("failed to unmarshal citation analysis: %w", err)
		}
	}
	if len(row.CompetitiveMetrics) > 0 {
		if err := json.Unmarshal(row.CompetitiveMetrics, &analysis.CompetitiveMetrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal competitive metrics: %w", err)
		}
	}

	return analysis, nil
}

func marshalOrEmptyList(v interface{}) ([]byte, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal field: %w", err)
	}
	if string(blob) == "null" {
		blob = []byte("[]")
	}
	return blob, nil
}
