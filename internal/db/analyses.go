package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobtracker/internal/models"
)

const analysisColumns = `id, user_id, application_id, match_percentage, band,
	matched_keywords, missing_keywords, suggestions, resume_object_key, created_at`

// DefaultAnalysisLimit caps history listings when no limit is given.
const DefaultAnalysisLimit = 50

func scanAnalysis(row pgx.Row) (*models.Analysis, error) {
	var a models.Analysis
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.ApplicationID,
		&a.MatchPercentage,
		&a.Band,
		&a.MatchedKeywords,
		&a.MissingKeywords,
		&a.Suggestions,
		&a.ResumeObjectKey,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// CreateAnalysis stores an analysis report in the user's history.
func (d *DB) CreateAnalysis(ctx context.Context, a *models.Analysis) error {
	query := `
		INSERT INTO analyses (user_id, application_id, match_percentage, band,
			matched_keywords, missing_keywords, suggestions, resume_object_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	return d.Pool.QueryRow(ctx, query,
		a.UserID,
		a.ApplicationID,
		a.MatchPercentage,
		a.Band,
		nonNil(a.MatchedKeywords),
		nonNil(a.MissingKeywords),
		nonNil(a.Suggestions),
		a.ResumeObjectKey,
	).Scan(&a.ID, &a.CreatedAt)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ListAnalyses returns the user's most recent analyses, newest first.
func (d *DB) ListAnalyses(ctx context.Context, userID uuid.UUID, limit int) ([]models.Analysis, error) {
	if limit <= 0 {
		limit = DefaultAnalysisLimit
	}

	rows, err := d.Pool.Query(ctx, `
		SELECT `+analysisColumns+`
		FROM analyses
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	analyses := []models.Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		analyses = append(analyses, *a)
	}
	return analyses, rows.Err()
}

// GetAnalysis retrieves one of the user's analyses.
func (d *DB) GetAnalysis(ctx context.Context, userID, id uuid.UUID) (*models.Analysis, error) {
	return scanAnalysis(d.Pool.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM analyses WHERE id = $1 AND user_id = $2`, id, userID))
}

// DeleteAnalysis removes one of the user's analyses.
func (d *DB) DeleteAnalysis(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM analyses WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}
