package db

import (
	"context"

	"jobtracker/internal/models"
)

// IncrementKeywordOutcome upserts a keyword count by outcome.
func (d *DB) IncrementKeywordOutcome(ctx context.Context, keyword, outcome string) error {
	_, err := d.Pool.Exec(ctx, `
		INSERT INTO keyword_outcomes (keyword, outcome, count, last_seen_at)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (keyword, outcome) DO UPDATE
		SET count = keyword_outcomes.count + 1, last_seen_at = NOW()
	`, keyword, outcome)
	return err
}

// GetKeywordOutcomes returns all keyword outcome rows for metrics export.
func (d *DB) GetKeywordOutcomes(ctx context.Context) ([]models.KeywordOutcome, error) {
	rows, err := d.Pool.Query(ctx, `SELECT keyword, outcome, count, last_seen_at FROM keyword_outcomes`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.KeywordOutcome
	for rows.Next() {
		var o models.KeywordOutcome
		if err := rows.Scan(&o.Keyword, &o.Outcome, &o.Count, &o.LastSeenAt); err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}
