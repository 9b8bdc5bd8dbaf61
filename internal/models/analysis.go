package models

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is a saved resume-vs-job-description report.
type Analysis struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	ApplicationID   *uuid.UUID `json:"application_id,omitempty"`
	MatchPercentage int        `json:"match_percentage"`
	Band            string     `json:"band"`
	MatchedKeywords []string   `json:"matched_keywords"`
	MissingKeywords []string   `json:"missing_keywords"`
	Suggestions     []string   `json:"suggestions"`
	ResumeObjectKey string     `json:"resume_object_key,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}
