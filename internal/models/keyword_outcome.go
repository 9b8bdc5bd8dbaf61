package models

import "time"

// Keyword outcome constants
const (
	OutcomeMatched = "matched"
	OutcomeMissing = "missing"
)

// KeywordOutcome is a per-keyword count of how often a job-description
// keyword was found in, or missing from, analyzed resumes.
type KeywordOutcome struct {
	Keyword    string
	Outcome    string
	Count      int64
	LastSeenAt time.Time
}
