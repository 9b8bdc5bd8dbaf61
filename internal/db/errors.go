package db

import "errors"

// Domain-level database error sentinels.
var (
	// Application errors
	ErrApplicationNotFound = errors.New("application not found")

	// Analysis errors
	ErrAnalysisNotFound = errors.New("analysis not found")

	// User errors
	ErrUserNotFound = errors.New("user not found")
)
