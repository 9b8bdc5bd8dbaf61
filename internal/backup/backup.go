// Package backup exports a user's applications as a JSON document and
// parses such documents back for import.
//
// Documents written by Export use snake_case keys. Parse also accepts the
// camelCase keys used by older browser-side exports (exportDate, userId,
// appliedDate).
package backup

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"

	"jobtracker/internal/models"
)

//go:embed schema.json
var schemaJSON []byte

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(schemaJSON))
})

// Document is the exported backup format.
type Document struct {
	ExportDate   time.Time            `json:"export_date"`
	UserID       uuid.UUID            `json:"user_id"`
	Applications []models.Application `json:"applications"`
}

// ValidationError lists the problems found in an import document.
type ValidationError struct {
	Errors []FieldError
}

// FieldError is a single problem at a document path such as
// "applications.2.company".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("invalid backup:")
	for i, err := range ve.Errors {
		if i > 0 {
			sb.WriteString(";")
		}
		sb.WriteString(fmt.Sprintf(" %s: %s", err.Field, err.Message))
	}
	return sb.String()
}

func (ve *ValidationError) add(field, message string) {
	ve.Errors = append(ve.Errors, FieldError{Field: field, Message: message})
}

// Export renders the user's applications as an indented backup document.
func Export(userID uuid.UUID, apps []models.Application, now time.Time) ([]byte, error) {
	if apps == nil {
		apps = []models.Application{}
	}
	return json.MarshalIndent(Document{
		ExportDate:   now.UTC(),
		UserID:       userID,
		Applications: apps,
	}, "", "  ")
}

// importedApplication accepts both key styles for the applied date.
type importedApplication struct {
	Company        string `json:"company"`
	Role           string `json:"role"`
	Status         string `json:"status"`
	AppliedDate    string `json:"applied_date"`
	AppliedDateOld string `json:"appliedDate"`
	Notes          string `json:"notes"`
}

// Parse validates a backup document and returns its applications. The
// returned applications carry no ID or owner; the caller assigns both.
// Problems with the document are reported as a *ValidationError.
func Parse(data []byte) ([]models.Application, error) {
	if !json.Valid(data) {
		return nil, &ValidationError{Errors: []FieldError{{Field: "(root)", Message: "document is not valid JSON"}}}
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to validate backup: %w", err)
	}
	if !result.Valid() {
		ve := &ValidationError{Errors: make([]FieldError, 0, len(result.Errors()))}
		for _, desc := range result.Errors() {
			field := desc.Field()
			if field == "" {
				field = "(root)"
			}
			ve.add(field, desc.Description())
		}
		return nil, ve
	}

	var doc struct {
		Applications []importedApplication `json:"applications"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}

	ve := &ValidationError{}
	apps := make([]models.Application, 0, len(doc.Applications))
	for i, in := range doc.Applications {
		prefix := fmt.Sprintf("applications.%d", i)

		status := models.StatusApplied
		if in.Status != "" {
			s, ok := models.NormalizeStatus(in.Status)
			if !ok {
				ve.add(prefix+".status", fmt.Sprintf("unknown status %q", in.Status))
				continue
			}
			status = s
		}

		raw := in.AppliedDate
		if raw == "" {
			raw = in.AppliedDateOld
		}
		if raw == "" {
			ve.add(prefix+".applied_date", "applied date is required")
			continue
		}
		applied, err := models.ParseAppliedDate(raw)
		if err != nil {
			ve.add(prefix+".applied_date", err.Error())
			continue
		}

		company, role := strings.TrimSpace(in.Company), strings.TrimSpace(in.Role)
		before := len(ve.Errors)
		if company == "" {
			ve.add(prefix+".company", "company must not be blank")
		}
		if role == "" {
			ve.add(prefix+".role", "role must not be blank")
		}
		if utf8.RuneCountInString(in.Notes) > models.MaxNotesLength {
			ve.add(prefix+".notes", fmt.Sprintf("notes must be at most %d characters", models.MaxNotesLength))
		}
		if len(ve.Errors) > before {
			continue
		}

		apps = append(apps, models.Application{
			Company:     company,
			Role:        role,
			Status:      status,
			AppliedDate: applied,
			Notes:       in.Notes,
		})
	}

	if len(ve.Errors) > 0 {
		return nil, ve
	}
	return apps, nil
}
