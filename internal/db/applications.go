package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"jobtracker/internal/models"
)

// applicationColumns is the standard column list for application queries.
const applicationColumns = `id, user_id, company, role, status, applied_date, notes,
	reminder_sent_at, created_at, updated_at`

// applicationOrder maps a filter sort to its ORDER BY clause.
var applicationOrder = map[string]string{
	models.SortByDate:    "applied_date DESC, created_at DESC",
	models.SortByCompany: "LOWER(company) ASC, applied_date DESC",
}

func scanApplication(row pgx.Row) (*models.Application, error) {
	var app models.Application
	err := row.Scan(
		&app.ID,
		&app.UserID,
		&app.Company,
		&app.Role,
		&app.Status,
		&app.AppliedDate,
		&app.Notes,
		&app.ReminderSentAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func scanApplications(rows pgx.Rows) ([]models.Application, error) {
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// CreateApplication inserts a new application owned by app.UserID.
func (d *DB) CreateApplication(ctx context.Context, app *models.Application) error {
	if app.Status == "" {
		app.Status = models.StatusApplied
	}
	if app.AppliedDate.IsZero() {
		now := time.Now().UTC()
		app.AppliedDate = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	query := `
		INSERT INTO applications (user_id, company, role, status, applied_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	return d.Pool.QueryRow(ctx, query,
		app.UserID,
		app.Company,
		app.Role,
		app.Status,
		app.AppliedDate,
		app.Notes,
	).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt)
}

// GetApplication retrieves one of the user's applications.
func (d *DB) GetApplication(ctx context.Context, userID, id uuid.UUID) (*models.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 AND user_id = $2`
	return scanApplication(d.Pool.QueryRow(ctx, query, id, userID))
}

// ListApplications returns the user's applications matching filter. The
// filter should already be normalized.
func (d *DB) ListApplications(ctx context.Context, userID uuid.UUID, filter models.ApplicationFilter) ([]models.Application, error) {
	order, ok := applicationOrder[filter.Sort]
	if !ok {
		order = applicationOrder[models.SortByDate]
	}

	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE user_id = $1
			AND ($2 = '' OR company ILIKE '%' || $2 || '%' OR role ILIKE '%' || $2 || '%')
			AND ($3 = '' OR status = $3)
		ORDER BY ` + order

	rows, err := d.Pool.Query(ctx, query, userID, escapeLike(filter.Query), filter.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return scanApplications(rows)
}

// UpdateApplication applies a partial update and returns the stored result.
func (d *DB) UpdateApplication(ctx context.Context, userID, id uuid.UUID, update models.ApplicationUpdate) (*models.Application, error) {
	query := `
		UPDATE applications SET
			company = COALESCE($3, company),
			role = COALESCE($4, role),
			status = COALESCE($5, status),
			applied_date = COALESCE($6, applied_date),
			notes = COALESCE($7, notes),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING ` + applicationColumns

	return scanApplication(d.Pool.QueryRow(ctx, query,
		id,
		userID,
		update.Company,
		update.Role,
		update.Status,
		update.AppliedDate,
		update.Notes,
	))
}

// DeleteApplication deletes one of the user's applications.
func (d *DB) DeleteApplication(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := d.Pool.Exec(ctx, `DELETE FROM applications WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}

// DeleteApplications deletes several of the user's applications in one
// statement and returns how many were removed. IDs the user does not own
// are ignored.
func (d *DB) DeleteApplications(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := d.Pool.Exec(ctx, `DELETE FROM applications WHERE user_id = $1 AND id = ANY($2)`, userID, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// InsertApplications bulk-inserts applications for the user in a single
// transaction. Every row gets a fresh ID and is owned by userID, whatever
// the input says. The slice is updated in place with the stored values.
func (d *DB) InsertApplications(ctx context.Context, userID uuid.UUID, apps []models.Application) error {
	if len(apps) == 0 {
		return nil
	}

	tx, err := d.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO applications (user_id, company, role, status, applied_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	for i := range apps {
		app := &apps[i]
		app.UserID = userID
		if app.Status == "" {
			app.Status = models.StatusApplied
		}
		if err := tx.QueryRow(ctx, query,
			app.UserID,
			app.Company,
			app.Role,
			app.Status,
			app.AppliedDate,
			app.Notes,
		).Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert application %d: %w", i, err)
		}
		app.ReminderSentAt = nil
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}
	return nil
}

// CountApplicationsByStatus returns application counts per status across all
// users.
func (d *DB) CountApplicationsByStatus(ctx context.Context) (map[string]int64, error) {
	rows, err := d.Pool.Query(ctx, `SELECT status, COUNT(*) FROM applications GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64, len(models.Statuses))
	for _, s := range models.Statuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// StaleApplication is an application awaiting a follow-up reminder, joined
// with its owner's contact details.
type StaleApplication struct {
	models.Application
	UserEmail string
	UserName  string
}

// GetStaleApplications returns applications still in the Applied status whose
// applied date is before cutoff and which have never triggered a reminder.
func (d *DB) GetStaleApplications(ctx context.Context, cutoff time.Time, limit int) ([]StaleApplication, error) {
	query := `
		SELECT a.id, a.user_id, a.company, a.role, a.status, a.applied_date, a.notes,
			a.reminder_sent_at, a.created_at, a.updated_at, u.email, u.name
		FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE a.status = $1
			AND a.applied_date < $2
			AND a.reminder_sent_at IS NULL
			AND u.email <> ''
		ORDER BY a.applied_date ASC
		LIMIT $3
	`

	rows, err := d.Pool.Query(ctx, query, models.StatusApplied, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []StaleApplication
	for rows.Next() {
		var s StaleApplication
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.Company, &s.Role, &s.Status, &s.AppliedDate, &s.Notes,
			&s.ReminderSentAt, &s.CreatedAt, &s.UpdatedAt, &s.UserEmail, &s.UserName,
		); err != nil {
			return nil, err
		}
		stale = append(stale, s)
	}
	return stale, rows.Err()
}

// MarkReminderSent records that a follow-up reminder went out.
func (d *DB) MarkReminderSent(ctx context.Context, id uuid.UUID) error {
	_, err := d.Pool.Exec(ctx, `UPDATE applications SET reminder_sent_at = NOW() WHERE id = $1`, id)
	return err
}
