// Package jobs runs background work alongside the HTTP server.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"jobtracker/internal/db"
	"jobtracker/internal/models"
)

// reminderBatchSize bounds how many stale applications one pass handles.
const reminderBatchSize = 200

// ReminderStore is the persistence the reminder job needs.
type ReminderStore interface {
	GetStaleApplications(ctx context.Context, cutoff time.Time, limit int) ([]db.StaleApplication, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID) error
}

// ReminderNotifier delivers a follow-up digest to one user.
type ReminderNotifier interface {
	SendFollowUpReminder(ctx context.Context, user *models.User, apps []models.Application) error
}

// ReminderJob periodically emails users about applications that have sat in
// the Applied status for too long. Each application is reminded at most once.
type ReminderJob struct {
	store      ReminderStore
	notifier   ReminderNotifier
	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewReminderJob creates a new reminder job.
func NewReminderJob(store ReminderStore, notifier ReminderNotifier, interval, staleAfter time.Duration) *ReminderJob {
	return &ReminderJob{
		store:      store,
		notifier:   notifier,
		interval:   interval,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Start runs the reminder loop until ctx is canceled.
func (j *ReminderJob) Start(ctx context.Context) {
	slog.Info("reminder job started", "interval", j.interval, "stale_after", j.staleAfter)

	// Run immediately on start
	j.run(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reminder job stopped")
			return
		case <-ticker.C:
			j.run(ctx)
		}
	}
}

func (j *ReminderJob) run(ctx context.Context) {
	sent, err := j.RunOnce(ctx)
	if err != nil {
		slog.Error("reminder job: pass failed", "error", err)
		return
	}
	if sent > 0 {
		slog.Info("reminder job: reminders sent", "users", sent)
	}
}

type userBatch struct {
	user *models.User
	apps []models.Application
}

// RunOnce performs a single pass and returns how many users were emailed.
// A failed delivery leaves that user's applications unmarked so the next
// pass retries them.
func (j *ReminderJob) RunOnce(ctx context.Context) (int, error) {
	cutoff := j.now().Add(-j.staleAfter)
	stale, err := j.store.GetStaleApplications(ctx, cutoff, reminderBatchSize)
	if err != nil {
		return 0, err
	}
	if len(stale) == 0 {
		return 0, nil
	}

	var order []uuid.UUID
	batches := make(map[uuid.UUID]*userBatch)
	for _, s := range stale {
		b, ok := batches[s.UserID]
		if !ok {
			b = &userBatch{user: &models.User{ID: s.UserID, Email: s.UserEmail, Name: s.UserName}}
			batches[s.UserID] = b
			order = append(order, s.UserID)
		}
		b.apps = append(b.apps, s.Application)
	}

	sent := 0
	for _, userID := range order {
		if err := ctx.Err(); err != nil {
			return sent, err
		}

		b := batches[userID]
		if err := j.notifier.SendFollowUpReminder(ctx, b.user, b.apps); err != nil {
			slog.Warn("reminder job: send failed", "user_id", userID, "error", err)
			continue
		}
		for _, app := range b.apps {
			if err := j.store.MarkReminderSent(ctx, app.ID); err != nil {
				slog.Warn("reminder job: failed to mark reminder", "application_id", app.ID, "error", err)
			}
		}
		sent++
	}
	return sent, nil
}
