package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/db"
	"jobtracker/internal/models"
)

type fakeStore struct {
	stale   []db.StaleApplication
	err     error
	cutoff  time.Time
	limit   int
	marked  []uuid.UUID
	markErr error
}

func (f *fakeStore) GetStaleApplications(_ context.Context, cutoff time.Time, limit int) ([]db.StaleApplication, error) {
	f.cutoff = cutoff
	f.limit = limit
	return f.stale, f.err
}

func (f *fakeStore) MarkReminderSent(_ context.Context, id uuid.UUID) error {
	f.marked = append(f.marked, id)
	return f.markErr
}

type sentReminder struct {
	user *models.User
	apps []models.Application
}

type fakeNotifier struct {
	sent   []sentReminder
	failOn map[string]bool
}

func (f *fakeNotifier) SendFollowUpReminder(_ context.Context, user *models.User, apps []models.Application) error {
	if f.failOn[user.Email] {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, sentReminder{user, apps})
	return nil
}

func staleApp(userID uuid.UUID, email, company string) db.StaleApplication {
	return db.StaleApplication{
		Application: models.Application{ID: uuid.New(), UserID: userID, Company: company, Status: models.StatusApplied},
		UserEmail:   email,
		UserName:    "User " + email,
	}
}

func TestReminderJob_RunOnce_GroupsByUser(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	store := &fakeStore{stale: []db.StaleApplication{
		staleApp(alice, "alice@example.com", "Acme"),
		staleApp(bob, "bob@example.com", "Globex"),
		staleApp(alice, "alice@example.com", "Initech"),
	}}
	notifier := &fakeNotifier{}
	now := time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC)

	job := NewReminderJob(store, notifier, time.Hour, 14*24*time.Hour)
	job.now = func() time.Time { return now }

	sent, err := job.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, sent)
	assert.Equal(t, now.Add(-14*24*time.Hour), store.cutoff)
	assert.Equal(t, reminderBatchSize, store.limit)

	require.Len(t, notifier.sent, 2)
	assert.Equal(t, "alice@example.com", notifier.sent[0].user.Email)
	assert.Equal(t, "User alice@example.com", notifier.sent[0].user.Name)
	require.Len(t, notifier.sent[0].apps, 2)
	assert.Equal(t, "Acme", notifier.sent[0].apps[0].Company)
	assert.Equal(t, "Initech", notifier.sent[0].apps[1].Company)
	assert.Equal(t, "bob@example.com", notifier.sent[1].user.Email)

	assert.Len(t, store.marked, 3)
}

func TestReminderJob_RunOnce_FailedSendNotMarked(t *testing.T) {
	alice, bob := uuid.New(), uuid.New()
	a := staleApp(alice, "alice@example.com", "Acme")
	b := staleApp(bob, "bob@example.com", "Globex")
	store := &fakeStore{stale: []db.StaleApplication{a, b}}
	notifier := &fakeNotifier{failOn: map[string]bool{"alice@example.com": true}}

	sent, err := NewReminderJob(store, notifier, time.Hour, time.Hour).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []uuid.UUID{b.ID}, store.marked)
}

func TestReminderJob_RunOnce_NothingStale(t *testing.T) {
	store := &fakeStore{}
	notifier := &fakeNotifier{}

	sent, err := NewReminderJob(store, notifier, time.Hour, time.Hour).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Zero(t, sent)
	assert.Empty(t, notifier.sent)
}

func TestReminderJob_RunOnce_StoreError(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}

	_, err := NewReminderJob(store, &fakeNotifier{}, time.Hour, time.Hour).RunOnce(context.Background())
	assert.EqualError(t, err, "db down")
}

func TestReminderJob_RunOnce_CanceledContext(t *testing.T) {
	store := &fakeStore{stale: []db.StaleApplication{staleApp(uuid.New(), "a@example.com", "Acme")}}
	notifier := &fakeNotifier{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sent, err := NewReminderJob(store, notifier, time.Hour, time.Hour).RunOnce(ctx)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sent)
	assert.Empty(t, store.marked)
}

func TestReminderJob_Start_StopsOnCancel(t *testing.T) {
	store := &fakeStore{}
	job := NewReminderJob(store, &fakeNotifier{}, time.Millisecond, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
