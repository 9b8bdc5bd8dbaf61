package email

import (
	"context"
	"errors"
	"time"

	"jobtracker/internal/config"
	"jobtracker/internal/models"
)

// ErrDisabled is returned when a notification is requested but SMTP is not
// configured.
var ErrDisabled = errors.New("email disabled")

// Sender delivers a rendered message.
type Sender interface {
	IsEnabled() bool
	Send(to []string, subject, htmlBody, textBody string) error
}

// Notifier sends email notifications for application events.
type Notifier struct {
	sender    Sender
	templates *Templates
	now       func() time.Time
}

// NewNotifier creates a new email notifier backed by an SMTP service.
func NewNotifier(cfg *config.Config) *Notifier {
	return newNotifier(NewService(cfg), NewTemplates(cfg.SiteTitle, cfg.BaseURL))
}

func newNotifier(sender Sender, templates *Templates) *Notifier {
	return &Notifier{
		sender:    sender,
		templates: templates,
		now:       time.Now,
	}
}

// IsEnabled reports whether notifications will actually be delivered.
func (n *Notifier) IsEnabled() bool {
	return n.sender.IsEnabled()
}

// SendFollowUpReminder emails user a digest of stale applications. It
// delivers synchronously so callers can record which reminders went out.
func (n *Notifier) SendFollowUpReminder(ctx context.Context, user *models.User, apps []models.Application) error {
	if !n.sender.IsEnabled() {
		return ErrDisabled
	}
	if len(apps) == 0 || user.Email == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, htmlBody, textBody := n.templates.FollowUpReminder(user, apps, n.now())
	return n.sender.Send([]string{user.Email}, subject, htmlBody, textBody)
}
