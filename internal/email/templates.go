package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"jobtracker/internal/models"
)

// Templates provides email template generation.
type Templates struct {
	siteTitle string
	baseURL   string
}

// NewTemplates creates a new templates instance.
func NewTemplates(siteTitle, baseURL string) *Templates {
	return &Templates{siteTitle: siteTitle, baseURL: strings.TrimRight(baseURL, "/")}
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #2563eb; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 24px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .button { display: inline-block; background: #2563eb; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; margin: 10px 0; }
        table { width: 100%%; border-collapse: collapse; margin: 15px 0; background: white; }
        th, td { text-align: left; padding: 8px; border-bottom: 1px solid #e5e7eb; }
        th { color: #374151; }
        .status { color: #d97706; font-weight: 600; }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>This email was sent by %s</p>
        <p><a href="%s">%s</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(t.siteTitle), content, html.EscapeString(t.siteTitle), t.baseURL, t.baseURL)
}

// daysSince returns whole days between applied and now, never negative.
func daysSince(applied, now time.Time) int {
	d := int(now.Sub(applied).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}

// FollowUpReminder generates a digest of applications that have had no
// status change for a while.
func (t *Templates) FollowUpReminder(user *models.User, apps []models.Application, now time.Time) (subject, htmlBody, textBody string) {
	noun := "applications"
	if len(apps) == 1 {
		noun = "application"
	}
	subject = fmt.Sprintf("[%s] Time to follow up on %d %s", t.siteTitle, len(apps), noun)

	var rows, lines strings.Builder
	for _, app := range apps {
		days := daysSince(app.AppliedDate, now)
		fmt.Fprintf(&rows, `
                <tr><td>%s</td><td>%s</td><td class="status">%s</td><td>%s (%d days)</td></tr>`,
			html.EscapeString(app.Company),
			html.EscapeString(app.Role),
			html.EscapeString(app.Status),
			app.AppliedDate.Format(models.DateLayout),
			days,
		)
		fmt.Fprintf(&lines, "- %s, %s (%s, applied %s, %d days ago)\n",
			app.Company, app.Role, app.Status, app.AppliedDate.Format(models.DateLayout), days)
	}

	content := fmt.Sprintf(`
        <p>Hi %s,</p>
        <p>These applications have not moved in a while. A short follow-up note to the recruiter often helps.</p>

        <table>
            <thead>
                <tr><th>Company</th><th>Role</th><th>Status</th><th>Applied</th></tr>
            </thead>
            <tbody>%s
            </tbody>
        </table>

        <p style="text-align: center;">
            <a href="%s" class="button">Open your tracker</a>
        </p>
    `,
		html.EscapeString(user.DisplayName()),
		rows.String(),
		t.baseURL,
	)

	htmlBody = t.baseHTML(subject, content)

	textBody = fmt.Sprintf(`Hi %s,

These applications have not moved in a while:

%s
Open your tracker: %s

--
%s
%s`,
		user.DisplayName(),
		lines.String(),
		t.baseURL,
		t.siteTitle,
		t.baseURL,
	)

	return
}
