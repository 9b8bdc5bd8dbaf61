package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Application status constants
const (
	StatusApplied   = "Applied"
	StatusInterview = "Interview"
	StatusOffer     = "Offer"
	StatusRejected  = "Rejected"
)

// Statuses lists every application status in pipeline order.
var Statuses = []string{StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// DateLayout is the calendar-date format used for applied dates on the wire.
const DateLayout = "2006-01-02"

// Field length limits, in characters, shared by the API and backup import.
const (
	MaxNameLength  = 200
	MaxNotesLength = 5000
)

// Sort orders accepted by ApplicationFilter.
const (
	SortByDate    = "date"
	SortByCompany = "company"
)

// Application is a single tracked job application.
type Application struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	Company        string     `json:"company"`
	Role           string     `json:"role"`
	Status         string     `json:"status"`
	AppliedDate    time.Time  `json:"applied_date"`
	Notes          string     `json:"notes"`
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ApplicationUpdate carries a partial update. Nil fields are left unchanged.
type ApplicationUpdate struct {
	Company     *string    `json:"company,omitempty"`
	Role        *string    `json:"role,omitempty"`
	Status      *string    `json:"status,omitempty"`
	AppliedDate *time.Time `json:"applied_date,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u ApplicationUpdate) IsEmpty() bool {
	return u.Company == nil && u.Role == nil && u.Status == nil && u.AppliedDate == nil && u.Notes == nil
}

// IsValidStatus reports whether status is one of Statuses, matched exactly.
func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// NormalizeStatus maps a status in any letter case to its canonical form.
func NormalizeStatus(status string) (string, bool) {
	status = strings.TrimSpace(status)
	for _, s := range Statuses {
		if strings.EqualFold(s, status) {
			return s, true
		}
	}
	return "", false
}

// ApplicationFilter narrows and orders a user's application list.
type ApplicationFilter struct {
	Query  string
	Status string
	Sort   string
}

// Normalize trims the filter, canonicalizes the status and defaults the sort.
// It returns an error for an unknown status or sort order.
func (f *ApplicationFilter) Normalize() error {
	f.Query = strings.TrimSpace(f.Query)

	if f.Status = strings.TrimSpace(f.Status); f.Status != "" && !strings.EqualFold(f.Status, "all") {
		status, ok := NormalizeStatus(f.Status)
		if !ok {
			return fmt.Errorf("unknown status %q", f.Status)
		}
		f.Status = status
	} else {
		f.Status = ""
	}

	switch f.Sort = strings.ToLower(strings.TrimSpace(f.Sort)); f.Sort {
	case "":
		f.Sort = SortByDate
	case SortByDate, SortByCompany:
	default:
		return fmt.Errorf("unknown sort %q", f.Sort)
	}
	return nil
}

// SortApplications orders apps in place. SortByCompany is ascending and
// case-insensitive; anything else sorts by applied date, newest first.
func SortApplications(apps []Application, order string) {
	if order == SortByCompany {
		sort.SliceStable(apps, func(i, j int) bool {
			return strings.ToLower(apps[i].Company) < strings.ToLower(apps[j].Company)
		})
		return
	}
	sort.SliceStable(apps, func(i, j int) bool {
		return apps[i].AppliedDate.After(apps[j].AppliedDate)
	})
}

// ParseAppliedDate accepts a calendar date (2006-01-02) or an RFC 3339
// timestamp and returns the UTC calendar date it falls on.
func ParseAppliedDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD or RFC 3339", s)
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}
