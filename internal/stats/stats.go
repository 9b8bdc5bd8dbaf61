// Package stats computes dashboard aggregates over a user's applications.
package stats

import (
	"time"

	"jobtracker/internal/models"
)

const (
	// WeekDays is the number of days covered by the weekly activity series.
	WeekDays = 7
	// RecentLimit is the number of recent applications shown.
	RecentLimit = 5
)

// DayCount is the number of applications submitted on one calendar day.
type DayCount struct {
	Day   string `json:"day"`  // short weekday, e.g. "Mon"
	Date  string `json:"date"` // 2006-01-02
	Count int    `json:"count"`
}

// Dashboard is the aggregate view of a user's applications.
type Dashboard struct {
	Total    int                  `json:"total_applications"`
	ByStatus map[string]int       `json:"by_status"`
	Weekly   []DayCount           `json:"weekly"`
	Recent   []models.Application `json:"recent"`
}

// Count returns the number of applications with the given status.
func (d Dashboard) Count(status string) int {
	return d.ByStatus[status]
}

// Compute builds the dashboard for apps as of now. Days are UTC calendar
// days; the weekly series ends with the day containing now.
func Compute(apps []models.Application, now time.Time) Dashboard {
	d := Dashboard{
		Total:    len(apps),
		ByStatus: make(map[string]int, len(models.Statuses)),
		Weekly:   make([]DayCount, WeekDays),
	}
	for _, s := range models.Statuses {
		d.ByStatus[s] = 0
	}

	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	index := make(map[string]int, WeekDays)
	for i := 0; i < WeekDays; i++ {
		day := today.AddDate(0, 0, i-(WeekDays-1))
		date := day.Format(models.DateLayout)
		d.Weekly[i] = DayCount{Day: day.Format("Mon"), Date: date}
		index[date] = i
	}

	for _, app := range apps {
		if models.IsValidStatus(app.Status) {
			d.ByStatus[app.Status]++
		}
		if i, ok := index[app.AppliedDate.UTC().Format(models.DateLayout)]; ok {
			d.Weekly[i].Count++
		}
	}

	d.Recent = Recent(apps, RecentLimit)
	return d
}

// Recent returns up to n applications with the latest applied dates, newest
// first. The input slice is not modified.
func Recent(apps []models.Application, n int) []models.Application {
	sorted := make([]models.Application, len(apps))
	copy(sorted, apps)
	models.SortApplications(sorted, models.SortByDate)
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
