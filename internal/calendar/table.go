// Package calendar holds the academic calendar table and the read-only
// queries the pages and the JSON API are built on.
//
// A Table is immutable once loaded. Reloading builds a new Table and swaps
// it into the Service; nothing edits events in place.
package calendar

import (
	"slices"
	"time"

	"campusweb/internal/model"
)

const (
	// DefaultStaleAfterDays is the staleness threshold used when none is
	// configured.
	DefaultStaleAfterDays = 30

	// DefaultUpcomingLimit is the number of upcoming events returned when
	// the caller does not ask for a specific count.
	DefaultUpcomingLimit = 5
)

// Table is one academic year's calendar: the event table, the
// quick-reference important dates, and the single-document descriptor used
// by the document variant.
type Table struct {
	Year           string                `yaml:"year" json:"year"`
	Title          string                `yaml:"title" json:"title"`
	Description    string                `yaml:"description" json:"description"`
	LastUpdated    model.Date            `yaml:"last_updated" json:"lastUpdated"`
	Events         []model.Event         `yaml:"events" json:"events"`
	ImportantDates []model.ImportantDate `yaml:"important_dates" json:"importantDates"`
	Document       model.Document        `yaml:"-" json:"document"`
}

// isRecent is shared by the table and the document staleness checks.
func isRecent(lastUpdated, today model.Date, thresholdDays int) bool {
	return today.DaysSince(lastUpdated) <= thresholdDays
}

// IsRecent reports whether the table was updated at most thresholdDays
// whole days before today.
func (t *Table) IsRecent(today model.Date, thresholdDays int) bool {
	return isRecent(t.LastUpdated, today, thresholdDays)
}

// DocumentIsRecent applies the IsRecent rule to the document descriptor.
func (t *Table) DocumentIsRecent(today model.Date, thresholdDays int) bool {
	return isRecent(t.Document.LastUpdated, today, thresholdDays)
}

// EventsForMonth returns the events whose start date falls in the given
// month. Only the start date is considered: an event running from
// October 31 to November 3 belongs to October here, even though the month
// grid shows it on the November days too.
func (t *Table) EventsForMonth(year int, month time.Month) []model.Event {
	return t.filter(func(e model.Event) bool {
		return e.StartDate.Year() == year && e.StartDate.Month() == month
	})
}

// EventsForDate returns the events whose inclusive [start, end] range
// contains d, in table order.
func (t *Table) EventsForDate(d model.Date) []model.Event {
	return t.filter(func(e model.Event) bool {
		return e.Covers(d)
	})
}

// UpcomingEvents returns up to limit events starting on or after today,
// ordered by start date. Events sharing a start date keep table order.
func (t *Table) UpcomingEvents(today model.Date, limit int) []model.Event {
	if limit <= 0 {
		limit = DefaultUpcomingLimit
	}

	out := t.filter(func(e model.Event) bool {
		return !e.StartDate.Before(today)
	})
	slices.SortStableFunc(out, func(a, b model.Event) int {
		return a.StartDate.Compare(b.StartDate)
	})

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// EventsByCategory returns the events of exactly category c, in table
// order. The result is empty, never nil, when nothing matches.
func (t *Table) EventsByCategory(c model.Category) []model.Event {
	return t.filter(func(e model.Event) bool {
		return e.Category == c
	})
}

// EventByID returns the event with the given identifier.
func (t *Table) EventByID(id int) (model.Event, bool) {
	for _, e := range t.Events {
		if e.ID == id {
			return e, true
		}
	}
	return model.Event{}, false
}

// ExportName is the download file name for the table, such as
// "academic-calendar-2024-25.pdf".
func (t *Table) ExportName(ext string) string {
	name := "academic-calendar"
	if t.Year != "" {
		name += "-" + t.Year
	}
	return name + "." + ext
}

func (t *Table) filter(keep func(model.Event) bool) []model.Event {
	out := make([]model.Event, 0)
	for _, e := range t.Events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
