package ics

import (
	"fmt"
	"io"
	"net/url"
	"time"

	ical "github.com/arran4/golang-ical"

	"campusweb/internal/model"
)

// ProductID identifies feeds produced by this server.
const ProductID = "-//campusweb//Academic Calendar//EN"

// ExportMeta describes the published feed.
type ExportMeta struct {
	Name        string
	Description string
	// BaseURL is the public site origin; its host scopes event UIDs.
	BaseURL  string
	Timezone string
}

// EventUID is the stable UID of an exported event.
func EventUID(e model.Event, baseURL string) string {
	host := "campusweb.local"
	if u, err := url.Parse(baseURL); err == nil && u.Hostname() != "" {
		host = u.Hostname()
	}
	return fmt.Sprintf("event-%d@%s", e.ID, host)
}

// BuildCalendar converts events into an iCalendar feed of all-day events.
// DTEND is the day after EndDate because ICS ends are exclusive.
func BuildCalendar(meta ExportMeta, events []model.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)
	if meta.Name != "" {
		cal.SetXWRCalName(meta.Name)
	}
	if meta.Description != "" {
		cal.SetXWRCalDesc(meta.Description)
	}
	if meta.Timezone != "" {
		cal.SetXWRTimezone(meta.Timezone)
	}
	cal.SetXPublishedTTL("PT6H")

	for _, e := range events {
		ev := cal.AddEvent(EventUID(e, meta.BaseURL))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetAllDayStartAt(e.StartDate.Time(time.UTC))
		ev.SetAllDayEndAt(e.EndDate.AddDays(1).Time(time.UTC))
		ev.SetSummary(e.Title)
		if e.Description != "" {
			ev.SetDescription(e.Description)
		}
		ev.SetProperty(ical.ComponentPropertyCategories, string(e.Category))
	}
	return cal
}

// WriteCalendar serializes the feed to w.
func WriteCalendar(w io.Writer, meta ExportMeta, events []model.Event, stamp time.Time) error {
	_, err := io.WriteString(w, BuildCalendar(meta, events, stamp).Serialize())
	return err
}
