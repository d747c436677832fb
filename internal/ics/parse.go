package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "campusweb/internal/log"
)

var ErrEmptyFeed = errors.New("empty ICS body")

// ParsedEvent is one VEVENT before recurrence expansion.
type ParsedEvent struct {
	Source Source

	UID         string
	Summary     string
	Description string
	Categories  []string

	Start  time.Time
	End    time.Time
	AllDay bool

	RawRRule string
	ExDates  []time.Time

	// Recurrence is the RECURRENCE-ID of an override instance.
	Recurrence *time.Time
	IsOverride bool
	Cancelled  bool
}

// ParseICS decodes a feed. Broken VEVENTs are logged and skipped; cancelled
// events are dropped unless they cancel a single recurring instance.
func ParseICS(src Source, body []byte) ([]ParsedEvent, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, ErrEmptyFeed
	}
	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Redacted(), err)
	}

	var (
		events    []ParsedEvent
		skipped   int
		cancelled int
	)
	for _, ve := range cal.Events() {
		ev, err := parseVEvent(src, ve)
		if err != nil {
			skipped++
			appLog.Warn("ics: skipping event", "id", src.ID, "error", err.Error())
			continue
		}
		if ev.Cancelled && !ev.IsOverride {
			cancelled++
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics: feed parsed",
		"id", src.ID,
		"events", len(events),
		"skipped", skipped,
		"cancelled", cancelled,
	)
	return events, nil
}

func textProp(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return strings.TrimSpace(prop.Value)
	}
	return ""
}

func parseVEvent(src Source, ve *ical.VEvent) (ParsedEvent, error) {
	ev := ParsedEvent{
		Source:      src,
		UID:         textProp(ve, ical.ComponentPropertyUniqueId),
		Summary:     textProp(ve, ical.ComponentPropertySummary),
		Description: textProp(ve, ical.ComponentPropertyDescription),
		RawRRule:    textProp(ve, ical.ComponentPropertyRrule),
		Cancelled:   strings.EqualFold(textProp(ve, "STATUS"), "CANCELLED"),
	}
	switch {
	case ev.UID == "":
		return ev, errors.New("missing UID")
	case ev.Summary == "":
		return ev, fmt.Errorf("%s: missing SUMMARY", ev.UID)
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, c := range strings.Split(p.Value, ",") {
			if c = strings.TrimSpace(c); c != "" {
				ev.Categories = append(ev.Categories, c)
			}
		}
	}

	if err := eventTimes(ve, &ev); err != nil {
		return ev, fmt.Errorf("%s: %w", ev.UID, err)
	}

	loc := ev.Start.Location()
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			if t, err := parseICSTime(part, loc); err == nil {
				ev.ExDates = append(ev.ExDates, t)
			}
		}
	}
	if rid := ve.GetProperty("RECURRENCE-ID"); rid != nil {
		if t, err := parseICSTime(rid.Value, loc); err == nil {
			ev.Recurrence = &t
			ev.IsOverride = true
		}
	}
	return ev, nil
}

// eventTimes fills Start, End and AllDay. An all-day DTSTART is either
// VALUE=DATE or a value without a time part. A missing DTEND lasts one day
// for all-day events and zero time otherwise.
func eventTimes(ve *ical.VEvent, ev *ParsedEvent) error {
	start := ve.GetProperty(ical.ComponentPropertyDtStart)
	if start == nil {
		return errors.New("missing DTSTART")
	}
	vals := start.ICalParameters["VALUE"]
	ev.AllDay = !strings.Contains(start.Value, "T") ||
		(len(vals) > 0 && strings.EqualFold(vals[0], "DATE"))

	var err error
	if ev.AllDay {
		ev.Start, err = ve.GetAllDayStartAt()
	} else {
		ev.Start, err = ve.GetStartAt()
	}
	if err != nil {
		return err
	}

	if ev.AllDay {
		ev.End, err = ve.GetAllDayEndAt()
	} else {
		ev.End, err = ve.GetEndAt()
	}
	if err == nil && !ev.End.IsZero() {
		return nil
	}
	if ev.AllDay {
		ev.End = ev.Start.AddDate(0, 0, 1)
	} else {
		ev.End = ev.Start
	}
	return nil
}

// parseICSTime parses a DATE or DATE-TIME value. Floating values are read
// in loc.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if loc == nil {
		loc = time.Local
	}
	switch {
	case v == "":
		return time.Time{}, errors.New("empty time value")
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}
