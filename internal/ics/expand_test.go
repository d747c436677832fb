package ics

import (
	"strings"
	"testing"
	"time"
)

const weeklyICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:lab@test
DTSTAMP:20240101T000000Z
DTSTART:20240903T100000Z
DTEND:20240903T120000Z
RRULE:FREQ=WEEKLY;COUNT=4
EXDATE:20240910T100000Z
SUMMARY:Lab Session
CATEGORIES:Academic,Lab
END:VEVENT
BEGIN:VEVENT
UID:lab@test
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240917T100000Z
DTSTART:20240918T140000Z
DTEND:20240918T160000Z
SUMMARY:Lab Session (moved)
END:VEVENT
END:VCALENDAR
`

func window() ExpandConfig {
	return ExpandConfig{
		Location:   time.UTC,
		RangeStart: time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		RangeEnd:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseICS(t *testing.T) {
	events, err := ParseICS(Source{ID: "t"}, []byte(weeklyICS))
	if err != nil {
		t.Fatalf("ParseICS failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 VEVENTs, got %d", len(events))
	}

	base := events[0]
	if base.IsOverride || base.RawRRule == "" || len(base.ExDates) != 1 {
		t.Errorf("base event parsed as %+v", base)
	}
	if len(base.Categories) != 2 || base.Categories[0] != "Academic" {
		t.Errorf("categories = %v", base.Categories)
	}
	if !events[1].IsOverride {
		t.Error("second VEVENT should be an override")
	}
}

func TestParseICSRejectsEmpty(t *testing.T) {
	if _, err := ParseICS(Source{ID: "t"}, nil); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestExpandRecurrenceWithExdateAndOverride(t *testing.T) {
	events, err := ParseICS(Source{ID: "t"}, []byte(weeklyICS))
	if err != nil {
		t.Fatalf("ParseICS failed: %v", err)
	}
	res, err := ExpandOccurrences(events, window())
	if err != nil {
		t.Fatalf("ExpandOccurrences failed: %v", err)
	}

	out := ToEvents(res.Occurrences, time.UTC, 10)
	want := []struct {
		title string
		date  string
	}{
		{"Lab Session", "2024-09-03"},
		{"Lab Session (moved)", "2024-09-18"},
		{"Lab Session", "2024-09-24"},
	}
	if len(out) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(out), len(want), out)
	}
	for i, w := range want {
		if out[i].Title != w.title || out[i].StartDate.String() != w.date || out[i].EndDate.String() != w.date {
			t.Errorf("event %d = %q %s..%s, want %q %s", i, out[i].Title, out[i].StartDate, out[i].EndDate, w.title, w.date)
		}
		if out[i].ID != 10+i {
			t.Errorf("event %d ID = %d", i, out[i].ID)
		}
	}
}

func TestCancelledEvents(t *testing.T) {
	feed := strings.Replace(weeklyICS, "END:VCALENDAR", `BEGIN:VEVENT
UID:lab@test
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240924T100000Z
DTSTART:20240924T100000Z
DTEND:20240924T120000Z
SUMMARY:Lab Session
STATUS:CANCELLED
END:VEVENT
BEGIN:VEVENT
UID:fest@test
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20241005
SUMMARY:Cultural Fest
STATUS:CANCELLED
END:VEVENT
END:VCALENDAR`, 1)

	events, err := ParseICS(Source{ID: "t"}, []byte(feed))
	if err != nil {
		t.Fatalf("ParseICS failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected the cancelled standalone event to be dropped, got %d events", len(events))
	}

	res, err := ExpandOccurrences(events, window())
	if err != nil {
		t.Fatalf("ExpandOccurrences failed: %v", err)
	}
	for _, occ := range res.Occurrences {
		if occ.Start.Day() == 24 {
			t.Errorf("cancelled instance expanded: %+v", occ)
		}
	}
	if len(res.Occurrences) != 2 {
		t.Errorf("got %d occurrences, want 2", len(res.Occurrences))
	}
}

func TestExpandCapsOccurrences(t *testing.T) {
	ev := ParsedEvent{
		UID:      "daily@test",
		Summary:  "Daily",
		Start:    time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC),
		End:      time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC),
		RawRRule: "FREQ=DAILY",
	}
	cfg := window()
	cfg.MaxOccurrencesPerEvent = 10

	res, err := ExpandOccurrences([]ParsedEvent{ev}, cfg)
	if err != nil {
		t.Fatalf("ExpandOccurrences failed: %v", err)
	}
	if len(res.Occurrences) != 10 {
		t.Errorf("got %d occurrences, want 10", len(res.Occurrences))
	}
	if len(res.TruncatedEvents) != 1 || res.TruncatedEvents[0] != "daily@test" {
		t.Errorf("TruncatedEvents = %v", res.TruncatedEvents)
	}
}

func TestToEventsTimedAcrossMidnight(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	occ := Occurrence{
		Summary: "Hackathon",
		Start:   time.Date(2024, 9, 6, 12, 0, 0, 0, time.UTC),  // 17:30 IST
		End:     time.Date(2024, 9, 7, 18, 30, 0, 0, time.UTC), // midnight IST
	}

	got := ToEvents([]Occurrence{occ}, ist, 1)[0]
	if got.StartDate.String() != "2024-09-06" || got.EndDate.String() != "2024-09-07" {
		t.Errorf("dates = %s..%s", got.StartDate, got.EndDate)
	}
	if got.Category != "other" {
		t.Errorf("category = %q", got.Category)
	}
}
