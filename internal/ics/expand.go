package ics

import (
	"errors"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

const (
	defaultMaxOccurrencesPerEvent = 400
)

// Occurrence is a single concrete instance of a VEVENT after recurrence
// expansion. End is exclusive, as in ICS.
type Occurrence struct {
	SourceID   string
	UID        string
	Summary    string
	Desc       string
	Categories []string
	AllDay     bool
	Start      time.Time
	End        time.Time
}

// ExpandConfig controls how recurrence expansion is performed.
type ExpandConfig struct {
	// Location is the timezone in which occurrences are turned into
	// calendar dates. If nil, time.Local is used.
	Location *time.Location

	// RangeStart / RangeEnd define the inclusive time window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent is a safety cap to avoid infinite or extremely
	// large expansions. If zero, defaultMaxOccurrencesPerEvent is used.
	MaxOccurrencesPerEvent int
}

// ExpandResult wraps the list of expanded occurrences and optionally
// information about truncation.
type ExpandResult struct {
	Occurrences []Occurrence
	// TruncatedEvents records UIDs that hit the MaxOccurrencesPerEvent cap.
	TruncatedEvents []string
}

// ExpandOccurrences expands parsed VEVENTs into concrete occurrences inside
// the configured window. It handles single events, RRULE recurrence,
// EXDATE removal and RECURRENCE-ID overrides. Output is ordered by start
// time, then UID, so repeated loads assign the same event IDs.
func ExpandOccurrences(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("expand: RangeEnd is before RangeStart")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID, remembering first-seen order.
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	order := make([]string, 0)

	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			order = append(order, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	all := make([]Occurrence, 0)
	for _, uid := range order {
		ov := overridesByUID[uid]
		truncated := false

		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, ov, cfg)
			if hitCap {
				truncated = true
			}
			all = append(all, occ...)
		}

		if truncated {
			result.TruncatedEvents = append(result.TruncatedEvents, uid)
			appLog.Error("expand: truncated occurrences for UID due to cap",
				errors.New("max occurrences reached"),
				"uid", uid,
				"cap", cfg.MaxOccurrencesPerEvent,
			)
		}
	}

	slices.SortStableFunc(all, func(a, b Occurrence) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		if a.UID < b.UID {
			return -1
		}
		if a.UID > b.UID {
			return 1
		}
		return 0
	})

	result.Occurrences = all
	return result, nil
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingleEvent(ev, overrides, cfg), false
	}
	return expandRecurringEvent(ev, overrides, cfg)
}

func expandSingleEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []Occurrence {
	if !timeRangesOverlap(ev.Start, ev.End, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}

	if o, ok := findOverrideForStart(overrides, ev.Start); ok {
		if o.Cancelled {
			return nil
		}
		return []Occurrence{makeOccurrence(o, o.Start, o.End)}
	}
	return []Occurrence{makeOccurrence(ev, ev.Start, ev.End)}
}

func expandRecurringEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]Occurrence, bool) {
	out := make([]Occurrence, 0)
	hitCap := false

	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return out, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	rangeStart := cfg.RangeStart.In(ev.Start.Location())
	rangeEnd := cfg.RangeEnd.In(ev.Start.Location())
	occTimes := set.Between(rangeStart, rangeEnd, true)

	if len(occTimes) > cfg.MaxOccurrencesPerEvent {
		occTimes = occTimes[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	dur := ev.End.Sub(ev.Start)
	for _, occStart := range occTimes {
		occEnd := occStart.Add(dur)
		if ev.AllDay {
			// Keep whole-day spans across DST changes.
			days := int(dur.Hours()+12) / 24
			occStart = time.Date(occStart.Year(), occStart.Month(), occStart.Day(), 0, 0, 0, 0, occStart.Location())
			occEnd = occStart.AddDate(0, 0, max(days, 1))
		}

		if o, ok := findOverrideForStart(overrides, occStart); ok {
			if !o.Cancelled {
				out = append(out, makeOccurrence(o, o.Start, o.End))
			}
			continue
		}
		out = append(out, makeOccurrence(ev, occStart, occEnd))
	}

	return out, hitCap
}

// findOverrideForStart finds an override whose RECURRENCE-ID equals
// baseStart.
func findOverrideForStart(overrides []ParsedEvent, baseStart time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence == nil {
			continue
		}
		if ov.Recurrence.Equal(baseStart) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

func makeOccurrence(ev ParsedEvent, start, end time.Time) Occurrence {
	return Occurrence{
		SourceID:   ev.Source.ID,
		UID:        ev.UID,
		Summary:    ev.Summary,
		Desc:       ev.Description,
		Categories: ev.Categories,
		AllDay:     ev.AllDay,
		Start:      start,
		End:        end,
	}
}

func timeRangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	if aEnd.Before(bStart) {
		return false
	}
	if bEnd.Before(aStart) {
		return false
	}
	return true
}

// ToEvents converts occurrences into calendar events with inclusive date
// ranges. IDs are assigned sequentially from firstID. The exclusive ICS end
// becomes the previous calendar date for all-day events; a timed event
// ends on the date its last instant falls on.
func ToEvents(occs []Occurrence, loc *time.Location, firstID int) []model.Event {
	if loc == nil {
		loc = time.Local
	}

	out := make([]model.Event, 0, len(occs))
	for i, occ := range occs {
		var start, end model.Date
		if occ.AllDay {
			// All-day values are floating dates; read them in their own zone.
			start = model.DateOf(occ.Start)
			end = model.DateOf(occ.End).AddDays(-1)
		} else {
			start = model.DateOf(occ.Start.In(loc))
			last := occ.End
			if last.After(occ.Start) {
				last = last.Add(-time.Nanosecond)
			}
			end = model.DateOf(last.In(loc))
		}
		if end.Before(start) {
			end = start
		}

		category := model.CategoryOther
		if len(occ.Categories) > 0 {
			category = model.ParseCategory(occ.Categories[0])
		}

		out = append(out, model.Event{
			ID:          firstID + i,
			Title:       occ.Summary,
			StartDate:   start,
			EndDate:     end,
			Category:    category,
			Description: occ.Desc,
		})
	}
	return out
}
