package calendar

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campusweb/internal/config"
	"campusweb/internal/ics"
	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

// ErrNoICSData is returned when every configured ICS source failed.
var ErrNoICSData = errors.New("no ICS source produced data")

// Loader rebuilds the calendar table from its configured sources: the YAML
// data file (or embedded default) and, when configured, ICS feeds whose
// events replace the YAML event list.
type Loader struct {
	File     string
	Sources  []ics.Source
	Fetcher  *ics.Fetcher
	Location *time.Location

	// WindowStart / WindowEnd bound recurring ICS expansion. Zero values
	// default to the July-June academic year around the YAML last_updated.
	WindowStart model.Date
	WindowEnd   model.Date
}

// NewLoader builds a Loader from configuration.
func NewLoader(cfg config.CalendarConfig, loc *time.Location) (*Loader, error) {
	l := &Loader{
		File:     cfg.File,
		Location: loc,
	}
	for i, c := range cfg.ICS {
		id := c.ID
		if id == "" {
			id = fmt.Sprintf("ics-%d", i+1)
		}
		l.Sources = append(l.Sources, ics.Source{ID: id, URL: c.URL, File: c.File})
	}
	if len(l.Sources) > 0 {
		l.Fetcher = ics.NewFetcher(cfg.CacheDir)
	}

	var err error
	if cfg.WindowStart != "" {
		if l.WindowStart, err = model.ParseDate(cfg.WindowStart); err != nil {
			return nil, fmt.Errorf("calendar.window_start: %w", err)
		}
	}
	if cfg.WindowEnd != "" {
		if l.WindowEnd, err = model.ParseDate(cfg.WindowEnd); err != nil {
			return nil, fmt.Errorf("calendar.window_end: %w", err)
		}
	}
	return l, nil
}

// Load builds a fresh, validated table.
func (l *Loader) Load(ctx context.Context) (*Table, error) {
	t, err := LoadFile(l.File)
	if err != nil {
		return nil, err
	}
	if len(l.Sources) == 0 {
		return t, nil
	}

	events, err := l.loadICS(ctx, t)
	if err != nil {
		return nil, err
	}

	merged := *t
	merged.Events = events
	if err := Validate(&merged); err != nil {
		return nil, fmt.Errorf("ics events: %w", err)
	}
	return &merged, nil
}

func (l *Loader) loadICS(ctx context.Context, base *Table) ([]model.Event, error) {
	results, errs := l.Fetcher.FetchAll(ctx, l.Sources)
	if len(results) == 0 {
		return nil, errors.Join(append([]error{ErrNoICSData}, errs...)...)
	}

	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			appLog.Error("calendar: ics parse failed for source", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	start, end := l.window(base)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		Location:   l.Location,
		RangeStart: start.Time(l.Location),
		RangeEnd:   end.Time(l.Location),
	})
	if err != nil {
		return nil, err
	}

	appLog.Info("calendar: ics events loaded",
		"sources", len(results),
		"occurrences", len(expanded.Occurrences),
		"truncated", len(expanded.TruncatedEvents),
	)
	return ics.ToEvents(expanded.Occurrences, l.Location, 1), nil
}

// window returns the expansion range. The default is the July-June
// academic year named by the table ("2024-25" starts in July 2024), or the
// one containing last_updated when the year label is not numeric.
func (l *Loader) window(base *Table) (model.Date, model.Date) {
	start, end := l.WindowStart, l.WindowEnd
	if start.IsZero() {
		year, err := strconv.Atoi(strings.SplitN(base.Year, "-", 2)[0])
		if err != nil || year < 1900 {
			year = base.LastUpdated.Year()
			if base.LastUpdated.Month() < time.July {
				year--
			}
		}
		start = model.NewDate(year, time.July, 1)
	}
	if end.IsZero() {
		end = model.NewDate(start.Year()+1, time.June, 30)
	}
	return start, end
}
