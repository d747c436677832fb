package calendar

import (
	"context"
	"sync/atomic"
	"time"

	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

// Clock returns the current wall-clock time. Tests inject a fixed clock.
type Clock func() time.Time

// Options configures a Service.
type Options struct {
	// Location defines which calendar date "today" is.
	Location *time.Location
	// StaleAfterDays is the threshold used by Stale.
	StaleAfterDays int
	// Clock defaults to time.Now.
	Clock Clock
}

// Service serves queries against the current Table. The table pointer is
// the only mutable state and is swapped atomically on reload; queries read
// the clock on every call.
type Service struct {
	table      atomic.Pointer[Table]
	loc        *time.Location
	staleAfter int
	now        Clock
}

// NewService creates a Service with no table loaded.
func NewService(opts Options) *Service {
	s := &Service{
		loc:        opts.Location,
		staleAfter: opts.StaleAfterDays,
		now:        opts.Clock,
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	if s.staleAfter <= 0 {
		s.staleAfter = DefaultStaleAfterDays
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Replace installs t as the current table.
func (s *Service) Replace(t *Table) {
	s.table.Store(t)
}

// Source produces fresh tables. *Loader is the production Source.
type Source interface {
	Load(ctx context.Context) (*Table, error)
}

// Reload builds a new table from src and swaps it in. On failure the
// current table is kept and the error returned.
func (s *Service) Reload(ctx context.Context, src Source) error {
	t, err := src.Load(ctx)
	if err != nil {
		appLog.Error("calendar: reload failed; keeping current table", err, "available", s.Available())
		return err
	}
	s.Replace(t)
	appLog.Info("calendar: table loaded",
		"year", t.Year,
		"events", len(t.Events),
		"last_updated", t.LastUpdated.String(),
	)
	return nil
}

// Table returns the current table, or nil if none could be loaded.
func (s *Service) Table() *Table {
	return s.table.Load()
}

// Available reports whether calendar data is loaded.
func (s *Service) Available() bool {
	return s.table.Load() != nil
}

// Now returns the clock's time in the configured location.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Today returns the current calendar date in the configured location.
func (s *Service) Today() model.Date {
	return model.DateOf(s.Now())
}

// Location returns the zone that defines "today".
func (s *Service) Location() *time.Location {
	return s.loc
}

// StaleAfterDays returns the configured staleness threshold.
func (s *Service) StaleAfterDays() int {
	return s.staleAfter
}

// IsRecent reports whether the calendar was updated within thresholdDays.
// Without data it reports false.
func (s *Service) IsRecent(thresholdDays int) bool {
	t := s.Table()
	if t == nil {
		return false
	}
	return t.IsRecent(s.Today(), thresholdDays)
}

// Stale is !IsRecent with the configured threshold.
func (s *Service) Stale() bool {
	return !s.IsRecent(s.staleAfter)
}

func (s *Service) EventsForMonth(year int, month time.Month) []model.Event {
	t := s.Table()
	if t == nil {
		return []model.Event{}
	}
	return t.EventsForMonth(year, month)
}

func (s *Service) EventsForDate(d model.Date) []model.Event {
	t := s.Table()
	if t == nil {
		return []model.Event{}
	}
	return t.EventsForDate(d)
}

func (s *Service) UpcomingEvents(limit int) []model.Event {
	t := s.Table()
	if t == nil {
		return []model.Event{}
	}
	return t.UpcomingEvents(s.Today(), limit)
}

func (s *Service) EventsByCategory(c model.Category) []model.Event {
	t := s.Table()
	if t == nil {
		return []model.Event{}
	}
	return t.EventsByCategory(c)
}

// ImportantDates returns the quick-reference list.
func (s *Service) ImportantDates() []model.ImportantDate {
	t := s.Table()
	if t == nil {
		return []model.ImportantDate{}
	}
	return t.ImportantDates
}

// MonthGrid builds the grid for year/month with today marked.
func (s *Service) MonthGrid(year int, month time.Month) Grid {
	return BuildMonthGrid(s.Table(), year, month, s.Today())
}

// Document returns the single-document descriptor.
func (s *Service) Document() (model.Document, bool) {
	t := s.Table()
	if t == nil || t.Document.URL == "" {
		return model.Document{}, false
	}
	return t.Document, true
}

// DocumentIsRecent applies the IsRecent rule to the document.
func (s *Service) DocumentIsRecent(thresholdDays int) bool {
	t := s.Table()
	if t == nil {
		return false
	}
	return t.DocumentIsRecent(s.Today(), thresholdDays)
}
