package calendar

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"campusweb/internal/model"
)

// Calendar data validation errors.
var (
	ErrNoEvents          = errors.New("calendar has no events")
	ErrMissingUpdated    = errors.New("last_updated is required")
	ErrDuplicateEventID  = errors.New("duplicate event id")
	ErrMissingEventDates = errors.New("start_date and end_date are required")
	ErrEndBeforeStart    = errors.New("end_date precedes start_date")
	ErrMissingTitle      = errors.New("title is required")
)

//go:embed default_calendar.yaml
var defaultCalendar []byte

// dataFile is the on-disk shape of a calendar data file.
type dataFile struct {
	Current  *Table         `yaml:"current"`
	Document model.Document `yaml:"document"`
}

// DefaultData returns the embedded sample calendar data.
func DefaultData() []byte {
	return bytes.Clone(defaultCalendar)
}

// LoadFile reads and validates a YAML calendar data file. An empty path
// loads the embedded default.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return Parse(defaultCalendar)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar data: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes and validates calendar YAML.
func Parse(data []byte) (*Table, error) {
	var f dataFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode calendar data: %w", err)
	}
	if f.Current == nil {
		return nil, errors.New("calendar data has no current section")
	}

	t := f.Current
	t.Document = f.Document
	if t.ImportantDates == nil {
		t.ImportantDates = []model.ImportantDate{}
	}
	for i := range t.Events {
		if t.Events[i].Category == "" {
			t.Events[i].Category = model.CategoryOther
		}
	}
	if err := Validate(t); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the table invariants: unique event IDs, both dates
// present, end never before start.
func Validate(t *Table) error {
	if t.LastUpdated.IsZero() {
		return ErrMissingUpdated
	}
	if len(t.Events) == 0 {
		return ErrNoEvents
	}

	seen := make(map[int]struct{}, len(t.Events))
	for _, e := range t.Events {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("event %d: %w", e.ID, ErrDuplicateEventID)
		}
		seen[e.ID] = struct{}{}

		if e.Title == "" {
			return fmt.Errorf("event %d: %w", e.ID, ErrMissingTitle)
		}
		if e.StartDate.IsZero() || e.EndDate.IsZero() {
			return fmt.Errorf("event %d: %w", e.ID, ErrMissingEventDates)
		}
		if e.EndDate.Before(e.StartDate) {
			return fmt.Errorf("event %d (%s..%s): %w", e.ID, e.StartDate, e.EndDate, ErrEndBeforeStart)
		}
		if !e.Category.Valid() {
			return fmt.Errorf("event %d: unknown category %q", e.ID, e.Category)
		}
	}
	return nil
}
