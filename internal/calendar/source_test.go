package calendar

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"campusweb/internal/config"
	"campusweb/internal/model"
)

func TestLoaderWithoutSources(t *testing.T) {
	l, err := NewLoader(config.CalendarConfig{}, time.UTC)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	if l.Fetcher != nil {
		t.Error("fetcher should not be created without ICS sources")
	}

	tbl, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(tbl.Events) != 18 {
		t.Errorf("expected the 18 default events, got %d", len(tbl.Events))
	}
}

func TestLoaderICSReplacesEvents(t *testing.T) {
	cfg := config.CalendarConfig{
		ICS:      []config.ICSConfig{{File: filepath.Join("testdata", "extra.ics")}},
		CacheDir: t.TempDir(),
	}
	l, err := NewLoader(cfg, time.UTC)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}
	if l.Sources[0].ID != "ics-1" {
		t.Errorf("source ID = %q, want ics-1", l.Sources[0].ID)
	}

	tbl, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := []struct {
		title    string
		start    string
		end      string
		category model.Category
	}{
		{"Orientation", "2024-07-15", "2024-07-15", model.CategoryAcademic},
		{"Library Week", "2024-08-01", "2024-08-01", model.CategoryOther},
		{"Library Week", "2024-08-08", "2024-08-08", model.CategoryOther},
		{"Library Week", "2024-08-15", "2024-08-15", model.CategoryOther},
		{"CIA 1", "2024-09-02", "2024-09-07", model.CategoryExam},
	}
	if len(tbl.Events) != len(want) {
		t.Fatalf("got %d events %v, want %d", len(tbl.Events), titles(tbl.Events), len(want))
	}
	for i, w := range want {
		e := tbl.Events[i]
		if e.ID != i+1 {
			t.Errorf("event %d: ID = %d", i, e.ID)
		}
		if e.Title != w.title || e.StartDate.String() != w.start || e.EndDate.String() != w.end || e.Category != w.category {
			t.Errorf("event %d = %s %s..%s %s, want %s %s..%s %s",
				i, e.Title, e.StartDate, e.EndDate, e.Category, w.title, w.start, w.end, w.category)
		}
	}

	// YAML metadata survives the merge.
	if tbl.Year != "2024-25" || len(tbl.ImportantDates) != 6 {
		t.Errorf("metadata lost: year=%q important=%d", tbl.Year, len(tbl.ImportantDates))
	}
	got := titles(tbl.EventsForDate(model.MustParseDate("2024-09-05")))
	if !slices.Equal(got, []string{"CIA 1"}) {
		t.Errorf("EventsForDate(2024-09-05) = %v", got)
	}
}

func TestLoaderAllSourcesFail(t *testing.T) {
	cfg := config.CalendarConfig{
		ICS:      []config.ICSConfig{{ID: "missing", File: filepath.Join(t.TempDir(), "none.ics")}},
		CacheDir: t.TempDir(),
	}
	l, err := NewLoader(cfg, time.UTC)
	if err != nil {
		t.Fatalf("NewLoader failed: %v", err)
	}

	_, err = l.Load(context.Background())
	if !errors.Is(err, ErrNoICSData) {
		t.Errorf("expected ErrNoICSData, got %v", err)
	}
}

func TestLoaderWindow(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.CalendarConfig
		year      string
		updated   string
		wantStart string
		wantEnd   string
	}{
		{"from year label", config.CalendarConfig{}, "2024-25", "2024-01-15", "2024-07-01", "2025-06-30"},
		{"from last_updated", config.CalendarConfig{}, "current", "2024-01-15", "2023-07-01", "2024-06-30"},
		{"from last_updated after july", config.CalendarConfig{}, "", "2024-08-15", "2024-07-01", "2025-06-30"},
		{"explicit", config.CalendarConfig{WindowStart: "2024-01-01", WindowEnd: "2024-12-31"}, "2024-25", "2024-01-15", "2024-01-01", "2024-12-31"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := NewLoader(tt.cfg, time.UTC)
			if err != nil {
				t.Fatalf("NewLoader failed: %v", err)
			}
			start, end := l.window(&Table{Year: tt.year, LastUpdated: model.MustParseDate(tt.updated)})
			if start.String() != tt.wantStart || end.String() != tt.wantEnd {
				t.Errorf("window = %s..%s, want %s..%s", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestNewLoaderBadWindow(t *testing.T) {
	if _, err := NewLoader(config.CalendarConfig{WindowStart: "July"}, time.UTC); err == nil {
		t.Error("expected error for malformed window_start")
	}
}
