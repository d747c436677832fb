package calendar

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCalendarFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write calendar file: %v", err)
	}
	return path
}

const minimalCalendar = `
current:
  year: "2025-26"
  title: "Test Calendar"
  last_updated: 2025-06-01
  events:
    - id: 1
      title: "Orientation"
      start_date: 2025-07-14
      end_date: 2025-07-14
`

func TestLoadFileMinimal(t *testing.T) {
	tbl, err := LoadFile(writeCalendarFile(t, minimalCalendar))
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if len(tbl.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(tbl.Events))
	}
	if tbl.Events[0].Category != "other" {
		t.Errorf("missing type should default to other, got %q", tbl.Events[0].Category)
	}
	if tbl.ImportantDates == nil {
		t.Error("ImportantDates should be an empty slice, not nil")
	}
	if tbl.Document.URL != "" {
		t.Errorf("unexpected document %+v", tbl.Document)
	}
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		events  string
		updated string
		wantErr error
	}{
		{
			name:    "no events",
			events:  "  events: []\n",
			updated: "2024-01-15",
			wantErr: ErrNoEvents,
		},
		{
			name: "duplicate id",
			events: `  events:
    - {id: 1, title: A, start_date: 2024-08-01, end_date: 2024-08-01}
    - {id: 1, title: B, start_date: 2024-08-02, end_date: 2024-08-02}
`,
			updated: "2024-01-15",
			wantErr: ErrDuplicateEventID,
		},
		{
			name: "end before start",
			events: `  events:
    - {id: 1, title: A, start_date: 2024-08-05, end_date: 2024-08-01}
`,
			updated: "2024-01-15",
			wantErr: ErrEndBeforeStart,
		},
		{
			name: "missing end date",
			events: `  events:
    - {id: 1, title: A, start_date: 2024-08-05}
`,
			updated: "2024-01-15",
			wantErr: ErrMissingEventDates,
		},
		{
			name: "missing title",
			events: `  events:
    - {id: 1, start_date: 2024-08-05, end_date: 2024-08-05}
`,
			updated: "2024-01-15",
			wantErr: ErrMissingTitle,
		},
		{
			name: "missing last_updated",
			events: `  events:
    - {id: 1, title: A, start_date: 2024-08-05, end_date: 2024-08-05}
`,
			wantErr: ErrMissingUpdated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b strings.Builder
			b.WriteString("current:\n  year: \"2024-25\"\n")
			if tt.updated != "" {
				b.WriteString("  last_updated: " + tt.updated + "\n")
			}
			b.WriteString(tt.events)

			_, err := Parse([]byte(b.String()))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"no current section", "document:\n  title: x\n"},
		{"unknown field", minimalCalendar + "  colour: red\n"},
		{"unknown category", strings.Replace(minimalCalendar, "end_date: 2025-07-14", "end_date: 2025-07-14\n      type: party", 1)},
		{"bad date", strings.Replace(minimalCalendar, "2025-07-14\n      end_date", "2025-13-14\n      end_date", 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.body)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

func TestDefaultDataIsACopy(t *testing.T) {
	a := DefaultData()
	a[0] = 'X'
	if DefaultData()[0] == 'X' {
		t.Error("DefaultData returned the embedded slice")
	}
}
