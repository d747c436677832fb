// Package export renders calendar data for download and the terminal.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"campusweb/internal/calendar"
)

// Sheet names in the workbook.
const (
	EventsSheet         = "Events"
	ImportantDatesSheet = "Important Dates"
)

// WriteWorkbook writes the events and important dates of t as an .xlsx
// workbook.
func WriteWorkbook(w io.Writer, t *calendar.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(EventsSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	if _, err := f.NewSheet(ImportantDatesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	// Events
	f.SetColWidth(EventsSheet, "A", "A", 6)
	f.SetColWidth(EventsSheet, "B", "B", 36)
	f.SetColWidth(EventsSheet, "C", "D", 12)
	f.SetColWidth(EventsSheet, "E", "E", 14)
	f.SetColWidth(EventsSheet, "F", "F", 48)

	header := []any{"ID", "Title", "Start", "End", "Category", "Description"}
	if err := f.SetSheetRow(EventsSheet, "A1", &header); err != nil {
		return err
	}
	f.SetCellStyle(EventsSheet, "A1", "F1", headerStyle)

	for i, e := range t.Events {
		row := []any{e.ID, e.Title, e.StartDate.String(), e.EndDate.String(), e.Category.Label(), e.Description}
		if err := f.SetSheetRow(EventsSheet, cell("A", i+2), &row); err != nil {
			return err
		}
	}

	// Important dates
	f.SetColWidth(ImportantDatesSheet, "A", "A", 32)
	f.SetColWidth(ImportantDatesSheet, "B", "C", 14)

	header = []any{"Title", "Date", "Category"}
	if err := f.SetSheetRow(ImportantDatesSheet, "A1", &header); err != nil {
		return err
	}
	f.SetCellStyle(ImportantDatesSheet, "A1", "C1", headerStyle)

	for i, d := range t.ImportantDates {
		row := []any{d.Title, d.Date.String(), d.Category.Label()}
		if err := f.SetSheetRow(ImportantDatesSheet, cell("A", i+2), &row); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
