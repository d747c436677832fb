package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"campusweb/internal/model"
)

var eventHeader = []string{"START", "END", "CATEGORY", "TITLE"}

// WriteEventTable writes events as a column-aligned text table. Widths use
// terminal display width so wide characters line up.
func WriteEventTable(w io.Writer, events []model.Event) error {
	rows := [][]string{eventHeader}
	for _, e := range events {
		end := ""
		if e.MultiDay() {
			end = e.EndDate.String()
		}
		rows = append(rows, []string{e.StartDate.String(), end, e.Category.Label(), e.Title})
	}

	widths := make([]int, len(eventHeader))
	for _, row := range rows {
		for i, col := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(col))
		}
	}

	for _, row := range rows {
		var sb strings.Builder
		for i, col := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(row)-1 {
				sb.WriteString(col)
				break
			}
			sb.WriteString(runewidth.FillRight(col, widths[i]))
		}
		if _, err := fmt.Fprintln(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}
