package calendar

import (
	"time"

	"campusweb/internal/model"
)

// MaxVisibleEvents is how many events a day cell lists before collapsing
// the rest into "+N more".
const MaxVisibleEvents = 2

// Cell is one real day in a month grid. Placeholder cells before the first
// of the month are nil.
type Cell struct {
	Date   model.Date    `json:"date"`
	Events []model.Event `json:"events"`
	Today  bool          `json:"today"`
}

// Visible returns the events shown inside the cell.
func (c *Cell) Visible() []model.Event {
	if len(c.Events) > MaxVisibleEvents {
		return c.Events[:MaxVisibleEvents]
	}
	return c.Events
}

// More is the number of events hidden behind the "+N more" marker.
func (c *Cell) More() int {
	if n := len(c.Events) - MaxVisibleEvents; n > 0 {
		return n
	}
	return 0
}

// Grid is a month laid out in Sunday-first weeks. The first week is
// left-padded with nil cells; the last week is not padded.
type Grid struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Weeks [][]*Cell  `json:"weeks"`
}

// Title renders "September 2024".
func (g Grid) Title() string {
	return time.Date(g.Year, g.Month, 1, 0, 0, 0, 0, time.UTC).Format("January 2006")
}

// Prev returns the year and month before the grid's month.
func (g Grid) Prev() (int, time.Month) {
	return shiftMonth(g.Year, g.Month, -1)
}

// Next returns the year and month after the grid's month.
func (g Grid) Next() (int, time.Month) {
	return shiftMonth(g.Year, g.Month, 1)
}

// Leading counts the placeholder cells before day 1.
func (g Grid) Leading() int {
	n := 0
	if len(g.Weeks) == 0 {
		return 0
	}
	for _, c := range g.Weeks[0] {
		if c != nil {
			break
		}
		n++
	}
	return n
}

// Days returns the real day cells in order.
func (g Grid) Days() []*Cell {
	out := make([]*Cell, 0, 31)
	for _, w := range g.Weeks {
		for _, c := range w {
			if c != nil {
				out = append(out, c)
			}
		}
	}
	return out
}

// BuildMonthGrid lays out year/month and attaches every event covering
// each day (inclusive range rule), marking today.
func BuildMonthGrid(t *Table, year int, month time.Month, today model.Date) Grid {
	first := model.NewDate(year, month, 1)
	// Day 0 of the next month is the last day of this one.
	daysInMonth := model.NewDate(year, month+1, 0).Day()

	cells := make([]*Cell, 0, 42)
	for i := 0; i < int(first.Weekday()); i++ {
		cells = append(cells, nil)
	}
	for day := 1; day <= daysInMonth; day++ {
		d := first.AddDays(day - 1)
		c := &Cell{Date: d, Today: d.Equal(today)}
		if t != nil {
			c.Events = t.EventsForDate(d)
		}
		cells = append(cells, c)
	}

	g := Grid{Year: first.Year(), Month: first.Month()}
	for start := 0; start < len(cells); start += 7 {
		end := min(start+7, len(cells))
		g.Weeks = append(g.Weeks, cells[start:end])
	}
	return g
}

func shiftMonth(year int, month time.Month, delta int) (int, time.Month) {
	d := model.NewDate(year, month+time.Month(delta), 1)
	return d.Year(), d.Month()
}
