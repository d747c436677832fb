package web

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"campusweb/internal/calendar"
	"campusweb/internal/config"
	"campusweb/internal/export"
	"campusweb/internal/ics"
	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

var (
	errBadYear  = errors.New("year must be a number between 1900 and 2999")
	errBadMonth = errors.New("month must be a number between 1 and 12")
	errBadDate  = errors.New("date must be formatted YYYY-MM-DD")
)

// monthParams reads ?year=&month=&date=. Missing values default to the
// selected date's month, then to today's.
type monthParams struct {
	Year     int
	Month    time.Month
	Selected model.Date
}

func parseMonthParams(q url.Values, today model.Date) (monthParams, error) {
	p := monthParams{Year: today.Year(), Month: today.Month()}

	if raw := q.Get("date"); raw != "" {
		d, err := model.ParseDate(raw)
		if err != nil {
			return p, errBadDate
		}
		p.Selected = d
		p.Year, p.Month = d.Year(), d.Month()
	}
	if raw := q.Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1900 || y > 2999 {
			return p, errBadYear
		}
		p.Year = y
	}
	if raw := q.Get("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			return p, errBadMonth
		}
		p.Month = time.Month(m)
	}
	return p, nil
}

// monthURL links to another month of the grid, keeping the current view.
func monthURL(year int, month time.Month) string {
	return fmt.Sprintf("/calendar?year=%d&month=%d", year, int(month))
}

type categoryGroup struct {
	Category model.Category
	Events   []model.Event
}

type gridView struct {
	Grid        calendar.Grid
	Selected    model.Date
	DayEvents   []model.Event
	Upcoming    []model.Event
	Important   []model.ImportantDate
	PrevURL     string
	NextURL     string
	TodayURL    string
	ListURL     string
	Stale       bool
	LastUpdated model.Date
	Table       *calendar.Table
}

type listView struct {
	Table  *calendar.Table
	Groups []categoryGroup
	Stale  bool
	Month  monthParams
}

type documentView struct {
	Document model.Document
	Stale    bool
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	t := s.cal.Table()
	if t == nil {
		s.renderUnavailable(w, r)
		return
	}
	if s.cfg.Calendar.Variant == config.VariantDocument {
		s.renderDocument(w, r)
		return
	}

	q := r.URL.Query()
	params, err := parseMonthParams(q, s.cal.Today())
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if q.Get("view") == "list" {
		v := listView{
			Table: t,
			Stale: s.cal.Stale(),
			Month: params,
		}
		for _, c := range model.Categories {
			if events := t.EventsByCategory(c); len(events) > 0 {
				v.Groups = append(v.Groups, categoryGroup{Category: c, Events: events})
			}
		}
		s.pages.render(w, http.StatusOK, "calendar_list", s.newPage(r, "Academic Calendar", v))
		return
	}

	grid := s.cal.MonthGrid(params.Year, params.Month)
	py, pm := grid.Prev()
	ny, nm := grid.Next()
	v := gridView{
		Grid:        grid,
		Selected:    params.Selected,
		Upcoming:    s.cal.UpcomingEvents(calendar.DefaultUpcomingLimit),
		Important:   t.ImportantDates,
		PrevURL:     monthURL(py, pm),
		NextURL:     monthURL(ny, nm),
		TodayURL:    "/calendar",
		ListURL:     "/calendar?view=list",
		Stale:       s.cal.Stale(),
		LastUpdated: t.LastUpdated,
		Table:       t,
	}
	if !params.Selected.IsZero() {
		v.DayEvents = t.EventsForDate(params.Selected)
	}
	s.pages.render(w, http.StatusOK, "calendar_grid", s.newPage(r, "Academic Calendar", v))
}

func (s *Server) renderDocument(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.cal.Document()
	if !ok {
		s.renderUnavailable(w, r)
		return
	}
	v := documentView{
		Document: doc,
		Stale:    !s.cal.DocumentIsRecent(s.cal.StaleAfterDays()),
	}
	s.pages.render(w, http.StatusOK, "calendar_document", s.newPage(r, doc.Title, v))
}

func (s *Server) renderUnavailable(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusServiceUnavailable, "calendar_unavailable",
		s.newPage(r, "Calendar Unavailable", nil))
}

// printView is the single-page document rendered to PDF by render-pdf.
type printView struct {
	Site      config.SiteConfig
	Table     *calendar.Table
	Groups    []categoryGroup
	Generated model.Date
}

func (s *Server) handleCalendarPrint(w http.ResponseWriter, r *http.Request) {
	t := s.cal.Table()
	if t == nil {
		s.renderUnavailable(w, r)
		return
	}
	v := printView{Site: s.cfg.Site, Table: t, Generated: s.cal.Today()}
	for _, c := range model.Categories {
		if events := t.EventsByCategory(c); len(events) > 0 {
			v.Groups = append(v.Groups, categoryGroup{Category: c, Events: events})
		}
	}
	s.pages.render(w, http.StatusOK, "print", v)
}

func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	t := s.cal.Table()
	if t == nil {
		http.Error(w, "calendar unavailable", http.StatusServiceUnavailable)
		return
	}

	meta := ics.ExportMeta{
		Name:        t.Title,
		Description: t.Description,
		BaseURL:     s.cfg.Site.BaseURL,
		Timezone:    s.cfg.Timezone,
	}
	var buf bytes.Buffer
	if err := ics.WriteCalendar(&buf, meta, t.Events, s.cal.Now()); err != nil {
		appLog.Error("calendar: ics export failed", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+t.ExportName("ics")+`"`)
	_, _ = buf.WriteTo(w)
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleXLSX(w http.ResponseWriter, r *http.Request) {
	t := s.cal.Table()
	if t == nil {
		http.Error(w, "calendar unavailable", http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteWorkbook(&buf, t); err != nil {
		appLog.Error("calendar: xlsx export failed", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+t.ExportName("xlsx")+`"`)
	_, _ = buf.WriteTo(w)
}
