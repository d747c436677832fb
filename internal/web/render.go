package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"campusweb/internal/auth"
	"campusweb/internal/calendar"
	"campusweb/internal/config"
	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

// Pages rendered inside the shared layout.
var layoutPages = []string{
	"home",
	"semesters",
	"semester",
	"papers",
	"calendar_grid",
	"calendar_list",
	"calendar_document",
	"calendar_unavailable",
	"login",
	"error",
}

// standalonePages carry their own <html> document.
var standalonePages = []string{"print"}

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

var templateFuncs = template.FuncMap{
	"fmtDate": func(d model.Date) string {
		if d.IsZero() {
			return ""
		}
		return d.Format("Mon, Jan 2, 2006")
	},
	"shortDate": func(d model.Date) string {
		return d.Format("Jan 2")
	},
	"isoDate": func(d model.Date) string {
		return d.String()
	},
	"dateRange": eventDateRange,
	"catClass": func(c model.Category) string {
		return "cat-" + string(c)
	},
	"weekdays": func() []string {
		return weekdayNames
	},
	"dayURL": func(g calendar.Grid, c *calendar.Cell) string {
		return fmt.Sprintf("/calendar?year=%d&month=%d&date=%s#selected", g.Year, int(g.Month), c.Date)
	},
	"query": func(v url.Values) string {
		if len(v) == 0 {
			return ""
		}
		return "?" + v.Encode()
	},
}

// eventDateRange renders "Thu, Oct 31, 2024 - Sun, Nov 3, 2024", or a
// single date for one-day events.
func eventDateRange(e model.Event) string {
	start := e.StartDate.Format("Mon, Jan 2, 2006")
	if !e.MultiDay() {
		return start
	}
	return start + " - " + e.EndDate.Format("Mon, Jan 2, 2006")
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template)}
	for _, name := range layoutPages {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t.Lookup("layout")
	}
	for _, name := range standalonePages {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		r.pages[name] = t.Lookup(name)
	}
	return r, nil
}

// render executes a page into a buffer first so template errors turn into
// a clean 500 instead of a half-written page.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.pages[name]
	if !ok || t == nil {
		appLog.Error("unknown template", fmt.Errorf("template %q not registered", name))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		appLog.Error("template execution failed", err, "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// notice is the upcoming-event banner shown on every page.
type notice struct {
	Event   model.Event
	DaysOut int
}

// page is the data every layout page receives.
type page struct {
	Site      config.SiteConfig
	Title     string
	Path      string
	Session   auth.Session
	ShowTerms bool
	Notice    *notice
	Year      int
	Content   any
}

// noticeWindowDays is how far ahead the banner looks for the next event.
const noticeWindowDays = 7

func (s *Server) newPage(r *http.Request, title string, content any) page {
	p := page{
		Site:      s.cfg.Site,
		Title:     title,
		Path:      r.URL.Path,
		Session:   auth.FromContext(r.Context()),
		ShowTerms: !termsAccepted(r),
		Year:      s.cal.Now().Year(),
		Content:   content,
	}

	if next := s.cal.UpcomingEvents(1); len(next) == 1 {
		days := next[0].StartDate.DaysSince(s.cal.Today())
		if days <= noticeWindowDays {
			p.Notice = &notice{Event: next[0], DaysOut: days}
		}
	}
	return p
}

// errorView backs the generic error page.
type errorView struct {
	Status  int
	Heading string
	Message string
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.pages.render(w, status, "error", s.newPage(r, http.StatusText(status), errorView{
		Status:  status,
		Heading: http.StatusText(status),
		Message: message,
	}))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.renderError(w, r, http.StatusNotFound, "The page you are looking for does not exist.")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
