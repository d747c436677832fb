package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"campusweb/internal/auth"
	"campusweb/internal/calendar"
	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

const msgUnavailable = "calendar data unavailable"

type calendarResponse struct {
	Year           string                `json:"year"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	LastUpdated    model.Date            `json:"lastUpdated"`
	IsRecent       bool                  `json:"isRecent"`
	StaleAfterDays int                   `json:"staleAfterDays"`
	Today          model.Date            `json:"today"`
	Events         []model.Event         `json:"events"`
	ImportantDates []model.ImportantDate `json:"importantDates"`
}

type eventsResponse struct {
	Count  int           `json:"count"`
	Events []model.Event `json:"events"`
}

type gridResponse struct {
	calendar.Grid
	Title   string `json:"title"`
	Leading int    `json:"leading"`
	Busy    int    `json:"busyDays"`
}

type documentResponse struct {
	model.Document
	IsRecent bool `json:"isRecent"`
}

type sessionResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          *model.User `json:"user,omitempty"`
	TermsAccepted bool        `json:"termsAccepted"`
}

// currentTable writes a 503 and returns nil when no calendar is loaded.
func (s *Server) currentTable(w http.ResponseWriter) *calendar.Table {
	t := s.cal.Table()
	if t == nil {
		writeError(w, http.StatusServiceUnavailable, msgUnavailable)
	}
	return t
}

func (s *Server) handleAPICalendar(w http.ResponseWriter, r *http.Request) {
	t := s.currentTable(w)
	if t == nil {
		return
	}
	writeJSON(w, http.StatusOK, calendarResponse{
		Year:           t.Year,
		Title:          t.Title,
		Description:    t.Description,
		LastUpdated:    t.LastUpdated,
		IsRecent:       !s.cal.Stale(),
		StaleAfterDays: s.cal.StaleAfterDays(),
		Today:          s.cal.Today(),
		Events:         t.Events,
		ImportantDates: t.ImportantDates,
	})
}

// handleAPIEvents answers one of three queries, chosen by the parameters
// present: ?date=, ?category=, or ?year=&month=. With none of them it
// returns the whole table.
func (s *Server) handleAPIEvents(w http.ResponseWriter, r *http.Request) {
	t := s.currentTable(w)
	if t == nil {
		return
	}
	q := r.URL.Query()

	var events []model.Event
	switch {
	case q.Has("date"):
		d, err := model.ParseDate(q.Get("date"))
		if err != nil {
			writeError(w, http.StatusBadRequest, errBadDate.Error())
			return
		}
		events = t.EventsForDate(d)

	case q.Has("category"):
		c := model.Category(q.Get("category"))
		if !c.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category "+strconv.Quote(q.Get("category")))
			return
		}
		events = t.EventsByCategory(c)

	case q.Has("year") || q.Has("month"):
		if !q.Has("year") || !q.Has("month") {
			writeError(w, http.StatusBadRequest, "year and month must be given together")
			return
		}
		p, err := parseMonthParams(q, s.cal.Today())
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		events = t.EventsForMonth(p.Year, p.Month)

	default:
		events = t.Events
	}
	writeJSON(w, http.StatusOK, eventsResponse{Count: len(events), Events: events})
}

func (s *Server) handleAPIEvent(w http.ResponseWriter, r *http.Request) {
	t := s.currentTable(w)
	if t == nil {
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "event id must be a number")
		return
	}
	e, ok := t.EventByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleAPIUpcoming(w http.ResponseWriter, r *http.Request) {
	if s.currentTable(w) == nil {
		return
	}
	limit := calendar.DefaultUpcomingLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be a number between 1 and 100")
			return
		}
		limit = n
	}
	events := s.cal.UpcomingEvents(limit)
	writeJSON(w, http.StatusOK, eventsResponse{Count: len(events), Events: events})
}

func (s *Server) handleAPIGrid(w http.ResponseWriter, r *http.Request) {
	if s.currentTable(w) == nil {
		return
	}
	p, err := parseMonthParams(r.URL.Query(), s.cal.Today())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g := s.cal.MonthGrid(p.Year, p.Month)
	busy := 0
	for _, c := range g.Days() {
		if len(c.Events) > 0 {
			busy++
		}
	}
	writeJSON(w, http.StatusOK, gridResponse{Grid: g, Title: g.Title(), Leading: g.Leading(), Busy: busy})
}

func (s *Server) handleAPIImportantDates(w http.ResponseWriter, r *http.Request) {
	t := s.currentTable(w)
	if t == nil {
		return
	}
	writeJSON(w, http.StatusOK, t.ImportantDates)
}

func (s *Server) handleAPIDocument(w http.ResponseWriter, r *http.Request) {
	if s.currentTable(w) == nil {
		return
	}
	doc, ok := s.cal.Document()
	if !ok {
		writeError(w, http.StatusNotFound, "no calendar document configured")
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{
		Document: doc,
		IsRecent: s.cal.DocumentIsRecent(s.cal.StaleAfterDays()),
	})
}

func (s *Server) handleAPISession(w http.ResponseWriter, r *http.Request) {
	sess := auth.FromContext(r.Context())
	writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: sess.Authenticated(),
		User:          sess.User,
		TermsAccepted: termsAccepted(r),
	})
}

func (s *Server) handleAPIPapers(w http.ResponseWriter, r *http.Request) {
	if !auth.FromContext(r.Context()).Authenticated() {
		writeError(w, http.StatusUnauthorized, "sign in to view question papers")
		return
	}
	writeJSON(w, http.StatusOK, s.catalog.Papers(paperFilterFrom(r.URL.Query())))
}

type reloadResponse struct {
	Status      string     `json:"status"`
	Year        string     `json:"year,omitempty"`
	Events      int        `json:"events"`
	LastUpdated model.Date `json:"lastUpdated"`
	Duration    string     `json:"duration"`
}

func (s *Server) handleAdminReload(w http.ResponseWriter, r *http.Request) {
	if s.loader == nil {
		writeError(w, http.StatusNotImplemented, "no calendar loader configured")
		return
	}

	started := time.Now()
	if err := s.cal.Reload(r.Context(), s.loader); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, calendar.ErrNoICSData) {
			status = http.StatusBadGateway
		}
		writeError(w, status, "reload failed: "+err.Error())
		return
	}

	t := s.cal.Table()
	appLog.Info("admin: calendar reloaded", "events", len(t.Events), "request_id", RequestIDFrom(r.Context()))
	writeJSON(w, http.StatusOK, reloadResponse{
		Status:      "ok",
		Year:        t.Year,
		Events:      len(t.Events),
		LastUpdated: t.LastUpdated,
		Duration:    time.Since(started).String(),
	})
}
