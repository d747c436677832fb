package web

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"campusweb/internal/auth"
	"campusweb/internal/content"
	appLog "campusweb/internal/log"
	"campusweb/internal/model"
)

// Terms modal cookie. It never expires.
const (
	termsCookie = "modalShown"
	termsValue  = "true"
)

var termsExpiry = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

func termsAccepted(r *http.Request) bool {
	c, err := r.Cookie(termsCookie)
	return err == nil && c.Value == termsValue
}

type homeView struct {
	Upcoming       []model.Event
	ImportantDates []model.ImportantDate
	Semesters      []content.Semester
	CalendarReady  bool
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	v := homeView{
		Upcoming:      s.cal.UpcomingEvents(3),
		Semesters:     s.catalog.Semesters(),
		CalendarReady: s.cal.Available(),
	}
	if t := s.cal.Table(); t != nil {
		v.ImportantDates = t.ImportantDates
	}
	s.pages.render(w, http.StatusOK, "home", s.newPage(r, "", v))
}

func (s *Server) handleSemesters(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusOK, "semesters", s.newPage(r, "Semesters", s.catalog.Semesters()))
}

func (s *Server) handleSemester(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		s.handleNotFound(w, r)
		return
	}
	sem, ok := s.catalog.Semester(id)
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	s.pages.render(w, http.StatusOK, "semester", s.newPage(r, sem.Name, sem))
}

type papersView struct {
	SignedIn  bool
	Filter    content.PaperFilter
	Papers    []content.PaperRef
	Semesters []content.Semester
	Years     []int
}

// paperFilterFrom reads ?semester=&subject=&year=&q=. Malformed numbers
// are ignored.
func paperFilterFrom(q url.Values) content.PaperFilter {
	f := content.PaperFilter{
		Subject: strings.TrimSpace(q.Get("subject")),
		Query:   strings.TrimSpace(q.Get("q")),
	}
	f.Semester, _ = strconv.Atoi(q.Get("semester"))
	f.Year, _ = strconv.Atoi(q.Get("year"))
	return f
}

func (s *Server) handlePapers(w http.ResponseWriter, r *http.Request) {
	v := papersView{
		SignedIn:  auth.FromContext(r.Context()).Authenticated(),
		Filter:    paperFilterFrom(r.URL.Query()),
		Semesters: s.catalog.Semesters(),
		Years:     s.catalog.Years(),
	}
	if v.SignedIn {
		v.Papers = s.catalog.Papers(v.Filter)
	}
	s.pages.render(w, http.StatusOK, "papers", s.newPage(r, "Question Papers", v))
}

type loginView struct {
	Button auth.ButtonConfig
	Error  string
	Domain string
}

// loginErrors maps ?error= codes to user-facing messages.
func (s *Server) loginError(code string) string {
	switch code {
	case "domain":
		return "Only " + s.sessions.Domain() + " email addresses are allowed. Please use your college email."
	case "invalid":
		return "Invalid token. Please try signing in again."
	case "csrf":
		return "Your sign-in request expired. Please try again."
	case "":
		return ""
	default:
		return "Authentication failed. Please use your college email."
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()).Authenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	v := loginView{
		Button: s.identity.Initialize(),
		Error:  s.loginError(r.URL.Query().Get("error")),
		Domain: s.sessions.Domain(),
	}
	status := http.StatusOK
	if v.Error != "" {
		status = http.StatusUnauthorized
	}
	s.pages.render(w, status, "login", s.newPage(r, "Sign in", v))
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	credential, err := s.identity.RequestCredential(r)
	if err != nil {
		appLog.Warn("auth: callback rejected", "reason", err.Error(), "request_id", RequestIDFrom(r.Context()))
		code := "invalid"
		if errors.Is(err, auth.ErrCSRFMismatch) {
			code = "csrf"
		}
		http.Redirect(w, r, "/login?error="+code, http.StatusSeeOther)
		return
	}

	_, err = s.sessions.SignIn(r.Context(), w, credential)
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusSeeOther)
	case errors.Is(err, auth.ErrDomainNotAllowed):
		http.Redirect(w, r, "/login?error=domain", http.StatusSeeOther)
	case errors.Is(err, auth.ErrInvalidToken):
		http.Redirect(w, r, "/login?error=invalid", http.StatusSeeOther)
	default:
		appLog.Error("auth: sign-in failed", err, "request_id", RequestIDFrom(r.Context()))
		s.renderError(w, r, http.StatusInternalServerError, "Sign-in is temporarily unavailable.")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(r.Context(), w, r); err != nil {
		appLog.Error("auth: sign-out failed", err)
	}
	s.identity.SignOut(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleAcceptTerms(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:    termsCookie,
		Value:   termsValue,
		Path:    "/",
		Expires: termsExpiry,
	})
	http.Redirect(w, r, localRedirect(r.PostFormValue("next")), http.StatusSeeOther)
}

// localRedirect only allows same-site absolute paths. Browsers drop tabs
// and newlines from URLs, so any control character is refused.
func localRedirect(next string) string {
	if strings.ContainsFunc(next, func(r rune) bool { return r < 0x20 || r == 0x7f }) {
		return "/"
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return next
}
