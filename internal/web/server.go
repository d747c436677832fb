package web

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"campusweb/internal/auth"
	"campusweb/internal/calendar"
	"campusweb/internal/config"
	"campusweb/internal/content"
	appLog "campusweb/internal/log"
)

// embeddedStatic holds the stylesheet and small scripts served at /static/.
//
//go:embed all:static
var embeddedStatic embed.FS

// Options wires the server to its collaborators.
type Options struct {
	Config   *config.Config
	Calendar *calendar.Service
	// Loader rebuilds the calendar for POST /admin/reload.
	Loader   calendar.Source
	Catalog  *content.Catalog
	Sessions *auth.Manager
	Identity auth.IdentityClient
}

// Server serves the site pages, the calendar JSON API and the exports.
type Server struct {
	cfg      *config.Config
	cal      *calendar.Service
	loader   calendar.Source
	catalog  *content.Catalog
	sessions *auth.Manager
	identity auth.IdentityClient
	pages    *renderer
	mux      *http.ServeMux
}

// NewServer constructs a Server and registers its routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Config == nil || opts.Calendar == nil || opts.Catalog == nil || opts.Sessions == nil || opts.Identity == nil {
		return nil, errors.New("web: config, calendar, catalog, sessions and identity are required")
	}

	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      opts.Config,
		cal:      opts.Calendar,
		loader:   opts.Loader,
		catalog:  opts.Catalog,
		sessions: opts.Sessions,
		identity: opts.Identity,
		pages:    pages,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s, nil
}

// Handler returns the root handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	h := s.sessions.Middleware(s.mux)
	h = accessLog(h)
	h = requestID(h)
	return recoverer(h)
}

// HTTPServer returns an *http.Server for cfg.Listen with sane timeouts.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Pages
	s.mux.HandleFunc("GET /{$}", s.handleHome)
	s.mux.HandleFunc("GET /semesters", s.handleSemesters)
	s.mux.HandleFunc("GET /semester/{id}", s.handleSemester)
	s.mux.HandleFunc("GET /papers", s.handlePapers)
	s.mux.HandleFunc("GET /calendar", s.handleCalendar)
	s.mux.HandleFunc("GET /calendar/print", s.handleCalendarPrint)

	// Exports
	s.mux.HandleFunc("GET /calendar.ics", s.handleICS)
	s.mux.HandleFunc("GET /calendar.xlsx", s.handleXLSX)

	// Sign-in and terms
	s.mux.HandleFunc("GET /login", s.handleLogin)
	s.mux.HandleFunc("POST /auth/google/callback", s.handleGoogleCallback)
	s.mux.HandleFunc("POST /auth/logout", s.handleLogout)
	s.mux.HandleFunc("POST /terms/accept", s.handleAcceptTerms)

	// JSON API
	s.mux.HandleFunc("GET /api/calendar", s.handleAPICalendar)
	s.mux.HandleFunc("GET /api/calendar/events", s.handleAPIEvents)
	s.mux.HandleFunc("GET /api/calendar/events/{id}", s.handleAPIEvent)
	s.mux.HandleFunc("GET /api/calendar/upcoming", s.handleAPIUpcoming)
	s.mux.HandleFunc("GET /api/calendar/grid", s.handleAPIGrid)
	s.mux.HandleFunc("GET /api/calendar/important-dates", s.handleAPIImportantDates)
	s.mux.HandleFunc("GET /api/calendar/document", s.handleAPIDocument)
	s.mux.HandleFunc("GET /api/session", s.handleAPISession)
	s.mux.HandleFunc("GET /api/papers", s.handleAPIPapers)
	s.mux.HandleFunc("/api/", func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	// Admin
	if s.cfg.AdminEnabled() {
		s.mux.Handle("POST /admin/reload", s.adminAuth(http.HandlerFunc(s.handleAdminReload)))
		appLog.Info("admin endpoints enabled", "user", s.cfg.Admin.Username)
	}

	// Files
	s.mux.Handle("GET /static/", s.staticFileServer())
	s.mux.Handle("GET /documents/", s.documentsFileServer())

	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// staticFileServer serves the embedded assets under /static/.
func (s *Server) staticFileServer() http.Handler {
	sub, err := fs.Sub(embeddedStatic, "static")
	if err != nil {
		appLog.Error("failed to initialize embedded static filesystem", err)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "static files not available", http.StatusServiceUnavailable)
		})
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// documentsFileServer serves generated calendar documents (PDFs rendered
// by `campusweb render-pdf`) from cfg.DocumentsDir.
func (s *Server) documentsFileServer() http.Handler {
	if s.cfg.DocumentsDir == "" {
		return http.HandlerFunc(s.handleNotFound)
	}
	return http.StripPrefix("/documents/", http.FileServer(http.Dir(s.cfg.DocumentsDir)))
}
