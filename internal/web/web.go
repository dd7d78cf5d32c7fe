package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"calview/internal/config"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/store"
	"calview/internal/view"
)

// Refresher is the part of refresh.Refresher the server needs.
type Refresher interface {
	Run(ctx context.Context) error
}

// Server provides the JSON API, the server-rendered /calendar page and
// the last captured preview.
type Server struct {
	cfg       *config.Config
	loc       *time.Location
	store     *store.Store
	refresher Refresher
	opts      view.Options
	now       func() time.Time

	// AccessLog receives one line per request. Nil disables access logging.
	AccessLog io.Writer

	router *mux.Router
	tmpl   *template.Template
}

// NewServer constructs a new Server. refresher may be nil, in which case
// POST /api/refresh answers 503.
func NewServer(cfg *config.Config, loc *time.Location, st *store.Store, refresher Refresher) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{
		cfg:       cfg,
		loc:       loc,
		store:     st,
		refresher: refresher,
		opts:      view.OptionsFromConfig(cfg),
		now:       time.Now,
		router:    mux.NewRouter(),
	}
	s.tmpl = s.parseTemplates()
	s.registerRoutes()
	return s
}

// Handler returns the root handler with auth and access logging applied.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		h = s.basicAuthMiddleware(h)
	}
	if s.AccessLog != nil {
		h = handlers.LoggingHandler(s.AccessLog, h)
	}
	return h
}

// ListenAndServe listens on the configured address and serves until ctx
// is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("web: listen %s: %w", s.cfg.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+ln.Addr().String(), "basic_auth", s.basicAuthEnabled())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	appLog.Info("HTTP server stopped")
	return nil
}

func (s *Server) registerRoutes() {
	r := s.router
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/layout/day", s.handleLayoutDay).Methods(http.MethodGet)
	api.HandleFunc("/layout/week", s.handleLayoutWeek).Methods(http.MethodGet)
	api.HandleFunc("/month", s.handleMonth).Methods(http.MethodGet)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.HandleFunc("/calendar", s.handleCalendar).Methods(http.MethodGet)
	r.HandleFunc("/preview.png", s.handlePreview).Methods(http.MethodGet)
	r.Handle("/", http.RedirectHandler("/calendar", http.StatusFound))
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials leave auth disabled.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calview", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedUIDs   []string        `json:"truncated_uids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	RefreshedAt     time.Time       `json:"refreshed_at"`
	DisplayTimeZone string          `json:"display_timezone"`
	WeekStart       string          `json:"week_start"`
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"source_id"`
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

func toDTO(o model.Occurrence) occurrenceDTO {
	return occurrenceDTO{
		ID:          o.ID(),
		SourceID:    o.SourceID,
		UID:         o.UID,
		InstanceKey: o.InstanceKey,
		Summary:     o.Summary,
		Description: o.Description,
		Location:    o.Location,
		AllDay:      o.AllDay,
		Start:       o.Start,
		End:         o.End,
	}
}

// handleEvents returns stored occurrences touching a window.
//
// GET /api/events?date=2025-03-10&days=7
//   - date: first day of the window (default today)
//   - days: window length in days (default 7)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := s.parseDate(w, q.Get("date"))
	if !ok {
		return
	}
	days := parseIntDefault(q.Get("days"), 7)
	if days <= 0 {
		days = 7
	}
	to := from.AddDate(0, 0, days)

	snap := s.store.Snapshot()
	dtos := make([]occurrenceDTO, 0)
	for _, o := range snap.Occurrences {
		if o.Touches(from, to) {
			dtos = append(dtos, toDTO(o))
		}
	}

	writeJSON(w, http.StatusOK, eventsResponse{
		Occurrences:     dtos,
		TruncatedUIDs:   snap.Truncated,
		RangeStart:      from,
		RangeEnd:        to,
		RefreshedAt:     snap.RefreshedAt,
		DisplayTimeZone: s.loc.String(),
		WeekStart:       s.cfg.WeekStart,
	})
}

// GET /api/layout/day?date=YYYY-MM-DD
func (s *Server) handleLayoutDay(w http.ResponseWriter, r *http.Request) {
	day, ok := s.parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	occ := s.store.Snapshot().Occurrences
	writeJSON(w, http.StatusOK, view.BuildDay(occ, day, s.loc, s.now(), s.opts))
}

// GET /api/layout/week?date=YYYY-MM-DD
func (s *Server) handleLayoutWeek(w http.ResponseWriter, r *http.Request) {
	day, ok := s.parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	occ := s.store.Snapshot().Occurrences
	writeJSON(w, http.StatusOK, view.BuildWeek(occ, day, s.loc, s.cfg.WeekStart, s.now(), s.opts))
}

// GET /api/month?date=YYYY-MM-DD
func (s *Server) handleMonth(w http.ResponseWriter, r *http.Request) {
	day, ok := s.parseDate(w, r.URL.Query().Get("date"))
	if !ok {
		return
	}
	occ := s.store.Snapshot().Occurrences
	writeJSON(w, http.StatusOK, view.BuildMonth(occ, day, s.loc, s.cfg.WeekStart, s.now()))
}

// POST /api/refresh runs a refresh synchronously.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh not available")
		return
	}
	if err := s.refresher.Run(r.Context()); err != nil {
		appLog.Error("api refresh failed", err)
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	snap := s.store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"refreshed_at":  snap.RefreshedAt,
		"occurrences":   len(snap.Occurrences),
		"source_errors": snap.SourceErrors,
	})
}

// handlePreview serves the last captured PNG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if s.cfg.PreviewPath == "" {
		http.NotFound(w, r)
		return
	}
	// ServeFile answers 404 for a missing file.
	http.ServeFile(w, r, s.cfg.PreviewPath)
}

func (s *Server) parseDate(w http.ResponseWriter, raw string) (time.Time, bool) {
	day, err := view.ParseDate(raw, s.loc, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return time.Time{}, false
	}
	return day, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
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
