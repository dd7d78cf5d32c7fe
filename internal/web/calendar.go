package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"strconv"
	"time"

	appLog "calview/internal/log"
	"calview/internal/view"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// calendarPage is the data handed to calendar.html.tmpl.
type calendarPage struct {
	Title    string
	View     string
	HeightPx float64
	Hours    []view.HourLine
	Days     []view.Day
	Busiest  int
}

func (s *Server) parseTemplates() *template.Template {
	funcs := template.FuncMap{
		"px": func(v float64) string {
			return strconv.FormatFloat(v, 'f', 2, 64)
		},
		"clock": func(t time.Time) string {
			return t.In(s.loc).Format("15:04")
		},
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.tmpl"))
}

// handleCalendar renders the day or week view as static HTML. The root
// element carries data-ready="true" once the page is complete, which is
// what the capture waits for.
//
// GET /calendar?view=week&date=2025-03-10
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	day, ok := s.parseDate(w, q.Get("date"))
	if !ok {
		return
	}

	occ := s.store.Snapshot().Occurrences
	page := calendarPage{View: q.Get("view")}
	switch page.View {
	case "day":
		d := view.BuildDay(occ, day, s.loc, s.now(), s.opts)
		page.Title = d.Weekday + " " + d.Date
		page.Days = []view.Day{d}
		page.Busiest = d.Concurrency
	case "", "week":
		page.View = "week"
		wk := view.BuildWeek(occ, day, s.loc, s.cfg.WeekStart, s.now(), s.opts)
		page.Title = wk.Start + " - " + wk.End
		page.Days = wk.Days
		page.Busiest = wk.Busiest
	default:
		writeError(w, http.StatusBadRequest, "view must be day or week")
		return
	}
	page.HeightPx = page.Days[0].HeightPx
	page.Hours = page.Days[0].Hours

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "calendar.html.tmpl", page); err != nil {
		appLog.Error("failed to render calendar", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}
