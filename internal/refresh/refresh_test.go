package refresh

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"calview/internal/config"
	"calview/internal/ics"
	"calview/internal/store"
)

const sampleICS = `BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//calview//test//EN
BEGIN:VEVENT
UID:standup@example.com
DTSTAMP:20250301T000000Z
DTSTART:20250310T090000Z
DTEND:20250310T093000Z
SUMMARY:Standup
RRULE:FREQ=DAILY;COUNT=3
END:VEVENT
END:VCALENDAR
`

func newTestRefresher(t *testing.T, sources ...config.ICSConfig) (*Refresher, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.ICS = sources
	cfg.BackfillDays = 1
	cfg.HorizonDays = 7

	st := store.New()
	r := New(cfg, time.UTC, ics.NewFetcher(filepath.Join(dir, "cache"), nil), st)
	r.now = func() time.Time { return time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC) }
	return r, st
}

func writeICS(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cal.ics")
	if err := os.WriteFile(path, []byte(strings.ReplaceAll(body, "\n", "\r\n")), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunFillsStore(t *testing.T) {
	path := writeICS(t, sampleICS)
	r, st := newTestRefresher(t,
		config.ICSConfig{ID: "work", URL: path},
		config.ICSConfig{ID: "broken", URL: filepath.Join(t.TempDir(), "missing.ics")},
		config.ICSConfig{ID: "no-url"},
	)

	hookCalls := 0
	r.AddHook(func(context.Context) error {
		hookCalls++
		return errors.New("hook errors are only logged")
	})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	snap := st.Snapshot()
	if len(snap.Occurrences) != 3 {
		t.Errorf("got %d occurrences, want 3", len(snap.Occurrences))
	}
	if snap.SourceErrors != 1 {
		t.Errorf("SourceErrors = %d, want 1", snap.SourceErrors)
	}
	if snap.Occurrences[0].SourceID != "work" {
		t.Errorf("SourceID = %q", snap.Occurrences[0].SourceID)
	}
	if hookCalls != 1 {
		t.Errorf("hook called %d times, want 1", hookCalls)
	}
}

func TestRunAllSourcesFail(t *testing.T) {
	r, st := newTestRefresher(t, config.ICSConfig{ID: "gone", URL: filepath.Join(t.TempDir(), "missing.ics")})
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("Run() expected error")
	}
	if st.Ready() {
		t.Error("store should stay empty after a failed refresh")
	}
}

func TestRunKeepsSnapshotWhenNothingParses(t *testing.T) {
	path := writeICS(t, sampleICS)
	r, st := newTestRefresher(t, config.ICSConfig{ID: "work", URL: path})

	hookCalls := 0
	r.AddHook(func(context.Context) error {
		hookCalls++
		return nil
	})

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error: %v", err)
	}
	if err := os.WriteFile(path, []byte("not an ics feed"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("second Run() expected error")
	}

	if got := len(st.Snapshot().Occurrences); got != 3 {
		t.Errorf("got %d occurrences, want the previous 3", got)
	}
	if hookCalls != 1 {
		t.Errorf("hook called %d times, want 1", hookCalls)
	}
}

func TestRunNoSources(t *testing.T) {
	r, st := newTestRefresher(t)
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !st.Ready() || len(st.Snapshot().Occurrences) != 0 {
		t.Errorf("snapshot = %+v", st.Snapshot())
	}
}

func TestSources(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ICS = []config.ICSConfig{
		{Name: "Home", URL: "https://example.com/home.ics"},
		{ID: "skip"},
	}
	got := Sources(cfg)
	if len(got) != 1 || got[0].ID != "Home" {
		t.Errorf("Sources() = %+v", got)
	}
}

func TestNewSchedulerRejectsBadSpec(t *testing.T) {
	r, _ := newTestRefresher(t)
	if _, err := NewScheduler(r, "every now and then", time.UTC); err == nil {
		t.Error("expected error for invalid cron spec")
	}
}

func TestSchedulerStartStops(t *testing.T) {
	r, st := newTestRefresher(t)
	s, err := NewScheduler(r, "*/5 * * * *", time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	if !st.Ready() {
		t.Error("Start() should run an initial refresh")
	}
	if s.Next().IsZero() {
		t.Error("Next() should be scheduled")
	}
	cancel()
}
