package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Listen != "127.0.0.1:8080" {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o, want 600", perm)
	}
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
timezone: Asia/Seoul
week_start: friday
timeline:
  hour_height_px: 60
  column_gap_pct: -3
ics:
  - name: work
    url: https://example.com/work.ics
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"timezone", cfg.Timezone, "Asia/Seoul"},
		{"week start falls back", cfg.WeekStart, "monday"},
		{"show all day kept", cfg.ShowAllDay, true},
		{"hour height", cfg.Timeline.HourHeightPx, 60.0},
		{"min height default", cfg.Timeline.MinEventHeightPx, 18.0},
		{"negative gap clamped", cfg.Timeline.ColumnGapPct, 0.0},
		{"day end default", cfg.Timeline.DayEndHour, 24},
		{"source id from name", cfg.ICS[0].SourceID(), "work"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("listen: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() expected parse error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.ICS = append(cfg.ICS, ICSConfig{ID: "home", URL: "https://example.com/home.ics"})
	cfg.BasicAuth = &BasicAuthConfig{Username: "u", Password: "p"}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(got.ICS) != 1 || got.ICS[0].ID != "home" {
		t.Errorf("ICS = %+v", got.ICS)
	}
	if got.BasicAuth == nil || got.BasicAuth.Username != "u" {
		t.Errorf("BasicAuth = %+v", got.BasicAuth)
	}
}

func TestEmptyPath(t *testing.T) {
	if _, err := Load(""); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Load(\"\") error = %v, want ErrEmptyPath", err)
	}
	if err := Save("", DefaultConfig()); !errors.Is(err, ErrEmptyPath) {
		t.Errorf("Save(\"\") error = %v, want ErrEmptyPath", err)
	}
	if err := Save("x.yaml", nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("Save(nil) error = %v, want ErrNilConfig", err)
	}
}

func TestLocation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Not/AZone"
	loc, err := cfg.Location()
	if err == nil {
		t.Error("Location() expected error for unknown zone")
	}
	if loc == nil {
		t.Error("Location() returned nil fallback")
	}
}
