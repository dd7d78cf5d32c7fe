package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	ErrEmptyPath = errors.New("config path is empty")
	ErrNilConfig = errors.New("config is nil")
)

// ICSConfig describes a single ICS subscription source.
type ICSConfig struct {
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url" json:"url"`
	// ID is an internal identifier used for de-dup, logging and layout IDs.
	ID string `yaml:"id" json:"id"`
	// Name is a human-friendly label shown in the UI.
	Name string `yaml:"name" json:"name"`
}

// SourceID returns ID, or Name, or URL, whichever is set first.
func (c ICSConfig) SourceID() string {
	switch {
	case c.ID != "":
		return c.ID
	case c.Name != "":
		return c.Name
	default:
		return c.URL
	}
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// TimelineConfig controls the geometry of day and week columns.
type TimelineConfig struct {
	// HourHeightPx is the pixel height of one hour row.
	HourHeightPx float64 `yaml:"hour_height_px" json:"hour_height_px"`
	// MinEventHeightPx keeps very short events clickable.
	MinEventHeightPx float64 `yaml:"min_event_height_px" json:"min_event_height_px"`
	// VerticalGapPx is trimmed from the top and bottom of each event block.
	VerticalGapPx float64 `yaml:"vertical_gap_px" json:"vertical_gap_px"`
	// ColumnGapPct is trimmed from the width of side-by-side blocks.
	ColumnGapPct float64 `yaml:"column_gap_pct" json:"column_gap_pct"`
	// DayStartHour / DayEndHour bound the hour gridlines that are drawn.
	DayStartHour int `yaml:"day_start_hour" json:"day_start_hour"`
	DayEndHour   int `yaml:"day_end_hour" json:"day_end_hour"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone used as canonical display zone (e.g. "Asia/Seoul").
	Timezone string `yaml:"timezone" json:"timezone"`

	// WeekStart controls which weekday is treated as the first day of the week
	// in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used for periodic refresh of the ICS sources.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// HorizonDays is the number of future days kept expanded in memory.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// BackfillDays is the number of past days kept expanded in memory.
	BackfillDays int `yaml:"backfill_days" json:"backfill_days"`

	// ShowAllDay toggles the all-day strip in the rendered views.
	ShowAllDay bool `yaml:"show_all_day" json:"show_all_day"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// CacheDir holds the per-URL ICS HTTP cache.
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// PreviewPath, if set, is where the refresh loop writes a PNG
	// screenshot of /calendar after each successful refresh.
	PreviewPath string `yaml:"preview_path,omitempty" json:"preview_path,omitempty"`

	// PreviewMode is color, mono or tricolor.
	PreviewMode string `yaml:"preview_mode,omitempty" json:"preview_mode,omitempty"`

	Timeline TimelineConfig `yaml:"timeline" json:"timeline"`

	// ICS is the list of subscribed ICS sources.
	ICS []ICSConfig `yaml:"ics" json:"ics"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:       "127.0.0.1:8080",
		Timezone:     "UTC",
		WeekStart:    "monday",
		RefreshCron:  "*/15 * * * *",
		HorizonDays:  35,
		BackfillDays: 7,
		ShowAllDay:   true,
		LogLevel:     "info",
		CacheDir:     "./cache/ics-cache",
		Timeline:     DefaultTimeline(),
		ICS:          []ICSConfig{},
		BasicAuth:    nil,
	}
}

// DefaultTimeline is a 48px hour row with an 18px event floor.
func DefaultTimeline() TimelineConfig {
	return TimelineConfig{
		HourHeightPx:     48,
		MinEventHeightPx: 18,
		VerticalGapPx:    1,
		ColumnGapPct:     2,
		DayStartHour:     0,
		DayEndHour:       24,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	switch c.WeekStart {
	case "monday", "sunday":
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.BackfillDays < 0 {
		c.BackfillDays = 0
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	c.Timeline.normalize()
	if c.ICS == nil {
		c.ICS = []ICSConfig{}
	}
}

func (t *TimelineConfig) normalize() {
	def := DefaultTimeline()
	if t.HourHeightPx <= 0 {
		t.HourHeightPx = def.HourHeightPx
	}
	if t.MinEventHeightPx <= 0 {
		t.MinEventHeightPx = def.MinEventHeightPx
	}
	if t.VerticalGapPx < 0 {
		t.VerticalGapPx = 0
	}
	if t.ColumnGapPct < 0 {
		t.ColumnGapPct = 0
	}
	if t.DayStartHour < 0 || t.DayStartHour > 23 {
		t.DayStartHour = def.DayStartHour
	}
	if t.DayEndHour <= t.DayStartHour || t.DayEndHour > 24 {
		t.DayEndHour = def.DayEndHour
	}
}

// Location resolves Timezone, falling back to UTC for unknown names.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	// Start from defaults so keys absent from the file keep their default
	// (notably show_all_day, whose zero value is meaningful).
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return ErrEmptyPath
	}
	if cfg == nil {
		return ErrNilConfig
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".calview-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
