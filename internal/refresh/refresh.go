// Package refresh keeps the occurrence store current: it fetches the
// configured ICS sources, expands them and swaps the result into the
// store, either on demand or on a cron schedule.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/store"
)

// Hook runs after every successful refresh (e.g. a preview capture).
type Hook func(ctx context.Context) error

// Refresher performs one fetch→parse→expand cycle per Run.
type Refresher struct {
	cfg     *config.Config
	loc     *time.Location
	fetcher *ics.Fetcher
	store   *store.Store
	now     func() time.Time

	// mu serializes Run; the HTTP refresh endpoint and cron may race.
	mu    sync.Mutex
	hooks []Hook
}

// New builds a Refresher. A nil fetcher uses the configured cache dir.
func New(cfg *config.Config, loc *time.Location, fetcher *ics.Fetcher, st *store.Store) *Refresher {
	if fetcher == nil {
		fetcher = ics.NewFetcher(cfg.CacheDir, nil)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Refresher{
		cfg:     cfg,
		loc:     loc,
		fetcher: fetcher,
		store:   st,
		now:     time.Now,
	}
}

// AddHook registers fn to run after each successful refresh. Hook errors
// are logged and do not fail the refresh.
func (r *Refresher) AddHook(fn Hook) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Sources converts the configured ICS entries into fetch sources,
// skipping entries without a URL.
func Sources(cfg *config.Config) []ics.Source {
	sources := make([]ics.Source, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		if c.URL == "" {
			continue
		}
		sources = append(sources, ics.Source{ID: c.SourceID(), URL: c.URL})
	}
	return sources
}

// Run refreshes the store. It fails only when every source failed to
// download or parse, leaving the store untouched; a partial refresh is
// stored and the failures are logged.
func (r *Refresher) Run(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	started := r.now()
	sources := Sources(r.cfg)

	results, fetchErrs := r.fetcher.FetchAll(ctx, sources)
	if len(sources) > 0 && len(results) == 0 {
		return fmt.Errorf("refresh: all %d sources failed: %w", len(sources), errors.Join(fetchErrs...))
	}

	errs := fetchErrs
	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		events, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			appLog.Error("refresh: parse failed for source", err, "id", res.Source.ID)
			continue
		}
		parsed = append(parsed, events...)
	}
	failed := len(errs)
	// The previous snapshot stays when no source produced a calendar.
	if len(sources) > 0 && len(parsed) == 0 && failed == len(sources) {
		return fmt.Errorf("refresh: all %d sources failed: %w", len(sources), errors.Join(errs...))
	}

	now := started.In(r.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: r.loc,
		RangeStart:      today.AddDate(0, 0, -r.cfg.BackfillDays),
		RangeEnd:        today.AddDate(0, 0, r.cfg.HorizonDays+1),
	})
	if err != nil {
		return fmt.Errorf("refresh: expand: %w", err)
	}

	r.store.Replace(store.Snapshot{
		Occurrences:  expanded.Occurrences,
		Truncated:    expanded.TruncatedEvents,
		RefreshedAt:  r.now(),
		SourceErrors: failed,
	})

	appLog.Info("refresh completed",
		"sources", len(sources),
		"failed", failed,
		"occurrences", len(expanded.Occurrences),
		"elapsed", r.now().Sub(started).Round(time.Millisecond),
	)

	for _, hook := range r.hooks {
		if err := hook(ctx); err != nil {
			appLog.Error("refresh: hook failed", err)
		}
	}
	return nil
}

// Scheduler runs a Refresher on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	refresher *Refresher
}

// NewScheduler validates spec (standard 5-field cron) and prepares the
// schedule in loc. Overlapping runs are skipped.
func NewScheduler(r *Refresher, spec string, loc *time.Location) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	s := &Scheduler{cron: c, refresher: r}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("refresh: invalid cron %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) tick() {
	// Cron jobs get no context; each run is bounded on its own.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := s.refresher.Run(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err)
	}
}

// Start runs one refresh immediately, then follows the schedule until
// ctx is cancelled. It returns after the initial refresh.
func (s *Scheduler) Start(ctx context.Context) {
	if err := s.refresher.Run(ctx); err != nil {
		appLog.Error("initial refresh failed", err)
	}
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
}

// Next returns the next scheduled run, or the zero time when stopped.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// cronLogger routes robfig/cron logs into the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}
