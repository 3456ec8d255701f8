// Package scheduler wraps robfig/cron with the two default jobs spec.md
// §4.7 requires — a daily incremental scrape and a weekly full rescan — plus
// the pause/resume/reschedule/trigger-now control surface the HTTP layer
// exposes.
package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/config"
)

// JobFunc runs one scrape job. fullRescan distinguishes the weekly full
// rescan from the daily incremental run; sourceCodes == nil means "every
// active source".
type JobFunc func(ctx context.Context, sourceCodes []string, fullRescan bool)

const (
	// DailyJobName and WeeklyJobName identify the two default entries so
	// the control surface can address them without magic strings.
	DailyJobName  = "daily_scrape"
	WeeklyJobName = "weekly_full_rescan"
)

// Scheduler owns a cron.Cron instance and the entry-id bookkeeping needed to
// pause, resume, and reschedule the two default jobs at runtime.
type Scheduler struct {
	cron *cron.Cron
	run  JobFunc
	log  zerolog.Logger

	mu      sync.Mutex
	entries map[string]cron.EntryID
	specs   map[string]string
	paused  map[string]bool
}

// New builds a Scheduler from cfg, running jobs via run.
func New(cfg config.Config, run JobFunc, log zerolog.Logger) (*Scheduler, error) {
	location, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve scheduler timezone: %w", err)
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(location), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		run:     run,
		log:     log.With().Str("component", "scheduler").Logger(),
		entries: map[string]cron.EntryID{},
		specs:   map[string]string{},
		paused:  map[string]bool{},
	}

	if err := s.addJob(DailyJobName, cfg.Scheduler.DailyCron, nil, false); err != nil {
		return nil, err
	}
	if err := s.addJob(WeeklyJobName, cfg.Scheduler.WeeklyCron, nil, true); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins executing scheduled jobs in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the scheduler without waiting; the returned context is done
// once any in-flight job has finished.
func (s *Scheduler) Stop() context.Context { return s.cron.Stop() }

func (s *Scheduler) addJob(name, spec string, sourceCodes []string, fullRescan bool) error {
	id, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		paused := s.paused[name]
		s.mu.Unlock()
		if paused {
			s.log.Debug().Str("job", name).Msg("skipping paused job")
			return
		}
		s.log.Info().Str("job", name).Bool("full_rescan", fullRescan).Msg("scheduled job firing")
		s.run(context.Background(), sourceCodes, fullRescan)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}

	s.mu.Lock()
	s.entries[name] = id
	s.specs[name] = spec
	s.mu.Unlock()
	return nil
}

// Pause prevents name's entry from firing without removing it from the
// schedule, so Resume restores the exact same cron spec.
func (s *Scheduler) Pause(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.paused[name] = true
	return nil
}

// Resume un-pauses name.
func (s *Scheduler) Resume(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.paused[name] = false
	return nil
}

// Reschedule replaces name's cron spec with spec, keeping its fullRescan
// behavior and pause state.
func (s *Scheduler) Reschedule(name, spec string) error {
	s.mu.Lock()
	id, ok := s.entries[name]
	fullRescan := name == WeeklyJobName
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}

	s.cron.Remove(id)
	return s.addJob(name, spec, nil, fullRescan)
}

// TriggerNow runs name's job body immediately, outside its cron schedule,
// ignoring its paused state.
func (s *Scheduler) TriggerNow(ctx context.Context, name string) error {
	fullRescan := name == WeeklyJobName
	switch name {
	case DailyJobName, WeeklyJobName:
	default:
		return fmt.Errorf("unknown job %q", name)
	}
	s.run(ctx, nil, fullRescan)
	return nil
}

// JobInfo describes one scheduled entry for the control surface.
type JobInfo struct {
	Name   string `json:"name"`
	Spec   string `json:"spec"`
	Paused bool   `json:"paused"`
	Next   string `json:"next_run,omitempty"`
}

// Jobs lists the current state of every scheduled entry.
func (s *Scheduler) Jobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobInfo, 0, len(s.entries))
	for name, id := range s.entries {
		entry := s.cron.Entry(id)
		info := JobInfo{Name: name, Spec: s.specs[name], Paused: s.paused[name]}
		if !entry.Next.IsZero() {
			info.Next = entry.Next.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, info)
	}
	return out
}
