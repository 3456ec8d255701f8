package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/config"
)

func newTestScheduler(t *testing.T, run JobFunc) *Scheduler {
	t.Helper()
	cfg := config.Default()
	s, err := New(cfg, run, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNewRegistersDailyAndWeeklyJobs(t *testing.T) {
	s := newTestScheduler(t, func(context.Context, []string, bool) {})
	jobs := s.Jobs()

	names := map[string]JobInfo{}
	for _, j := range jobs {
		names[j.Name] = j
	}
	require.Contains(t, names, DailyJobName)
	require.Contains(t, names, WeeklyJobName)
	require.False(t, names[DailyJobName].Paused)
	require.False(t, names[WeeklyJobName].Paused)
}

func TestPauseAndResumeUnknownJob(t *testing.T) {
	s := newTestScheduler(t, func(context.Context, []string, bool) {})
	require.Error(t, s.Pause("does_not_exist"))
	require.Error(t, s.Resume("does_not_exist"))
}

func TestPauseThenResume(t *testing.T) {
	s := newTestScheduler(t, func(context.Context, []string, bool) {})
	require.NoError(t, s.Pause(DailyJobName))

	jobs := s.Jobs()
	for _, j := range jobs {
		if j.Name == DailyJobName {
			require.True(t, j.Paused)
		}
	}

	require.NoError(t, s.Resume(DailyJobName))
	jobs = s.Jobs()
	for _, j := range jobs {
		if j.Name == DailyJobName {
			require.False(t, j.Paused)
		}
	}
}

func TestTriggerNowRunsImmediatelyWithCorrectFullRescanFlag(t *testing.T) {
	var mu sync.Mutex
	var dailyFullRescan, weeklyFullRescan bool
	var dailyCalled, weeklyCalled bool

	s := newTestScheduler(t, func(_ context.Context, _ []string, fullRescan bool) {
		mu.Lock()
		defer mu.Unlock()
		if !dailyCalled {
			dailyCalled = true
			dailyFullRescan = fullRescan
			return
		}
		weeklyCalled = true
		weeklyFullRescan = fullRescan
	})

	require.NoError(t, s.TriggerNow(context.Background(), DailyJobName))
	require.NoError(t, s.TriggerNow(context.Background(), WeeklyJobName))

	mu.Lock()
	defer mu.Unlock()
	require.False(t, dailyFullRescan)
	require.True(t, weeklyFullRescan)
}

func TestTriggerNowIgnoresPausedState(t *testing.T) {
	called := make(chan struct{}, 1)
	s := newTestScheduler(t, func(context.Context, []string, bool) {
		called <- struct{}{}
	})
	require.NoError(t, s.Pause(DailyJobName))
	require.NoError(t, s.TriggerNow(context.Background(), DailyJobName))

	select {
	case <-called:
	case <-time.After(time.Second):
		t.Fatal("TriggerNow must run even when the job is paused")
	}
}

func TestTriggerNowUnknownJob(t *testing.T) {
	s := newTestScheduler(t, func(context.Context, []string, bool) {})
	require.Error(t, s.TriggerNow(context.Background(), "bogus"))
}

func TestReschedulePreservesFullRescanAndName(t *testing.T) {
	s := newTestScheduler(t, func(context.Context, []string, bool) {})
	require.NoError(t, s.Reschedule(WeeklyJobName, "0 4 * * 1"))

	jobs := s.Jobs()
	for _, j := range jobs {
		if j.Name == WeeklyJobName {
			require.Equal(t, "0 4 * * 1", j.Spec)
		}
	}
}

func TestRescheduleUnknownJob(t *testing.T) {
	s := newTestScheduler(t, func(context.Context, []string, bool) {})
	require.Error(t, s.Reschedule("bogus", "* * * * *"))
}
