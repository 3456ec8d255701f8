package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherRunsEnqueuedJob(t *testing.T) {
	done := make(chan Job, 1)
	d := New(4, 1, time.Second, func(_ context.Context, j Job) {
		done <- j
	})

	accepted := d.Enqueue(Job{JobID: "job-1", SourceCodes: []string{"sreality"}})
	require.True(t, accepted)

	select {
	case j := <-done:
		require.Equal(t, "job-1", j.JobID)
	case <-time.After(time.Second):
		t.Fatal("dispatcher never ran the job")
	}
}

func TestDispatcherDedupsInFlightJobID(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	var mu sync.Mutex

	d := New(4, 1, 5*time.Second, func(_ context.Context, _ Job) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
	})

	first := d.Enqueue(Job{JobID: "dup"})
	require.True(t, first)

	// Give the worker a chance to pick up the first job before retrying.
	time.Sleep(50 * time.Millisecond)

	second := d.Enqueue(Job{JobID: "dup"})
	require.False(t, second, "a job already in flight must be rejected")

	close(release)
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, int32(1), calls)
}

func TestDispatcherRejectsWhenQueueSaturated(t *testing.T) {
	block := make(chan struct{})
	d := New(1, 1, 5*time.Second, func(_ context.Context, _ Job) {
		<-block
	})
	defer close(block)

	require.True(t, d.Enqueue(Job{JobID: "a"}))
	time.Sleep(20 * time.Millisecond) // let the worker claim "a"

	require.True(t, d.Enqueue(Job{JobID: "b"})) // fills the one queue slot
	require.False(t, d.Enqueue(Job{JobID: "c"}), "queue is saturated and must reject")
}

func TestNewAppliesDefaults(t *testing.T) {
	d := New(0, 0, 0, func(context.Context, Job) {})
	require.Equal(t, 64, cap(d.ch))
	require.Equal(t, 30*time.Minute, d.timeout)
}
