// Package dispatch runs scrape jobs in the background so an HTTP trigger
// handler can return immediately instead of blocking for the minutes a
// full rescan can take.
package dispatch

import (
	"context"
	"sync"
	"time"
)

// Job is one unit of background work: a scrape job id plus the parameters
// its runner needs. Dedup keys on JobID, not on source codes, since every
// trigger creates a distinct scrape_jobs row up front.
type Job struct {
	JobID       string
	SourceCodes []string
	FullRescan  bool
}

// Dispatcher is a bounded worker pool with in-flight dedup, generalized
// from a single-key property refresh queue into a general scrape-job queue.
type Dispatcher struct {
	ch      chan Job
	inFlight sync.Map // JobID -> struct{}
	do      func(ctx context.Context, j Job)
	timeout time.Duration
}

// New builds a Dispatcher with capacity queue slots and workerCount workers,
// each running do with a per-job timeout.
func New(capacity, workerCount int, timeout time.Duration, do func(ctx context.Context, j Job)) *Dispatcher {
	if capacity <= 0 {
		capacity = 64
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	d := &Dispatcher{
		ch:      make(chan Job, capacity),
		do:      do,
		timeout: timeout,
	}
	for i := 0; i < workerCount; i++ {
		go d.worker()
	}
	return d
}

// Enqueue schedules j for background execution. If j.JobID is already
// in-flight, or the queue is saturated, Enqueue returns false and the
// caller is responsible for deciding whether that's an error (the job row
// itself still exists and can be retried via a fresh trigger).
func (d *Dispatcher) Enqueue(j Job) bool {
	if _, exists := d.inFlight.LoadOrStore(j.JobID, struct{}{}); exists {
		return false
	}
	select {
	case d.ch <- j:
		return true
	default:
		d.inFlight.Delete(j.JobID)
		return false
	}
}

func (d *Dispatcher) worker() {
	for j := range d.ch {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		func() {
			defer func() {
				d.inFlight.Delete(j.JobID)
				cancel()
			}()
			if d.do != nil {
				d.do(ctx, j)
			}
		}()
	}
}
