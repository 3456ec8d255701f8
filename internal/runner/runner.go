// Package runner executes scrape jobs: it fans out across source adapters,
// aggregates their counts, gates the per-source deactivation sweep on a
// successful full rescan, and persists job lifecycle state.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/events"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
	"github.com/cybersmurf/realestate-aggregator/internal/scrapers"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

// Runner owns the registry of adapters and drives them against a store.
type Runner struct {
	adapters map[string]scrapers.Adapter
	sink     *scrapers.CountingSink
	store    *store.Store
	events   events.Publisher
	log      zerolog.Logger
}

// New builds a Runner over the given adapter set. sink must be the same
// CountingSink instance the adapters were constructed with (via
// scrapers.All), so RunJob's before/after snapshot reflects exactly the
// writes this job's adapters made.
func New(adapters []scrapers.Adapter, sink *scrapers.CountingSink, st *store.Store, pub events.Publisher, log zerolog.Logger) *Runner {
	return &Runner{
		adapters: scrapers.ByCode(adapters),
		sink:     sink,
		store:    st,
		events:   pub,
		log:      log.With().Str("component", "runner").Logger(),
	}
}

// sourceResult captures one adapter's outcome for aggregation and for the
// deactivation-sweep decision below.
type sourceResult struct {
	sourceCode string
	found      int
	err        error
}

// RunJob executes the scrape job identified by jobID: it fans out one
// goroutine per requested source (unbounded at this level — each adapter
// already bounds its own detail-fetch concurrency), runs the deactivation
// sweep for every source that completed a full rescan without error, and
// persists final counts and status. The new/updated split comes from
// diffing the shared CountingSink's totals around the fan-out rather than
// from each adapter's own count, since an adapter only knows how many
// listings it saved, not whether each one was an insert or an update.
//
// A single source's adapter or sweep failing never fails the job: it is
// isolated to that source, logged, and folded into error_message, while the
// job itself is still marked Succeeded with the totals the other sources
// produced. Only a failure listing active sources before the fan-out marks
// the job Failed; if marking the job Running fails, RunJob returns that error
// and leaves the job row as it was.
func (r *Runner) RunJob(ctx context.Context, jobID string, sourceCodes []string, fullRescan bool) error {
	startedAt := time.Now().UTC()
	if err := r.store.UpdateJob(ctx, jobID, store.JobUpdate{
		Status:    statusPtr(model.JobStatusRunning),
		StartedAt: &startedAt,
	}); err != nil {
		return fmt.Errorf("mark job %s running: %w", jobID, err)
	}

	if len(sourceCodes) == 0 {
		active, err := r.store.ListActiveSourceCodes(ctx)
		if err != nil {
			return r.fail(ctx, jobID, startedAt, fmt.Errorf("list active sources: %w", err))
		}
		sourceCodes = active
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []sourceResult
	)

	runStartedAt := time.Now().UTC()
	before := r.sink.Snapshot()

	for _, code := range sourceCodes {
		adapter, ok := r.adapters[code]
		if !ok {
			r.log.Warn().Str("source", code).Msg("unknown source code, skipping")
			continue
		}

		wg.Add(1)
		go func(code string, adapter scrapers.Adapter) {
			defer wg.Done()
			found, err := r.runAdapter(ctx, adapter, fullRescan)
			mu.Lock()
			results = append(results, sourceResult{sourceCode: code, found: found, err: err})
			mu.Unlock()
		}(code, adapter)
	}

	wg.Wait()

	after := r.sink.Snapshot()
	totalNew := int(after.Created - before.Created)
	totalUpdated := int(after.Updated - before.Updated)

	var (
		totalFound int
		joinedErrs []error
	)

	for _, res := range results {
		if res.err != nil {
			r.log.Error().Err(res.err).Str("source", res.sourceCode).Msg("adapter run failed")
			joinedErrs = append(joinedErrs, fmt.Errorf("%s: %w", res.sourceCode, res.err))
			continue
		}

		totalFound += res.found

		if fullRescan {
			affected, err := r.store.DeactivateUnseen(ctx, res.sourceCode, runStartedAt)
			if err != nil {
				r.log.Error().Err(err).Str("source", res.sourceCode).Msg("deactivation sweep failed")
				joinedErrs = append(joinedErrs, fmt.Errorf("%s: deactivate unseen: %w", res.sourceCode, err))
				continue
			}
			if affected > 0 {
				r.log.Info().Str("source", res.sourceCode).Int64("deactivated", affected).Msg("deactivated unseen listings")
			}
		}
	}

	// A failed adapter or sweep is isolated to its own source: the job still
	// reports Succeeded with the totals the surviving adapters produced, and
	// the failure is recorded in error_message for visibility. Only the
	// runner's own orchestration failing before this point (see the early
	// r.fail calls above) marks the whole job Failed.
	finishedAt := time.Now().UTC()
	var errMsg *string
	if len(joinedErrs) > 0 {
		msg := joinErrors(joinedErrs).Error()
		errMsg = &msg
	}

	if err := r.store.UpdateJob(ctx, jobID, store.JobUpdate{
		Status:          statusPtr(model.JobStatusSucceeded),
		ListingsFound:   &totalFound,
		ListingsNew:     &totalNew,
		ListingsUpdated: &totalUpdated,
		ErrorMessage:    errMsg,
		FinishedAt:      &finishedAt,
		Progress:        intPtr(100),
	}); err != nil {
		return fmt.Errorf("finalize job %s: %w", jobID, err)
	}

	r.events.PublishScrapeRunCompleted(ctx, events.ScrapeRunCompleted{
		JobID:   jobID,
		Found:   totalFound,
		New:     totalNew,
		Updated: totalUpdated,
	})

	if len(joinedErrs) > 0 {
		return joinErrors(joinedErrs)
	}
	return nil
}

// runAdapter isolates a single adapter's panics from the rest of the fan-out:
// a misbehaving source must never take down the whole job.
func (r *Runner) runAdapter(ctx context.Context, adapter scrapers.Adapter, fullRescan bool) (found int, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic in adapter %s: %v", adapter.SourceCode(), rec)
		}
	}()
	return adapter.Run(ctx, fullRescan)
}

func (r *Runner) fail(ctx context.Context, jobID string, startedAt time.Time, cause error) error {
	finishedAt := time.Now().UTC()
	msg := cause.Error()
	_ = r.store.UpdateJob(ctx, jobID, store.JobUpdate{
		Status:       statusPtr(model.JobStatusFailed),
		ErrorMessage: &msg,
		StartedAt:    &startedAt,
		FinishedAt:   &finishedAt,
	})
	return cause
}

func statusPtr(s model.JobStatus) *model.JobStatus { return &s }
func intPtr(n int) *int                            { return &n }

// joinErrors mirrors errors.Join but keeps a stable, readable message for
// storage in scrape_jobs.error_message.
func joinErrors(errs []error) error {
	if len(errs) == 1 {
		return errs[0]
	}
	msg := fmt.Sprintf("%d source(s) failed", len(errs))
	for _, e := range errs {
		msg += "; " + e.Error()
	}
	return fmt.Errorf("%s", msg)
}
