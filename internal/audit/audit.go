// Package audit subscribes to the ingestion event stream and writes a
// structured log line per event. It replaces a downstream search indexer,
// the full-text search layer this system does not build.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/events"
)

// Logger consumes events.Publisher's channels and logs each one. It is the
// only subscriber in this deployment; a future consumer (metrics exporter,
// webhook fan-out) would subscribe the same way.
type Logger struct {
	pub events.Publisher
	log zerolog.Logger
}

// New builds an audit Logger over pub.
func New(pub events.Publisher, log zerolog.Logger) *Logger {
	return &Logger{pub: pub, log: log.With().Str("component", "audit").Logger()}
}

// Run blocks, logging events until ctx is cancelled.
func (l *Logger) Run(ctx context.Context) {
	listings := l.pub.SubscribeListingUpserted()
	runs := l.pub.SubscribeScrapeRunCompleted()

	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-listings:
			l.log.Info().
				Str("listing_id", evt.ListingID).
				Str("source_code", evt.SourceCode).
				Bool("created", evt.Created).
				Msg("listing upserted")
		case evt := <-runs:
			l.log.Info().
				Str("job_id", evt.JobID).
				Int("found", evt.Found).
				Int("new", evt.New).
				Int("updated", evt.Updated).
				Msg("scrape run completed")
		}
	}
}
