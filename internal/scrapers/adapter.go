// Package scrapers holds one adapter per listing source. Every adapter
// satisfies the same small interface so the job runner can fan out across
// all of them identically regardless of how each source actually serves
// its data (static HTML, a JSON REST API, or a Next.js data blob).
package scrapers

import (
	"context"
	"sync/atomic"

	"github.com/cybersmurf/realestate-aggregator/internal/events"
	"github.com/cybersmurf/realestate-aggregator/internal/filter"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

// Adapter scrapes one source end to end and reports how many listings it
// saved. Run must be safe to call concurrently with Run on other adapters
// (never with itself) — the job runner starts one goroutine per source.
type Adapter interface {
	SourceCode() string
	Run(ctx context.Context, fullRescan bool) (int, error)
}

// Sink is the narrow surface an adapter needs from the rest of the system:
// policy filtering and persistence. Adapters never talk to *store.Store or
// *filter.Manager directly so they stay testable against a fake.
type Sink interface {
	ShouldInclude(model.NormalizedListing) (bool, string)
	UpsertListing(ctx context.Context, n model.NormalizedListing) (store.UpsertResult, error)
}

// sinkImpl is the production Sink wiring a *filter.Manager in front of a
// *store.Store.
type sinkImpl struct {
	filter *filter.Manager
	store  *store.Store
}

// NewSink builds the production Sink used by cmd/aggregator.
func NewSink(f *filter.Manager, s *store.Store) Sink {
	return &sinkImpl{filter: f, store: s}
}

func (s *sinkImpl) ShouldInclude(n model.NormalizedListing) (bool, string) {
	return s.filter.ShouldInclude(n)
}

func (s *sinkImpl) UpsertListing(ctx context.Context, n model.NormalizedListing) (store.UpsertResult, error) {
	return s.store.UpsertListing(ctx, n)
}

// Counts is a point-in-time snapshot of a CountingSink's running totals.
// Callers diff two snapshots to learn how many rows a particular window of
// activity (a single job run) created versus updated.
type Counts struct {
	Created int64
	Updated int64
}

// CountingSink wraps a Sink with atomic created/updated counters and
// ListingUpserted event publication, so the job runner can report an
// accurate new/updated split without adapters knowing anything about jobs
// or events themselves.
type CountingSink struct {
	inner   Sink
	pub     events.Publisher
	created int64
	updated int64
}

// NewCountingSink builds a CountingSink wrapping inner.
func NewCountingSink(inner Sink, pub events.Publisher) *CountingSink {
	return &CountingSink{inner: inner, pub: pub}
}

func (c *CountingSink) ShouldInclude(n model.NormalizedListing) (bool, string) {
	return c.inner.ShouldInclude(n)
}

func (c *CountingSink) UpsertListing(ctx context.Context, n model.NormalizedListing) (store.UpsertResult, error) {
	res, err := c.inner.UpsertListing(ctx, n)
	if err != nil {
		return res, err
	}
	if res.Created {
		atomic.AddInt64(&c.created, 1)
	} else {
		atomic.AddInt64(&c.updated, 1)
	}
	if c.pub != nil {
		c.pub.PublishListingUpserted(ctx, events.ListingUpserted{
			ListingID:  res.ListingID,
			SourceCode: n.SourceCode,
			Created:    res.Created,
		})
	}
	return res, nil
}

// Snapshot returns the current running totals.
func (c *CountingSink) Snapshot() Counts {
	return Counts{
		Created: atomic.LoadInt64(&c.created),
		Updated: atomic.LoadInt64(&c.updated),
	}
}
