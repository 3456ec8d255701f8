// Package events is the pluggable event-publication layer the job runner
// and the scrapers' CountingSink emit through. An in-memory fan-out is the default; a
// Redis-backed implementation is available when Redis is configured, so a
// multi-process deployment can still see ingestion events.
package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// ListingUpserted fires once per successful store write, reporting whether
// the row was newly created or an existing one was refreshed.
type ListingUpserted struct {
	ListingID  string `json:"listing_id"`
	SourceCode string `json:"source_code"`
	Created    bool   `json:"created"`
}

// ScrapeRunCompleted fires once per finished scrape job.
type ScrapeRunCompleted struct {
	JobID   string `json:"job_id"`
	Found   int    `json:"found"`
	New     int    `json:"new"`
	Updated int    `json:"updated"`
}

// Publisher is the narrow abstraction every producer writes to. Consumers
// pick whichever Subscribe* channel they care about; a consumer that never
// reads its channel simply drops events once the channel's buffer fills.
type Publisher interface {
	PublishListingUpserted(ctx context.Context, evt ListingUpserted)
	PublishScrapeRunCompleted(ctx context.Context, evt ScrapeRunCompleted)
	SubscribeListingUpserted() <-chan ListingUpserted
	SubscribeScrapeRunCompleted() <-chan ScrapeRunCompleted
}

type inMemory struct {
	listings chan ListingUpserted
	runs     chan ScrapeRunCompleted
}

// NewInMemory builds a process-local fan-out Publisher. Publishing never
// blocks: a full channel drops the event rather than stalling the caller.
func NewInMemory(buffer int) Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemory{
		listings: make(chan ListingUpserted, buffer),
		runs:     make(chan ScrapeRunCompleted, buffer),
	}
}

func (m *inMemory) PublishListingUpserted(_ context.Context, evt ListingUpserted) {
	select {
	case m.listings <- evt:
	default:
	}
}

func (m *inMemory) PublishScrapeRunCompleted(_ context.Context, evt ScrapeRunCompleted) {
	select {
	case m.runs <- evt:
	default:
	}
}

func (m *inMemory) SubscribeListingUpserted() <-chan ListingUpserted     { return m.listings }
func (m *inMemory) SubscribeScrapeRunCompleted() <-chan ScrapeRunCompleted { return m.runs }

const (
	redisChannelListings = "realestate:listing_upserted"
	redisChannelRuns     = "realestate:scrape_run_completed"
)

// redisPublisher publishes to Redis pub/sub channels and also fans received
// messages back out locally, so in-process subscribers (the audit logger)
// work identically whether or not Redis is configured.
type redisPublisher struct {
	rdb      *redis.Client
	listings chan ListingUpserted
	runs     chan ScrapeRunCompleted
	log      zerolog.Logger
}

// NewRedis builds a Publisher backed by rdb. It starts background
// goroutines subscribing to its own channels so the local Subscribe* calls
// still observe events published by this process or any other sharing the
// same Redis instance.
func NewRedis(ctx context.Context, rdb *redis.Client, log zerolog.Logger) Publisher {
	p := &redisPublisher{
		rdb:      rdb,
		listings: make(chan ListingUpserted, 256),
		runs:     make(chan ScrapeRunCompleted, 256),
		log:      log.With().Str("component", "events").Logger(),
	}
	go p.relay(ctx, redisChannelListings, p.listings)
	go p.relayRuns(ctx, redisChannelRuns, p.runs)
	return p
}

func (p *redisPublisher) PublishListingUpserted(ctx context.Context, evt ListingUpserted) {
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, redisChannelListings, b).Err(); err != nil {
		p.log.Warn().Err(err).Msg("publish listing_upserted failed")
	}
}

func (p *redisPublisher) PublishScrapeRunCompleted(ctx context.Context, evt ScrapeRunCompleted) {
	b, err := json.Marshal(evt)
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, redisChannelRuns, b).Err(); err != nil {
		p.log.Warn().Err(err).Msg("publish scrape_run_completed failed")
	}
}

func (p *redisPublisher) SubscribeListingUpserted() <-chan ListingUpserted     { return p.listings }
func (p *redisPublisher) SubscribeScrapeRunCompleted() <-chan ScrapeRunCompleted { return p.runs }

func (p *redisPublisher) relay(ctx context.Context, channel string, out chan<- ListingUpserted) {
	sub := p.rdb.Subscribe(ctx, channel)
	defer sub.Close()
	for msg := range sub.Channel() {
		var evt ListingUpserted
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			continue
		}
		select {
		case out <- evt:
		default:
		}
	}
}

func (p *redisPublisher) relayRuns(ctx context.Context, channel string, out chan<- ScrapeRunCompleted) {
	sub := p.rdb.Subscribe(ctx, channel)
	defer sub.Close()
	for msg := range sub.Channel() {
		var evt ScrapeRunCompleted
		if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
			continue
		}
		select {
		case out <- evt:
		default:
		}
	}
}
