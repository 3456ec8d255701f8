// Package metrics is an in-process, per-run scraper stats collector: fetch/
// parse timing, scraped/failed counts, cache hit totals. It is not a
// persisted metric store — it lives for the process's lifetime and backs
// the plain-text /metrics endpoint. The composition root hands its Collector
// only to that endpoint; no adapter, runner or enrichment client records into
// it, so the endpoint reports zero counts and timings alongside the uptime.
package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Timer measures one named operation and records its duration into a
// Collector on Stop. Usage mirrors a defer'd context manager:
//
//	stop := collector.StartTimer("fetch")
//	defer stop()
type Timer func()

// Collector accumulates counters and timing samples across an entire
// process run (not scoped to a single job), so the /metrics endpoint always
// reflects cumulative activity since startup.
type Collector struct {
	pagesScraped int64
	pagesFailed  int64
	cacheHits    int64
	cacheMisses  int64

	mu         sync.Mutex
	fetchTimes []time.Duration
	parseTimes []time.Duration
	saveTimes  []time.Duration
	startedAt  time.Time
}

// New builds a Collector whose uptime is measured from this call.
func New() *Collector {
	return &Collector{startedAt: time.Now()}
}

// IncrementScraped records one successfully scraped and saved listing.
func (c *Collector) IncrementScraped() { atomic.AddInt64(&c.pagesScraped, 1) }

// IncrementFailed records one listing that failed to scrape or save.
func (c *Collector) IncrementFailed() { atomic.AddInt64(&c.pagesFailed, 1) }

// IncrementCacheHit records one source-id or geocode cache hit.
func (c *Collector) IncrementCacheHit() { atomic.AddInt64(&c.cacheHits, 1) }

// IncrementCacheMiss records one cache miss.
func (c *Collector) IncrementCacheMiss() { atomic.AddInt64(&c.cacheMisses, 1) }

// StartTimer begins timing an operation of the given kind ("fetch", "parse",
// "save"); the returned Timer records the elapsed duration when called.
func (c *Collector) StartTimer(kind string) Timer {
	start := time.Now()
	return func() {
		elapsed := time.Since(start)
		c.mu.Lock()
		switch kind {
		case "fetch":
			c.fetchTimes = append(c.fetchTimes, elapsed)
		case "parse":
			c.parseTimes = append(c.parseTimes, elapsed)
		case "save":
			c.saveTimes = append(c.saveTimes, elapsed)
		}
		c.mu.Unlock()
	}
}

// Summary is a point-in-time snapshot rendered by the /metrics endpoint.
type Summary struct {
	PagesScraped  int64
	PagesFailed   int64
	SuccessRate   float64
	CacheHits     int64
	CacheMisses   int64
	AvgFetchTime  time.Duration
	AvgParseTime  time.Duration
	AvgSaveTime   time.Duration
	Uptime        time.Duration
}

func avg(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range d {
		total += v
	}
	return total / time.Duration(len(d))
}

// Snapshot computes the current Summary.
func (c *Collector) Snapshot() Summary {
	scraped := atomic.LoadInt64(&c.pagesScraped)
	failed := atomic.LoadInt64(&c.pagesFailed)

	var rate float64
	if total := scraped + failed; total > 0 {
		rate = float64(scraped) / float64(total)
	}

	c.mu.Lock()
	fetchAvg, parseAvg, saveAvg := avg(c.fetchTimes), avg(c.parseTimes), avg(c.saveTimes)
	c.mu.Unlock()

	return Summary{
		PagesScraped: scraped,
		PagesFailed:  failed,
		SuccessRate:  rate,
		CacheHits:    atomic.LoadInt64(&c.cacheHits),
		CacheMisses:  atomic.LoadInt64(&c.cacheMisses),
		AvgFetchTime: fetchAvg,
		AvgParseTime: parseAvg,
		AvgSaveTime:  saveAvg,
		Uptime:       time.Since(c.startedAt),
	}
}

// RenderText renders the current snapshot as the plain-text body the
// /metrics endpoint serves.
func (c *Collector) RenderText() string {
	s := c.Snapshot()
	var b strings.Builder
	fmt.Fprintf(&b, "pages_scraped %d\n", s.PagesScraped)
	fmt.Fprintf(&b, "pages_failed %d\n", s.PagesFailed)
	fmt.Fprintf(&b, "success_rate %.3f\n", s.SuccessRate)
	fmt.Fprintf(&b, "cache_hits %d\n", s.CacheHits)
	fmt.Fprintf(&b, "cache_misses %d\n", s.CacheMisses)
	fmt.Fprintf(&b, "avg_fetch_time_ms %.1f\n", float64(s.AvgFetchTime.Microseconds())/1000)
	fmt.Fprintf(&b, "avg_parse_time_ms %.1f\n", float64(s.AvgParseTime.Microseconds())/1000)
	fmt.Fprintf(&b, "avg_save_time_ms %.1f\n", float64(s.AvgSaveTime.Microseconds())/1000)
	fmt.Fprintf(&b, "uptime_seconds %.0f\n", s.Uptime.Seconds())
	return b.String()
}
