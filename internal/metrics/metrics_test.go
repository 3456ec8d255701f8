package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCollectorCounters(t *testing.T) {
	c := New()
	c.IncrementScraped()
	c.IncrementScraped()
	c.IncrementFailed()
	c.IncrementCacheHit()
	c.IncrementCacheMiss()
	c.IncrementCacheMiss()

	s := c.Snapshot()
	require.EqualValues(t, 2, s.PagesScraped)
	require.EqualValues(t, 1, s.PagesFailed)
	require.EqualValues(t, 1, s.CacheHits)
	require.EqualValues(t, 2, s.CacheMisses)
	require.InDelta(t, 2.0/3.0, s.SuccessRate, 0.001)
}

func TestCollectorSuccessRateWithNoSamples(t *testing.T) {
	c := New()
	s := c.Snapshot()
	require.Zero(t, s.SuccessRate)
}

func TestCollectorTimerRecordsDuration(t *testing.T) {
	c := New()
	stop := c.StartTimer("fetch")
	time.Sleep(5 * time.Millisecond)
	stop()

	s := c.Snapshot()
	require.Greater(t, s.AvgFetchTime, time.Duration(0))
	require.Zero(t, s.AvgParseTime)
}

func TestCollectorTimerIgnoresUnknownKind(t *testing.T) {
	c := New()
	stop := c.StartTimer("unknown")
	stop()

	s := c.Snapshot()
	require.Zero(t, s.AvgFetchTime)
	require.Zero(t, s.AvgParseTime)
	require.Zero(t, s.AvgSaveTime)
}

func TestCollectorRenderTextContainsAllFields(t *testing.T) {
	c := New()
	c.IncrementScraped()
	text := c.RenderText()

	for _, field := range []string{
		"pages_scraped", "pages_failed", "success_rate",
		"cache_hits", "cache_misses",
		"avg_fetch_time_ms", "avg_parse_time_ms", "avg_save_time_ms",
		"uptime_seconds",
	} {
		require.True(t, strings.Contains(text, field), "missing field %q in rendered text", field)
	}
}
