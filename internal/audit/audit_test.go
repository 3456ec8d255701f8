package audit

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/events"
)

func TestLoggerRunLogsListingUpserted(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	pub := events.NewInMemory(4)
	l := New(pub, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	pub.PublishListingUpserted(ctx, events.ListingUpserted{ListingID: "l1", SourceCode: "sreality", Created: true})

	require.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("listing upserted"))
	}, time.Second, 10*time.Millisecond)
	require.Contains(t, buf.String(), "\"listing_id\":\"l1\"")
}

func TestLoggerRunLogsScrapeRunCompleted(t *testing.T) {
	var buf bytes.Buffer
	log := zerolog.New(&buf)

	pub := events.NewInMemory(4)
	l := New(pub, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	pub.PublishScrapeRunCompleted(ctx, events.ScrapeRunCompleted{JobID: "j1", Found: 5, New: 2, Updated: 3})

	require.Eventually(t, func() bool {
		return bytes.Contains(buf.Bytes(), []byte("scrape run completed"))
	}, time.Second, 10*time.Millisecond)
	require.Contains(t, buf.String(), "\"job_id\":\"j1\"")
}

func TestLoggerRunStopsOnContextCancel(t *testing.T) {
	pub := events.NewInMemory(4)
	l := New(pub, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
