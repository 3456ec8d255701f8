package events

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInMemoryPublishAndSubscribe(t *testing.T) {
	pub := NewInMemory(4)
	ctx := context.Background()

	pub.PublishListingUpserted(ctx, ListingUpserted{ListingID: "l1", SourceCode: "sreality", Created: true})
	pub.PublishScrapeRunCompleted(ctx, ScrapeRunCompleted{JobID: "j1", Found: 10, New: 3, Updated: 7})

	select {
	case evt := <-pub.SubscribeListingUpserted():
		require.Equal(t, "l1", evt.ListingID)
		require.True(t, evt.Created)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for listing_upserted event")
	}

	select {
	case evt := <-pub.SubscribeScrapeRunCompleted():
		require.Equal(t, "j1", evt.JobID)
		require.Equal(t, 10, evt.Found)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for scrape_run_completed event")
	}
}

func TestInMemoryPublishDropsWhenFull(t *testing.T) {
	pub := NewInMemory(1)
	ctx := context.Background()

	pub.PublishListingUpserted(ctx, ListingUpserted{ListingID: "first"})
	// Channel buffer is now full; this publish must not block the caller.
	done := make(chan struct{})
	go func() {
		pub.PublishListingUpserted(ctx, ListingUpserted{ListingID: "second"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full channel")
	}

	evt := <-pub.SubscribeListingUpserted()
	require.Equal(t, "first", evt.ListingID)
}

func TestNewInMemoryDefaultsBufferSize(t *testing.T) {
	pub := NewInMemory(0)
	require.NotNil(t, pub)
}
