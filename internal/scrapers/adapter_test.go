package scrapers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/events"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

type fakeSink struct {
	nextCreated bool
	nextErr     error
	upserts     []model.NormalizedListing
}

func (f *fakeSink) ShouldInclude(model.NormalizedListing) (bool, string) { return true, "" }

func (f *fakeSink) UpsertListing(_ context.Context, n model.NormalizedListing) (store.UpsertResult, error) {
	if f.nextErr != nil {
		return store.UpsertResult{}, f.nextErr
	}
	f.upserts = append(f.upserts, n)
	return store.UpsertResult{ListingID: "generated-id", Created: f.nextCreated}, nil
}

func TestCountingSinkCountsCreatedAndUpdated(t *testing.T) {
	fake := &fakeSink{nextCreated: true}
	pub := events.NewInMemory(8)
	cs := NewCountingSink(fake, pub)
	ctx := context.Background()

	_, err := cs.UpsertListing(ctx, model.NormalizedListing{SourceCode: "sreality"})
	require.NoError(t, err)

	fake.nextCreated = false
	_, err = cs.UpsertListing(ctx, model.NormalizedListing{SourceCode: "sreality"})
	require.NoError(t, err)
	_, err = cs.UpsertListing(ctx, model.NormalizedListing{SourceCode: "sreality"})
	require.NoError(t, err)

	snap := cs.Snapshot()
	require.EqualValues(t, 1, snap.Created)
	require.EqualValues(t, 2, snap.Updated)
}

func TestCountingSinkPublishesListingUpserted(t *testing.T) {
	fake := &fakeSink{nextCreated: true}
	pub := events.NewInMemory(8)
	cs := NewCountingSink(fake, pub)
	ctx := context.Background()

	_, err := cs.UpsertListing(ctx, model.NormalizedListing{SourceCode: "remax"})
	require.NoError(t, err)

	evt := <-pub.SubscribeListingUpserted()
	require.Equal(t, "generated-id", evt.ListingID)
	require.Equal(t, "remax", evt.SourceCode)
	require.True(t, evt.Created)
}

func TestCountingSinkPropagatesErrorWithoutCounting(t *testing.T) {
	fake := &fakeSink{nextErr: errors.New("db unavailable")}
	cs := NewCountingSink(fake, events.NewInMemory(8))
	ctx := context.Background()

	_, err := cs.UpsertListing(ctx, model.NormalizedListing{SourceCode: "idnes"})
	require.Error(t, err)

	snap := cs.Snapshot()
	require.Zero(t, snap.Created)
	require.Zero(t, snap.Updated)
}

func TestCountingSinkToleratesNilPublisher(t *testing.T) {
	fake := &fakeSink{nextCreated: true}
	cs := NewCountingSink(fake, nil)
	_, err := cs.UpsertListing(context.Background(), model.NormalizedListing{SourceCode: "reas"})
	require.NoError(t, err)
	require.EqualValues(t, 1, cs.Snapshot().Created)
}

func TestCountingSinkDelegatesShouldInclude(t *testing.T) {
	fake := &fakeSink{}
	cs := NewCountingSink(fake, nil)
	ok, reason := cs.ShouldInclude(model.NormalizedListing{})
	require.True(t, ok)
	require.Empty(t, reason)
}
