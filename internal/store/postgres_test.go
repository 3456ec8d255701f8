package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/redisx"
)

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello", truncate("hello", 10))
	require.Equal(t, "hel", truncate("hello", 3))
	require.Equal(t, "", truncate("hello", 0))
}

func TestCadastreStatusExclusionExcludesNotFoundUnlessReprocessing(t *testing.T) {
	excluded := cadastreStatusExclusion(false)
	require.Contains(t, excluded, "'not_found'")

	reprocessing := cadastreStatusExclusion(true)
	require.NotContains(t, reprocessing, "'not_found'")
	require.Contains(t, reprocessing, "'found'")
	require.Contains(t, reprocessing, "'manual'")
}

func TestSourceForCodeUsesLocalCacheBeforeDB(t *testing.T) {
	s := &Store{SourceCache: redisx.NewSourceIDCache(nil, time.Hour)}
	s.SourceCache.Set(context.Background(), "sreality", "abc-123|Sreality.cz")

	source, err := s.sourceForCode(context.Background(), "sreality")
	require.NoError(t, err)
	require.Equal(t, "abc-123", source.ID)
	require.Equal(t, "Sreality.cz", source.Name)
	require.Equal(t, "sreality", source.Code)
}
