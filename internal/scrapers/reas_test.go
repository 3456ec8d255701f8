package scrapers

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestReasToNormalizedMapsCoordinatesAndPhotos(t *testing.T) {
	l := reasListing{
		ID:      "abc123",
		Title:   "Rodinný dům 5+1",
		Price:   7500000,
		Type:    "house",
		Address: "Znojmo",
	}
	l.Point.Coordinates = [2]float64{16.05, 48.85} // [lng, lat]
	l.ImagesWithMetadata = []struct {
		Original string `json:"original"`
	}{{Original: "https://cdn/1.jpg"}}

	n := (&Reas{}).toNormalized(l)

	require.Equal(t, "abc123", n.ExternalID)
	require.Equal(t, "Sale", n.OfferType)
	require.NotNil(t, n.Latitude)
	require.NotNil(t, n.Longitude)
	require.Equal(t, 48.85, *n.Latitude)
	require.Equal(t, 16.05, *n.Longitude)
	require.Equal(t, []string{"https://cdn/1.jpg"}, n.Photos)
}

func TestReasToNormalizedLeavesGPSNilAtOrigin(t *testing.T) {
	n := (&Reas{}).toNormalized(reasListing{ID: "x"})
	require.Nil(t, n.Latitude)
	require.Nil(t, n.Longitude)
}

func TestExtractNextDataParsesBuildIDAndListings(t *testing.T) {
	html := `<html><body><script id="__NEXT_DATA__" type="application/json">
		{"buildId":"abc123build","props":{"pageProps":{"count":2,"listings":[{"_id":"1"},{"_id":"2"}]}}}
	</script></body></html>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	data, ok := extractNextData(doc)
	require.True(t, ok)
	require.Equal(t, "abc123build", data.BuildID)
	require.Equal(t, 2, data.Props.PageProps.Count)
	require.Len(t, data.Props.PageProps.Listings, 2)
}

func TestExtractNextDataMissingScriptReturnsFalse(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body>no data here</body></html>`))
	require.NoError(t, err)

	_, ok := extractNextData(doc)
	require.False(t, ok)
}

func TestReasLocalityFilterBypassedGuard(t *testing.T) {
	a := &Reas{log: zerolog.Nop(), path: "prodej/domy/test"}
	require.False(t, a.localityFilterBypassed(499))
	require.True(t, a.localityFilterBypassed(5124))
}
