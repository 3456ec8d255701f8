package scrapers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestResolveURL(t *testing.T) {
	require.Equal(t, "https://example.cz/detail/123", resolveURL("https://example.cz/list", "/detail/123"))
	require.Equal(t, "https://other.cz/x", resolveURL("https://example.cz/list", "https://other.cz/x"))
}

func TestAddPageParam(t *testing.T) {
	got := addPageParam("https://example.cz/list?region=14", "page", 3)
	require.Contains(t, got, "page=3")
	require.Contains(t, got, "region=14")
}

func TestAddPageParamInvalidURLReturnsUnchanged(t *testing.T) {
	require.Equal(t, "://bad", addPageParam("://bad", "page", 2))
}

func TestExternalIDFromURL(t *testing.T) {
	require.Equal(t, "123456", externalIDFromURL("https://example.cz/detail/123456"))
	require.Equal(t, "123456", externalIDFromURL("https://example.cz/detail/123456/"))
}

func TestExternalIDFromURLFallsBackToWholeURLWhenNoSlash(t *testing.T) {
	require.Equal(t, "noslash", externalIDFromURL("noslash"))
}

func newTestGenericAdapter(t *testing.T, html string) (*GenericAdapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(html))
	}))

	cfg := SiteConfig{
		SourceCode:          "testsite",
		BaseURL:             srv.URL,
		TitleSelector:       ".title",
		DescriptionSelector: ".description",
		PriceSelector:       ".price",
		LocationSelector:    ".location",
		PhotoSelector:       ".photo img",
		TableRowSelector:    "table tr",
	}
	return NewGenericAdapter(cfg, nil, zerolog.Nop()), srv
}

func TestParseDetailExtractsFields(t *testing.T) {
	html := `<html><body>
		<h1 class="title">Rodinný dům 4+1, Znojmo</h1>
		<div class="description">Prostorný dům s velkou zahradou, po rekonstrukci.</div>
		<div class="price">3 990 000 Kč</div>
		<div class="location">Znojmo, Jihomoravský kraj</div>
		<div class="photo"><img src="/img/1.jpg"><img data-src="/img/2.jpg"></div>
		<table><tr><td>Dispozice</td><td>4+1</td></tr><tr><td>Plocha</td><td>180 m²</td></tr></table>
	</body></html>`

	adapter, srv := newTestGenericAdapter(t, html)
	defer srv.Close()

	n, err := adapter.parseDetail(context.Background(), srv.URL+"/detail/555")
	require.NoError(t, err)
	require.NotNil(t, n)
	require.Equal(t, "555", n.ExternalID)
	require.Contains(t, n.Title, "Rodinný dům")
	require.NotNil(t, n.Price)
	require.Equal(t, 3990000.0, *n.Price)
	require.Equal(t, "4+1", n.Disposition)
	require.NotNil(t, n.AreaBuiltUp)
	require.Equal(t, 180, *n.AreaBuiltUp)
	require.Len(t, n.Photos, 2)
	require.Equal(t, "Prodej", n.OfferType)
	require.Equal(t, "Ostatní", n.PropertyType)
}

func TestParseDetailRejectsAnonymizedListing(t *testing.T) {
	html := `<html><body>
		<h1 class="title">Byt na prodej</h1>
		<div class="description">Cena na vyžádání, kontaktujte RK.</div>
	</body></html>`

	adapter, srv := newTestGenericAdapter(t, html)
	defer srv.Close()

	n, err := adapter.parseDetail(context.Background(), srv.URL+"/detail/1")
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestParseDetailMissingTitleReturnsError(t *testing.T) {
	html := `<html><body><div class="description">no title here</div></body></html>`
	adapter, srv := newTestGenericAdapter(t, html)
	defer srv.Close()

	_, err := adapter.parseDetail(context.Background(), srv.URL+"/detail/1")
	require.Error(t, err)
}

func TestCollectFromStartStopsOnShortPage(t *testing.T) {
	html := `<html><body><a class="listing" href="/detail/1">one</a></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(html))
	}))
	defer srv.Close()

	cfg := SiteConfig{
		SourceCode:          "testsite",
		BaseURL:             srv.URL,
		ListingLinkSelector: "a.listing",
		MinItemsPerPage:     5,
		PageParam:           "page",
	}
	adapter := NewGenericAdapter(cfg, nil, zerolog.Nop())

	urls := adapter.collectFromStart(context.Background(), srv.URL, 20)
	require.Len(t, urls, 1)
	require.True(t, strings.HasSuffix(urls[0], "/detail/1"))
}
