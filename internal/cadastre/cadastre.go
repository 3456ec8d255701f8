// Package cadastre looks up a listing's RUIAN (address-point) code against
// the public ČÚZK ArcGIS REST service and builds a direct link into
// nahlizenidokn.cuzk.cz, the national cadastral viewer. There is no
// published rate limit; this client follows the same conservative 1 req/s
// etiquette the original implementation used.
package cadastre

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/httpx"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

const (
	findURL     = "https://ags.cuzk.cz/arcgis/rest/services/RUIAN/Vyhledavaci_sluzba_nad_daty_RUIAN/MapServer/find"
	viewerBase  = "https://nahlizenidokn.cuzk.cz"
	userAgent   = "RealEstateAggregator/1.0 (educational project)"
	maxSearchLen = 100
)

var reAdminSuffix = regexp.MustCompile(`,?\s*(okres|kraj|okr\.)\s+\S+`)

// Client resolves listing addresses against the RUIAN address-point index.
type Client struct {
	http *retryablehttp.Client
	log  zerolog.Logger
}

// New builds a Client throttled to one request per second.
func New(log zerolog.Logger) *Client {
	rc := httpx.NewClient(userAgent)
	transport := httpx.NewRateLimitedTransport(rc.HTTPClient.Transport, 1.0, 0)
	rc.HTTPClient.Transport = transport
	return &Client{http: rc, log: log.With().Str("component", "cadastre").Logger()}
}

// BuildViewerURL constructs the direct nahlizenidokn.cuzk.cz deep link for
// an address-point code, or the bare viewer homepage when kod is 0.
func BuildViewerURL(kod int) string {
	if kod == 0 {
		return viewerBase + "/"
	}
	return fmt.Sprintf("%s/ZobrazitMapu/Basic?typeCode=adresniMisto&id=%d", viewerBase, kod)
}

type findResponse struct {
	Results []struct {
		Attributes map[string]any `json:"attributes"`
	} `json:"results"`
}

// Lookup resolves addressText (preferring municipality when given, since it
// is shorter and searches more reliably) against RUIAN, stripping trailing
// "okres X" / "kraj X" qualifiers and capping the search string at 100
// characters the way the upstream service expects.
func (c *Client) Lookup(ctx context.Context, addressText, municipality string) model.ListingCadastreData {
	searchText := strings.TrimSpace(addressText)
	if municipality != "" {
		searchText = strings.TrimSpace(municipality)
	}
	searchText = strings.TrimSpace(reAdminSuffix.ReplaceAllString(searchText, ""))
	if r := []rune(searchText); len(r) > maxSearchLen {
		searchText = string(r[:maxSearchLen])
	}

	result := model.ListingCadastreData{
		AddressSearched: searchText,
		CadastreURL:     BuildViewerURL(0),
		FetchStatus:     model.CadastreStatusNotFound,
	}

	if searchText == "" {
		return result
	}

	q := url.Values{}
	q.Set("searchText", searchText)
	q.Set("contains", "true")
	q.Set("layers", "2")
	q.Set("returnGeometry", "false")
	q.Set("f", "json")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, findURL+"?"+q.Encode(), nil)
	if err != nil {
		result.FetchStatus = model.CadastreStatusError
		return result
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("search_text", searchText).Msg("ruian lookup failed")
		result.FetchStatus = model.CadastreStatusError
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.Warn().Int("status", resp.StatusCode).Str("search_text", searchText).Msg("ruian returned error status")
		result.FetchStatus = model.CadastreStatusError
		return result
	}

	body, err := httpx.ReadLimited(resp.Body)
	if err != nil {
		result.FetchStatus = model.CadastreStatusError
		return result
	}
	result.RawRuian = body

	var decoded findResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.log.Warn().Err(err).Msg("ruian response decode failed")
		result.FetchStatus = model.CadastreStatusError
		return result
	}

	if len(decoded.Results) == 0 {
		return result
	}

	kod := extractKod(decoded.Results[0].Attributes)
	if kod == 0 {
		return result
	}

	result.RuianKod = fmt.Sprintf("%d", kod)
	result.CadastreURL = BuildViewerURL(kod)
	result.FetchStatus = model.CadastreStatusFound
	return result
}

// extractKod reads the address-point code from whichever attribute key the
// RUIAN MapServer response used — the key has varied across RUIAN releases.
func extractKod(attrs map[string]any) int {
	for _, key := range []string{"KOD", "kod", "KOD_ADM", "OBJECTID"} {
		v, ok := attrs[key]
		if !ok || v == nil {
			continue
		}
		switch n := v.(type) {
		case float64:
			return int(n)
		case string:
			var i int
			if _, err := fmt.Sscanf(n, "%d", &i); err == nil {
				return i
			}
		}
	}
	return 0
}

// BulkSweep resolves cadastre data for listings that still need it, up to
// batchSize rows. It relies entirely on store.ListingsNeedingCadastre to
// scope the batch, which already excludes rows marked "manual" — this
// client never decides that exclusion itself.
func (c *Client) BulkSweep(ctx context.Context, st *store.Store, batchSize int, reprocessNotFound bool) (map[model.CadastreFetchStatus]int, error) {
	stats := map[model.CadastreFetchStatus]int{}

	listings, err := st.ListingsNeedingCadastre(ctx, batchSize, reprocessNotFound)
	if err != nil {
		return stats, fmt.Errorf("cadastre bulk sweep: %w", err)
	}
	if len(listings) == 0 {
		c.log.Info().Msg("no listings pending cadastre lookup")
		return stats, nil
	}

	c.log.Info().Int("count", len(listings)).Msg("starting cadastre sweep")
	for _, l := range listings {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		result := c.Lookup(ctx, l.LocationText, l.Municipality)
		result.ListingID = l.ID

		if err := st.UpsertCadastre(ctx, result); err != nil {
			c.log.Error().Err(err).Str("listing_id", l.ID).Msg("persist cadastre result failed")
			continue
		}
		stats[result.FetchStatus]++
	}
	c.log.Info().Interface("stats", stats).Msg("cadastre sweep complete")
	return stats, nil
}
