// Package geocode resolves a listing's free-text location to latitude and
// longitude via Nominatim (OpenStreetMap), the same provider the original
// scraper used: no API key, but a strict 1 req/s throttle and a mandatory
// User-Agent per Nominatim's usage policy.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/httpx"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

const (
	searchURL = "https://nominatim.openstreetmap.org/search"
	userAgent = "RealEstateAggregator/1.0 (+https://github.com/cybersmurf/realestate-aggregator)"
	// source recorded on listings.geocode_source for rows this client resolves.
	source = "nominatim"
)

// Client geocodes listing locations through Nominatim, throttled to one
// request per second regardless of caller concurrency.
type Client struct {
	http      *retryablehttp.Client
	transport *httpx.RateLimitedTransport
	log       zerolog.Logger
}

// New builds a Client. Nominatim has no daily quota, so the transport is
// built with dayLimit=0 (disabled); only the per-second limiter applies.
func New(log zerolog.Logger) *Client {
	rc := httpx.NewClient(userAgent)
	transport := httpx.NewRateLimitedTransport(rc.HTTPClient.Transport, 1.0/1.1, 0)
	rc.HTTPClient.Transport = transport
	return &Client{http: rc, transport: transport, log: log.With().Str("component", "geocode").Logger()}
}

type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Lookup geocodes a single address string, returning (lat, lon, true) on a
// match and (0, 0, false) when Nominatim returns no results or the request
// fails. Failures are logged, never propagated: a missed geocode just leaves
// the listing's coordinates unset for the next sweep.
func (c *Client) Lookup(ctx context.Context, address string) (float64, float64, bool) {
	q := url.Values{}
	q.Set("q", address)
	q.Set("countrycodes", "cz")
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("accept-language", "cs")

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+q.Encode(), nil)
	if err != nil {
		c.log.Warn().Err(err).Str("address", address).Msg("build geocode request failed")
		return 0, 0, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("address", address).Msg("geocode request failed")
		return 0, 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		c.log.Warn().Int("status", resp.StatusCode).Str("address", address).Msg("geocode returned error status")
		return 0, 0, false
	}

	body, err := httpx.ReadLimited(resp.Body)
	if err != nil {
		c.log.Warn().Err(err).Msg("geocode body read failed")
		return 0, 0, false
	}

	var results []nominatimResult
	if err := json.Unmarshal(body, &results); err != nil {
		c.log.Warn().Err(err).Msg("geocode response decode failed")
		return 0, 0, false
	}
	if len(results) == 0 {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// LookupListingLocation tries progressively coarser queries for a listing,
// most precise first: the full location text, then municipality+district,
// then district alone. It stops at the first match.
func (c *Client) LookupListingLocation(ctx context.Context, locationText, municipality, district string) (float64, float64, bool) {
	attempts := []string{locationText}
	if municipality != "" && district != "" {
		attempts = append(attempts, fmt.Sprintf("%s, %s, Česká republika", municipality, district))
	}
	if district != "" {
		attempts = append(attempts, fmt.Sprintf("%s, Česká republika", district))
	}

	for _, attempt := range attempts {
		if len(strings.TrimSpace(attempt)) < 3 {
			continue
		}
		if lat, lon, ok := c.Lookup(ctx, attempt); ok {
			return lat, lon, true
		}
	}
	return 0, 0, false
}

// BulkSweep geocodes every active listing missing coordinates, up to
// batchSize rows, writing results back through st. It never touches a
// listing whose coordinates are already set (spec §4.3): the caller scope
// is entirely determined by store.ListingsMissingCoordinates.
func (c *Client) BulkSweep(ctx context.Context, st *store.Store, batchSize int) (int, error) {
	listings, err := st.ListingsMissingCoordinates(ctx, batchSize)
	if err != nil {
		return 0, fmt.Errorf("geocode bulk sweep: %w", err)
	}
	if len(listings) == 0 {
		c.log.Info().Msg("no listings pending geocode")
		return 0, nil
	}

	c.log.Info().Int("count", len(listings)).Msg("starting geocode sweep")
	resolved := 0
	for _, l := range listings {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		lat, lon, ok := c.LookupListingLocation(ctx, l.LocationText, l.Municipality, l.District)
		if !ok {
			continue
		}
		if err := st.SetGeocode(ctx, l.ID, lat, lon, source); err != nil {
			c.log.Error().Err(err).Str("listing_id", l.ID).Msg("persist geocode failed")
			continue
		}
		resolved++
	}
	c.log.Info().Int("resolved", resolved).Int("total", len(listings)).Msg("geocode sweep complete")
	return resolved, nil
}
