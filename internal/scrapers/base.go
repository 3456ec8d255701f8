package scrapers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/canon"
	"github.com/cybersmurf/realestate-aggregator/internal/httpx"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

// defaultDetailConcurrency bounds per-adapter detail-page fan-out, mirroring
// the original scraper's asyncio.Semaphore(detail_fetch_concurrency).
const defaultDetailConcurrency = 5

// desktopUserAgent is shared across the HTML-scraping adapters; it matches
// a current desktop Chrome build the way every original scraper's headers
// block did, since several sources serve stripped-down markup to
// unrecognized clients.
const desktopUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// anonymizedMarkers flags listings whose address/price/photos are hidden by
// the source (typically agency "contact us" placeholders); these must never
// be ingested (spec §4.5).
var anonymizedMarkers = []string{"cena na vyžádání", "cena dohodou", "adresa v rk", "kontaktujte nás pro adresu"}

// isAnonymized reports whether a detail page's visible text indicates the
// listing deliberately withholds identifying information.
func isAnonymized(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range anonymizedMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// fetchDocument GETs url and parses it as HTML via goquery.
func fetchDocument(ctx context.Context, client *retryablehttp.Client, url string) (*goquery.Document, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	req.Header.Set("Accept-Language", "cs-CZ,cs;q=0.9")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	body, err := httpx.ReadLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", url, err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	return doc, nil
}

// fetchBytes GETs url and returns the raw body, for JSON/XML/gzip payloads
// that don't go through goquery.
func fetchBytes(ctx context.Context, client *retryablehttp.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	req.Header.Set("User-Agent", desktopUserAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	return httpx.ReadLimited(resp.Body)
}

// detailFetcher runs fetchOne over every url in urls, bounded to
// defaultDetailConcurrency in flight at a time, collecting whatever records
// each successful fetch produces. Errors are logged and skipped — one bad
// detail page never aborts the rest of the run (spec §7).
func detailFetcher(
	ctx context.Context,
	log zerolog.Logger,
	urls []string,
	concurrency int,
	fetchOne func(ctx context.Context, url string) (*model.NormalizedListing, error),
) []model.NormalizedListing {
	if concurrency <= 0 {
		concurrency = defaultDetailConcurrency
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var out []model.NormalizedListing

	for _, u := range urls {
		if ctx.Err() != nil {
			break
		}
		u := u
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			item, err := fetchOne(ctx, u)
			if err != nil {
				log.Warn().Err(err).Str("url", u).Msg("detail fetch failed")
				return
			}
			if item == nil {
				return
			}
			mu.Lock()
			out = append(out, *item)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// saveAll filters and persists every normalized record through sink,
// returning the number of records actually saved (the adapter's overall
// Run return value, per the Adapter interface).
//
// PropertyType/OfferType are canonicalized here, before ShouldInclude, so the
// policy filter's config-keyed property-type stanza (config.Default()'s
// "House"/"Land" etc.) sees the same canonical string space the store
// gateway persists — not each adapter's raw Czech enum value.
func saveAll(ctx context.Context, log zerolog.Logger, sink Sink, sourceCode string, items []model.NormalizedListing) int {
	saved := 0
	for _, item := range items {
		item.SourceCode = sourceCode
		item.PropertyType = string(canon.MapPropertyType(item.PropertyType))
		item.OfferType = string(canon.MapOfferType(item.OfferType))
		if ok, reason := sink.ShouldInclude(item); !ok {
			log.Debug().Str("external_id", item.ExternalID).Str("reason", reason).Msg("listing filtered out")
			continue
		}
		if _, err := sink.UpsertListing(ctx, item); err != nil {
			log.Error().Err(err).Str("external_id", item.ExternalID).Msg("upsert listing failed")
			continue
		}
		saved++
	}
	return saved
}

// pageCap returns the discovery page limit for a run: a small cap for
// incremental scrapes, a large one for full rescans, matching every
// original scraper's run()'s full_rescan branch.
func pageCap(fullRescan bool, incremental, full int) int {
	if fullRescan {
		return full
	}
	return incremental
}

var reWhitespace = regexp.MustCompile(`\s+`)

// collapseWhitespace squashes runs of whitespace the way goquery's
// Text()/transform pipelines leave behind after stripping tags.
func collapseWhitespace(s string) string {
	return strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
}
