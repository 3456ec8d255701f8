package scrapers

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/browser"
	"github.com/cybersmurf/realestate-aggregator/internal/canon"
	"github.com/cybersmurf/realestate-aggregator/internal/httpx"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

// SiteConfig parameterizes GenericAdapter for one server-rendered listing
// site. Most of this module's sources share the same discover-then-detail
// shape (a paginated index of anchors, a detail page with a title/price/
// description/photo block) and differ only in base URL, CSS selectors, and
// how property/offer type are signalled — so one engine drives all of them
// instead of duplicating the fetch/paginate/filter/save plumbing ten times.
type SiteConfig struct {
	SourceCode string
	BaseURL    string
	// StartURLs are the category index pages to paginate from, typically
	// one per offer type (sale/rent).
	StartURLs []string
	// PageParam is the query parameter appended for pagination (e.g. "page").
	PageParam string

	// ListingLinkSelector selects anchors on an index page that point at
	// detail pages.
	ListingLinkSelector string
	// MinItemsPerPage below this on a page is treated as "last page".
	MinItemsPerPage int

	TitleSelector       string
	DescriptionSelector string
	PriceSelector       string
	LocationSelector    string
	PhotoSelector       string // img selector whose src/data-src holds photo URLs
	TableRowSelector    string // optional key/value parameter table (like century21)

	// OfferTypeFromURL and PropertyTypeFromURL infer the raw Czech enum
	// strings from the detail URL when the page itself doesn't label them
	// plainly. Both may return "" to fall back to defaults.
	OfferTypeFromURL    func(string) string
	PropertyTypeFromURL func(string) string

	MaxPagesIncremental int
	MaxPagesFull         int

	// Browser, when set, is used to re-fetch a detail page through a
	// headless context whenever the plain HTTP fetch yields no title — the
	// signal that the page is a client-side-rendered shell rather than
	// server-rendered content. Most sources here are pure SSR and leave
	// this nil.
	Browser *browser.Pool
}

// GenericAdapter drives SiteConfig through the shared discover/detail/save
// pipeline. It implements Adapter.
type GenericAdapter struct {
	cfg    SiteConfig
	client *retryablehttp.Client
	sink   Sink
	log    zerolog.Logger
}

// NewGenericAdapter builds an adapter for cfg.
func NewGenericAdapter(cfg SiteConfig, sink Sink, log zerolog.Logger) *GenericAdapter {
	if cfg.MinItemsPerPage <= 0 {
		cfg.MinItemsPerPage = 1
	}
	if cfg.MaxPagesIncremental <= 0 {
		cfg.MaxPagesIncremental = 3
	}
	if cfg.MaxPagesFull <= 0 {
		cfg.MaxPagesFull = 20
	}
	return &GenericAdapter{
		cfg:    cfg,
		client: httpx.NewClient(desktopUserAgent),
		sink:   sink,
		log:    log.With().Str("source", cfg.SourceCode).Logger(),
	}
}

func (a *GenericAdapter) SourceCode() string { return a.cfg.SourceCode }

func (a *GenericAdapter) Run(ctx context.Context, fullRescan bool) (int, error) {
	maxPages := pageCap(fullRescan, a.cfg.MaxPagesIncremental, a.cfg.MaxPagesFull)

	var urls []string
	seen := map[string]bool{}
	for _, start := range a.cfg.StartURLs {
		for _, u := range a.collectFromStart(ctx, start, maxPages) {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
			}
		}
	}
	if len(urls) == 0 {
		a.log.Warn().Msg("no listings discovered")
		return 0, nil
	}

	items := detailFetcher(ctx, a.log, urls, defaultDetailConcurrency, a.parseDetail)
	return saveAll(ctx, a.log, a.sink, a.SourceCode(), items), nil
}

func (a *GenericAdapter) collectFromStart(ctx context.Context, start string, maxPages int) []string {
	var urls []string
	seen := map[string]bool{}

	for page := 1; page <= maxPages; page++ {
		pageURL := start
		if page > 1 {
			pageURL = addPageParam(start, a.cfg.PageParam, page)
		}

		doc, err := fetchDocument(ctx, a.client, pageURL)
		if err != nil {
			a.log.Warn().Err(err).Str("url", pageURL).Msg("index page fetch failed")
			break
		}

		var pageURLs []string
		doc.Find(a.cfg.ListingLinkSelector).Each(func(_ int, sel *goquery.Selection) {
			href, ok := sel.Attr("href")
			if !ok || href == "" {
				return
			}
			full := resolveURL(a.cfg.BaseURL, href)
			pageURLs = append(pageURLs, full)
		})

		newCount := 0
		for _, u := range pageURLs {
			if !seen[u] {
				seen[u] = true
				urls = append(urls, u)
				newCount++
			}
		}

		if newCount == 0 || len(pageURLs) < a.cfg.MinItemsPerPage {
			break
		}
	}
	return urls
}

func (a *GenericAdapter) parseDetail(ctx context.Context, detailURL string) (*model.NormalizedListing, error) {
	doc, err := fetchDocument(ctx, a.client, detailURL)
	if err != nil {
		return nil, err
	}

	title := collapseWhitespace(doc.Find(a.cfg.TitleSelector).First().Text())
	if title == "" && a.cfg.Browser != nil {
		if rendered, err := a.renderWithBrowser(ctx, detailURL); err == nil {
			doc = rendered
			title = collapseWhitespace(doc.Find(a.cfg.TitleSelector).First().Text())
		} else {
			a.log.Warn().Err(err).Str("url", detailURL).Msg("browser fallback fetch failed")
		}
	}
	if title == "" {
		return nil, fmt.Errorf("no title at %s", detailURL)
	}

	bodyText := collapseWhitespace(doc.Find("body").Text())
	if isAnonymized(bodyText) {
		return nil, nil
	}

	description := collapseWhitespace(doc.Find(a.cfg.DescriptionSelector).First().Text())
	priceText := doc.Find(a.cfg.PriceSelector).First().Text()
	location := collapseWhitespace(doc.Find(a.cfg.LocationSelector).First().Text())

	params := a.parseParamTable(doc)

	offerType := ""
	if a.cfg.OfferTypeFromURL != nil {
		offerType = a.cfg.OfferTypeFromURL(detailURL)
	}
	if offerType == "" {
		offerType = "Prodej"
	}

	propertyType := ""
	if a.cfg.PropertyTypeFromURL != nil {
		propertyType = a.cfg.PropertyTypeFromURL(detailURL)
	}
	if propertyType == "" {
		propertyType = "Ostatní"
	}

	n := &model.NormalizedListing{
		ExternalID:   externalIDFromURL(detailURL),
		URL:          detailURL,
		Title:        title,
		Description:  description,
		PropertyType: propertyType,
		OfferType:    offerType,
		Price:        canon.ParsePrice(priceText),
		LocationText: location,
		Disposition:  params["dispozice"],
		Photos:       a.extractPhotos(doc),
	}
	if area, ok := params["plocha"]; ok {
		n.AreaBuiltUp = canon.ParseArea(area)
	}
	return n, nil
}

// parseParamTable reads a generic key/value parameter table, lower-casing
// keys so callers can look up "dispozice"/"plocha" regardless of the
// site's exact label casing or diacritics variant.
func (a *GenericAdapter) parseParamTable(doc *goquery.Document) map[string]string {
	out := map[string]string{}
	if a.cfg.TableRowSelector == "" {
		return out
	}
	doc.Find(a.cfg.TableRowSelector).Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		key := strings.ToLower(collapseWhitespace(cells.Eq(0).Text()))
		val := collapseWhitespace(cells.Eq(1).Text())
		switch {
		case strings.Contains(key, "dispozic"), strings.Contains(key, "velikost"):
			out["dispozice"] = val
		case strings.Contains(key, "plocha"):
			out["plocha"] = val
		}
	})
	return out
}

func (a *GenericAdapter) extractPhotos(doc *goquery.Document) []string {
	if a.cfg.PhotoSelector == "" {
		return nil
	}
	var photos []string
	seen := map[string]bool{}
	doc.Find(a.cfg.PhotoSelector).Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" {
			src, ok = sel.Attr("data-src")
		}
		if !ok || src == "" || seen[src] {
			return
		}
		seen[src] = true
		photos = append(photos, resolveURL(a.cfg.BaseURL, src))
	})
	if len(photos) > model.MaxPhotosPerListing {
		photos = photos[:model.MaxPhotosPerListing]
	}
	return photos
}

// renderWithBrowser re-fetches detailURL through the headless pool and
// re-parses the resulting DOM snapshot with goquery, so the rest of
// parseDetail never needs to know whether a page was fetched statically or
// rendered.
func (a *GenericAdapter) renderWithBrowser(ctx context.Context, detailURL string) (*goquery.Document, error) {
	html, err := a.cfg.Browser.FetchPage(ctx, detailURL, a.cfg.TitleSelector, true)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(u).String()
}

func addPageParam(rawURL, param string, page int) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set(param, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}

func externalIDFromURL(detailURL string) string {
	trimmed := strings.TrimRight(detailURL, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx == -1 || idx == len(trimmed)-1 {
		return detailURL
	}
	return trimmed[idx+1:]
}
