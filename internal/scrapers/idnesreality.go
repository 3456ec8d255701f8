package scrapers

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/canon"
	"github.com/cybersmurf/realestate-aggregator/internal/httpx"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

// IdnesReality discovers listings via reality.idnes.cz's sitemap index
// instead of paginating search results — the site is fully server-rendered,
// so no headless browser is needed.
type IdnesReality struct {
	client *retryablehttp.Client
	sink   Sink
	log    zerolog.Logger
}

func NewIdnesReality(sink Sink, log zerolog.Logger) *IdnesReality {
	return &IdnesReality{
		client: httpx.NewClient(desktopUserAgent),
		sink:   sink,
		log:    log.With().Str("source", "IDNES").Logger(),
	}
}

func (a *IdnesReality) SourceCode() string { return "IDNES" }

const idnesBaseURL = "https://reality.idnes.cz"

type sitemapIndex struct {
	XMLName xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

var reIdnesDetail = regexp.MustCompile(`/detail/`)

func (a *IdnesReality) Run(ctx context.Context, fullRescan bool) (int, error) {
	maxPages := pageCap(fullRescan, 100, 999)

	urls, err := a.discoverListingURLs(ctx, maxPages)
	if err != nil {
		return 0, fmt.Errorf("idnes sitemap discovery: %w", err)
	}
	if len(urls) == 0 {
		a.log.Warn().Msg("no listings found in sitemap")
		return 0, nil
	}

	items := detailFetcher(ctx, a.log, urls, defaultDetailConcurrency, a.parseDetail)
	return saveAll(ctx, a.log, a.sink, a.SourceCode(), items), nil
}

// discoverListingURLs fetches the sitemap index, descends into each
// gzip-compressed child sitemap, and collects detail URLs from up to
// maxSitemaps sub-sitemaps.
func (a *IdnesReality) discoverListingURLs(ctx context.Context, maxSitemaps int) ([]string, error) {
	indexBody, err := fetchBytes(ctx, a.client, idnesBaseURL+"/sitemap.xml", map[string]string{"Accept": "application/xml"})
	if err != nil {
		return nil, err
	}

	var index sitemapIndex
	if err := xml.Unmarshal(indexBody, &index); err != nil {
		return nil, fmt.Errorf("parse sitemap index: %w", err)
	}

	var urls []string
	for i, sm := range index.Sitemaps {
		if i >= maxSitemaps {
			break
		}
		childURLs, err := a.fetchChildSitemap(ctx, sm.Loc)
		if err != nil {
			a.log.Warn().Err(err).Str("sitemap", sm.Loc).Msg("child sitemap fetch failed")
			continue
		}
		urls = append(urls, childURLs...)
	}
	return urls, nil
}

func (a *IdnesReality) fetchChildSitemap(ctx context.Context, loc string) ([]string, error) {
	raw, err := fetchBytes(ctx, a.client, loc, map[string]string{"Accept-Encoding": "gzip"})
	if err != nil {
		return nil, err
	}

	body := raw
	if strings.HasSuffix(loc, ".gz") {
		gz, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("ungzip %s: %w", loc, err)
		}
		defer gz.Close()
		body, err = io.ReadAll(gz)
		if err != nil {
			return nil, fmt.Errorf("read ungzipped %s: %w", loc, err)
		}
	}

	var set urlSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("parse sub-sitemap %s: %w", loc, err)
	}

	var urls []string
	for _, u := range set.URLs {
		if reIdnesDetail.MatchString(u.Loc) {
			urls = append(urls, u.Loc)
		}
	}
	return urls, nil
}

func (a *IdnesReality) parseDetail(ctx context.Context, url string) (*model.NormalizedListing, error) {
	doc, err := fetchDocument(ctx, a.client, url)
	if err != nil {
		return nil, err
	}

	title := collapseWhitespace(doc.Find("h1").First().Text())
	if title == "" {
		return nil, fmt.Errorf("no title at %s", url)
	}

	bodyText := collapseWhitespace(doc.Find("body").Text())
	if isAnonymized(bodyText) {
		return nil, nil
	}

	priceText := doc.Find("[class*=price]").First().Text()
	description := collapseWhitespace(doc.Find("[class*=description]").First().Text())
	location := collapseWhitespace(doc.Find("[class*=locality]").First().Text())

	offerType := "Prodej"
	if strings.Contains(url, "/pronajem") {
		offerType = "Pronájem"
	}
	propertyType := "Dům"
	switch {
	case strings.Contains(url, "/byty"):
		propertyType = "Byt"
	case strings.Contains(url, "/pozemky"):
		propertyType = "Pozemek"
	case strings.Contains(url, "/komercni"):
		propertyType = "Komerční"
	}

	idMatch := regexp.MustCompile(`/detail/[^/]+/[^/]+/(\d+)`).FindStringSubmatch(url)
	externalID := url
	if len(idMatch) == 2 {
		externalID = idMatch[1]
	}

	n := &model.NormalizedListing{
		ExternalID:   externalID,
		URL:          url,
		Title:        title,
		Description:  description,
		PropertyType: propertyType,
		OfferType:    offerType,
		Price:        canon.ParsePrice(priceText),
		LocationText: location,
		Photos:       extractIdnesPhotos(doc),
	}
	return n, nil
}

func extractIdnesPhotos(doc *goquery.Document) []string {
	var photos []string
	seen := map[string]bool{}
	doc.Find("img[src*='idnes.cz']").Each(func(_ int, sel *goquery.Selection) {
		src, ok := sel.Attr("src")
		if !ok || src == "" || seen[src] {
			return
		}
		seen[src] = true
		photos = append(photos, src)
	})
	if len(photos) > model.MaxPhotosPerListing {
		photos = photos[:model.MaxPhotosPerListing]
	}
	return photos
}
