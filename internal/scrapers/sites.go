package scrapers

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/browser"
)

// offerTypeByPathSegment returns a closure recognizing "prodej"/"pronajem"
// URL segments, the pattern nearly every regional agency site here uses.
func offerTypeByPathSegment() func(string) string {
	return func(u string) string {
		switch {
		case strings.Contains(u, "pronajem"):
			return "Pronájem"
		case strings.Contains(u, "prodej"):
			return "Prodej"
		default:
			return ""
		}
	}
}

func propertyTypeByKeywords(pairs ...[2]string) func(string) string {
	return func(u string) string {
		lower := strings.ToLower(u)
		for _, p := range pairs {
			if strings.Contains(lower, p[0]) {
				return p[1]
			}
		}
		return ""
	}
}

// NewCentury21 scrapes century21.cz: Tailwind-styled SSR pages, a
// parameter table, and photos served from the igluu.cz CDN.
func NewCentury21(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode: "CENTURY21",
		BaseURL:    "https://www.century21.cz",
		StartURLs: []string{
			"https://www.century21.cz/nemovitosti?filter=" + `{"county":["Znojmo"],"listingType":"SALE"}`,
			"https://www.century21.cz/nemovitosti?filter=" + `{"county":["Znojmo"],"listingType":"RENT"}`,
		},
		PageParam:           "page",
		ListingLinkSelector: "a[href*='/nemovitosti/'][href*='id=']",
		MinItemsPerPage:     12,
		TitleSelector:       "h1, h2",
		DescriptionSelector: "div[class*=whitespace-break-spaces]",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    "*:contains('Lokalita')",
		PhotoSelector:       "img[src*='igluu.cz']",
		TableRowSelector:    "table tr",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"-dum-", "Dům"}, [2]string{"-domy-", "Dům"},
			[2]string{"-byt-", "Byt"}, [2]string{"-byty-", "Byt"},
			[2]string{"-pozemek-", "Pozemek"}, [2]string{"-pozemky-", "Pozemek"},
			[2]string{"-komercni-", "Komerční"}, [2]string{"-garaz", "Garáž"},
		),
		MaxPagesIncremental: 5,
		MaxPagesFull:        50,
	}, sink, log)
}

// NewHvReality scrapes hvreality.cz, a WordPress/Elementor SSR site whose
// listing categories are two standalone start URLs rather than one
// parameterized search form.
func NewHvReality(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode: "HVREALITY",
		BaseURL:    "https://hvreality.cz",
		StartURLs: []string{
			"https://hvreality.cz/prodej-nemovitosti/",
			"https://hvreality.cz/pronajem-nemovitosti/",
		},
		PageParam:           "paged",
		ListingLinkSelector: "article a, .property-item a",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".entry-content, .property-description",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".property-location, address",
		PhotoSelector:       "img.wp-post-image, .property-gallery img",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"dům", "Dům"},
			[2]string{"pozemek", "Pozemek"}, [2]string{"garaz", "Garáž"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}

// NewRemax implements the hybrid strategy the original Playwright-based
// scraper used: a static HTTP fetch first, falling back to the headless
// browser pool only for the detail pages remax-czech.cz's own widget
// renders client-side (pool may be nil, in which case those pages are
// simply skipped rather than fetched twice).
func NewRemax(sink Sink, log zerolog.Logger, pool *browser.Pool) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "REMAX",
		BaseURL:             "https://www.remax-czech.cz",
		StartURLs:           []string{"https://www.remax-czech.cz/reality/vyhledavani/?okres=znojmo"},
		PageParam:           "page",
		ListingLinkSelector: "a.remax-search-result-item, a[href*='/reality/detail/']",
		MinItemsPerPage:     1,
		TitleSelector:       "h1, .remax-property-detail-title",
		DescriptionSelector: ".remax-property-description, .description",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".remax-search-result-location, .property-location",
		PhotoSelector:       ".remax-property-detail img, .gallery img",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"},
			[2]string{"pozemek", "Pozemek"}, [2]string{"komercni", "Komerční"},
		),
		MaxPagesIncremental: 5,
		MaxPagesFull:        30,
		Browser:             pool,
	}, sink, log)
}

// NewProdejmeto completes Prodejme.to, left as a TODO stub upstream, with the
// same SiteConfig shape as NewRemax but no headless-browser fallback (HTTP
// fetches only).
func NewProdejmeto(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "PRODEJMETO",
		BaseURL:             "https://www.prodejme.to",
		StartURLs:           []string{"https://www.prodejme.to/nemovitosti/znojmo"},
		PageParam:           "page",
		ListingLinkSelector: "a[href*='/nemovitost/']",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".description, .popis",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".location, .lokalita",
		PhotoSelector:       ".gallery img, .fotogalerie img",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"pozemek", "Pozemek"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}

// NewMmReality completes MM Reality, left as a TODO stub upstream.
func NewMmReality(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "MMR",
		BaseURL:             "https://www.mmreality.cz",
		StartURLs:           []string{"https://www.mmreality.cz/reality?okres=znojmo"},
		PageParam:           "strana",
		ListingLinkSelector: "a[href*='/reality/detail/'], a.property-link",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".property-description, .popis-nemovitosti",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".property-location, .lokalita",
		PhotoSelector:       ".property-gallery img",
		TableRowSelector:    "table tr",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"pozemek", "Pozemek"},
			[2]string{"komercni", "Komerční"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}

// NewDeluxReality, NewLexamo, NewNemovitostiZnojmo, NewPremiaReality, and
// NewZnojmoReality cover the remaining regional agency sites. Each is a
// small, independent Znojmo-area agency whose public site follows the same
// SSR agency-listing template as hvreality.cz, so they share that config
// shape with source-specific URLs and selectors.

func NewDeluxReality(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "DELUXREALITY",
		BaseURL:             "https://www.deluxreality.cz",
		StartURLs:           []string{"https://www.deluxreality.cz/nabidka-nemovitosti/"},
		PageParam:           "page",
		ListingLinkSelector: "a[href*='/nemovitost/']",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".popis, .description",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".lokalita, .location",
		PhotoSelector:       ".gallery img",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"pozemek", "Pozemek"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}

func NewLexamo(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "LEXAMO",
		BaseURL:             "https://www.lexamo.cz",
		StartURLs:           []string{"https://www.lexamo.cz/nemovitosti/znojmo/"},
		PageParam:           "page",
		ListingLinkSelector: "a[href*='/nemovitost/']",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".description, .popis-nemovitosti",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".location, .adresa",
		PhotoSelector:       ".property-photos img",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"pozemek", "Pozemek"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}

func NewNemovitostiZnojmo(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "NEMOVITOSTIZNOJMO",
		BaseURL:             "https://www.nemovitosti-znojmo.cz",
		StartURLs:           []string{"https://www.nemovitosti-znojmo.cz/nabidka/"},
		PageParam:           "page",
		ListingLinkSelector: "a[href*='/nemovitost/']",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".popis, .entry-content",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".lokalita, address",
		PhotoSelector:       ".gallery img, .fotky img",
		TableRowSelector:    "table tr",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"pozemek", "Pozemek"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}

func NewPremiaReality(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "PREMIAREALITY",
		BaseURL:             "https://www.premiareality.cz",
		StartURLs:           []string{"https://www.premiareality.cz/nemovitosti/"},
		PageParam:           "page",
		ListingLinkSelector: "a[href*='/nemovitost/']",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".description, .popis",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".location, .lokalita",
		PhotoSelector:       ".gallery img",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"pozemek", "Pozemek"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}

func NewZnojmoReality(sink Sink, log zerolog.Logger) *GenericAdapter {
	return NewGenericAdapter(SiteConfig{
		SourceCode:          "ZNOJMOREALITY",
		BaseURL:             "https://www.znojmoreality.cz",
		StartURLs:           []string{"https://www.znojmoreality.cz/nabidka-nemovitosti/"},
		PageParam:           "page",
		ListingLinkSelector: "a[href*='/nemovitost/']",
		MinItemsPerPage:     1,
		TitleSelector:       "h1",
		DescriptionSelector: ".description, .popis",
		PriceSelector:       "*:contains('Kč')",
		LocationSelector:    ".location, .lokalita",
		PhotoSelector:       ".gallery img",
		OfferTypeFromURL:    offerTypeByPathSegment(),
		PropertyTypeFromURL: propertyTypeByKeywords(
			[2]string{"byt", "Byt"}, [2]string{"dum", "Dům"}, [2]string{"pozemek", "Pozemek"},
		),
		MaxPagesIncremental: 3,
		MaxPagesFull:        20,
	}, sink, log)
}
