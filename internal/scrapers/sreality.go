package scrapers

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/cybersmurf/realestate-aggregator/internal/httpx"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

// categoryMain/categoryType mirror sreality.cz's own numeric API enums.
var srealityCategoryMain = map[int]string{1: "Byt", 2: "Dům", 3: "Pozemek", 4: "Komerční", 5: "Ostatní"}
var srealityCategoryType = map[int]string{1: "Prodej", 2: "Pronájem", 3: "Dražba"}

// Sreality scrapes sreality.cz's public JSON REST API directly — no HTML
// parsing needed, the only source in the set that works this way.
type Sreality struct {
	client   *retryablehttp.Client
	sink     Sink
	log      zerolog.Logger
	regionID int // Jihomoravský kraj
	perPage  int
}

// NewSreality builds the adapter. regionID pins the search to one kraj; 0
// searches nationwide, which the caller should avoid for this deployment's
// target district scope.
func NewSreality(sink Sink, log zerolog.Logger, regionID int) *Sreality {
	return &Sreality{
		client:   httpx.NewClient("RealEstateAggregator/1.0"),
		sink:     sink,
		log:      log.With().Str("source", "SREALITY").Logger(),
		regionID: regionID,
		perPage:  60,
	}
}

func (s *Sreality) SourceCode() string { return "SREALITY" }

type srealityListResponse struct {
	ResultSize int              `json:"result_size"`
	Embedded   struct {
		Estates []srealityEstate `json:"estates"`
	} `json:"_embedded"`
}

type srealityEstate struct {
	HashID int    `json:"hash_id"`
	Name   string `json:"name"`
	Locality string `json:"locality"`
	Price  int    `json:"price"`
	Seo    struct {
		Locality string `json:"locality"`
	} `json:"seo"`
	GPS struct {
		Lat *float64 `json:"lat"`
		Lon *float64 `json:"lon"`
	} `json:"gps"`
	Links struct {
		Images []struct {
			Href string `json:"href"`
		} `json:"images"`
	} `json:"_links"`
}

// srealityDetail is the subset of the per-estate detail endpoint
// (/api/cs/v2/estates/{hash_id}) this adapter enriches the list payload
// with. Text comes back as either a bare string or a {"name","value"}
// object depending on the estate, hence the raw json.RawMessage field.
type srealityDetail struct {
	Text        json.RawMessage `json:"text"`
	Description json.RawMessage `json:"description"`
	Links       struct {
		Images []struct {
			Href string `json:"href"`
		} `json:"images"`
	} `json:"_links"`
	Embedded struct {
		Images []struct {
			Href string `json:"href"`
			URL  string `json:"url"`
		} `json:"images"`
	} `json:"_embedded"`
	Items []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"items"`
}

var (
	reNonDigit        = regexp.MustCompile(`[^0-9]`)
	reSrealityUzitna  = regexp.MustCompile(`(?i)u[žz]it`)
	reSrealityPozemek = regexp.MustCompile(`(?i)pozem`)
)

// Run pages through the sale and rent categories for houses, apartments,
// and land, then enriches each listing with its detail endpoint's
// description, full photo set, and floor/land area — the list payload
// alone carries everything else the filter and store need.
func (s *Sreality) Run(ctx context.Context, fullRescan bool) (int, error) {
	maxPages := pageCap(fullRescan, 3, 40)
	total := 0

	for categoryMain := 1; categoryMain <= 3; categoryMain++ {
		for categoryType := 1; categoryType <= 2; categoryType++ {
			estates, err := s.collectCategory(ctx, categoryMain, categoryType, maxPages)
			if err != nil {
				s.log.Warn().Err(err).Int("category_main", categoryMain).Int("category_type", categoryType).Msg("category scrape failed")
				continue
			}
			items := make([]model.NormalizedListing, 0, len(estates))
			for _, e := range estates {
				items = append(items, s.toNormalized(e, categoryMain, categoryType))
			}
			items = s.enrichWithDetails(ctx, items)
			total += saveAll(ctx, s.log, s.sink, s.SourceCode(), items)
		}
	}
	return total, nil
}

func (s *Sreality) collectCategory(ctx context.Context, categoryMain, categoryType, maxPages int) ([]srealityEstate, error) {
	var all []srealityEstate
	for page := 1; page <= maxPages; page++ {
		url := fmt.Sprintf(
			"https://www.sreality.cz/api/cs/v2/estates?category_main_cb=%d&category_type_cb=%d&per_page=%d&page=%d",
			categoryMain, categoryType, s.perPage, page,
		)
		if s.regionID > 0 {
			url += fmt.Sprintf("&locality_region_id=%d", s.regionID)
		}

		body, err := fetchBytes(ctx, s.client, url, map[string]string{
			"Accept":  "application/json, text/plain, */*",
			"Referer": "https://www.sreality.cz/",
		})
		if err != nil {
			return all, err
		}
		var resp srealityListResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return all, fmt.Errorf("decode estates page %d: %w", page, err)
		}
		if len(resp.Embedded.Estates) == 0 {
			break
		}
		all = append(all, resp.Embedded.Estates...)
		if len(all) >= resp.ResultSize {
			break
		}
	}
	return all, nil
}

func (s *Sreality) toNormalized(e srealityEstate, categoryMain, categoryType int) model.NormalizedListing {
	n := model.NormalizedListing{
		ExternalID:   fmt.Sprintf("%d", e.HashID),
		URL:          fmt.Sprintf("https://www.sreality.cz/detail/prodej/%d", e.HashID),
		Title:        e.Name,
		PropertyType: srealityCategoryMain[categoryMain],
		OfferType:    srealityCategoryType[categoryType],
		LocationText: e.Locality,
	}
	if e.Price > 0 {
		price := float64(e.Price)
		n.Price = &price
	}
	// The list payload nests GPS under "gps": {"lat":..., "lon":...}, unlike
	// most of the other JSON sources which flatten it.
	if e.GPS.Lat != nil && e.GPS.Lon != nil {
		n.Latitude = e.GPS.Lat
		n.Longitude = e.GPS.Lon
	}
	for _, img := range e.Links.Images {
		if img.Href != "" {
			n.Photos = append(n.Photos, img.Href)
		}
	}
	if len(n.Photos) > model.MaxPhotosPerListing {
		n.Photos = n.Photos[:model.MaxPhotosPerListing]
	}
	return n
}

// enrichWithDetails fetches each listing's detail endpoint, bounded to
// defaultDetailConcurrency in flight, and merges in description, the full
// photo set, and floor/land area. A failed or unparseable detail fetch
// leaves the list-derived record as is rather than dropping the listing —
// the list payload alone already satisfies the quality filter.
func (s *Sreality) enrichWithDetails(ctx context.Context, items []model.NormalizedListing) []model.NormalizedListing {
	sem := make(chan struct{}, defaultDetailConcurrency)
	var wg sync.WaitGroup

	for i := range items {
		if ctx.Err() != nil {
			break
		}
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			url := fmt.Sprintf("https://www.sreality.cz/api/cs/v2/estates/%s", items[i].ExternalID)
			body, err := fetchBytes(ctx, s.client, url, map[string]string{"Accept": "application/json, text/plain, */*"})
			if err != nil {
				s.log.Warn().Err(err).Str("external_id", items[i].ExternalID).Msg("detail fetch failed")
				return
			}
			var detail srealityDetail
			if err := json.Unmarshal(body, &detail); err != nil {
				s.log.Warn().Err(err).Str("external_id", items[i].ExternalID).Msg("detail decode failed")
				return
			}
			mergeSrealityDetail(&items[i], detail)
		}()
	}
	wg.Wait()
	return items
}

func mergeSrealityDetail(n *model.NormalizedListing, detail srealityDetail) {
	if description := extractSrealityText(detail.Text); description != "" {
		n.Description = description
	} else if description := extractSrealityText(detail.Description); description != "" {
		n.Description = description
	}

	var photos []string
	for _, img := range detail.Links.Images {
		if img.Href != "" {
			photos = append(photos, img.Href)
		}
	}
	for _, img := range detail.Embedded.Images {
		href := img.Href
		if href == "" {
			href = img.URL
		}
		if href != "" {
			photos = append(photos, href)
		}
	}
	if len(photos) > 0 {
		if len(photos) > model.MaxPhotosPerListing {
			photos = photos[:model.MaxPhotosPerListing]
		}
		n.Photos = photos
	}

	for _, item := range detail.Items {
		switch normalizeSrealityParamName(item.Name) {
		case "Užitná plocha":
			n.AreaBuiltUp = parseSrealityArea(item.Value)
		case "Plocha pozemku":
			n.AreaLand = parseSrealityArea(item.Value)
		}
	}
}

// extractSrealityText decodes the detail endpoint's "text"/"description"
// field, which sreality.cz returns as either a bare JSON string or a
// {"name":...,"value":...} object depending on the estate.
func extractSrealityText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Value
	}
	return ""
}

func normalizeSrealityParamName(name string) string {
	switch {
	case reSrealityUzitna.MatchString(name):
		return "Užitná plocha"
	case reSrealityPozemek.MatchString(name):
		return "Plocha pozemku"
	default:
		return name
	}
}

func parseSrealityArea(value string) *int {
	digits := reNonDigit.ReplaceAllString(value, "")
	if digits == "" {
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(digits, "%d", &n); err != nil {
		return nil
	}
	return &n
}
