// Package canon holds pure, side-effect-free normalization functions: Czech
// property/offer type enum mapping and regex-based field inference on
// listing title/description text. Adapters do not call these themselves: the
// shared scrapers saveAll step maps property/offer types before policy
// filtering, and the store gateway maps them again and infers fields on ingest.
package canon

import (
	"regexp"
	"strings"

	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

var propertyTypeMap = map[string]model.PropertyType{
	"dům":        model.PropertyTypeHouse,
	"dum":        model.PropertyTypeHouse,
	"byt":        model.PropertyTypeApartment,
	"pozemek":    model.PropertyTypeLand,
	"chata":      model.PropertyTypeCottage,
	"chalupa":    model.PropertyTypeCottage,
	"komerční":   model.PropertyTypeCommercial,
	"komercni":   model.PropertyTypeCommercial,
	"průmyslový": model.PropertyTypeIndustrial,
	"prumyslovy": model.PropertyTypeIndustrial,
	"garáž":      model.PropertyTypeGarage,
	"garaz":      model.PropertyTypeGarage,
	"ostatní":    model.PropertyTypeOther,
	"ostatni":    model.PropertyTypeOther,
}

var offerTypeMap = map[string]model.OfferType{
	"prodej":   model.OfferTypeSale,
	"pronájem": model.OfferTypeRent,
	"pronajem": model.OfferTypeRent,
	"dražba":   model.OfferTypeAuction,
	"drazba":   model.OfferTypeAuction,
}

// MapPropertyType maps a raw Czech (or already-canonical English) property
// type string to the canonical enum. Unrecognized values default to Other.
func MapPropertyType(raw string) model.PropertyType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if pt, ok := propertyTypeMap[key]; ok {
		return pt
	}
	for _, pt := range []model.PropertyType{
		model.PropertyTypeHouse, model.PropertyTypeApartment, model.PropertyTypeLand,
		model.PropertyTypeCottage, model.PropertyTypeCommercial, model.PropertyTypeIndustrial,
		model.PropertyTypeGarage, model.PropertyTypeOther,
	} {
		if strings.EqualFold(string(pt), raw) {
			return pt
		}
	}
	return model.PropertyTypeOther
}

// MapOfferType maps a raw Czech (or already-canonical English) offer type
// string to the canonical enum. Unrecognized values default to Sale.
func MapOfferType(raw string) model.OfferType {
	key := strings.ToLower(strings.TrimSpace(raw))
	if ot, ok := offerTypeMap[key]; ok {
		return ot
	}
	for _, ot := range []model.OfferType{model.OfferTypeSale, model.OfferTypeRent, model.OfferTypeAuction} {
		if strings.EqualFold(string(ot), raw) {
			return ot
		}
	}
	return model.OfferTypeSale
}

var (
	reDisposition = regexp.MustCompile(`\d+\+(?:kk|1)`)
	reRoomsPrefix = regexp.MustCompile(`^\s*(\d+)`)
)

var conditionKeywords = []struct {
	pattern *regexp.Regexp
	value   string
}{
	{regexp.MustCompile(`(?i)novostavba`), "Novostavba"},
	{regexp.MustCompile(`(?i)po\s+rekonstrukci`), "Po rekonstrukci"},
	{regexp.MustCompile(`(?i)před\s+rekonstrukcí|pred\s+rekonstrukci`), "Před rekonstrukcí"},
	{regexp.MustCompile(`(?i)dobrý\s+stav|dobry\s+stav`), "Dobrý stav"},
}

var constructionKeywords = []struct {
	pattern *regexp.Regexp
	value   string
}{
	{regexp.MustCompile(`(?i)cihl`), "Cihla"},
	{regexp.MustCompile(`(?i)panel`), "Panel"},
	{regexp.MustCompile(`(?i)dřev|drev`), "Dřevo"},
}

// InferFields fills disposition, condition, and construction_type from
// title+description when the adapter left them unset. It never overwrites
// an adapter-provided value (spec §4.1).
func InferFields(n *model.NormalizedListing) {
	text := n.Title + " " + n.Description

	if n.Disposition == "" {
		if m := reDisposition.FindString(text); m != "" {
			n.Disposition = m
		}
	}

	if n.Condition == "" {
		for _, kw := range conditionKeywords {
			if kw.pattern.MatchString(text) {
				n.Condition = kw.value
				break
			}
		}
	}

	if n.ConstructionType == "" {
		for _, kw := range constructionKeywords {
			if kw.pattern.MatchString(text) {
				n.ConstructionType = kw.value
				break
			}
		}
	}
}

// RoomsFromDisposition extracts the leading numeric room count from a
// disposition string such as "3+kk", returning 0 when absent.
func RoomsFromDisposition(disposition string) int {
	m := reRoomsPrefix.FindStringSubmatch(disposition)
	if m == nil {
		return 0
	}
	n := 0
	for _, r := range m[1] {
		n = n*10 + int(r-'0')
	}
	return n
}
