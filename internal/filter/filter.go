// Package filter is the policy admission check applied to every candidate
// listing before it reaches the store gateway. It is constructed once from
// a declarative document and is immutable thereafter, so every adapter
// goroutine may call it concurrently without locking (spec §5).
package filter

import (
	"fmt"
	"strings"

	"github.com/cybersmurf/realestate-aggregator/internal/config"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

// Manager evaluates the quality and search filter stanzas in the order
// spec §4.2 mandates: quality checks first (short-circuit on first miss),
// then district substring match, then the property-type stanza lookup.
type Manager struct {
	quality config.QualityFilters
	search  config.SearchFilters
}

// New builds a Manager from the loaded configuration. Passing a zero-value
// config.SearchFilters (no property type stanzas) is valid: a missing
// stanza means "no filter applied", never "disabled" (spec §9).
func New(quality config.QualityFilters, search config.SearchFilters) *Manager {
	return &Manager{quality: quality, search: search}
}

// ShouldInclude is a pure function: the same record always yields the same
// (accept, reason) regardless of call ordering or prior calls (spec §8
// invariant 6). It never mutates n.
func (m *Manager) ShouldInclude(n model.NormalizedListing) (bool, string) {
	if ok, reason := m.checkQuality(n); !ok {
		return false, reason
	}

	if len(m.search.TargetDistricts) > 0 {
		loc := strings.ToLower(n.LocationText)
		matched := false
		for _, d := range m.search.TargetDistricts {
			if strings.Contains(loc, strings.ToLower(d)) {
				matched = true
				break
			}
		}
		if !matched {
			return false, fmt.Sprintf("location %q does not match any target district", n.LocationText)
		}
	}

	return m.checkPropertyTypeStanza(n)
}

func (m *Manager) checkQuality(n model.NormalizedListing) (bool, string) {
	q := m.quality

	if q.RequirePhotos && len(n.Photos) < max(q.MinPhotos, 1) {
		return false, "missing required photos"
	}
	if q.RequirePrice && n.Price == nil {
		return false, "missing required price"
	}
	if q.RequireLocation && strings.TrimSpace(n.LocationText) == "" {
		return false, "missing required location"
	}
	if q.RequireDescription && len(n.Description) < q.MinDescriptionLength {
		return false, "description shorter than minimum length"
	}

	return true, ""
}

// checkPropertyTypeStanza looks up the property-type stanza for n. A
// missing stanza admits the record unconditionally ("no filter applied");
// a present-but-disabled stanza, an offer type outside the allowed set, or
// a price outside [min_price, max_price] rejects it. Bounds are inclusive
// (spec §8: a listing at exactly max_price is admitted).
func (m *Manager) checkPropertyTypeStanza(n model.NormalizedListing) (bool, string) {
	stanza, ok := m.search.PropertyTypes[n.PropertyType]
	if !ok {
		return true, ""
	}
	if !stanza.Enabled {
		return false, fmt.Sprintf("property type %q filter disabled", n.PropertyType)
	}

	if len(stanza.OfferTypes) > 0 {
		allowed := false
		for _, ot := range stanza.OfferTypes {
			if strings.EqualFold(ot, n.OfferType) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, fmt.Sprintf("offer type %q not in allowed set for %q", n.OfferType, n.PropertyType)
		}
	}

	if n.Price != nil {
		if stanza.MinPrice != nil && *n.Price < *stanza.MinPrice {
			return false, fmt.Sprintf("price %.0f below minimum %.0f", *n.Price, *stanza.MinPrice)
		}
		if stanza.MaxPrice != nil && *n.Price > *stanza.MaxPrice {
			return false, fmt.Sprintf("price %.0f above maximum %.0f", *n.Price, *stanza.MaxPrice)
		}
	}

	return true, ""
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
