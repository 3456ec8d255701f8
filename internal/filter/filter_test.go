package filter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/config"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

func price(v float64) *float64 { return &v }

func TestShouldIncludeQualityChecksShortCircuit(t *testing.T) {
	quality := config.QualityFilters{RequirePhotos: true, MinPhotos: 1, RequirePrice: true, RequireLocation: true}
	m := New(quality, config.SearchFilters{})

	ok, reason := m.ShouldInclude(model.NormalizedListing{})
	require.False(t, ok)
	require.Equal(t, "missing required photos", reason)
}

func TestShouldIncludeRequiresPrice(t *testing.T) {
	quality := config.QualityFilters{RequirePrice: true}
	m := New(quality, config.SearchFilters{})

	ok, reason := m.ShouldInclude(model.NormalizedListing{Photos: []string{"a.jpg"}})
	require.False(t, ok)
	require.Equal(t, "missing required price", reason)
}

func TestShouldIncludeRequiresMinDescriptionLength(t *testing.T) {
	quality := config.QualityFilters{RequireDescription: true, MinDescriptionLength: 20}
	m := New(quality, config.SearchFilters{})

	ok, _ := m.ShouldInclude(model.NormalizedListing{Description: "too short"})
	require.False(t, ok)

	ok, _ = m.ShouldInclude(model.NormalizedListing{Description: "this description is definitely long enough"})
	require.True(t, ok)
}

func TestShouldIncludeTargetDistrictMismatch(t *testing.T) {
	m := New(config.QualityFilters{}, config.SearchFilters{TargetDistricts: []string{"Znojmo"}})

	ok, reason := m.ShouldInclude(model.NormalizedListing{LocationText: "Brno-střed"})
	require.False(t, ok)
	require.Contains(t, reason, "does not match any target district")
}

func TestShouldIncludeTargetDistrictMatchIsCaseInsensitiveSubstring(t *testing.T) {
	m := New(config.QualityFilters{}, config.SearchFilters{TargetDistricts: []string{"znojmo"}})

	ok, _ := m.ShouldInclude(model.NormalizedListing{LocationText: "Okres Znojmo, Jihomoravský kraj"})
	require.True(t, ok)
}

func TestShouldIncludeMissingPropertyTypeStanzaAdmitsUnconditionally(t *testing.T) {
	m := New(config.QualityFilters{}, config.SearchFilters{
		PropertyTypes: map[string]config.PropertyTypeFilter{
			"House": {Enabled: true},
		},
	})

	ok, _ := m.ShouldInclude(model.NormalizedListing{PropertyType: "Garage"})
	require.True(t, ok)
}

func TestShouldIncludeDisabledStanzaRejects(t *testing.T) {
	m := New(config.QualityFilters{}, config.SearchFilters{
		PropertyTypes: map[string]config.PropertyTypeFilter{
			"House": {Enabled: false},
		},
	})

	ok, reason := m.ShouldInclude(model.NormalizedListing{PropertyType: "House"})
	require.False(t, ok)
	require.Contains(t, reason, "filter disabled")
}

func TestShouldIncludeOfferTypeNotAllowed(t *testing.T) {
	m := New(config.QualityFilters{}, config.SearchFilters{
		PropertyTypes: map[string]config.PropertyTypeFilter{
			"House": {Enabled: true, OfferTypes: []string{"Sale"}},
		},
	})

	ok, reason := m.ShouldInclude(model.NormalizedListing{PropertyType: "House", OfferType: "Rent"})
	require.False(t, ok)
	require.Contains(t, reason, "not in allowed set")
}

func TestShouldIncludePriceBoundsAreInclusive(t *testing.T) {
	m := New(config.QualityFilters{}, config.SearchFilters{
		PropertyTypes: map[string]config.PropertyTypeFilter{
			"House": {Enabled: true, MinPrice: price(1_000_000), MaxPrice: price(8_500_000)},
		},
	})

	ok, _ := m.ShouldInclude(model.NormalizedListing{PropertyType: "House", Price: price(8_500_000)})
	require.True(t, ok, "a listing at exactly max_price must be admitted")

	ok, reason := m.ShouldInclude(model.NormalizedListing{PropertyType: "House", Price: price(8_500_001)})
	require.False(t, ok)
	require.Contains(t, reason, "above maximum")

	ok, reason = m.ShouldInclude(model.NormalizedListing{PropertyType: "House", Price: price(999_999)})
	require.False(t, ok)
	require.Contains(t, reason, "below minimum")
}

func TestShouldIncludeNoPriceSkipsPriceBoundsCheck(t *testing.T) {
	m := New(config.QualityFilters{}, config.SearchFilters{
		PropertyTypes: map[string]config.PropertyTypeFilter{
			"House": {Enabled: true, MinPrice: price(1_000_000)},
		},
	})

	ok, _ := m.ShouldInclude(model.NormalizedListing{PropertyType: "House"})
	require.True(t, ok)
}
