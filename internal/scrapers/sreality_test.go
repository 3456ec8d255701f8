package scrapers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

func TestSrealityToNormalizedParsesNestedGPSAndListPhotos(t *testing.T) {
	e := srealityEstate{HashID: 987, Name: "Rodinný dům", Price: 4500000}
	e.GPS.Lat = floatPtr(48.9)
	e.GPS.Lon = floatPtr(16.1)
	e.Links.Images = []struct {
		Href string `json:"href"`
	}{{Href: "https://d18-a.sdn.cz/1.jpg"}, {Href: "https://d18-a.sdn.cz/2.jpg"}}

	n := (&Sreality{}).toNormalized(e, 2, 1)

	require.Equal(t, "987", n.ExternalID)
	require.NotNil(t, n.Latitude)
	require.NotNil(t, n.Longitude)
	require.Equal(t, 48.9, *n.Latitude)
	require.Equal(t, 16.1, *n.Longitude)
	require.Equal(t, []string{"https://d18-a.sdn.cz/1.jpg", "https://d18-a.sdn.cz/2.jpg"}, n.Photos)
	require.Equal(t, "Dům", n.PropertyType)
	require.Equal(t, "Prodej", n.OfferType)
}

func TestSrealityToNormalizedLeavesGPSNilWhenMissing(t *testing.T) {
	e := srealityEstate{HashID: 1}
	n := (&Sreality{}).toNormalized(e, 1, 1)
	require.Nil(t, n.Latitude)
	require.Nil(t, n.Longitude)
	require.Empty(t, n.Photos)
}

func TestSrealityToNormalizedCapsPhotosAtMax(t *testing.T) {
	e := srealityEstate{HashID: 1}
	for i := 0; i < model.MaxPhotosPerListing+5; i++ {
		e.Links.Images = append(e.Links.Images, struct {
			Href string `json:"href"`
		}{Href: "https://img/x.jpg"})
	}
	n := (&Sreality{}).toNormalized(e, 1, 1)
	require.Len(t, n.Photos, model.MaxPhotosPerListing)
}

func TestExtractSrealityTextHandlesStringAndObjectShapes(t *testing.T) {
	require.Equal(t, "hello", extractSrealityText(json.RawMessage(`"hello"`)))
	require.Equal(t, "world", extractSrealityText(json.RawMessage(`{"name":"Popis","value":"world"}`)))
	require.Equal(t, "", extractSrealityText(nil))
	require.Equal(t, "", extractSrealityText(json.RawMessage(`123`)))
}

func TestMergeSrealityDetailFillsDescriptionPhotosAndArea(t *testing.T) {
	n := &model.NormalizedListing{ExternalID: "1"}
	detail := srealityDetail{
		Text: json.RawMessage(`{"name":"Popis","value":"Krásný dům po rekonstrukci."}`),
	}
	detail.Links.Images = []struct {
		Href string `json:"href"`
	}{{Href: "https://img/detail1.jpg"}}
	detail.Items = []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}{
		{Name: "Užitná plocha", Value: "150 m²"},
		{Name: "Plocha pozemku", Value: "600 m²"},
	}

	mergeSrealityDetail(n, detail)

	require.Equal(t, "Krásný dům po rekonstrukci.", n.Description)
	require.Equal(t, []string{"https://img/detail1.jpg"}, n.Photos)
	require.NotNil(t, n.AreaBuiltUp)
	require.Equal(t, 150, *n.AreaBuiltUp)
	require.NotNil(t, n.AreaLand)
	require.Equal(t, 600, *n.AreaLand)
}

func TestMergeSrealityDetailLeavesListPhotosWhenDetailHasNone(t *testing.T) {
	n := &model.NormalizedListing{ExternalID: "1", Photos: []string{"from-list.jpg"}}
	mergeSrealityDetail(n, srealityDetail{})
	require.Equal(t, []string{"from-list.jpg"}, n.Photos)
}

func TestParseSrealityArea(t *testing.T) {
	require.Equal(t, 150, *parseSrealityArea("150 m²"))
	require.Nil(t, parseSrealityArea("neuvedeno"))
}

func floatPtr(f float64) *float64 { return &f }
