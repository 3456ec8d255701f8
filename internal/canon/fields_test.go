package canon

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/model"
)

func TestMapPropertyType(t *testing.T) {
	cases := map[string]model.PropertyType{
		"Dům":       model.PropertyTypeHouse,
		"byt":       model.PropertyTypeApartment,
		"POZEMEK":   model.PropertyTypeLand,
		"chalupa":   model.PropertyTypeCottage,
		"komerční":  model.PropertyTypeCommercial,
		"garáž":     model.PropertyTypeGarage,
		"unknown":   model.PropertyTypeOther,
		"":          model.PropertyTypeOther,
	}
	for raw, want := range cases {
		require.Equal(t, want, MapPropertyType(raw), "raw=%q", raw)
	}
}

func TestMapOfferType(t *testing.T) {
	cases := map[string]model.OfferType{
		"Prodej":   model.OfferTypeSale,
		"pronájem": model.OfferTypeRent,
		"dražba":   model.OfferTypeAuction,
		"unknown":  model.OfferTypeSale,
	}
	for raw, want := range cases {
		require.Equal(t, want, MapOfferType(raw), "raw=%q", raw)
	}
}

func TestInferFieldsNeverOverwritesExistingValues(t *testing.T) {
	n := &model.NormalizedListing{
		Title:       "Prodej bytu 3+kk, novostavba, cihlová konstrukce",
		Disposition: "already-set",
	}
	InferFields(n)
	require.Equal(t, "already-set", n.Disposition)
	require.Equal(t, "Novostavba", n.Condition)
	require.Equal(t, "Cihla", n.ConstructionType)
}

func TestInferFieldsFillsDispositionFromText(t *testing.T) {
	n := &model.NormalizedListing{Title: "Byt 2+kk po rekonstrukci, panelová výstavba"}
	InferFields(n)
	require.Equal(t, "2+kk", n.Disposition)
	require.Equal(t, "Po rekonstrukci", n.Condition)
	require.Equal(t, "Panel", n.ConstructionType)
}

func TestInferFieldsLeavesUnmatchedFieldsEmpty(t *testing.T) {
	n := &model.NormalizedListing{Title: "Pozemek v klidné lokalitě"}
	InferFields(n)
	require.Empty(t, n.Disposition)
	require.Empty(t, n.Condition)
	require.Empty(t, n.ConstructionType)
}

func TestRoomsFromDisposition(t *testing.T) {
	require.Equal(t, 3, RoomsFromDisposition("3+kk"))
	require.Equal(t, 1, RoomsFromDisposition("1+1"))
	require.Equal(t, 0, RoomsFromDisposition(""))
	require.Equal(t, 0, RoomsFromDisposition("kk"))
}
