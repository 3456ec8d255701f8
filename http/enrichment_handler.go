package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/cybersmurf/realestate-aggregator/internal/cadastre"
	"github.com/cybersmurf/realestate-aggregator/internal/geocode"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

// EnrichmentDeps wires the geocode/cadastre bulk-sweep and single-lookup
// endpoints.
type EnrichmentDeps struct {
	Store    *store.Store
	Geocode  *geocode.Client
	Cadastre *cadastre.Client
}

type geocodeLookupRequest struct {
	LocationText string `json:"location_text"`
	Municipality string `json:"municipality"`
	District     string `json:"district"`
}

type cadastreLookupRequest struct {
	AddressText  string `json:"address_text"`
	Municipality string `json:"municipality"`
}

// RegisterEnrichment mounts /geocode and /cadastre endpoints.
func RegisterEnrichment(r chi.Router, d EnrichmentDeps) {
	r.Route("/geocode", func(r chi.Router) {
		r.Post("/sweep", func(w http.ResponseWriter, req *http.Request) {
			batchSize, _ := strconv.Atoi(req.URL.Query().Get("batch_size"))
			if batchSize <= 0 {
				batchSize = 100
			}
			go func() {
				n, err := d.Geocode.BulkSweep(context.Background(), d.Store, batchSize)
				if err != nil {
					return
				}
				_ = n
			}()
			render.Status(req, http.StatusAccepted)
			render.JSON(w, req, map[string]any{"accepted": true, "batch_size": batchSize})
		})

		r.Post("/lookup", func(w http.ResponseWriter, req *http.Request) {
			var body geocodeLookupRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
				return
			}
			lat, lon, ok := d.Geocode.LookupListingLocation(req.Context(), body.LocationText, body.Municipality, body.District)
			if !ok {
				render.Status(req, http.StatusNotFound)
				render.JSON(w, req, map[string]any{"error": "not_found"})
				return
			}
			render.JSON(w, req, map[string]any{"latitude": lat, "longitude": lon})
		})
	})

	r.Route("/cadastre", func(r chi.Router) {
		r.Post("/sweep", func(w http.ResponseWriter, req *http.Request) {
			batchSize, _ := strconv.Atoi(req.URL.Query().Get("batch_size"))
			if batchSize <= 0 {
				batchSize = 100
			}
			reprocessNotFound := req.URL.Query().Get("reprocess_not_found") == "true"
			go func() {
				_, _ = d.Cadastre.BulkSweep(context.Background(), d.Store, batchSize, reprocessNotFound)
			}()
			render.Status(req, http.StatusAccepted)
			render.JSON(w, req, map[string]any{"accepted": true, "batch_size": batchSize})
		})

		r.Post("/lookup", func(w http.ResponseWriter, req *http.Request) {
			var body cadastreLookupRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
				return
			}
			result := d.Cadastre.Lookup(req.Context(), body.AddressText, body.Municipality)
			render.JSON(w, req, result)
		})
	})
}
