package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/cybersmurf/realestate-aggregator/internal/metrics"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

// HealthDeps wires liveness and metrics endpoints.
type HealthDeps struct {
	Store   *store.Store
	Metrics *metrics.Collector
}

// RegisterHealth mounts /healthz and /metrics.
func RegisterHealth(r chi.Router, d HealthDeps) {
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.Store.Ping(req.Context()); err != nil {
			render.Status(req, http.StatusServiceUnavailable)
			render.JSON(w, req, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		render.JSON(w, req, map[string]any{"ok": true})
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = w.Write([]byte(d.Metrics.RenderText()))
	})
}
