package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/go-chi/render"

	httpapi "github.com/cybersmurf/realestate-aggregator/http"
)

// RouterDeps bundles every dependency the control surface needs.
type RouterDeps struct {
	Scrape     httpapi.ScrapeDeps
	Enrichment httpapi.EnrichmentDeps
	Scheduler  httpapi.SchedulerDeps
	Health     httpapi.HealthDeps
}

// BuildRouter assembles the chi router the composition root serves.
func BuildRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(60, 1*time.Minute))
	r.Use(render.SetContentType(render.ContentTypeJSON))

	httpapi.RegisterHealth(r, d.Health)
	httpapi.RegisterScrape(r, d.Scrape)
	httpapi.RegisterEnrichment(r, d.Enrichment)
	httpapi.RegisterScheduler(r, d.Scheduler)

	return r
}
