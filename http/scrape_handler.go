package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/cybersmurf/realestate-aggregator/internal/dispatch"
	"github.com/cybersmurf/realestate-aggregator/internal/model"
	"github.com/cybersmurf/realestate-aggregator/internal/store"
)

// ScrapeDeps wires the scrape trigger/status/history endpoints. Dispatcher
// alone runs triggered jobs in the background; there is no separate Run
// callback here to avoid double-executing a job.
type ScrapeDeps struct {
	Store      *store.Store
	Dispatcher *dispatch.Dispatcher
}

type triggerScrapeRequest struct {
	SourceCodes []string `json:"source_codes"`
	FullRescan  bool     `json:"full_rescan"`
}

// RegisterScrape mounts the job trigger/status/history endpoints under
// /scrape.
func RegisterScrape(r chi.Router, d ScrapeDeps) {
	r.Route("/scrape", func(r chi.Router) {
		r.Post("/", func(w http.ResponseWriter, req *http.Request) {
			var body triggerScrapeRequest
			if req.ContentLength != 0 {
				if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
					render.Status(req, http.StatusBadRequest)
					render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
					return
				}
			}

			ctx := req.Context()
			jobID, err := d.Store.CreateJob(ctx, body.SourceCodes, body.FullRescan)
			if err != nil {
				render.Status(req, http.StatusInternalServerError)
				render.JSON(w, req, map[string]any{"error": "create_job_failed", "detail": err.Error()})
				return
			}

			accepted := d.Dispatcher.Enqueue(dispatch.Job{
				JobID:       jobID,
				SourceCodes: body.SourceCodes,
				FullRescan:  body.FullRescan,
			})

			render.Status(req, http.StatusAccepted)
			render.JSON(w, req, map[string]any{
				"job_id":   jobID,
				"accepted": accepted,
			})
		})

		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
			status := model.JobStatus(req.URL.Query().Get("status"))

			jobs, err := d.Store.ListJobs(req.Context(), limit, status)
			if err != nil {
				render.Status(req, http.StatusInternalServerError)
				render.JSON(w, req, map[string]any{"error": "list_jobs_failed", "detail": err.Error()})
				return
			}
			render.JSON(w, req, map[string]any{"jobs": jobs})
		})

		r.Get("/{id}", func(w http.ResponseWriter, req *http.Request) {
			id := chi.URLParam(req, "id")
			job, err := d.Store.GetJob(req.Context(), id)
			if err != nil {
				render.Status(req, http.StatusNotFound)
				render.JSON(w, req, map[string]any{"error": "job_not_found", "detail": err.Error()})
				return
			}
			render.JSON(w, req, job)
		})
	})
}
