package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/cybersmurf/realestate-aggregator/internal/scheduler"
)

// SchedulerDeps wires the cron control endpoints.
type SchedulerDeps struct {
	Scheduler *scheduler.Scheduler
}

type rescheduleRequest struct {
	Spec string `json:"spec"`
}

// RegisterScheduler mounts /scheduler/jobs and the per-job control actions.
func RegisterScheduler(r chi.Router, d SchedulerDeps) {
	r.Route("/scheduler", func(r chi.Router) {
		r.Get("/jobs", func(w http.ResponseWriter, req *http.Request) {
			render.JSON(w, req, map[string]any{"jobs": d.Scheduler.Jobs()})
		})

		r.Post("/jobs/{name}/pause", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			if err := d.Scheduler.Pause(name); err != nil {
				render.Status(req, http.StatusNotFound)
				render.JSON(w, req, map[string]any{"error": "unknown_job", "detail": err.Error()})
				return
			}
			render.JSON(w, req, map[string]any{"ok": true})
		})

		r.Post("/jobs/{name}/resume", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			if err := d.Scheduler.Resume(name); err != nil {
				render.Status(req, http.StatusNotFound)
				render.JSON(w, req, map[string]any{"error": "unknown_job", "detail": err.Error()})
				return
			}
			render.JSON(w, req, map[string]any{"ok": true})
		})

		r.Post("/jobs/{name}/trigger", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			if name != scheduler.DailyJobName && name != scheduler.WeeklyJobName {
				render.Status(req, http.StatusNotFound)
				render.JSON(w, req, map[string]any{"error": "unknown_job", "detail": "unknown job " + name})
				return
			}
			// The job body is a whole scrape; run it in the background so the
			// request returns at once.
			go func() { _ = d.Scheduler.TriggerNow(context.Background(), name) }()
			render.Status(req, http.StatusAccepted)
			render.JSON(w, req, map[string]any{"ok": true})
		})

		r.Put("/jobs/{name}/schedule", func(w http.ResponseWriter, req *http.Request) {
			name := chi.URLParam(req, "name")
			var body rescheduleRequest
			if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "invalid_json", "detail": err.Error()})
				return
			}
			if err := d.Scheduler.Reschedule(name, body.Spec); err != nil {
				render.Status(req, http.StatusBadRequest)
				render.JSON(w, req, map[string]any{"error": "reschedule_failed", "detail": err.Error()})
				return
			}
			render.JSON(w, req, map[string]any{"ok": true})
		})
	})
}
