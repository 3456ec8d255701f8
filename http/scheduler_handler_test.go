package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/config"
	"github.com/cybersmurf/realestate-aggregator/internal/scheduler"
)

func newTestRouter(t *testing.T) chi.Router {
	t.Helper()
	sched, err := scheduler.New(config.Default(), func(context.Context, []string, bool) {}, zerolog.Nop())
	require.NoError(t, err)

	r := chi.NewRouter()
	RegisterScheduler(r, SchedulerDeps{Scheduler: sched})
	return r
}

func TestListJobsReturnsBothDefaults(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/scheduler/jobs", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Jobs []scheduler.JobInfo `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Jobs, 2)
}

func TestPauseUnknownJobReturns404(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/scheduler/jobs/bogus/pause", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPauseKnownJobReturnsOK(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/scheduler/jobs/daily_scrape/pause", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"ok":true`)
}

func TestTriggerReturnsAccepted(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPost, "/scheduler/jobs/weekly_full_rescan/trigger", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusAccepted, w.Code)
}

func TestRescheduleWithInvalidJSONReturns400(t *testing.T) {
	r := newTestRouter(t)
	req := httptest.NewRequest(http.MethodPut, "/scheduler/jobs/daily_scrape/schedule", bytes.NewBufferString("not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRescheduleAppliesNewSpec(t *testing.T) {
	r := newTestRouter(t)
	payload, _ := json.Marshal(rescheduleRequest{Spec: "0 5 * * *"})
	req := httptest.NewRequest(http.MethodPut, "/scheduler/jobs/daily_scrape/schedule", bytes.NewReader(payload))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}
