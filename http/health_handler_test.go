package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/cybersmurf/realestate-aggregator/internal/metrics"
)

func TestMetricsEndpointRendersPlainText(t *testing.T) {
	r := chi.NewRouter()
	collector := metrics.New()
	collector.IncrementScraped()
	RegisterHealth(r, HealthDeps{Metrics: collector})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/plain")
	require.True(t, strings.Contains(w.Body.String(), "pages_scraped 1"))
}
