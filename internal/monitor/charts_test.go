package monitor

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nozzle.report/internal/nozzle"
)

func newChartSession(t *testing.T) *nozzle.Session {
	t.Helper()
	pipeline := nozzle.NewInferencePipeline(
		&nozzle.StandardScaler{Mean: []float64{0, 0, 0}, Scale: []float64{1, 1, 1}},
		&nozzle.PCAReducer{Mean: []float64{0, 0, 0}, Components: [][]float64{{1, 0, 0}, {0, 1, 0}}},
		&nozzle.KMeansAssigner{Centroids: [][]float64{{0, 0}, {1000, 0}}},
		nozzle.PipelineConfig{},
	)
	return nozzle.NewSession(pipeline, nozzle.SessionConfig{WindowSize: 5})
}

func get(t *testing.T, mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	session := newChartSession(t)
	mux := http.NewServeMux()
	NewCharts(session).Attach(mux)

	w := get(t, mux, "/charts")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")

	// No classification yet
	assert.Contains(t, w.Body.String(), "warming up")
	assert.Contains(t, w.Body.String(), "/charts/sensor")
	assert.Contains(t, w.Body.String(), "/charts/clusters")
	assert.Contains(t, w.Body.String(), "/charts/conditions")

	for i := 0; i < 5; i++ {
		_, err := session.Process(fmt.Sprintf("%d,0.5", i))
		require.NoError(t, err)
	}

	w = get(t, mux, "/charts")
	assert.Contains(t, w.Body.String(), "Clogged")
}

func TestChartPagesRender(t *testing.T) {
	t.Parallel()

	session := newChartSession(t)
	for i := 0; i < 6; i++ {
		_, err := session.Process(fmt.Sprintf("%d,0.5", i))
		require.NoError(t, err)
	}

	mux := http.NewServeMux()
	NewCharts(session).Attach(mux)

	tests := []struct {
		path  string
		title string
	}{
		{"/charts/sensor", "Real-Time Sensor Data"},
		{"/charts/clusters", "Live Clustering Analysis"},
		{"/charts/conditions", "Condition Distribution"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, mux, tt.path)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, w.Body.String(), "echarts")
			assert.Contains(t, w.Body.String(), tt.title)
		})
	}
}

func TestChartPagesRenderEmptySession(t *testing.T) {
	t.Parallel()

	// All chart pages must render before any samples arrive
	mux := http.NewServeMux()
	NewCharts(newChartSession(t)).Attach(mux)

	for _, path := range []string{"/charts/sensor", "/charts/clusters", "/charts/conditions"} {
		w := get(t, mux, path)
		assert.Equal(t, http.StatusOK, w.Code, "path %s", path)
	}
}
