package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/emissions-dashboard/internal/adapter/http"
	"github.com/couchcryptid/emissions-dashboard/internal/config"
	"github.com/couchcryptid/emissions-dashboard/internal/domain"
	"github.com/couchcryptid/emissions-dashboard/internal/observability"
	"github.com/couchcryptid/emissions-dashboard/internal/pipeline"
)

type mockService struct {
	readyErr  error
	summaries []pipeline.Summary
	view      domain.View
	viewErr   error

	gotID   string
	gotYear *int
}

func (m *mockService) CheckReadiness(_ context.Context) error { return m.readyErr }

func (m *mockService) Dashboards() []pipeline.Summary { return m.summaries }

func (m *mockService) View(_ context.Context, id string, year *int) (domain.View, error) {
	m.gotID, m.gotYear = id, year
	return m.view, m.viewErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(svc *mockService) *httpadapter.Server {
	return httpadapter.NewServer(":0", svc, discardLogger())
}

func serve(srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(newTestServer(&mockService{}), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(newTestServer(&mockService{}), "/readyz")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := serve(newTestServer(&mockService{readyErr: fmt.Errorf("not ready yet")}), "/readyz")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(newTestServer(&mockService{}), "/metrics")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestListDashboards(t *testing.T) {
	svc := &mockService{summaries: []pipeline.Summary{
		{ID: "a", Title: "A", Years: []int{2022}, Records: 3},
		{ID: "b", Title: "B", Years: []int{}, Error: "open dataset: missing"},
	}}
	rec := serve(newTestServer(svc), "/api/dashboards")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body []pipeline.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, svc.summaries, body)
}

func TestViewEndpoint_PassesYear(t *testing.T) {
	svc := &mockService{view: domain.View{Dashboard: "landfill", CohortSize: 2}}
	srv := newTestServer(svc)

	rec := serve(srv, "/api/dashboards/landfill?year=2021")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "landfill", svc.gotID)
	require.NotNil(t, svc.gotYear)
	assert.Equal(t, 2021, *svc.gotYear)

	var body domain.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.CohortSize)

	rec = serve(srv, "/api/dashboards/landfill")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, svc.gotYear)
}

func TestViewEndpoint_ErrorStatus(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		err      error
		expected int
	}{
		{"malformed year", "/api/dashboards/x?year=abc", nil, http.StatusBadRequest},
		{"negative year", "/api/dashboards/x?year=-2022", nil, http.StatusBadRequest},
		{"unknown year", "/api/dashboards/x?year=1999", fmt.Errorf("%w: 1999", pipeline.ErrUnknownYear), http.StatusBadRequest},
		{"unknown dashboard", "/api/dashboards/x", fmt.Errorf("%w: x", pipeline.ErrUnknownDashboard), http.StatusNotFound},
		{"dataset unavailable", "/api/dashboards/x", fmt.Errorf("%w: boom", pipeline.ErrDatasetUnavailable), http.StatusServiceUnavailable},
		{"unexpected", "/api/dashboards/x", fmt.Errorf("template exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(&mockService{viewErr: tt.err}), tt.target)

			assert.Equal(t, tt.expected, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestIndexPage(t *testing.T) {
	svc := &mockService{summaries: []pipeline.Summary{
		{ID: "turkey-landfills", Title: "Landfills <TR>", Records: 8},
		{ID: "broken", Title: "Broken", Error: "dataset unavailable"},
	}}
	rec := serve(newTestServer(svc), "/")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `href="/dashboards/turkey-landfills"`)
	assert.Contains(t, body, "Landfills &lt;TR&gt;")
	assert.Contains(t, body, "8 sources")
	assert.Contains(t, body, "dataset unavailable")
}

func TestUnknownPathIs404(t *testing.T) {
	rec := serve(newTestServer(&mockService{}), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDashboardPage_Error(t *testing.T) {
	svc := &mockService{viewErr: fmt.Errorf("%w: \"x\"", pipeline.ErrUnknownDashboard)}
	rec := serve(newTestServer(svc), "/dashboards/x")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown dashboard")
}

func sampleService(t *testing.T) *pipeline.Service {
	t.Helper()
	dir := filepath.Join("..", "..", "..", "data", "sample")
	cfg := &config.Config{
		RoadTransportCSV:  filepath.Join(dir, "road-transportation_emissions_sources.csv"),
		LandfillCSV:       filepath.Join(dir, "solid-waste-disposal_emissions_sources.csv"),
		LinearScaleFactor: 1000,
		LogMinRadius:      2000,
		LogMaxRadius:      10000,
	}
	svc, err := pipeline.NewService(pipeline.DefaultDashboards(cfg), 8, discardLogger(), observability.NewMetricsForTesting())
	require.NoError(t, err)
	require.NoError(t, svc.Load(context.Background()))
	return svc
}

func TestDashboardPage_Landfills(t *testing.T) {
	srv := httpadapter.NewServer(":0", sampleService(t), discardLogger())

	rec := serve(srv, "/dashboards/"+pipeline.TurkeyLandfills+"?year=2021")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `<option value="2021" selected>2021</option>`)
	assert.Contains(t, body, `<option value="2022">2022</option>`)
	assert.Contains(t, body, "ScatterplotLayer")
	assert.Contains(t, body, "3 sources")
	assert.NotContains(t, body, "<table>", "landfill dashboard has no table")
}

func TestDashboardPage_IstanbulHasTable(t *testing.T) {
	srv := httpadapter.NewServer(":0", sampleService(t), discardLogger())

	rec := serve(srv, "/dashboards/"+pipeline.IstanbulRoadTransport)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "Istanbul Sahil Yolu")
	assert.NotContains(t, body, `<select`)
}

func TestViewEndpoint_RealService(t *testing.T) {
	srv := httpadapter.NewServer(":0", sampleService(t), discardLogger())

	rec := serve(srv, "/api/dashboards/"+pipeline.TurkeyLandfills)
	require.Equal(t, http.StatusOK, rec.Code)

	var view domain.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, pipeline.TurkeyLandfills, view.Dashboard)
	assert.Equal(t, 2022, view.Selector.Selected)
	require.Len(t, view.Layer.Points, 5)
	assert.Equal(t, [2]float64{28.8269, 41.2331}, view.Layer.Points[0].Position)

	rec = serve(srv, "/api/dashboards/"+pipeline.TurkeyLandfills+"?year=1990")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(srv, "/api/dashboards/"+pipeline.IstanbulRoadTransport+"?year=2022")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
