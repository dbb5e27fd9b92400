package http

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/emissions-dashboard/internal/domain"
	"github.com/couchcryptid/emissions-dashboard/internal/pipeline"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// DashboardService lists dashboards and derives their views.
type DashboardService interface {
	ReadinessChecker
	Dashboards() []pipeline.Summary
	View(ctx context.Context, id string, year *int) (domain.View, error)
}

// Server exposes the dashboard pages, the JSON API, and health, readiness,
// and metrics endpoints.
type Server struct {
	httpServer *http.Server
	svc        DashboardService
	logger     *slog.Logger
}

// NewServer creates an HTTP server with the dashboard and operational routes.
func NewServer(addr string, svc DashboardService, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		svc:    svc,
		logger: logger,
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /dashboards/{id}", s.handleDashboardPage)
	mux.HandleFunc("GET /api/dashboards", s.handleListDashboards)
	mux.HandleFunc("GET /api/dashboards/{id}", s.handleView)

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(svc))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleListDashboards(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Dashboards())
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	view, status, err := s.render(r)
	if err != nil {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type indexPage struct {
	Dashboards []pipeline.Summary
}

type dashboardPage struct {
	View  domain.View
	Error string
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.writeHTML(w, http.StatusOK, "index.html", indexPage{Dashboards: s.svc.Dashboards()})
}

func (s *Server) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	view, status, err := s.render(r)
	if err != nil {
		s.writeHTML(w, status, "error.html", dashboardPage{Error: err.Error()})
		return
	}
	s.writeHTML(w, http.StatusOK, "dashboard.html", dashboardPage{View: view})
}

// render resolves the {id} path value and optional year query parameter into
// a view, mapping service errors onto HTTP status codes.
func (s *Server) render(r *http.Request) (domain.View, int, error) {
	id := r.PathValue("id")

	year, err := parseYear(r.URL.Query().Get("year"))
	if err != nil {
		return domain.View{}, http.StatusBadRequest, err
	}

	view, err := s.svc.View(r.Context(), id, year)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("render view failed", "dashboard", id, "error", err)
		}
		return domain.View{}, status, err
	}
	return view, http.StatusOK, nil
}

func parseYear(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1 {
		return nil, errors.New("year must be a positive integer")
	}
	return &year, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrUnknownDashboard):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrUnknownYear):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrDatasetUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}

func (s *Server) writeHTML(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render page failed", "template", name, "error", err)
	}
}
