// Package server is the upload web app: it accepts a log file, analyzes
// it in the background, and reports progress by polling or SSE.
package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/RishavT/iitmdocs/internal/analyzer"
	"github.com/RishavT/iitmdocs/internal/config"
	"github.com/RishavT/iitmdocs/internal/jobs"
	"github.com/RishavT/iitmdocs/internal/logsource"
	"github.com/RishavT/iitmdocs/internal/metrics"
	"github.com/RishavT/iitmdocs/internal/model"
)

//go:embed static/index.html
var static embed.FS

// Analyzer runs one analysis. *analyzer.Analyzer satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, src *logsource.Table, opts analyzer.Options) (*model.Summary, error)
}

// Server routes the web app's endpoints.
type Server struct {
	cfg      config.ServerConfig
	runner   *jobs.Runner
	analyzer Analyzer
	router   chi.Router
}

// New builds the router. An empty password disables authentication.
func New(cfg config.ServerConfig, runner *jobs.Runner, an Analyzer) *Server {
	s := &Server{cfg: cfg, runner: runner, analyzer: an}

	if cfg.Password == "" {
		zap.L().Warn("server: no password configured, /analyze is open to anyone")
	}

	mw := metrics.NewMiddleware("loganalyzer")
	mw.Register(prometheus.DefaultRegisterer)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(mw.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())
	r.Post("/analyze", s.handleAnalyze)
	r.Get("/status/{id}", s.handleStatus)
	r.Get("/stream/{id}", s.handleStream)

	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on port until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("server: shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("server: graceful shutdown failed", zap.Error(err))
		}
	}()

	zap.L().Info("server: listening", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		http.Error(w, "page unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.runner.Get(r.Context(), chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Job not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
