// Package server provides the HTTP REST API for the generation and build
// orchestrator.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gammazero/workerpool"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/uadlabs/forge/internal/generation"
	"github.com/uadlabs/forge/internal/jobs"
	"github.com/uadlabs/forge/internal/pipeline"
	"github.com/uadlabs/forge/internal/registry"
	"github.com/uadlabs/forge/internal/server/ratelimit"
)

// DefaultWorkers bounds concurrent generation jobs.
const DefaultWorkers = 4

// Config holds the dependencies and settings for the HTTP server. Stores and
// the runner are built by the caller so tests can inject fakes.
type Config struct {
	Port    int
	Jobs    *jobs.Store
	Catalog *registry.Catalog
	Library *registry.Library
	Runner  *pipeline.Runner
	Wizard  *generation.Wizard

	GeneratedModulesDir string
	CompiledModulesDir  string
	GeneratedWidgetsDir string
	// DefaultBundlePath is flashed on a reset/default activation.
	DefaultBundlePath string

	// Workers bounds the generation job pool. Zero means DefaultWorkers.
	Workers int
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	jobs        *jobs.Store
	catalog     *registry.Catalog
	library     *registry.Library
	runner      *pipeline.Runner
	wizard      *generation.Wizard
	pool        *workerpool.WorkerPool
	validate    *validator.Validate
	rateLimiter *ratelimit.Limiter

	modulesDir    string
	compiledDir   string
	widgetsDir    string
	defaultBundle string
}

// New creates a new server instance
func New(cfg Config) *Server {
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	s := &Server{
		jobs:          cfg.Jobs,
		catalog:       cfg.Catalog,
		library:       cfg.Library,
		runner:        cfg.Runner,
		wizard:        cfg.Wizard,
		pool:          workerpool.New(workers),
		validate:      validator.New(),
		rateLimiter:   ratelimit.NewLimiter(ratelimit.LoadConfig()),
		modulesDir:    cfg.GeneratedModulesDir,
		compiledDir:   cfg.CompiledModulesDir,
		widgetsDir:    cfg.GeneratedWidgetsDir,
		defaultBundle: cfg.DefaultBundlePath,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second, // real builds can take minutes
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler builds the routed and middleware-wrapped handler. Exposed for
// httptest use.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Module generation and delivery
	mux.HandleFunc("POST /api/modules/generate", s.handleGenerateModule)
	mux.HandleFunc("GET /api/modules/status", s.handleJobStatus)
	mux.HandleFunc("GET /api/modules/check", s.handleCheckModule)
	mux.HandleFunc("GET /api/modules/download", s.handleDownloadModule)

	// Widgets
	mux.HandleFunc("POST /api/widgets/generate", s.handleGenerateWidget)
	mux.HandleFunc("GET /api/widgets/{type}", s.handleGetWidget)

	// Wizard
	mux.HandleFunc("POST /api/modes/feasibility", s.handleFeasibility)
	mux.HandleFunc("POST /api/modes/use-cases", s.handleUseCases)

	// Mode catalog
	mux.HandleFunc("GET /api/modes", s.handleListModes)
	mux.HandleFunc("POST /api/modes/activate", s.handleActivateMode)
	mux.HandleFunc("GET /api/modes/{id}", s.handleGetMode)

	// Parameter tuner
	mux.HandleFunc("GET /api/modes/{smartName}/parameters", s.handleGetParameters)
	mux.HandleFunc("POST /api/modes/{smartName}/parameters", s.handleUpdateParameters)

	// My modes library
	mux.HandleFunc("GET /api/my-modes", s.handleListMyModes)
	mux.HandleFunc("GET /api/my-modes/{id}", s.handleGetMyMode)
	mux.HandleFunc("PUT /api/my-modes/{id}", s.handleUpdateMyMode)
	mux.HandleFunc("DELETE /api/my-modes/{id}", s.handleDeleteMyMode)
	mux.HandleFunc("POST /api/my-modes/{id}/activate", s.handleActivateMyMode)

	mux.HandleFunc("GET /health", s.handleHealth)

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server error")
		}
	}()

	<-stop
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	// Let in-flight generation jobs finish before exiting.
	s.pool.StopWait()

	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}

	log.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging with a per-request id.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := log.WithFields(log.Fields{
			"request_id": uuid.New().String(),
			"method":     r.Method,
			"path":       r.URL.Path,
			"remote":     r.RemoteAddr,
		})
		logger.Info("request started")
		next.ServeHTTP(w, r)
		logger.WithField("duration", time.Since(start).String()).Info("request completed")
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Error("error encoding JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the client identifier from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		response["retry_after"] = int(info.RetryAfter.Seconds())
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds())))
	}

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
