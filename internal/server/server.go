// Package server hosts the HTTP API over Redis-backed job state and the
// claim extraction and verification services.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/papertrail/papertrail/internal/anthropic"
	"github.com/papertrail/papertrail/internal/api"
	"github.com/papertrail/papertrail/internal/config"
	"github.com/papertrail/papertrail/internal/extract"
	"github.com/papertrail/papertrail/internal/kv"
	"github.com/papertrail/papertrail/internal/repo"
	"github.com/papertrail/papertrail/internal/server/endpoints"
	"github.com/papertrail/papertrail/internal/service"
	"github.com/papertrail/papertrail/internal/stream"
	"github.com/papertrail/papertrail/internal/svcctx"
	"github.com/papertrail/papertrail/internal/verify"
)

// Server is the main Papertrail HTTP server. It owns the Redis connection
// lifecycle, connecting on start and closing on shutdown.
type Server struct {
	httpServer *http.Server
	appCfg     *config.Config
	logger     *slog.Logger

	store    *kv.Store
	embedder *verify.LazyEmbedder

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// App is the loaded runtime configuration.
	App *config.Config
	// Logger is the structured logger to use.
	Logger *slog.Logger
}

// New creates a new Server with the given configuration. Redis is not
// contacted until Start.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("missing app config")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		appCfg: cfg.App,
		logger: cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{MaxFileBytes: cfg.App.MaxFileBytes()}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         cfg.App.ListenAddr(),
		Handler:      s.withServices(s.withCORS(s.withRateLimit(mux))),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start connects to Redis, wires the services, and serves HTTP until the
// context is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info("connecting to redis")
	store, err := kv.Open(ctx, s.appCfg.RedisURL, s.appCfg.TTL())
	if err != nil {
		s.setNotRunning()
		return fmt.Errorf("redis connection failed: %w", err)
	}
	s.store = store
	s.logger.Info("redis is ready", "ttl", s.appCfg.TTL())

	jobs := repo.NewJobs(store, s.logger)
	buffer := repo.NewClaimBuffer(store, s.logger)
	verifications := repo.NewVerifications(store, s.logger)
	blobs := repo.NewBlobs(store)

	llm := anthropic.New(anthropic.Config{
		APIURL:  s.appCfg.AnthropicAPIURL,
		Model:   s.appCfg.AnthropicModel,
		Version: s.appCfg.AnthropicVersion,
		Logger:  s.logger,
	})

	s.embedder = verify.NewLazyEmbedder(verify.EmbedderConfig{
		BaseURL: s.appCfg.EmbeddingBaseURL,
		APIKey:  s.appCfg.EmbeddingAPIKey,
		Model:   s.appCfg.EmbeddingModelName,
	})

	orchestrator := stream.New(stream.Config{
		Jobs:          jobs,
		Buffer:        buffer,
		Verifications: verifications,
		Blobs:         blobs,
		Pool:          extract.NewPool(llm, s.appCfg.ExtractConcurrency, s.logger),
		Logger:        s.logger,
	})

	pipeline := verify.NewPipeline(s.embedder, llm, s.logger)

	paper := service.NewPaper(service.PaperConfig{
		Jobs:          jobs,
		Buffer:        buffer,
		Verifications: verifications,
		Blobs:         blobs,
		Orchestrator:  orchestrator,
		Pipeline:      pipeline,
		LLM:           llm,
		Logger:        s.logger,
	})

	s.services = &svcctx.Services{
		Paper:     paper,
		Suggester: service.NewSuggester(s.appCfg.SemanticSearchURL, s.logger),
		Config:    s.appCfg,
		Logger:    s.logger,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server and closes the
// Redis connection and embedding client.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.embedder != nil {
		s.embedder.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Error("redis close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wired HTTP handler. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// SetServices replaces the context-enriched services. Used by tests to run
// the handler without a live Redis connection dance in Start.
func (s *Server) SetServices(services *svcctx.Services, store *kv.Store) {
	s.services = services
	s.store = store
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if s.services != nil {
			ctx = svcctx.WithServices(ctx, s.services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until Redis and services are ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services == nil || s.store == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
