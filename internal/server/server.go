// Package server wires the HTTP surface: it owns the endpoint registry,
// the shared services handed to handlers via context, and the optional
// managed Ollama container lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/danbryan/redline/internal/alert"
	"github.com/danbryan/redline/internal/api"
	"github.com/danbryan/redline/internal/config"
	"github.com/danbryan/redline/internal/home"
	"github.com/danbryan/redline/internal/jobs"
	"github.com/danbryan/redline/internal/ollama"
	"github.com/danbryan/redline/internal/providers"
	"github.com/danbryan/redline/internal/report"
	"github.com/danbryan/redline/internal/server/endpoints"
	"github.com/danbryan/redline/internal/svcctx"
)

// Server is the main Redline HTTP server. When the config marks Ollama as
// managed it also supervises the Ollama container, starting it before the
// HTTP listener and stopping it on shutdown.
type Server struct {
	httpServer    *http.Server
	ollamaManager *ollama.DockerManager
	jobRegistry   *jobs.Registry
	runner        *jobs.Runner
	registry      *providers.Registry
	configMgr     *config.Manager
	homeDir       *home.Dir
	logger        *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
	ready   bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8690)
	Port int
	// Home is the redline home directory for uploads, reports, and state
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
	// SwaggerSpecPath overrides the swagger.json location
	SwaggerSpecPath string
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8690
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if err := cfg.Home.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to prepare home directory: %w", err)
	}

	appCfg := cfg.ConfigManager.Get()

	var ollamaManager *ollama.DockerManager
	if appCfg.Ollama.Managed {
		containerName := appCfg.Ollama.ContainerName
		if containerName == "" {
			containerName = ollama.ContainerNameForHome(cfg.Home.Path())
		}
		var err error
		ollamaManager, err = ollama.NewDockerManager(ollama.DockerConfig{
			ContainerName: containerName,
			Image:         appCfg.Ollama.Image,
			HostPort:      appCfg.Ollama.Port,
			ModelsPath:    filepath.Join(cfg.Home.Path(), "ollama"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama manager: %w", err)
		}
	}

	// Create provider registry with hot reload on config changes
	registry := providers.NewRegistryFromConfig(appCfg.ToProviderRegistryConfig())
	registry.SetLogger(cfg.Logger)
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		registry.Reload(c.ToProviderRegistryConfig())
		cfg.Logger.Info("provider registry reloaded from config")
	})

	jobRegistry := jobs.NewRegistry(jobs.RegistryConfig{
		Retention: appCfg.Analysis.Retention,
		Logger:    cfg.Logger,
	})
	runner := jobs.NewRunner(jobs.RunnerConfig{
		Registry:     jobRegistry,
		StageTimeout: appCfg.Analysis.StageTimeout,
		Logger:       cfg.Logger,
	})

	reports, err := report.NewStore(report.StoreConfig{
		Dir:    cfg.Home.ReportsPath(),
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	s := &Server{
		ollamaManager: ollamaManager,
		jobRegistry:   jobRegistry,
		runner:        runner,
		registry:      registry,
		configMgr:     cfg.ConfigManager,
		homeDir:       cfg.Home,
		logger:        cfg.Logger,
	}

	s.services = &svcctx.Services{
		ConfigManager: cfg.ConfigManager,
		Home:          cfg.Home,
		Logger:        cfg.Logger,
		JobRegistry:   jobRegistry,
		Runner:        runner,
		Providers:     registry,
		Reports:       reports,
		Alerter:       buildAlerter(appCfg, cfg.Logger),
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{
		OllamaManager:   ollamaManager,
		SwaggerSpecPath: cfg.SwaggerSpecPath,
	}) {
		s.endpointRegistry.Register(ep)
	}

	// Set up HTTP server
	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// buildAlerter creates the SMTP mailer when alerts are enabled and
// configured. A misconfigured alerts section logs a warning and leaves
// alerting off rather than refusing to start.
func buildAlerter(cfg *config.Config, logger *slog.Logger) *alert.Mailer {
	if !cfg.Alerts.Enabled {
		return nil
	}
	mailer, err := alert.NewMailer(alert.MailerConfig{
		Host:     cfg.Alerts.SMTPHost,
		Port:     cfg.Alerts.SMTPPort,
		Username: config.ResolveEnvVars(cfg.Alerts.Username),
		Password: config.ResolveEnvVars(cfg.Alerts.Password),
		From:     cfg.Alerts.From,
		Logger:   logger,
	})
	if err != nil {
		logger.Warn("alerts enabled but misconfigured; alerting disabled", "error", err)
		return nil
	}
	return mailer
}

// Start starts the server and, when managed, the Ollama container.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if s.ollamaManager != nil {
		s.logger.Info("starting managed Ollama container")
		if err := s.ollamaManager.Start(ctx); err != nil {
			s.setNotRunning()
			return fmt.Errorf("failed to start ollama: %w", err)
		}
		if err := s.ollamaManager.WaitReady(ctx, 2*time.Minute); err != nil {
			_ = s.shutdown()
			return fmt.Errorf("ollama did not become ready: %w", err)
		}
		if model := s.configMgr.Get().Ollama.Model; model != "" {
			s.logger.Info("pulling model", "model", model)
			if err := s.ollamaManager.PullModel(ctx, model); err != nil {
				_ = s.shutdown()
				return fmt.Errorf("failed to pull model %s: %w", model, err)
			}
		}
		s.logger.Info("Ollama is ready",
			"url", s.ollamaManager.URL(),
			"openai_base_url", s.ollamaManager.OpenAIBaseURL())
	}

	// Evict finished jobs past their retention window
	s.jobRegistry.StartJanitor(ctx)

	// Watch the config file for provider changes
	s.configMgr.WatchConfig()

	s.mu.Lock()
	s.ready = true
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
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

// shutdown performs graceful shutdown of the HTTP server and, when managed,
// the Ollama container.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if s.ollamaManager != nil {
		s.logger.Info("stopping Ollama")
		if err := s.ollamaManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("Ollama stop error", "error", err)
		}
		if err := s.ollamaManager.Close(); err != nil {
			s.logger.Error("Ollama manager close error", "error", err)
		}
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.ready = false
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

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// JobRegistry returns the job registry.
func (s *Server) JobRegistry() *jobs.Registry {
	return s.jobRegistry
}

// Handler returns the root HTTP handler with services attached. Exposed for
// tests that drive the server through httptest.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
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
// Returns 503 Service Unavailable while startup is still in progress.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		ready := s.ready
		s.mu.RUnlock()
		if !ready {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
