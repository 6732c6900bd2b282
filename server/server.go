// Package server wires the Quill HTTP server: configuration, completion
// backends, the transform pipeline, the router and the lifecycle of the
// background tasks.
package server

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"reflect"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teilomillet/quill/config"
	"github.com/teilomillet/quill/errors"
	"github.com/teilomillet/quill/logging"
	"github.com/teilomillet/quill/server/handlers"
	"github.com/teilomillet/quill/server/metrics"
	"github.com/teilomillet/quill/server/middleware"
	"github.com/teilomillet/quill/server/processing"
	"github.com/teilomillet/quill/server/provider"
	"github.com/teilomillet/quill/server/routing"
	"github.com/teilomillet/quill/server/store"
	"github.com/teilomillet/quill/server/validation"
)

const defaultShutdownTimeout = 30 * time.Second

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	watcher    config.Watcher
	logger     *logging.Logger
	metrics    *metrics.Metrics
	manager    *provider.Manager
	auth       *middleware.Authenticator
	limiter    *middleware.RateLimiter
	queue      *middleware.QueueMiddleware

	mu       sync.Mutex
	cfg      *config.Config
	listener net.Listener
	ready    chan struct{}
}

// Option customizes a Server.
type Option func(*options)

type options struct {
	backends []provider.Backend
	store    store.Store
}

// WithBackends replaces the configured providers with backends.
func WithBackends(backends ...provider.Backend) Option {
	return func(o *options) { o.backends = backends }
}

// WithStore replaces the in-memory store.
func WithStore(s store.Store) Option {
	return func(o *options) { o.store = s }
}

// NewServer creates a server from the config file at configPath. The file is
// watched and reloaded on change.
func NewServer(configPath string, logger *logging.Logger, opts ...Option) (*Server, error) {
	watcher, err := config.NewConfigWatcher(configPath, logger.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	return NewServerWithConfig(watcher, logger, opts...)
}

// NewServerWithConfig creates a server from the current config of watcher.
func NewServerWithConfig(watcher config.Watcher, logger *logging.Logger, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	cfg := watcher.GetCurrentConfig()
	if cfg == nil {
		return nil, errors.NewConfigError("no configuration", nil)
	}

	m := metrics.NewMetrics()

	var manager *provider.Manager
	if o.backends != nil {
		manager = provider.NewManagerWithBackends(cfg, logger.Logger, m.Registry(), o.backends)
	} else {
		var err error
		manager, err = provider.NewManager(cfg, logger.Logger, m.Registry())
		if err != nil {
			return nil, fmt.Errorf("failed to create provider manager: %w", err)
		}
	}

	proc, err := processing.NewProcessor(manager, logger.Logger, m)
	if err != nil {
		return nil, err
	}

	s := o.store
	if s == nil {
		s = store.NewMemoryStore(cfg.Store.MaxEntries)
	}

	srv := &Server{
		watcher: watcher,
		logger:  logger,
		metrics: m,
		manager: manager,
		auth:    middleware.NewAuthenticator(cfg.Auth),
		limiter: middleware.NewRateLimiter(cfg.RateLimit, m),
		cfg:     cfg,
		ready:   make(chan struct{}),
	}
	if cfg.Queue.Enabled {
		srv.queue = middleware.NewQueueMiddleware(cfg.Queue.MaxSize, m)
	}

	router := routing.NewRouter(routing.Dependencies{
		Config:      cfg,
		Logger:      logger.Logger,
		Metrics:     m,
		Transform:   handlers.NewTransformHandler(proc, validation.New(cfg.Transform, logger.Logger), logger.Logger),
		Store:       handlers.NewStoreHandler(s, logger.Logger),
		Health:      manager,
		Auth:        srv.auth,
		RateLimiter: srv.limiter,
		Queue:       srv.queue,
	})

	var handler http.Handler = router
	if cfg.Server.MaxBodyBytes > 0 {
		handler = http.MaxBytesHandler(router, cfg.Server.MaxBodyBytes)
	}

	srv.httpServer = &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        handler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
		ErrorLog:       zap.NewStdLog(logger.Logger),
	}
	return srv, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Manager returns the provider manager.
func (s *Server) Manager() *provider.Manager {
	return s.manager
}

// Ready is closed once the server listens.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start serves until ctx is done, then shuts down gracefully. Health checks,
// rate limiter cleanup and configuration reloads run alongside the listener.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.httpServer.Addr, err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()
	updates := s.watcher.Subscribe()
	close(s.ready)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server started",
			zap.String("address", ln.Addr().String()),
			zap.Strings("providers", s.manager.Names()),
		)
		if err := s.httpServer.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.manager.RunHealthChecks(gctx)
		return nil
	})

	g.Go(func() error {
		s.limiter.Cleanup(gctx)
		return nil
	})

	g.Go(func() error {
		s.watchConfig(gctx, updates)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

func (s *Server) shutdown() error {
	s.mu.Lock()
	timeout := s.cfg.Server.ShutdownTimeout
	s.mu.Unlock()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down server", zap.Duration("timeout", timeout))
	if s.queue != nil {
		if err := s.queue.Shutdown(ctx); err != nil {
			s.logger.Warn("queue did not drain", zap.Error(err))
		}
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("error during server shutdown: %w", err)
	}
	return nil
}

func (s *Server) watchConfig(ctx context.Context, updates <-chan *config.Config) {
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-updates:
			if !ok {
				return
			}
			s.applyConfig(cfg)
		}
	}
}

// applyConfig applies the settings that can change at runtime: log level,
// rate limit, API keys and queue size. Everything else needs a restart.
func (s *Server) applyConfig(cfg *config.Config) {
	if cfg == nil {
		return
	}
	s.mu.Lock()
	old := s.cfg
	s.cfg = cfg
	s.mu.Unlock()

	if err := s.logger.SetLevel(cfg.Logging.Level); err != nil {
		s.logger.Warn("ignoring log level", zap.Error(err))
	}
	s.limiter.Update(cfg.RateLimit)
	s.auth.Update(cfg.Auth)
	if s.queue != nil && cfg.Queue.MaxSize > 0 {
		s.queue.SetMaxSize(cfg.Queue.MaxSize)
	}

	if cfg.Server.Port != old.Server.Port ||
		!reflect.DeepEqual(cfg.Providers, old.Providers) ||
		!reflect.DeepEqual(cfg.LLM, old.LLM) ||
		!reflect.DeepEqual(cfg.ProviderPreference, old.ProviderPreference) {
		s.logger.Warn("server and provider settings changed; restart to apply them")
	}
	s.logger.Info("configuration reloaded",
		zap.String("log_level", cfg.Logging.Level),
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Bool("auth", s.auth.Enabled()),
	)
}

// Config returns the configuration currently applied.
func (s *Server) Config() *config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}
