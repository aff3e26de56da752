// Package server owns the HTTP server lifecycle. Route providers contribute
// routes to a single gin router, and the listener is wrapped with connection
// admission before it is served.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leoska/gameapi/internal/admission"
	"github.com/leoska/gameapi/internal/api"
	"github.com/leoska/gameapi/internal/dispatch"
	"github.com/leoska/gameapi/internal/handler"
	"github.com/leoska/gameapi/internal/metrics"
	"github.com/leoska/gameapi/pkg/config"
	"github.com/leoska/gameapi/pkg/middleware"
)

// State is a server lifecycle state.
type State int32

const (
	StateStarting State = iota
	StateListening
	StateTerminating
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateTerminating:
		return "terminating"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyRunning is returned when Run is called more than once.
var ErrAlreadyRunning = errors.New("server already running")

// Server serves the game API on one address.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	registry   *handler.Registry
	metrics    *metrics.Metrics
	admission  *admission.Controller
	dispatcher *dispatch.Dispatcher
	providers  []RouteProvider

	routerOnce sync.Once
	router     *gin.Engine
	httpServer *http.Server

	terminating atomic.Bool
	state       atomic.Int32
	started     atomic.Bool

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}

	stopOnce sync.Once
	stopErr  error
}

// New builds a server for a sealed registry. Nothing listens until Run.
func New(cfg *config.Config, registry *handler.Registry, logger *zap.Logger) (*Server, error) {
	if !registry.Sealed() {
		return nil, fmt.Errorf("handler registry must be sealed before the server is built")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger.Named("server"),
		registry: registry,
		ready:    make(chan struct{}),
	}
	s.state.Store(int32(StateStarting))

	if cfg.Metrics.Enabled {
		s.metrics = metrics.New()
	}
	s.admission = admission.NewController(cfg.Admission, logger, admission.WithMetrics(s.metrics))
	s.dispatcher = dispatch.New(registry, cfg.Execution.Timeout, &s.terminating, logger, s.metrics)

	handlers := api.NewHandlers(s.dispatcher, registry, cfg, func() string { return s.State().String() }, logger)
	apiProvider, err := NewAPIProvider(handlers)
	if err != nil {
		return nil, err
	}
	s.AddProvider(apiProvider)

	if s.metrics != nil {
		metricsProvider, err := NewMetricsProvider(cfg.Metrics.Path, s.metrics)
		if err != nil {
			return nil, err
		}
		s.AddProvider(metricsProvider)
	}

	s.httpServer = s.newHTTPServer()
	return s, nil
}

// AddProvider adds a RouteProvider to the server.
// Call this before Run to register its routes.
func (s *Server) AddProvider(p RouteProvider) {
	s.providers = append(s.providers, p)
	s.logger.Debug("Added route provider", zap.String("name", p.Name()))
}

// Run binds the configured address and serves until Stop. It returns nil
// after a clean stop and the bind or serve error otherwise.
func (s *Server) Run(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	var lc net.ListenConfig
	inner, err := lc.Listen(ctx, "tcp", s.cfg.Server.Address())
	if err != nil {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Server.Address(), err)
	}
	ln := admission.NewListener(inner, s.admission, s.cfg.Admission.RejectWriteTimeout)

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	// A Stop that raced ahead of the bind leaves the state alone.
	s.state.CompareAndSwap(int32(StateStarting), int32(StateListening))
	close(s.ready)

	s.logger.Info("HTTP server listening",
		zap.String("address", ln.Addr().String()),
		zap.Strings("handlers", s.registry.Names()),
	)

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.state.Store(int32(StateStopped))
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Ready is closed once the server is listening.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, nil before Run has bound it.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// Handler returns the router, for serving requests without a listener. The
// router is built on first use, so providers must be added before.
func (s *Server) Handler() http.Handler {
	s.routerOnce.Do(func() {
		s.router = s.buildRouter()
	})
	return s.router
}

// Admission exposes the connection admission controller.
func (s *Server) Admission() *admission.Controller {
	return s.admission
}

// Metrics returns the metrics registry, nil when metrics are disabled.
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// Stop refuses new calls, then gracefully shuts the HTTP server down within
// ctx. Later calls return the result of the first.
func (s *Server) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.terminating.Store(true)
		s.state.Store(int32(StateTerminating))
		s.logger.Info("Server terminating")

		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.stopErr = fmt.Errorf("HTTP server shutdown: %w", err)
		}

		s.state.Store(int32(StateStopped))
		if s.stopErr != nil {
			s.logger.Error("Server stopped with error", zap.Error(s.stopErr))
			return
		}
		s.logger.Info("Server stopped")
	})
	return s.stopErr
}

func (s *Server) newHTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Server.Address(),
		Handler:      http.HandlerFunc(s.serveHTTP),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
		ErrorLog:     zap.NewStdLog(s.logger),
	}
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

// buildRouter creates the router with common middleware and every provider's
// routes.
func (s *Server) buildRouter() *gin.Engine {
	if s.cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery(s.logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.SourceAddress())
	router.Use(middleware.Logger(s.logger))
	if len(s.cfg.CORS.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     s.cfg.CORS.AllowedOrigins,
			AllowMethods:     s.cfg.CORS.AllowedMethods,
			AllowHeaders:     s.cfg.CORS.AllowedHeaders,
			ExposeHeaders:    s.cfg.CORS.ExposedHeaders,
			AllowCredentials: s.cfg.CORS.AllowCredentials,
			MaxAge:           time.Duration(s.cfg.CORS.MaxAge) * time.Second,
		}))
	}

	for _, p := range s.providers {
		s.logger.Info("Registering HTTP routes", zap.String("provider", p.Name()))
		p.RegisterRoutes(router)
	}
	return router
}
