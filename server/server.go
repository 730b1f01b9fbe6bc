package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/demandflow/component"
	"github.com/kbukum/demandflow/logger"
	"github.com/kbukum/demandflow/server/middleware"
)

const componentName = "status-server"

var (
	_ component.Component   = (*Server)(nil)
	_ component.Describable = (*Server)(nil)
)

// Server is the status HTTP server.
type Server struct {
	httpServer  *http.Server
	engine      *gin.Engine
	config      Config
	serviceName string
	log         *logger.Logger
	created     time.Time

	mu      sync.RWMutex
	health  HealthChecker
	source  StatusSource
	addr    string
	serving bool
}

// New creates a Server with the middleware stack and routes installed.
// Call cfg.ApplyDefaults first if needed.
func New(cfg Config, serviceName string, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Get("server")
	}
	if zl := log.GetLogger(); zl.GetLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	log = log.WithComponent(componentName)

	engine := gin.New()
	engine.Use(middleware.Recovery(log), middleware.RequestID(), middleware.RequestLogger(log))

	h2s := &http2.Server{
		MaxConcurrentStreams: 250,
		IdleTimeout:          seconds(cfg.IdleTimeout),
	}

	s := &Server{
		engine:      engine,
		config:      cfg,
		serviceName: serviceName,
		log:         log,
		created:     time.Now(),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      h2c.NewHandler(engine, h2s),
		ReadTimeout:  seconds(cfg.ReadTimeout),
		WriteTimeout: seconds(cfg.WriteTimeout),
		IdleTimeout:  seconds(cfg.IdleTimeout),
	}

	engine.GET("/health", s.handleHealth)
	engine.GET("/latest", s.handleLatest)
	engine.GET("/info", s.handleInfo)
	return s
}

// Engine returns the Gin engine for additional routes.
func (s *Server) Engine() *gin.Engine { return s.engine }

// Handler returns the root handler (h2c-wrapped engine).
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// SetHealthChecker sets the source of component health for /health.
func (s *Server) SetHealthChecker(h HealthChecker) {
	s.mu.Lock()
	s.health = h
	s.mu.Unlock()
}

// SetStatusSource sets the source of /latest.
func (s *Server) SetStatusSource(src StatusSource) {
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
}

func (s *Server) healthChecker() HealthChecker {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}

func (s *Server) statusSource() StatusSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}

// Name returns the component name.
func (s *Server) Name() string { return componentName }

// Start binds the port and serves in a goroutine. It returns once the
// listener is bound.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}

	s.mu.Lock()
	s.addr = listener.Addr().String()
	s.serving = true
	s.mu.Unlock()

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Server error", logger.Fields(logger.FieldError, err.Error()))
			s.mu.Lock()
			s.serving = false
			s.mu.Unlock()
		}
	}()

	s.log.Info("Status server started", logger.Fields("addr", s.Addr()))
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.serving = false
	s.mu.Unlock()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Error("Server shutdown error", logger.Fields(logger.FieldError, err.Error()))
		return fmt.Errorf("server shutdown error: %w", err)
	}
	s.log.Info("Status server stopped")
	return nil
}

// Health reports whether the server is serving.
func (s *Server) Health(context.Context) component.Health {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.serving {
		return component.Health{Name: componentName, Status: component.StatusUnhealthy, Message: "not serving"}
	}
	return component.Health{Name: componentName, Status: component.StatusHealthy, Details: map[string]string{"addr": s.addr}}
}

// Describe returns summary info for the startup log.
func (s *Server) Describe() component.Description {
	return component.Description{Name: "Status Server", Type: "http", Details: s.Addr()}
}

// Addr returns the bound address once started, the configured one before.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.addr != "" {
		return s.addr
	}
	return s.httpServer.Addr
}
