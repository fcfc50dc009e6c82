// Package api provides the HTTP REST API server for the accounts service
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/memtensor/accounts/docs"
	"github.com/memtensor/accounts/pkg/config"
	"github.com/memtensor/accounts/pkg/interfaces"
	"github.com/memtensor/accounts/pkg/metrics"
	"github.com/memtensor/accounts/pkg/ratelimit"
	"github.com/memtensor/accounts/pkg/users"
)

// Version is reported by the health endpoint; set at build time
var Version = "dev"

// AccountService is the user-management surface the handlers call
type AccountService interface {
	interfaces.HealthChecker

	Register(ctx context.Context, payload users.RegistrationPayload) (*users.User, error)
	CreateUser(ctx context.Context, token string, payload users.RegistrationPayload) (*users.User, error)
	GetUser(ctx context.Context, id string) (*users.User, error)
	ListUsers(ctx context.Context, token string) ([]users.User, error)
	UpdateUser(ctx context.Context, token, id string, patch map[string]interface{}) (*users.User, error)
	DeleteUser(ctx context.Context, token, id string) error
	Login(ctx context.Context, username, password string) (*users.LoginResult, error)
}

var _ AccountService = (*users.Manager)(nil)

// Server represents the API server instance
type Server struct {
	accounts  AccountService
	config    *config.Config
	logger    interfaces.Logger
	metrics   *metrics.Collector
	limiter   interfaces.RateLimiter
	router    *gin.Engine
	server    *http.Server
	startedAt time.Time
}

// Option configures optional server collaborators
type Option func(*Server)

// WithMetrics records request metrics into collector and exposes it on /metrics
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Server) { s.metrics = collector }
}

// WithRateLimiter limits the public registration and login endpoints
func WithRateLimiter(limiter interfaces.RateLimiter) Option {
	return func(s *Server) { s.limiter = limiter }
}

// NewServer creates a new API server instance
func NewServer(accounts AccountService, cfg *config.Config, logger interfaces.Logger, opts ...Option) *Server {
	switch cfg.Server.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Server.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		accounts:  accounts,
		config:    cfg,
		logger:    logger,
		limiter:   ratelimit.AllowAll{},
		router:    gin.New(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Router exposes the handler for tests and embedding
func (s *Server) Router() http.Handler {
	return s.router
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = s.config.Server.CORSOrigins
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = []string{"*"}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	s.router.Use(cors.New(corsConfig))

	if s.metrics != nil {
		s.router.Use(s.metricsMiddleware())
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.root)
	s.router.GET("/health", s.healthCheck)

	s.router.POST("/register", s.rateLimitMiddleware("register"), s.register)
	s.router.POST("/login", s.rateLimitMiddleware("login"), s.login)

	accounts := s.router.Group("/users")
	{
		accounts.POST("", s.createUser)
		accounts.GET("", s.listUsers)
		accounts.GET("/:id", s.getUser)
		accounts.PATCH("/:id", s.updateUser)
		accounts.DELETE("/:id", s.deleteUser)
	}

	if s.metrics != nil && s.config.MetricsEnabled {
		s.router.GET("/metrics", s.getMetrics)
	}

	s.router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Address(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting API server", map[string]interface{}{
		"address": s.server.Addr,
		"mode":    gin.Mode(),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error("Failed to start server", err)
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server...")
	return s.Stop()
}

// Stop gracefully stops the API server
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.server.Shutdown(ctx)
}
