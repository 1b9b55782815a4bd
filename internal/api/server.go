// Package api serves the recommendation pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/rs/cors"

	"github.com/catherinevee/mdcagent/internal/models"
	"github.com/catherinevee/mdcagent/internal/services"
	"github.com/catherinevee/mdcagent/internal/shared/config"
	"github.com/catherinevee/mdcagent/internal/shared/logging"
	"github.com/catherinevee/mdcagent/internal/shared/metrics"
	"github.com/catherinevee/mdcagent/internal/validation"
)

// RecommendationService is the pipeline the handlers call.
type RecommendationService interface {
	List(ctx context.Context, q models.ListQuery) (*services.ListResult, error)
	Get(ctx context.Context, subscriptionID, id string) (*services.GetResult, error)
}

var registerOnce sync.Once

// Server is the HTTP front end
type Server struct {
	config     config.ServerConfig
	service    RecommendationService
	metrics    *metrics.Collector
	version    string
	verbose    atomic.Bool
	engine     *gin.Engine
	handler    http.Handler
	httpServer *http.Server
}

// NewServer builds the router. collector may be nil, which disables
// /metrics.
func NewServer(cfg config.ServerConfig, service RecommendationService, collector *metrics.Collector, version string) (*Server, error) {
	var registerErr error
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			registerErr = validation.Register(v)
		}
	})
	if registerErr != nil {
		return nil, registerErr
	}

	if version == "" {
		version = "dev"
	}

	s := &Server{
		config:  cfg,
		service: service,
		metrics: collector,
		version: version,
		engine:  gin.New(),
	}

	s.engine.HandleMethodNotAllowed = false
	s.engine.Use(RequestID(), RequestLogger(collector), s.Recovery())
	s.setupRoutes()

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{HeaderRequestID, HeaderProcessTime},
		AllowCredentials: !contains(origins, "*"),
	}).Handler(s.engine)

	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.GET("/health", s.health)
	s.engine.GET("/openapi.json", s.openAPI)
	if s.metrics != nil {
		s.engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	v1 := s.engine.Group("/v1")
	{
		v1.GET("/recommendations", s.listRecommendations)
		v1.GET("/recommendations/:id", s.getRecommendation)
	}

	s.engine.NoRoute(s.notFound)
}

// Handler returns the CORS-wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// SetVerbose toggles diagnostic error details. Used on config reload.
func (s *Server) SetVerbose(verbose bool) {
	s.verbose.Store(verbose)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Address(),
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	logger := logging.WithComponent("api")
	logger.Info().
		Str("address", s.config.Address()).
		Str("version", s.version).
		Msg("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
