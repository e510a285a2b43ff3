package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"pullfunds/apps/pullfunds/internal/metrics"
)

const (
	storeUserRoute   = "/store-user"
	runContractRoute = "/run-contract"
	healthRoute      = "/health"
	metricsRoute     = "/metrics"

	healthCheckTimeout = 2 * time.Second
)

// Pinger reports database reachability
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Dependencies are the process-wide resources the handlers share. Puller,
// Events and DB may be nil when the resource failed to initialize.
type Dependencies struct {
	Addresses AddressStore
	Puller    FundsPuller
	Events    EventRecorder
	DB        Pinger
	Metrics   *metrics.Collector
	Gatherer  prometheus.Gatherer
}

// Server represents the API server
type Server struct {
	addressHandler  *AddressHandler
	contractHandler *ContractHandler
	deps            Dependencies
	logger          *zap.Logger
	server          *http.Server
}

// NewServer creates a new API server
func NewServer(port int, deps Dependencies, logger *zap.Logger) *Server {
	s := &Server{
		addressHandler:  NewAddressHandler(deps.Addresses, deps.Metrics, logger),
		contractHandler: NewContractHandler(deps.Puller, deps.Events, deps.Metrics, logger),
		deps:            deps,
		logger:          logger,
		// No WriteTimeout: /run-contract holds the response until the
		// transaction is mined.
		server: &http.Server{
			Addr:        fmt.Sprintf(":%d", port),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		},
	}
	s.server.Handler = s.Handler()
	return s
}

// Start starts the API server
func (s *Server) Start() error {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop stops the API server gracefully
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server")
	return s.server.Shutdown(ctx)
}

// Handler returns the routed handler wrapped with CORS
func (s *Server) Handler() http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler(s.setupRoutes())
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.Use(s.loggingMiddleware)
	router.Use(s.metricsMiddleware)

	router.HandleFunc(storeUserRoute, s.addressHandler.StoreUser).Methods(http.MethodPost)
	router.HandleFunc(runContractRoute, s.contractHandler.RunContract).Methods(http.MethodPost)
	router.HandleFunc(healthRoute, s.healthCheck).Methods(http.MethodGet)

	gatherer := s.deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Handle(metricsRoute, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// metricsMiddleware records latency per route template
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if template, err := current.GetPathTemplate(); err == nil {
				route = template
			}
		}
		s.deps.Metrics.ObserveRequest(route, r.Method, start)
	})
}

// healthCheck handles the health check endpoint
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:   "healthy",
		Time:     time.Now().UTC().Format(time.RFC3339),
		Database: "down",
		Contract: "down",
	}

	if s.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.deps.DB.PingContext(ctx); err == nil {
			response.Database = "up"
		} else {
			s.logger.Warn("Database health check failed", zap.Error(err))
		}
	}

	if s.deps.Puller != nil {
		response.Contract = "up"
	}

	writeJSONResponse(w, s.logger, http.StatusOK, response)
}
